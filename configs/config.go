package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type R2 struct {
	AccountID  string `env:"R2_ACCOUNT_ID"`
	AccessKey  string `env:"R2_ACCESS_KEY"`
	SecretKey  string `env:"R2_SECRET_KEY"`
	BucketName string `env:"R2_BUCKET_NAME"`
	PublicURL  string `env:"R2_PUBLIC_URL" env-default:"https://pub-f8f43aa198a449518df6744ec9ce452c.r2.dev"`
}

// Publish holds the settings of the publishing engine.
type Publish struct {
	CallTimeout      time.Duration `env:"PUBLISH_CALL_TIMEOUT" env-default:"30s"`
	UploadTimeout    time.Duration `env:"PUBLISH_UPLOAD_TIMEOUT" env-default:"5m"`
	ChunkSize        int           `env:"PUBLISH_CHUNK_SIZE" env-default:"4194304"`
	PollInterval     time.Duration `env:"PUBLISH_POLL_INTERVAL" env-default:"5s"`
	MaxPollInterval  time.Duration `env:"PUBLISH_MAX_POLL_INTERVAL" env-default:"30s"`
	MaxPollAttempts  int           `env:"PUBLISH_MAX_POLL_ATTEMPTS" env-default:"20"`
	MaxMediaBytes    int64         `env:"PUBLISH_MAX_MEDIA_BYTES" env-default:"536870912"`
	RateLimit        int           `env:"PUBLISH_RATE_LIMIT" env-default:"30"`
	RateWindow       time.Duration `env:"PUBLISH_RATE_WINDOW" env-default:"1h"`
	AllowPrivateHost bool          `env:"PUBLISH_ALLOW_PRIVATE_HOSTS" env-default:"false"`
}

// Endpoints overrides provider base URLs. Empty values keep the public APIs.
type Endpoints struct {
	Graph        string `env:"GRAPH_API_URL"`
	Twitter      string `env:"TWITTER_API_URL"`
	TwitterMedia string `env:"TWITTER_UPLOAD_URL"`
	Tiktok       string `env:"TIKTOK_API_URL"`
	Youtube      string `env:"YOUTUBE_API_URL"`
	Marketplace  string `env:"MARKETPLACE_API_URL"`
	Instagram    string `env:"INSTAGRAM_GRAPH_URL" env-default:"https://graph.instagram.com"`
}

type Config struct {
	InstagramClientID     string `env:"INSTAGRAM_CLIENT_ID"`
	InstagramClientSecret string `env:"INSTAGRAM_CLIENT_SECRET"`
	TiktokClientKey       string `env:"TIKTOK_CLIENT_KEY"`
	TiktokClientSecret    string `env:"TIKTOK_CLIENT_SECRET"`
	GoogleClientID        string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret    string `env:"GOOGLE_CLIENT_SECRET"`
	TwitterConsumerKey    string `env:"TWITTER_CONSUMER_KEY"`
	TwitterConsumerSecret string `env:"TWITTER_CONSUMER_SECRET"`
	PostgresURI           string `env:"POSTGRES_URI" env-required:"true"`
	RedisURI              string `env:"REDIS_URI" env-default:"localhost:6379"`
	FrontendURL           string `env:"FRONTEND_URL" env-default:"http://localhost:5173"`
	Port                  string `env:"PORT" env-default:"8000"`
	LogLevel              string `env:"LOG_LEVEL" env-default:"info"`
	SecretKey             string `env:"SECRET_KEY" env-required:"true"`
	CookieName            string `env:"COOKIE_NAME" env-default:"crosspost_session"`
	R2                    R2
	Publish               Publish
	Endpoints             Endpoints
}

func LoadConfig() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("error reading config: %w", err)
	}
	if n := len(cfg.SecretKey); n != 16 && n != 24 && n != 32 {
		return nil, fmt.Errorf("SECRET_KEY must be 16, 24 or 32 bytes long, got %d", n)
	}
	return &cfg, nil
}
