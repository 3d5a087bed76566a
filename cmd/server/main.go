package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/maheshrc27/crosspost/configs"
	"github.com/maheshrc27/crosspost/internal/api/handlers"
	"github.com/maheshrc27/crosspost/internal/api/middleware"
	"github.com/maheshrc27/crosspost/internal/database"
	job "github.com/maheshrc27/crosspost/internal/jobs"
	"github.com/maheshrc27/crosspost/internal/logger"
	"github.com/maheshrc27/crosspost/internal/metrics"
	"github.com/maheshrc27/crosspost/internal/publish"
	"github.com/maheshrc27/crosspost/internal/queue"
	"github.com/maheshrc27/crosspost/internal/ratelimit"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/maheshrc27/crosspost/internal/service"
	"github.com/maheshrc27/crosspost/internal/upload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file loaded", slog.String("error", err.Error()))
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
	log := logger.SetupDefault(os.Stdout, cfg.LogLevel)

	if err := database.RunMigrations(cfg.PostgresURI); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Error("database is unreachable", slog.String("error", err.Error()))
		os.Exit(1)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	postRepo := repository.NewPostRepository(db)
	socialAccountRepo := repository.NewSocialAccountRepository(db)
	postMediaRepo := repository.NewPostMediaRepository(db)
	selectedAccountRepo := repository.NewSelectedAccountRepository(db)
	mediaAssetRepo := repository.NewMediaAssetRepository(db)
	historyRepo := repository.NewPostingHistoryRepository(db)
	apiKeyRepository := repository.NewApiKeyRepository(db)

	r2Service, err := service.NewR2Service(context.Background(), cfg)
	if err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}

	pc := cfg.Publish
	uploadCfg := upload.DefaultConfig()
	uploadCfg.ChunkSize = pc.ChunkSize
	uploadCfg.PollInterval = pc.PollInterval
	uploadCfg.MaxPollInterval = pc.MaxPollInterval
	uploadCfg.MaxPollAttempts = pc.MaxPollAttempts

	fetcher := upload.NewHTTPFetcher(upload.NewSafeClient(pc.UploadTimeout, pc.AllowPrivateHost), pc.MaxMediaBytes)
	apiOpts := func(baseURL string) service.ClientOptions {
		return service.ClientOptions{BaseURL: baseURL, Timeout: pc.CallTimeout}
	}

	adapters := map[publish.Provider]publish.Adapter{
		publish.ProviderFacebook:  service.NewFacebookService(apiOpts(cfg.Endpoints.Graph)),
		publish.ProviderInstagram: service.NewInstagramService(apiOpts(cfg.Endpoints.Graph), uploadCfg),
		publish.ProviderTwitter: service.NewTwitterService(service.TwitterOptions{
			ConsumerKey:    cfg.TwitterConsumerKey,
			ConsumerSecret: cfg.TwitterConsumerSecret,
			API:            apiOpts(cfg.Endpoints.Twitter),
			UploadBaseURL:  cfg.Endpoints.TwitterMedia,
			UploadTimeout:  pc.UploadTimeout,
			Upload:         uploadCfg,
			Fetcher:        fetcher,
		}),
		publish.ProviderTiktok:      service.NewTiktokService(apiOpts(cfg.Endpoints.Tiktok), uploadCfg),
		publish.ProviderMarketplace: service.NewMarketplaceService(apiOpts(cfg.Endpoints.Marketplace)),
		publish.ProviderYoutube: service.NewYoutubeService(service.ClientOptions{
			BaseURL: cfg.Endpoints.Youtube,
			Timeout: pc.UploadTimeout,
		}, fetcher),
	}

	credentialService := service.NewCredentialService(service.CredentialOptions{
		SecretKey:          cfg.SecretKey,
		API:                apiOpts(""),
		InstagramURL:       cfg.Endpoints.Instagram,
		TiktokURL:          cfg.Endpoints.Tiktok,
		TiktokClientKey:    cfg.TiktokClientKey,
		TiktokClientSecret: cfg.TiktokClientSecret,
		Google: oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			Endpoint:     google.Endpoint,
		},
	}, socialAccountRepo)

	limiter := ratelimit.New(ratelimit.Config{Limit: pc.RateLimit, Window: pc.RateWindow})
	limiter.Start()
	defer limiter.Stop()

	dispatcher := publish.NewDispatcher(adapters,
		publish.WithRecorder(metrics.NewCollector(prometheus.DefaultRegisterer)),
		publish.WithRateLimiter(limiter),
		publish.WithCredentialStore(credentialService),
		publish.WithLogger(log),
	)

	postService := service.NewPostService(db, postRepo, selectedAccountRepo, mediaAssetRepo, socialAccountRepo, postMediaRepo, historyRepo, r2Service)
	platformService := service.NewPlatformService(cfg.SecretKey, &http.Client{Timeout: pc.CallTimeout}, socialAccountRepo)
	apiKeyService := service.NewApiKeyService(apiKeyRepository)

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Error("request failed", slog.String("path", c.Path()), slog.String("error", err.Error()))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler(prometheus.DefaultGatherer)))

	authMiddleware := middleware.NewAuthMiddleware(cfg.SecretKey, cfg.CookieName, apiKeyService)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	publishHandler := handlers.NewPublishHandler(dispatcher)
	api.Post("/publish/:platform", publishHandler.Publish)

	post := handlers.NewPostHandler(postService, client)
	api.Post("/posts/create", post.CreatePost)
	api.Get("/posts", post.ListPosts)
	api.Post("/posts/remove", post.RemovePost)
	api.Get("/posts/history", post.PostingHistory)

	// social accounts api routes
	platform := handlers.NewPlatformHandler(platformService)
	api.Get("/accounts", platform.ListSocialAccounts)
	api.Post("/accounts/remove", platform.DeleteSocialAccount)

	// cron jobs
	refreshTokenJob := job.NewTokenRefreshJob(socialAccountRepo, credentialService)

	c := cron.New()
	if err := refreshTokenJob.Schedule(c); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
	c.Start()
	defer c.Stop()

	//queue
	queueW := queue.NewQueue(postRepo, selectedAccountRepo, mediaAssetRepo, socialAccountRepo, historyRepo, dispatcher)

	server := asynq.NewServer(redisConn, asynq.Config{
		Concurrency: 10,
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskTypeSchedulePost, queueW.HandleSchedulePostTask)

	log.Info("starting the asynq server")
	if err := server.Start(mux); err != nil {
		log.Error("could not start asynq server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("failed to start server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()
	log.Info("server is running", slog.String("port", cfg.Port))

	gracefulShutdown(app, server)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, server *asynq.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	slog.Info("shutting down server")

	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		slog.Error("failed to shut down server", slog.String("error", err.Error()))
	}
	server.Shutdown()

	slog.Info("server shutdown complete")
}
