package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	cfg "github.com/maheshrc27/crosspost/configs"
)

// R2Service stages uploaded media in Cloudflare R2 and returns the public URL
// providers pull it from.
type R2Service interface {
	UploadToR2(ctx context.Context, key string, file []byte, filetype string) (string, error)
}

type objectUploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type r2Service struct {
	uploader  objectUploader
	bucket    string
	publicURL string
}

func NewR2Service(ctx context.Context, c *cfg.Config) (R2Service, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(c.R2.AccessKey, c.R2.SecretKey, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("error loading r2 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.R2.AccountID))
	})

	return newR2Service(manager.NewUploader(client), c.R2.BucketName, c.R2.PublicURL), nil
}

func newR2Service(u objectUploader, bucket, publicURL string) *r2Service {
	return &r2Service{uploader: u, bucket: bucket, publicURL: strings.TrimRight(publicURL, "/")}
}

func (r *r2Service) UploadToR2(ctx context.Context, key string, file []byte, filetype string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(file),
		ContentType: aws.String(filetype),
	}

	if _, err := r.uploader.Upload(ctx, input); err != nil {
		slog.Info(err.Error())
		return "", fmt.Errorf("error uploading %s to r2: %w", key, err)
	}

	return r.publicURL + "/" + key, nil
}
