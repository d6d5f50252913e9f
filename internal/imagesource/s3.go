package imagesource

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	appconfig "food-ordering/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// s3API is the part of the S3 client the source needs.
type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// s3Source reads images addressed as s3://bucket/key.
type s3Source struct {
	client s3API
	now    func() time.Time
	logger zerolog.Logger
}

// NewS3Source creates an S3 image source. A custom endpoint and static
// credentials select an S3-compatible store.
func NewS3Source(ctx context.Context, cfg appconfig.S3Config, logger zerolog.Logger) (Source, error) {
	logger = logger.With().Str("component", "s3-image-source").Logger()

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load AWS configuration")
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	logger.Info().
		Str("region", cfg.Region).
		Str("endpoint", cfg.Endpoint).
		Msg("S3 image source initialised")

	return newS3Source(client, logger), nil
}

func newS3Source(client s3API, logger zerolog.Logger) *s3Source {
	return &s3Source{client: client, now: time.Now, logger: logger}
}

// Fetch downloads the object ref points to.
func (s *s3Source) Fetch(ctx context.Context, ref string) (*Image, error) {
	bucket, key, err := parseS3Ref(ref)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("bucket", bucket).
			Str("key", key).
			Msg("failed to get object from S3")
		return nil, fmt.Errorf("failed to get object from S3 (bucket=%s, key=%s): %w", bucket, key, err)
	}
	defer out.Body.Close()

	data, err := readImage(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read S3 object %s: %w", key, err)
	}

	contentType := aws.ToString(out.ContentType)
	if contentType == "" {
		contentType = DefaultContentType
	}

	return &Image{
		Name:        nameFromPath(key, s.now()),
		ContentType: contentType,
		Data:        data,
	}, nil
}

func parseS3Ref(ref string) (bucket, key string, err error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", "", fmt.Errorf("invalid S3 URL %q: %w", ref, err)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if u.Scheme != "s3" || u.Host == "" || key == "" {
		return "", "", fmt.Errorf("invalid S3 URL %q: want s3://bucket/key", ref)
	}
	return u.Host, key, nil
}
