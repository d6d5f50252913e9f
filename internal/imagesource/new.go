package imagesource

import (
	"context"
	"net/http"

	"food-ordering/internal/config"

	"github.com/rs/zerolog"
)

// New builds the image source used by the seeder: HTTP(S), local files
// relative to root and, when enabled, S3, behind placeholder fallback.
func New(ctx context.Context, seed config.SeedConfig, s3cfg config.S3Config, root string, logger zerolog.Logger) (Source, error) {
	router := NewRouter(logger).
		Handle(NewHTTPSource(&http.Client{}, seed.ImageTimeout, logger), "http", "https").
		Handle(NewFileSource(root, logger), "file")

	if s3cfg.Enabled {
		s3src, err := NewS3Source(ctx, s3cfg, logger)
		if err != nil {
			return nil, err
		}
		router.Handle(s3src, "s3")
	}

	return NewFallbackSource(router, seed.PlaceholderURL, logger), nil
}
