package imagesource

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// DefaultPlaceholderURL is fetched when an image cannot be retrieved.
const DefaultPlaceholderURL = "https://ui-avatars.com/api/?name=Food&size=200&background=random"

// fallbackSource tries the primary source and, on any failure, fetches
// the placeholder image instead.
type fallbackSource struct {
	primary     Source
	placeholder string
	now         func() time.Time
	logger      zerolog.Logger
}

// NewFallbackSource wraps primary with placeholder substitution. The
// placeholder is fetched through primary as well.
func NewFallbackSource(primary Source, placeholderURL string, logger zerolog.Logger) Source {
	if placeholderURL == "" {
		placeholderURL = DefaultPlaceholderURL
	}
	return &fallbackSource{
		primary:     primary,
		placeholder: placeholderURL,
		now:         time.Now,
		logger:      logger.With().Str("component", "fallback-image-source").Logger(),
	}
}

// Fetch returns the image for ref or the placeholder.
func (s *fallbackSource) Fetch(ctx context.Context, ref string) (*Image, error) {
	img, err := s.primary.Fetch(ctx, ref)
	if err == nil {
		return img, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	s.logger.Warn().
		Err(err).
		Str("ref", ref).
		Msg("failed to fetch image, using placeholder")

	placeholder, perr := s.primary.Fetch(ctx, s.placeholder)
	if perr != nil {
		s.logger.Error().Err(perr).Str("placeholder", s.placeholder).Msg("failed to fetch placeholder image")
		return nil, fmt.Errorf("failed to fetch placeholder image: %w", perr)
	}

	placeholder.Name = fmt.Sprintf("placeholder-%d.jpg", s.now().UnixMilli())
	placeholder.ContentType = DefaultContentType
	return placeholder, nil
}
