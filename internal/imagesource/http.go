package imagesource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// DefaultTimeout bounds a single image download.
const DefaultTimeout = 30 * time.Second

// httpSource downloads images over HTTP(S).
type httpSource struct {
	client  *http.Client
	timeout time.Duration
	now     func() time.Time
	logger  zerolog.Logger
}

// NewHTTPSource creates a source that downloads images with a per-fetch
// timeout. A zero timeout uses DefaultTimeout.
func NewHTTPSource(client *http.Client, timeout time.Duration, logger zerolog.Logger) Source {
	if client == nil {
		client = &http.Client{}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &httpSource{
		client:  client,
		timeout: timeout,
		now:     time.Now,
		logger:  logger.With().Str("component", "http-image-source").Logger(),
	}
}

// Fetch downloads ref.
func (s *httpSource) Fetch(ctx context.Context, ref string) (*Image, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid image URL %q: %w", ref, err)
	}
	req.Header.Set("Accept", "image/*")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn().Err(err).Str("url", ref).Msg("image request failed")
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("failed to fetch image: %s", resp.Status)
	}

	data, err := readImage(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = DefaultContentType
	}

	var urlPath string
	if u, err := url.Parse(ref); err == nil {
		urlPath = u.Path
	}

	img := &Image{
		Name:        nameFromPath(urlPath, s.now()),
		ContentType: contentType,
		Data:        data,
	}

	s.logger.Debug().
		Str("url", ref).
		Str("name", img.Name).
		Int("bytes", len(data)).
		Msg("image downloaded")

	return img, nil
}
