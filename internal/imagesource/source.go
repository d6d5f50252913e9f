// Package imagesource fetches menu images from remote or local locations
// so they can be uploaded to platform storage.
package imagesource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultContentType is used when a source reports no content type.
	DefaultContentType = "image/jpeg"

	// MaxImageSize is the largest image body a source accepts.
	MaxImageSize = 20 << 20
)

// ErrImageTooLarge is returned when an image body exceeds MaxImageSize.
var ErrImageTooLarge = errors.New("image exceeds maximum size")

// readImage reads at most MaxImageSize bytes from r and fails if the body
// is longer.
func readImage(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxImageSize {
		return nil, fmt.Errorf("%w of %d bytes", ErrImageTooLarge, MaxImageSize)
	}
	return data, nil
}

// Image is a fetched image ready for upload.
type Image struct {
	Name        string
	ContentType string
	Data        []byte
}

// Source fetches the image a reference points to.
type Source interface {
	Fetch(ctx context.Context, ref string) (*Image, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, ref string) (*Image, error)

// Fetch calls f.
func (f SourceFunc) Fetch(ctx context.Context, ref string) (*Image, error) {
	return f(ctx, ref)
}

// Router dispatches a reference to the source registered for its URL
// scheme. References without a scheme use the "file" source.
type Router struct {
	sources map[string]Source
	logger  zerolog.Logger
}

// NewRouter creates an empty router.
func NewRouter(logger zerolog.Logger) *Router {
	return &Router{
		sources: make(map[string]Source),
		logger:  logger.With().Str("component", "image-router").Logger(),
	}
}

// Handle registers src for each scheme.
func (r *Router) Handle(src Source, schemes ...string) *Router {
	for _, scheme := range schemes {
		r.sources[strings.ToLower(scheme)] = src
	}
	return r
}

// Fetch picks a source by scheme and fetches ref with it.
func (r *Router) Fetch(ctx context.Context, ref string) (*Image, error) {
	scheme := "file"
	if u, err := url.Parse(ref); err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		scheme = strings.ToLower(u.Scheme)
	}

	src, ok := r.sources[scheme]
	if !ok {
		return nil, fmt.Errorf("no image source for scheme %q", scheme)
	}

	r.logger.Debug().Str("scheme", scheme).Str("ref", ref).Msg("fetching image")
	return src.Fetch(ctx, ref)
}

// nameFromPath returns the last path segment of p, or a generated
// file-<unix-ms>.jpg name when there is none.
func nameFromPath(p string, now time.Time) string {
	base := path.Base(p)
	if base == "" || base == "." || base == "/" {
		return fmt.Sprintf("file-%d.jpg", now.UnixMilli())
	}
	return base
}
