package imagesource

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// fileSource reads images from the local file system.
type fileSource struct {
	root   string
	logger zerolog.Logger
}

// NewFileSource creates a source for file:// URLs and bare paths.
// Relative paths are resolved against root.
func NewFileSource(root string, logger zerolog.Logger) Source {
	return &fileSource{
		root:   root,
		logger: logger.With().Str("component", "file-image-source").Logger(),
	}
}

// Fetch reads the file ref points to.
func (s *fileSource) Fetch(ctx context.Context, ref string) (*Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p := ref
	if strings.HasPrefix(ref, "file://") {
		u, err := url.Parse(ref)
		if err != nil {
			return nil, fmt.Errorf("invalid file URL %q: %w", ref, err)
		}
		p = u.Path
	}
	if !filepath.IsAbs(p) && s.root != "" {
		p = filepath.Join(s.root, p)
	}

	f, err := os.Open(p)
	if err != nil {
		s.logger.Warn().Err(err).Str("file", p).Msg("failed to open image file")
		return nil, fmt.Errorf("failed to open image file %s: %w", p, err)
	}
	defer f.Close()

	data, err := readImage(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read image file %s: %w", p, err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(p))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	return &Image{
		Name:        filepath.Base(p),
		ContentType: contentType,
		Data:        data,
	}, nil
}
