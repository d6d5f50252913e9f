// Package seed clears the catalogue collections and storage bucket and
// repopulates them from a dataset.
package seed

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"food-ordering/internal/appwrite"
	"food-ordering/internal/config"
	"food-ordering/internal/imagesource"
	"food-ordering/internal/model"
	"food-ordering/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Defaults applied to zero Config fields.
const (
	DefaultMaxAttempts       = 3
	DefaultBaseDelay         = time.Second
	DefaultMaxDelay          = 10 * time.Second
	DefaultDeleteConcurrency = 10
	DefaultPageSize          = 100
)

// DocumentStore is the database API the seeder needs. *appwrite.Databases
// implements it.
type DocumentStore interface {
	CreateDocument(ctx context.Context, databaseID, collectionID, documentID string, data any, permissions ...string) (*appwrite.Document, error)
	ListDocuments(ctx context.Context, databaseID, collectionID string, queries ...string) (*appwrite.DocumentList, error)
	DeleteDocument(ctx context.Context, databaseID, collectionID, documentID string) error
}

// FileStore is the storage API the seeder needs. *appwrite.Storage
// implements it.
type FileStore interface {
	CreateFile(ctx context.Context, bucketID, fileID string, file appwrite.InputFile, permissions ...string) (*appwrite.File, error)
	ListFiles(ctx context.Context, bucketID string, queries ...string) (*appwrite.FileList, error)
	DeleteFile(ctx context.Context, bucketID, fileID string) error
	FileViewURL(bucketID, fileID string) string
}

// Config identifies the seeded resources and tunes the run.
type Config struct {
	DatabaseID                     string
	BucketID                       string
	CategoriesCollectionID         string
	CustomizationsCollectionID     string
	MenuCollectionID               string
	MenuCustomizationsCollectionID string

	MaxAttempts       int
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	DeleteConcurrency int
	PageSize          int
}

// ConfigFrom builds a seeder Config from application configuration.
func ConfigFrom(aw config.AppwriteConfig, sc config.SeedConfig) Config {
	return Config{
		DatabaseID:                     aw.DatabaseID,
		BucketID:                       aw.BucketID,
		CategoriesCollectionID:         aw.CategoriesCollectionID,
		CustomizationsCollectionID:     aw.CustomizationsCollectionID,
		MenuCollectionID:               aw.MenuCollectionID,
		MenuCustomizationsCollectionID: aw.MenuCustomizationsCollectionID,
		MaxAttempts:                    sc.MaxAttempts,
		BaseDelay:                      sc.BaseDelay,
		MaxDelay:                       sc.MaxDelay,
		DeleteConcurrency:              sc.DeleteConcurrency,
		PageSize:                       sc.PageSize,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = DefaultMaxDelay
	}
	if c.DeleteConcurrency <= 0 {
		c.DeleteConcurrency = DefaultDeleteConcurrency
	}
	if c.PageSize <= 0 || c.PageSize > repository.MaxPageSize {
		c.PageSize = DefaultPageSize
	}
	return c
}

// Result summarises a successful seed.
type Result struct {
	Attempts         int
	Categories       int
	Customizations   int
	MenuItems        int
	Links            int
	Files            int
	DeletedDocuments int
	DeletedFiles     int
	Duration         time.Duration
	Documents        []model.SeededDocument
}

// Seeder writes a dataset to the platform.
type Seeder struct {
	docs   DocumentStore
	files  FileStore
	images imagesource.Source
	data   *Dataset
	cfg    Config
	ledger repository.SeedRunRepository
	logger zerolog.Logger
}

// New creates a seeder for data.
func New(docs DocumentStore, files FileStore, images imagesource.Source, data *Dataset, cfg Config, logger zerolog.Logger) *Seeder {
	return &Seeder{
		docs:   docs,
		files:  files,
		images: images,
		data:   data,
		cfg:    cfg.withDefaults(),
		logger: logger.With().Str("component", "seeder").Logger(),
	}
}

// WithLedger records every run in ledger.
func (s *Seeder) WithLedger(ledger repository.SeedRunRepository) *Seeder {
	s.ledger = ledger
	return s
}

// validate checks the dataset before any platform call.
func (s *Seeder) validate() error {
	if s.data == nil {
		return fmt.Errorf("no dataset to seed")
	}
	return s.data.Validate()
}

// Seed performs one attempt: connection test, clear, then repopulate.
// Failed deletes are logged and skipped; any other failure aborts the
// attempt.
func (s *Seeder) Seed(ctx context.Context) (*Result, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	s.logger.Info().Msg("starting database seeding")

	if _, err := s.docs.ListDocuments(ctx, s.cfg.DatabaseID, s.cfg.CategoriesCollectionID); err != nil {
		s.logger.Error().Err(err).Msg("failed to connect to platform")
		return nil, fmt.Errorf("connection test failed: %w", err)
	}

	res := &Result{}

	for _, collectionID := range []string{
		s.cfg.CategoriesCollectionID,
		s.cfg.CustomizationsCollectionID,
		s.cfg.MenuCollectionID,
		s.cfg.MenuCustomizationsCollectionID,
	} {
		res.DeletedDocuments += s.clearCollection(ctx, collectionID)
	}
	res.DeletedFiles = s.clearStorage(ctx)

	categoryIDs, err := s.createCategories(ctx, res)
	if err != nil {
		return nil, err
	}

	customizationIDs, err := s.createCustomizations(ctx, res)
	if err != nil {
		return nil, err
	}

	if err := s.createMenu(ctx, res, categoryIDs, customizationIDs); err != nil {
		return nil, err
	}

	res.Duration = time.Since(start)

	s.logger.Info().
		Int("categories", res.Categories).
		Int("customizations", res.Customizations).
		Int("menu_items", res.MenuItems).
		Int("links", res.Links).
		Int("files", res.Files).
		Dur("duration", res.Duration).
		Msg("seeding complete")

	return res, nil
}

// clearCollection deletes every document of a collection page by page and
// returns how many were deleted.
func (s *Seeder) clearCollection(ctx context.Context, collectionID string) int {
	logger := s.logger.With().Str("collection", collectionID).Logger()
	logger.Info().Msg("clearing collection")

	deleted, skipped := 0, 0
	for {
		list, err := s.docs.ListDocuments(ctx, s.cfg.DatabaseID, collectionID,
			appwrite.Limit(s.cfg.PageSize), appwrite.Offset(skipped))
		if err != nil {
			logger.Warn().Err(err).Msg("failed to list documents, skipping collection")
			return deleted
		}
		if len(list.Documents) == 0 {
			break
		}

		ids := make([]string, len(list.Documents))
		for i, doc := range list.Documents {
			ids[i] = doc.ID
		}

		n := s.deleteAll(ctx, ids, func(ctx context.Context, id string) error {
			return s.docs.DeleteDocument(ctx, s.cfg.DatabaseID, collectionID, id)
		}, logger)
		deleted += n
		skipped += len(ids) - n

		if len(ids) < s.cfg.PageSize {
			break
		}
	}

	if deleted == 0 && skipped == 0 {
		logger.Info().Msg("no documents found in collection")
	} else {
		logger.Info().Int("deleted", deleted).Int("failed", skipped).Msg("collection cleared")
	}
	return deleted
}

// clearStorage deletes every file of the bucket and returns how many were
// deleted.
func (s *Seeder) clearStorage(ctx context.Context) int {
	logger := s.logger.With().Str("bucket", s.cfg.BucketID).Logger()
	logger.Info().Msg("clearing storage bucket")

	deleted, skipped := 0, 0
	for {
		list, err := s.files.ListFiles(ctx, s.cfg.BucketID,
			appwrite.Limit(s.cfg.PageSize), appwrite.Offset(skipped))
		if err != nil {
			logger.Warn().Err(err).Msg("failed to list files, skipping storage")
			return deleted
		}
		if len(list.Files) == 0 {
			break
		}

		ids := make([]string, len(list.Files))
		for i, f := range list.Files {
			ids[i] = f.ID
		}

		n := s.deleteAll(ctx, ids, func(ctx context.Context, id string) error {
			return s.files.DeleteFile(ctx, s.cfg.BucketID, id)
		}, logger)
		deleted += n
		skipped += len(ids) - n

		if len(ids) < s.cfg.PageSize {
			break
		}
	}

	if deleted == 0 && skipped == 0 {
		logger.Info().Msg("no files found in storage bucket")
	} else {
		logger.Info().Int("deleted", deleted).Int("failed", skipped).Msg("storage cleared")
	}
	return deleted
}

// deleteAll runs del for every ID with bounded concurrency. Failures are
// logged and do not stop the others. It returns the number of successes.
func (s *Seeder) deleteAll(ctx context.Context, ids []string, del func(context.Context, string) error, logger zerolog.Logger) int {
	var (
		g       errgroup.Group
		deleted atomic.Int64
	)
	g.SetLimit(s.cfg.DeleteConcurrency)

	for _, id := range ids {
		g.Go(func() error {
			if err := del(ctx, id); err != nil {
				logger.Warn().Err(err).Str("id", id).Msg("failed to delete")
				return nil
			}
			deleted.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	return int(deleted.Load())
}

func (s *Seeder) createCategories(ctx context.Context, res *Result) (map[string]string, error) {
	ids := make(map[string]string, len(s.data.Categories))
	for _, c := range s.data.Categories {
		doc, err := s.docs.CreateDocument(ctx, s.cfg.DatabaseID, s.cfg.CategoriesCollectionID, appwrite.UniqueID(), map[string]any{
			"name":        c.Name,
			"description": c.Description,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create category %q: %w", c.Name, err)
		}
		ids[c.Name] = doc.ID
		res.Categories++
		res.record(s.cfg.CategoriesCollectionID, c.Name, doc.ID)
	}
	return ids, nil
}

func (s *Seeder) createCustomizations(ctx context.Context, res *Result) (map[string]string, error) {
	ids := make(map[string]string, len(s.data.Customizations))
	for _, c := range s.data.Customizations {
		doc, err := s.docs.CreateDocument(ctx, s.cfg.DatabaseID, s.cfg.CustomizationsCollectionID, appwrite.UniqueID(), map[string]any{
			"name":  c.Name,
			"price": c.Price,
			"type":  c.Type,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create customization %q: %w", c.Name, err)
		}
		ids[c.Name] = doc.ID
		res.Customizations++
		res.record(s.cfg.CustomizationsCollectionID, c.Name, doc.ID)
	}
	return ids, nil
}

func (s *Seeder) createMenu(ctx context.Context, res *Result, categoryIDs, customizationIDs map[string]string) error {
	for _, item := range s.data.Menu {
		imageURL, err := s.uploadImage(ctx, res, item.ImageURL)
		if err != nil {
			return fmt.Errorf("failed to upload image for %q: %w", item.Name, err)
		}

		doc, err := s.docs.CreateDocument(ctx, s.cfg.DatabaseID, s.cfg.MenuCollectionID, appwrite.UniqueID(), map[string]any{
			"name":        item.Name,
			"description": item.Description,
			"image_url":   imageURL,
			"price":       item.Price,
			"rating":      item.Rating,
			"calories":    item.Calories,
			"protein":     item.Protein,
			"categories":  categoryIDs[item.CategoryName],
		})
		if err != nil {
			return fmt.Errorf("failed to create menu item %q: %w", item.Name, err)
		}
		res.MenuItems++
		res.record(s.cfg.MenuCollectionID, item.Name, doc.ID)

		for _, name := range item.Customizations {
			link, err := s.docs.CreateDocument(ctx, s.cfg.DatabaseID, s.cfg.MenuCustomizationsCollectionID, appwrite.UniqueID(), map[string]any{
				"menu":           doc.ID,
				"customizations": customizationIDs[name],
			})
			if err != nil {
				return fmt.Errorf("failed to link %q to %q: %w", item.Name, name, err)
			}
			res.Links++
			res.record(s.cfg.MenuCustomizationsCollectionID, item.Name+"/"+name, link.ID)
		}
	}
	return nil
}

// uploadImage fetches ref, stores it in the bucket and returns its view URL.
func (s *Seeder) uploadImage(ctx context.Context, res *Result, ref string) (string, error) {
	s.logger.Debug().Str("url", ref).Msg("uploading image")

	img, err := s.images.Fetch(ctx, ref)
	if err != nil {
		return "", err
	}

	file, err := s.files.CreateFile(ctx, s.cfg.BucketID, appwrite.UniqueID(), appwrite.InputFile{
		Name:        img.Name,
		ContentType: img.ContentType,
		Data:        img.Data,
	})
	if err != nil {
		return "", fmt.Errorf("failed to store file %s: %w", img.Name, err)
	}
	res.Files++
	res.record(s.cfg.BucketID, img.Name, file.ID)

	s.logger.Debug().Str("file_id", file.ID).Str("name", img.Name).Msg("file uploaded")

	return s.files.FileViewURL(s.cfg.BucketID, file.ID), nil
}

func (r *Result) record(collectionID, name, documentID string) {
	r.Documents = append(r.Documents, model.SeededDocument{
		CollectionID: collectionID,
		Name:         name,
		DocumentID:   documentID,
	})
}
