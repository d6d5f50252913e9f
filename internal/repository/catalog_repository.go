package repository

import (
	"context"
	"fmt"

	"food-ordering/internal/appwrite"
	"food-ordering/internal/model"

	"github.com/rs/zerolog"
)

// MaxPageSize is the largest page the platform returns per list call.
const MaxPageSize = 100

// categoryRepository implements CategoryRepository on the platform.
type categoryRepository struct {
	store        DocumentStore
	databaseID   string
	collectionID string
	logger       zerolog.Logger
}

// NewCategoryRepository creates a platform-backed category repository.
func NewCategoryRepository(store DocumentStore, databaseID, collectionID string, logger zerolog.Logger) CategoryRepository {
	return &categoryRepository{
		store:        store,
		databaseID:   databaseID,
		collectionID: collectionID,
		logger:       logger.With().Str("repository", "category").Logger(),
	}
}

// List returns every category.
func (r *categoryRepository) List(ctx context.Context) ([]model.Category, error) {
	list, err := r.store.ListDocuments(ctx, r.databaseID, r.collectionID)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to list categories")
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	categories, err := appwrite.DecodeDocuments[model.Category](list)
	if err != nil {
		return nil, err
	}

	r.logger.Debug().Int("count", len(categories)).Msg("listed categories")
	return categories, nil
}

// menuRepository implements MenuRepository on the platform.
type menuRepository struct {
	store        DocumentStore
	databaseID   string
	collectionID string
	logger       zerolog.Logger
}

// NewMenuRepository creates a platform-backed menu repository.
func NewMenuRepository(store DocumentStore, databaseID, collectionID string, logger zerolog.Logger) MenuRepository {
	return &menuRepository{
		store:        store,
		databaseID:   databaseID,
		collectionID: collectionID,
		logger:       logger.With().Str("repository", "menu").Logger(),
	}
}

// List returns menu items in a category and/or matching a name search.
func (r *menuRepository) List(ctx context.Context, filter model.GetMenuParams) ([]model.MenuItem, error) {
	queries := MenuQueries(filter)

	list, err := r.store.ListDocuments(ctx, r.databaseID, r.collectionID, queries...)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("category", filter.Category).
			Str("query", filter.Query).
			Msg("failed to list menu items")
		return nil, fmt.Errorf("failed to list menu: %w", err)
	}

	items, err := appwrite.DecodeDocuments[model.MenuItem](list)
	if err != nil {
		return nil, err
	}

	r.logger.Debug().
		Int("count", len(items)).
		Str("category", filter.Category).
		Str("query", filter.Query).
		Msg("listed menu items")

	return items, nil
}

// MenuQueries builds the list queries for a menu filter: an equality match
// on the category when set, a name search when set, and a page limit when
// positive.
func MenuQueries(filter model.GetMenuParams) []string {
	var queries []string
	if filter.Category != "" {
		queries = append(queries, appwrite.Equal("categories", filter.Category))
	}
	if filter.Query != "" {
		queries = append(queries, appwrite.Search("name", filter.Query))
	}
	if filter.Limit > 0 {
		queries = append(queries, appwrite.Limit(min(filter.Limit, MaxPageSize)))
	}
	return queries
}
