package service

import (
	"context"
	"fmt"

	"food-ordering/internal/model"
	"food-ordering/internal/repository"

	"github.com/rs/zerolog"
)

// menuService implements MenuService.
type menuService struct {
	menuRepo     repository.MenuRepository
	categoryRepo repository.CategoryRepository
	logger       zerolog.Logger
}

// NewMenuService creates a new menu service.
func NewMenuService(menuRepo repository.MenuRepository, categoryRepo repository.CategoryRepository, logger zerolog.Logger) MenuService {
	return &menuService{
		menuRepo:     menuRepo,
		categoryRepo: categoryRepo,
		logger:       logger.With().Str("service", "menu").Logger(),
	}
}

// GetMenu lists menu items matching params.
func (s *menuService) GetMenu(ctx context.Context, params *model.GetMenuParams) ([]model.MenuItem, error) {
	var filter model.GetMenuParams
	if params != nil {
		filter = *params
	}
	if filter.Limit < 0 {
		filter.Limit = 0
	}
	if filter.Limit > repository.MaxPageSize {
		filter.Limit = repository.MaxPageSize
	}

	items, err := s.menuRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error().Err(err).
			Str("category", filter.Category).
			Str("query", filter.Query).
			Msg("failed to get menu")
		return nil, fmt.Errorf("failed to get menu: %w", err)
	}

	return items, nil
}

// GetCategories lists every category.
func (s *menuService) GetCategories(ctx context.Context) ([]model.Category, error) {
	categories, err := s.categoryRepo.List(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to get categories")
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	return categories, nil
}
