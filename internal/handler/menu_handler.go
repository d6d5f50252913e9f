package handler

import (
	"net/http"
	"strconv"

	"food-ordering/internal/model"
	"food-ordering/internal/service"

	"github.com/rs/zerolog"
)

// MenuHandler handles catalogue HTTP requests.
type MenuHandler struct {
	service service.MenuService
	logger  zerolog.Logger
}

// NewMenuHandler creates a new menu handler.
func NewMenuHandler(service service.MenuService, logger zerolog.Logger) *MenuHandler {
	return &MenuHandler{
		service: service,
		logger:  logger.With().Str("handler", "menu").Logger(),
	}
}

// GetMenu handles GET /api/menu?category=&query=&limit= requests.
func (h *MenuHandler) GetMenu(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := model.GetMenuParams{
		Category: q.Get("category"),
		Query:    q.Get("query"),
	}

	if limitStr := q.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, model.ErrCodeInvalidParam, "invalid limit parameter", h.logger)
			return
		}
		params.Limit = limit
	}

	items, err := h.service.GetMenu(r.Context(), &params)
	if err != nil {
		writeServiceError(w, err, "failed to retrieve menu", h.logger)
		return
	}

	if items == nil {
		items = []model.MenuItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

// GetCategories handles GET /api/categories requests.
func (h *MenuHandler) GetCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.GetCategories(r.Context())
	if err != nil {
		writeServiceError(w, err, "failed to retrieve categories", h.logger)
		return
	}

	if categories == nil {
		categories = []model.Category{}
	}
	writeJSON(w, http.StatusOK, categories)
}
