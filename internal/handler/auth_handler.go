package handler

import (
	"encoding/json"
	"net/http"

	"food-ordering/internal/model"
	"food-ordering/internal/service"

	"github.com/rs/zerolog"
)

// SignUpResponse is returned by a successful sign-up.
type SignUpResponse struct {
	User    *model.User    `json:"user"`
	Session *model.Session `json:"session"`
}

// AuthHandler handles account HTTP requests.
type AuthHandler struct {
	service service.AuthService
	logger  zerolog.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(service service.AuthService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger.With().Str("handler", "auth").Logger(),
	}
}

// SignUp handles POST /api/auth/signup requests.
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req model.CreateUserParams
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	user, session, err := h.service.CreateUser(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err, "failed to create user", h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, SignUpResponse{User: user, Session: session})
}

// SignIn handles POST /api/auth/signin requests.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req model.SignInParams
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	session, err := h.service.SignIn(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err, "failed to sign in", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// SignOut handles DELETE /api/auth/session requests.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.service.SignOut(r.Context()); err != nil {
		writeServiceError(w, err, "failed to sign out", h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/me requests.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetCurrentUser(r.Context())
	if err != nil {
		writeServiceError(w, err, "failed to get current user", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
