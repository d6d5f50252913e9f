package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"food-ordering/internal/appwrite"
	"food-ordering/internal/model"

	"github.com/rs/zerolog"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		return
	}
}

// writeError writes an error response with the given status code, code and
// message.
func writeError(w http.ResponseWriter, status int, code, message string, logger zerolog.Logger) {
	logger.Error().Str("error", message).Str("code", code).Int("status", status).Msg("handler error")
	writeJSON(w, status, model.ErrorResponse{Error: code, Message: message})
}

// writeServiceError maps a service error to a response. Domain errors keep
// their code, platform errors keep their status where the client can act
// on it, and anything else is an internal error.
func writeServiceError(w http.ResponseWriter, err error, fallback string, logger zerolog.Logger) {
	var domainErr *model.DomainError
	if errors.As(err, &domainErr) {
		writeError(w, domainStatus(domainErr.Code), domainErr.Code, domainErr.Message, logger)
		return
	}

	var apiErr *appwrite.Error
	if errors.As(err, &apiErr) {
		status, code := platformStatus(apiErr.Code)
		message := apiErr.Message
		if message == "" {
			message = fallback
		}
		writeError(w, status, code, message, logger)
		return
	}

	logger.Error().Err(err).Msg(fallback)
	writeError(w, http.StatusInternalServerError, model.ErrCodeInternalError, fallback, logger)
}

func domainStatus(code string) int {
	switch code {
	case model.ErrCodeInvalidJSON, model.ErrCodeMissingField, model.ErrCodeInvalidParam, model.ErrCodeInvalidEmail, model.ErrCodeInvalidPassword:
		return http.StatusBadRequest
	case model.ErrCodeUnauthorised:
		return http.StatusUnauthorized
	case model.ErrCodeUserNotFound, model.ErrCodeNotFound:
		return http.StatusNotFound
	case model.ErrCodeConflict:
		return http.StatusConflict
	case model.ErrCodeAccountFailed, model.ErrCodeUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func platformStatus(status int) (int, string) {
	switch status {
	case http.StatusBadRequest:
		return http.StatusBadRequest, model.ErrCodeInvalidParam
	case http.StatusUnauthorized:
		return http.StatusUnauthorized, model.ErrCodeUnauthorised
	case http.StatusNotFound:
		return http.StatusNotFound, model.ErrCodeNotFound
	case http.StatusConflict:
		return http.StatusConflict, model.ErrCodeConflict
	case http.StatusTooManyRequests:
		return http.StatusTooManyRequests, model.ErrCodeUpstream
	default:
		return http.StatusBadGateway, model.ErrCodeUpstream
	}
}
