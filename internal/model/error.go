package model

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON     = "INVALID_JSON"
	ErrCodeMissingField    = "MISSING_FIELD"
	ErrCodeInvalidParam    = "INVALID_PARAMETER"
	ErrCodeInvalidEmail    = "INVALID_EMAIL"
	ErrCodeInvalidPassword = "INVALID_PASSWORD"
	ErrCodeUserNotFound    = "USER_NOT_FOUND"
	ErrCodeAccountFailed   = "ACCOUNT_NOT_CREATED"
	ErrCodeUnauthorised    = "UNAUTHORIZED"
	ErrCodeConflict        = "CONFLICT"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeUpstream        = "UPSTREAM_ERROR"
	ErrCodeInternalError   = "INTERNAL_ERROR"
)

// Domain errors for business logic
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrInvalidEmail    = NewDomainError(ErrCodeInvalidEmail, "Email address is not valid")
	ErrInvalidPassword = NewDomainError(ErrCodeInvalidPassword, "Password must be at least 8 characters")
	ErrUserNotFound    = NewDomainError(ErrCodeUserNotFound, "No user profile exists for the current account")
	ErrAccountFailed   = NewDomainError(ErrCodeAccountFailed, "Failed to create user")
	ErrUnauthorised    = NewDomainError(ErrCodeUnauthorised, "Sign in required")
)
