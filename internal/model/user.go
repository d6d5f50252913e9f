package model

import (
	"net/mail"
	"strings"
)

// MinPasswordLength is the shortest password the platform accepts.
const MinPasswordLength = 8

// User is the profile document stored alongside a platform account.
type User struct {
	ID        string `json:"$id,omitempty"`
	AccountID string `json:"accountId"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Avatar    string `json:"avatar"`
}

// Session is an authenticated session.
type Session struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
	Expire string `json:"expire,omitempty"`
	Secret string `json:"secret,omitempty"`
}

// CreateUserParams represents the sign-up payload.
type CreateUserParams struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Validate checks the sign-up payload.
func (p *CreateUserParams) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return NewDomainError(ErrCodeMissingField, "Name is required")
	}
	return validateCredentials(p.Email, p.Password)
}

// SignInParams represents the sign-in payload.
type SignInParams struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the sign-in payload.
func (p *SignInParams) Validate() error {
	return validateCredentials(p.Email, p.Password)
}

func validateCredentials(email, password string) error {
	if strings.TrimSpace(email) == "" {
		return NewDomainError(ErrCodeMissingField, "Email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return ErrInvalidPassword
	}
	return nil
}
