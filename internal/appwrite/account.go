package appwrite

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// User is a platform account.
type User struct {
	ID                string `json:"$id"`
	Name              string `json:"name"`
	Email             string `json:"email"`
	Status            bool   `json:"status"`
	EmailVerification bool   `json:"emailVerification"`
	Registration      string `json:"registration"`
}

// Session is an authenticated account session.
type Session struct {
	ID       string `json:"$id"`
	UserID   string `json:"userId"`
	Expire   string `json:"expire"`
	Provider string `json:"provider"`
	Current  bool   `json:"current"`
	// Secret is returned in the body only for server-side callers; end-user
	// clients receive it as the a_session_<project> cookie instead.
	Secret string `json:"secret"`
}

// Account wraps the account endpoints.
type Account struct {
	client *Client
}

// NewAccount creates an account service on top of c.
func NewAccount(c *Client) *Account {
	return &Account{client: c}
}

// Create registers a new account.
func (a *Account) Create(ctx context.Context, userID, email, password, name string) (*User, error) {
	payload := map[string]string{
		"userId":   userID,
		"email":    email,
		"password": password,
		"name":     name,
	}

	var user User
	if _, err := a.client.call(ctx, http.MethodPost, "/account", nil, payload, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateEmailPasswordSession signs in with email and password.
func (a *Account) CreateEmailPasswordSession(ctx context.Context, email, password string) (*Session, error) {
	payload := map[string]string{
		"email":    email,
		"password": password,
	}

	var session Session
	resp, err := a.client.call(ctx, http.MethodPost, "/account/sessions/email", nil, payload, &session)
	if err != nil {
		return nil, err
	}

	if session.Secret == "" {
		session.Secret = sessionCookie(resp, a.client.projectID)
	}
	return &session, nil
}

// Get returns the account of the current session.
func (a *Account) Get(ctx context.Context) (*User, error) {
	var user User
	if _, err := a.client.call(ctx, http.MethodGet, "/account", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteSession signs out. Pass "current" for the session in use.
func (a *Account) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := a.client.call(ctx, http.MethodDelete, "/account/sessions/"+url.PathEscape(sessionID), nil, nil, nil)
	return err
}

func sessionCookie(resp *http.Response, projectID string) string {
	if resp == nil {
		return ""
	}
	name := "a_session_" + strings.ToLower(projectID)
	for _, cookie := range resp.Cookies() {
		if cookie.Name == name {
			return cookie.Value
		}
	}
	return ""
}
