package service

import (
	"context"

	"food-ordering/internal/appwrite"
	"food-ordering/internal/model"
)

// AuthService defines sign-up, sign-in and profile operations.
type AuthService interface {
	// CreateUser registers an account, signs it in and stores its profile
	// document. The returned session is the one created by the sign-in.
	CreateUser(ctx context.Context, params *model.CreateUserParams) (*model.User, *model.Session, error)

	// SignIn creates an email/password session.
	SignIn(ctx context.Context, params *model.SignInParams) (*model.Session, error)

	// SignOut deletes the session carried by ctx.
	SignOut(ctx context.Context) error

	// GetCurrentUser returns the profile document of the account that owns
	// the session carried by ctx.
	GetCurrentUser(ctx context.Context) (*model.User, error)
}

// MenuService defines read access to the catalogue.
type MenuService interface {
	// GetMenu lists menu items, optionally filtered by category ID and a
	// name search.
	GetMenu(ctx context.Context, params *model.GetMenuParams) ([]model.MenuItem, error)

	// GetCategories lists every category.
	GetCategories(ctx context.Context) ([]model.Category, error)
}

// AccountClient is the subset of the platform's account API the auth
// service uses. *appwrite.Account implements it.
type AccountClient interface {
	Create(ctx context.Context, userID, email, password, name string) (*appwrite.User, error)
	CreateEmailPasswordSession(ctx context.Context, email, password string) (*appwrite.Session, error)
	Get(ctx context.Context) (*appwrite.User, error)
	DeleteSession(ctx context.Context, sessionID string) error
}
