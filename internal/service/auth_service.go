package service

import (
	"context"
	"fmt"
	"net/url"

	"food-ordering/internal/appwrite"
	"food-ordering/internal/model"
	"food-ordering/internal/repository"

	"github.com/rs/zerolog"
)

// avatarBaseURL renders initials avatars for new profiles.
const avatarBaseURL = "https://ui-avatars.com/api/"

// authService implements AuthService.
type authService struct {
	accounts AccountClient
	userRepo repository.UserRepository
	logger   zerolog.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(accounts AccountClient, userRepo repository.UserRepository, logger zerolog.Logger) AuthService {
	return &authService{
		accounts: accounts,
		userRepo: userRepo,
		logger:   logger.With().Str("service", "auth").Logger(),
	}
}

// AvatarURL returns the initials avatar URL for name.
func AvatarURL(name string) string {
	return avatarBaseURL + "?name=" + url.QueryEscape(name) + "&size=200&background=random"
}

// CreateUser registers an account and stores its profile document.
func (s *authService) CreateUser(ctx context.Context, params *model.CreateUserParams) (*model.User, *model.Session, error) {
	if err := params.Validate(); err != nil {
		s.logger.Warn().Err(err).Msg("invalid sign-up payload")
		return nil, nil, err
	}

	account, err := s.accounts.Create(ctx, appwrite.UniqueID(), params.Email, params.Password, params.Name)
	if err != nil {
		s.logger.Error().Err(err).Str("email", params.Email).Msg("failed to create account")
		return nil, nil, fmt.Errorf("failed to create account: %w", err)
	}
	if account == nil || account.ID == "" {
		return nil, nil, model.ErrAccountFailed
	}

	session, err := s.SignIn(ctx, &model.SignInParams{Email: params.Email, Password: params.Password})
	if err != nil {
		return nil, nil, err
	}

	if session.Secret != "" {
		ctx = appwrite.ContextWithSession(ctx, session.Secret)
	}

	user, err := s.userRepo.Create(ctx, &model.User{
		AccountID: account.ID,
		Email:     params.Email,
		Name:      params.Name,
		Avatar:    AvatarURL(params.Name),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("account_id", account.ID).Msg("failed to create user profile")
		return nil, nil, fmt.Errorf("failed to create user profile: %w", err)
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Str("account_id", account.ID).
		Msg("user signed up")

	return user, session, nil
}

// SignIn creates an email/password session.
func (s *authService) SignIn(ctx context.Context, params *model.SignInParams) (*model.Session, error) {
	if err := params.Validate(); err != nil {
		s.logger.Warn().Err(err).Msg("invalid sign-in payload")
		return nil, err
	}

	session, err := s.accounts.CreateEmailPasswordSession(ctx, params.Email, params.Password)
	if err != nil {
		s.logger.Error().Err(err).Str("email", params.Email).Msg("failed to sign in")
		return nil, fmt.Errorf("failed to sign in: %w", err)
	}

	s.logger.Debug().
		Str("session_id", session.ID).
		Str("account_id", session.UserID).
		Msg("session created")

	return &model.Session{
		ID:     session.ID,
		UserID: session.UserID,
		Expire: session.Expire,
		Secret: session.Secret,
	}, nil
}

// SignOut deletes the current session.
func (s *authService) SignOut(ctx context.Context) error {
	if err := s.accounts.DeleteSession(ctx, "current"); err != nil {
		if appwrite.IsUnauthorized(err) {
			return model.ErrUnauthorised
		}
		s.logger.Error().Err(err).Msg("failed to sign out")
		return fmt.Errorf("failed to sign out: %w", err)
	}
	return nil
}

// GetCurrentUser returns the profile of the signed-in account.
func (s *authService) GetCurrentUser(ctx context.Context) (*model.User, error) {
	account, err := s.accounts.Get(ctx)
	if err != nil {
		if appwrite.IsUnauthorized(err) {
			return nil, model.ErrUnauthorised
		}
		s.logger.Error().Err(err).Msg("failed to get current account")
		return nil, fmt.Errorf("failed to get current account: %w", err)
	}

	user, err := s.userRepo.GetByAccountID(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}

	if user == nil {
		s.logger.Debug().Str("account_id", account.ID).Msg("no profile for account")
		return nil, model.ErrUserNotFound
	}

	return user, nil
}
