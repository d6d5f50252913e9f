package repository

import (
	"context"
	"fmt"

	"food-ordering/internal/appwrite"
	"food-ordering/internal/model"

	"github.com/rs/zerolog"
)

// userRepository implements UserRepository on the platform's user
// collection.
type userRepository struct {
	store        DocumentStore
	databaseID   string
	collectionID string
	logger       zerolog.Logger
}

// NewUserRepository creates a platform-backed user repository.
func NewUserRepository(store DocumentStore, databaseID, collectionID string, logger zerolog.Logger) UserRepository {
	return &userRepository{
		store:        store,
		databaseID:   databaseID,
		collectionID: collectionID,
		logger:       logger.With().Str("repository", "user").Logger(),
	}
}

// Create stores a new profile document.
func (r *userRepository) Create(ctx context.Context, user *model.User) (*model.User, error) {
	data := map[string]string{
		"accountId": user.AccountID,
		"email":     user.Email,
		"name":      user.Name,
		"avatar":    user.Avatar,
	}

	doc, err := r.store.CreateDocument(ctx, r.databaseID, r.collectionID, appwrite.UniqueID(), data)
	if err != nil {
		r.logger.Error().Err(err).Str("account_id", user.AccountID).Msg("failed to create user document")
		return nil, fmt.Errorf("failed to create user document: %w", err)
	}

	var created model.User
	if err := doc.Decode(&created); err != nil {
		return nil, fmt.Errorf("failed to decode user document: %w", err)
	}

	r.logger.Debug().
		Str("user_id", created.ID).
		Str("account_id", created.AccountID).
		Msg("user document created")

	return &created, nil
}

// GetByAccountID returns the first profile whose accountId matches.
func (r *userRepository) GetByAccountID(ctx context.Context, accountID string) (*model.User, error) {
	list, err := r.store.ListDocuments(ctx, r.databaseID, r.collectionID, appwrite.Equal("accountId", accountID))
	if err != nil {
		r.logger.Error().Err(err).Str("account_id", accountID).Msg("failed to query user documents")
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	users, err := appwrite.DecodeDocuments[model.User](list)
	if err != nil {
		return nil, err
	}

	if len(users) == 0 {
		r.logger.Debug().Str("account_id", accountID).Msg("user not found")
		return nil, nil
	}

	return &users[0], nil
}
