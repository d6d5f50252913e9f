package repository

import (
	"context"

	"food-ordering/internal/appwrite"
	"food-ordering/internal/model"

	"github.com/google/uuid"
)

// DocumentStore is the subset of the platform's database API the
// repositories use. *appwrite.Databases implements it.
type DocumentStore interface {
	CreateDocument(ctx context.Context, databaseID, collectionID, documentID string, data any, permissions ...string) (*appwrite.Document, error)
	ListDocuments(ctx context.Context, databaseID, collectionID string, queries ...string) (*appwrite.DocumentList, error)
}

// UserRepository defines data access for user profile documents.
type UserRepository interface {
	// Create stores a new profile document and returns it with its ID.
	Create(ctx context.Context, user *model.User) (*model.User, error)

	// GetByAccountID returns the profile linked to a platform account.
	// Returns nil when none exists.
	GetByAccountID(ctx context.Context, accountID string) (*model.User, error)
}

// CategoryRepository defines data access for menu categories.
type CategoryRepository interface {
	// List returns every category.
	List(ctx context.Context) ([]model.Category, error)
}

// MenuRepository defines data access for menu items.
type MenuRepository interface {
	// List returns menu items matching the filter. Empty filter fields
	// are not applied.
	List(ctx context.Context, filter model.GetMenuParams) ([]model.MenuItem, error)
}

// SeedRunRepository records seeding runs and the documents they created.
type SeedRunRepository interface {
	// EnsureSchema creates the ledger tables if they do not exist.
	EnsureSchema(ctx context.Context) error

	// StartRun inserts a run in the running state.
	StartRun(ctx context.Context, run *model.SeedRun) error

	// FinishRun stores the final status, counters and error of a run.
	FinishRun(ctx context.Context, run *model.SeedRun) error

	// RecordDocuments inserts the documents created by a run in one
	// transaction.
	RecordDocuments(ctx context.Context, runID uuid.UUID, docs []model.SeededDocument) error

	// ListRuns returns the most recent runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]model.SeedRun, error)

	// GetDocuments returns the documents recorded for a run.
	GetDocuments(ctx context.Context, runID uuid.UUID) ([]model.SeededDocument, error)
}
