package model

import (
	"time"

	"github.com/google/uuid"
)

// Seed run statuses.
const (
	SeedRunRunning   = "running"
	SeedRunSucceeded = "succeeded"
	SeedRunFailed    = "failed"
)

// SeedRun is one invocation of the seeding tool, recorded in the ledger.
type SeedRun struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	Status         string     `json:"status" db:"status"`
	Attempts       int        `json:"attempts" db:"attempts"`
	Categories     int        `json:"categories" db:"categories"`
	Customizations int        `json:"customizations" db:"customizations"`
	MenuItems      int        `json:"menuItems" db:"menu_items"`
	Links          int        `json:"links" db:"links"`
	Files          int        `json:"files" db:"files"`
	Error          *string    `json:"error,omitempty" db:"error"`
	StartedAt      time.Time  `json:"startedAt" db:"started_at"`
	FinishedAt     *time.Time `json:"finishedAt,omitempty" db:"finished_at"`
}

// SeededDocument is a document or file created by a seed run.
type SeededDocument struct {
	ID           uuid.UUID `json:"-" db:"id"`
	RunID        uuid.UUID `json:"-" db:"run_id"`
	CollectionID string    `json:"collectionId" db:"collection_id"`
	Name         string    `json:"name" db:"name"`
	DocumentID   string    `json:"documentId" db:"document_id"`
}
