package repository

import (
	"context"
	"fmt"

	"food-ordering/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// LedgerSchema creates the seed ledger tables.
const LedgerSchema = `
	CREATE TABLE IF NOT EXISTS seed_runs (
		id UUID PRIMARY KEY,
		status TEXT NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 0,
		categories INTEGER NOT NULL DEFAULT 0,
		customizations INTEGER NOT NULL DEFAULT 0,
		menu_items INTEGER NOT NULL DEFAULT 0,
		links INTEGER NOT NULL DEFAULT 0,
		files INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		finished_at TIMESTAMPTZ
	);

	CREATE TABLE IF NOT EXISTS seed_documents (
		id UUID PRIMARY KEY,
		run_id UUID NOT NULL REFERENCES seed_runs(id) ON DELETE CASCADE,
		collection_id TEXT NOT NULL,
		name TEXT NOT NULL,
		document_id TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_seed_documents_run_id ON seed_documents(run_id);
`

// seedRunRepository implements SeedRunRepository using PostgreSQL.
type seedRunRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewSeedRunRepository creates a new PostgreSQL-backed seed ledger.
func NewSeedRunRepository(pool *pgxpool.Pool, logger zerolog.Logger) SeedRunRepository {
	return &seedRunRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "seed_run").Logger(),
	}
}

// EnsureSchema creates the ledger tables if they do not exist.
func (r *seedRunRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, LedgerSchema); err != nil {
		r.logger.Error().Err(err).Msg("failed to create ledger schema")
		return fmt.Errorf("failed to create ledger schema: %w", err)
	}
	return nil
}

// StartRun inserts a run in the running state.
func (r *seedRunRepository) StartRun(ctx context.Context, run *model.SeedRun) error {
	query := `
		INSERT INTO seed_runs (id, status, attempts, started_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.pool.Exec(ctx, query, run.ID, run.Status, run.Attempts, run.StartedAt)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("run_id", run.ID.String()).
			Msg("failed to start seed run")
		return fmt.Errorf("failed to start seed run: %w", err)
	}

	r.logger.Debug().Str("run_id", run.ID.String()).Msg("seed run started")
	return nil
}

// FinishRun stores the outcome of a run.
func (r *seedRunRepository) FinishRun(ctx context.Context, run *model.SeedRun) error {
	query := `
		UPDATE seed_runs
		SET status = $2, attempts = $3, categories = $4, customizations = $5,
			menu_items = $6, links = $7, files = $8, error = $9, finished_at = $10
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		run.ID,
		run.Status,
		run.Attempts,
		run.Categories,
		run.Customizations,
		run.MenuItems,
		run.Links,
		run.Files,
		run.Error,
		run.FinishedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("run_id", run.ID.String()).
			Msg("failed to finish seed run")
		return fmt.Errorf("failed to finish seed run: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("seed run %s not found", run.ID)
	}

	r.logger.Debug().
		Str("run_id", run.ID.String()).
		Str("status", run.Status).
		Msg("seed run finished")

	return nil
}

// RecordDocuments inserts every document of a run in one transaction.
func (r *seedRunRepository) RecordDocuments(ctx context.Context, runID uuid.UUID, docs []model.SeededDocument) error {
	if len(docs) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	query := `
		INSERT INTO seed_documents (id, run_id, collection_id, name, document_id)
		VALUES ($1, $2, $3, $4, $5)
	`

	batch := &pgx.Batch{}
	for _, doc := range docs {
		id := doc.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		batch.Queue(query, id, runID, doc.CollectionID, doc.Name, doc.DocumentID)
	}

	results := tx.SendBatch(ctx, batch)
	for i := 0; i < len(docs); i++ {
		if _, err := results.Exec(); err != nil {
			results.Close()
			r.logger.Error().
				Err(err).
				Str("run_id", runID.String()).
				Str("document_id", docs[i].DocumentID).
				Msg("failed to record seeded document")
			return fmt.Errorf("failed to record seeded document: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.Error().Err(err).Msg("failed to commit transaction")
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.Debug().
		Str("run_id", runID.String()).
		Int("count", len(docs)).
		Msg("seeded documents recorded")

	return nil
}

// ListRuns returns the most recent runs, newest first.
func (r *seedRunRepository) ListRuns(ctx context.Context, limit int) ([]model.SeedRun, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT id, status, attempts, categories, customizations, menu_items,
			links, files, error, started_at, finished_at
		FROM seed_runs
		ORDER BY started_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query seed runs")
		return nil, fmt.Errorf("failed to query seed runs: %w", err)
	}
	defer rows.Close()

	var runs []model.SeedRun
	for rows.Next() {
		var run model.SeedRun
		err := rows.Scan(
			&run.ID,
			&run.Status,
			&run.Attempts,
			&run.Categories,
			&run.Customizations,
			&run.MenuItems,
			&run.Links,
			&run.Files,
			&run.Error,
			&run.StartedAt,
			&run.FinishedAt,
		)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan seed run row")
			return nil, fmt.Errorf("failed to scan seed run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating seed run rows")
		return nil, fmt.Errorf("error iterating seed runs: %w", err)
	}

	return runs, nil
}

// GetDocuments returns the documents recorded for a run.
func (r *seedRunRepository) GetDocuments(ctx context.Context, runID uuid.UUID) ([]model.SeededDocument, error) {
	query := `
		SELECT id, run_id, collection_id, name, document_id
		FROM seed_documents
		WHERE run_id = $1
		ORDER BY collection_id, name
	`

	rows, err := r.pool.Query(ctx, query, runID)
	if err != nil {
		r.logger.Error().Err(err).Str("run_id", runID.String()).Msg("failed to query seeded documents")
		return nil, fmt.Errorf("failed to query seeded documents: %w", err)
	}
	defer rows.Close()

	var docs []model.SeededDocument
	for rows.Next() {
		var doc model.SeededDocument
		if err := rows.Scan(&doc.ID, &doc.RunID, &doc.CollectionID, &doc.Name, &doc.DocumentID); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan seeded document row")
			return nil, fmt.Errorf("failed to scan seeded document: %w", err)
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating seeded documents: %w", err)
	}

	return docs, nil
}
