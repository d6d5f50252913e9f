package seed

import (
	"context"
	"fmt"
	"time"

	"food-ordering/internal/model"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

// retryPolicy waits BaseDelay, then doubles up to MaxDelay, between at
// most MaxAttempts attempts.
func (s *Seeder) retryPolicy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.BaseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = s.cfg.MaxDelay
	b.MaxElapsedTime = 0
	b.Reset()

	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(s.cfg.MaxAttempts-1)), ctx)
}

// SeedWithRetry runs Seed until it succeeds or MaxAttempts is reached and
// returns the last error on failure. An invalid dataset is rejected before
// the first attempt. Cancelling ctx stops immediately.
func (s *Seeder) SeedWithRetry(ctx context.Context) (*Result, error) {
	if err := s.validate(); err != nil {
		s.logger.Error().Err(err).Msg("refusing to seed invalid dataset")
		return nil, err
	}

	run := s.startRun(ctx)

	attempts := 0
	var res *Result

	op := func() error {
		attempts++
		s.logger.Info().
			Int("attempt", attempts).
			Int("max_attempts", s.cfg.MaxAttempts).
			Msg("seeding attempt")

		r, err := s.Seed(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(fmt.Errorf("%w: %w", ctx.Err(), err))
			}
			return err
		}
		res = r
		return nil
	}

	notify := func(err error, wait time.Duration) {
		s.logger.Warn().
			Err(err).
			Int("attempt", attempts).
			Dur("retry_in", wait).
			Msg("seeding attempt failed, retrying")
	}

	err := backoff.RetryNotify(op, s.retryPolicy(ctx), notify)
	if err != nil {
		s.logger.Error().
			Err(err).
			Int("attempts", attempts).
			Msg("all seeding attempts failed")
		s.finishRun(ctx, run, nil, attempts, err)
		return nil, fmt.Errorf("seeding failed after %d attempts: %w", attempts, err)
	}

	res.Attempts = attempts
	s.finishRun(ctx, run, res, attempts, nil)

	return res, nil
}

// startRun records a new run. Ledger failures are logged and the run
// continues unrecorded.
func (s *Seeder) startRun(ctx context.Context) *model.SeedRun {
	if s.ledger == nil {
		return nil
	}

	run := &model.SeedRun{
		ID:        uuid.New(),
		Status:    model.SeedRunRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := s.ledger.StartRun(ctx, run); err != nil {
		s.logger.Warn().Err(err).Msg("failed to record seed run")
		return nil
	}
	return run
}

func (s *Seeder) finishRun(ctx context.Context, run *model.SeedRun, res *Result, attempts int, runErr error) {
	if run == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)

	finished := time.Now().UTC()
	run.Attempts = attempts
	run.FinishedAt = &finished

	if runErr != nil {
		msg := runErr.Error()
		run.Status = model.SeedRunFailed
		run.Error = &msg
	} else {
		run.Status = model.SeedRunSucceeded
		run.Categories = res.Categories
		run.Customizations = res.Customizations
		run.MenuItems = res.MenuItems
		run.Links = res.Links
		run.Files = res.Files

		if err := s.ledger.RecordDocuments(ctx, run.ID, res.Documents); err != nil {
			s.logger.Warn().Err(err).Str("run_id", run.ID.String()).Msg("failed to record seeded documents")
		}
	}

	if err := s.ledger.FinishRun(ctx, run); err != nil {
		s.logger.Warn().Err(err).Str("run_id", run.ID.String()).Msg("failed to finish seed run")
	}
}
