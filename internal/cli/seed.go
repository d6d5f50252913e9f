package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"text/tabwriter"
	"time"

	"food-ordering/internal/app"
	"food-ordering/internal/database"
	"food-ordering/internal/imagesource"
	"food-ordering/internal/repository"
	"food-ordering/internal/seed"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newSeedCmd(e *env) *cobra.Command {
	var (
		dataFile string
		attempts int
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Replace the catalogue with a dataset",
		Long: `Deletes every category, customization, menu item, menu customization
and stored image, then recreates them from a dataset. The built-in demo
dataset is used unless --data or SEED_DATA_FILE names a JSON file. Relative
image paths in a dataset file resolve against the file's directory.

Requires APPWRITE_API_KEY. When LEDGER_ENABLED is set, the run and every
document it creates are recorded in Postgres.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := e.cfg

			if cfg.Appwrite.APIKey == "" {
				return errors.New("APPWRITE_API_KEY is required for seeding")
			}

			path := dataFile
			if path == "" {
				path = cfg.Seed.DataFile
			}
			data, err := seed.LoadDataset(path)
			if err != nil {
				return err
			}

			root := "."
			if path != "" {
				root = filepath.Dir(path)
			}
			images, err := imagesource.New(ctx, cfg.Seed, cfg.S3, root, e.logger)
			if err != nil {
				return fmt.Errorf("failed to initialize image sources: %w", err)
			}

			client, err := app.NewClient(cfg.Appwrite, "", true, e.logger)
			if err != nil {
				return err
			}
			svc := app.NewServices(client, cfg.Appwrite, e.logger)

			seedCfg := seed.ConfigFrom(cfg.Appwrite, cfg.Seed)
			if attempts > 0 {
				seedCfg.MaxAttempts = attempts
			}
			seeder := seed.New(svc.Databases, svc.Storage, images, data, seedCfg, e.logger)

			if cfg.Database.Enabled {
				ledger, closeLedger, err := e.ledger(cmd)
				if err != nil {
					return err
				}
				defer closeLedger()
				seeder.WithLedger(ledger)
			}

			cmd.Printf("Seeding %d categories, %d customizations and %d menu items...\n",
				len(data.Categories), len(data.Customizations), len(data.Menu))

			res, err := seeder.SeedWithRetry(ctx)
			if err != nil {
				return err
			}

			cmd.Printf("Seeded in %s after %d attempt(s).\n", res.Duration.Round(time.Millisecond), res.Attempts)
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "  categories\t%d\n", res.Categories)
			fmt.Fprintf(w, "  customizations\t%d\n", res.Customizations)
			fmt.Fprintf(w, "  menu items\t%d\n", res.MenuItems)
			fmt.Fprintf(w, "  menu customizations\t%d\n", res.Links)
			fmt.Fprintf(w, "  images\t%d\n", res.Files)
			fmt.Fprintf(w, "  deleted documents\t%d\n", res.DeletedDocuments)
			fmt.Fprintf(w, "  deleted files\t%d\n", res.DeletedFiles)
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&dataFile, "data", "d", "", "dataset JSON file")
	cmd.Flags().IntVar(&attempts, "attempts", 0, "maximum attempts (default SEED_MAX_ATTEMPTS)")

	cmd.AddCommand(newSeedHistoryCmd(e))
	return cmd
}

func newSeedHistoryCmd(e *env) *cobra.Command {
	var (
		limit int
		runID string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded seed runs",
		Long: `Lists the most recent seed runs recorded in the ledger, or with --run
the documents created by one run. Requires LEDGER_ENABLED.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var id uuid.UUID
			if runID != "" {
				parsed, err := uuid.Parse(runID)
				if err != nil {
					return fmt.Errorf("invalid run ID %q: %w", runID, err)
				}
				id = parsed
			}

			ledger, closeLedger, err := e.ledger(cmd)
			if err != nil {
				return err
			}
			defer closeLedger()

			if runID != "" {
				docs, err := ledger.GetDocuments(cmd.Context(), id)
				if err != nil {
					return err
				}
				if len(docs) == 0 {
					cmd.Printf("No documents recorded for run %s.\n", id)
					return nil
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "COLLECTION\tNAME\tDOCUMENT")
				for _, d := range docs {
					fmt.Fprintf(w, "%s\t%s\t%s\n", d.CollectionID, d.Name, d.DocumentID)
				}
				return w.Flush()
			}

			runs, err := ledger.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				cmd.Println("No seed runs recorded.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tSTARTED\tSTATUS\tATTEMPTS\tITEMS\tERROR")
			for _, r := range runs {
				errText := ""
				if r.Error != nil {
					errText = *r.Error
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
					r.ID, r.StartedAt.Local().Format(time.DateTime), r.Status, r.Attempts, r.MenuItems, errText)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of runs to show")
	cmd.Flags().StringVar(&runID, "run", "", "show the documents of one run")
	return cmd
}

// ledger opens the seed ledger and creates its schema.
func (e *env) ledger(cmd *cobra.Command) (repository.SeedRunRepository, func(), error) {
	pool, err := database.NewPool(cmd.Context(), e.cfg.Database, e.logger)
	if err != nil {
		if errors.Is(err, database.ErrLedgerDisabled) {
			return nil, nil, fmt.Errorf("%w, set LEDGER_ENABLED=true", err)
		}
		return nil, nil, fmt.Errorf("failed to open seed ledger: %w", err)
	}

	ledger := repository.NewSeedRunRepository(pool, e.logger)
	if err := ledger.EnsureSchema(cmd.Context()); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return ledger, pool.Close, nil
}
