// Package cli implements foodctl, the command line client for the food
// ordering backend.
package cli

import (
	"context"
	"fmt"

	"food-ordering/internal/app"
	"food-ordering/internal/config"
	"food-ordering/internal/service"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// env is shared by every command of one invocation.
type env struct {
	sessionFile string

	cfg    *config.Config
	logger zerolog.Logger
}

// NewRootCommand builds the foodctl command tree.
func NewRootCommand() *cobra.Command {
	e := &env{}

	root := &cobra.Command{
		Use:   "foodctl",
		Short: "Command line client for the food ordering backend",
		Long: `foodctl signs users in and out, browses the menu and seeds the
backend with demo data. Configuration comes from the environment and an
optional .env file in the working directory.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			e.cfg = cfg
			e.logger = config.NewLogger(cfg.Logger).With().Str("component", "foodctl").Logger()
			return nil
		},
	}

	root.PersistentFlags().StringVar(&e.sessionFile, "session-file", "",
		"session file (default $"+SessionFileEnv+" or ~/.foodctl/session.toml)")

	root.AddCommand(
		newSignUpCmd(e),
		newSignInCmd(e),
		newSignOutCmd(e),
		newMeCmd(e),
		newMenuCmd(e),
		newCategoriesCmd(e),
		newSeedCmd(e),
	)

	return root
}

// Execute runs foodctl with the process arguments.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func (e *env) sessions() (*SessionStore, error) {
	return NewSessionStore(e.sessionFile)
}

// services builds the services for an end-user call carrying secret.
func (e *env) services(secret string) (*app.Services, error) {
	client, err := app.NewClient(e.cfg.Appwrite, secret, false, e.logger)
	if err != nil {
		return nil, err
	}
	return app.NewServices(client, e.cfg.Appwrite, e.logger), nil
}

// signedIn returns the services of the stored session.
func (e *env) signedIn() (*app.Services, *StoredSession, error) {
	store, err := e.sessions()
	if err != nil {
		return nil, nil, err
	}
	stored, err := store.Load()
	if err != nil {
		return nil, nil, err
	}
	if stored == nil || stored.Secret == "" {
		return nil, nil, ErrNotSignedIn
	}
	if stored.Endpoint != e.cfg.Appwrite.Endpoint || stored.ProjectID != e.cfg.Appwrite.ProjectID {
		return nil, nil, fmt.Errorf("stored session belongs to %s (project %s), sign in again", stored.Endpoint, stored.ProjectID)
	}

	svc, err := e.services(stored.Secret)
	if err != nil {
		return nil, nil, err
	}
	return svc, stored, nil
}

// catalogue returns the menu service, authenticated with the stored
// session when there is one for the configured project.
func (e *env) catalogue() (service.MenuService, error) {
	store, err := e.sessions()
	if err != nil {
		return nil, err
	}
	stored, err := store.Load()
	if err != nil {
		return nil, err
	}

	secret := ""
	if stored != nil && stored.Endpoint == e.cfg.Appwrite.Endpoint && stored.ProjectID == e.cfg.Appwrite.ProjectID {
		secret = stored.Secret
	}

	svc, err := e.services(secret)
	if err != nil {
		return nil, err
	}
	return svc.Menu, nil
}
