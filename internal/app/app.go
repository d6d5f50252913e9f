// Package app wires the platform client, repositories and services from
// configuration. It is shared by the gateway and the command line tool.
package app

import (
	"fmt"
	"net/http"

	"food-ordering/internal/appwrite"
	"food-ordering/internal/config"
	"food-ordering/internal/handler"
	"food-ordering/internal/repository"
	"food-ordering/internal/router"
	"food-ordering/internal/service"

	"github.com/rs/zerolog"
)

// Services bundles the platform client and the application services built
// on it.
type Services struct {
	Client    *appwrite.Client
	Databases *appwrite.Databases
	Storage   *appwrite.Storage
	Auth      service.AuthService
	Menu      service.MenuService
}

// NewClient creates a platform client. When withAPIKey is false the
// configured API key is left out and calls authenticate with the session
// secret instead.
func NewClient(cfg config.AppwriteConfig, session string, withAPIKey bool, logger zerolog.Logger) (*appwrite.Client, error) {
	clientCfg := appwrite.Config{
		Endpoint:          cfg.Endpoint,
		ProjectID:         cfg.ProjectID,
		Platform:          cfg.Platform,
		Session:           session,
		Timeout:           cfg.Timeout,
		RequestsPerSecond: cfg.RateLimit,
		Burst:             cfg.RateBurst,
	}
	if withAPIKey {
		clientCfg.APIKey = cfg.APIKey
	}

	client, err := appwrite.NewClient(clientCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create platform client: %w", err)
	}
	return client, nil
}

// NewServices builds the repositories and services on top of client.
func NewServices(client *appwrite.Client, cfg config.AppwriteConfig, logger zerolog.Logger) *Services {
	databases := appwrite.NewDatabases(client)

	userRepo := repository.NewUserRepository(databases, cfg.DatabaseID, cfg.UserCollectionID, logger)
	categoryRepo := repository.NewCategoryRepository(databases, cfg.DatabaseID, cfg.CategoriesCollectionID, logger)
	menuRepo := repository.NewMenuRepository(databases, cfg.DatabaseID, cfg.MenuCollectionID, logger)

	return &Services{
		Client:    client,
		Databases: databases,
		Storage:   appwrite.NewStorage(client),
		Auth:      service.NewAuthService(appwrite.NewAccount(client), userRepo, logger),
		Menu:      service.NewMenuService(menuRepo, categoryRepo, logger),
	}
}

// NewGateway builds the HTTP handler of the gateway. The gateway never
// holds an API key: every call runs with the caller's session.
func NewGateway(cfg config.AppwriteConfig, logger zerolog.Logger) (http.Handler, error) {
	client, err := NewClient(cfg, "", false, logger)
	if err != nil {
		return nil, err
	}

	services := NewServices(client, cfg, logger)

	authHandler := handler.NewAuthHandler(services.Auth, logger)
	menuHandler := handler.NewMenuHandler(services.Menu, logger)

	return router.New(authHandler, menuHandler, logger), nil
}
