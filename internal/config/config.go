package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Appwrite AppwriteConfig
	Database DatabaseConfig
	Logger   LoggerConfig
	Seed     SeedConfig
	S3       S3Config
}

// ServerConfig holds gateway server configuration.
type ServerConfig struct {
	Host string
	Port int
}

// AppwriteConfig holds the backend platform endpoint and the opaque
// database, bucket and collection identifiers the app reads and writes.
type AppwriteConfig struct {
	Endpoint  string
	ProjectID string
	Platform  string
	// APIKey is only needed for server-side tooling such as seeding.
	APIKey string

	DatabaseID                     string
	BucketID                       string
	UserCollectionID               string
	CategoriesCollectionID         string
	MenuCollectionID               string
	CustomizationsCollectionID     string
	MenuCustomizationsCollectionID string

	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 disables throttling
	RateBurst int
}

// DatabaseConfig holds the Postgres configuration for the seed ledger.
type DatabaseConfig struct {
	Enabled         bool
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxConnections  int
	MinConnections  int
	MaxConnLifetime int // seconds
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
}

// SeedConfig holds seeding behaviour.
type SeedConfig struct {
	MaxAttempts       int
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	ImageTimeout      time.Duration
	PlaceholderURL    string
	DeleteConcurrency int
	PageSize          int
	DataFile          string // empty means the embedded dataset
}

// S3Config holds configuration for reading seed images from s3:// URLs.
type S3Config struct {
	Enabled         bool
	Region          string
	Endpoint        string // S3-compatible endpoint, empty for AWS
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Appwrite: AppwriteConfig{
			Endpoint:                       getEnv("APPWRITE_ENDPOINT", os.Getenv("EXPO_PUBLIC_APPWRITE_ENDPOINT")),
			ProjectID:                      getEnv("APPWRITE_PROJECT_ID", os.Getenv("EXPO_PUBLIC_APPWRITE_PROJECT_ID")),
			Platform:                       getEnv("APPWRITE_PLATFORM", "com.dvsn.foodordering"),
			APIKey:                         getEnv("APPWRITE_API_KEY", ""),
			DatabaseID:                     getEnv("APPWRITE_DATABASE_ID", "6868e85f0030b31ffa38"),
			BucketID:                       getEnv("APPWRITE_BUCKET_ID", "686a1633002e683006d3"),
			UserCollectionID:               getEnv("APPWRITE_USER_COLLECTION_ID", "6868e87d0039185334e4"),
			CategoriesCollectionID:         getEnv("APPWRITE_CATEGORIES_COLLECTION_ID", "686a10e20035d5aaf174"),
			MenuCollectionID:               getEnv("APPWRITE_MENU_COLLECTION_ID", "686a12540004feab05d4"),
			CustomizationsCollectionID:     getEnv("APPWRITE_CUSTOMIZATIONS_COLLECTION_ID", "686a13a900317465b08c"),
			MenuCustomizationsCollectionID: getEnv("APPWRITE_MENU_CUSTOMIZATIONS_COLLECTION_ID", "686a14d30035392df3aa"),
			Timeout:                        getEnvAsDuration("APPWRITE_TIMEOUT", 30*time.Second),
			RateLimit:                      getEnvAsFloat("APPWRITE_RATE_LIMIT", 0),
			RateBurst:                      getEnvAsInt("APPWRITE_RATE_BURST", 10),
		},
		Database: DatabaseConfig{
			Enabled:         getEnvAsBool("LEDGER_ENABLED", false),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "foodordering"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 5),
			MinConnections:  getEnvAsInt("DB_MIN_CONNECTIONS", 1),
			MaxConnLifetime: getEnvAsInt("DB_MAX_CONN_LIFETIME", 300),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
		Seed: SeedConfig{
			MaxAttempts:       getEnvAsInt("SEED_MAX_ATTEMPTS", 3),
			BaseDelay:         getEnvAsDuration("SEED_BASE_DELAY", time.Second),
			MaxDelay:          getEnvAsDuration("SEED_MAX_DELAY", 10*time.Second),
			ImageTimeout:      getEnvAsDuration("SEED_IMAGE_TIMEOUT", 30*time.Second),
			PlaceholderURL:    getEnv("SEED_PLACEHOLDER_URL", "https://ui-avatars.com/api/?name=Food&size=200&background=random"),
			DeleteConcurrency: getEnvAsInt("SEED_DELETE_CONCURRENCY", 10),
			PageSize:          getEnvAsInt("SEED_PAGE_SIZE", 100),
			DataFile:          getEnv("SEED_DATA_FILE", ""),
		},
		S3: S3Config{
			Enabled:         getEnvAsBool("S3_ENABLED", false),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			UsePathStyle:    getEnvAsBool("S3_USE_PATH_STYLE", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if err := c.Appwrite.Validate(); err != nil {
		return err
	}

	if c.Database.Enabled {
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			return fmt.Errorf("invalid database port: %d", c.Database.Port)
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Database.MaxConnections < 1 {
			return fmt.Errorf("database max connections must be at least 1")
		}
		if c.Database.MinConnections < 1 {
			return fmt.Errorf("database min connections must be at least 1")
		}
		if c.Database.MinConnections > c.Database.MaxConnections {
			return fmt.Errorf("database min connections cannot exceed max connections")
		}
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	if err := c.Seed.Validate(); err != nil {
		return err
	}

	if c.S3.Enabled && c.S3.Region == "" {
		return fmt.Errorf("S3 region is required when S3 is enabled")
	}
	if c.S3.Enabled && (c.S3.AccessKeyID == "") != (c.S3.SecretAccessKey == "") {
		return fmt.Errorf("S3 access key ID and secret access key must be set together")
	}

	return nil
}

// Validate validates the platform configuration.
func (c *AppwriteConfig) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("appwrite endpoint is required")
	}
	u, err := url.Parse(c.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid appwrite endpoint: %s", c.Endpoint)
	}
	if c.ProjectID == "" {
		return fmt.Errorf("appwrite project ID is required")
	}

	ids := []struct {
		name  string
		value string
	}{
		{"database ID", c.DatabaseID},
		{"bucket ID", c.BucketID},
		{"user collection ID", c.UserCollectionID},
		{"categories collection ID", c.CategoriesCollectionID},
		{"menu collection ID", c.MenuCollectionID},
		{"customizations collection ID", c.CustomizationsCollectionID},
		{"menu customizations collection ID", c.MenuCustomizationsCollectionID},
	}
	for _, id := range ids {
		if id.value == "" {
			return fmt.Errorf("appwrite %s is required", id.name)
		}
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("appwrite timeout must be positive")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("appwrite rate limit cannot be negative")
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		return fmt.Errorf("appwrite rate burst must be at least 1")
	}

	return nil
}

// Validate validates the seeding configuration.
func (c *SeedConfig) Validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("seed max attempts must be at least 1")
	}
	if c.BaseDelay <= 0 {
		return fmt.Errorf("seed base delay must be positive")
	}
	if c.MaxDelay < c.BaseDelay {
		return fmt.Errorf("seed max delay cannot be less than base delay")
	}
	if c.ImageTimeout <= 0 {
		return fmt.Errorf("seed image timeout must be positive")
	}
	if c.PlaceholderURL == "" {
		return fmt.Errorf("seed placeholder URL is required")
	}
	if c.DeleteConcurrency < 1 {
		return fmt.Errorf("seed delete concurrency must be at least 1")
	}
	if c.PageSize < 1 || c.PageSize > 5000 {
		return fmt.Errorf("invalid seed page size: %d", c.PageSize)
	}
	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsFloat retrieves an environment variable as a float or returns a default value.
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration retrieves an environment variable as a duration ("30s",
// "1m") or returns a default value.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
