// pkg/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported database drivers
const (
	DriverSQLite    = "sqlite"
	DriverPostgres  = "postgres"
	DriverSnowflake = "snowflake"
)

// Configuration validation errors
var (
	ErrMissingSourcePath    = errors.New("SOURCE_DB_PATH is required for the sqlite source driver")
	ErrMissingPublishedPath = errors.New("PUBLISHED_DB_PATH is required for the sqlite published driver")
	ErrUnsupportedDriver    = errors.New("unsupported database driver")
	ErrSnowflakeSink        = errors.New("snowflake cannot be used as the published store")
	ErrMissingTableName     = errors.New("PUBLISHED_TABLE cannot be empty")
	ErrInvalidBatchSize     = errors.New("INSERT_BATCH_SIZE must be positive")
	ErrInvalidQueryTimeout  = errors.New("QUERY_TIMEOUT_SECONDS must be positive")
)

// Config represents the application configuration
type Config struct {
	// Database connections
	Source    *DatabaseConfig
	Published *DatabaseConfig

	// Pipeline settings
	PublishedTable    string
	StrictValidation  bool
	RecordCleaningOps bool
	InsertBatchSize   int
	QueryTimeout      time.Duration

	// Operational record streams
	ErrorLogPath  string
	ChangeLogPath string

	// Logging
	LogLevel  string
	LogFormat string
}

// LoadConfig loads configuration from environment variables.
// A .env file in the working directory is read first when present; variables
// already set in the environment take precedence.
func LoadConfig() (*Config, error) {
	if err := LoadEnvFile(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	cfg := &Config{
		// Default values
		PublishedTable:    getEnv("PUBLISHED_TABLE", "cancelled_subs"),
		StrictValidation:  getEnvAsBool("STRICT_VALIDATION", true),
		RecordCleaningOps: getEnvAsBool("RECORD_CLEANING_OPS", true),
		InsertBatchSize:   getEnvAsInt("INSERT_BATCH_SIZE", 500),
		QueryTimeout:      time.Duration(getEnvAsInt("QUERY_TIMEOUT_SECONDS", 60)) * time.Second,
		ErrorLogPath:      getEnv("ERROR_LOG_PATH", "error.log"),
		ChangeLogPath:     getEnv("CHANGE_LOG_PATH", "change.log"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "json"),
	}

	source, err := LoadDatabaseConfig("SOURCE_")
	if err != nil {
		return nil, fmt.Errorf("failed to load source configuration: %w", err)
	}
	cfg.Source = source

	published, err := LoadDatabaseConfig("PUBLISHED_")
	if err != nil {
		return nil, fmt.Errorf("failed to load published configuration: %w", err)
	}
	cfg.Published = published

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadEnvFile reads KEY=VALUE pairs from a dotenv file into the environment
// without overriding variables that are already set
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// Validate ensures all required configuration is present and valid
func (c *Config) Validate() error {
	if c.Source == nil {
		return errors.New("source configuration is required")
	}
	if c.Published == nil {
		return errors.New("published configuration is required")
	}

	if err := c.Source.validate(); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if err := c.Published.validate(); err != nil {
		return fmt.Errorf("published: %w", err)
	}

	if c.Source.Driver == DriverSQLite && c.Source.Path == "" {
		return ErrMissingSourcePath
	}
	if c.Published.Driver == DriverSQLite && c.Published.Path == "" {
		return ErrMissingPublishedPath
	}
	if c.Published.Driver == DriverSnowflake {
		return ErrSnowflakeSink
	}

	if strings.TrimSpace(c.PublishedTable) == "" {
		return ErrMissingTableName
	}

	if c.InsertBatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.QueryTimeout <= 0 {
		return ErrInvalidQueryTimeout
	}

	return nil
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
