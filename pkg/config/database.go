// pkg/config/database.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/snowflakedb/gosnowflake"
)

// DatabaseConfig describes one side of the pipeline (source or published store)
type DatabaseConfig struct {
	Driver string // sqlite, postgres or snowflake
	Path   string // SQLite database file

	Postgres  *PostgresConfig
	Snowflake *SnowflakeConfig

	// SQLite busy timeout
	BusyTimeout time.Duration
}

// SnowflakeConfig holds Snowflake connection parameters
type SnowflakeConfig struct {
	User          string
	Password      string
	Account       string
	Warehouse     string
	Database      string
	Schema        string // Schema holding the students/courses/jobs tables
	Role          string
	Authenticator gosnowflake.AuthType

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// Query timeout
	QueryTimeout time.Duration
}

// PostgresConfig holds PostgreSQL connection parameters
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Schema   string
	SSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// Statement timeout
	StatementTimeout time.Duration
}

// LoadDatabaseConfig loads the configuration for one pipeline side.
// prefix is "SOURCE_" or "PUBLISHED_".
func LoadDatabaseConfig(prefix string) (*DatabaseConfig, error) {
	cfg := &DatabaseConfig{
		Driver:      strings.ToLower(getEnv(prefix+"DRIVER", DriverSQLite)),
		Path:        getEnv(prefix+"DB_PATH", ""),
		BusyTimeout: time.Duration(getEnvAsInt(prefix+"BUSY_TIMEOUT_MS", 5000)) * time.Millisecond,
	}

	switch cfg.Driver {
	case DriverSQLite:
		// Path is checked by Config.Validate
	case DriverPostgres:
		pgConfig, err := LoadPostgresConfig(prefix)
		if err != nil {
			return nil, err
		}
		cfg.Postgres = pgConfig
	case DriverSnowflake:
		snowConfig, err := LoadSnowflakeConfig()
		if err != nil {
			return nil, err
		}
		cfg.Snowflake = snowConfig
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}

	return cfg, nil
}

func (c *DatabaseConfig) validate() error {
	switch c.Driver {
	case DriverSQLite:
		return nil
	case DriverPostgres:
		if c.Postgres == nil {
			return errors.New("postgreSQL configuration is required")
		}
		return nil
	case DriverSnowflake:
		if c.Snowflake == nil {
			return errors.New("snowflake configuration is required")
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedDriver, c.Driver)
	}
}

// Name returns a human readable name for logging (never includes credentials)
func (c *DatabaseConfig) Name() string {
	switch c.Driver {
	case DriverPostgres:
		if c.Postgres != nil {
			return fmt.Sprintf("%s@%s:%d", c.Postgres.Database, c.Postgres.Host, c.Postgres.Port)
		}
	case DriverSnowflake:
		if c.Snowflake != nil {
			return fmt.Sprintf("%s.%s", c.Snowflake.Database, c.Snowflake.Schema)
		}
	}
	return c.Path
}

// SQLiteDSN returns the DSN used to open the SQLite file
func (c *DatabaseConfig) SQLiteDSN() string {
	return fmt.Sprintf("%s?_pragma=busy_timeout(%d)", c.Path, c.BusyTimeout.Milliseconds())
}

// LoadSnowflakeConfig loads Snowflake configuration from environment variables
func LoadSnowflakeConfig() (*SnowflakeConfig, error) {
	user := os.Getenv("SNOWFLAKE_USER")
	if user == "" {
		return nil, errors.New("SNOWFLAKE_USER environment variable is required")
	}

	password := os.Getenv("SNOWFLAKE_PASSWORD")
	if password == "" {
		return nil, errors.New("SNOWFLAKE_PASSWORD environment variable is required")
	}

	account := os.Getenv("SNOWFLAKE_ACCOUNT")
	if account == "" {
		return nil, errors.New("SNOWFLAKE_ACCOUNT environment variable is required")
	}

	warehouse := os.Getenv("SNOWFLAKE_WAREHOUSE")
	if warehouse == "" {
		return nil, errors.New("SNOWFLAKE_WAREHOUSE environment variable is required")
	}

	database := os.Getenv("SNOWFLAKE_DATABASE")
	if database == "" {
		return nil, errors.New("SNOWFLAKE_DATABASE environment variable is required")
	}

	cfg := &SnowflakeConfig{
		User:          user,
		Password:      password,
		Account:       account,
		Warehouse:     warehouse,
		Database:      database,
		Schema:        getEnv("SNOWFLAKE_SCHEMA", "PUBLIC"),
		Role:          getEnv("SNOWFLAKE_ROLE", ""),
		Authenticator: parseAuthenticator(getEnv("SNOWFLAKE_AUTHENTICATOR", "snowflake")),

		MaxOpenConns:    getEnvAsInt("SNOWFLAKE_MAX_OPEN_CONNS", 2),
		MaxIdleConns:    getEnvAsInt("SNOWFLAKE_MAX_IDLE_CONNS", 1),
		ConnMaxLifetime: time.Duration(getEnvAsInt("SNOWFLAKE_CONN_MAX_LIFETIME_SECONDS", 600)) * time.Second,
		ConnMaxIdleTime: time.Duration(getEnvAsInt("SNOWFLAKE_CONN_MAX_IDLE_TIME_SECONDS", 300)) * time.Second,
		QueryTimeout:    time.Duration(getEnvAsInt("SNOWFLAKE_QUERY_TIMEOUT_SECONDS", 300)) * time.Second,
	}

	return cfg, nil
}

func parseAuthenticator(name string) gosnowflake.AuthType {
	switch strings.ToLower(name) {
	case "oauth":
		return gosnowflake.AuthTypeOAuth
	case "externalbrowser":
		return gosnowflake.AuthTypeExternalBrowser
	case "username_password_mfa":
		return gosnowflake.AuthTypeUsernamePasswordMFA
	case "jwt":
		return gosnowflake.AuthTypeJwt
	case "token":
		return gosnowflake.AuthTypeTokenAccessor
	case "okta":
		return gosnowflake.AuthTypeOkta
	default:
		return gosnowflake.AuthTypeSnowflake
	}
}

// LoadPostgresConfig loads PostgreSQL configuration for one pipeline side,
// e.g. PUBLISHED_POSTGRES_HOST
func LoadPostgresConfig(prefix string) (*PostgresConfig, error) {
	p := prefix + "POSTGRES_"

	user := os.Getenv(p + "USER")
	if user == "" {
		return nil, fmt.Errorf("%sUSER environment variable is required", p)
	}

	password := os.Getenv(p + "PASSWORD")
	if password == "" {
		return nil, fmt.Errorf("%sPASSWORD environment variable is required", p)
	}

	database := os.Getenv(p + "DB")
	if database == "" {
		return nil, fmt.Errorf("%sDB environment variable is required", p)
	}

	cfg := &PostgresConfig{
		Host:     getEnv(p+"HOST", "localhost"),
		Port:     getEnvAsInt(p+"PORT", 5432),
		User:     user,
		Password: password,
		Database: database,
		Schema:   getEnv(p+"SCHEMA", "public"),
		SSLMode:  getEnv(p+"SSLMODE", "disable"),

		MaxOpenConns:     getEnvAsInt(p+"MAX_OPEN_CONNS", 4),
		MaxIdleConns:     getEnvAsInt(p+"MAX_IDLE_CONNS", 2),
		ConnMaxLifetime:  time.Duration(getEnvAsInt(p+"CONN_MAX_LIFETIME_SECONDS", 1800)) * time.Second,
		ConnMaxIdleTime:  time.Duration(getEnvAsInt(p+"CONN_MAX_IDLE_TIME_SECONDS", 600)) * time.Second,
		StatementTimeout: time.Duration(getEnvAsInt(p+"STATEMENT_TIMEOUT_SECONDS", 300)) * time.Second,
	}

	return cfg, nil
}

// ConnectionString returns a formatted PostgreSQL connection string
func (c *PostgresConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Database,
		c.SSLMode,
	)
}
