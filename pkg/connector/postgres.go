// pkg/connector/postgres.go
package connector

import (
	"context"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/David-Botos/cancelled-subs/pkg/config"
	"github.com/David-Botos/cancelled-subs/pkg/converter"
	"github.com/David-Botos/cancelled-subs/pkg/model"
)

// PostgresConnector implements the DatabaseConnector interface for PostgreSQL
type PostgresConnector struct {
	*sqlConnector
	cfg *config.PostgresConfig
}

type informationSchemaColumn struct {
	Name     string `db:"column_name"`
	DataType string `db:"data_type"`
}

// NewPostgresConnector creates and initializes a new PostgreSQL connector
func NewPostgresConnector(ctx context.Context, cfg *config.PostgresConfig, queryTimeout time.Duration) (*PostgresConnector, error) {
	logger := zap.L().Named("postgres-connector")

	// Log connection attempt
	logger.Info("Connecting to PostgreSQL",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
		zap.String("schema", cfg.Schema),
		zap.String("user", cfg.User))

	db, err := sqlx.Open("pgx", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL connection: %w", err)
	}

	// Configure connection pool
	ApplyConnectionSettings(
		db,
		cfg.MaxOpenConns,
		cfg.MaxIdleConns,
		cfg.ConnMaxLifetime,
		cfg.ConnMaxIdleTime,
	)

	// Verify connection
	if err := PingWithTimeout(ctx, db, 5*time.Second); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	// Set statement timeout if configured
	if cfg.StatementTimeout > 0 {
		_, err = db.ExecContext(
			ctx,
			fmt.Sprintf("SET statement_timeout = %d", cfg.StatementTimeout.Milliseconds()),
		)
		if err != nil {
			logger.Warn("Failed to set statement timeout", zap.Error(err))
		}
	}

	base := newSQLConnector(db, logger, config.DriverPostgres,
		fmt.Sprintf("%s@%s:%d", cfg.Database, cfg.Host, cfg.Port), queryTimeout)
	base.qualify = func(table string) string {
		return converter.QuoteIdentifier(cfg.Schema) + "." + converter.QuoteIdentifier(table)
	}

	LogConnectionStats(logger, cfg.Database, db.DB)
	return &PostgresConnector{sqlConnector: base, cfg: cfg}, nil
}

// Validate verifies the PostgreSQL connection and makes sure the schema exists
func (c *PostgresConnector) Validate(ctx context.Context) error {
	var version string
	if err := c.db.GetContext(ctx, &version, "SELECT version()"); err != nil {
		return fmt.Errorf("failed to query PostgreSQL version: %w", err)
	}
	c.logger.Info("Connected to PostgreSQL", zap.String("version", version))

	if err := c.ensureSchema(ctx); err != nil {
		return fmt.Errorf("failed to create/verify schema %s: %w", c.cfg.Schema, err)
	}

	c.logger.Info("PostgreSQL connection validated",
		zap.String("database", c.cfg.Database),
		zap.String("schema", c.cfg.Schema),
		zap.String("host", c.cfg.Host),
		zap.Int("port", c.cfg.Port))

	return nil
}

// ensureSchema creates the configured schema if it doesn't exist
func (c *PostgresConnector) ensureSchema(ctx context.Context) error {
	_, err := c.ExecWithTimeout(ctx,
		"CREATE SCHEMA IF NOT EXISTS "+converter.QuoteIdentifier(c.cfg.Schema), c.timeout)
	return err
}

// ListTables returns the base tables of the configured schema by name
func (c *PostgresConnector) ListTables(ctx context.Context) ([]string, error) {
	var tables []string
	err := c.db.SelectContext(ctx, &tables, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`, c.cfg.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables in schema %s: %w", c.cfg.Schema, err)
	}
	return tables, nil
}

// TableColumns returns a table's columns in ordinal order
func (c *PostgresConnector) TableColumns(ctx context.Context, table string) ([]model.Column, error) {
	var info []informationSchemaColumn
	err := c.db.SelectContext(ctx, &info, `
		SELECT column_name, data_type FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`, c.cfg.Schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s.%s: %w", c.cfg.Schema, table, err)
	}
	if len(info) == 0 {
		return nil, fmt.Errorf("%w: %s.%s", ErrTableNotFound, c.cfg.Schema, table)
	}

	columns := make([]model.Column, len(info))
	for i, col := range info {
		columns[i] = model.Column{Name: col.Name, DataType: col.DataType}
	}
	return columns, nil
}
