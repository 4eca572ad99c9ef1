// pkg/connector/snowflake.go
package connector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	sf "github.com/snowflakedb/gosnowflake"
	"go.uber.org/zap"

	"github.com/David-Botos/cancelled-subs/pkg/config"
	"github.com/David-Botos/cancelled-subs/pkg/converter"
	"github.com/David-Botos/cancelled-subs/pkg/model"
)

// SnowflakeConnector implements the DatabaseConnector interface for Snowflake.
// It is only used as a source.
type SnowflakeConnector struct {
	*sqlConnector
	cfg *config.SnowflakeConfig
}

// NewSnowflakeConnector creates a new Snowflake connection
func NewSnowflakeConnector(ctx context.Context, cfg *config.SnowflakeConfig, queryTimeout time.Duration) (*SnowflakeConnector, error) {
	logger := zap.L().Named("snowflake-connector")

	// Create DSN using Snowflake's DSN builder
	sfConfig := &sf.Config{
		Account:       cfg.Account,
		User:          cfg.User,
		Password:      cfg.Password,
		Database:      cfg.Database,
		Schema:        cfg.Schema,
		Warehouse:     cfg.Warehouse,
		Role:          cfg.Role,
		Authenticator: cfg.Authenticator,
	}

	// Log connection attempt (without credentials)
	logger.Info("Connecting to Snowflake",
		zap.String("account", cfg.Account),
		zap.String("user", cfg.User),
		zap.String("database", cfg.Database),
		zap.String("schema", cfg.Schema),
		zap.String("warehouse", cfg.Warehouse),
		zap.String("role", cfg.Role))

	dsn, err := sf.DSN(sfConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to build Snowflake DSN: %w", err)
	}

	db, err := sqlx.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Snowflake connection: %w", err)
	}

	ApplyConnectionSettings(
		db,
		cfg.MaxOpenConns,
		cfg.MaxIdleConns,
		cfg.ConnMaxLifetime,
		cfg.ConnMaxIdleTime,
	)

	if err := PingWithTimeout(ctx, db, 10*time.Second); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to Snowflake: %w", err)
	}

	if cfg.QueryTimeout > 0 {
		_, err = db.ExecContext(
			ctx,
			fmt.Sprintf("ALTER SESSION SET STATEMENT_TIMEOUT_IN_SECONDS = %d",
				int(cfg.QueryTimeout.Seconds())),
		)
		if err != nil {
			logger.Warn("Failed to set statement timeout", zap.Error(err))
		}
	}

	base := newSQLConnector(db, logger, config.DriverSnowflake,
		fmt.Sprintf("%s.%s", cfg.Database, cfg.Schema), queryTimeout)
	base.qualify = func(table string) string {
		return converter.QuoteIdentifier(cfg.Database) + "." +
			converter.QuoteIdentifier(cfg.Schema) + "." +
			converter.QuoteIdentifier(table)
	}

	LogConnectionStats(logger, cfg.Database, db.DB)
	return &SnowflakeConnector{sqlConnector: base, cfg: cfg}, nil
}

// Validate verifies the Snowflake connection and that the schema is visible
func (c *SnowflakeConnector) Validate(ctx context.Context) error {
	var role, database, warehouse string
	err := c.db.QueryRowxContext(ctx, "SELECT CURRENT_ROLE(), CURRENT_DATABASE(), CURRENT_WAREHOUSE()").Scan(
		&role, &database, &warehouse)
	if err != nil {
		return fmt.Errorf("failed to verify Snowflake access: %w", err)
	}

	c.logger.Info("Connected to Snowflake",
		zap.String("role", role),
		zap.String("database", database),
		zap.String("warehouse", warehouse))

	// Verify we're connected to the correct database
	if !strings.EqualFold(database, c.cfg.Database) {
		return fmt.Errorf("connected to wrong database: %s (expected: %s)",
			database, c.cfg.Database)
	}

	var schemas int
	err = c.db.GetContext(ctx, &schemas,
		"SELECT COUNT(*) FROM information_schema.schemata WHERE schema_name = ?",
		strings.ToUpper(c.cfg.Schema))
	if err != nil {
		return fmt.Errorf("failed to verify schema %s: %w", c.cfg.Schema, err)
	}
	if schemas == 0 {
		return fmt.Errorf("schema %s not found in database %s", c.cfg.Schema, c.cfg.Database)
	}

	return nil
}

// ListTables returns the base tables of the configured schema in creation order
func (c *SnowflakeConnector) ListTables(ctx context.Context) ([]string, error) {
	var tables []string
	err := c.db.SelectContext(ctx, &tables, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = ? AND table_type = 'BASE TABLE'
		ORDER BY created
	`, strings.ToUpper(c.cfg.Schema))
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve tables from schema %s: %w", c.cfg.Schema, err)
	}
	return tables, nil
}

// TableColumns returns a table's columns in ordinal order
func (c *SnowflakeConnector) TableColumns(ctx context.Context, table string) ([]model.Column, error) {
	var info []informationSchemaColumn
	err := c.db.SelectContext(ctx, &info, `
		SELECT column_name, data_type FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ?
		ORDER BY ordinal_position
	`, strings.ToUpper(c.cfg.Schema), table)
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	if len(info) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}

	columns := make([]model.Column, len(info))
	for i, col := range info {
		columns[i] = model.Column{Name: col.Name, DataType: col.DataType}
	}
	return columns, nil
}
