// pkg/connector/sqlite.go
package connector

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/David-Botos/cancelled-subs/pkg/config"
	"github.com/David-Botos/cancelled-subs/pkg/converter"
	"github.com/David-Botos/cancelled-subs/pkg/model"
)

// SQLiteConnector implements the DatabaseConnector interface for SQLite files
type SQLiteConnector struct {
	*sqlConnector
	cfg *config.DatabaseConfig
}

// pragmaColumn is one row of PRAGMA table_info
type pragmaColumn struct {
	CID       int            `db:"cid"`
	Name      string         `db:"name"`
	Type      string         `db:"type"`
	NotNull   int            `db:"notnull"`
	DfltValue sql.NullString `db:"dflt_value"`
	PK        int            `db:"pk"`
}

// NewSQLiteConnector opens a SQLite database file. The file is created if
// it does not exist.
func NewSQLiteConnector(ctx context.Context, cfg *config.DatabaseConfig, queryTimeout time.Duration) (*SQLiteConnector, error) {
	logger := zap.L().Named("sqlite-connector")

	logger.Info("Opening SQLite database", zap.String("path", cfg.Path))

	db, err := sqlx.Open("sqlite", cfg.SQLiteDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite connection: %w", err)
	}

	// one writer at a time
	ApplyConnectionSettings(db, 1, 1, 0, 0)

	if err := PingWithTimeout(ctx, db, 5*time.Second); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open SQLite database %s: %w", cfg.Path, err)
	}

	connector := &SQLiteConnector{
		sqlConnector: newSQLConnector(db, logger, config.DriverSQLite, cfg.Name(), queryTimeout),
		cfg:          cfg,
	}

	LogConnectionStats(logger, cfg.Path, db.DB)
	return connector, nil
}

// Validate verifies the SQLite connection
func (c *SQLiteConnector) Validate(ctx context.Context) error {
	var version string
	if err := c.db.GetContext(ctx, &version, "SELECT sqlite_version()"); err != nil {
		return fmt.Errorf("failed to query SQLite version: %w", err)
	}
	c.logger.Info("Connected to SQLite",
		zap.String("version", version),
		zap.String("path", c.cfg.Path))
	return nil
}

// ListTables returns user tables in creation order
func (c *SQLiteConnector) ListTables(ctx context.Context) ([]string, error) {
	var tables []string
	err := c.db.SelectContext(ctx, &tables,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("failed to list tables in %s: %w", c.cfg.Path, err)
	}
	return tables, nil
}

// TableColumns returns the declared columns of a table
func (c *SQLiteConnector) TableColumns(ctx context.Context, table string) ([]model.Column, error) {
	var info []pragmaColumn
	query := fmt.Sprintf("PRAGMA table_info(%s)", converter.QuoteIdentifier(table))
	if err := c.db.SelectContext(ctx, &info, query); err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	if len(info) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}

	columns := make([]model.Column, len(info))
	for i, col := range info {
		columns[i] = model.Column{Name: col.Name, DataType: col.Type}
	}
	return columns, nil
}
