// pkg/connector/connector.go
package connector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/David-Botos/cancelled-subs/pkg/converter"
	"github.com/David-Botos/cancelled-subs/pkg/model"
)

// ErrTableNotFound is returned when a named table does not exist
var ErrTableNotFound = errors.New("table not found")

// DatabaseConnector defines the interface for database connectors
type DatabaseConnector interface {
	// DB returns the underlying database connection
	DB() *sqlx.DB

	// Dialect returns the configured driver (sqlite, postgres, snowflake)
	Dialect() string

	// Name identifies the database in logs
	Name() string

	// Validate verifies the connection and permissions
	Validate(ctx context.Context) error

	// Close closes the connection and releases resources
	Close() error

	// QualifiedName returns the quoted, schema-qualified name of a table
	QualifiedName(table string) string

	// ListTables returns the user tables in catalog order
	ListTables(ctx context.Context) ([]string, error)

	// TableColumns returns a table's columns with their declared types, in order
	TableColumns(ctx context.Context, table string) ([]model.Column, error)

	// LoadTable reads a whole table into memory
	LoadTable(ctx context.Context, table string) (*model.Table, error)

	// CreateTableIfNotExists creates a table from logical column types
	CreateTableIfNotExists(ctx context.Context, table string, columns []model.Column) error

	// BatchInsert appends rows in a single transaction
	BatchInsert(ctx context.Context, table string, columns []string, valueRows [][]interface{}, batchSize int) (int64, error)

	// ExecWithTimeout executes a statement with a timeout
	ExecWithTimeout(ctx context.Context, query string, timeout time.Duration, args ...interface{}) (sql.Result, error)
}

// sqlConnector holds the behavior shared by every driver. Drivers supply
// the catalog queries and the identifier qualification.
type sqlConnector struct {
	db        *sqlx.DB
	logger    *zap.Logger
	dialect   string
	name      string
	timeout   time.Duration
	converter *converter.TypeConverter
	qualify   func(table string) string
}

func newSQLConnector(db *sqlx.DB, logger *zap.Logger, dialect, name string, timeout time.Duration) *sqlConnector {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &sqlConnector{
		db:        db,
		logger:    logger,
		dialect:   dialect,
		name:      name,
		timeout:   timeout,
		converter: converter.NewTypeConverter(logger, dialect),
		qualify:   converter.QuoteIdentifier,
	}
}

// DB returns the underlying database connection
func (c *sqlConnector) DB() *sqlx.DB {
	return c.db
}

// Dialect returns the configured driver name
func (c *sqlConnector) Dialect() string {
	return c.dialect
}

// Name identifies the database in logs
func (c *sqlConnector) Name() string {
	return c.name
}

// QualifiedName returns the quoted, schema-qualified name of a table
func (c *sqlConnector) QualifiedName(table string) string {
	return c.qualify(table)
}

// Close closes the database connection
func (c *sqlConnector) Close() error {
	c.logger.Info("Closing database connection", zap.String("database", c.name))
	LogConnectionStats(c.logger, c.name, c.db.DB)
	return c.db.Close()
}

// ExecWithTimeout executes a statement with a timeout
func (c *sqlConnector) ExecWithTimeout(
	ctx context.Context,
	query string,
	timeout time.Duration,
	args ...interface{},
) (sql.Result, error) {
	queryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.db.ExecContext(queryCtx, query, args...)
}

// LoadTable reads every row of a table. Column types are the declared
// database types as reported by the driver.
func (c *sqlConnector) LoadTable(ctx context.Context, table string) (*model.Table, error) {
	queryCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	rows, err := c.db.QueryxContext(queryCtx, "SELECT * FROM "+c.qualify(table))
	if err != nil {
		return nil, fmt.Errorf("failed to query table %s: %w", table, err)
	}
	defer rows.Close()

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to get column types for %s: %w", table, err)
	}

	columns := make([]model.Column, len(colTypes))
	for i, ct := range colTypes {
		columns[i] = model.Column{Name: ct.Name(), DataType: ct.DatabaseTypeName()}
	}

	result := model.NewTable(table, columns)
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, fmt.Errorf("failed to scan row from %s: %w", table, err)
		}
		for i, v := range values {
			// drivers may reuse byte buffers between rows
			if b, ok := v.([]byte); ok {
				values[i] = append([]byte(nil), b...)
			}
		}
		result.AppendRow(values...)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows from %s: %w", table, err)
	}

	c.logger.Debug("Loaded table",
		zap.String("database", c.name),
		zap.String("table", table),
		zap.Int("rows", result.Len()),
		zap.Int("columns", len(columns)))

	return result, nil
}

// CreateTableIfNotExists creates a table with the given logical column types
func (c *sqlConnector) CreateTableIfNotExists(ctx context.Context, table string, columns []model.Column) error {
	if len(columns) == 0 {
		return fmt.Errorf("cannot create table %s without columns", table)
	}

	createSQL := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)",
		c.qualify(table),
		strings.Join(c.converter.GenerateColumnDefinitions(columns), ",\n\t"),
	)

	if _, err := c.ExecWithTimeout(ctx, createSQL, c.timeout); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}

	c.logger.Debug("Ensured table", zap.String("database", c.name), zap.String("table", table))
	return nil
}

// BatchInsert performs a bulk insert into a table. All batches run inside one
// transaction: either every row is written or none is.
func (c *sqlConnector) BatchInsert(
	ctx context.Context,
	table string,
	columns []string,
	valueRows [][]interface{},
	batchSize int,
) (int64, error) {
	if len(valueRows) == 0 {
		return 0, nil
	}

	if batchSize <= 0 {
		batchSize = 500
	}

	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = converter.QuoteIdentifier(col)
	}
	rowPlaceholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"
	baseSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES ", c.qualify(table), strings.Join(quoted, ", "))

	txCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	tx, err := c.db.BeginTxx(txCtx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				c.logger.Error("Failed to rollback transaction", zap.Error(rbErr))
			}
		}
	}()

	var totalRowsInserted int64

	for i := 0; i < len(valueRows); i += batchSize {
		end := i + batchSize
		if end > len(valueRows) {
			end = len(valueRows)
		}
		currentBatch := valueRows[i:end]

		placeholders := make([]string, len(currentBatch))
		args := make([]interface{}, 0, len(currentBatch)*len(columns))
		for j, row := range currentBatch {
			if len(row) != len(columns) {
				err = fmt.Errorf("row %d has %d values, expected %d", i+j, len(row), len(columns))
				return 0, err
			}
			placeholders[j] = rowPlaceholder
			args = append(args, row...)
		}

		query := tx.Rebind(baseSQL + strings.Join(placeholders, ", "))

		var result sql.Result
		result, err = tx.ExecContext(txCtx, query, args...)
		if err != nil {
			err = fmt.Errorf("batch insert failed at row %d: %w", i, err)
			return 0, err
		}

		rowsAffected, raErr := result.RowsAffected()
		if raErr != nil {
			c.logger.Warn("Couldn't get rows affected", zap.Error(raErr))
			rowsAffected = int64(len(currentBatch))
		}
		totalRowsInserted += rowsAffected
	}

	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("failed to commit transaction: %w", err)
		return 0, err
	}

	c.logger.Debug("Inserted rows",
		zap.String("database", c.name),
		zap.String("table", table),
		zap.Int64("rows", totalRowsInserted))

	return totalRowsInserted, nil
}

// TableExists reports whether a table is present (case-insensitive match)
func TableExists(ctx context.Context, c DatabaseConnector, table string) (bool, error) {
	tables, err := c.ListTables(ctx)
	if err != nil {
		return false, err
	}
	for _, name := range tables {
		if strings.EqualFold(name, table) {
			return true, nil
		}
	}
	return false, nil
}

// ConnStats contains standardized connection statistics
type ConnStats struct {
	OpenConnections int
	InUse           int
	Idle            int
	MaxOpenConns    int
	WaitCount       int64
	WaitDuration    time.Duration
}

// GetConnectionStats returns connection pool statistics for logging
func GetConnectionStats(db *sql.DB) ConnStats {
	stats := db.Stats()
	return ConnStats{
		OpenConnections: stats.OpenConnections,
		InUse:           stats.InUse,
		Idle:            stats.Idle,
		MaxOpenConns:    stats.MaxOpenConnections,
		WaitCount:       stats.WaitCount,
		WaitDuration:    stats.WaitDuration,
	}
}

// LogConnectionStats logs connection pool statistics
func LogConnectionStats(logger *zap.Logger, name string, db *sql.DB) {
	stats := GetConnectionStats(db)
	logger.Debug("Connection pool stats",
		zap.String("database", name),
		zap.Int("open_connections", stats.OpenConnections),
		zap.Int("in_use", stats.InUse),
		zap.Int("idle", stats.Idle),
		zap.Int("max_open", stats.MaxOpenConns),
		zap.Int64("wait_count", stats.WaitCount),
		zap.Duration("wait_duration", stats.WaitDuration),
	)
}

// PingWithTimeout attempts to ping a database with a timeout
func PingWithTimeout(ctx context.Context, db *sqlx.DB, timeout time.Duration) error {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- db.PingContext(pingCtx)
	}()

	select {
	case err := <-errCh:
		return err
	case <-pingCtx.Done():
		return fmt.Errorf("ping timed out after %v: %w", timeout, pingCtx.Err())
	}
}

// ApplyConnectionSettings configures database connection pool settings
func ApplyConnectionSettings(db *sqlx.DB, maxOpen, maxIdle int, maxLifetime, maxIdleTime time.Duration) {
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}
	if maxIdle > 0 {
		db.SetMaxIdleConns(maxIdle)
	}
	if maxLifetime > 0 {
		db.SetConnMaxLifetime(maxLifetime)
	}
	if maxIdleTime > 0 {
		db.SetConnMaxIdleTime(maxIdleTime)
	}
}
