package cleaner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/cancelled-subs/pkg/connector"
	"github.com/David-Botos/cancelled-subs/pkg/converter"
	"github.com/David-Botos/cancelled-subs/pkg/model"
)

// OperationsTable is the audit table holding recorded cleaning operations
const OperationsTable = "cleaned_on_ingress"

var operationColumns = []model.Column{
	{Name: "run_id", DataType: converter.TypeText},
	{Name: "table_name", DataType: converter.TypeText},
	{Name: "column_name", DataType: converter.TypeText},
	{Name: "original_value", DataType: converter.TypeText},
	{Name: "new_value", DataType: converter.TypeText},
	{Name: "row_identifier", DataType: converter.TypeText},
	{Name: "cleaning_operation", DataType: converter.TypeText},
	{Name: "cleaning_reason", DataType: converter.TypeText},
	{Name: "cleaned_at", DataType: converter.TypeText},
}

// Recorder persists cleaning operations to the cleaned_on_ingress table
type Recorder struct {
	conn   connector.DatabaseConnector
	logger *zap.Logger
	now    func() time.Time
}

// NewRecorder creates a Recorder and ensures the tracking table exists
func NewRecorder(ctx context.Context, conn connector.DatabaseConnector, logger *zap.Logger) (*Recorder, error) {
	if conn == nil {
		return nil, errors.New("database connection cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	recorder := &Recorder{
		conn:   conn,
		logger: logger,
		now:    time.Now,
	}

	if err := conn.CreateTableIfNotExists(ctx, OperationsTable, operationColumns); err != nil {
		return nil, fmt.Errorf("failed to setup cleaning table: %w", err)
	}

	logger.Debug("Ensured cleaned_on_ingress table exists")
	return recorder, nil
}

// RecordCleaningOperations inserts operations into the tracking table in one
// transaction. Operations without a CleanedAt get the current time.
func (r *Recorder) RecordCleaningOperations(ctx context.Context, operations []model.CleaningOperation) (err error) {
	if len(operations) == 0 {
		return nil
	}

	db := r.conn.DB()

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				r.logger.Error("Failed to rollback transaction",
					zap.NamedError("rollback_error", rbErr),
					zap.Error(err))
			}
		}
	}()

	stmt, err := tx.PreparexContext(ctx, tx.Rebind(fmt.Sprintf(`
		INSERT INTO %s
		(run_id, table_name, column_name, original_value, new_value,
		 row_identifier, cleaning_operation, cleaning_reason, cleaned_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.conn.QualifiedName(OperationsTable))))
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	stamp := r.now().UTC()
	for _, op := range operations {
		cleanedAt := op.CleanedAt
		if cleanedAt.IsZero() {
			cleanedAt = stamp
		}

		_, err = stmt.ExecContext(ctx,
			op.RunID,
			op.TableName,
			op.ColumnName,
			toNullableString(op.OriginalValue),
			op.NewValue,
			op.RowIdentifier,
			op.Operation,
			op.Reason,
			cleanedAt.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("failed to insert cleaning operation: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.Info("Recorded cleaning operations", zap.Int("count", len(operations)))
	return nil
}

func toNullableString(v interface{}) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: converter.ToString(v), Valid: true}
}
