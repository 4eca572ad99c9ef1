// Package publisher appends newly seen rows to the published table
package publisher

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/David-Botos/cancelled-subs/pkg/connector"
	"github.com/David-Botos/cancelled-subs/pkg/converter"
	"github.com/David-Botos/cancelled-subs/pkg/logging"
	"github.com/David-Botos/cancelled-subs/pkg/model"
)

// KeyColumn identifies a published row
const KeyColumn = "uuid"

// ErrMissingKeyColumn is returned when a table has no uuid column
var ErrMissingKeyColumn = errors.New("table has no uuid column")

// State is what is already published
type State struct {
	Exists  bool
	Columns []model.Column
	UUIDs   map[string]struct{}
}

// Publisher appends to the published table. The table only ever grows:
// rows are never updated or deleted.
type Publisher struct {
	conn      connector.DatabaseConnector
	table     string
	batchSize int
	logger    *zap.Logger
	streams   *logging.RecordStreams
}

// New creates a Publisher for a table in the published store
func New(conn connector.DatabaseConnector, table string, batchSize int, logger *zap.Logger, streams *logging.RecordStreams) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if streams == nil {
		streams = logging.NopRecordStreams()
	}
	return &Publisher{
		conn:      conn,
		table:     table,
		batchSize: batchSize,
		logger:    logger,
		streams:   streams,
	}
}

// Table returns the published table name
func (p *Publisher) Table() string {
	return p.table
}

// Inspect returns the published columns and uuids. A missing table is not an
// error: State.Exists is false and both collections are empty.
func (p *Publisher) Inspect(ctx context.Context) (*State, error) {
	state := &State{UUIDs: make(map[string]struct{})}

	exists, err := connector.TableExists(ctx, p.conn, p.table)
	if err != nil {
		return nil, fmt.Errorf("failed to check published table %s: %w", p.table, err)
	}
	if !exists {
		p.logger.Info("Published table does not exist yet", zap.String("table", p.table))
		return state, nil
	}
	state.Exists = true

	if state.Columns, err = p.conn.TableColumns(ctx, p.table); err != nil {
		return nil, fmt.Errorf("failed to read published columns: %w", err)
	}

	published, err := p.conn.LoadTable(ctx, p.table)
	if err != nil {
		return nil, fmt.Errorf("failed to read published table: %w", err)
	}
	state.UUIDs, err = UUIDSet(published)
	if err != nil {
		return nil, err
	}

	p.logger.Info("Inspected published table",
		zap.String("table", p.table),
		zap.Int("columns", len(state.Columns)),
		zap.Int("rows", published.Len()),
		zap.Int("uuids", len(state.UUIDs)))

	return state, nil
}

// EnsureTable creates the published table with the given columns if missing
func (p *Publisher) EnsureTable(ctx context.Context, columns []model.Column) error {
	if err := p.conn.CreateTableIfNotExists(ctx, p.table, columns); err != nil {
		return fmt.Errorf("failed to create published table: %w", err)
	}
	p.logger.Info("Ensured published table", zap.String("table", p.table))
	return nil
}

// UUIDSet collects the uuid column of a table
func UUIDSet(table *model.Table) (map[string]struct{}, error) {
	idx := table.ColumnIndex(KeyColumn)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingKeyColumn, table.Name)
	}
	set := make(map[string]struct{}, table.Len())
	for _, row := range table.Rows {
		if v := row[idx]; v != nil {
			set[converter.ToString(v)] = struct{}{}
		}
	}
	return set, nil
}

// NewRows returns the merged rows whose uuid is not yet published. Within
// the merged table only the first row for a uuid is kept.
func NewRows(merged *model.Table, published map[string]struct{}) (*model.Table, error) {
	idx := merged.ColumnIndex(KeyColumn)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingKeyColumn, merged.Name)
	}

	taken := make(map[string]struct{})
	var keep []int
	for i, row := range merged.Rows {
		key := converter.ToString(row[idx])
		if _, ok := published[key]; ok {
			continue
		}
		if _, ok := taken[key]; ok {
			continue
		}
		taken[key] = struct{}{}
		keep = append(keep, i)
	}
	return merged.Select(keep), nil
}

// Append inserts the table's rows in column order within one transaction
// and writes the change record. Nothing is written for an empty table.
func (p *Publisher) Append(ctx context.Context, rows *model.Table) (int64, error) {
	if rows.Len() == 0 {
		p.streams.Change(ChangeMessage(0))
		p.logger.Info("No new rows to publish", zap.String("table", p.table))
		return 0, nil
	}

	n, err := p.conn.BatchInsert(ctx, p.table, rows.ColumnNames(), rows.Rows, p.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to append to %s: %w", p.table, err)
	}

	p.streams.Change(ChangeMessage(n))
	p.logger.Info("Published new rows",
		zap.String("table", p.table),
		zap.Int64("rows", n))
	return n, nil
}

// ChangeMessage is the change record for a run that appended n rows
func ChangeMessage(n int64) string {
	if n == 0 {
		return "No new data to upload"
	}
	return fmt.Sprintf("uploaded %d new rows of data", n)
}
