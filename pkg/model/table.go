// pkg/model/table.go
package model

import "strings"

// Table is an in-memory copy of a relational table. Column order is preserved
// and a nil cell represents SQL NULL.
type Table struct {
	Name    string          // Table name
	Columns []Column        // Column definitions, in order
	Rows    [][]interface{} // Row values, one slice per row in column order
}

// Column represents metadata about a table column
type Column struct {
	Name     string // Column name
	DataType string // Declared type (TEXT, INTEGER, REAL, ...)
}

// NewTable creates an empty table with the given columns
func NewTable(name string, columns []Column) *Table {
	return &Table{
		Name:    name,
		Columns: columns,
		Rows:    make([][]interface{}, 0),
	}
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.Rows)
}

// ColumnIndex returns the position of a column (case-insensitive), or -1
func (t *Table) ColumnIndex(name string) int {
	normalizedName := normalizeColumnName(name)
	for i, col := range t.Columns {
		if normalizeColumnName(col.Name) == normalizedName {
			return i
		}
	}
	return -1
}

// ColumnNames returns the column names in order
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		names[i] = col.Name
	}
	return names
}

// Value returns the cell at row i for the named column.
// Returns nil when the column does not exist.
func (t *Table) Value(i int, column string) interface{} {
	idx := t.ColumnIndex(column)
	if idx < 0 || i < 0 || i >= len(t.Rows) || idx >= len(t.Rows[i]) {
		return nil
	}
	return t.Rows[i][idx]
}

// AppendRow adds a row. The caller is responsible for column order.
func (t *Table) AppendRow(values ...interface{}) {
	t.Rows = append(t.Rows, values)
}

// Select returns a new table with the same columns holding only the given rows
func (t *Table) Select(indexes []int) *Table {
	out := NewTable(t.Name, t.Columns)
	for _, i := range indexes {
		out.Rows = append(out.Rows, t.Rows[i])
	}
	return out
}

func normalizeColumnName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
