// pkg/model/cleaning.go
package model

import (
	"time"
)

// CleaningOperation represents a single change made while cleaning a table
type CleaningOperation struct {
	RunID         string      // Pipeline run that produced the change
	TableName     string      // Table name
	ColumnName    string      // Column that was cleaned ("*" for whole-row operations)
	OriginalValue interface{} // Original value (may be nil)
	NewValue      string      // New value after cleaning (empty for dropped rows)
	RowIdentifier string      // uuid or id of the affected row
	Operation     string      // Type of cleaning performed (e.g., "fill_default")
	Reason        string      // Reason for cleaning (e.g., "missing_career_path")
	CleanedAt     time.Time   // When the cleaning occurred (set by database)
}

// Cleaning operation kinds
const (
	OpDropRow     = "drop_row"
	OpFillDefault = "fill_default"
	OpPartialFill = "partial_fill"
	OpSentinelRow = "sentinel_row"
)
