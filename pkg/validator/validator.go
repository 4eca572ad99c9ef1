// Package validator implements the invariant checks run between pipeline
// stages. Checks never halt anything: each returns a Result and the caller
// decides what a failure means.
package validator

import (
	"fmt"
	"math"
	"strings"

	"github.com/David-Botos/cancelled-subs/pkg/converter"
	"github.com/David-Botos/cancelled-subs/pkg/model"
)

// ExpectedTables is the number of tables the source must expose
const ExpectedTables = 3

// Check names
const (
	NullValuesCheck    = "null_values"
	DuplicateRowsCheck = "duplicate_rows"
	TableCountCheck    = "table_count"
	ColumnCountCheck   = "column_count"
	ColumnNamesCheck   = "column_names"
	ColumnTypesCheck   = "column_types"
)

// tags prefix each failure written to the error record stream
var tags = map[string]string{
	NullValuesCheck:    "NULL",
	DuplicateRowsCheck: "DUPLICATE",
	TableCountCheck:    "TABLE",
	ColumnCountCheck:   "COLUMN",
	ColumnNamesCheck:   "COLUMN NAME",
	ColumnTypesCheck:   "COLUMN TYPE",
}

// Result is the outcome of one check
type Result struct {
	Check    string
	Category ErrorCategory
	Table    string
	Passed   bool
	Message  string
	Count    int // offending rows, tables or columns
}

// Err returns nil for a passing result, otherwise an error wrapping the
// category's sentinel
func (r Result) Err() error {
	if r.Passed {
		return nil
	}
	return fmt.Errorf("%w: %s", r.Category.Sentinel(), r.Message)
}

// Tag returns the error record prefix for the check
func (r Result) Tag() string {
	if tag, ok := tags[r.Check]; ok {
		return tag
	}
	return strings.ToUpper(r.Check)
}

func pass(check, table string, category ErrorCategory) Result {
	return Result{Check: check, Category: category, Table: table, Passed: true}
}

// CheckNulls counts rows holding at least one NULL cell
func CheckNulls(table *model.Table) Result {
	count := 0
	for _, row := range table.Rows {
		for _, v := range row {
			if isNull(v) {
				count++
				break
			}
		}
	}

	if count == 0 {
		return pass(NullValuesCheck, table.Name, ErrorCategoryNullValue)
	}
	return Result{
		Check:    NullValuesCheck,
		Category: ErrorCategoryNullValue,
		Table:    table.Name,
		Message:  fmt.Sprintf("There are null values in the %s table (%d rows)", table.Name, count),
		Count:    count,
	}
}

// CheckDuplicates compares the row count with the count of distinct rows
func CheckDuplicates(table *model.Table) Result {
	distinct := make(map[string]struct{}, table.Len())
	for _, row := range table.Rows {
		distinct[rowKey(row)] = struct{}{}
	}

	count := table.Len() - len(distinct)
	if count == 0 {
		return pass(DuplicateRowsCheck, table.Name, ErrorCategoryDuplicateRow)
	}
	return Result{
		Check:    DuplicateRowsCheck,
		Category: ErrorCategoryDuplicateRow,
		Table:    table.Name,
		Message:  fmt.Sprintf("There are duplicate values remaining in the %s table (%d rows)", table.Name, count),
		Count:    count,
	}
}

// CheckTableCount expects exactly ExpectedTables source tables
func CheckTableCount(n int) Result {
	if n == ExpectedTables {
		return pass(TableCountCheck, "", ErrorCategoryTableCount)
	}
	return Result{
		Check:    TableCountCheck,
		Category: ErrorCategoryTableCount,
		Message:  fmt.Sprintf("The wrong number of tables are present: found %d, expected %d", n, ExpectedTables),
		Count:    n,
	}
}

// CheckSchema compares the published table's columns with the merged
// table's: column count, the name sequence and the normalized type
// sequence, each order-sensitive. It always returns three results.
func CheckSchema(table string, published, merged []model.Column) []Result {
	results := make([]Result, 0, 3)

	if len(published) == len(merged) {
		results = append(results, pass(ColumnCountCheck, table, ErrorCategorySchemaMismatch))
	} else {
		results = append(results, Result{
			Check:    ColumnCountCheck,
			Category: ErrorCategorySchemaMismatch,
			Table:    table,
			Message: fmt.Sprintf("Tables are not same width, can not continue: published has %d columns, merged has %d",
				len(published), len(merged)),
			Count: absDiff(len(published), len(merged)),
		})
	}

	nameDiffs := sequenceDiffs(published, merged, func(c model.Column) string { return c.Name })
	if len(nameDiffs) == 0 {
		results = append(results, pass(ColumnNamesCheck, table, ErrorCategorySchemaMismatch))
	} else {
		results = append(results, Result{
			Check:    ColumnNamesCheck,
			Category: ErrorCategorySchemaMismatch,
			Table:    table,
			Message:  fmt.Sprintf("Column names do not match: %s", strings.Join(nameDiffs, "; ")),
			Count:    len(nameDiffs),
		})
	}

	typeDiffs := sequenceDiffs(published, merged, func(c model.Column) string {
		return converter.NormalizeType(c.DataType)
	})
	if len(typeDiffs) == 0 {
		results = append(results, pass(ColumnTypesCheck, table, ErrorCategorySchemaMismatch))
	} else {
		results = append(results, Result{
			Check:    ColumnTypesCheck,
			Category: ErrorCategorySchemaMismatch,
			Table:    table,
			Message:  fmt.Sprintf("All columns are not same type, can not continue: %s", strings.Join(typeDiffs, "; ")),
			Count:    len(typeDiffs),
		})
	}

	return results
}

// sequenceDiffs lists positions where the two sequences disagree,
// including positions present on one side only
func sequenceDiffs(published, merged []model.Column, field func(model.Column) string) []string {
	var diffs []string
	n := len(published)
	if len(merged) > n {
		n = len(merged)
	}
	for i := 0; i < n; i++ {
		var want, got string
		if i < len(published) {
			want = field(published[i])
		}
		if i < len(merged) {
			got = field(merged[i])
		}
		if want != got {
			diffs = append(diffs, fmt.Sprintf("column %d published %q merged %q", i, want, got))
		}
	}
	return diffs
}

func isNull(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(val)
	}
	return false
}

func rowKey(row []interface{}) string {
	var sb strings.Builder
	for i, v := range row {
		if i > 0 {
			sb.WriteByte(0x1f)
		}
		fmt.Fprintf(&sb, "%T:%v", v, v)
	}
	return sb.String()
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
