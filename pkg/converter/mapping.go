// pkg/converter/mapping.go
package converter

import (
	"strings"

	"github.com/David-Botos/cancelled-subs/pkg/model"
)

// NormalizeType reduces a declared database type to a comparable type class.
// SQLite affinity rules are applied, which also cover the PostgreSQL and
// Snowflake spellings used by the pipeline (BIGINT, DOUBLE PRECISION, VARCHAR, ...).
func NormalizeType(declared string) string {
	t := strings.ToUpper(strings.TrimSpace(declared))

	// Snowflake reports integers as NUMBER(38,0)
	if strings.HasPrefix(t, "NUMBER") || strings.HasPrefix(t, "DECIMAL") || strings.HasPrefix(t, "NUMERIC") {
		if strings.HasSuffix(t, ",0)") || t == "NUMBER(38)" {
			return TypeInteger
		}
		return TypeNumeric
	}

	switch {
	case t == "":
		return TypeBlob
	case strings.Contains(t, "INT"):
		return TypeInteger
	case strings.Contains(t, "CHAR"), strings.Contains(t, "CLOB"), strings.Contains(t, "TEXT"), strings.Contains(t, "STRING"):
		return TypeText
	case strings.Contains(t, "BLOB"), strings.Contains(t, "BYTEA"), strings.Contains(t, "BINARY"):
		return TypeBlob
	case strings.Contains(t, "REAL"), strings.Contains(t, "FLOA"), strings.Contains(t, "DOUB"):
		return TypeReal
	default:
		return TypeNumeric
	}
}

// NormalizeColumns returns a copy of the columns with normalized types
func NormalizeColumns(columns []model.Column) []model.Column {
	out := make([]model.Column, len(columns))
	for i, col := range columns {
		out[i] = model.Column{
			Name:     col.Name,
			DataType: NormalizeType(col.DataType),
		}
	}
	return out
}
