// pkg/converter/converter.go
package converter

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/David-Botos/cancelled-subs/pkg/model"
)

// Logical column types used by the pipeline's own tables
const (
	TypeText    = "TEXT"
	TypeInteger = "INTEGER"
	TypeReal    = "REAL"
	TypeNumeric = "NUMERIC"
	TypeBlob    = "BLOB"
)

// TypeConverter maps logical column types to a database dialect
type TypeConverter struct {
	logger  *zap.Logger
	dialect string
}

// NewTypeConverter creates a TypeConverter for a driver name (sqlite, postgres, snowflake)
func NewTypeConverter(logger *zap.Logger, dialect string) *TypeConverter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TypeConverter{
		logger:  logger,
		dialect: strings.ToLower(dialect),
	}
}

// Dialect returns the driver name the converter targets
func (c *TypeConverter) Dialect() string {
	return c.dialect
}

// ColumnType returns the DDL type for a logical type in this dialect
func (c *TypeConverter) ColumnType(logical string) string {
	logical = NormalizeType(logical)

	switch c.dialect {
	case "postgres":
		switch logical {
		case TypeInteger:
			return "BIGINT"
		case TypeReal:
			return "DOUBLE PRECISION"
		case TypeText:
			return "TEXT"
		case TypeBlob:
			return "BYTEA"
		}
	case "snowflake":
		switch logical {
		case TypeInteger:
			return "NUMBER(38,0)"
		case TypeReal:
			return "FLOAT"
		case TypeText:
			return "VARCHAR"
		case TypeBlob:
			return "BINARY"
		}
	default:
		return logical
	}

	c.logger.Warn("Unmapped logical type, using NUMERIC",
		zap.String("type", logical),
		zap.String("dialect", c.dialect))
	return "NUMERIC"
}

// GenerateColumnDefinitions creates column definitions for CREATE TABLE
func (c *TypeConverter) GenerateColumnDefinitions(columns []model.Column) []string {
	definitions := make([]string, 0, len(columns))
	for _, col := range columns {
		definitions = append(definitions,
			fmt.Sprintf("%s %s", QuoteIdentifier(col.Name), c.ColumnType(col.DataType)))
	}
	return definitions
}

// QuoteIdentifier quotes and escapes a table or column identifier.
// Double-quoted identifiers are understood by SQLite, PostgreSQL and Snowflake.
func QuoteIdentifier(name string) string {
	return pq.QuoteIdentifier(name)
}
