// pkg/converter/values.go
package converter

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// IsNull determines if a source value should be treated as NULL
func IsNull(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return isNullString(v)
	case []byte:
		return isNullString(string(v))
	case float64:
		return math.IsNaN(v)
	case float32:
		return math.IsNaN(float64(v))
	}
	return false
}

func isNullString(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "null", "nil", "none", "nan":
		return true
	}
	return false
}

// ToNullFloat coerces a source value to a nullable float.
// NULL-like values yield an invalid NullFloat64 and no error.
func ToNullFloat(value interface{}) (sql.NullFloat64, error) {
	if IsNull(value) {
		return sql.NullFloat64{}, nil
	}
	f, err := ToFloat(value)
	if err != nil {
		return sql.NullFloat64{}, err
	}
	return sql.NullFloat64{Float64: f, Valid: true}, nil
}

// ToNullInt coerces a source value to a nullable integer.
// NULL-like values yield an invalid NullInt64 and no error.
func ToNullInt(value interface{}) (sql.NullInt64, error) {
	if IsNull(value) {
		return sql.NullInt64{}, nil
	}
	i, err := ToInt(value)
	if err != nil {
		return sql.NullInt64{}, err
	}
	return sql.NullInt64{Int64: i, Valid: true}, nil
}

// ToString converts a value to string
func ToString(v interface{}) string {
	if v == nil {
		return ""
	}

	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// ToFloat attempts to convert a value to float64
func ToFloat(v interface{}) (float64, error) {
	if v == nil {
		return 0, errors.New("nil value")
	}

	switch val := v.(type) {
	case int:
		return float64(val), nil
	case int32:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case uint32:
		return float64(val), nil
	case uint64:
		return float64(val), nil
	case float32:
		return float64(val), nil
	case float64:
		return val, nil
	case bool:
		if val {
			return 1, nil
		}
		return 0, nil
	case string:
		cleaned := strings.TrimSpace(val)
		if cleaned == "" {
			return 0, errors.New("empty string")
		}
		return strconv.ParseFloat(cleaned, 64)
	case []byte:
		return ToFloat(string(val))
	default:
		return 0, fmt.Errorf("cannot convert %T to float", v)
	}
}

// ToInt attempts to convert a value to int64. Floats must be whole numbers.
func ToInt(v interface{}) (int64, error) {
	if v == nil {
		return 0, errors.New("nil value")
	}

	switch val := v.(type) {
	case int:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case int64:
		return val, nil
	case uint32:
		return int64(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return 0, errors.New("uint64 value overflow for int64")
		}
		return int64(val), nil
	case string, []byte:
		s := strings.TrimSpace(ToString(val))
		if s == "" {
			return 0, errors.New("empty string")
		}
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot parse %q as integer", s)
		}
		return ToInt(f)
	default:
		f, err := ToFloat(v)
		if err != nil {
			return 0, fmt.Errorf("cannot convert %T to int", v)
		}
		if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
			return 0, fmt.Errorf("%v is not a whole number", f)
		}
		// float64(math.MaxInt64) rounds up to 2^63, which is already out of range
		if f >= math.MaxInt64 || f < math.MinInt64 {
			return 0, fmt.Errorf("%v overflows int64", f)
		}
		return int64(f), nil
	}
}

// dateLayouts are tried in order by ParseDate
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"2006/01/02",
}

// ParseDate parses a calendar date, discarding any time-of-day component
func ParseDate(v interface{}) (time.Time, error) {
	if t, ok := v.(time.Time); ok {
		return truncateToDate(t), nil
	}
	if IsNull(v) {
		return time.Time{}, errors.New("empty date")
	}

	cleaned := strings.TrimSpace(ToString(v))
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return truncateToDate(t), nil
		}
	}

	return time.Time{}, fmt.Errorf("cannot parse date from '%s'", cleaned)
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
