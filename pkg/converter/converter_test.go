package converter

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/David-Botos/cancelled-subs/pkg/model"
)

func TestNormalizeType(t *testing.T) {
	tests := []struct {
		declared string
		want     string
	}{
		{"INTEGER", TypeInteger},
		{"bigint", TypeInteger},
		{"NUMBER(38,0)", TypeInteger},
		{"TEXT", TypeText},
		{"character varying", TypeText},
		{"VARCHAR(16777216)", TypeText},
		{"REAL", TypeReal},
		{"double precision", TypeReal},
		{"FLOAT", TypeReal},
		{"NUMBER(10,2)", TypeNumeric},
		{"DATE", TypeNumeric},
		{"", TypeBlob},
	}

	for _, tt := range tests {
		t.Run(tt.declared, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeType(tt.declared))
		})
	}
}

func TestColumnType_Dialects(t *testing.T) {
	sqlite := NewTypeConverter(nil, "sqlite")
	pg := NewTypeConverter(nil, "postgres")
	sf := NewTypeConverter(nil, "snowflake")

	assert.Equal(t, "INTEGER", sqlite.ColumnType(TypeInteger))
	assert.Equal(t, "BIGINT", pg.ColumnType(TypeInteger))
	assert.Equal(t, "DOUBLE PRECISION", pg.ColumnType(TypeReal))
	assert.Equal(t, "NUMBER(38,0)", sf.ColumnType(TypeInteger))

	// Round trip: a generated type normalizes back to its logical class
	for _, logical := range []string{TypeInteger, TypeReal, TypeText} {
		assert.Equal(t, logical, NormalizeType(pg.ColumnType(logical)))
		assert.Equal(t, logical, NormalizeType(sf.ColumnType(logical)))
	}
}

func TestGenerateColumnDefinitions(t *testing.T) {
	c := NewTypeConverter(nil, "postgres")
	defs := c.GenerateColumnDefinitions([]model.Column{
		{Name: "uuid", DataType: TypeText},
		{Name: "avg_salary", DataType: TypeReal},
	})
	assert.Equal(t, []string{`"uuid" TEXT`, `"avg_salary" DOUBLE PRECISION`}, defs)
}

func TestToNullFloat(t *testing.T) {
	tests := []struct {
		name      string
		in        interface{}
		wantValid bool
		want      float64
		wantErr   bool
	}{
		{"nil", nil, false, 0, false},
		{"empty string", "", false, 0, false},
		{"nan string", "NaN", false, 0, false},
		{"int64", int64(3), true, 3, false},
		{"float", 2.5, true, 2.5, false},
		{"numeric string", " 7 ", true, 7, false},
		{"bytes", []byte("1.5"), true, 1.5, false},
		{"garbage", "abc", false, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToNullFloat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, got.Valid)
			assert.Equal(t, tt.want, got.Float64)
		})
	}
}

func TestToInt(t *testing.T) {
	v, err := ToInt(4.0)
	require.NoError(t, err)
	assert.Equal(t, int64(4), v)

	v, err = ToInt("12")
	require.NoError(t, err)
	assert.Equal(t, int64(12), v)

	v, err = ToInt("12.0")
	require.NoError(t, err)
	assert.Equal(t, int64(12), v)

	_, err = ToInt(4.5)
	assert.Error(t, err)

	_, err = ToInt(nil)
	assert.Error(t, err)
}

func TestToInt_RejectsOverflow(t *testing.T) {
	for _, v := range []interface{}{"1e20", "-1e20", 1e19, float64(math.MaxInt64), uint64(math.MaxUint64)} {
		_, err := ToInt(v)
		assert.Error(t, err, "%v", v)
	}

	v, err := ToInt("-9.0e18")
	require.NoError(t, err)
	assert.Equal(t, int64(-9e18), v)
}

func TestParseDate(t *testing.T) {
	want := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, in := range []interface{}{
		"2000-01-01",
		"2000-01-01T10:30:00Z",
		"2000-01-01 10:30:00",
		"01/01/2000",
		[]byte("2000-01-01"),
		time.Date(2000, 1, 1, 23, 59, 0, 0, time.UTC),
	} {
		got, err := ParseDate(in)
		require.NoError(t, err, "input %v", in)
		assert.True(t, want.Equal(got), "input %v parsed as %v", in, got)
	}

	_, err := ParseDate("not a date")
	assert.Error(t, err)

	_, err = ParseDate(nil)
	assert.Error(t, err)
}

func TestParseLiteralMap(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    map[string]string
		wantErr bool
	}{
		{
			name: "python literal",
			in:   "{'email':'x@y.com'}",
			want: map[string]string{"email": "x@y.com"},
		},
		{
			name: "json with address",
			in:   `{"mailing_address": "303 N Timber Key, Irondale, Wisconsin, 84736", "email": "a@b.com"}`,
			want: map[string]string{
				"mailing_address": "303 N Timber Key, Irondale, Wisconsin, 84736",
				"email":           "a@b.com",
			},
		},
		{
			name: "mixed quotes none and numbers",
			in:   `{ 'email' : "o'neil@x.com", 'phone': None, 'age': 42, 'ok': True, }`,
			want: map[string]string{"email": "o'neil@x.com", "age": "42", "ok": "True"},
		},
		{
			name: "escaped quote",
			in:   `{'note': 'it\'s fine'}`,
			want: map[string]string{"note": "it's fine"},
		},
		{
			name: "json large number keeps spelling",
			in:   `{"phone": 5551234567}`,
			want: map[string]string{"phone": "5551234567"},
		},
		{name: "empty", in: "", want: map[string]string{}},
		{name: "empty dict", in: "{}", want: map[string]string{}},
		{name: "unterminated", in: "{'email': 'x", wantErr: true},
		{name: "not a mapping", in: "['a']", wantErr: true},
		{name: "trailing junk", in: "{'a': 'b'} x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLiteralMap(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
