package db

import (
	"fmt"
	"regexp"
	"strconv"
)

// ColumnType is the portable storage class of a column.
type ColumnType string

// Supported column types.
const (
	ColumnText    ColumnType = "text"
	ColumnInteger ColumnType = "integer"
	ColumnReal    ColumnType = "real"
)

// KeyColumn is the explicit integer key shared by the catalog and embedding tables.
// Tables carrying it are read back ordered by it.
const KeyColumn = "id"

// Column describes one table column.
type Column struct {
	Name string
	Type ColumnType
}

// Table is an in-memory relational table. Each row holds one value per column:
// string, int64, float64 (or float32) matching the column type.
type Table struct {
	Columns []Column
	Rows    [][]any
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Validate checks that every row matches the column count.
func (t *Table) Validate() error {
	if len(t.Columns) == 0 {
		return fmt.Errorf("%w: no columns", ErrInvalidTable)
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("%w: row %d has %d values, want %d", ErrInvalidTable, i, len(row), len(t.Columns))
		}
	}
	return nil
}

var tableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// ValidTableName reports whether name is a safe unquoted table identifier.
func ValidTableName(name string) bool {
	return len(name) <= 63 && tableNameRegex.MatchString(name)
}

// AsString converts a scanned value to a string.
func AsString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case []byte:
		return string(x), true
	case nil:
		return "", false
	default:
		return fmt.Sprint(x), true
	}
}

// AsInt64 converts a scanned value to an int64.
func AsInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int32:
		return int64(x), true
	case int:
		return int64(x), true
	case float64:
		return int64(x), x == float64(int64(x))
	case float32:
		return int64(x), x == float32(int64(x))
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		return n, err == nil
	case []byte:
		n, err := strconv.ParseInt(string(x), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// AsFloat64 converts a scanned value to a float64.
func AsFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case int:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	case []byte:
		f, err := strconv.ParseFloat(string(x), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
