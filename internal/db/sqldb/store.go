// Package sqldb implements db.TableStore on top of database/sql for Postgres and SQLite.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/cityvec/internal/db"
)

// Compile-time check: Store implements db.TableStore.
var _ db.TableStore = (*Store)(nil)

// Store persists whole tables through a single *sql.DB.
type Store struct {
	db      *sql.DB
	dialect dialect
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close %s: %w", s.dialect.name, err)
	}
	return nil
}

// TableExists reports whether a table with the given name exists.
func (s *Store) TableExists(ctx context.Context, name string) (bool, error) {
	if !db.ValidTableName(name) {
		return false, &db.Error{Op: db.OpTableExists, Err: fmt.Errorf("%w: %q", db.ErrInvalidName, name)}
	}
	var n int
	if err := s.db.QueryRowContext(ctx, s.dialect.existsQuery, name).Scan(&n); err != nil {
		return false, &db.Error{Op: db.OpTableExists, Err: err}
	}
	return n > 0, nil
}

// ReadTable loads every row of a table. Tables with a db.KeyColumn are ordered by it.
func (s *Store) ReadTable(ctx context.Context, name string) (*db.Table, error) {
	exists, err := s.TableExists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, &db.Error{Op: db.OpReadTable, Err: fmt.Errorf("%w: %s", db.ErrTableNotFound, name)}
	}

	columns, err := s.columns(ctx, name)
	if err != nil {
		return nil, &db.Error{Op: db.OpReadTable, Err: err}
	}

	query := "SELECT * FROM " + quoteIdent(name)
	for _, c := range columns {
		if c.Name == db.KeyColumn {
			query += " ORDER BY " + quoteIdent(db.KeyColumn)
			break
		}
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &db.Error{Op: db.OpReadTable, Err: err}
	}
	defer rows.Close()

	t := &db.Table{Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &db.Error{Op: db.OpReadTable, Err: err}
		}
		for i, v := range values {
			values[i] = normalizeValue(v)
		}
		t.Rows = append(t.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpReadTable, Err: err}
	}
	return t, nil
}

// columns resolves the column names and storage classes of a table without reading rows.
func (s *Store) columns(ctx context.Context, name string) ([]db.Column, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT * FROM "+quoteIdent(name)+" WHERE 1=0")
	if err != nil {
		return nil, fmt.Errorf("probe columns: %w", err)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("column types: %w", err)
	}
	columns := make([]db.Column, len(types))
	for i, ct := range types {
		columns[i] = db.Column{Name: ct.Name(), Type: columnTypeFromDatabase(ct.DatabaseTypeName())}
	}
	return columns, nil
}

// WriteTable replaces the named table with t inside one transaction: either the
// whole new table is committed or the previous state is left untouched.
func (s *Store) WriteTable(ctx context.Context, name string, t *db.Table) error {
	return s.WriteTables(ctx, db.TableWrite{Name: name, Table: t})
}

// WriteTables replaces every table in writes inside a single transaction. A failure
// on any table leaves all of them in their previous state.
func (s *Store) WriteTables(ctx context.Context, writes ...db.TableWrite) (err error) {
	for _, w := range writes {
		if !db.ValidTableName(w.Name) {
			return &db.Error{Op: db.OpWriteTable, Err: fmt.Errorf("%w: %q", db.ErrInvalidName, w.Name)}
		}
		if err = w.Table.Validate(); err != nil {
			return &db.Error{Op: db.OpWriteTable, Err: fmt.Errorf("%s: %w", w.Name, err)}
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &db.Error{Op: db.OpWriteTable, Err: fmt.Errorf("begin: %w", err)}
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
			}
		}
	}()

	for _, w := range writes {
		if err = s.replace(ctx, tx, w.Name, w.Table); err != nil {
			return &db.Error{Op: db.OpWriteTable, Err: fmt.Errorf("%s: %w", w.Name, err)}
		}
	}
	if err = tx.Commit(); err != nil {
		return &db.Error{Op: db.OpWriteTable, Err: fmt.Errorf("commit: %w", err)}
	}
	return nil
}

func (s *Store) replace(ctx context.Context, tx *sql.Tx, name string, t *db.Table) error {
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(name)); err != nil {
		return fmt.Errorf("drop: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.createStatement(name, t.Columns)); err != nil {
		return fmt.Errorf("create: %w", err)
	}
	return s.insertRows(ctx, tx, name, t)
}

func (s *Store) createStatement(name string, columns []db.Column) string {
	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = quoteIdent(c.Name) + " " + s.dialect.columnType(c.Type)
	}
	return "CREATE TABLE " + quoteIdent(name) + " (" + strings.Join(defs, ", ") + ")"
}

// insertRows writes rows in multi-row INSERT chunks sized to the dialect's bind-parameter limit.
func (s *Store) insertRows(ctx context.Context, tx *sql.Tx, name string, t *db.Table) error {
	if len(t.Rows) == 0 {
		return nil
	}

	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = quoteIdent(c.Name)
	}
	prefix := "INSERT INTO " + quoteIdent(name) + " (" + strings.Join(cols, ", ") + ") VALUES "

	perChunk := s.dialect.maxParams / len(t.Columns)
	if perChunk < 1 {
		perChunk = 1
	}

	for offset := 0; offset < len(t.Rows); offset += perChunk {
		end := min(offset+perChunk, len(t.Rows))
		chunk := t.Rows[offset:end]

		var sb strings.Builder
		sb.WriteString(prefix)
		args := make([]any, 0, len(chunk)*len(t.Columns))
		for r, row := range chunk {
			if r > 0 {
				sb.WriteString(", ")
			}
			sb.WriteByte('(')
			for c, v := range row {
				if c > 0 {
					sb.WriteString(", ")
				}
				args = append(args, v)
				sb.WriteString(s.dialect.placeholder(len(args)))
			}
			sb.WriteByte(')')
		}

		if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
			return fmt.Errorf("insert rows %d-%d: %w", offset, end, err)
		}
	}
	return nil
}

// quoteIdent double-quotes an identifier; valid in both Postgres and SQLite.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// columnTypeFromDatabase maps a driver-reported type name to a storage class.
func columnTypeFromDatabase(name string) db.ColumnType {
	upper := strings.ToUpper(name)
	switch {
	case strings.Contains(upper, "INT"):
		return db.ColumnInteger
	case strings.Contains(upper, "REAL"), strings.Contains(upper, "FLOA"),
		strings.Contains(upper, "DOUB"), strings.Contains(upper, "NUMERIC"):
		return db.ColumnReal
	default:
		return db.ColumnText
	}
}

// normalizeValue collapses driver-specific scan results to string, int64, float64 or nil.
func normalizeValue(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case int16:
		return int64(x)
	case float32:
		return float64(x)
	default:
		return v
	}
}
