package sqldb

import (
	"strconv"

	"github.com/kailas-cloud/cityvec/internal/db"
)

// dialect captures the SQL differences between backends.
type dialect struct {
	name        string
	existsQuery string // one bind parameter: the table name; returns a count
	types       map[db.ColumnType]string
	maxParams   int
	numbered    bool // $1, $2 ... instead of ?
}

func (d dialect) placeholder(n int) string {
	if d.numbered {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

func (d dialect) columnType(t db.ColumnType) string {
	if s, ok := d.types[t]; ok {
		return s
	}
	return d.types[db.ColumnText]
}

var postgresDialect = dialect{
	name: "postgres",
	existsQuery: `SELECT count(*) FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_name = $1`,
	types: map[db.ColumnType]string{
		db.ColumnText:    "TEXT",
		db.ColumnInteger: "BIGINT",
		db.ColumnReal:    "DOUBLE PRECISION",
	},
	maxParams: 65535,
	numbered:  true,
}

var sqliteDialect = dialect{
	name:        "sqlite",
	existsQuery: `SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`,
	types: map[db.ColumnType]string{
		db.ColumnText:    "TEXT",
		db.ColumnInteger: "INTEGER",
		db.ColumnReal:    "REAL",
	},
	maxParams: 32766,
}
