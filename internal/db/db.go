package db

import "context"

// TableStore is the relational persistence facade used by the pipeline.
// Tables are written whole: WriteTable replaces any existing table of the same name.
type TableStore interface {
	Pinger
	TableExists(ctx context.Context, name string) (bool, error)
	ReadTable(ctx context.Context, name string) (*Table, error)
	WriteTable(ctx context.Context, name string, t *Table) error
	// WriteTables replaces every named table in one transaction.
	WriteTables(ctx context.Context, writes ...TableWrite) error
	Close() error
}

// TableWrite is one table of a multi-table replace.
type TableWrite struct {
	Name  string
	Table *Table
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}
