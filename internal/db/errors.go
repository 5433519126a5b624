package db

import "errors"

// Sentinel errors for database operations.
var (
	ErrKeyNotFound     = errors.New("db: key not found")
	ErrTableNotFound   = errors.New("db: table not found")
	ErrInvalidName     = errors.New("db: invalid identifier")
	ErrInvalidTable    = errors.New("db: invalid table")
	ErrUnknownDriver   = errors.New("db: unknown driver")
	ErrUnsupportedType = errors.New("db: unsupported value type")
)

// Op constants name storage operations for error context.
const (
	OpPing        = "PING"
	OpTableExists = "TABLE_EXISTS"
	OpReadTable   = "READ_TABLE"
	OpWriteTable  = "WRITE_TABLE"
	OpGet         = "GET"
	OpSet         = "SET"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
