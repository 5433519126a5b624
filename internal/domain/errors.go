package domain

import "errors"

var (
	// ErrConfiguration signals a missing or invalid model identifier or storage config.
	ErrConfiguration = errors.New("invalid configuration")
	// ErrConnection signals an unreachable storage backend.
	ErrConnection = errors.New("storage unreachable")
	// ErrIngestion signals a missing or malformed source file.
	ErrIngestion = errors.New("ingestion failed")
	// ErrBuild signals a join that produced zero or inconsistent rows.
	ErrBuild = errors.New("build failed")
	// ErrModel signals an embedding encode or search failure.
	ErrModel = errors.New("embedding model error")
	// ErrEmptyCorpus signals a query against a zero-row corpus.
	ErrEmptyCorpus = errors.New("empty corpus")
	// ErrInvalidQuery signals a malformed query request.
	ErrInvalidQuery = errors.New("invalid query")
)

// OpError tags a failure with the pipeline operation that produced it.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *OpError) Unwrap() error { return e.Err }

// WrapOp returns err tagged with op, or nil when err is nil.
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Err: err}
}
