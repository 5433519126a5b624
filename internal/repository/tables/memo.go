// Package tables implements the create-if-absent materialization shared by every pipeline tier.
package tables

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cityvec/internal/db"
)

// Store is the subset of db.TableStore needed for memoized builds.
type Store interface {
	TableExists(ctx context.Context, name string) (bool, error)
	ReadTable(ctx context.Context, name string) (*db.Table, error)
	WriteTable(ctx context.Context, name string, t *db.Table) error
	WriteTables(ctx context.Context, writes ...db.TableWrite) error
}

// Codec maps a record type to and from its table representation.
type Codec[T any] struct {
	Encode func(records []T) *db.Table
	Decode func(t *db.Table) ([]T, error)
}

// Observer is notified of every cache outcome ("hit" or "build") per table.
type Observer interface {
	TableCache(table, result string)
}

// Memo runs get-or-build against one store.
type Memo struct {
	store    Store
	observer Observer
	logger   *zap.Logger
}

// New creates a Memo. observer may be nil.
func New(store Store, observer Observer, logger *zap.Logger) *Memo {
	return &Memo{store: store, observer: observer, logger: logger}
}

// Outcome reports how a table was obtained.
type Outcome struct {
	Table string
	Built bool
	Rows  int
}

// Get loads the named table. found is false when the table does not exist.
func Get[T any](ctx context.Context, m *Memo, name string, codec Codec[T]) (_ []T, found bool, _ error) {
	exists, err := m.store.TableExists(ctx, name)
	if err != nil {
		return nil, false, fmt.Errorf("check %s: %w", name, err)
	}
	if !exists {
		return nil, false, nil
	}

	t, err := m.store.ReadTable(ctx, name)
	if err != nil {
		return nil, false, fmt.Errorf("load %s: %w", name, err)
	}
	records, err := codec.Decode(t)
	if err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", name, err)
	}
	m.observe(name, "hit")
	m.logger.Debug("Loaded cached table", zap.String("table", name), zap.Int("rows", len(records)))
	return records, true, nil
}

// GetOrBuild loads the named table when it exists; otherwise it calls build, persists the
// result with replace semantics and returns it. A failed build persists nothing.
func GetOrBuild[T any](
	ctx context.Context, m *Memo, name string, codec Codec[T],
	build func(ctx context.Context) ([]T, error),
) ([]T, Outcome, error) {
	records, found, err := Get(ctx, m, name, codec)
	if err != nil {
		return nil, Outcome{Table: name}, err
	}
	if found {
		return records, Outcome{Table: name, Rows: len(records)}, nil
	}

	m.logger.Info("Building table", zap.String("table", name))
	records, err = build(ctx)
	if err != nil {
		return nil, Outcome{Table: name}, fmt.Errorf("build %s: %w", name, err)
	}
	if err := Put(ctx, m, name, codec, records); err != nil {
		return nil, Outcome{Table: name}, err
	}
	m.observe(name, "build")
	return records, Outcome{Table: name, Built: true, Rows: len(records)}, nil
}

// Put encodes records and replaces the named table.
func Put[T any](ctx context.Context, m *Memo, name string, codec Codec[T], records []T) error {
	if err := m.store.WriteTable(ctx, name, codec.Encode(records)); err != nil {
		return fmt.Errorf("persist %s: %w", name, err)
	}
	m.logger.Info("Persisted table", zap.String("table", name), zap.Int("rows", len(records)))
	return nil
}

// Stage encodes records for a later Commit.
func Stage[T any](name string, codec Codec[T], records []T) db.TableWrite {
	return db.TableWrite{Name: name, Table: codec.Encode(records)}
}

// Commit replaces every staged table at once. Either all of them are written or none.
func (m *Memo) Commit(ctx context.Context, writes ...db.TableWrite) error {
	names := make([]string, len(writes))
	for i, w := range writes {
		names[i] = w.Name
	}
	if err := m.store.WriteTables(ctx, writes...); err != nil {
		return fmt.Errorf("persist %v: %w", names, err)
	}
	for _, w := range writes {
		m.observe(w.Name, "build")
	}
	m.logger.Info("Persisted tables", zap.Strings("tables", names))
	return nil
}

func (m *Memo) observe(table, result string) {
	if m.observer != nil {
		m.observer.TableCache(table, result)
	}
}
