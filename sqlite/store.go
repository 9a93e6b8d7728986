// Package sqlite implements the document store on SQLite. Datasets and their
// records live in two tables; record data is stored as a JSON document and
// decoded back through the dataset schema on read.
package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/asaidimu/go-docstore/core"
	"github.com/asaidimu/go-docstore/core/schema"
	"github.com/asaidimu/go-events"
	"go.uber.org/zap"
)

const ddl = `
CREATE TABLE IF NOT EXISTS datasets (
	id          TEXT PRIMARY KEY,
	owner       TEXT NOT NULL DEFAULT '',
	name        TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	schema      TEXT NOT NULL,
	created_at  TIMESTAMP NOT NULL,
	updated_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS records (
	id         TEXT PRIMARY KEY,
	owner      TEXT NOT NULL DEFAULT '',
	dataset_id TEXT NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
	data       TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_records_dataset ON records(dataset_id);
`

// dbRunner abstracts the shared methods of *sql.DB and *sql.Tx so the same
// code serves transactional and non-transactional paths.
type dbRunner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Options configures a Store.
type Options struct {
	// Registry supplies the field-type validators. Nil falls back to the
	// built-in types.
	Registry *schema.Registry
	// Logger receives operational logs. Nil disables logging.
	Logger *zap.Logger
	// LenientRecords permits record fields not covered by the dataset
	// schema instead of rejecting them.
	LenientRecords bool
	// Owner stamps every dataset and record the store creates. Filters and
	// pipelines carrying an owner scope are matched against it; an empty
	// owner leaves the store unscoped.
	Owner string
}

// Store is a SQLite-backed document store.
type Store struct {
	db        *sql.DB
	logger    *zap.Logger
	registry  *schema.Registry
	validator *core.RecordValidator
	bus       *events.TypedEventBus[core.StoreEvent]
	owner     string
}

// Open opens (creating if necessary) the database at path and applies the
// table definitions.
func Open(path string, opts *Options) (*Store, error) {
	if opts == nil {
		opts = &Options{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := opts.Registry
	if registry == nil {
		registry = schema.DefaultRegistry()
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, &StoreError{Op: "open", Err: err}
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, &StoreError{Op: "open", Err: err}
	}
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, &StoreError{Op: "migrate", Err: err}
	}

	bus, err := events.NewTypedEventBus[core.StoreEvent](events.DefaultConfig())
	if err != nil {
		db.Close()
		return nil, &StoreError{Op: "open", Err: err}
	}

	validator := core.NewRecordValidator(registry, logger)
	validator.Strict = !opts.LenientRecords

	logger.Info("document store opened", zap.String("path", path))
	return &Store{
		db:        db,
		logger:    logger,
		registry:  registry,
		validator: validator,
		bus:       bus,
		owner:     opts.Owner,
	}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Registry returns the field-type registry the store validates with.
func (s *Store) Registry() *schema.Registry {
	return s.registry
}

// Subscribe registers a callback for a store event type and returns an
// unsubscribe function.
func (s *Store) Subscribe(event core.StoreEventType, cb core.CallbackFunction) func() {
	return s.bus.Subscribe(string(event), cb)
}

func (s *Store) emit(event core.StoreEvent) {
	if s.bus != nil {
		s.bus.Emit(string(event.Type), event)
	}
}

// withEvents brackets an operation with start and success or failed events.
func (s *Store) withEvents(
	operation, dataset string,
	startType, successType, failedType core.StoreEventType,
	input any,
	fn func() (any, error),
) (any, error) {
	start := time.Now()
	s.emit(core.NewStoreEvent(startType, operation, dataset, input, nil, nil, time.Time{}))

	result, err := fn()
	if err != nil {
		s.emit(core.NewStoreEvent(failedType, operation, dataset, input, nil, err, start))
		return nil, err
	}

	s.emit(core.NewStoreEvent(successType, operation, dataset, input, result, nil, start))
	return result, nil
}
