package core

import "context"

// DocumentBackend executes record operations against a storage engine. The
// filter and pipeline arguments are wire documents as produced by the query
// package; the backend interprets them without re-validating.
type DocumentBackend interface {
	// Insert stores validated record data and returns the stored record.
	Insert(ctx context.Context, dataset string, data RecordData) (*Record, error)
	// Find returns the records matching the filter document, ordered and
	// bounded by opts. A nil or empty filter matches all records.
	Find(ctx context.Context, dataset string, filter Document, opts *FindOptions) ([]*Record, error)
	// Update applies the changes to every record matching the filter and
	// returns the number of records changed.
	Update(ctx context.Context, dataset string, filter Document, changes RecordData) (int64, error)
	// Delete removes every record matching the filter and returns the
	// number removed.
	Delete(ctx context.Context, dataset string, filter Document) (int64, error)
	// Aggregate runs a pipeline of wire-document stages and returns the
	// result rows.
	Aggregate(ctx context.Context, dataset string, pipeline []Document) ([]Document, error)
}
