// Package core defines the document-store model: datasets described by a
// typed schema, records validated against it, and the wire-document shape
// that filters, pipelines, and aggregation results travel in.
package core

import (
	"time"

	"github.com/asaidimu/go-docstore/core/schema"
)

// Document is a wire document: a filter clause, a pipeline stage, or an
// aggregation result row. It marshals to the JSON shape backends consume.
type Document map[string]any

// RecordData holds a record's field values keyed by field name.
type RecordData map[string]any

// Clone returns a shallow copy of the record data.
func (d RecordData) Clone() RecordData {
	out := make(RecordData, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Dataset is a named collection of records sharing one schema.
type Dataset struct {
	ID          string               `json:"id"`
	Owner       string               `json:"owner,omitempty"`
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	Schema      schema.DatasetSchema `json:"schema"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// Record is a single stored document within a dataset.
type Record struct {
	ID        string     `json:"id"`
	Owner     string     `json:"owner,omitempty"`
	DatasetID string     `json:"dataset_id"`
	Data      RecordData `json:"data"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// SortSpec orders query results by a single key.
type SortSpec struct {
	Key        string `json:"key"`
	Descending bool   `json:"descending,omitempty"`
}

// FindOptions bound and order a record query.
type FindOptions struct {
	Sort  []SortSpec
	Limit int64
}

// ToFloat64 converts any native numeric value to float64 for comparison.
func ToFloat64(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int8:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	default:
		return 0, false
	}
}
