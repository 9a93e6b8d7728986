package sqlite

import (
	"testing"
	"time"

	"github.com/asaidimu/go-docstore/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(data core.RecordData) *core.Record {
	return &core.Record{ID: "r1", DatasetID: "d1", Data: data}
}

func TestMatchDocumentOperators(t *testing.T) {
	r := record(core.RecordData{
		"quantity": int64(5),
		"item":     "milk",
		"added":    time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
		"tags":     []string{"dairy", "fresh"},
	})

	tests := []struct {
		name   string
		filter core.Document
		want   bool
	}{
		{"empty matches all", core.Document{}, true},
		{"eq", core.Document{"data.quantity": core.Document{"$eq": int64(5)}}, true},
		{"eq across numeric kinds", core.Document{"data.quantity": core.Document{"$eq": 5.0}}, true},
		{"ne", core.Document{"data.item": core.Document{"$ne": "bread"}}, true},
		{"gt", core.Document{"data.quantity": core.Document{"$gt": int64(4)}}, true},
		{"lte fails", core.Document{"data.quantity": core.Document{"$lte": int64(4)}}, false},
		{"time comparison", core.Document{"data.added": core.Document{
			"$gte": time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		}}, true},
		{"list equality", core.Document{"data.tags": core.Document{"$eq": []string{"dairy", "fresh"}}}, true},
		{"missing field eq nil", core.Document{"data.ghost": core.Document{"$eq": nil}}, true},
		{"missing field gt", core.Document{"data.ghost": core.Document{"$gt": int64(1)}}, false},
		{"and", core.Document{"$and": []any{
			core.Document{"data.quantity": core.Document{"$gt": int64(1)}},
			core.Document{"data.item": core.Document{"$eq": "milk"}},
		}}, true},
		{"or short-circuits", core.Document{"$or": []any{
			core.Document{"data.item": core.Document{"$eq": "bread"}},
			core.Document{"data.item": core.Document{"$eq": "milk"}},
		}}, true},
		{"envelope id", core.Document{"id": "r1"}, true},
		{"envelope id mismatch", core.Document{"id": "other"}, false},
		{"untracked envelope key ignored", core.Document{"user_id": "anyone"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := matchDocument(tt.filter, r)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchDocumentUnknownOperator(t *testing.T) {
	_, err := matchDocument(core.Document{
		"data.quantity": core.Document{"$mod": 2},
	}, record(core.RecordData{"quantity": int64(4)}))
	require.Error(t, err)
}

func TestMatchDocumentJSONDecodedFilter(t *testing.T) {
	// A filter that went through JSON arrives as map[string]any with
	// float64 numbers; matching still works.
	filter := map[string]any{"$and": []any{
		map[string]any{"data.quantity": map[string]any{"$gte": 3.0}},
	}}
	got, err := matchDocument(core.Document(filter), record(core.RecordData{"quantity": int64(5)}))
	require.NoError(t, err)
	assert.True(t, got)
}
