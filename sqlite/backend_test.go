package sqlite

import (
	"context"
	"testing"

	"github.com/asaidimu/go-docstore/core"
	"github.com/asaidimu/go-docstore/core/query"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackendFind(t *testing.T) {
	s := newTestStore(t)
	seedGroceries(t, s)
	b := s.Backend()
	ctx := context.Background()

	filter, err := query.BuildFilterDocument(query.Where("status").Eq("needed"))
	require.NoError(t, err)

	records, err := b.Find(ctx, "groceries", filter, &core.FindOptions{
		Sort:  []core.SortSpec{{Key: "quantity", Descending: true}},
		Limit: 1,
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "eggs", records[0].Data["item"])

	all, err := b.Find(ctx, "groceries", nil, nil)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestBackendUpdateAndDelete(t *testing.T) {
	s := newTestStore(t)
	seedGroceries(t, s)
	b := s.Backend()
	ctx := context.Background()

	filter, err := query.BuildFilterDocument(query.Where("status").Eq("needed"))
	require.NoError(t, err)

	changed, err := b.Update(ctx, "groceries", filter, core.RecordData{"status": "bought"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), changed)

	remaining, err := b.Find(ctx, "groceries", filter, nil)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	boughtFilter, err := query.BuildFilterDocument(query.Where("status").Eq("bought"))
	require.NoError(t, err)
	removed, err := b.Delete(ctx, "groceries", boughtFilter)
	require.NoError(t, err)
	assert.Equal(t, int64(4), removed)

	all, err := b.Find(ctx, "groceries", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestBackendAggregatePipeline(t *testing.T) {
	s := newTestStore(t)
	seedGroceries(t, s)
	b := s.Backend()
	ctx := context.Background()

	ds, err := s.Dataset(ctx, "groceries")
	require.NoError(t, err)

	pipeline, err := query.BuildPipeline(uuid.New(), uuid.MustParse(ds.ID), &query.RecordQuery{
		Filter:  query.Where("quantity").Gt(int64(0)),
		GroupBy: []string{"status"},
		Aggregations: []query.AggregationField{
			{Field: "quantity", Operation: "sum"},
			{Field: "item", Operation: "count", Alias: "items"},
		},
		Sort:  map[string]query.SortOrder{"status": query.SortAscending},
		Limit: 10,
	})
	require.NoError(t, err)

	rows, err := b.Aggregate(ctx, "groceries", pipeline)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, core.Document{
		"_id":          core.Document{"status": "bought"},
		"quantity_sum": int64(3),
		"items":        int64(2),
	}, rows[0])
	assert.Equal(t, core.Document{
		"_id":          core.Document{"status": "needed"},
		"quantity_sum": int64(15),
		"items":        int64(2),
	}, rows[1])
}

func TestBackendAggregateWithoutGroupReturnsEnvelopes(t *testing.T) {
	s := newTestStore(t)
	seedGroceries(t, s)
	b := s.Backend()
	ctx := context.Background()

	rows, err := b.Aggregate(ctx, "groceries", []core.Document{
		{"$match": core.Document{"data.status": core.Document{"$eq": "needed"}}},
		{"$sort": core.Document{"data.quantity": -1}},
		{"$limit": 1},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	data := rows[0]["data"].(core.RecordData)
	assert.Equal(t, "eggs", data["item"])
}

func TestBackendAggregateRejectsUnknownStage(t *testing.T) {
	s := newTestStore(t)
	seedGroceries(t, s)

	_, err := s.Backend().Aggregate(context.Background(), "groceries", []core.Document{
		{"$unwind": "$data.item"},
	})
	require.Error(t, err)
	var queryErr *query.QueryError
	assert.ErrorAs(t, err, &queryErr)
}
