package sqlite

import (
	"context"
	"testing"

	"github.com/asaidimu/go-docstore/core"
	"github.com/asaidimu/go-docstore/core/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddFieldBackfillsDefault(t *testing.T) {
	s := newTestStore(t)
	seedGroceries(t, s)
	ctx := context.Background()

	ds, err := s.AddField(ctx, "groceries", schema.SchemaField{
		FieldName: "aisle", Type: schema.FieldTypeInteger, Default: 0,
	})
	require.NoError(t, err)
	assert.True(t, ds.Schema.HasField("aisle"))

	records, err := s.QueryRecords(ctx, "groceries", nil)
	require.NoError(t, err)
	for _, r := range records {
		assert.Equal(t, int64(0), r.Data["aisle"], "record %s backfilled", r.ID)
	}
}

func TestAddFieldRequiredNeedsDefault(t *testing.T) {
	s := newTestStore(t)
	seedGroceries(t, s)
	ctx := context.Background()

	_, err := s.AddField(ctx, "groceries", schema.SchemaField{
		FieldName: "aisle", Type: schema.FieldTypeInteger, Required: true,
	})
	require.Error(t, err)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)

	// Without records the same field is fine.
	_, err = s.CreateDataset(ctx, "empty", "", groceryFields())
	require.NoError(t, err)
	_, err = s.AddField(ctx, "empty", schema.SchemaField{
		FieldName: "aisle", Type: schema.FieldTypeInteger, Required: true,
	})
	require.NoError(t, err)
}

func TestAddFieldDuplicate(t *testing.T) {
	s := newTestStore(t)
	seedGroceries(t, s)

	_, err := s.AddField(context.Background(), "groceries", schema.SchemaField{
		FieldName: "item", Type: schema.FieldTypeString,
	})
	require.Error(t, err)
	var conflict *ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestUpdateFieldSafeTypeChangeRewritesRecords(t *testing.T) {
	s := newTestStore(t)
	seedGroceries(t, s)
	ctx := context.Background()

	ds, err := s.UpdateField(ctx, "groceries", "quantity", schema.SchemaField{
		FieldName: "quantity", Type: schema.FieldTypeFloat, Required: true,
	})
	require.NoError(t, err)
	f, _ := ds.Schema.Field("quantity")
	assert.Equal(t, schema.FieldTypeFloat, f.Type)

	records, err := s.QueryRecords(ctx, "groceries", nil)
	require.NoError(t, err)
	for _, r := range records {
		assert.IsType(t, float64(0), r.Data["quantity"], "record %s rewritten", r.ID)
	}
}

func TestUpdateFieldUnsafeTypeChange(t *testing.T) {
	s := newTestStore(t)
	seedGroceries(t, s)

	_, err := s.UpdateField(context.Background(), "groceries", "quantity", schema.SchemaField{
		FieldName: "quantity", Type: schema.FieldTypeBoolean, Required: true,
	})
	require.Error(t, err)
	var conv *schema.ConversionError
	require.ErrorAs(t, err, &conv)
	assert.Equal(t, schema.FieldTypeInteger, conv.From)
	assert.Equal(t, schema.FieldTypeBoolean, conv.To)
}

func TestUpdateFieldNoop(t *testing.T) {
	s := newTestStore(t)
	seedGroceries(t, s)
	ctx := context.Background()

	before, err := s.Dataset(ctx, "groceries")
	require.NoError(t, err)
	f, _ := before.Schema.Field("quantity")

	after, err := s.UpdateField(ctx, "groceries", "quantity", f)
	require.NoError(t, err)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt, "identical proposal leaves the dataset untouched")
}

func TestUpdateFieldUniquePromotion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.CreateDataset(ctx, "users", "", schema.DatasetSchema{
		{FieldName: "email", Type: schema.FieldTypeString, Required: true},
	})
	require.NoError(t, err)
	_, err = s.InsertRecord(ctx, "users", core.RecordData{"email": "a@example.com"})
	require.NoError(t, err)
	_, err = s.InsertRecord(ctx, "users", core.RecordData{"email": "a@example.com"})
	require.NoError(t, err)

	// Duplicate values block the promotion.
	_, err = s.UpdateField(ctx, "users", "email", schema.SchemaField{
		FieldName: "email", Type: schema.FieldTypeString, Required: true, Unique: true,
	})
	require.Error(t, err)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)

	// After deduplicating, the promotion goes through.
	records, err := s.QueryRecords(ctx, "users", nil)
	require.NoError(t, err)
	_, err = s.UpdateRecord(ctx, "users", records[1].ID, core.RecordData{"email": "b@example.com"})
	require.NoError(t, err)

	_, err = s.UpdateField(ctx, "users", "email", schema.SchemaField{
		FieldName: "email", Type: schema.FieldTypeString, Required: true, Unique: true,
	})
	require.NoError(t, err)
}

func TestUpdateFieldRequiredPromotion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.CreateDataset(ctx, "notes", "", schema.DatasetSchema{
		{FieldName: "title", Type: schema.FieldTypeString, Required: true},
		{FieldName: "body", Type: schema.FieldTypeString},
	})
	require.NoError(t, err)
	_, err = s.InsertRecord(ctx, "notes", core.RecordData{"title": "a"})
	require.NoError(t, err)

	_, err = s.UpdateField(ctx, "notes", "body", schema.SchemaField{
		FieldName: "body", Type: schema.FieldTypeString, Required: true,
	})
	require.Error(t, err, "a record without a value blocks the promotion")

	// A default fills the gap instead.
	_, err = s.UpdateField(ctx, "notes", "body", schema.SchemaField{
		FieldName: "body", Type: schema.FieldTypeString, Required: true, Default: "(empty)",
	})
	require.NoError(t, err)

	records, err := s.QueryRecords(ctx, "notes", nil)
	require.NoError(t, err)
	assert.Equal(t, "(empty)", records[0].Data["body"])
}

func TestDeleteFieldStripsRecords(t *testing.T) {
	s := newTestStore(t)
	seedGroceries(t, s)
	ctx := context.Background()

	ds, err := s.DeleteField(ctx, "groceries", "price")
	require.NoError(t, err)
	assert.False(t, ds.Schema.HasField("price"))

	records, err := s.QueryRecords(ctx, "groceries", nil)
	require.NoError(t, err)
	for _, r := range records {
		assert.NotContains(t, r.Data, "price")
	}

	_, err = s.DeleteField(ctx, "groceries", "ghost")
	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)
}
