package core

import (
	"testing"
	"time"

	"github.com/asaidimu/go-docstore/core/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func groceriesSchema(t *testing.T) schema.DatasetSchema {
	t.Helper()
	fields, err := schema.ValidateSchema(schema.NewRegistry(), schema.DatasetSchema{
		{FieldName: "item", Type: schema.FieldTypeString, Required: true},
		{FieldName: "quantity", Type: schema.FieldTypeInteger, Required: true},
		{FieldName: "price", Type: schema.FieldTypeFloat},
		{FieldName: "bought", Type: schema.FieldTypeBoolean, Default: false},
		{FieldName: "added", Type: schema.FieldTypeDate},
		{FieldName: "store", Type: schema.FieldTypeSelect, Options: []string{"market", "online"}},
	})
	require.NoError(t, err)
	return fields
}

func TestValidateRecordCoercesValues(t *testing.T) {
	v := NewRecordValidator(nil, nil)
	fields := groceriesSchema(t)

	got, err := v.ValidateRecord(fields, RecordData{
		"item":     "milk",
		"quantity": "3",
		"price":    "2.50",
		"added":    "2024-06-15",
		"store":    "market",
	})
	require.NoError(t, err)

	assert.Equal(t, "milk", got["item"])
	assert.Equal(t, int64(3), got["quantity"])
	assert.Equal(t, 2.5, got["price"])
	assert.Equal(t, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), got["added"])
	assert.Equal(t, "market", got["store"])
	assert.Equal(t, false, got["bought"], "default applied for missing field")
}

func TestValidateRecordMissingRequired(t *testing.T) {
	v := NewRecordValidator(nil, nil)
	fields := groceriesSchema(t)

	_, err := v.ValidateRecord(fields, RecordData{"item": "milk"})
	require.Error(t, err)

	var recErr *RecordError
	require.ErrorAs(t, err, &recErr)
	assert.Equal(t, []string{"quantity"}, recErr.FieldNames())
}

func TestValidateRecordCollectsAllFailures(t *testing.T) {
	v := NewRecordValidator(nil, nil)
	fields := groceriesSchema(t)

	_, err := v.ValidateRecord(fields, RecordData{
		"item":     "milk",
		"quantity": "many",
		"price":    "free",
		"store":    "black market",
	})
	require.Error(t, err)

	var recErr *RecordError
	require.ErrorAs(t, err, &recErr)
	assert.Equal(t, []string{"price", "quantity", "store"}, recErr.FieldNames())
}

func TestValidateRecordUnknownFields(t *testing.T) {
	fields := groceriesSchema(t)
	data := RecordData{"item": "milk", "quantity": 1, "aisle": 7}

	strict := NewRecordValidator(nil, nil)
	_, err := strict.ValidateRecord(fields, data)
	require.Error(t, err)
	var recErr *RecordError
	require.ErrorAs(t, err, &recErr)
	assert.Equal(t, []string{"aisle"}, recErr.FieldNames())

	lenient := NewRecordValidator(nil, nil)
	lenient.Strict = false
	got, err := lenient.ValidateRecord(fields, data)
	require.NoError(t, err)
	assert.Equal(t, 7, got["aisle"], "unknown fields pass through untouched")
}

func TestValidateChanges(t *testing.T) {
	v := NewRecordValidator(nil, nil)
	fields := groceriesSchema(t)

	got, err := v.ValidateChanges(fields, RecordData{"quantity": "5"})
	require.NoError(t, err)
	assert.Equal(t, RecordData{"quantity": int64(5)}, got)

	// Clearing an optional field is fine; clearing a required one is not.
	got, err = v.ValidateChanges(fields, RecordData{"price": nil})
	require.NoError(t, err)
	assert.Contains(t, got, "price")

	_, err = v.ValidateChanges(fields, RecordData{"item": nil})
	require.Error(t, err)
}
