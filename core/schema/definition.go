// Package schema defines the typed schema model for datasets: the closed
// catalog of field types, the per-type value validators, the validator
// registry, and the validation rules for declaring and evolving a dataset
// schema.
package schema

import (
	"reflect"
	"slices"
)

// FieldType represents the basic field types supported by a dataset schema.
type FieldType string

const (
	FieldTypeInteger     FieldType = "int"          // Whole numbers
	FieldTypeFloat       FieldType = "float"        // Fractional numbers
	FieldTypeString      FieldType = "str"          // Text data
	FieldTypeBoolean     FieldType = "bool"         // True/false values
	FieldTypeDate        FieldType = "date"         // Calendar date, normalized to midnight UTC
	FieldTypeDatetime    FieldType = "datetime"     // Date with time of day
	FieldTypeSelect      FieldType = "select"       // One out of a configured set of options
	FieldTypeMultiSelect FieldType = "multi_select" // Any subset of a configured set of options
)

// AggregationType represents the aggregation operations a query may request.
type AggregationType string

const (
	AggregationSum   AggregationType = "sum"   // Valid for int, float
	AggregationAvg   AggregationType = "avg"   // Valid for int, float
	AggregationMin   AggregationType = "min"   // Valid for int, float, date, datetime
	AggregationMax   AggregationType = "max"   // Valid for int, float, date, datetime
	AggregationCount AggregationType = "count" // Valid for every type
)

// safeConversions maps a field type to the set of types it may be safely
// re-typed to without a manual data migration. The relation is directional:
// int widens to float, but float does not narrow back to int.
var safeConversions = map[FieldType]map[FieldType]struct{}{
	FieldTypeInteger: {FieldTypeFloat: {}, FieldTypeString: {}},
	FieldTypeFloat:   {FieldTypeString: {}},
	FieldTypeString: {
		FieldTypeInteger:     {},
		FieldTypeFloat:       {},
		FieldTypeBoolean:     {},
		FieldTypeDate:        {},
		FieldTypeDatetime:    {},
		FieldTypeSelect:      {},
		FieldTypeMultiSelect: {},
	},
	FieldTypeBoolean:     {FieldTypeString: {}},
	FieldTypeDate:        {FieldTypeString: {}, FieldTypeDatetime: {}},
	FieldTypeDatetime:    {FieldTypeString: {}, FieldTypeDate: {}},
	FieldTypeSelect:      {FieldTypeString: {}},
	FieldTypeMultiSelect: {FieldTypeString: {}},
}

// validAggregations maps a field type to the aggregation operations that are
// meaningful for it.
var validAggregations = map[FieldType]map[AggregationType]struct{}{
	FieldTypeInteger:     {AggregationSum: {}, AggregationAvg: {}, AggregationMin: {}, AggregationMax: {}, AggregationCount: {}},
	FieldTypeFloat:       {AggregationSum: {}, AggregationAvg: {}, AggregationMin: {}, AggregationMax: {}, AggregationCount: {}},
	FieldTypeString:      {AggregationCount: {}},
	FieldTypeBoolean:     {AggregationCount: {}},
	FieldTypeDate:        {AggregationMin: {}, AggregationMax: {}, AggregationCount: {}},
	FieldTypeDatetime:    {AggregationMin: {}, AggregationMax: {}, AggregationCount: {}},
	FieldTypeSelect:      {AggregationCount: {}},
	FieldTypeMultiSelect: {AggregationCount: {}},
}

// CanConvert reports whether an existing field of type from may be safely
// re-typed to to.
func CanConvert(from, to FieldType) bool {
	_, ok := safeConversions[from][to]
	return ok
}

// CanAggregate reports whether the given aggregation operation is valid for
// a field of type t.
func CanAggregate(t FieldType, op AggregationType) bool {
	_, ok := validAggregations[t][op]
	return ok
}

// IsSelect reports whether t is one of the option-backed types.
func IsSelect(t FieldType) bool {
	return t == FieldTypeSelect || t == FieldTypeMultiSelect
}

// SchemaField is a single field definition within a dataset schema.
type SchemaField struct {
	FieldName   string    `json:"field_name"`
	Description string    `json:"description,omitempty"`
	Type        FieldType `json:"type"`
	Required    bool      `json:"required"`
	Unique      bool      `json:"unique,omitempty"`
	Default     any       `json:"default,omitempty"`
	Options     []string  `json:"options,omitempty"`
}

// Equal reports whether every declared attribute of the two fields is equal.
// Options are compared order-sensitively: reordering the options list counts
// as a change.
func (f SchemaField) Equal(other SchemaField) bool {
	return f.FieldName == other.FieldName &&
		f.Description == other.Description &&
		f.Type == other.Type &&
		f.Required == other.Required &&
		f.Unique == other.Unique &&
		reflect.DeepEqual(f.Default, other.Default) &&
		slices.Equal(f.Options, other.Options)
}

// DatasetSchema is an ordered collection of field definitions. Field names
// are unique within a validated schema; order is preserved for display and
// serialization but carries no validation semantics. A schema is never
// mutated after validation; updates produce a fresh value.
type DatasetSchema []SchemaField

// Field returns the definition of the named field.
func (s DatasetSchema) Field(name string) (SchemaField, bool) {
	for _, f := range s {
		if f.FieldName == name {
			return f, true
		}
	}
	return SchemaField{}, false
}

// HasField reports whether the named field exists in the schema.
func (s DatasetSchema) HasField(name string) bool {
	_, ok := s.Field(name)
	return ok
}

// FieldNames returns all field names in schema order.
func (s DatasetSchema) FieldNames() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.FieldName
	}
	return names
}
