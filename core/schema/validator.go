package schema

import "fmt"

const (
	minFieldNameLength = 1
	maxFieldNameLength = 128
)

// ValidateSchema checks a dataset schema for structural soundness and
// returns a normalized copy: defaults are coerced through the field's own
// validator so the stored schema always carries canonical values.
//
// A schema is rejected when a field name is duplicated or out of bounds,
// when a field uses an unregistered type, when an option-backed field has no
// options, or when a default does not validate against its field.
func ValidateSchema(reg *Registry, fields DatasetSchema) (DatasetSchema, error) {
	if len(fields) == 0 {
		return nil, &SchemaError{Reason: "schema must contain at least one field"}
	}

	seen := make(map[string]struct{}, len(fields))
	normalized := make(DatasetSchema, 0, len(fields))
	for _, f := range fields {
		if l := len(f.FieldName); l < minFieldNameLength || l > maxFieldNameLength {
			return nil, &SchemaError{Field: f.FieldName, Reason: fmt.Sprintf(
				"name must be between %d and %d characters", minFieldNameLength, maxFieldNameLength)}
		}
		if _, dup := seen[f.FieldName]; dup {
			return nil, &SchemaError{Field: f.FieldName, Reason: "duplicate field name"}
		}
		seen[f.FieldName] = struct{}{}

		if !reg.Known(f.Type) {
			return nil, &SchemaError{Field: f.FieldName, Reason: fmt.Sprintf("unknown field type %q", f.Type)}
		}
		if IsSelect(f.Type) && len(f.Options) == 0 {
			return nil, &SchemaError{Field: f.FieldName, Reason: fmt.Sprintf("%s fields require a non-empty options list", f.Type)}
		}
		if !IsSelect(f.Type) && len(f.Options) > 0 {
			return nil, &SchemaError{Field: f.FieldName, Reason: fmt.Sprintf("options are not allowed on %s fields", f.Type)}
		}

		v, err := reg.FieldValidator(f)
		if err != nil {
			return nil, &SchemaError{Field: f.FieldName, Reason: err.Error()}
		}
		def, err := v.ValidateDefault(f.Default)
		if err != nil {
			return nil, &SchemaError{Field: f.FieldName, Reason: fmt.Sprintf("invalid default: %v", err)}
		}
		f.Default = def
		normalized = append(normalized, f)
	}
	return normalized, nil
}

// FieldUpdate describes the outcome of a validated field change: the field
// being replaced and the full schema with the change applied.
type FieldUpdate struct {
	Old    SchemaField
	Schema DatasetSchema
}

// ValidateFieldUpdate checks a proposed replacement for an existing field
// against the evolution rules. It returns (nil, nil) when the proposal is
// identical to the current definition, a *ConversionError when the type
// change is unsafe, and otherwise the updated schema re-validated as a whole.
func ValidateFieldUpdate(reg *Registry, fields DatasetSchema, fieldName string, proposed SchemaField) (*FieldUpdate, error) {
	current, ok := fields.Field(fieldName)
	if !ok {
		return nil, &SchemaError{Field: fieldName, Reason: "field does not exist"}
	}
	if current.Equal(proposed) {
		return nil, nil
	}

	if current.Type != proposed.Type && !CanConvert(current.Type, proposed.Type) {
		return nil, &ConversionError{Field: fieldName, From: current.Type, To: proposed.Type}
	}

	updated := make(DatasetSchema, len(fields))
	copy(updated, fields)
	for i, f := range updated {
		if f.FieldName == fieldName {
			updated[i] = proposed
		}
	}
	normalized, err := ValidateSchema(reg, updated)
	if err != nil {
		return nil, err
	}
	return &FieldUpdate{Old: current, Schema: normalized}, nil
}
