package core

import (
	"github.com/asaidimu/go-docstore/core/schema"
	"go.uber.org/zap"
)

// RecordValidator checks record data against a dataset schema, coercing each
// value through the registry's type validators.
//
// Strict controls how fields absent from the schema are handled: rejected
// when true (the default), passed through untouched when false.
type RecordValidator struct {
	registry *schema.Registry
	logger   *zap.Logger
	Strict   bool
}

// NewRecordValidator creates a validator. A nil registry falls back to the
// built-in types; a nil logger disables logging.
func NewRecordValidator(registry *schema.Registry, logger *zap.Logger) *RecordValidator {
	if registry == nil {
		registry = schema.DefaultRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordValidator{registry: registry, logger: logger, Strict: true}
}

// ValidateRecord validates a full record for insertion. Missing fields take
// their schema default when one exists; missing required fields without a
// default fail. Every failure is collected, so the returned *RecordError
// names all offending fields at once.
func (v *RecordValidator) ValidateRecord(fields schema.DatasetSchema, data RecordData) (RecordData, error) {
	problems := make(map[string]string)
	out := make(RecordData, len(fields))

	for _, f := range fields {
		raw, present := data[f.FieldName]
		if !present || raw == nil {
			if f.Default != nil {
				out[f.FieldName] = f.Default
				continue
			}
			if f.Required {
				problems[f.FieldName] = "required field is missing"
			}
			continue
		}

		coerced, err := v.validateValue(f, raw)
		if err != nil {
			problems[f.FieldName] = err.Error()
			continue
		}
		out[f.FieldName] = coerced
	}

	v.applyUnknownFields(fields, data, out, problems)

	if len(problems) > 0 {
		return nil, &RecordError{Fields: problems}
	}
	return out, nil
}

// ValidateChanges validates a partial update: only the provided fields are
// checked, and required fields absent from the changes are left alone.
// Setting a required field to nil fails.
func (v *RecordValidator) ValidateChanges(fields schema.DatasetSchema, changes RecordData) (RecordData, error) {
	problems := make(map[string]string)
	out := make(RecordData, len(changes))

	for name, raw := range changes {
		f, ok := fields.Field(name)
		if !ok {
			continue // handled below
		}
		if raw == nil {
			if f.Required {
				problems[name] = "required field cannot be cleared"
				continue
			}
			out[name] = nil
			continue
		}
		coerced, err := v.validateValue(f, raw)
		if err != nil {
			problems[name] = err.Error()
			continue
		}
		out[name] = coerced
	}

	v.applyUnknownFields(fields, changes, out, problems)

	if len(problems) > 0 {
		return nil, &RecordError{Fields: problems}
	}
	return out, nil
}

func (v *RecordValidator) validateValue(f schema.SchemaField, raw any) (any, error) {
	tv, err := v.registry.FieldValidator(f)
	if err != nil {
		return nil, err
	}
	return tv.Validate(raw)
}

func (v *RecordValidator) applyUnknownFields(fields schema.DatasetSchema, data, out RecordData, problems map[string]string) {
	for name, raw := range data {
		if fields.HasField(name) {
			continue
		}
		if v.Strict {
			problems[name] = "field is not defined in the dataset schema"
			continue
		}
		v.logger.Debug("passing through field not covered by schema", zap.String("field", name))
		out[name] = raw
	}
}
