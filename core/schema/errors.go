package schema

import "fmt"

// SchemaError reports an invalid dataset schema: duplicate field names,
// missing options for select types, invalid defaults, or a reference to a
// field that does not exist.
type SchemaError struct {
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Field == "" {
		return "invalid dataset schema: " + e.Reason
	}
	return fmt.Sprintf("invalid dataset schema: field %q: %s", e.Field, e.Reason)
}

// ValueError reports a value that cannot be converted to a field's type.
type ValueError struct {
	Type   FieldType
	Reason string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("invalid %s value: %s", e.Type, e.Reason)
}

// ConversionError reports a field update that would re-type a field outside
// the safe-conversion table.
type ConversionError struct {
	Field string
	From  FieldType
	To    FieldType
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("cannot safely convert field %q from %s to %s", e.Field, e.From, e.To)
}

// UnknownTypeError reports a lookup for a field type with no registered
// validator.
type UnknownTypeError struct {
	Type FieldType
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("no validator registered for field type %q", e.Type)
}
