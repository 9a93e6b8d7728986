package schema

import "sync"

// Constructor builds a fresh validator instance. Validators for option-backed
// types carry per-field state, so the registry hands out new instances rather
// than sharing one.
type Constructor func() TypeValidator

// builtinTypes lists the closed catalog in declaration order.
var builtinTypes = []FieldType{
	FieldTypeInteger,
	FieldTypeFloat,
	FieldTypeString,
	FieldTypeBoolean,
	FieldTypeDate,
	FieldTypeDatetime,
	FieldTypeSelect,
	FieldTypeMultiSelect,
}

// builtinValidator dispatches over the closed catalog; the switch is
// exhaustive for the built-in types and returns nil for anything else.
func builtinValidator(t FieldType) TypeValidator {
	switch t {
	case FieldTypeInteger:
		return NewIntegerValidator()
	case FieldTypeFloat:
		return NewFloatValidator()
	case FieldTypeString:
		return NewStringValidator()
	case FieldTypeBoolean:
		return NewBooleanValidator()
	case FieldTypeDate:
		return NewDateValidator()
	case FieldTypeDatetime:
		return NewDatetimeValidator()
	case FieldTypeSelect:
		return NewSelectValidator()
	case FieldTypeMultiSelect:
		return NewMultiSelectValidator()
	default:
		return nil
	}
}

// Registry resolves field types to validators: registered constructors take
// precedence, the built-in catalog answers everything else. Lookups are safe
// for concurrent use; Register is meant for initialization and should not
// race with lookups on the same types.
type Registry struct {
	mu         sync.RWMutex
	extensions map[FieldType]Constructor
}

// NewRegistry returns a registry serving the built-in field types.
func NewRegistry() *Registry {
	return &Registry{extensions: make(map[FieldType]Constructor)}
}

// Register adds a validator constructor, keyed by the type the constructed
// validator reports. Registering a built-in type overrides it.
func (r *Registry) Register(c Constructor) {
	t := c().Type()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extensions[t] = c
}

// Validator returns a fresh validator for the given field type, or a
// *UnknownTypeError if the type is neither built in nor registered.
func (r *Registry) Validator(t FieldType) (TypeValidator, error) {
	r.mu.RLock()
	c, ok := r.extensions[t]
	r.mu.RUnlock()
	if ok {
		return c(), nil
	}
	if v := builtinValidator(t); v != nil {
		return v, nil
	}
	return nil, &UnknownTypeError{Type: t}
}

// Known reports whether the field type resolves to a validator.
func (r *Registry) Known(t FieldType) bool {
	r.mu.RLock()
	_, ok := r.extensions[t]
	r.mu.RUnlock()
	return ok || builtinValidator(t) != nil
}

// Types returns the built-in types followed by any registered extensions.
func (r *Registry) Types() []FieldType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := append([]FieldType(nil), builtinTypes...)
	for t := range r.extensions {
		if builtinValidator(t) == nil {
			out = append(out, t)
		}
	}
	return out
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the shared registry holding the built-in types.
// Callers that register custom types should construct their own registry
// with NewRegistry instead of mutating the shared one.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// FieldValidator returns a validator for the field, with options applied for
// option-backed types.
func (r *Registry) FieldValidator(f SchemaField) (TypeValidator, error) {
	v, err := r.Validator(f.Type)
	if err != nil {
		return nil, err
	}
	if ov, ok := v.(OptionsValidator); ok {
		ov.SetOptions(f.Options)
	}
	return v, nil
}
