package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Layouts accepted by the date and datetime validators.
const (
	DateLayout          = "2006-01-02"
	DatetimeLayout      = "2006-01-02T15:04:05"
	DatetimeLayoutSpace = "2006-01-02 15:04:05"
)

// TypeValidator validates and coerces raw values for a single field type.
// Implementations are pure: the same input (and the same configured options)
// always yields the same output or the same failure, and re-validating an
// already-coerced value is a no-op.
type TypeValidator interface {
	// Type returns the field type this validator handles.
	Type() FieldType
	// Validate coerces a raw value to the canonical representation for the
	// type, or fails with a *ValueError.
	Validate(value any) (any, error)
	// ValidateDefault behaves like Validate but passes nil through.
	ValidateDefault(value any) (any, error)
	// CanConvertFrom reports whether a field of another type may be safely
	// re-typed to this validator's type.
	CanConvertFrom(other FieldType) bool
	// CanAggregate reports whether the aggregation operation is valid for
	// this validator's type.
	CanAggregate(op AggregationType) bool
}

// OptionsValidator is implemented by validators whose accepted values are a
// configured options set (select and multi-select).
type OptionsValidator interface {
	TypeValidator
	SetOptions(options []string)
}

// baseValidator carries the field type and derives the conversion and
// aggregation capabilities from the package tables.
type baseValidator struct {
	fieldType FieldType
}

func (b baseValidator) Type() FieldType                      { return b.fieldType }
func (b baseValidator) CanConvertFrom(other FieldType) bool  { return CanConvert(other, b.fieldType) }
func (b baseValidator) CanAggregate(op AggregationType) bool { return CanAggregate(b.fieldType, op) }

// IntegerValidator coerces values to int64. Booleans are explicitly
// rejected; fractional floats truncate toward zero; numeric strings are
// parsed.
type IntegerValidator struct {
	baseValidator
}

func NewIntegerValidator() TypeValidator {
	return &IntegerValidator{baseValidator{FieldTypeInteger}}
}

func (v *IntegerValidator) Validate(value any) (any, error) {
	switch t := value.(type) {
	case bool:
		return nil, &ValueError{FieldTypeInteger, "boolean values cannot be converted to integer"}
	case int:
		return int64(t), nil
	case int8:
		return int64(t), nil
	case int16:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case int64:
		return t, nil
	case uint:
		return int64(t), nil
	case uint8:
		return int64(t), nil
	case uint16:
		return int64(t), nil
	case uint32:
		return int64(t), nil
	case uint64:
		return int64(t), nil
	case float32:
		return int64(t), nil
	case float64:
		return int64(t), nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return nil, &ValueError{FieldTypeInteger, fmt.Sprintf("cannot convert string %q to integer", t)}
		}
		return i, nil
	default:
		return nil, &ValueError{FieldTypeInteger, fmt.Sprintf("cannot convert %T to integer", value)}
	}
}

func (v *IntegerValidator) ValidateDefault(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	return v.Validate(value)
}

// FloatValidator coerces values to float64. Booleans are explicitly rejected.
type FloatValidator struct {
	baseValidator
}

func NewFloatValidator() TypeValidator {
	return &FloatValidator{baseValidator{FieldTypeFloat}}
}

func (v *FloatValidator) Validate(value any) (any, error) {
	switch t := value.(type) {
	case bool:
		return nil, &ValueError{FieldTypeFloat, "boolean values cannot be converted to float"}
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil, &ValueError{FieldTypeFloat, fmt.Sprintf("cannot convert string %q to float", t)}
		}
		return f, nil
	default:
		if f, ok := toFloat64(value); ok {
			return f, nil
		}
		return nil, &ValueError{FieldTypeFloat, fmt.Sprintf("cannot convert %T to float", value)}
	}
}

func (v *FloatValidator) ValidateDefault(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	return v.Validate(value)
}

// StringValidator stringifies any value; it never fails.
type StringValidator struct {
	baseValidator
}

func NewStringValidator() TypeValidator {
	return &StringValidator{baseValidator{FieldTypeString}}
}

func (v *StringValidator) Validate(value any) (any, error) {
	if s, ok := value.(string); ok {
		return s, nil
	}
	return fmt.Sprint(value), nil
}

func (v *StringValidator) ValidateDefault(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	return v.Validate(value)
}

// BooleanValidator performs strict boolean coercion: native bools, the
// strings true/1/yes and false/0/no (case-insensitive), and the integers
// 0 and 1. Everything else fails.
type BooleanValidator struct {
	baseValidator
}

func NewBooleanValidator() TypeValidator {
	return &BooleanValidator{baseValidator{FieldTypeBoolean}}
}

func (v *BooleanValidator) Validate(value any) (any, error) {
	switch t := value.(type) {
	case bool:
		return t, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no":
			return false, nil
		}
		return nil, &ValueError{FieldTypeBoolean, fmt.Sprintf("cannot convert string %q to boolean", t)}
	default:
		if f, ok := toFloat64(value); ok {
			if f == 0 {
				return false, nil
			}
			if f == 1 {
				return true, nil
			}
		}
		return nil, &ValueError{FieldTypeBoolean, fmt.Sprintf("cannot convert %v to boolean", value)}
	}
}

func (v *BooleanValidator) ValidateDefault(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	return v.Validate(value)
}

// DateValidator coerces values to a time.Time at midnight UTC. It accepts
// time.Time values (time of day discarded) and strings in YYYY-MM-DD form.
type DateValidator struct {
	baseValidator
}

func NewDateValidator() TypeValidator {
	return &DateValidator{baseValidator{FieldTypeDate}}
}

func (v *DateValidator) Validate(value any) (any, error) {
	switch t := value.(type) {
	case time.Time:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	case string:
		parsed, err := time.Parse(DateLayout, t)
		if err != nil {
			return nil, &ValueError{FieldTypeDate, fmt.Sprintf("invalid date format, expected YYYY-MM-DD, got %q", t)}
		}
		return parsed, nil
	default:
		return nil, &ValueError{FieldTypeDate, fmt.Sprintf("cannot convert %T to date", value)}
	}
}

func (v *DateValidator) ValidateDefault(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	return v.Validate(value)
}

// DatetimeValidator coerces values to time.Time. It accepts time.Time values
// unchanged and strings in YYYY-MM-DD[T ]HH:MM:SS form.
type DatetimeValidator struct {
	baseValidator
}

func NewDatetimeValidator() TypeValidator {
	return &DatetimeValidator{baseValidator{FieldTypeDatetime}}
}

func (v *DatetimeValidator) Validate(value any) (any, error) {
	switch t := value.(type) {
	case time.Time:
		return t, nil
	case string:
		if parsed, err := time.Parse(DatetimeLayout, t); err == nil {
			return parsed, nil
		}
		if parsed, err := time.Parse(DatetimeLayoutSpace, t); err == nil {
			return parsed, nil
		}
		return nil, &ValueError{FieldTypeDatetime, fmt.Sprintf("invalid datetime format, expected YYYY-MM-DD[T ]HH:MM:SS, got %q", t)}
	default:
		return nil, &ValueError{FieldTypeDatetime, fmt.Sprintf("cannot convert %T to datetime", value)}
	}
}

func (v *DatetimeValidator) ValidateDefault(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	return v.Validate(value)
}

// SelectValidator accepts a single value from a configured options set. The
// options are state on the validator instance, not on the field type.
type SelectValidator struct {
	baseValidator
	options map[string]struct{}
	sorted  []string
}

func NewSelectValidator() TypeValidator {
	return &SelectValidator{baseValidator: baseValidator{FieldTypeSelect}}
}

// SetOptions configures the allowed values.
func (v *SelectValidator) SetOptions(options []string) {
	v.options = make(map[string]struct{}, len(options))
	for _, o := range options {
		v.options[o] = struct{}{}
	}
	v.sorted = sortedKeys(v.options)
}

func (v *SelectValidator) Validate(value any) (any, error) {
	if v.options == nil {
		return nil, &ValueError{FieldTypeSelect, "options not set for select field"}
	}
	s := fmt.Sprint(value)
	if _, ok := v.options[s]; !ok {
		return nil, &ValueError{FieldTypeSelect, fmt.Sprintf("value must be one of: %s", strings.Join(v.sorted, ", "))}
	}
	return s, nil
}

func (v *SelectValidator) ValidateDefault(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	return v.Validate(value)
}

// MultiSelectValidator accepts a list of values from a configured options
// set. A comma-separated string is split; the result is a sorted []string
// for a stable representation.
type MultiSelectValidator struct {
	baseValidator
	options map[string]struct{}
	sorted  []string
}

func NewMultiSelectValidator() TypeValidator {
	return &MultiSelectValidator{baseValidator: baseValidator{FieldTypeMultiSelect}}
}

// SetOptions configures the allowed values.
func (v *MultiSelectValidator) SetOptions(options []string) {
	v.options = make(map[string]struct{}, len(options))
	for _, o := range options {
		v.options[o] = struct{}{}
	}
	v.sorted = sortedKeys(v.options)
}

func (v *MultiSelectValidator) Validate(value any) (any, error) {
	if v.options == nil {
		return nil, &ValueError{FieldTypeMultiSelect, "options not set for multi-select field"}
	}

	var values []string
	switch t := value.(type) {
	case string:
		if t == "" {
			return []string{}, nil
		}
		for _, part := range strings.Split(t, ",") {
			values = append(values, strings.TrimSpace(part))
		}
	case []string:
		values = append(values, t...)
	case []any:
		for _, item := range t {
			values = append(values, fmt.Sprint(item))
		}
	default:
		return nil, &ValueError{FieldTypeMultiSelect, fmt.Sprintf("value must be a list or comma-separated string, got %T", value)}
	}

	invalid := make(map[string]struct{})
	for _, val := range values {
		if _, ok := v.options[val]; !ok {
			invalid[val] = struct{}{}
		}
	}
	if len(invalid) > 0 {
		return nil, &ValueError{FieldTypeMultiSelect, fmt.Sprintf(
			"invalid options: %s, must be from: %s",
			strings.Join(sortedKeys(invalid), ", "), strings.Join(v.sorted, ", "))}
	}

	sort.Strings(values)
	return values, nil
}

func (v *MultiSelectValidator) ValidateDefault(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	return v.Validate(value)
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// toFloat64 converts any numeric value to float64.
func toFloat64(v any) (float64, bool) {
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
