package schema

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestValidationPropertiesInteger(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	properties := gopter.NewProperties(params)
	v := NewIntegerValidator()

	properties.Property("validation is idempotent", prop.ForAll(
		func(n int64) bool {
			once, err := v.Validate(n)
			if err != nil {
				return false
			}
			twice, err := v.Validate(once)
			if err != nil {
				return false
			}
			return once == twice
		},
		gen.Int64(),
	))

	properties.Property("floats always truncate toward zero", prop.ForAll(
		func(f float64) bool {
			got, err := v.Validate(f)
			if err != nil {
				return false
			}
			n := got.(int64)
			if f >= 0 {
				return float64(n) <= f
			}
			return float64(n) >= f
		},
		gen.Float64Range(-1e9, 1e9),
	))

	properties.TestingRun(t)
}

func TestValidationPropertiesNumericRejectBooleans(t *testing.T) {
	params := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(params)

	properties.Property("integer and float validators reject every bool", prop.ForAll(
		func(b bool) bool {
			if _, err := NewIntegerValidator().Validate(b); err == nil {
				return false
			}
			if _, err := NewFloatValidator().Validate(b); err == nil {
				return false
			}
			return true
		},
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestValidationPropertiesString(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	properties := gopter.NewProperties(params)
	v := NewStringValidator()

	properties.Property("string validation never fails and is identity on strings", prop.ForAll(
		func(s string) bool {
			got, err := v.Validate(s)
			return err == nil && got == s
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

func TestValidationPropertiesConversionTable(t *testing.T) {
	params := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(params)

	typeGen := gen.OneConstOf(
		FieldTypeInteger, FieldTypeFloat, FieldTypeString, FieldTypeBoolean,
		FieldTypeDate, FieldTypeDatetime, FieldTypeSelect, FieldTypeMultiSelect,
	)

	properties.Property("identity conversions are never safe re-types", prop.ForAll(
		func(ft FieldType) bool { return !CanConvert(ft, ft) },
		typeGen,
	))

	properties.Property("everything converts to string except string itself", prop.ForAll(
		func(ft FieldType) bool {
			if ft == FieldTypeString {
				return !CanConvert(ft, FieldTypeString)
			}
			return CanConvert(ft, FieldTypeString)
		},
		typeGen,
	))

	properties.Property("count is valid for every type", prop.ForAll(
		func(ft FieldType) bool { return CanAggregate(ft, AggregationCount) },
		typeGen,
	))

	properties.TestingRun(t)
}
