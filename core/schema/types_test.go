package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegerValidator(t *testing.T) {
	v := NewIntegerValidator()

	tests := []struct {
		name    string
		input   any
		want    any
		wantErr bool
	}{
		{"int passes through", 5, int64(5), false},
		{"int64 passes through", int64(-10), int64(-10), false},
		{"float truncates toward zero", 3.9, int64(3), false},
		{"negative float truncates toward zero", -3.9, int64(-3), false},
		{"numeric string parses", "42", int64(42), false},
		{"padded string parses", "  7 ", int64(7), false},
		{"bool rejected", true, nil, true},
		{"false rejected", false, nil, true},
		{"fractional string rejected", "3.5", nil, true},
		{"word rejected", "many", nil, true},
		{"slice rejected", []int{1}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Validate(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				var valErr *ValueError
				require.ErrorAs(t, err, &valErr)
				assert.Equal(t, FieldTypeInteger, valErr.Type)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFloatValidator(t *testing.T) {
	v := NewFloatValidator()

	got, err := v.Validate(3)
	require.NoError(t, err)
	assert.Equal(t, float64(3), got)

	got, err = v.Validate("2.5")
	require.NoError(t, err)
	assert.Equal(t, 2.5, got)

	got, err = v.Validate(1.25)
	require.NoError(t, err)
	assert.Equal(t, 1.25, got)

	_, err = v.Validate(true)
	require.Error(t, err)

	_, err = v.Validate("not a number")
	require.Error(t, err)
}

func TestStringValidatorNeverFails(t *testing.T) {
	v := NewStringValidator()

	for _, input := range []any{"hello", 5, 2.5, true, []string{"a"}} {
		_, err := v.Validate(input)
		require.NoError(t, err)
	}

	got, err := v.Validate(42)
	require.NoError(t, err)
	assert.Equal(t, "42", got)
}

func TestBooleanValidator(t *testing.T) {
	v := NewBooleanValidator()

	tests := []struct {
		input   any
		want    bool
		wantErr bool
	}{
		{true, true, false},
		{false, false, false},
		{"true", true, false},
		{"YES", true, false},
		{"1", true, false},
		{"false", false, false},
		{"No", false, false},
		{"0", false, false},
		{1, true, false},
		{0, false, false},
		{"maybe", false, true},
		{2, false, true},
		{2.5, false, true},
	}
	for _, tt := range tests {
		got, err := v.Validate(tt.input)
		if tt.wantErr {
			assert.Error(t, err, "input %v", tt.input)
			continue
		}
		require.NoError(t, err, "input %v", tt.input)
		assert.Equal(t, tt.want, got, "input %v", tt.input)
	}
}

func TestDateValidator(t *testing.T) {
	v := NewDateValidator()

	got, err := v.Validate("2024-06-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), got)

	stamp := time.Date(2024, 6, 15, 13, 45, 12, 0, time.UTC)
	got, err = v.Validate(stamp)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), got, "time of day is discarded")

	_, err = v.Validate("15/06/2024")
	require.Error(t, err)

	_, err = v.Validate(20240615)
	require.Error(t, err)
}

func TestDatetimeValidator(t *testing.T) {
	v := NewDatetimeValidator()

	want := time.Date(2024, 6, 15, 13, 45, 12, 0, time.UTC)

	got, err := v.Validate("2024-06-15T13:45:12")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = v.Validate("2024-06-15 13:45:12")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = v.Validate(want)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = v.Validate("2024-06-15")
	require.Error(t, err)
}

func TestSelectValidator(t *testing.T) {
	v := NewSelectValidator().(*SelectValidator)
	v.SetOptions([]string{"pending", "active", "done"})

	got, err := v.Validate("active")
	require.NoError(t, err)
	assert.Equal(t, "active", got)

	_, err = v.Validate("archived")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "active, done, pending")
}

func TestSelectValidatorWithoutOptions(t *testing.T) {
	v := NewSelectValidator()
	_, err := v.Validate("anything")
	require.Error(t, err)
}

func TestMultiSelectValidator(t *testing.T) {
	v := NewMultiSelectValidator().(*MultiSelectValidator)
	v.SetOptions([]string{"red", "green", "blue"})

	got, err := v.Validate([]string{"blue", "red"})
	require.NoError(t, err)
	assert.Equal(t, []string{"blue", "red"}, got)

	got, err = v.Validate("green, red")
	require.NoError(t, err)
	assert.Equal(t, []string{"green", "red"}, got, "comma-split and sorted")

	got, err = v.Validate([]any{"red"})
	require.NoError(t, err)
	assert.Equal(t, []string{"red"}, got)

	got, err = v.Validate("")
	require.NoError(t, err)
	assert.Equal(t, []string{}, got)

	_, err = v.Validate([]string{"red", "purple"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "purple")

	_, err = v.Validate(42)
	require.Error(t, err)
}

func TestValidateDefaultPassesNilThrough(t *testing.T) {
	reg := NewRegistry()
	for _, ft := range reg.Types() {
		v, err := reg.Validator(ft)
		require.NoError(t, err)
		got, err := v.ValidateDefault(nil)
		require.NoError(t, err, "type %s", ft)
		assert.Nil(t, got, "type %s", ft)
	}
}

func TestCapabilitiesFollowTables(t *testing.T) {
	intV := NewIntegerValidator()
	assert.True(t, intV.CanConvertFrom(FieldTypeString))
	assert.False(t, intV.CanConvertFrom(FieldTypeFloat))
	assert.True(t, intV.CanAggregate(AggregationSum))
	assert.True(t, intV.CanAggregate(AggregationCount))

	boolV := NewBooleanValidator()
	assert.False(t, boolV.CanConvertFrom(FieldTypeInteger))
	assert.False(t, boolV.CanAggregate(AggregationSum))
	assert.True(t, boolV.CanAggregate(AggregationCount))

	dateV := NewDateValidator()
	assert.True(t, dateV.CanAggregate(AggregationMin))
	assert.True(t, dateV.CanAggregate(AggregationMax))
	assert.False(t, dateV.CanAggregate(AggregationAvg))
}
