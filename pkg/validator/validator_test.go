package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{
		Field:   "groupCount",
		Message: "is required",
	}

	result := err.Error()

	assert.Equal(t, "groupCount: is required", result)
}

func TestValidationErrors_Error_Empty(t *testing.T) {
	var errs ValidationErrors

	result := errs.Error()

	assert.Equal(t, "", result)
}

func TestValidationErrors_Error_Multiple(t *testing.T) {
	errs := ValidationErrors{
		{Field: "gameTypes", Message: "is required"},
		{Field: "groupCount", Message: "too small"},
	}

	result := errs.Error()

	assert.Contains(t, result, "validation errors:")
	assert.Contains(t, result, "gameTypes: is required")
	assert.Contains(t, result, "groupCount: too small")
}

func TestValidationErrors_HasErrors(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		var errs ValidationErrors
		assert.False(t, errs.HasErrors())
	})

	t.Run("with errors", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "test", Message: "error"},
		}
		assert.True(t, errs.HasErrors())
	})
}

func TestValidationErrors_Add(t *testing.T) {
	var errs ValidationErrors

	errs.Add("gameTypes", "is required")
	errs.Add("groupCount", "too small")

	require.Len(t, errs, 2)
	assert.Equal(t, "gameTypes", errs[0].Field)
	assert.Equal(t, "groupCount", errs[1].Field)
}

func TestValidateRequired_Valid(t *testing.T) {
	err := ValidateRequired("name", "RockPaperScissors")

	assert.NoError(t, err)
}

func TestValidateRequired_Empty(t *testing.T) {
	err := ValidateRequired("name", "")

	require.Error(t, err)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "name", validationErr.Field)
	assert.Contains(t, validationErr.Message, "required")
}

func TestValidateLength_Valid(t *testing.T) {
	tests := []struct {
		name  string
		value string
		min   int
		max   int
	}{
		{"exact min", "abc", 3, 10},
		{"exact max", "abcdefghij", 3, 10},
		{"in range", "abcde", 3, 10},
		{"no max", "abcde", 3, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateLength("field", tc.value, tc.min, tc.max)
			assert.NoError(t, err)
		})
	}
}

func TestValidateLength_TooShort(t *testing.T) {
	err := ValidateLength("name", "ab", 3, 10)

	require.Error(t, err)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Message, "at least 3 characters")
}

func TestValidateLength_TooLong(t *testing.T) {
	err := ValidateLength("name", "abcdefghijk", 3, 10)

	require.Error(t, err)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Message, "too long")
}

func TestValidateRange_Valid(t *testing.T) {
	tests := []struct {
		name  string
		value int
		min   int
		max   int
	}{
		{"exact min", 1, 1, 10},
		{"exact max", 10, 1, 10},
		{"in range", 5, 1, 10},
		{"no max", 100, 1, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateRange("field", tc.value, tc.min, tc.max)
			assert.NoError(t, err)
		})
	}
}

func TestValidateRange_TooSmall(t *testing.T) {
	err := ValidateRange("groupCount", 0, 1, 10)

	require.Error(t, err)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Message, "at least 1")
}

func TestValidateRange_TooLarge(t *testing.T) {
	err := ValidateRange("groupCount", 11, 1, 10)

	require.Error(t, err)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Message, "at most 10")
}

func TestValidateEnum_Valid(t *testing.T) {
	allowed := []string{"NotStarted", "InProgress", "Completed", "Cancelled"}

	err := ValidateEnum("state", "InProgress", allowed)

	assert.NoError(t, err)
}

func TestValidateEnum_Invalid(t *testing.T) {
	allowed := []string{"NotStarted", "InProgress", "Completed", "Cancelled"}

	err := ValidateEnum("state", "Unknown", allowed)

	require.Error(t, err)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Message, "must be one of")
}

func TestValidateEnum_EmptyAllowed(t *testing.T) {
	err := ValidateEnum("state", "any", []string{})

	require.Error(t, err)
}

func BenchmarkValidateRange(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = ValidateRange("groupCount", 5, 1, 10)
	}
}

func BenchmarkValidateEnum(b *testing.B) {
	allowed := []string{"NotStarted", "InProgress", "Completed", "Cancelled"}
	for i := 0; i < b.N; i++ {
		_ = ValidateEnum("state", "InProgress", allowed)
	}
}
