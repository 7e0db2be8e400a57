package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPart struct {
	Text string `json:"text"`
}

type testMessage struct {
	Role  string     `json:"role" validate:"required,oneof=user model"`
	Parts []testPart `json:"parts" validate:"required,min=1"`
}

type testConversation struct {
	Messages []testMessage `json:"messages" validate:"required,min=1,dive"`
	Note     string        `validate:"max=5"`
}

func TestValidateStruct(t *testing.T) {
	t.Run("valid struct", func(t *testing.T) {
		s := testConversation{
			Messages: []testMessage{
				{Role: "user", Parts: []testPart{{Text: "Hello"}}},
			},
		}

		err := ValidateStruct(&s)
		assert.NoError(t, err)
	})

	t.Run("missing messages", func(t *testing.T) {
		s := testConversation{}

		err := ValidateStruct(&s)
		assert.Error(t, err)
		assert.True(t, IsValidationError(err))

		fields := GetValidationFields(err)
		assert.Contains(t, fields, "messages")
		assert.Equal(t, "messages is required", fields["messages"])
	})

	t.Run("empty messages", func(t *testing.T) {
		s := testConversation{Messages: []testMessage{}}

		err := ValidateStruct(&s)
		require.Error(t, err)

		fields := GetValidationFields(err)
		assert.Contains(t, fields, "messages")
	})

	t.Run("nested fields reported by path", func(t *testing.T) {
		s := testConversation{
			Messages: []testMessage{
				{Role: "user", Parts: []testPart{{Text: "Hi"}}},
				{Role: "assistant"},
			},
		}

		err := ValidateStruct(&s)
		require.Error(t, err)

		fields := GetValidationFields(err)
		assert.Equal(t, "messages[1].role must be one of: user model", fields["messages[1].role"])
		assert.Equal(t, "messages[1].parts is required", fields["messages[1].parts"])
		assert.NotContains(t, fields, "messages[0].role")
	})

	t.Run("field without json tag uses Go name", func(t *testing.T) {
		s := testConversation{
			Messages: []testMessage{{Role: "user", Parts: []testPart{{}}}},
			Note:     "too long",
		}

		err := ValidateStruct(&s)
		require.Error(t, err)

		fields := GetValidationFields(err)
		assert.Contains(t, fields, "Note")
	})
}

func TestNewValidationError(t *testing.T) {
	t.Run("creates validation error with field details", func(t *testing.T) {
		s := testConversation{Note: "way too long"}

		err := ValidateStruct(&s)
		require.Error(t, err)

		validationErr, ok := err.(*ValidationError)
		require.True(t, ok)

		assert.Equal(t, "Validation failed", validationErr.Message)
		assert.Len(t, validationErr.Fields, 2)
		assert.Contains(t, validationErr.Fields, "messages")
		assert.Contains(t, validationErr.Fields, "Note")
	})
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{
		Message: "Test validation error",
		Fields: map[string]string{
			"field1": "error1",
		},
	}

	assert.Equal(t, "Test validation error", err.Error())
}

func TestIsValidationError(t *testing.T) {
	t.Run("is validation error", func(t *testing.T) {
		err := &ValidationError{
			Message: "test",
			Fields:  map[string]string{},
		}

		assert.True(t, IsValidationError(err))
	})

	t.Run("is not validation error", func(t *testing.T) {
		err := assert.AnError

		assert.False(t, IsValidationError(err))
	})
}

func TestGetValidationFields(t *testing.T) {
	t.Run("gets fields from validation error", func(t *testing.T) {
		fields := map[string]string{
			"field1": "error1",
			"field2": "error2",
		}
		err := &ValidationError{
			Message: "test",
			Fields:  fields,
		}

		extracted := GetValidationFields(err)
		assert.Equal(t, fields, extracted)
	})

	t.Run("returns nil for non-validation error", func(t *testing.T) {
		err := assert.AnError

		extracted := GetValidationFields(err)
		assert.Nil(t, extracted)
	})
}
