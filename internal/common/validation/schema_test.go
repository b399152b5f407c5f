package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const personSchema = `{
  "type": "object",
  "required": ["name", "age"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "age": {"type": "integer", "minimum": 0}
  }
}`

func TestSchema_ValidateBytes(t *testing.T) {
	schema := MustCompileSchema(personSchema)

	tests := []struct {
		name       string
		doc        string
		valid      bool
		errorField string
	}{
		{name: "valid", doc: `{"name":"a","age":3}`, valid: true},
		{name: "missing age", doc: `{"name":"a"}`, valid: false, errorField: "age"},
		{name: "negative age", doc: `{"name":"a","age":-1}`, valid: false, errorField: "age"},
		{name: "empty name", doc: `{"name":"","age":1}`, valid: false, errorField: "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := schema.ValidateBytes([]byte(tt.doc))
			require.NoError(t, err)
			assert.Equal(t, tt.valid, res.Valid)
			if !tt.valid {
				assert.True(t, res.HasErrors(tt.errorField), res.GetErrorMessages())
			}
		})
	}
}

func TestSchema_ValidateBytesRejectsNonJSON(t *testing.T) {
	schema := MustCompileSchema(personSchema)
	_, err := schema.ValidateBytes([]byte("{not json"))
	assert.Error(t, err)
}

func TestCompileSchema_Invalid(t *testing.T) {
	_, err := CompileSchema(`{"type": 12}`)
	assert.Error(t, err)
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"jane@example.com", true},
		{"first.last+tag@sub.example.co", true},
		{"not-an-email", false},
		{"a@b", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidateEmail(tt.email))
		})
	}
}

func TestSplitRecipients(t *testing.T) {
	got := SplitRecipients(" a@example.com, b@example.com;;c@example.com ,")
	assert.Equal(t, []string{"a@example.com", "b@example.com", "c@example.com"}, got)
	assert.Empty(t, SplitRecipients(" ; , "))
}

func TestValidationResult_Add(t *testing.T) {
	res := &ValidationResult{Valid: true}
	res.Add("answers.11", "question index out of range", "OUT_OF_RANGE")
	assert.False(t, res.Valid)
	assert.Equal(t, []string{"answers.11: question index out of range"}, res.GetErrorMessages())
}
