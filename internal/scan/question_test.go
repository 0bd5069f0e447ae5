package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercase", "First Name", "first name"},
		{"punctuation", "What's your e-mail?", "what s your e mail"},
		{"collapse whitespace", "  years   of\texperience ", "years of experience"},
		{"trailing punctuation", "Phone number:", "phone number"},
		{"digits kept", "Question 2 of 5", "question 2 of 5"},
		{"empty", "", ""},
		{"only punctuation", "***", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"are", "you", "authorized"}, Tokens("Are you authorized?"))
	assert.Nil(t, Tokens("  ?! "))
}

func TestTokenOverlap(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "first name", "First Name?", 1.0},
		{"disjoint", "first name", "salary expectation", 0.0},
		{"partial", "years of experience", "years of python experience", 0.75},
		{"empty side", "", "first name", 0.0},
		{"duplicate tokens counted once", "name name name", "name", 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, TokenOverlap(tt.a, tt.b), 0.001)
		})
	}
}

func TestIsSentinelOption(t *testing.T) {
	assert.True(t, isSentinelOption(""))
	assert.True(t, isSentinelOption("  "))
	assert.True(t, isSentinelOption("---"))
	assert.True(t, isSentinelOption("Select one"))
	assert.True(t, isSentinelOption("Please select"))
	assert.True(t, isSentinelOption("Select a country"))
	assert.True(t, isSentinelOption("Choose an option"))

	// "None" is a legitimate answer (e.g. veteran status) and must survive.
	assert.False(t, isSentinelOption("None"))
	assert.False(t, isSentinelOption("United States"))
	assert.False(t, isSentinelOption("Self-select disability status and more words"))
}

func TestCleanOptions(t *testing.T) {
	got := CleanOptions([]string{
		"Select one",
		"  Male ",
		"Female",
		"male", // case-insensitive duplicate
		"--",
		"None",
	})
	assert.Equal(t, []string{"Male", "Female", "None"}, got)
}

func TestHumanizeName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"firstName", "first name"},
		{"first_name", "first name"},
		{"job_application[first_name]", "first name"},
		{"candidate.phone-number", "phone number"},
		{"EEOGender", "e e o gender"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HumanizeName(tt.input), "input %q", tt.input)
	}
}

func TestFieldTypeIsEnumerated(t *testing.T) {
	assert.True(t, FieldRadio.IsEnumerated())
	assert.True(t, FieldSelectNative.IsEnumerated())
	assert.True(t, FieldDropdownCustom.IsEnumerated())
	assert.False(t, FieldText.IsEnumerated())
	assert.False(t, FieldFile.IsEnumerated())
	assert.False(t, FieldCheckbox.IsEnumerated())
}
