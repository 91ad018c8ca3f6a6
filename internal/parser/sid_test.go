package parser

import (
	"strings"
	"testing"

	"github.com/manav03panchal/projecthub/internal/validate"
	"github.com/stretchr/testify/assert"
)

func TestValidateSID(t *testing.T) {
	tests := []struct {
		name     string
		sid      string
		expected bool
	}{
		// Valid SIDs
		{"simple_lowercase", "myproject", true},
		{"with_hyphen", "my-project", true},
		{"with_underscore", "my_project", true},
		{"with_period", "my.project", true},
		{"mixed", "my-project_123.v2", true},
		{"uppercase", "MyProject", true},

		// Invalid SIDs
		{"empty", "", false},
		{"too_long", strings.Repeat("a", validate.MaxSIDLength+1), false},
		{"with_space", "my project", false},
		{"with_special_chars", "my@project", false},
		{"leading_hyphen", "-project", false},

		// Reserved SIDs
		{"reserved_edit", "edit", false},
		{"reserved_list", "list", false},
		{"reserved_all", "all", false},
		{"reserved_case_insensitive", "EDIT", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSID(tt.sid), "ValidateSID(%q)", tt.sid)
		})
	}
}

func TestConvertToSID(t *testing.T) {
	tests := []struct {
		name        string
		displayName string
		expected    string
	}{
		{"simple", "My Project", "my-project"},
		{"with_special_chars", "My Client Project!", "my-client-project"},
		{"multiple_spaces", "My  Project", "my-project"},
		{"tabs", "Q3\tLaunch", "q3-launch"},
		{"leading_trailing_spaces", "  My Project  ", "my-project"},
		{"with_numbers", "Project 123", "project-123"},
		{"underscore_preserved", "my_project", "my_project"},
		{"period_preserved", "my.project", "my.project"},
		{"complex", "Client: Acme Corp. (2023)", "client-acme-corp.-2023"},
		{"non_ascii_dropped", "Café Roadmap", "caf-roadmap"},
		{"only_special", "!@#$%", ""},
		{"mixed_hyphens", "my---project", "my-project"},
		{"leading_period", ".hidden", "hidden"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ConvertToSID(tt.displayName)
			assert.Equal(t, tt.expected, result, "ConvertToSID(%q)", tt.displayName)
			if result != "" {
				assert.NoError(t, validate.SID(result))
			}
		})
	}
}

func TestConvertToSIDTruncation(t *testing.T) {
	result := ConvertToSID(strings.Repeat("ab-", 40))
	assert.LessOrEqual(t, len(result), validate.MaxSIDLength)
	assert.False(t, strings.HasSuffix(result, "-"))
}

func TestNormalizeSID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"valid_sid", "myproject", "myproject"},
		{"needs_conversion", "My Project", "my-project"},
		{"with_whitespace", "  myproject  ", "myproject"},
		{"reserved_kept_as_is", "list", "list"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeSID(tt.input), "NormalizeSID(%q)", tt.input)
		})
	}
}
