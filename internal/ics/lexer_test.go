package ics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnfold(t *testing.T) {
	content := "BEGIN:VCALENDAR\r\nDESCRIPTION:first\r\n  half\r\n\tand more\r\n\r\nSUMMARY:x\nEND:VCALENDAR"
	lines := unfold(content)
	assert.Equal(t, []string{
		"BEGIN:VCALENDAR",
		"DESCRIPTION:first half" + "and more",
		"SUMMARY:x",
		"END:VCALENDAR",
	}, lines)
}

func TestParseProperty(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		prop   string
		value  string
		params map[string]string
	}{
		{"simple", "SUMMARY:Standup", "SUMMARY", "Standup", nil},
		{"lowercase_name", "summary:Standup", "SUMMARY", "Standup", nil},
		{"value_with_colon", "URL:https://example.com/x", "URL", "https://example.com/x", nil},
		{
			"params",
			"ATTENDEE;CN=Bob;ROLE=REQ-PARTICIPANT:mailto:bob@example.com",
			"ATTENDEE", "mailto:bob@example.com",
			map[string]string{"CN": "Bob", "ROLE": "REQ-PARTICIPANT"},
		},
		{
			"quoted_param",
			`ATTENDEE;CN="Doe, Jane; PhD":mailto:jane@example.com`,
			"ATTENDEE", "mailto:jane@example.com",
			map[string]string{"CN": "Doe, Jane; PhD"},
		},
		{
			"quoted_colon",
			`DTSTART;TZID="GMT+01:00":20240101T090000`,
			"DTSTART", "20240101T090000",
			map[string]string{"TZID": "GMT+01:00"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := parseProperty(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.prop, p.Name)
			assert.Equal(t, tt.value, p.Value)
			for k, v := range tt.params {
				assert.Equal(t, v, p.Param(k))
			}
		})
	}
}

func TestParsePropertyInvalid(t *testing.T) {
	_, err := parseProperty("NO VALUE HERE")
	assert.Error(t, err)

	_, err = parseProperty(":orphan")
	assert.Error(t, err)
}

func TestUnescapeText(t *testing.T) {
	assert.Equal(t, "a\nb, c; d\\e", unescapeText(`a\nb\, c\; d\\e`))
	assert.Equal(t, "upper\nN", unescapeText(`upper\NN`))
	assert.Equal(t, "plain", unescapeText("plain"))
	assert.Equal(t, `trailing\`, unescapeText(`trailing\`))
}
