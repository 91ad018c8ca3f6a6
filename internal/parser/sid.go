// Package parser turns the loose text users type on the command line into
// times, durations and identifiers for ProjectHub.
package parser

import (
	"strings"
	"unicode"

	"github.com/manav03panchal/projecthub/internal/validate"
)

// reservedSIDs collide with subcommand names.
var reservedSIDs = map[string]bool{
	"edit":   true,
	"create": true,
	"delete": true,
	"list":   true,
	"show":   true,
	"set":    true,
	"all":    true,
}

// ValidateSID checks if a string is a usable project SID.
func ValidateSID(sid string) bool {
	if reservedSIDs[strings.ToLower(sid)] {
		return false
	}
	return validate.SID(sid) == nil
}

// ConvertToSID converts a display name to a valid SID.
// Example: "My Client Project!" -> "my-client-project"
func ConvertToSID(displayName string) string {
	result := strings.ToLower(strings.TrimSpace(displayName))
	result = strings.Join(strings.Fields(result), "-")

	var sb strings.Builder
	for _, r := range result {
		if r <= unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) || strings.ContainsRune("-_.", r) {
			sb.WriteRune(r)
		}
	}
	result = sb.String()

	for strings.Contains(result, "--") {
		result = strings.ReplaceAll(result, "--", "-")
	}
	result = strings.Trim(result, "-_.")

	if len(result) > validate.MaxSIDLength {
		result = strings.TrimRight(result[:validate.MaxSIDLength], "-_.")
	}
	return result
}

// NormalizeSID returns input if it is already a valid SID, otherwise the
// SID derived from it.
func NormalizeSID(input string) string {
	input = strings.TrimSpace(input)
	if ValidateSID(input) {
		return input
	}
	return ConvertToSID(input)
}
