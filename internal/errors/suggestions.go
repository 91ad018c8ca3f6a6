package errors

import "errors"

// Suggestions maps sentinel errors to a next step for the user.
var Suggestions = map[error]string{
	ErrProjectNotFound:    "Use 'projecthub project' to see available projects.",
	ErrProjectExists:      "Pick a different --sid or edit the existing project.",
	ErrTaskNotFound:       "Use 'projecthub task list --all' to see task IDs.",
	ErrCalendarNotFound:   "Use 'projecthub calendar list' to see connected calendars.",
	ErrEventNotFound:      "Use 'projecthub events' to see synced event IDs.",
	ErrWebhookNotFound:    "Use 'projecthub webhook list' to see configured webhooks.",
	ErrAmbiguousID:        "Type more characters of the ID.",
	ErrInvalidSID:         "SIDs must be alphanumeric with dashes, underscores, or periods (max 32 chars).",
	ErrInvalidStatus:      "Valid statuses: todo, in_progress, review, done.",
	ErrInvalidPriority:    "Valid priorities: low, medium, high, urgent.",
	ErrInvalidTimestamp:   "Try formats like 'tomorrow 5pm', 'next friday', '2025-03-01' or '+2h'.",
	ErrInvalidDuration:    "Try formats like '15m', '1h30m' or '2 hours'.",
	ErrInvalidColor:       "Use hex color format like '#FF5733'.",
	ErrInvalidURL:         "Provide an https:// or webcal:// URL (http:// is allowed for localhost).",
	ErrInvalidFeed:        "Check that the URL serves a .ics file and is not a login page.",
	ErrSyncInProgress:     "Another sync for this calendar is running. Try again in a minute.",
	ErrCalendarDisabled:   "Enable it with 'projecthub calendar enable <id>'.",
	ErrDatabaseCorrupted:  "Move the data directory aside and re-add your calendars.",
	ErrNetworkUnavailable: "Check your internet connection. The daemon retries automatically.",
	ErrTimeout:            "The operation took too long. Try again or check your network connection.",
	ErrPermissionDenied:   "Check file permissions in your data directory (~/.local/share/projecthub/).",
}

// GetSuggestion returns the suggestion for the first known error in the chain,
// falling back to a UserError's own suggestion.
func GetSuggestion(err error) string {
	if err == nil {
		return ""
	}
	if ue, ok := AsUserError(err); ok && ue.Suggestion != "" {
		return ue.Suggestion
	}
	for known, suggestion := range Suggestions {
		if errors.Is(err, known) {
			return suggestion
		}
	}
	return ""
}
