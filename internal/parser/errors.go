package parser

import (
	"fmt"
	"strings"

	"github.com/manav03panchal/projecthub/internal/errors"
)

// TimeParseError represents a time parsing error with helpful suggestions.
type TimeParseError struct {
	Input      string
	Field      string
	Message    string
	Examples   []string
	Suggestion string
}

func (e *TimeParseError) Error() string {
	return fmt.Sprintf("invalid %s '%s': %s", e.Field, e.Input, e.Message)
}

// NewTimeParseError creates a new time parse error with examples.
func NewTimeParseError(field, input, message string, examples ...string) *TimeParseError {
	return &TimeParseError{
		Input:    input,
		Field:    field,
		Message:  message,
		Examples: examples,
	}
}

// FormatWithExamples returns the error message with example suggestions.
func (e *TimeParseError) FormatWithExamples() string {
	var sb strings.Builder
	sb.WriteString(e.Error())

	if len(e.Examples) > 0 {
		sb.WriteString("\n\nValid examples:\n")
		for _, ex := range e.Examples {
			sb.WriteString("  - ")
			sb.WriteString(ex)
			sb.WriteString("\n")
		}
	}

	if e.Suggestion != "" {
		sb.WriteString("\n")
		sb.WriteString(e.Suggestion)
	}

	return sb.String()
}

// DurationExamples provides example duration formats.
var DurationExamples = []string{
	"15m",
	"1h30m",
	"2 hours",
	"1d",
	"2.5h",
}

// TimestampExamples provides example timestamp formats.
var TimestampExamples = []string{
	"today",
	"tomorrow 9am",
	"next friday",
	"2026-01-15 14:00",
	"now",
}

// DueDateExamples provides example due date formats.
var DueDateExamples = []string{
	"+2d",
	"+1h",
	"tomorrow at 3pm",
	"friday 5pm",
	"next monday",
}

// DateRangeExamples provides example date range formats.
var DateRangeExamples = []string{
	"today",
	"this week",
	"next week",
	"--from today --to 'next friday'",
}

// NewDurationError creates a duration parse error with standard examples.
func NewDurationError(input string) *TimeParseError {
	return &TimeParseError{
		Input:      input,
		Field:      "duration",
		Message:    "could not parse duration",
		Examples:   DurationExamples,
		Suggestion: "Durations can be given in days (d), hours (h), minutes (m) or seconds (s).",
	}
}

// NewTimestampError creates a timestamp parse error with standard examples.
func NewTimestampError(input string) *TimeParseError {
	return &TimeParseError{
		Input:      input,
		Field:      "time",
		Message:    "could not parse time",
		Examples:   TimestampExamples,
		Suggestion: "Try natural language like 'tomorrow 9am' or 'next friday'.",
	}
}

// NewDueDateError creates a due date parse error with standard examples.
func NewDueDateError(input string) *TimeParseError {
	return &TimeParseError{
		Input:      input,
		Field:      "due date",
		Message:    "could not parse due date",
		Examples:   DueDateExamples,
		Suggestion: "Due dates can be relative (+2d) or absolute (friday 5pm).",
	}
}

// NewDateRangeError creates a date range parse error with standard examples.
func NewDateRangeError(input string) *TimeParseError {
	return &TimeParseError{
		Input:      input,
		Field:      "date range",
		Message:    "end must be after start",
		Examples:   DateRangeExamples,
		Suggestion: "Use period names like 'today' or 'this week', or give --from and --to.",
	}
}

// ToUserError converts a TimeParseError to a UserError for consistent handling.
func (e *TimeParseError) ToUserError() *errors.UserError {
	suggestion := e.Suggestion
	if len(e.Examples) > 0 && suggestion == "" {
		suggestion = fmt.Sprintf("Try: %s", strings.Join(e.Examples[:min(3, len(e.Examples))], ", "))
	}
	return errors.NewUserErrorWithField(e.Field, e.Input, e.Message, suggestion)
}

// AsUserError converts any parse error into a UserError; other errors pass through.
func AsUserError(err error) error {
	var tpe *TimeParseError
	if errors.As(err, &tpe) {
		return tpe.ToUserError()
	}
	return err
}
