package runtime

import (
	"errors"
	"fmt"
	"strings"
	"syscall"

	perrors "github.com/manav03panchal/projecthub/internal/errors"
)

// ErrDiskFull is returned when the database cannot be written for lack of space.
var ErrDiskFull = errors.New("disk full: unable to write to database")

// FormatError renders an error for the terminal: the message, then the
// suggestion on its own line when one is known.
func FormatError(err error) string {
	msg := err.Error()
	if ue, ok := perrors.AsUserError(err); ok {
		msg = ue.Message
		if ue.Field != "" && ue.Value != "" {
			msg = fmt.Sprintf("%s (%s: %q)", ue.Message, ue.Field, ue.Value)
		}
	}
	if suggestion := GetSuggestion(err); suggestion != "" {
		msg += "\n" + suggestion
	}
	return msg
}

// GetSuggestion returns a suggestion for an error, if available.
func GetSuggestion(err error) string {
	if errors.Is(err, ErrDiskFull) {
		return "Free up disk space and try again."
	}
	return perrors.GetSuggestion(err)
}

// DiskFullError represents a disk full condition with additional context.
type DiskFullError struct {
	Op      string // The operation that failed (e.g., "write", "open")
	Path    string
	wrapped error
}

func (e *DiskFullError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("disk full during %s on %s: %v", e.Op, e.Path, e.wrapped)
	}
	return fmt.Sprintf("disk full during %s: %v", e.Op, e.wrapped)
}

func (e *DiskFullError) Unwrap() error {
	return ErrDiskFull
}

// NewDiskFullError creates a new DiskFullError.
func NewDiskFullError(op, path string, err error) *DiskFullError {
	return &DiskFullError{Op: op, Path: path, wrapped: err}
}

var diskFullPatterns = []string{
	"no space left on device",
	"disk full",
	"enospc",
	"not enough space",
	"insufficient disk space",
}

// IsDiskFullError checks for ENOSPC and the messages Badger and the OS use
// for a full disk.
func IsDiskFullError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDiskFull) {
		return true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) && errno == syscall.ENOSPC {
		return true
	}

	errStr := strings.ToLower(err.Error())
	for _, pattern := range diskFullPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

// WrapDiskFullError wraps err as a DiskFullError when it indicates a full
// disk and returns it unchanged otherwise.
func WrapDiskFullError(err error, op, path string) error {
	if err == nil {
		return nil
	}
	if IsDiskFullError(err) {
		return NewDiskFullError(op, path, err)
	}
	return err
}
