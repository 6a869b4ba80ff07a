package core

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFormat is returned for declared media types outside the
// configured set. Callers usually skip such inputs.
var ErrUnsupportedFormat = errors.New("unsupported format")

// DecodeError reports malformed content within a supported format.
type DecodeError struct {
	Format FormatTag
	Err    error
}

// NewDecodeError builds a DecodeError with a formatted reason.
func NewDecodeError(format FormatTag, msg string, args ...any) *DecodeError {
	return &DecodeError{Format: format, Err: fmt.Errorf(msg, args...)}
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// FileError ties a processing failure to the file it happened on.
type FileError struct {
	Name string
	Err  error
}

func (e FileError) Error() string {
	return fmt.Sprintf("Failed to process %s: %v", e.Name, e.Err)
}

func (e FileError) Unwrap() error { return e.Err }

// IsDecodeError reports whether err wraps a *DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
