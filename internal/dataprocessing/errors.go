package dataprocessing

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrHeaderMismatch is returned when the first CSV row is not the expected header.
	ErrHeaderMismatch = errors.New("header mismatch")
	// ErrRowDeserialization marks a data row that could not be turned into an ActionRow.
	ErrRowDeserialization = errors.New("row deserialization failed")
	// ErrInvalidTimestamp marks an empty or malformed "Time Stamp[Hr:Min:Sec]" value.
	ErrInvalidTimestamp = errors.New("invalid timestamp")
)

// HeaderError reports a header row that does not start with the expected columns.
type HeaderError struct {
	Expected []string
	Actual   []string
	Cause    error
}

func (e *HeaderError) Error() string {
	msg := fmt.Sprintf("Line 1: expected %s as the header row of csv but got %s",
		quoteList(e.Expected), quoteList(e.Actual))
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return "Header parsing errors: " + msg
}

func (e *HeaderError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrHeaderMismatch, e.Cause}
	}
	return []error{ErrHeaderMismatch}
}

// RowError reports a data row that failed to deserialize. The stream stays usable.
type RowError struct {
	Index int // zero-based data row index, header excluded
	Line  int // 1-based line in the source, 0 when unknown
	Cause error
}

func (e *RowError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("Could not deserialize row: line %d: %v", e.Line, e.Cause)
	}
	return fmt.Sprintf("Could not deserialize row: %v", e.Cause)
}

func (e *RowError) Unwrap() []error {
	return []error{ErrRowDeserialization, e.Cause}
}

// IsRowError reports whether err is a recoverable per-row failure.
func IsRowError(err error) bool {
	var re *RowError
	return errors.As(err, &re)
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
