package dataset

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupportedFormat is returned for a file path that is neither a CSV
	// file nor a zip archive.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrNoCSVFiles is returned when a directory or archive holds no CSV.
	ErrNoCSVFiles = errors.New("no CSV files found")
)

// SchemaMismatchError indicates a source whose header lacks required
// canonical columns. It aborts the load.
type SchemaMismatchError struct {
	Source  string
	Missing []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch in %s: missing required columns [%s]",
		e.Source, strings.Join(e.Missing, ", "))
}

// SkipReason classifies why a row was excluded.
type SkipReason string

const (
	ReasonMalformedRow      SkipReason = "malformed_row"
	ReasonFieldCount        SkipReason = "field_count"
	ReasonMissingField      SkipReason = "missing_field"
	ReasonInvalidEnum       SkipReason = "invalid_enum"
	ReasonInvalidTime       SkipReason = "invalid_time"
	ReasonEndBeforeStart    SkipReason = "end_before_start"
	ReasonInvalidCoordinate SkipReason = "invalid_coordinate"
	ReasonInvalidNumber     SkipReason = "invalid_number"
	ReasonDuplicateID       SkipReason = "duplicate_id"
)

// RowValidationWarning describes one excluded row. It is not fatal.
type RowValidationWarning struct {
	Source string     `json:"source"`
	Line   int        `json:"line"`
	Reason SkipReason `json:"reason"`
	Detail string     `json:"detail,omitempty"`
}

func (w RowValidationWarning) Error() string {
	if w.Detail == "" {
		return fmt.Sprintf("%s:%d: %s", w.Source, w.Line, w.Reason)
	}
	return fmt.Sprintf("%s:%d: %s: %s", w.Source, w.Line, w.Reason, w.Detail)
}

// rowError is the internal result of validating a single row.
type rowError struct {
	reason SkipReason
	detail string
}

func skip(reason SkipReason, format string, args ...any) *rowError {
	return &rowError{reason: reason, detail: fmt.Sprintf(format, args...)}
}
