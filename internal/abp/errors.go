package abp

import (
	"errors"
	"fmt"
)

// ErrMalformedLine marks a line too short or too empty to carry even a
// record type code. Such lines are skipped, never fatal.
var ErrMalformedLine = errors.New("malformed line")

// UnknownKindError reports a record type code with no catalog entry.
type UnknownKindError struct {
	Code string
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("unknown record type code %q", e.Code)
}

// RowError reports why a single row was rejected by the field mapper.
// Row rejection skips that row only; the file keeps streaming.
type RowError struct {
	Field  string
	Reason string
}

func (e *RowError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}
