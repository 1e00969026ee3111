package auditlog

import (
	"errors"
	"fmt"
)

var (
	// ErrNotEnabled is returned when the audit configuration is incomplete.
	ErrNotEnabled = errors.New("auditlog: reader not enabled")

	// ErrInvalidScope is returned for a malformed account/store/space triple.
	ErrInvalidScope = errors.New("auditlog: invalid scope")

	// ErrListing wraps failures to enumerate the log objects of a scope.
	ErrListing = errors.New("auditlog: list log objects")

	// ErrContent matches every *ContentError.
	ErrContent = errors.New("auditlog: log object content")
)

// ContentError reports a fetch or read failure on one log object after the
// stream was handed to the caller. Readers of the stream receive it in place
// of io.EOF.
type ContentError struct {
	Key string
	Op  string // "fetch" or "read"
	Err error
}

func (e *ContentError) Error() string {
	return fmt.Sprintf("auditlog: %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *ContentError) Unwrap() error { return e.Err }

func (e *ContentError) Is(target error) bool { return target == ErrContent }
