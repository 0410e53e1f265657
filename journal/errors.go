package journal

import (
	"errors"
	"fmt"

	"github.com/ondbase/kvjournal/journal/record"
)

// ErrKeyNotFound is the sentinel a Database implementation must return
// from Erase when the key is absent, so recovery can absorb it (the
// key may have been erased before the changeset and the tombstone not
// yet re-logged; spec §4.6).
var ErrKeyNotFound = errors.New("journal: key not found")

// CreateError wraps a failure creating a fresh journal file pair.
type CreateError struct{ Err error }

func (e *CreateError) Error() string { return fmt.Sprintf("journal: create failed: %v", e.Err) }
func (e *CreateError) Unwrap() error { return e.Err }

// OpenError wraps a failure opening an existing journal file pair.
type OpenError struct{ Err error }

func (e *OpenError) Error() string { return fmt.Sprintf("journal: open failed: %v", e.Err) }
func (e *OpenError) Unwrap() error { return e.Err }

// ReplayError marks a failure during recovery. Cont indicates whether
// the caller may treat this as a normal truncated-tail outcome and
// continue (true), or must propagate it as a fatal status (false).
type ReplayError struct {
	Msg string
	Cont bool
}

func (e *ReplayError) Error() string {
	return fmt.Sprintf("journal: replay error (cont=%v): %s", e.Cont, e.Msg)
}

func shortReadError(msg string) error {
	return record.ShortReadError(msg)
}

func isShortRead(err error) bool {
	var sre record.ShortReadError
	return errors.As(err, &sre)
}
