package record

import (
	"fmt"

	"github.com/ondbase/kvjournal/utils/codec"
	"github.com/ondbase/kvjournal/utils/log"
)

// ShortReadError marks a pread that returned fewer bytes than asked
// for. During recovery this is a normal outcome of a crash mid-write
// and is treated as end-of-log, not a failure.
type ShortReadError string

func (msg ShortReadError) Error() string {
	return errReport("%s: unexpectedly short read", string(msg))
}

// CorruptEntryError marks an entry with an unrecognized type or an
// impossible size, encountered during recovery. Unlike ShortReadError
// this aborts recovery with an I/O-error status.
type CorruptEntryError string

func (msg CorruptEntryError) Error() string {
	return errReport("%s: corrupt journal entry", string(msg))
}

func errReport(base, msg string) string {
	base = codec.GetCallerFileContext(2) + ": " + base
	log.Error(base, msg)
	return fmt.Sprintf(base, msg)
}
