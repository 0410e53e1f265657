package journal

// writeBuffer is a per-file, in-memory growable byte accumulator (spec
// §4.3). Entries are appended here first; flush writes the whole
// buffer to the file and clears it, optionally fsyncing.
//
// overwrite patches an already-buffered region in place. This exists
// because an entry's FollowupSize (and the per-type payload header's
// compressed-size fields) are written before the payload when the
// payload may end up compressed: the header position recorded before
// the first append must stay valid, which requires that no automatic
// flush happen between writing a header and patching it. Callers must
// only call maybeFlush at entry boundaries, never mid-entry.
type writeBuffer struct {
	buf []byte
}

// flushThreshold is the size-triggered watermark at or above which an
// automatic, non-fsyncing flush occurs on the next entry boundary.
const flushThreshold = 256 * 1024

func (b *writeBuffer) size() int { return len(b.buf) }

// append appends data to the buffer and returns the offset at which it
// was written, so the caller can later overwrite that region once the
// entry's final size is known.
func (b *writeBuffer) append(data []byte) int {
	pos := len(b.buf)
	b.buf = append(b.buf, data...)
	return pos
}

// overwrite patches the region [pos, pos+len(data)) in place. pos must
// have been returned by append on this buffer since the last clear.
func (b *writeBuffer) overwrite(pos int, data []byte) {
	copy(b.buf[pos:pos+len(data)], data)
}

func (b *writeBuffer) clear() {
	b.buf = b.buf[:0]
}

// flush writes the whole buffer to f, optionally fsyncs, then clears
// the buffer. A zero-length buffer is a no-op (no open/seek churn).
func (b *writeBuffer) flush(f *file, fsync bool) error {
	if len(b.buf) == 0 {
		return nil
	}
	if err := f.append(b.buf); err != nil {
		return err
	}
	if fsync {
		if err := f.fsync(); err != nil {
			return err
		}
	}
	b.clear()
	return nil
}

// maybeFlush performs the size-triggered automatic flush (never with
// fsync) if the buffer has reached flushThreshold. Callers must
// only invoke this at entry boundaries.
func (b *writeBuffer) maybeFlush(f *file) error {
	if len(b.buf) < flushThreshold {
		return nil
	}
	return b.flush(f, false)
}
