package journal

import (
	"github.com/ondbase/kvjournal/journal/record"
)

// iterator walks both journal files oldest-entry-first. A zero-value
// iterator starts from scratch: the first call picks the file that is
// NOT the journal's current one, since the other file is always the
// older of the two (spec §4.6, grounded on Journal::read_entry).
type iterator struct {
	fdstart int
	fdidx   int
	offset  int64
	started bool
}

// entry is one decoded journal record: its header plus whatever
// followup bytes accompanied it, still packed.
type entry struct {
	header  record.Header
	payload []byte
}

// next returns the next entry in oldest-first order across both files,
// or ok == false once both files are exhausted. A short or corrupt read
// near the end of a file is reported via isShortRead and is not itself
// an error: it means a partially-written tail entry, the normal sign
// of a crash mid-append, and recovery treats it as end of log.
func (it *iterator) next(j *Journal) (e entry, ok bool, err error) {
	if !it.started {
		it.started = true
		cur := j.rot.currentFD()
		other := 1 - cur
		it.fdstart, it.fdidx = other, other
		it.offset = 0
	}

	filesize, err := j.files[it.fdidx].fileSize()
	if err != nil {
		return entry{}, false, err
	}

	if it.offset == filesize {
		if it.fdstart == it.fdidx {
			it.fdidx = 1 - it.fdidx
			it.offset = 0
			filesize, err = j.files[it.fdidx].fileSize()
			if err != nil {
				return entry{}, false, err
			}
		} else {
			return entry{}, false, nil
		}
	}

	if it.offset == filesize {
		return entry{}, false, nil
	}

	hdrBuf := make([]byte, record.HeaderSize)
	if err := j.files[it.fdidx].pread(it.offset, hdrBuf); err != nil {
		if isShortRead(err) {
			return entry{}, false, nil
		}
		return entry{}, false, err
	}
	h, err := record.UnpackHeader(hdrBuf)
	if err != nil || h.LSN == 0 {
		return entry{}, false, nil
	}
	it.offset += record.HeaderSize

	var payload []byte
	if h.FollowupSize > 0 {
		payload = make([]byte, h.FollowupSize)
		if err := j.files[it.fdidx].pread(it.offset, payload); err != nil {
			if isShortRead(err) {
				return entry{}, false, nil
			}
			return entry{}, false, err
		}
		it.offset += int64(h.FollowupSize)
	}

	return entry{header: h, payload: payload}, true, nil
}
