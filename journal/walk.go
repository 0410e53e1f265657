package journal

import "github.com/ondbase/kvjournal/journal/record"

// EntryInfo is the header-level view of one journal entry, as exposed
// to Walk callers that only need to inspect the log rather than replay it.
type EntryInfo struct {
	LSN          record.LSN
	TxnID        record.TxnID
	Type         record.Type
	DBName       uint16
	FollowupSize uint32
	FileIndex    int
}

// Walk visits every entry across both files, oldest first, without
// replaying any of them — the read-only counterpart to Recover, used
// by the journalctl dump command.
func (j *Journal) Walk(fn func(EntryInfo) error) error {
	var it iterator
	for {
		e, ok, err := it.next(j)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		info := EntryInfo{
			LSN:          e.header.LSN,
			TxnID:        e.header.TxnID,
			Type:         e.header.Type,
			DBName:       e.header.DBName,
			FollowupSize: e.header.FollowupSize,
			FileIndex:    it.fdidx,
		}
		if err := fn(info); err != nil {
			return err
		}
	}
}
