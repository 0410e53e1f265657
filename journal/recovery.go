package journal

import (
	"errors"
	"fmt"

	"github.com/ondbase/kvjournal/journal/record"
)

// Recover replays the journal against a freshly opened, otherwise
// empty environment (spec §4.6): physical redo of every changeset
// first, establishing a durable-LSN watermark, then logical redo of
// everything above that watermark, then teardown. It must be called
// before any other transaction activity begins.
func (j *Journal) Recover(txnMgr TransactionManager, dbStore DatabaseStore, pageStore PageStore, env Environment) error {
	if err := j.recover(txnMgr, dbStore, pageStore, env); err != nil {
		return err
	}
	return j.Clear()
}

// RecoverDryRun runs the same two-phase replay as Recover but leaves
// the journal files untouched afterward, for inspection tooling that
// wants to see what recovery would do without discarding the log.
func (j *Journal) RecoverDryRun(txnMgr TransactionManager, dbStore DatabaseStore, pageStore PageStore, env Environment) error {
	return j.recover(txnMgr, dbStore, pageStore, env)
}

func (j *Journal) recover(txnMgr TransactionManager, dbStore DatabaseStore, pageStore PageStore, env Environment) error {
	startLSN, err := j.recoverChangesets(pageStore)
	if err != nil {
		return &ReplayError{Msg: fmt.Sprintf("physical redo: %v", err), Cont: false}
	}

	if blobID := pageStore.PageManagerBlobID(); blobID != 0 {
		if err := pageStore.LoadPageManager(blobID); err != nil {
			return &ReplayError{Msg: fmt.Sprintf("loading page manager: %v", err), Cont: false}
		}
	}

	if j.cfg.EnableTransactions {
		if err := j.recoverJournal(txnMgr, dbStore, env, startLSN); err != nil {
			return &ReplayError{Msg: fmt.Sprintf("logical redo: %v", err), Cont: false}
		}
	}

	return nil
}

// recoverChangesets is phase 1: it finds whichever file holds the
// oldest changeset, replays both files' changesets in that
// chronological order, and leaves rotation's current file pointed at
// the file redo started from — recovery's choice of processing order
// doubles as the resumed write target (grounded on
// Journal::recover_changeset).
func (j *Journal) recoverChangesets(pageStore PageStore) (record.LSN, error) {
	lsn0, err := j.scanForOldestChangeset(0)
	if err != nil {
		return 0, err
	}
	lsn1, err := j.scanForOldestChangeset(1)
	if err != nil {
		return 0, err
	}
	if lsn0 == 0 && lsn1 == 0 {
		return 0, nil
	}

	cur := 1
	if lsn0 < lsn1 {
		cur = 0
	}

	max0, err := j.redoAllChangesets(cur, pageStore)
	if err != nil {
		return 0, err
	}
	max1, err := j.redoAllChangesets(1-cur, pageStore)
	if err != nil {
		return 0, err
	}

	j.rot.setCurrent(cur)

	if max0 > max1 {
		return max0, nil
	}
	return max1, nil
}

// scanForOldestChangeset walks one file from the start looking for the
// first (lowest-offset, not lowest-LSN) changeset entry and returns its
// LSN, or 0 if the file holds none.
func (j *Journal) scanForOldestChangeset(fdidx int) (record.LSN, error) {
	filesize, err := j.files[fdidx].fileSize()
	if err != nil {
		return 0, err
	}

	var offset int64
	hdrBuf := make([]byte, record.HeaderSize)
	for offset < filesize {
		if err := j.files[fdidx].pread(offset, hdrBuf); err != nil {
			if isShortRead(err) {
				break
			}
			return 0, err
		}
		h, err := record.UnpackHeader(hdrBuf)
		if err != nil || h.LSN == 0 {
			break
		}
		if h.Type == record.Changeset {
			return h.LSN, nil
		}
		offset += int64(record.HeaderSize) + int64(h.FollowupSize)
	}
	return 0, nil
}

// redoAllChangesets physically reapplies every changeset in file
// fdidx, overwriting pages in pageStore, and returns the highest LSN
// seen among them.
func (j *Journal) redoAllChangesets(fdidx int, pageStore PageStore) (record.LSN, error) {
	filesize, err := j.files[fdidx].fileSize()
	if err != nil {
		return 0, err
	}

	var offset int64
	var maxLSN record.LSN
	hdrBuf := make([]byte, record.HeaderSize)

	for offset < filesize {
		if err := j.files[fdidx].pread(offset, hdrBuf); err != nil {
			if isShortRead(err) {
				break
			}
			return maxLSN, err
		}
		h, err := record.UnpackHeader(hdrBuf)
		if err != nil || h.LSN == 0 {
			break
		}
		if h.Type != record.Changeset {
			offset += int64(record.HeaderSize) + int64(h.FollowupSize)
			continue
		}

		if h.LSN > maxLSN {
			maxLSN = h.LSN
		}
		offset += int64(record.HeaderSize)

		chBuf := make([]byte, record.ChangesetHeaderSize)
		if err := j.files[fdidx].pread(offset, chBuf); err != nil {
			return maxLSN, err
		}
		ch, err := record.UnpackChangesetHeader(chBuf)
		if err != nil {
			return maxLSN, err
		}
		offset += int64(record.ChangesetHeaderSize)

		pageStore.SetLastBlobPageID(ch.LastBlobPage)

		for i := uint32(0); i < ch.NumPages; i++ {
			phBuf := make([]byte, record.PageHeaderSize)
			if err := j.files[fdidx].pread(offset, phBuf); err != nil {
				return maxLSN, err
			}
			ph, err := record.UnpackPageHeader(phBuf)
			if err != nil {
				return maxLSN, err
			}
			offset += int64(record.PageHeaderSize)

			var raw []byte
			if ph.CompressedSize > 0 {
				comp := make([]byte, ph.CompressedSize)
				if err := j.files[fdidx].pread(offset, comp); err != nil {
					return maxLSN, err
				}
				offset += int64(ph.CompressedSize)
				if j.compressor == nil {
					return maxLSN, fmt.Errorf("journal: changeset page is compressed but no compressor is configured")
				}
				raw, err = j.compressor.Decompress(comp, j.cfg.PageSize)
				if err != nil {
					return maxLSN, err
				}
			} else {
				raw = make([]byte, j.cfg.PageSize)
				if err := j.files[fdidx].pread(offset, raw); err != nil {
					return maxLSN, err
				}
				offset += int64(j.cfg.PageSize)
			}

			if err := applyChangesetPage(pageStore, PageAddress(ph.PageAddress), raw); err != nil {
				return maxLSN, err
			}
		}
	}

	return maxLSN, nil
}

// applyChangesetPage writes the recovered page bytes to the page
// store, allocating or extending the device as needed when the
// changeset predates the device's current size (grounded on the
// address-vs-file-size cases in Journal::redo_all_changesets).
func applyChangesetPage(pageStore PageStore, addr PageAddress, data []byte) error {
	fileSize := pageStore.FileSize()

	var page Page
	var err error
	switch {
	case int64(addr) == fileSize:
		page, err = pageStore.Alloc()
	case int64(addr) > fileSize:
		if err := pageStore.Truncate(int64(addr) + int64(len(data))); err != nil {
			return err
		}
		page, err = pageStore.Fetch(addr)
	default:
		page, err = pageStore.Fetch(addr)
	}
	if err != nil {
		return err
	}

	page.Overwrite(data)
	page.MarkDirty()
	return pageStore.Flush(page)
}

// recoverJournal is phase 2: it replays every transaction begin, abort
// and commit, and every insert and erase above startLSN, transactionally
// and non-transactionally, then tears down whatever replay left open
// (grounded on Journal::recover_journal).
func (j *Journal) recoverJournal(txnMgr TransactionManager, dbStore DatabaseStore, env Environment, startLSN record.LSN) error {
	j.disableLogging = true
	defer func() { j.disableLogging = false }()

	openDBs := make(map[uint16]Database)
	var it iterator
	var retErr error

loop:
	for {
		e, ok, err := it.next(j)
		if err != nil {
			retErr = err
			break
		}
		if !ok {
			break
		}

		switch e.header.Type {
		case record.TxnBegin:
			txn, err := txnMgr.Begin(string(e.payload))
			if err != nil {
				retErr = fmt.Errorf("replaying txn begin %d: %w", e.header.TxnID, err)
				break loop
			}
			txn.SetID(e.header.TxnID)
			txnMgr.SetNextID(e.header.TxnID)

		case record.TxnAbort:
			txn := txnMgr.Find(e.header.TxnID)
			if txn == nil {
				retErr = fmt.Errorf("aborting unknown transaction %d", e.header.TxnID)
				break loop
			}
			if err := txn.Abort(); err != nil {
				retErr = err
				break loop
			}

		case record.TxnCommit:
			txn := txnMgr.Find(e.header.TxnID)
			if txn == nil {
				retErr = fmt.Errorf("committing unknown transaction %d", e.header.TxnID)
				break loop
			}
			if err := txn.Commit(); err != nil {
				retErr = err
				break loop
			}

		case record.Insert:
			if e.header.LSN <= startLSN {
				continue
			}
			ih, err := record.UnpackInsertHeader(e.payload)
			if err != nil {
				retErr = err
				break loop
			}
			key, rec, err := j.decodeInsertPayload(ih, e.payload[record.InsertHeaderSize:])
			if err != nil {
				retErr = err
				break loop
			}
			var txn Transaction
			if e.header.TxnID != 0 {
				txn = txnMgr.Find(e.header.TxnID)
			}
			db, err := openDB(dbStore, openDBs, e.header.DBName)
			if err != nil {
				retErr = err
				break loop
			}
			if err := db.Insert(txn, key, rec, ih.InsertFlags); err != nil {
				retErr = err
				break loop
			}

		case record.Erase:
			if e.header.LSN <= startLSN {
				continue
			}
			eh, err := record.UnpackEraseHeader(e.payload)
			if err != nil {
				retErr = err
				break loop
			}
			key, err := j.decodeErasePayload(eh, e.payload[record.EraseHeaderSize:])
			if err != nil {
				retErr = err
				break loop
			}
			var txn Transaction
			if e.header.TxnID != 0 {
				txn = txnMgr.Find(e.header.TxnID)
			}
			db, err := openDB(dbStore, openDBs, e.header.DBName)
			if err != nil {
				retErr = err
				break loop
			}
			if err := db.Erase(txn, key, eh.EraseFlags, eh.DuplicateIndex); err != nil && !errors.Is(err, ErrKeyNotFound) {
				retErr = err
				break loop
			}

		case record.Changeset:
			// already applied during physical redo.

		default:
			retErr = fmt.Errorf("invalid entry type %v during recovery", e.header.Type)
			break loop
		}
	}

	for _, txn := range txnMgr.LiveTransactions() {
		if txn.IsCommitted() {
			continue
		}
		if err := txn.Abort(); err != nil && retErr == nil {
			retErr = err
		}
	}
	for _, db := range openDBs {
		if err := dbStore.CloseDatabase(db); err != nil && retErr == nil {
			retErr = err
		}
	}
	if retErr == nil {
		retErr = env.FlushCommittedTransactions()
	}

	return retErr
}

func openDB(dbStore DatabaseStore, cache map[uint16]Database, dbname uint16) (Database, error) {
	if db, ok := cache[dbname]; ok {
		return db, nil
	}
	db, err := dbStore.OpenDatabase(dbname)
	if err != nil {
		return nil, err
	}
	cache[dbname] = db
	return db, nil
}

// decodeInsertPayload splits an insert entry's followup bytes into key
// and record, decompressing either half whose Compressed*Size is
// nonzero.
func (j *Journal) decodeInsertPayload(ih record.InsertHeader, buf []byte) (key, rec []byte, err error) {
	pos := 0
	if ih.CompressedKeySize != 0 {
		if j.compressor == nil {
			return nil, nil, fmt.Errorf("journal: insert key is compressed but no compressor is configured")
		}
		key, err = j.compressor.Decompress(buf[pos:pos+int(ih.CompressedKeySize)], int(ih.KeySize))
		if err != nil {
			return nil, nil, err
		}
		pos += int(ih.CompressedKeySize)
	} else {
		key = buf[pos : pos+int(ih.KeySize)]
		pos += int(ih.KeySize)
	}

	if ih.CompressedRecordSize != 0 {
		if j.compressor == nil {
			return nil, nil, fmt.Errorf("journal: insert record is compressed but no compressor is configured")
		}
		rec, err = j.compressor.Decompress(buf[pos:pos+int(ih.CompressedRecordSize)], int(ih.RecordSize))
		if err != nil {
			return nil, nil, err
		}
	} else {
		rec = buf[pos : pos+int(ih.RecordSize)]
	}
	return key, rec, nil
}

// decodeErasePayload extracts the key from an erase entry's followup
// bytes, decompressing it if CompressedKeySize is nonzero.
func (j *Journal) decodeErasePayload(eh record.EraseHeader, buf []byte) ([]byte, error) {
	if eh.CompressedKeySize == 0 {
		return buf[:eh.KeySize], nil
	}
	if j.compressor == nil {
		return nil, fmt.Errorf("journal: erase key is compressed but no compressor is configured")
	}
	return j.compressor.Decompress(buf[:eh.CompressedKeySize], int(eh.KeySize))
}
