package journal

import (
	"fmt"

	"github.com/ondbase/kvjournal/journal/record"
)

// ChangesetPage is one dirty page snapshot carried by a changeset
// append. Data must be exactly the page store's configured page size.
type ChangesetPage struct {
	Address PageAddress
	Data    []byte
}

// AppendTxnBegin appends a transaction-begin entry, routes it through
// rotation, and binds the transaction to the resulting file index (its
// log descriptor) so every later operation under txnID lands in the
// same file. Temporary transactions are never logged by name; only
// their enclosed operation is (spec §4.5).
func (j *Journal) AppendTxnBegin(txnID record.TxnID, name string, lsn record.LSN) (int, error) {
	if j.disableLogging {
		return 0, nil
	}

	idx, err := j.rot.switchFilesMaybe(j.clearFileForRotation)
	if err != nil {
		return 0, fmt.Errorf("journal: append txn begin: %w", err)
	}

	h := record.Header{LSN: lsn, TxnID: txnID, Type: record.TxnBegin, FollowupSize: uint32(len(name))}
	buf := h.Pack(nil)
	if name != "" {
		buf = append(buf, name...)
	}
	j.buffers[idx].append(buf)
	if err := j.buffers[idx].maybeFlush(j.files[idx]); err != nil {
		return idx, err
	}

	j.rot.txnBegin(idx)
	j.logDesc[txnID] = idx
	j.rot.setCurrent(idx)
	return idx, nil
}

// AppendTxnAbort appends a transaction-abort entry. No fsync: an
// incomplete transaction will be aborted on recovery anyway.
func (j *Journal) AppendTxnAbort(txnID record.TxnID, lsn record.LSN) error {
	if j.disableLogging {
		return nil
	}
	idx, ok := j.logDesc[txnID]
	if !ok {
		return fmt.Errorf("journal: append txn abort: unknown transaction %d", txnID)
	}

	h := record.Header{LSN: lsn, TxnID: txnID, Type: record.TxnAbort}
	j.buffers[idx].append(h.Pack(nil))
	if err := j.buffers[idx].maybeFlush(j.files[idx]); err != nil {
		return err
	}

	j.rot.txnAbort(idx)
	delete(j.logDesc, txnID)
	return nil
}

// AppendTxnCommit appends a transaction-commit entry and flushes,
// fsyncing iff the environment has fsync-on-commit enabled. The
// counters are not updated here — commit is durable, but the flush of
// page state may be pending; TransactionFlushed does that once the
// page flusher catches up (spec §4.4).
func (j *Journal) AppendTxnCommit(txnID record.TxnID, lsn record.LSN) error {
	if j.disableLogging {
		return nil
	}
	idx, ok := j.logDesc[txnID]
	if !ok {
		return fmt.Errorf("journal: append txn commit: unknown transaction %d", txnID)
	}

	h := record.Header{LSN: lsn, TxnID: txnID, Type: record.TxnCommit}
	j.buffers[idx].append(h.Pack(nil))
	return j.flushBuffer(idx, j.cfg.EnableFsync)
}

// AppendInsert appends an insert entry. txnID of 0 marks a temporary
// (auto-committed) operation, logged with TxnID 0 and routed through
// rotation directly rather than an existing log descriptor.
func (j *Journal) AppendInsert(txnID record.TxnID, dbname uint16, lsn record.LSN, key, rec []byte, flags uint32) error {
	if j.disableLogging {
		return nil
	}

	idx, entryTxnID, err := j.resolveLogDesc(txnID)
	if err != nil {
		return fmt.Errorf("journal: append insert: %w", err)
	}

	entryPos := j.buffers[idx].size()
	h := record.Header{LSN: lsn, TxnID: entryTxnID, Type: record.Insert, DBName: dbname,
		FollowupSize: uint32(record.InsertHeaderSize)}
	j.buffers[idx].append(h.Pack(nil))

	ih := record.InsertHeader{KeySize: uint32(len(key)), RecordSize: uint32(len(rec)), InsertFlags: flags}
	ihPos := j.buffers[idx].size()
	j.buffers[idx].append(ih.Pack(nil))

	keyOut := j.maybeCompress(key, &ih.CompressedKeySize)
	j.buffers[idx].append(keyOut)
	recOut := j.maybeCompress(rec, &ih.CompressedRecordSize)
	j.buffers[idx].append(recOut)

	h.FollowupSize = uint32(record.InsertHeaderSize) + uint32(len(keyOut)) + uint32(len(recOut))
	j.buffers[idx].overwrite(entryPos, h.Pack(nil))
	j.buffers[idx].overwrite(ihPos, ih.Pack(nil))

	if txnID == 0 {
		j.rot.temporaryOp(idx)
	}
	return j.buffers[idx].maybeFlush(j.files[idx])
}

// AppendErase appends an erase entry; see AppendInsert for the
// temporary-transaction and compression conventions.
func (j *Journal) AppendErase(txnID record.TxnID, dbname uint16, lsn record.LSN, key []byte, flags, duplicateIndex uint32) error {
	if j.disableLogging {
		return nil
	}

	idx, entryTxnID, err := j.resolveLogDesc(txnID)
	if err != nil {
		return fmt.Errorf("journal: append erase: %w", err)
	}

	entryPos := j.buffers[idx].size()
	h := record.Header{LSN: lsn, TxnID: entryTxnID, Type: record.Erase, DBName: dbname,
		FollowupSize: uint32(record.EraseHeaderSize)}
	j.buffers[idx].append(h.Pack(nil))

	eh := record.EraseHeader{KeySize: uint32(len(key)), EraseFlags: flags, DuplicateIndex: duplicateIndex}
	ehPos := j.buffers[idx].size()
	j.buffers[idx].append(eh.Pack(nil))

	keyOut := j.maybeCompress(key, &eh.CompressedKeySize)
	j.buffers[idx].append(keyOut)

	h.FollowupSize = uint32(record.EraseHeaderSize) + uint32(len(keyOut))
	j.buffers[idx].overwrite(entryPos, h.Pack(nil))
	j.buffers[idx].overwrite(ehPos, eh.Pack(nil))

	if txnID == 0 {
		j.rot.temporaryOp(idx)
	}
	return j.buffers[idx].maybeFlush(j.files[idx])
}

// AppendChangeset appends a physical changeset covering pages,
// compressing each page independently, then flushes (fsyncing per the
// environment flag) and marks the destination file as holding an open
// transaction-equivalent until ChangesetFlushed is called. It returns
// the file index so the caller (the page flusher) can report that back.
func (j *Journal) AppendChangeset(pages []ChangesetPage, lastBlobPage uint64, lsn record.LSN) (int, error) {
	if j.disableLogging {
		return -1, nil
	}
	if len(pages) == 0 {
		return -1, fmt.Errorf("journal: append changeset: no pages")
	}

	idx, err := j.rot.switchFilesMaybe(j.clearFileForRotation)
	if err != nil {
		return idx, fmt.Errorf("journal: append changeset: %w", err)
	}

	entryPos := j.buffers[idx].size()
	h := record.Header{LSN: lsn, Type: record.Changeset, FollowupSize: uint32(record.ChangesetHeaderSize)}
	j.buffers[idx].append(h.Pack(nil))

	ch := record.ChangesetHeader{NumPages: uint32(len(pages)), LastBlobPage: lastBlobPage}
	j.buffers[idx].append(ch.Pack(nil))

	followup := uint32(record.ChangesetHeaderSize)
	for _, p := range pages {
		ph := record.PageHeader{PageAddress: uint64(p.Address)}
		out := j.maybeCompress(p.Data, &ph.CompressedSize)
		j.buffers[idx].append(ph.Pack(nil))
		j.buffers[idx].append(out)
		followup += uint32(record.PageHeaderSize) + uint32(len(out))
	}

	if err := j.injectFailure(BeforeHeaderPatch); err != nil {
		return idx, err
	}
	h.FollowupSize = followup
	j.buffers[idx].overwrite(entryPos, h.Pack(nil))

	if err := j.injectFailure(BetweenPatchAndFlush); err != nil {
		return idx, err
	}
	if err := j.flushBuffer(idx, j.cfg.EnableFsync); err != nil {
		return idx, err
	}
	if err := j.injectFailure(AfterFlush); err != nil {
		return idx, err
	}

	j.rot.changesetAppended(idx)
	return idx, nil
}

// resolveLogDesc returns the destination file index and the TxnID to
// record on the entry: txnID itself for real transactions, or 0 (and a
// freshly rotated file) for temporary operations.
func (j *Journal) resolveLogDesc(txnID record.TxnID) (idx int, entryTxnID record.TxnID, err error) {
	if txnID == 0 {
		idx, err = j.rot.switchFilesMaybe(j.clearFileForRotation)
		return idx, 0, err
	}
	idx, ok := j.logDesc[txnID]
	if !ok {
		return 0, 0, fmt.Errorf("unknown transaction %d", txnID)
	}
	return idx, txnID, nil
}

// maybeCompress attempts to compress src when a compressor is
// configured, using it only if the result is strictly smaller than
// src (a value of 0 in *compressedSize means "stored raw").
func (j *Journal) maybeCompress(src []byte, compressedSize *uint32) []byte {
	if j.compressor == nil || len(src) == 0 {
		return src
	}
	j.metrics.bytesBeforeCompression.Add(int64(len(src)))
	out, err := j.compressor.Compress(src)
	if err != nil || len(out) >= len(src) {
		j.metrics.bytesAfterCompression.Add(int64(len(src)))
		return src
	}
	*compressedSize = uint32(len(out))
	j.metrics.bytesAfterCompression.Add(int64(len(out)))
	return out
}

func (j *Journal) injectFailure(point InjectionPoint) error {
	if j.FailPoint == nil {
		return nil
	}
	return j.FailPoint(point)
}

func (j *Journal) flushBuffer(idx int, fsync bool) error {
	n := j.buffers[idx].size()
	if err := j.buffers[idx].flush(j.files[idx], fsync); err != nil {
		return err
	}
	j.metrics.bytesFlushed.Add(int64(n))
	return nil
}

func (j *Journal) clearFileForRotation(idx int) error {
	if err := j.files[idx].truncate(0); err != nil {
		return err
	}
	j.buffers[idx].clear()
	return nil
}
