package journal

import "github.com/ondbase/kvjournal/journal/record"

// PageAddress identifies a page within the page store's device.
type PageAddress uint64

// Page is a single fixed-size page of the page store, as reconciled
// and overwritten during physical changeset redo (spec §4.6 step 3-4).
type Page interface {
	Address() PageAddress
	// Overwrite replaces the page's bytes with data (len(data) == page size).
	Overwrite(data []byte)
	MarkDirty()
}

// PageStore is the out-of-scope B-tree/blob storage device that
// recovery's physical redo phase writes into. The journal never reads
// page contents outside of recovery.
type PageStore interface {
	FileSize() int64
	// Truncate grows or shrinks the device to exactly size bytes.
	Truncate(size int64) error
	// Alloc extends the device by one page and returns it.
	Alloc() (Page, error)
	// Fetch returns the existing page at address, or the header page for address 0.
	Fetch(address PageAddress) (Page, error)
	Flush(p Page) error
	// SetLastBlobPageID records the last_blob_page carried by a changeset,
	// used by the page manager to resume blob allocation after recovery.
	SetLastBlobPageID(id uint64)
	// PageManagerBlobID is the bookkeeping blob reference stored in the
	// environment header, or 0 if none. Recovery loads it after physical
	// redo since the blob's own page may have just been restored.
	PageManagerBlobID() uint64
	LoadPageManager(blobID uint64) error
}

// Transaction is a live transaction as tracked by the environment's
// transaction manager.
type Transaction interface {
	ID() record.TxnID
	SetID(record.TxnID)
	IsCommitted() bool
	Abort() error
	Commit() error
}

// TransactionManager enumerates and creates transactions on behalf of
// recovery's logical redo phase.
type TransactionManager interface {
	// Begin starts a new transaction with the given name, mirroring the
	// semantics of a UPS_DONT_LOCK begin during replay.
	Begin(name string) (Transaction, error)
	// Find returns the live transaction with the given ID, or nil.
	Find(id record.TxnID) Transaction
	// LiveTransactions returns all transactions not yet committed or aborted.
	LiveTransactions() []Transaction
	// SetNextID advances the manager's next-transaction-id watermark past id.
	SetNextID(id record.TxnID)
}

// Database is the public database API recovery replays operations
// against. A "key not found" on Erase must be reported via
// ErrKeyNotFound so the recovery engine can absorb it.
type Database interface {
	Insert(txn Transaction, key, rec []byte, flags uint32) error
	Erase(txn Transaction, key []byte, flags uint32, duplicateIndex uint32) error
}

// DatabaseStore opens and closes databases by name during recovery.
// Recovery owns every database it opens and closes them all at teardown.
type DatabaseStore interface {
	// OpenDatabase opens (or creates) the database identified by dbname,
	// suppressing any txn-level locking that would interfere with replay.
	OpenDatabase(dbname uint16) (Database, error)
	CloseDatabase(db Database) error
}

// Environment flushes committed transactions to the page store once
// logical redo completes.
type Environment interface {
	FlushCommittedTransactions() error
}
