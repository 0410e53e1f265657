// Package faketxn provides in-memory stand-ins for the transaction
// manager and database collaborators journal.Recover replays against.
// Like pagestore, it exists for tests and for the journalctl CLI's
// dry-run replay — not as a real storage engine.
package faketxn

import (
	"fmt"

	"github.com/ondbase/kvjournal/journal"
	"github.com/ondbase/kvjournal/journal/record"
)

// Txn is an in-memory journal.Transaction.
type Txn struct {
	id        record.TxnID
	name      string
	committed bool
	aborted   bool
}

func (t *Txn) ID() record.TxnID      { return t.id }
func (t *Txn) SetID(id record.TxnID) { t.id = id }
func (t *Txn) IsCommitted() bool     { return t.committed }

func (t *Txn) Abort() error {
	if t.committed {
		return fmt.Errorf("faketxn: transaction %d already committed", t.id)
	}
	t.aborted = true
	return nil
}

func (t *Txn) Commit() error {
	if t.aborted {
		return fmt.Errorf("faketxn: transaction %d already aborted", t.id)
	}
	t.committed = true
	return nil
}

// Manager is an in-memory journal.TransactionManager. It never
// recycles transaction IDs, mirroring the always-increasing LocalTransactionManager
// counter the original engine keeps.
//
// Transactions are kept in a slice searched by their current ID rather
// than a map keyed by ID, because recovery creates a transaction with
// one ID (Begin's own counter) and then patches it to the logged ID
// via SetID; a map keyed at insertion time would desync from that patch.
type Manager struct {
	all    []*Txn
	nextID record.TxnID
}

func NewManager() *Manager {
	return &Manager{}
}

func (m *Manager) Begin(name string) (journal.Transaction, error) {
	m.nextID++
	txn := &Txn{id: m.nextID, name: name}
	m.all = append(m.all, txn)
	return txn, nil
}

func (m *Manager) Find(id record.TxnID) journal.Transaction {
	for _, txn := range m.all {
		if txn.id == id {
			return txn
		}
	}
	return nil
}

// LiveTransactions returns every transaction not yet committed or
// aborted, oldest first.
func (m *Manager) LiveTransactions() []journal.Transaction {
	out := make([]journal.Transaction, 0, len(m.all))
	for _, txn := range m.all {
		if txn.committed || txn.aborted {
			continue
		}
		out = append(out, txn)
	}
	return out
}

func (m *Manager) SetNextID(id record.TxnID) {
	if id > m.nextID {
		m.nextID = id
	}
}

// storedRecord is one stored key/record pair, kept in insertion order.
// Keys are unique: Insert on an existing key replaces its record, so
// duplicate-key chains are not modelled.
type storedRecord struct {
	key []byte
	rec []byte
}

// Database is an in-memory journal.Database: a slice of key/record
// pairs searched linearly, sufficient to exercise insert/erase replay
// without a real B-tree.
type Database struct {
	name    uint16
	records []storedRecord
}

func (d *Database) Insert(_ journal.Transaction, key, rec []byte, flags uint32) error {
	for i, r := range d.records {
		if string(r.key) == string(key) {
			d.records[i].rec = append([]byte(nil), rec...)
			return nil
		}
	}
	d.records = append(d.records, storedRecord{key: append([]byte(nil), key...), rec: append([]byte(nil), rec...)})
	return nil
}

func (d *Database) Erase(_ journal.Transaction, key []byte, flags, duplicateIndex uint32) error {
	for i, r := range d.records {
		if string(r.key) == string(key) {
			d.records = append(d.records[:i], d.records[i+1:]...)
			return nil
		}
	}
	return journal.ErrKeyNotFound
}

// Get returns the current record for key, for test assertions.
func (d *Database) Get(key []byte) ([]byte, bool) {
	for _, r := range d.records {
		if string(r.key) == string(key) {
			return r.rec, true
		}
	}
	return nil, false
}

func (d *Database) Len() int { return len(d.records) }

// Store opens and tracks databases by name, implementing
// journal.DatabaseStore.
type Store struct {
	dbs map[uint16]*Database
}

func NewStore() *Store {
	return &Store{dbs: make(map[uint16]*Database)}
}

func (s *Store) OpenDatabase(dbname uint16) (journal.Database, error) {
	db, ok := s.dbs[dbname]
	if !ok {
		db = &Database{name: dbname}
		s.dbs[dbname] = db
	}
	return db, nil
}

func (s *Store) CloseDatabase(journal.Database) error { return nil }

// Database returns the database previously opened under dbname, or
// nil, for test assertions that bypass replay.
func (s *Store) Database(dbname uint16) *Database { return s.dbs[dbname] }

// Environment is a no-op journal.Environment: flushing committed
// transactions has no effect without a real page cache behind it.
type Environment struct {
	Flushed int
}

func (e *Environment) FlushCommittedTransactions() error {
	e.Flushed++
	return nil
}
