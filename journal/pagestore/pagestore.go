// Package pagestore provides an in-memory stand-in for the B-tree
// page store that journal.Recover writes into. It is not a real
// storage engine: it exists for tests and for the journalctl CLI's
// dry-run replay, which need something that satisfies journal.PageStore
// without pulling in a real device.
package pagestore

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/ondbase/kvjournal/journal"
)

// Bookkeeping is the page-manager's own persisted state: the one piece
// of metadata recovery must reload after physical redo, since its
// backing page may itself have just been restored by a changeset
// (spec §4.6). The real page manager's bookkeeping blob has a much
// richer layout; this is the minimal slice recovery depends on.
type Bookkeeping struct {
	LastBlobPage uint64
	FreePages    []uint64
}

// Marshal encodes b for storage as a blob page.
func (b Bookkeeping) Marshal() ([]byte, error) {
	out, err := msgpack.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("pagestore: marshal bookkeeping: %w", err)
	}
	return out, nil
}

// UnmarshalBookkeeping decodes a blob previously produced by Marshal.
func UnmarshalBookkeeping(data []byte) (Bookkeeping, error) {
	var b Bookkeeping
	if err := msgpack.Unmarshal(data, &b); err != nil {
		return Bookkeeping{}, fmt.Errorf("pagestore: unmarshal bookkeeping: %w", err)
	}
	return b, nil
}

// Page is the in-memory journal.Page implementation: a fixed-size byte
// slice plus its address, owned by a Store.
type Page struct {
	address journal.PageAddress
	data    []byte
	dirty   bool
}

func (p *Page) Address() journal.PageAddress { return p.address }
func (p *Page) Overwrite(data []byte)         { copy(p.data, data) }
func (p *Page) MarkDirty()                    { p.dirty = true }
func (p *Page) Data() []byte                  { return p.data }

// Store is an in-memory journal.PageStore: a flat address space of
// fixed-size pages plus the one blob (the page-manager's bookkeeping)
// that recovery cares about by address.
type Store struct {
	pageSize     int
	pages        map[journal.PageAddress]*Page
	size         int64
	blobID       uint64
	blobs        map[uint64][]byte
	lastBlobPage uint64
}

// New creates an empty store with the given fixed page size.
func New(pageSize int) *Store {
	return &Store{
		pageSize: pageSize,
		pages:    make(map[journal.PageAddress]*Page),
		blobs:    make(map[uint64][]byte),
	}
}

func (s *Store) FileSize() int64 { return s.size }

func (s *Store) Truncate(size int64) error {
	s.size = size
	return nil
}

func (s *Store) Alloc() (journal.Page, error) {
	addr := journal.PageAddress(s.size)
	p := &Page{address: addr, data: make([]byte, s.pageSize)}
	s.pages[addr] = p
	s.size += int64(s.pageSize)
	return p, nil
}

func (s *Store) Fetch(address journal.PageAddress) (journal.Page, error) {
	if p, ok := s.pages[address]; ok {
		return p, nil
	}
	p := &Page{address: address, data: make([]byte, s.pageSize)}
	s.pages[address] = p
	return p, nil
}

func (s *Store) Flush(journal.Page) error { return nil }

func (s *Store) SetLastBlobPageID(id uint64) { s.lastBlobPage = id }

func (s *Store) PageManagerBlobID() uint64 { return s.blobID }

// SetPageManagerBlobID lets callers (tests, the CLI) seed which blob
// address LoadPageManager should read back.
func (s *Store) SetPageManagerBlobID(id uint64) { s.blobID = id }

// PutBlob stores raw bytes at blobID, as if the page manager had
// already written its bookkeeping there before a crash.
func (s *Store) PutBlob(blobID uint64, data []byte) { s.blobs[blobID] = data }

func (s *Store) LoadPageManager(blobID uint64) error {
	data, ok := s.blobs[blobID]
	if !ok {
		return fmt.Errorf("pagestore: no blob at id %d", blobID)
	}
	bk, err := UnmarshalBookkeeping(data)
	if err != nil {
		return err
	}
	s.lastBlobPage = bk.LastBlobPage
	return nil
}

// LastBlobPage returns the most recently recorded last-blob-page,
// either from a changeset replay or from a loaded bookkeeping blob.
func (s *Store) LastBlobPage() uint64 { return s.lastBlobPage }

// PageCount reports how many distinct pages have been touched, mostly
// useful for dry-run summaries.
func (s *Store) PageCount() int { return len(s.pages) }
