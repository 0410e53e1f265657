// Package record defines the on-disk layout of journal entries: the
// fixed-size entry header, the per-type payload headers that follow
// it, and the pack/unpack functions between those layouts and bytes.
//
// All integers are written in host byte order (the store is
// single-host). Headers are tightly packed with no alignment padding,
// and FollowupSize is authoritative for skipping an entry during a
// scan — readers must never derive it from type-specific fields, which
// lets an entry's header be appended before its final size is known
// (the compression decision happens after the header is written, and
// the header is patched afterwards; see journal.Journal.AppendInsert).
package record

import (
	"fmt"

	"github.com/ondbase/kvjournal/utils/codec"
)

// LSN is the log sequence number assigned by the caller to every
// journal entry. Zero is reserved: it signals "no entry" / end of log
// to readers, so callers must never assign LSN 0 to a real entry. This
// invariant is external to the journal and must be enforced by the
// environment that issues LSNs.
type LSN uint64

// TxnID identifies the owning transaction of an entry, or 0 for
// changesets and temporary (auto-committed) operations.
type TxnID uint64

// Type is the entry's kind, encoded as a u32 on disk.
type Type uint32

const (
	TxnBegin Type = iota
	TxnAbort
	TxnCommit
	Insert
	Erase
	Changeset
)

func (t Type) String() string {
	switch t {
	case TxnBegin:
		return "TxnBegin"
	case TxnAbort:
		return "TxnAbort"
	case TxnCommit:
		return "TxnCommit"
	case Insert:
		return "Insert"
	case Erase:
		return "Erase"
	case Changeset:
		return "Changeset"
	default:
		return fmt.Sprintf("Type(%d)", uint32(t))
	}
}

// HeaderSize is the fixed size, in bytes, of every entry header.
const HeaderSize = 8 + 8 + 4 + 2 + 4

// Header is written at the start of every entry.
type Header struct {
	LSN          LSN
	TxnID        TxnID
	Type         Type
	DBName       uint16
	FollowupSize uint32
}

// Pack appends the on-disk encoding of h to buf and returns the result.
func (h Header) Pack(buf []byte) []byte {
	buf = codec.PutUint64(buf, uint64(h.LSN))
	buf = codec.PutUint64(buf, uint64(h.TxnID))
	buf = codec.PutUint32(buf, uint32(h.Type))
	buf = codec.PutUint16(buf, h.DBName)
	buf = codec.PutUint32(buf, h.FollowupSize)
	return buf
}

// UnpackHeader decodes a Header from the first HeaderSize bytes of b.
func UnpackHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("record: short header, want %d bytes got %d", HeaderSize, len(b))
	}
	return Header{
		LSN:          LSN(codec.ToUint64(b[0:8])),
		TxnID:        TxnID(codec.ToUint64(b[8:16])),
		Type:         Type(codec.ToUint32(b[16:20])),
		DBName:       codec.ToUint16(b[20:22]),
		FollowupSize: codec.ToUint32(b[22:26]),
	}, nil
}

// InsertHeaderSize is the fixed size of the Insert payload header.
const InsertHeaderSize = 4 + 4 + 4 + 4 + 4

// InsertHeader immediately follows the entry header for Insert entries,
// then key bytes, then record bytes (each raw or compressed according
// to its Compressed*Size field; 0 means "not compressed").
type InsertHeader struct {
	KeySize             uint32
	CompressedKeySize   uint32
	RecordSize          uint32
	CompressedRecordSize uint32
	InsertFlags         uint32
}

func (h InsertHeader) Pack(buf []byte) []byte {
	buf = codec.PutUint32(buf, h.KeySize)
	buf = codec.PutUint32(buf, h.CompressedKeySize)
	buf = codec.PutUint32(buf, h.RecordSize)
	buf = codec.PutUint32(buf, h.CompressedRecordSize)
	buf = codec.PutUint32(buf, h.InsertFlags)
	return buf
}

func UnpackInsertHeader(b []byte) (InsertHeader, error) {
	if len(b) < InsertHeaderSize {
		return InsertHeader{}, fmt.Errorf("record: short insert header, want %d got %d", InsertHeaderSize, len(b))
	}
	return InsertHeader{
		KeySize:              codec.ToUint32(b[0:4]),
		CompressedKeySize:    codec.ToUint32(b[4:8]),
		RecordSize:           codec.ToUint32(b[8:12]),
		CompressedRecordSize: codec.ToUint32(b[12:16]),
		InsertFlags:          codec.ToUint32(b[16:20]),
	}, nil
}

// EraseHeaderSize is the fixed size of the Erase payload header.
const EraseHeaderSize = 4 + 4 + 4 + 4

// EraseHeader immediately follows the entry header for Erase entries,
// then key bytes (raw or compressed per CompressedKeySize).
type EraseHeader struct {
	KeySize           uint32
	CompressedKeySize uint32
	EraseFlags        uint32
	DuplicateIndex    uint32
}

func (h EraseHeader) Pack(buf []byte) []byte {
	buf = codec.PutUint32(buf, h.KeySize)
	buf = codec.PutUint32(buf, h.CompressedKeySize)
	buf = codec.PutUint32(buf, h.EraseFlags)
	buf = codec.PutUint32(buf, h.DuplicateIndex)
	return buf
}

func UnpackEraseHeader(b []byte) (EraseHeader, error) {
	if len(b) < EraseHeaderSize {
		return EraseHeader{}, fmt.Errorf("record: short erase header, want %d got %d", EraseHeaderSize, len(b))
	}
	return EraseHeader{
		KeySize:           codec.ToUint32(b[0:4]),
		CompressedKeySize: codec.ToUint32(b[4:8]),
		EraseFlags:        codec.ToUint32(b[8:12]),
		DuplicateIndex:    codec.ToUint32(b[12:16]),
	}, nil
}

// ChangesetHeaderSize is the fixed size of the Changeset payload header.
const ChangesetHeaderSize = 4 + 8

// ChangesetHeader immediately follows the entry header for Changeset
// entries, then NumPages PageRecords.
type ChangesetHeader struct {
	NumPages     uint32
	LastBlobPage uint64
}

func (h ChangesetHeader) Pack(buf []byte) []byte {
	buf = codec.PutUint32(buf, h.NumPages)
	buf = codec.PutUint64(buf, h.LastBlobPage)
	return buf
}

func UnpackChangesetHeader(b []byte) (ChangesetHeader, error) {
	if len(b) < ChangesetHeaderSize {
		return ChangesetHeader{}, fmt.Errorf("record: short changeset header, want %d got %d", ChangesetHeaderSize, len(b))
	}
	return ChangesetHeader{
		NumPages:     codec.ToUint32(b[0:4]),
		LastBlobPage: codec.ToUint64(b[4:12]),
	}, nil
}

// PageHeaderSize is the fixed size of a single page record header
// within a changeset.
const PageHeaderSize = 8 + 4

// PageHeader precedes each page's bytes within a changeset. If
// CompressedSize is 0 the page follows raw (PageSize bytes); otherwise
// CompressedSize compressed bytes follow.
type PageHeader struct {
	PageAddress    uint64
	CompressedSize uint32
}

func (h PageHeader) Pack(buf []byte) []byte {
	buf = codec.PutUint64(buf, h.PageAddress)
	buf = codec.PutUint32(buf, h.CompressedSize)
	return buf
}

func UnpackPageHeader(b []byte) (PageHeader, error) {
	if len(b) < PageHeaderSize {
		return PageHeader{}, fmt.Errorf("record: short page header, want %d got %d", PageHeaderSize, len(b))
	}
	return PageHeader{
		PageAddress:    codec.ToUint64(b[0:8]),
		CompressedSize: codec.ToUint32(b[8:12]),
	}, nil
}
