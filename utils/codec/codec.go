// Package codec provides the low-level host-byte-order integer
// conversions used to pack and unpack the journal's on-disk records.
//
// The on-disk format is specified as host byte order (the store is
// single-host; see the journal package's format doc), so this package
// uses the stdlib's native-endian accessors rather than a third-party
// serialization library: no example library in this codebase's stack
// targets raw fixed-width host-order record packing, and reflection- or
// unsafe-pointer-based byte punning (the style used elsewhere in this
// corpus for the same purpose) is not worth the safety trade-off for a
// handful of fixed fields.
package codec

import (
	"encoding/binary"
	"fmt"
	"runtime"
)

// PutUint16/32/64 append the native-endian encoding of v to buf.
func PutUint16(buf []byte, v uint16) []byte {
	return binary.NativeEndian.AppendUint16(buf, v)
}

func PutUint32(buf []byte, v uint32) []byte {
	return binary.NativeEndian.AppendUint32(buf, v)
}

func PutUint64(buf []byte, v uint64) []byte {
	return binary.NativeEndian.AppendUint64(buf, v)
}

// ToUint16/32/64 decode the native-endian integer at the head of b.
func ToUint16(b []byte) uint16 { return binary.NativeEndian.Uint16(b) }
func ToUint32(b []byte) uint32 { return binary.NativeEndian.Uint32(b) }
func ToUint64(b []byte) uint64 { return binary.NativeEndian.Uint64(b) }

// GetCallerFileContext reports "file:line" of the caller `level` frames
// above this call, used to tag error messages the way the teacher's
// errReport helper does.
func GetCallerFileContext(level int) string {
	_, file, line, _ := runtime.Caller(1 + level)
	return fmt.Sprintf("%s:%d", file, line)
}
