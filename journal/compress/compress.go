// Package compress provides the journal's pluggable payload
// compressor, selected by the environment's journal_compressor config
// at open time. The on-disk format does not identify which algorithm
// produced a compressed payload; decompression always knows the
// uncompressed size up front (from the entry's own headers) and is
// handed it explicitly.
package compress

import (
	"fmt"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

// Algorithm selects a Compressor implementation. 0 disables compression.
type Algorithm int

const (
	None Algorithm = iota
	Snappy
	Zstd
)

// Compressor compresses and decompresses journal payloads (keys,
// records, and page images). Since the journal is single-writer, a
// single Compressor instance with internal scratch state is safe to
// reuse across calls without synchronization.
type Compressor interface {
	// Compress returns the compressed form of src. Callers must compare
	// len(result) against len(src) themselves and fall back to the raw
	// bytes when compression does not shrink the payload.
	Compress(src []byte) ([]byte, error)
	// Decompress expands src, which is known to hold exactly
	// uncompressedSize bytes once expanded.
	Decompress(src []byte, uncompressedSize int) ([]byte, error)
}

// New builds the Compressor for algo, or nil (no compression) for None.
func New(algo Algorithm) (Compressor, error) {
	switch algo {
	case None:
		return nil, nil
	case Snappy:
		return &snappyCompressor{}, nil
	case Zstd:
		return newZstdCompressor()
	default:
		return nil, fmt.Errorf("compress: unknown algorithm id %d", algo)
	}
}

type snappyCompressor struct{}

func (c *snappyCompressor) Compress(src []byte) ([]byte, error) {
	return snappy.Encode(nil, src), nil
}

func (c *snappyCompressor) Decompress(src []byte, uncompressedSize int) ([]byte, error) {
	dst := make([]byte, 0, uncompressedSize)
	out, err := snappy.Decode(dst, src)
	if err != nil {
		return nil, fmt.Errorf("compress: snappy decode: %w", err)
	}
	return out, nil
}

type zstdCompressor struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func newZstdCompressor() (*zstdCompressor, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("compress: new zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("compress: new zstd decoder: %w", err)
	}
	return &zstdCompressor{enc: enc, dec: dec}, nil
}

func (c *zstdCompressor) Compress(src []byte) ([]byte, error) {
	return c.enc.EncodeAll(src, nil), nil
}

func (c *zstdCompressor) Decompress(src []byte, uncompressedSize int) ([]byte, error) {
	out, err := c.dec.DecodeAll(src, make([]byte, 0, uncompressedSize))
	if err != nil {
		return nil, fmt.Errorf("compress: zstd decode: %w", err)
	}
	return out, nil
}
