package compress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoneReturnsNilCompressor(t *testing.T) {
	c, err := New(None)
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestUnknownAlgorithm(t *testing.T) {
	_, err := New(Algorithm(99))
	assert.Error(t, err)
}

func TestSnappyRoundTrip(t *testing.T) {
	c, err := New(Snappy)
	require.NoError(t, err)

	src := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog"), 64)
	compressed, err := c.Compress(src)
	require.NoError(t, err)
	assert.Less(t, len(compressed), len(src))

	out, err := c.Decompress(compressed, len(src))
	require.NoError(t, err)
	assert.Equal(t, src, out)
}

func TestZstdRoundTrip(t *testing.T) {
	c, err := New(Zstd)
	require.NoError(t, err)

	src := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog"), 64)
	compressed, err := c.Compress(src)
	require.NoError(t, err)
	assert.Less(t, len(compressed), len(src))

	out, err := c.Decompress(compressed, len(src))
	require.NoError(t, err)
	assert.Equal(t, src, out)
}

func TestSnappyRoundTripEmpty(t *testing.T) {
	c, err := New(Snappy)
	require.NoError(t, err)
	compressed, err := c.Compress(nil)
	require.NoError(t, err)
	out, err := c.Decompress(compressed, 0)
	require.NoError(t, err)
	assert.Empty(t, out)
}
