package journal

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFile(t *testing.T) *file {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.jrn")
	f, err := createFile(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.close() })
	return f
}

func TestWriteBufferAppendAndOverwrite(t *testing.T) {
	var b writeBuffer
	pos1 := b.append([]byte{1, 2, 3})
	pos2 := b.append([]byte{4, 5})
	assert.Equal(t, 0, pos1)
	assert.Equal(t, 3, pos2)
	assert.Equal(t, 5, b.size())

	b.overwrite(pos1, []byte{9, 9, 9})
	assert.Equal(t, []byte{9, 9, 9, 4, 5}, b.buf)
}

func TestWriteBufferClear(t *testing.T) {
	var b writeBuffer
	b.append([]byte{1, 2, 3})
	b.clear()
	assert.Equal(t, 0, b.size())
}

func TestWriteBufferFlushEmptyIsNoop(t *testing.T) {
	var b writeBuffer
	f := newTestFile(t)
	require.NoError(t, b.flush(f, false))
	size, err := f.fileSize()
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestWriteBufferFlushWritesAndClears(t *testing.T) {
	var b writeBuffer
	f := newTestFile(t)
	b.append([]byte("hello"))
	require.NoError(t, b.flush(f, true))
	assert.Equal(t, 0, b.size())

	size, err := f.fileSize()
	require.NoError(t, err)
	assert.EqualValues(t, 5, size)

	got := make([]byte, 5)
	require.NoError(t, f.pread(0, got))
	assert.Equal(t, "hello", string(got))
}

func TestWriteBufferMaybeFlushBelowThreshold(t *testing.T) {
	var b writeBuffer
	f := newTestFile(t)
	b.append(make([]byte, 16))
	require.NoError(t, b.maybeFlush(f))
	assert.Equal(t, 16, b.size())
}

func TestWriteBufferMaybeFlushAboveThreshold(t *testing.T) {
	var b writeBuffer
	f := newTestFile(t)
	b.append(make([]byte, flushThreshold+1))
	require.NoError(t, b.maybeFlush(f))
	assert.Equal(t, 0, b.size())

	size, err := f.fileSize()
	require.NoError(t, err)
	assert.EqualValues(t, flushThreshold+1, size)
}

func TestFilePreadShortRead(t *testing.T) {
	f := newTestFile(t)
	require.NoError(t, f.append([]byte("abc")))

	buf := make([]byte, 10)
	err := f.pread(0, buf)
	require.Error(t, err)
	assert.True(t, isShortRead(err))
}

func TestFileTruncateReseeks(t *testing.T) {
	f := newTestFile(t)
	require.NoError(t, f.append([]byte("abcdef")))
	require.NoError(t, f.truncate(0))
	require.NoError(t, f.append([]byte("xy")))

	size, err := f.fileSize()
	require.NoError(t, err)
	assert.EqualValues(t, 2, size)
}

func TestOpenFileMissing(t *testing.T) {
	_, err := openFile(filepath.Join(t.TempDir(), "does-not-exist.jrn"))
	assert.Error(t, err)
	assert.True(t, os.IsNotExist(errors.Unwrap(err)))
}
