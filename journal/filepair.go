package journal

import (
	"fmt"
	"io"
	"os"
)

// file wraps a single journal file (one of the pair) with the
// create/open/truncate/seek/pread/append/fsync operations spec §4.2
// requires. pread is used exclusively by recovery; steady-state
// appends go through the write buffer.
type file struct {
	path string
	fp   *os.File
}

func createFile(path string) (*file, error) {
	fp, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("journal: create %s: %w", path, err)
	}
	return &file{path: path, fp: fp}, nil
}

func openFile(path string) (*file, error) {
	fp, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	return &file{path: path, fp: fp}, nil
}

func (f *file) isOpen() bool { return f.fp != nil }

func (f *file) close() error {
	if f.fp == nil {
		return nil
	}
	err := f.fp.Close()
	f.fp = nil
	return err
}

// truncate resets the file to length bytes and, per spec §4.2, reseeks
// the write position to the new end of file (0 after truncate(0)) —
// implementations with independent read/write offsets must do this
// explicitly, since truncate alone leaves the OS file pointer wherever
// it was.
func (f *file) truncate(length int64) error {
	if err := f.fp.Truncate(length); err != nil {
		return fmt.Errorf("journal: truncate %s: %w", f.path, err)
	}
	if _, err := f.fp.Seek(length, io.SeekStart); err != nil {
		return fmt.Errorf("journal: seek after truncate %s: %w", f.path, err)
	}
	return nil
}

func (f *file) seekEnd() error {
	_, err := f.fp.Seek(0, io.SeekEnd)
	return err
}

// pread reads exactly len(buf) bytes at offset, or returns a short-read
// error if fewer bytes were available (a truncated tail).
func (f *file) pread(offset int64, buf []byte) error {
	n, err := f.fp.ReadAt(buf, offset)
	if n == len(buf) {
		return nil
	}
	if err != nil && err != io.EOF {
		return fmt.Errorf("journal: pread %s at %d: %w", f.path, offset, err)
	}
	return shortReadError(fmt.Sprintf("pread %s at %d: got %d of %d bytes", f.path, offset, n, len(buf)))
}

// append writes buf at the current end of file.
func (f *file) append(buf []byte) error {
	if _, err := f.fp.Write(buf); err != nil {
		return fmt.Errorf("journal: append to %s: %w", f.path, err)
	}
	return nil
}

func (f *file) fsync() error {
	if err := f.fp.Sync(); err != nil {
		return fmt.Errorf("journal: fsync %s: %w", f.path, err)
	}
	return nil
}

func (f *file) fileSize() (int64, error) {
	fi, err := f.fp.Stat()
	if err != nil {
		return 0, fmt.Errorf("journal: stat %s: %w", f.path, err)
	}
	return fi.Size(), nil
}
