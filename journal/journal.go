// Package journal implements the write-ahead journal of an embedded
// key-value storage engine: two-file rotation, in-memory write
// buffering, optional payload compression, fsync discipline on the
// append path, and a two-phase physical+logical replay on the
// recovery path.
//
// The journal is single-writer: every append is serialized by the
// caller (typically an environment-wide mutex held for the duration of
// a mutation). The only concurrency internal to the journal is the
// interaction between the writer and a single background page-flusher
// thread that calls TransactionFlushed and ChangesetFlushed; those two
// methods only touch per-file counters, kept safe via atomics (see
// rotation.go).
package journal

import (
	"fmt"

	"github.com/ondbase/kvjournal/journal/compress"
	"github.com/ondbase/kvjournal/journal/record"
	"github.com/ondbase/kvjournal/utils/log"
)

// InjectionPoint names a point inside AppendChangeset where a test
// build may inject a failure, to validate crash behavior (spec §4.5,
// §6). Production code never triggers these; FailPoint is nil unless a
// test sets it.
type InjectionPoint int

const (
	BeforeHeaderPatch InjectionPoint = iota
	BetweenPatchAndFlush
	AfterFlush
)

// Journal is the write-ahead log of a single storage engine instance.
// Access to a Journal's append path is single-threaded by contract;
// TransactionFlushed and ChangesetFlushed may be called concurrently
// from a page-flusher goroutine.
type Journal struct {
	cfg        Config
	files      [2]*file
	buffers    [2]writeBuffer
	rot        *rotation
	compressor compress.Compressor
	metrics    metricsCounters

	disableLogging bool
	logDesc        map[record.TxnID]int

	// FailPoint, when non-nil, is invoked at the three points named by
	// InjectionPoint inside AppendChangeset. Test-only.
	FailPoint func(InjectionPoint) error
}

// Create creates a fresh, empty journal file pair alongside the
// environment (spec: "The journal is created... alongside the
// environment").
func Create(cfg Config) (*Journal, error) {
	j, err := newJournal(cfg)
	if err != nil {
		return nil, err
	}
	path0, path1 := Paths(cfg)
	f0, err := createFile(path0)
	if err != nil {
		return nil, &CreateError{Err: err}
	}
	f1, err := createFile(path1)
	if err != nil {
		f0.close()
		return nil, &CreateError{Err: err}
	}
	j.files[0], j.files[1] = f0, f1
	return j, nil
}

// Open opens an existing journal file pair, e.g. ahead of recovery.
func Open(cfg Config) (*Journal, error) {
	j, err := newJournal(cfg)
	if err != nil {
		return nil, err
	}
	path0, path1 := Paths(cfg)
	f0, err := openFile(path0)
	if err != nil {
		return nil, &OpenError{Err: err}
	}
	f1, err := openFile(path1)
	if err != nil {
		f0.close()
		return nil, &OpenError{Err: err}
	}
	if err := f0.seekEnd(); err != nil {
		f0.close()
		f1.close()
		return nil, &OpenError{Err: err}
	}
	if err := f1.seekEnd(); err != nil {
		f0.close()
		f1.close()
		return nil, &OpenError{Err: err}
	}
	j.files[0], j.files[1] = f0, f1
	return j, nil
}

func newJournal(cfg Config) (*Journal, error) {
	comp, err := compress.New(compress.Algorithm(cfg.Compressor))
	if err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}
	return &Journal{
		cfg:        cfg,
		rot:        newRotation(cfg.SwitchThreshold),
		compressor: comp,
		logDesc:    make(map[record.TxnID]int),
	}, nil
}

// Close releases both file handles and clears both buffers
// unambiguously on all paths (spec §5). If preserve is true the files
// are flushed but left with their contents intact, for
// inspection/tests; otherwise the journal is cleared first, the normal
// shutdown path after a successful flush.
func (j *Journal) Close(preserve bool) error {
	if preserve {
		for i := range j.files {
			if j.files[i] != nil && j.files[i].isOpen() {
				if err := j.buffers[i].flush(j.files[i], false); err != nil {
					log.Error("journal: flush on close failed: %v", err)
				}
			}
		}
	} else if err := j.Clear(); err != nil {
		log.Error("journal: clear on close failed: %v", err)
	}

	var firstErr error
	for i := range j.files {
		if j.files[i] == nil {
			continue
		}
		if err := j.files[i].close(); err != nil && firstErr == nil {
			firstErr = err
		}
		j.buffers[i].clear()
	}
	return firstErr
}

// Clear truncates both files to zero length and resets their
// transaction counters and buffers, equivalent to clear_file(0) and
// clear_file(1) in the original design.
func (j *Journal) Clear() error {
	for i := range j.files {
		if err := j.clearFile(i); err != nil {
			return err
		}
	}
	return nil
}

func (j *Journal) clearFile(idx int) error {
	if j.files[idx] != nil && j.files[idx].isOpen() {
		if err := j.files[idx].truncate(0); err != nil {
			return err
		}
	}
	j.rot.openTxn[idx].Store(0)
	j.rot.closedTxn[idx].Store(0)
	j.buffers[idx].clear()
	return nil
}

// Metrics returns a read-only snapshot of the flush/compression
// counters (spec §6).
func (j *Journal) Metrics() Metrics { return j.metrics.snapshot() }

// TransactionFlushed is called by the page flusher once a committed
// transaction's dirty pages are durably on disk (spec §4.4).
func (j *Journal) TransactionFlushed(logDesc int) {
	j.rot.txnFlushed(logDesc)
}

// ChangesetFlushed is called by the page flusher once a changeset's
// pages are durably on disk (spec §4.4).
func (j *Journal) ChangesetFlushed(logDesc int) {
	j.rot.changesetFlushed(logDesc)
}
