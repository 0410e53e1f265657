package journal

import "sync/atomic"

// Metrics is a read-only snapshot of the counters spec §6 names:
// total bytes flushed to either journal file, and the bytes seen by
// the compressor before and after compression. There is no reset.
type Metrics struct {
	BytesFlushed           int64
	BytesBeforeCompression int64
	BytesAfterCompression  int64
}

type metricsCounters struct {
	bytesFlushed           atomic.Int64
	bytesBeforeCompression atomic.Int64
	bytesAfterCompression  atomic.Int64
}

func (m *metricsCounters) snapshot() Metrics {
	return Metrics{
		BytesFlushed:           m.bytesFlushed.Load(),
		BytesBeforeCompression: m.bytesBeforeCompression.Load(),
		BytesAfterCompression:  m.bytesAfterCompression.Load(),
	}
}
