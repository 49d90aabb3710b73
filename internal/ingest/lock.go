package ingest

import "sync/atomic"

// IngestLock makes an Ingester single-flight. Two ingests sharing one store
// would interleave their delete and insert batches, so the second caller is
// turned away with ErrIngestInProgress instead of waiting.
type IngestLock struct {
	busy atomic.Bool
}

// TryAcquire claims the lock and reports whether the caller now holds it
func (l *IngestLock) TryAcquire() bool {
	return l.busy.CompareAndSwap(false, true)
}

// Release frees the lock. Only the holder may call it.
func (l *IngestLock) Release() {
	l.busy.Store(false)
}
