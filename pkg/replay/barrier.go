package replay

import "sync/atomic"

// barrier is a reference-counted wrapper around a one-shot completion
// channel, posted exactly once on last-reference drop. It implements
// "signal once every holder is gone" without the holders needing to
// coordinate directly with each other: each just calls drop() when it is
// done, mirroring the source's barrier_t over an XrdSysSemaphore.
type barrier struct {
	refs atomic.Int64
	done chan struct{}
}

// newBarrier creates a barrier with an initial reference count of n. The
// caller must eventually call drop() exactly n times. n may be 0 (e.g. a
// file stream with no non-Close actions), in which case the barrier starts
// already satisfied.
func newBarrier(n int64) *barrier {
	b := &barrier{done: make(chan struct{})}
	if n <= 0 {
		close(b.done)
		return b
	}
	b.refs.Store(n)
	return b
}

// drop releases one reference. The done channel is closed when the last
// reference is dropped.
func (b *barrier) drop() {
	if b.refs.Add(-1) == 0 {
		close(b.done)
	}
}

// wait blocks until every reference has been dropped.
func (b *barrier) wait() {
	<-b.done
}
