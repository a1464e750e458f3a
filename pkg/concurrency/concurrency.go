// Package concurrency provides the read-mostly synchronization toolkit
// spec.md §5 mandates: a wait-free atomic owned pointer, an epoch-based
// reader counter, and an RCU domain built on top of the two. Callers reach
// for this when data is read on nearly every request and updated rarely —
// everything else in this module (the cap store, the client registry) uses
// plain coarse-grained mutual exclusion instead, since their update rate is
// high enough that RCU's drain cost would dominate (spec.md §5).
package concurrency

import (
	"runtime"
	"sync/atomic"
)

// AtomicPointer is a single-writer, many-reader publication cell for a heap
// object of type T. Load is wait-free: one atomic load with acquire
// ordering. Reset is lock-free: one atomic exchange with acquire-release
// ordering, returning the previous value so the caller can reclaim it at a
// safe point instead of freeing it inline. ResetFromNil is only safe before
// any reader has observed the cell.
type AtomicPointer[T any] struct {
	p atomic.Pointer[T]
}

// NewAtomicPointer constructs a cell already publishing initial.
func NewAtomicPointer[T any](initial *T) *AtomicPointer[T] {
	a := &AtomicPointer[T]{}
	a.p.Store(initial)
	return a
}

// Load returns the currently published value.
func (a *AtomicPointer[T]) Load() *T {
	return a.p.Load()
}

// Reset publishes v and returns the value it replaced.
func (a *AtomicPointer[T]) Reset(v *T) *T {
	return a.p.Swap(v)
}

// epochRingSize bounds the number of in-flight epochs this counter can
// track at once; a small fixed ring (spec.md §5's first permitted epoch
// counter shape) is the right fit here since this module has no
// thread-local storage to key a per-goroutine slot off of.
const epochRingSize = 4

// EpochCounter is a small fixed ring of per-epoch atomic reader tallies.
// Readers register with Increment(epoch) and Decrement(epoch) in O(1); a
// writer asks HasReaders(epoch) in O(1).
type EpochCounter struct {
	counters [epochRingSize]atomic.Int64
}

func (e *EpochCounter) bucket(epoch uint64) *atomic.Int64 {
	return &e.counters[epoch%epochRingSize]
}

// Increment registers a reader as active in epoch.
func (e *EpochCounter) Increment(epoch uint64) {
	e.bucket(epoch).Add(1)
}

// Decrement retires a reader that was active in epoch.
func (e *EpochCounter) Decrement(epoch uint64) {
	e.bucket(epoch).Add(-1)
}

// HasReaders reports whether any reader registered in epoch has not yet
// decremented.
func (e *EpochCounter) HasReaders(epoch uint64) bool {
	return e.bucket(epoch).Load() > 0
}

// RCUDomain combines an AtomicPointer and an EpochCounter into read-side
// critical sections plus a writer synchronize() (spec.md §5's third
// mandated primitive). A writer slot is bounded to one concurrent writer;
// a second writer spins on a CAS against writerActive until the first
// finishes, rather than blocking on a mutex — matching the "serialized via
// a CAS on a writer-count atomic" wording.
type RCUDomain[T any] struct {
	ptr          AtomicPointer[T]
	epoch        atomic.Uint64
	readers      EpochCounter
	writerActive atomic.Int32
}

// NewRCUDomain constructs a domain already publishing initial.
func NewRCUDomain[T any](initial *T) *RCUDomain[T] {
	d := &RCUDomain[T]{}
	d.ptr.p.Store(initial)
	return d
}

// ReadLock enters a read-side critical section, returning the currently
// published value and the epoch tag the matching ReadUnlock must pass
// back. The critical section must not block indefinitely — a writer
// waiting to reclaim the prior epoch's readers spins against it.
func (d *RCUDomain[T]) ReadLock() (*T, uint64) {
	epoch := d.epoch.Load()
	d.readers.Increment(epoch)
	return d.ptr.Load(), epoch
}

// ReadUnlock exits the critical section opened by the matching ReadLock.
func (d *RCUDomain[T]) ReadUnlock(epoch uint64) {
	d.readers.Decrement(epoch)
}

// Update publishes newVal, waits for every reader that observed the prior
// value to exit its critical section, and returns the prior value for the
// caller to reclaim. Concurrent Update calls serialize on writerActive.
func (d *RCUDomain[T]) Update(newVal *T) *T {
	for !d.writerActive.CompareAndSwap(0, 1) {
		runtime.Gosched()
	}
	defer d.writerActive.Store(0)

	priorEpoch := d.epoch.Load()
	d.epoch.Store(priorEpoch + 1)
	for d.readers.HasReaders(priorEpoch) {
		runtime.Gosched()
	}
	return d.ptr.Reset(newVal)
}
