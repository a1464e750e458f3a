package concurrency

import (
	"sync/atomic"

	"github.com/fusexd/metacore/internal/logger"
)

// MaxThreadSlots bounds the thread-local-slot epoch counter's bitmap, the
// "fixed-size (default 65536) bitmap" spec.md §5 names for this variant.
const MaxThreadSlots = 65536

var slotInUse [MaxThreadSlots]atomic.Bool

// ThreadSlot is a goroutine-scoped slot id, standing in for the
// thread-local unique id the spec's thread-slot counter variant keys off
// of (Go has no thread-locals, so callers acquire and release a slot
// explicitly around the goroutine's lifetime instead of relying on a
// destructor).
type ThreadSlot struct {
	id int // -1 means the bitmap was exhausted; counters use a shared fallback tally
}

// AcquireThreadSlot claims a free slot id. Exhaustion is a logged soft
// failure, not a crash: the returned slot has id -1, which ThreadSlotCounter
// counts in a shared fallback tally that reports readers for every epoch;
// this can delay reclamation but never corrupts state (spec.md §7's
// "Concurrency" failure mode).
func AcquireThreadSlot() *ThreadSlot {
	for i := 0; i < MaxThreadSlots; i++ {
		if slotInUse[i].CompareAndSwap(false, true) {
			return &ThreadSlot{id: i}
		}
	}
	logger.Warn("concurrency: thread slot bitmap exhausted, counter degrading to always-has-readers for this slot")
	return &ThreadSlot{id: -1}
}

// Release returns the slot to the free pool.
func (s *ThreadSlot) Release() {
	if s.id >= 0 {
		slotInUse[s.id].Store(false)
	}
}

// ThreadSlotCounter is the thread-local-slot epoch counter variant:
// strictly wait-free on the reader side, at the cost of an O(MaxThreadSlots)
// writer scan. Each slot packs a 16-bit reader count and its most recent
// epoch into one atomic word, mirroring ThreadEpoch's bit-packed layout.
//
// Readers whose ThreadSlot was exhausted at acquire time (id < 0) fall back
// to a single shared counter that HasReaders always treats as "still has
// readers", regardless of the epoch a writer asks about: the degradation
// spec.md §7 calls for must only delay reclamation, never under-count a
// live reader.
type ThreadSlotCounter struct {
	slots          [MaxThreadSlots]atomic.Uint64
	fallbackActive atomic.Int64
}

// Increment registers slot as an active reader in epoch.
func (c *ThreadSlotCounter) Increment(slot *ThreadSlot, epoch uint64) {
	if slot.id < 0 {
		c.fallbackActive.Add(1)
		return
	}
	old := c.slots[slot.id].Load()
	count := (old & 0xFFFF) + 1
	c.slots[slot.id].Store((epoch << 16) | count)
}

// Decrement retires slot's most recent registration.
func (c *ThreadSlotCounter) Decrement(slot *ThreadSlot) {
	if slot.id < 0 {
		c.fallbackActive.Add(-1)
		return
	}
	c.slots[slot.id].Add(^uint64(0)) // -1, matching fetch_sub
}

// HasReaders reports whether any slot is currently registered at epoch, or
// any exhausted-slot reader is active at all. O(MaxThreadSlots); only a
// writer calls this, and only once per Update.
func (c *ThreadSlotCounter) HasReaders(epoch uint64) bool {
	if c.fallbackActive.Load() > 0 {
		return true
	}
	for i := range c.slots {
		v := c.slots[i].Load()
		if v>>16 == epoch && v&0xFFFF > 0 {
			return true
		}
	}
	return false
}
