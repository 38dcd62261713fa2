package worksteal

import "sync/atomic"

// DefaultDequeCapacity is the per-worker deque bound used when no
// capacity option is given.
const DefaultDequeCapacity = 32

// ============================================================================
// Packed age word
// ============================================================================

// dequeAge packs the {tag, top} pair into one atomically-updatable word:
// the generation tag in the high 32 bits, the steal index in the low 32.
// The tag is bumped on every reset so a thief holding a stale age can
// never complete its CAS (ABA defense).
type dequeAge uint64

func packAge(tag, top uint32) dequeAge {
	return dequeAge(uint64(tag)<<32 | uint64(top))
}

func (a dequeAge) tag() uint32 { return uint32(a >> 32) }
func (a dequeAge) top() uint32 { return uint32(a) }

// ============================================================================
// ABP work-stealing deque
// ============================================================================

// Deque is a bounded lock-free work-stealing deque of tasks, after Arora,
// Blumofe and Plaxton. The owning worker pushes and pops at the bottom
// (LIFO) and is the only goroutine allowed to do so; any goroutine may
// steal the oldest task from the top (FIFO). The only contended word is
// age; the bottom index is single-writer.
type Deque struct {
	slots []atomic.Pointer[Task]
	_     CacheLinePad
	bot   atomic.Uint64 // owner's end: index of the next free slot
	_     CacheLinePad
	age   atomic.Uint64 // packed dequeAge guarding the thieves' end
	_     CacheLinePad
}

// NewDeque creates a deque with the given fixed capacity.
// Capacities <= 0 fall back to DefaultDequeCapacity.
func NewDeque(capacity int) *Deque {
	if capacity <= 0 {
		capacity = DefaultDequeCapacity
	}
	return &Deque{
		slots: make([]atomic.Pointer[Task], capacity),
	}
}

// Cap returns the fixed capacity of the deque.
func (d *Deque) Cap() int {
	return len(d.slots)
}

// Len returns the approximate number of queued tasks. It is exact only
// when no push, pop or steal is in flight.
func (d *Deque) Len() int {
	bot := d.bot.Load()
	top := uint64(dequeAge(d.age.Load()).top())
	if bot <= top {
		return 0
	}
	return int(bot - top)
}

// Push appends a task at the bottom. Owner only; must never run
// concurrently with another Push or Pop on the same deque.
// Returns ErrDequeFull when the bottom index has reached the capacity.
// Slots freed at the top by steals are not reused until a Pop resets
// the deque to empty.
func (d *Deque) Push(t *Task) error {
	bot := d.bot.Load()
	if bot >= uint64(len(d.slots)) {
		return ErrDequeFull
	}
	d.slots[bot].Store(t)
	d.bot.Store(bot + 1)
	return nil
}

// Pop removes and returns the newest task, or nil if the deque is empty
// or a thief won the race for the last task. Owner only.
func (d *Deque) Pop() *Task {
	bot := d.bot.Load()
	if bot == 0 {
		return nil
	}
	bot--
	d.bot.Store(bot) // reserve the bottom slot against thieves
	t := d.slots[bot].Load()
	old := dequeAge(d.age.Load())
	if bot > uint64(old.top()) {
		// two or more tasks remain; no thief can reach this slot
		return t
	}

	// At most one task left. Normalize to empty and bump the tag so any
	// thief holding the old age fails its CAS.
	d.bot.Store(0)
	fresh := packAge(old.tag()+1, 0)
	if bot == uint64(old.top()) {
		// exactly one task: race the thieves for it
		if d.age.CompareAndSwap(uint64(old), uint64(fresh)) {
			return t
		}
	}
	// The store below may overwrite a winning thief's top increment.
	// That is safe: thieves only advance top within (old.top, old bot],
	// and bot is already published as 0, so no queued task is reachable
	// through the clobbered index.
	d.age.Store(uint64(fresh))
	return nil
}

// Steal removes and returns the oldest task. Any goroutine may call it.
// Returns nil when the deque is empty or the CAS was lost to a
// concurrent pop or steal; callers treat both alike and simply retry,
// usually against another victim.
func (d *Deque) Steal() *Task {
	old := dequeAge(d.age.Load())
	bot := d.bot.Load()
	if bot <= uint64(old.top()) {
		return nil
	}
	t := d.slots[old.top()].Load()
	if d.age.CompareAndSwap(uint64(old), uint64(packAge(old.tag(), old.top()+1))) {
		return t
	}
	return nil
}
