// Package timer implements the single-threaded loop's timer facility
// (spec.md §5 "Timers: ... modeled as a min-heap of deadlines"). It
// replaces the teacher's goroutine+time.AfterFunc+mutex scheduling with a
// heap of pending deadlines polled on one goroutine (Loop.Run, or a
// caller's own select loop as in cmd/sipagent), since spec.md §5
// mandates a single-threaded cooperative event loop with no internal
// locking. This is the one deliberate structural departure from the
// teacher's concurrency idiom (see SPEC_FULL.md §4.F).
package timer

import (
	"container/heap"
)

// Func is invoked when a scheduled deadline elapses.
type Func func()

// entry is one scheduled callback. A tombstoned entry (cancelled) is
// skipped when popped rather than removed from the heap immediately, so
// cancellation is O(1) and idempotent (spec.md §5).
type entry struct {
	deadline  int64 // monotonic nanoseconds, caller-supplied clock
	seq       uint64
	fn        Func
	cancelled bool
	index     int
}

type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }
func (h entryHeap) Less(i, j int) bool {
	if h[i].deadline != h[j].deadline {
		return h[i].deadline < h[j].deadline
	}
	return h[i].seq < h[j].seq
}
func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *entryHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Wheel is a min-heap of pending deadlines owned by exactly one loop
// thread; it performs no internal locking (spec.md §5).
type Wheel struct {
	h       entryHeap
	nextSeq uint64
}

// NewWheel returns an empty Wheel.
func NewWheel() *Wheel {
	return &Wheel{h: make(entryHeap, 0, 16)}
}

// Handle lets the caller cancel a scheduled callback.
type Handle struct {
	e *entry
}

// Schedule arranges for fn to run the next time Poll is called at or after
// deadline (monotonic nanoseconds, caller's clock source).
func (w *Wheel) Schedule(deadline int64, fn Func) Handle {
	e := &entry{deadline: deadline, seq: w.nextSeq, fn: fn}
	w.nextSeq++
	heap.Push(&w.h, e)
	return Handle{e: e}
}

// Cancel tombstones the callback; synchronous and idempotent (spec.md §5).
func (h Handle) Cancel() {
	if h.e != nil {
		h.e.cancelled = true
	}
}

// NextDeadline returns the earliest pending, non-cancelled deadline and
// true, or (0, false) if the wheel is empty.
func (w *Wheel) NextDeadline() (int64, bool) {
	for len(w.h) > 0 {
		top := w.h[0]
		if top.cancelled {
			heap.Pop(&w.h)
			continue
		}
		return top.deadline, true
	}
	return 0, false
}

// Poll fires every callback whose deadline is <= now, in deadline order.
// It returns the number of callbacks fired.
func (w *Wheel) Poll(now int64) int {
	fired := 0
	for len(w.h) > 0 {
		top := w.h[0]
		if top.cancelled {
			heap.Pop(&w.h)
			continue
		}
		if top.deadline > now {
			break
		}
		heap.Pop(&w.h)
		top.fn()
		fired++
	}
	return fired
}

// Len reports the number of entries still in the heap, including
// not-yet-swept tombstones.
func (w *Wheel) Len() int { return len(w.h) }
