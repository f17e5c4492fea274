package spatial

import (
	"sync/atomic"
)

// CacheLineSize is the typical CPU cache line size (64 bytes on x86-64)
const CacheLineSize = 64

// Padding keeps hot counters on separate cache lines.
type Padding [CacheLineSize]byte

type slot[T any] struct {
	seq atomic.Uint64
	val T
}

// LockFreeQueue is a bounded multi-producer single-consumer ring buffer.
// Each slot carries a sequence number, so the consumer never observes a
// slot that a producer has claimed but not yet written (Vyukov's bounded
// queue).
//
// Producers: transport read pump and input callers. Consumer: frame loop.
type LockFreeQueue[T any] struct {
	_pad0 Padding
	head  atomic.Uint64 // Next position to claim (producers)
	_pad1 Padding
	tail  atomic.Uint64 // Next position to read (consumer)
	_pad2 Padding
	mask  uint64
	slots []slot[T]
}

// NewLockFreeQueue creates a queue; capacity is rounded up to a power of 2.
func NewLockFreeQueue[T any](capacity int) *LockFreeQueue[T] {
	size := 1
	for size < capacity {
		size <<= 1
	}
	q := &LockFreeQueue[T]{
		mask:  uint64(size - 1),
		slots: make([]slot[T], size),
	}
	for i := range q.slots {
		q.slots[i].seq.Store(uint64(i))
	}
	return q
}

// TryPush enqueues item, returning false when the queue is full.
// Safe for concurrent producers.
func (q *LockFreeQueue[T]) TryPush(item T) bool {
	pos := q.head.Load()
	for {
		s := &q.slots[pos&q.mask]
		seq := s.seq.Load()
		switch dif := int64(seq) - int64(pos); {
		case dif == 0:
			if q.head.CompareAndSwap(pos, pos+1) {
				s.val = item
				s.seq.Store(pos + 1)
				return true
			}
			pos = q.head.Load()
		case dif < 0:
			return false
		default:
			pos = q.head.Load()
		}
	}
}

// TryPop dequeues the oldest item. Single consumer only.
func (q *LockFreeQueue[T]) TryPop() (T, bool) {
	var zero T
	pos := q.tail.Load()
	s := &q.slots[pos&q.mask]
	if int64(s.seq.Load())-int64(pos+1) < 0 {
		return zero, false
	}
	item := s.val
	s.val = zero
	s.seq.Store(pos + q.mask + 1)
	q.tail.Store(pos + 1)
	return item, true
}

// DrainTo pops up to len(buf) items into buf and returns how many were read.
func (q *LockFreeQueue[T]) DrainTo(buf []T) int {
	n := 0
	for n < len(buf) {
		item, ok := q.TryPop()
		if !ok {
			break
		}
		buf[n] = item
		n++
	}
	return n
}

// Len returns an approximate item count.
func (q *LockFreeQueue[T]) Len() int {
	head := q.head.Load()
	tail := q.tail.Load()
	if head < tail {
		return 0
	}
	return int(head - tail)
}

// Cap returns the queue capacity.
func (q *LockFreeQueue[T]) Cap() int {
	return int(q.mask + 1)
}
