// Package dsa holds the small data structures the ledger builds on.
package dsa

import (
	"sync"
	"time"
)

// ─── Settlement Queue (Min-Heap) ────────────────────────────────────────────
// Binary min-heap that yields debts in payment order.
//
// Operations:
//   Push:    O(log n), sift up
//   Pop:     O(log n), sift down (extract-min)
//
// Ordering: Rank ascending, then Date, then CreatedAt, then Key.
// The full key makes the order total, so equal inputs always pop the same way.

// HeapItem is an element in the queue.
type HeapItem struct {
	Key       string    // Unique identifier (debt ID)
	Rank      int       // Lower is served first (0 = high priority)
	Date      time.Time // Older first within a rank
	CreatedAt time.Time // Older first within a date
	Value     any       // Payload (caller stores whatever they need)
}

// Queue is a thread-safe min-heap.
type Queue struct {
	mu   sync.Mutex
	heap []HeapItem
}

// NewQueue creates an empty queue sized for n items.
func NewQueue(n int) *Queue {
	return &Queue{heap: make([]HeapItem, 0, n)}
}

// Push adds an item to the queue. O(log n).
func (q *Queue) Push(item HeapItem) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.heap = append(q.heap, item)
	q.siftUp(len(q.heap) - 1)
}

// Pop removes and returns the first item in payment order. O(log n).
// Returns the item and true, or zero-value and false if empty.
func (q *Queue) Pop() (HeapItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.heap) == 0 {
		return HeapItem{}, false
	}

	top := q.heap[0]
	last := len(q.heap) - 1
	q.heap[0] = q.heap[last]
	q.heap = q.heap[:last]
	if len(q.heap) > 0 {
		q.siftDown(0)
	}
	return top, true
}

// servedBefore reports whether a is paid before b.
func servedBefore(a, b HeapItem) bool {
	if a.Rank != b.Rank {
		return a.Rank < b.Rank
	}
	if !a.Date.Equal(b.Date) {
		return a.Date.Before(b.Date)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.Key < b.Key
}

func (q *Queue) less(i, j int) bool {
	return servedBefore(q.heap[i], q.heap[j])
}

// siftUp restores heap property after insertion.
func (q *Queue) siftUp(idx int) {
	for idx > 0 {
		parent := (idx - 1) / 2
		if q.less(idx, parent) {
			q.heap[idx], q.heap[parent] = q.heap[parent], q.heap[idx]
			idx = parent
		} else {
			break
		}
	}
}

// siftDown restores heap property after extraction.
func (q *Queue) siftDown(idx int) {
	n := len(q.heap)
	for {
		smallest := idx
		left := 2*idx + 1
		right := 2*idx + 2

		if left < n && q.less(left, smallest) {
			smallest = left
		}
		if right < n && q.less(right, smallest) {
			smallest = right
		}
		if smallest == idx {
			break
		}
		q.heap[idx], q.heap[smallest] = q.heap[smallest], q.heap[idx]
		idx = smallest
	}
}
