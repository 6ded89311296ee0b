package dsa

import (
	"testing"
	"time"
)

func d(day int) time.Time {
	return time.Date(2025, 1, day, 0, 0, 0, 0, time.UTC)
}

func TestQueue_Empty(t *testing.T) {
	q := NewQueue(0)
	if _, ok := q.Pop(); ok {
		t.Error("Pop() on empty queue returned ok")
	}
}

func TestQueue_Order(t *testing.T) {
	q := NewQueue(6)
	items := []HeapItem{
		{Key: "low-old", Rank: 2, Date: d(1)},
		{Key: "high-new", Rank: 0, Date: d(20)},
		{Key: "med-old", Rank: 1, Date: d(2)},
		{Key: "high-old", Rank: 0, Date: d(3)},
		{Key: "med-old-b", Rank: 1, Date: d(2), CreatedAt: d(5)},
		{Key: "med-old-a", Rank: 1, Date: d(2), CreatedAt: d(4)},
	}
	for _, it := range items {
		q.Push(it)
	}

	want := []string{"high-old", "high-new", "med-old", "med-old-a", "med-old-b", "low-old"}
	var got []string
	for {
		item, ok := q.Pop()
		if !ok {
			break
		}
		got = append(got, item.Key)
	}
	if len(got) != len(want) {
		t.Fatalf("popped %d items, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Pop() #%d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestServedBefore_KeyBreaksTies(t *testing.T) {
	a := HeapItem{Key: "a", Rank: 1, Date: d(1), CreatedAt: d(1)}
	b := HeapItem{Key: "b", Rank: 1, Date: d(1), CreatedAt: d(1)}
	if !servedBefore(a, b) || servedBefore(b, a) {
		t.Error("identical items should order by key")
	}
}
