package perception

import (
	"iter"
	"sync"
	"time"
)

// DefaultBufferCapacity is the retained history per component.
const DefaultBufferCapacity = 1000

// Entry is one retained observation: the raw reading, its anomaly score and
// the ingestion timestamp. Entries are never mutated after insertion.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Reading   Reading   `json:"reading"`
	Score     float64   `json:"score"`
}

// Buffer is a bounded per-component history of recent observations with
// ring semantics: once a component reaches capacity, each push evicts the
// oldest entry. Safe for concurrent use.
type Buffer struct {
	capacity int
	mu       sync.RWMutex
	rings    map[string]*componentRing
}

type componentRing struct {
	entries []Entry
	head    int // index of the oldest entry
	count   int
}

// NewBuffer creates a buffer retaining up to capacity entries per component.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultBufferCapacity
	}
	return &Buffer{
		capacity: capacity,
		rings:    make(map[string]*componentRing),
	}
}

// Push appends an entry to the component's history, evicting the oldest
// entry once capacity is exceeded. O(1).
func (b *Buffer) Push(component string, e Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ring, ok := b.rings[component]
	if !ok {
		ring = &componentRing{entries: make([]Entry, b.capacity)}
		b.rings[component] = ring
	}

	if ring.count < b.capacity {
		ring.entries[(ring.head+ring.count)%b.capacity] = e
		ring.count++
		return
	}
	ring.entries[ring.head] = e
	ring.head = (ring.head + 1) % b.capacity
}

// Len returns the number of retained entries for a component.
func (b *Buffer) Len(component string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if ring, ok := b.rings[component]; ok {
		return ring.count
	}
	return 0
}

// Capacity returns the configured per-component capacity.
func (b *Buffer) Capacity() int { return b.capacity }

// Components returns the component names with retained history.
func (b *Buffer) Components() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.rings))
	for name := range b.rings {
		names = append(names, name)
	}
	return names
}

// Window returns the most recent n entries for a component in chronological
// order as a restartable sequence over an immutable snapshot taken at call
// time. n larger than the retained count yields everything retained.
func (b *Buffer) Window(component string, n int) iter.Seq[Entry] {
	snapshot := b.snapshot(component, n)
	return func(yield func(Entry) bool) {
		for _, e := range snapshot {
			if !yield(e) {
				return
			}
		}
	}
}

func (b *Buffer) snapshot(component string, n int) []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ring, ok := b.rings[component]
	if !ok || n <= 0 {
		return nil
	}
	if n > ring.count {
		n = ring.count
	}

	out := make([]Entry, n)
	start := ring.head + ring.count - n
	for i := 0; i < n; i++ {
		out[i] = ring.entries[(start+i)%b.capacity]
	}
	return out
}
