// Package ring provides a bounded FIFO that evicts its oldest element when
// full.
package ring

// Buffer is a fixed-capacity FIFO. Pushing onto a full buffer overwrites
// the oldest element. Not safe for concurrent use.
type Buffer[T any] struct {
	items   []T
	head    int
	size    int
	evicted uint64
}

// New creates a buffer holding at most capacity elements.
// A capacity below 1 is treated as 1.
func New[T any](capacity int) *Buffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer[T]{items: make([]T, capacity)}
}

// Push appends v, evicting the oldest element when full.
// Returns the evicted element and true when an eviction happened.
func (b *Buffer[T]) Push(v T) (T, bool) {
	var old T
	evicted := false
	if b.size == len(b.items) {
		old = b.items[b.head]
		evicted = true
		b.head = (b.head + 1) % len(b.items)
		b.size--
		b.evicted++
	}
	tail := (b.head + b.size) % len(b.items)
	b.items[tail] = v
	b.size++
	return old, evicted
}

// Len returns the number of stored elements.
func (b *Buffer[T]) Len() int { return b.size }

// Cap returns the capacity.
func (b *Buffer[T]) Cap() int { return len(b.items) }

// Evicted returns how many elements have been overwritten.
func (b *Buffer[T]) Evicted() uint64 { return b.evicted }

// Last returns the newest element.
func (b *Buffer[T]) Last() (T, bool) {
	var zero T
	if b.size == 0 {
		return zero, false
	}
	return b.items[(b.head+b.size-1)%len(b.items)], true
}

// LastPtr returns a pointer to the newest element for in-place update, or nil.
func (b *Buffer[T]) LastPtr() *T {
	if b.size == 0 {
		return nil
	}
	return &b.items[(b.head+b.size-1)%len(b.items)]
}

// Slice returns the elements oldest first.
func (b *Buffer[T]) Slice() []T {
	out := make([]T, 0, b.size)
	for i := 0; i < b.size; i++ {
		out = append(out, b.items[(b.head+i)%len(b.items)])
	}
	return out
}

// Each calls fn for every element oldest first, stopping when fn returns false.
func (b *Buffer[T]) Each(fn func(*T) bool) {
	for i := 0; i < b.size; i++ {
		if !fn(&b.items[(b.head+i)%len(b.items)]) {
			return
		}
	}
}

// Clear removes every element.
func (b *Buffer[T]) Clear() {
	var zero T
	for i := range b.items {
		b.items[i] = zero
	}
	b.head, b.size = 0, 0
}
