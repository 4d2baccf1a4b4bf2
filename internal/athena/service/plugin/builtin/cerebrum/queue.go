package cerebrum

import (
	"sync"
)

// Item is one entry of the event queue: a domain event, or the result of a
// tool call the model asked for.
type Item struct {
	ToolResult bool        `json:"tool_result"`
	Name       string      `json:"name"`
	ID         string      `json:"id,omitempty"`
	Args       interface{} `json:"args"`
}

// Queue is a FIFO consumed by snapshot and prefix removal. Producers only
// append; the consumer reads a prefix by length and later removes exactly
// that many items, so anything appended in between survives.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
}

// EnqueueTail appends v.
func (q *Queue[T]) EnqueueTail(v T) {
	q.mu.Lock()
	q.items = append(q.items, v)
	q.mu.Unlock()
}

// PeekLength returns the current length.
func (q *Queue[T]) PeekLength() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Snapshot returns a copy of the first n items (fewer if the queue is shorter).
func (q *Queue[T]) Snapshot(n int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	if n > len(q.items) {
		n = len(q.items)
	}
	out := make([]T, n)
	copy(out, q.items[:n])
	return out
}

// RemovePrefix drops the first n items.
func (q *Queue[T]) RemovePrefix(n int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if n > len(q.items) {
		n = len(q.items)
	}
	if n <= 0 {
		return
	}
	rest := make([]T, len(q.items)-n)
	copy(rest, q.items[n:])
	q.items = rest
}

// Items returns a copy of every queued item.
func (q *Queue[T]) Items() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]T(nil), q.items...)
}

// Reset replaces the content of the queue.
func (q *Queue[T]) Reset(items []T) {
	q.mu.Lock()
	q.items = append([]T(nil), items...)
	q.mu.Unlock()
}
