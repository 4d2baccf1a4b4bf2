package plugin

import (
	"sync"
)

// Private events published by the registry itself.
const (
	PrivatePluginsLoaded = "athena/plugins-loaded"
	PrivateToolCall      = "athena/tool-call"
	PrivateToolResult    = "athena/tool-result"
	PrivateEvent         = "athena/event"
)

// EventHandler receives registered domain events.
type EventHandler func(name string, args map[string]interface{})

// PrivateHandler receives unregistered control and observability signals.
type PrivateHandler func(name string, data interface{})

type subscription[H any] struct {
	id      uint64
	owner   string
	handler H
}

// bus is an ordered list of subscribers. Delivery happens on a snapshot so a
// handler may subscribe or unsubscribe while being called.
type bus[H any] struct {
	mu     sync.Mutex
	nextID uint64
	subs   []subscription[H]
}

func (b *bus[H]) subscribe(owner string, handler H) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription[H]{id: id, owner: owner, handler: handler})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *bus[H]) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// dropOwner removes every subscription made by owner and returns how many.
func (b *bus[H]) dropOwner(owner string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	kept := b.subs[:0:0]
	for _, s := range b.subs {
		if s.owner != owner {
			kept = append(kept, s)
		}
	}
	dropped := len(b.subs) - len(kept)
	b.subs = kept
	return dropped
}

func (b *bus[H]) handlers() []H {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]H, len(b.subs))
	for i, s := range b.subs {
		out[i] = s.handler
	}
	return out
}
