// Package connectivity reports whether the classifier backend is reachable.
package connectivity

import (
	"sync"
)

// Monitor reports the current online state and notifies subscribers when it
// changes.
type Monitor interface {
	Online() bool
	// Subscribe registers fn for state changes and returns a function that
	// removes it.
	Subscribe(fn func(online bool)) (unsubscribe func())
}

// broadcaster holds the state shared by every Monitor implementation.
type broadcaster struct {
	mu     sync.Mutex
	online bool
	nextID int
	subs   map[int]func(bool)
}

func newBroadcaster(online bool) *broadcaster {
	return &broadcaster{online: online, subs: make(map[int]func(bool))}
}

func (b *broadcaster) Online() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.online
}

func (b *broadcaster) Subscribe(fn func(bool)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// set updates the state and, on a change, calls subscribers outside the lock.
func (b *broadcaster) set(online bool) bool {
	b.mu.Lock()
	if b.online == online {
		b.mu.Unlock()
		return false
	}
	b.online = online
	subs := make([]func(bool), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.Unlock()

	for _, fn := range subs {
		fn(online)
	}
	return true
}

// Static is a Monitor whose state is set explicitly.
type Static struct {
	*broadcaster
}

// NewStatic creates a monitor with a fixed initial state
func NewStatic(online bool) *Static {
	return &Static{broadcaster: newBroadcaster(online)}
}

// Set changes the state and reports whether it changed.
func (s *Static) Set(online bool) bool {
	return s.set(online)
}
