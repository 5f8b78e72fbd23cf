// Package keylock provides an arena of mutexes keyed by value. Callers holding
// the lock for one key never block callers working on another key.
package keylock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// Arena hands out one mutex per key. Entries exist only while at least one
// caller holds or waits for them, so the arena does not grow with the key space.
// The zero value is not usable; call New.
type Arena[K comparable] struct {
	mu      sync.Mutex
	entries map[K]*entry
}

// New returns an empty Arena.
func New[K comparable]() *Arena[K] {
	return &Arena[K]{entries: make(map[K]*entry)}
}

// Lock blocks until the caller holds the lock for key and returns the
// function that releases it. The returned func must be called exactly once.
func (a *Arena[K]) Lock(key K) (unlock func()) {
	a.mu.Lock()
	e, ok := a.entries[key]
	if !ok {
		e = &entry{}
		a.entries[key] = e
	}
	e.refs++
	a.mu.Unlock()

	e.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()

			a.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(a.entries, key)
			}
			a.mu.Unlock()
		})
	}
}

// Len reports how many keys currently have holders or waiters.
func (a *Arena[K]) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}
