package issuer

import (
	"context"
	"sync"
)

// keyMutex provides per-key mutual exclusion. Holders of different keys
// never block each other; entries are dropped once no goroutine holds or
// waits on a key, so the map does not grow with the keyspace.
type keyMutex struct {
	mu      sync.Mutex
	entries map[string]*keyMutexEntry
}

type keyMutexEntry struct {
	sem  chan struct{}
	refs int
}

func newKeyMutex() *keyMutex {
	return &keyMutex{entries: make(map[string]*keyMutexEntry)}
}

// Lock acquires the key's lock, blocking until it is free or ctx is done.
// On a nil return the caller must release with Unlock(key).
func (k *keyMutex) Lock(ctx context.Context, key string) error {
	k.mu.Lock()
	entry, ok := k.entries[key]
	if !ok {
		entry = &keyMutexEntry{sem: make(chan struct{}, 1)}
		k.entries[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	select {
	case entry.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		k.release(key, entry)
		return ctx.Err()
	}
}

// Unlock releases the key's lock. Calling Unlock without holding the lock
// is a programming error.
func (k *keyMutex) Unlock(key string) {
	k.mu.Lock()
	entry, ok := k.entries[key]
	k.mu.Unlock()
	if !ok {
		panic("issuer: unlock of unheld key " + key)
	}

	<-entry.sem
	k.release(key, entry)
}

func (k *keyMutex) release(key string, entry *keyMutexEntry) {
	k.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(k.entries, key)
	}
	k.mu.Unlock()
}
