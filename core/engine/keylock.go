package engine

import "sync"

// keyedMutex serializes work per dialogue key while letting distinct keys
// proceed in parallel. Entries are reference-counted so the map does not
// grow with the number of conversations ever seen.
type keyedMutex struct {
	mu      sync.Mutex
	entries map[int64]*keyEntry
}

type keyEntry struct {
	refs int
	mu   sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{entries: make(map[int64]*keyEntry)}
}

// Lock blocks until the key is exclusively held and returns the matching
// unlock function.
func (k *keyedMutex) Lock(key int64) func() {
	k.mu.Lock()
	entry, ok := k.entries[key]
	if !ok {
		entry = &keyEntry{}
		k.entries[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()
		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.entries, key)
		}
		k.mu.Unlock()
	}
}
