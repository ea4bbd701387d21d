package overrides

import "sync"

type lockEntry struct {
	mu   sync.Mutex
	refs int // holders plus waiters
}

// keyedMutex serialises mutations per handler id. An entry is dropped once
// nobody holds or waits on it.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*lockEntry)}
}

func (k *keyedMutex) acquire(id string) *lockEntry {
	k.mu.Lock()
	defer k.mu.Unlock()

	e, ok := k.locks[id]
	if !ok {
		e = &lockEntry{}
		k.locks[id] = e
	}
	e.refs++
	return e
}

func (k *keyedMutex) release(id string, e *lockEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(k.locks, id)
	}
}

// Lock blocks until the handler's lock is held and returns its unlock func
func (k *keyedMutex) Lock(id string) func() {
	e := k.acquire(id)
	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.release(id, e)
	}
}

// TryLock returns nil when the handler's lock is already held
func (k *keyedMutex) TryLock(id string) func() {
	e := k.acquire(id)
	if !e.mu.TryLock() {
		k.release(id, e)
		return nil
	}
	return func() {
		e.mu.Unlock()
		k.release(id, e)
	}
}

// Len reports how many ids currently have a live entry
func (k *keyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
