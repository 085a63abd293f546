package lockmap

import "sync"

type entry struct {
	mut  sync.Mutex
	refs int
}

// Map is a set of mutexes addressed by key. Mutexes are created on demand
// and released once nobody holds or waits for them.
type Map[K comparable] struct {
	mut   sync.Mutex
	locks map[K]*entry
}

func New[K comparable]() *Map[K] {
	return &Map[K]{
		locks: make(map[K]*entry),
	}
}

// Lock acquires the mutex for the key, blocking until it is available.
func (lm *Map[K]) Lock(key K) {
	lm.mut.Lock()

	e, ok := lm.locks[key]
	if !ok {
		e = &entry{}
		lm.locks[key] = e
	}

	e.refs++

	lm.mut.Unlock()

	e.mut.Lock()
}

// Unlock releases the mutex for the key. It panics if the key is not locked.
func (lm *Map[K]) Unlock(key K) {
	lm.mut.Lock()

	e, ok := lm.locks[key]
	if !ok {
		lm.mut.Unlock()
		panic("lockmap: unlock of unlocked key")
	}

	e.refs--
	if e.refs == 0 {
		delete(lm.locks, key)
	}

	lm.mut.Unlock()

	e.mut.Unlock()
}

// Len returns the number of keys that are currently locked or awaited.
func (lm *Map[K]) Len() int {
	lm.mut.Lock()
	defer lm.mut.Unlock()

	return len(lm.locks)
}
