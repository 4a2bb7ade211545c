package state

import (
	"sync"
)

// Tx is the capability handed to Store.Do callbacks. It is valid only until
// the callback returns.
type Tx[V any] interface {
	Get() (V, bool)
	Set(V)
	Remove()
}

// Store holds one value per user.
type Store[V any] interface {
	// Do runs fn with exclusive access to the user's value.
	Do(userID int64, fn func(Tx[V]) error) error
	// Len reports the number of stored values.
	Len() int
	// Sweep removes every value for which expired returns true and
	// reports how many were removed.
	Sweep(expired func(V) bool) int
}

// MemoryStore is a Store backed by a map guarded by an RWMutex plus
// refcounted per-user mutexes.
type MemoryStore[V any] struct {
	mu   sync.RWMutex
	data map[int64]V

	locksMu sync.Mutex
	locks   map[int64]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore[V any]() *MemoryStore[V] {
	return &MemoryStore[V]{
		data:  make(map[int64]V),
		locks: make(map[int64]*userLock),
	}
}

var _ Store[int] = (*MemoryStore[int])(nil)

// Do acquires the user's lock, runs fn and releases the lock. The error
// returned by fn is passed through unchanged.
func (s *MemoryStore[V]) Do(userID int64, fn func(Tx[V]) error) error {
	unlock := s.lock(userID)
	defer unlock()

	tx := &memoryTx[V]{store: s, userID: userID}
	defer func() { tx.closed = true }()
	return fn(tx)
}

// Len reports the number of users with a stored value.
func (s *MemoryStore[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Sweep checks every stored value under its user's lock and removes the
// expired ones.
func (s *MemoryStore[V]) Sweep(expired func(V) bool) int {
	s.mu.RLock()
	ids := make([]int64, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	removed := 0
	for _, id := range ids {
		_ = s.Do(id, func(tx Tx[V]) error {
			if v, ok := tx.Get(); ok && expired(v) {
				tx.Remove()
				removed++
			}
			return nil
		})
	}
	return removed
}

func (s *MemoryStore[V]) lock(userID int64) func() {
	s.locksMu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		l = &userLock{}
		s.locks[userID] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, userID)
		}
		s.locksMu.Unlock()
	}
}

type memoryTx[V any] struct {
	store  *MemoryStore[V]
	userID int64
	closed bool
}

func (t *memoryTx[V]) check() {
	if t.closed {
		panic("state: Tx used after Do returned")
	}
}

func (t *memoryTx[V]) Get() (V, bool) {
	t.check()
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	v, ok := t.store.data[t.userID]
	return v, ok
}

func (t *memoryTx[V]) Set(v V) {
	t.check()
	t.store.mu.Lock()
	t.store.data[t.userID] = v
	t.store.mu.Unlock()
}

func (t *memoryTx[V]) Remove() {
	t.check()
	t.store.mu.Lock()
	delete(t.store.data, t.userID)
	t.store.mu.Unlock()
}
