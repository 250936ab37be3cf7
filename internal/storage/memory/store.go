package memory

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// entry is a stored value plus optional absolute expiration.
// A zero expiresAt means the key never expires.
type entry struct {
	data      []byte
	expiresAt time.Time
}

// Store is a concurrent key-value map with per-key expiration.
//
// A *Store is shared by reference between every connection and the
// reaper. Values never leave the Store by reference; Get and Set copy.
type Store struct {
	mu          sync.Mutex
	entries     map[string]entry
	expirations *expirationIndex
	shutdown    bool

	// wake has capacity one; redundant notifications coalesce.
	wake      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	now      func() time.Time
	logger   *slog.Logger
	onExpire func(n int)
}

// Option configures the Store.
type Option func(*Store)

// WithClock sets the time source used for expiration deadlines.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithLogger sets the logger used by the reaper.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithExpireHook registers fn to be called after every reaper pass that
// evicted at least one key. fn runs outside the Store lock.
func WithExpireHook(fn func(n int)) Option {
	return func(s *Store) {
		s.onExpire = fn
	}
}

// New creates a Store and starts its reaper.
// Call Close to stop the reaper.
func New(opts ...Option) *Store {
	s := newStore(opts...)
	go s.reap()
	return s
}

func newStore(opts ...Option) *Store {
	s := &Store{
		entries:     make(map[string]entry),
		expirations: newExpirationIndex(),
		wake:        make(chan struct{}, 1),
		done:        make(chan struct{}),
		now:         time.Now,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Get returns a copy of the value stored under key.
func (s *Store) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	return cloneBytes(e.data), true
}

// Set stores a copy of value under key, replacing any previous value and
// its expiration. A ttl <= 0 stores the key without expiration.
func (s *Store) Set(key string, value []byte, ttl time.Duration) {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = s.now().Add(ttl)
	}

	if s.set(key, cloneBytes(value), expiresAt) {
		s.notify()
	}
}

// set applies the mutation and reports whether the reaper must be woken
// because expiresAt precedes every tracked deadline.
func (s *Store) set(key string, data []byte, expiresAt time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	shouldWake := false
	if !expiresAt.IsZero() {
		next, ok := s.expirations.earliest()
		shouldWake = !ok || expiresAt.Before(next.when)
	}

	prev, existed := s.entries[key]
	s.entries[key] = entry{data: data, expiresAt: expiresAt}

	if existed && !prev.expiresAt.IsZero() {
		if !s.expirations.remove(prev.expiresAt, key) {
			panic(fmt.Sprintf("memory: expiration index missing key %q", key))
		}
	}
	if !expiresAt.IsZero() {
		s.expirations.insert(expiresAt, key)
	}

	return shouldWake
}

// Len returns the number of stored keys, including expired keys the
// reaper has not collected yet.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Expiring returns the number of keys that carry an expiration.
func (s *Store) Expiring() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expirations.len()
}

// Close stops the reaper and waits for it to exit.
// Stored keys remain readable; expired keys are no longer collected.
// Close is safe to call more than once.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.shutdown = true
		s.mu.Unlock()
		s.notify()
	})
	<-s.done
}

// notify wakes the reaper without blocking.
func (s *Store) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
