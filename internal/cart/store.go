package cart

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type entry struct {
	cart    *Cart
	touched time.Time
}

// Store keeps one cart per session in memory. Carts idle for longer than the
// TTL are evicted; a zero TTL keeps them until checkout.
type Store struct {
	mu    sync.Mutex
	carts map[uuid.UUID]*entry
	ttl   time.Duration
	now   func() time.Time
}

// NewStore creates an empty session store.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		carts: make(map[uuid.UUID]*entry),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Get returns the cart of a session, creating it on first use.
func (s *Store) Get(session uuid.UUID) *Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.carts[session]; ok && !s.expired(e, now) {
		e.touched = now
		return e.cart
	}

	c := New()
	s.carts[session] = &entry{cart: c, touched: now}
	return c
}

// Lookup returns the cart of a session without creating one.
func (s *Store) Lookup(session uuid.UUID) (*Cart, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, ok := s.carts[session]
	if !ok {
		return nil, false
	}
	if s.expired(e, now) {
		delete(s.carts, session)
		return nil, false
	}

	e.touched = now
	return e.cart, true
}

// Remove discards the cart of a session.
func (s *Store) Remove(session uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts, session)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.carts)
}

// Sweep evicts idle carts and returns how many were dropped.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	evicted := 0
	for session, e := range s.carts {
		if s.expired(e, now) {
			delete(s.carts, session)
			evicted++
		}
	}
	return evicted
}

// Run sweeps the store every interval until ctx is done. onSweep, when set,
// receives the number of carts evicted by each pass.
func (s *Store) Run(ctx context.Context, interval time.Duration, onSweep func(evicted int)) {
	if s.ttl <= 0 || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n := s.Sweep()
			if onSweep != nil {
				onSweep(n)
			}
		}
	}
}

func (s *Store) expired(e *entry, now time.Time) bool {
	return s.ttl > 0 && now.Sub(e.touched) > s.ttl
}
