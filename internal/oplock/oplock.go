// Package oplock provides per-key mutual exclusion that fails fast instead of
// waiting.
package oplock

import "sync"

// Set tracks which keys have an operation in flight. The zero value is ready
// to use.
type Set struct {
	held sync.Map // map[string]struct{}
}

// TryAcquire claims key. It returns false when another caller holds it.
// The returned release func is idempotent.
func (s *Set) TryAcquire(key string) (release func(), ok bool) {
	if _, loaded := s.held.LoadOrStore(key, struct{}{}); loaded {
		return nil, false
	}

	var once sync.Once
	return func() {
		once.Do(func() { s.held.Delete(key) })
	}, true
}

// Held reports whether key is currently claimed.
func (s *Set) Held(key string) bool {
	_, ok := s.held.Load(key)
	return ok
}
