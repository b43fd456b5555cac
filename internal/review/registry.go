package review

import (
	"sync"
	"time"
)

// slot holds one conversation's session. Its mutex is held for the whole
// of an operation, so a conversation's transitions never interleave.
type slot struct {
	mu      sync.Mutex
	session Session

	// lastPhrase survives Exit so a restarted session does not open with
	// the phrase that was just asked.
	lastPhrase int

	// Guarded by registry.mu. refs counts holders and waiters.
	refs int
	used time.Time
}

// registry maps conversations to their slots.
type registry struct {
	mu    sync.Mutex
	slots map[Key]*slot
}

func newRegistry() *registry {
	return &registry{slots: make(map[Key]*slot)}
}

// acquire returns the locked slot for key. The caller must release it.
func (r *registry) acquire(key Key) *slot {
	r.mu.Lock()
	s, ok := r.slots[key]
	if !ok {
		s = &slot{}
		r.slots[key] = s
	}
	s.refs++
	r.mu.Unlock()

	s.mu.Lock()
	return s
}

// release unlocks s and records now as its last use.
func (r *registry) release(s *slot, now time.Time) {
	s.mu.Unlock()

	r.mu.Lock()
	s.refs--
	s.used = now
	r.mu.Unlock()
}

// sweep drops the slots nobody holds or waits for that were last used
// before cutoff, and returns how many it dropped.
func (r *registry) sweep(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for key, s := range r.slots {
		if s.refs == 0 && s.used.Before(cutoff) {
			delete(r.slots, key)
			n++
		}
	}
	return n
}

// Len returns the number of tracked conversations.
func (r *registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.slots)
}
