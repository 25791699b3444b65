package instrument

import (
	"sync"
	"time"
)

// registryState holds the thread-safe pair cache.
type registryState struct {
	mu sync.RWMutex

	// Pairs indexed by symbol.
	pairs map[string]Pair

	// Last successful REST sync timestamp.
	lastSyncAt time.Time
}

func newState() *registryState {
	return &registryState{
		pairs: make(map[string]Pair),
	}
}

func (s *registryState) get(symbol string) (Pair, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.pairs[symbol]
	return p, ok
}

func (s *registryState) all() []Pair {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Pair, 0, len(s.pairs))
	for _, p := range s.pairs {
		result = append(result, p)
	}
	return result
}

func (s *registryState) size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pairs)
}

func (s *registryState) lastSync() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSyncAt
}

// upsertLocked adds or replaces a pair and returns the previous value
// (caller must hold write lock).
func (s *registryState) upsertLocked(p Pair) (old Pair, existed bool) {
	old, existed = s.pairs[p.Instrument.Symbol()]
	s.pairs[p.Instrument.Symbol()] = p
	return old, existed
}
