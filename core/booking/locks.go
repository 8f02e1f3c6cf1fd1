package booking

import "sync"

// stationLocks serialises recomputation per ground station. Triggers for
// the same station must not interleave; distinct stations run in parallel.
type stationLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newStationLocks() *stationLocks {
	return &stationLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the mutex for one ground station and returns its unlock.
func (s *stationLocks) acquire(groundStationID string) func() {
	s.mu.Lock()
	l, ok := s.locks[groundStationID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[groundStationID] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}
