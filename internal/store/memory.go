package store

import (
	"errors"
	"sync"
	"time"

	"github.com/i474232898/mesowest-smet/internal/smet"
)

var (
	// ErrNotFound is returned when no run is recorded for a station.
	ErrNotFound = errors.New("no runs recorded for station")
)

// RunHistory holds the runs for one station, oldest first.
type RunHistory struct {
	Runs []smet.RunResult
}

// MemoryStore is a concurrency-safe in-memory run ledger.
type MemoryStore struct {
	mu sync.RWMutex

	// key: station id
	data map[string]*RunHistory

	maxHistory int           // max runs per station
	maxAge     time.Duration // max age of a run, by FinishedAt
	now        func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]*RunHistory),
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// SaveRun appends a run for its station and enforces retention.
func (s *MemoryStore) SaveRun(run smet.RunResult) error {
	key := run.Station.ID

	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.data[key]
	if !ok {
		history = &RunHistory{}
		s.data[key] = history
	}

	history.Runs = append(history.Runs, run)

	if s.maxHistory > 0 && len(history.Runs) > s.maxHistory {
		over := len(history.Runs) - s.maxHistory
		history.Runs = history.Runs[over:]
	}

	// The newest run is always kept, however old.
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		i := 0
		for ; i < len(history.Runs)-1; i++ {
			if !history.Runs[i].FinishedAt.Before(cutoff) {
				break
			}
		}
		history.Runs = history.Runs[i:]
	}
	return nil
}

// GetLatest returns the most recent run for a station.
func (s *MemoryStore) GetLatest(stationID string) (smet.RunResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[stationID]
	if !ok || len(history.Runs) == 0 {
		return smet.RunResult{}, ErrNotFound
	}
	return history.Runs[len(history.Runs)-1], nil
}

// GetRange returns runs finished between from and to (inclusive).
func (s *MemoryStore) GetRange(stationID string, from, to time.Time) ([]smet.RunResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[stationID]
	if !ok || len(history.Runs) == 0 {
		return nil, ErrNotFound
	}

	var result []smet.RunResult
	for _, run := range history.Runs {
		if !run.FinishedAt.Before(from) && !run.FinishedAt.After(to) {
			result = append(result, run)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}
