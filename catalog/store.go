package catalog

import (
	"fmt"
	"sync"
)

// Store is an in-memory statistics catalog. Reads take a shared lock and
// writes replace whole table entries, so statistics visible to a running
// optimization never change underneath it.
type Store struct {
	mu    sync.RWMutex
	stats map[string]*TableStatistics
}

// NewStore creates an empty statistics store.
func NewStore() *Store {
	return &Store{
		stats: make(map[string]*TableStatistics),
	}
}

// TableStatistics returns the statistics for a table, if known.
func (s *Store) TableStatistics(table string) (*TableStatistics, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats, ok := s.stats[table]
	return stats, ok
}

// Put installs or replaces the statistics for a table. The value is stored
// as given; callers must not mutate it afterwards.
func (s *Store) Put(table string, stats *TableStatistics) error {
	if stats == nil {
		return fmt.Errorf("nil statistics for table %s", table)
	}
	if stats.RowCount < 0 {
		return fmt.Errorf("negative row count %d for table %s", stats.RowCount, table)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats[table] = stats
	return nil
}

// Tables returns the names of all tables with statistics.
func (s *Store) Tables() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.stats))
	for name := range s.stats {
		names = append(names, name)
	}
	return names
}
