package memory

import (
	"context"
	"sync"

	"caisse/internal/report"
	ports "caisse/internal/sheets"
)

var _ ports.WorkbookWriter = (*Store)(nil)

// Store keeps the written tables in memory, last write per date wins.
type Store struct {
	mu     sync.Mutex
	days   map[string][]report.Table
	writes int
	// Err, when set, is returned by every write.
	Err error
}

func New() *Store {
	return &Store{days: make(map[string][]report.Table)}
}

func (s *Store) WriteTables(_ context.Context, date string, tables []report.Table) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	s.days[date] = append([]report.Table(nil), tables...)
	s.writes++
	return "mem:" + date, nil
}

// Tables returns what was last written for date.
func (s *Store) Tables(date string) ([]report.Table, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.days[date]
	return t, ok
}

// Writes counts the successful writes.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
