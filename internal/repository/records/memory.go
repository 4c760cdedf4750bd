package records

import (
	"context"
	"sync"

	"github.com/mamadbah2/shiftlog/internal/domain/models"
)

// MemoryStore keeps tables in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[models.TableName][]Row
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[models.TableName][]Row)}
}

// Append adds row at the end of table.
func (s *MemoryStore) Append(_ context.Context, table models.TableName, row Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[table] = append(s.tables[table], EnsureID(row.Clone()))
	return nil
}

// ReadAll returns a copy of the table rows in append order.
func (s *MemoryStore) ReadAll(_ context.Context, table models.TableName) ([]Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.tables[table]
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out, nil
}

// Remove deletes the row ref points at.
func (s *MemoryStore) Remove(_ context.Context, table models.TableName, ref RowRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.tables[table]
	if err := CheckRef(table, rows, ref); err != nil {
		return err
	}
	s.tables[table] = append(rows[:ref.Index:ref.Index], rows[ref.Index+1:]...)
	return nil
}
