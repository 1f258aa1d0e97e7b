// Package testsupport holds shared fakes for tests.
package testsupport

import (
	"context"
	"fmt"
	"sync"

	"github.com/tdhoang/gramlist/internal/handle"
	"github.com/tdhoang/gramlist/internal/store"
)

// MemoryStore is an in-memory store.Store for tests. It mirrors the
// spreadsheet's row semantics: data rows are 1-based starting at 2, and
// deleting a row shifts every later row down by one.
type MemoryStore struct {
	mu      sync.Mutex
	records []store.Record

	// Err, when set, is returned by every operation.
	Err error

	// Write accounting for assertions on batching behavior.
	AppendCalls int
	UpdateCalls int
	BatchCalls  int
	DeleteCalls int
}

// NewMemoryStore seeds a store with records, assigning row indices in order.
func NewMemoryStore(records ...store.Record) *MemoryStore {
	m := &MemoryStore{}
	for _, r := range records {
		if r.Username == "" {
			if h, ok := handle.FromURL(r.URL); ok {
				r.Username = h
			}
		}
		r.RowIndex = len(m.records) + 2
		m.records = append(m.records, r)
	}
	return m
}

func (m *MemoryStore) ReadAll(ctx context.Context) ([]store.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]store.Record, len(m.records))
	copy(out, m.records)
	return out, nil
}

func (m *MemoryStore) Append(ctx context.Context, rec store.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.AppendCalls++
	if rec.Username == "" {
		if h, ok := handle.FromURL(rec.URL); ok {
			rec.Username = h
		}
	}
	rec.RowIndex = len(m.records) + 2
	m.records = append(m.records, rec)
	return nil
}

func (m *MemoryStore) UpdateCell(ctx context.Context, row int, field store.Field, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.UpdateCalls++
	return m.apply(store.CellUpdate{Row: row, Field: field, Value: value})
}

func (m *MemoryStore) BatchUpdate(ctx context.Context, updates []store.CellUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.BatchCalls++
	for _, u := range updates {
		if err := m.apply(u); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryStore) DeleteRow(ctx context.Context, row int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.DeleteCalls++
	idx := row - 2
	if idx < 0 || idx >= len(m.records) {
		return fmt.Errorf("no row %d", row)
	}
	m.records = append(m.records[:idx], m.records[idx+1:]...)
	for i := idx; i < len(m.records); i++ {
		m.records[i].RowIndex--
	}
	return nil
}

// Snapshot returns a copy of the current records for assertions.
func (m *MemoryStore) Snapshot() []store.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.Record, len(m.records))
	copy(out, m.records)
	return out
}

func (m *MemoryStore) apply(u store.CellUpdate) error {
	for i := range m.records {
		if m.records[i].RowIndex != u.Row {
			continue
		}
		switch u.Field {
		case store.FieldURL:
			m.records[i].URL = u.Value
			if h, ok := handle.FromURL(u.Value); ok {
				m.records[i].Username = h
			}
		case store.FieldFullName:
			m.records[i].FullName = u.Value
		case store.FieldAvatar:
			m.records[i].AvatarURL = u.Value
		case store.FieldRating:
			m.records[i].Rating = store.ParseRating(u.Value)
		}
		return nil
	}
	return fmt.Errorf("no row %d", u.Row)
}
