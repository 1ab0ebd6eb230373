// Package store provides yukyu.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/jokken79/yukyuantiguov1.0-sub000/yukyu"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	employees []yukyu.Employee
	records   map[string]yukyu.LeaveRecord
}

func NewMemory() *Memory {
	return &Memory{records: make(map[string]yukyu.LeaveRecord)}
}

func (m *Memory) LoadEmployees(_ context.Context) ([]yukyu.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]yukyu.Employee, len(m.employees))
	copy(result, m.employees)
	return result, nil
}

func (m *Memory) ReplaceEmployees(_ context.Context, employees []yukyu.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.employees = make([]yukyu.Employee, len(employees))
	copy(m.employees, employees)
	return nil
}

func (m *Memory) LoadRecords(_ context.Context) ([]yukyu.LeaveRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]yukyu.LeaveRecord, 0, len(m.records))
	for _, rec := range m.records {
		result = append(result, rec)
	}
	// Deterministic order for tests and API listings.
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (m *Memory) LoadRecord(_ context.Context, id string) (yukyu.LeaveRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]
	if !ok {
		return yukyu.LeaveRecord{}, yukyu.ErrRecordNotFound
	}
	return rec, nil
}

func (m *Memory) SaveRecord(_ context.Context, rec yukyu.LeaveRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[rec.ID] = rec
	return nil
}
