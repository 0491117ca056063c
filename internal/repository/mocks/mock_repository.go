// Package mocks provides an in-memory TaskResultRepository for tests.
package mocks

import (
	"context"
	"sync"

	"github.com/nadmax/modreport/internal/outcome"
)

type MockTaskResultRepository struct {
	mu                   sync.Mutex
	CountByModuleCalls   []outcome.Filter
	LatencyByModuleCalls []outcome.Filter
	PingCalls            int
	Closed               bool
	CountRows            []outcome.GroupRow
	LatencyRows          []outcome.GroupRow
	CountByModuleError   error
	LatencyByModuleError error
	PingError            error
}

func NewMockTaskResultRepository() *MockTaskResultRepository {
	return &MockTaskResultRepository{
		CountByModuleCalls:   make([]outcome.Filter, 0),
		LatencyByModuleCalls: make([]outcome.Filter, 0),
	}
}

func (m *MockTaskResultRepository) CountByModule(_ context.Context, f outcome.Filter) ([]outcome.GroupRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CountByModuleCalls = append(m.CountByModuleCalls, f)
	if m.CountByModuleError != nil {
		return nil, m.CountByModuleError
	}

	return append([]outcome.GroupRow(nil), m.CountRows...), nil
}

func (m *MockTaskResultRepository) LatencyByModule(_ context.Context, f outcome.Filter) ([]outcome.GroupRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LatencyByModuleCalls = append(m.LatencyByModuleCalls, f)
	if m.LatencyByModuleError != nil {
		return nil, m.LatencyByModuleError
	}

	return append([]outcome.GroupRow(nil), m.LatencyRows...), nil
}

func (m *MockTaskResultRepository) Ping(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PingCalls++
	return m.PingError
}

func (m *MockTaskResultRepository) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Closed = true
	return nil
}

func (m *MockTaskResultRepository) GetCountCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.CountByModuleCalls)
}

func (m *MockTaskResultRepository) GetLatencyCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.LatencyByModuleCalls)
}

// LastFilter returns the filter passed to the most recent call for variant.
func (m *MockTaskResultRepository) LastFilter(variant outcome.Variant) (outcome.Filter, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := m.CountByModuleCalls
	if variant == outcome.VariantLatency {
		calls = m.LatencyByModuleCalls
	}
	if len(calls) == 0 {
		return outcome.Filter{}, false
	}

	return calls[len(calls)-1], true
}

func (m *MockTaskResultRepository) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CountByModuleCalls = make([]outcome.Filter, 0)
	m.LatencyByModuleCalls = make([]outcome.Filter, 0)
	m.PingCalls = 0
	m.CountByModuleError = nil
	m.LatencyByModuleError = nil
	m.PingError = nil
}
