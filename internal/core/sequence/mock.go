package sequence

import (
	"context"
	"sync"
)

// MockGenerator is a test implementation of Generator.
// Use in unit tests to avoid database dependencies.
type MockGenerator struct {
	NextFunc    func(ctx context.Context, counter string) (int64, error)
	CurrentFunc func(ctx context.Context, counter string) (int64, error)

	mu       sync.Mutex
	counters map[string]int64
}

// Next implements Generator.
func (m *MockGenerator) Next(ctx context.Context, counter string) (int64, error) {
	if m.NextFunc != nil {
		return m.NextFunc(ctx, counter)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = make(map[string]int64)
	}
	m.counters[counter]++
	return m.counters[counter], nil
}

// Current implements Generator.
func (m *MockGenerator) Current(ctx context.Context, counter string) (int64, error) {
	if m.CurrentFunc != nil {
		return m.CurrentFunc(ctx, counter)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[counter], nil
}

// Ensure compile-time interface compliance.
var _ Generator = (*MockGenerator)(nil)
