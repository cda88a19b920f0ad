package tx

import (
	"context"
)

// MockManager is a test implementation of Manager that runs fn directly,
// without any real transaction.
type MockManager struct {
	// RunFunc overrides RunInTransaction when set.
	RunFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

// RunInTransaction implements Manager.
func (m *MockManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.RunFunc != nil {
		return m.RunFunc(ctx, fn)
	}
	return fn(ctx)
}

var _ Manager = (*MockManager)(nil)
