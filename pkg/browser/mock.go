package browser

import (
	"context"
	"sync"
)

// MockController is a recording Controller for tests.
type MockController struct {
	mu sync.Mutex

	// Requests records every Browse call.
	Requests []Request

	// StartCalls and CloseCalls count lifecycle transitions.
	StartCalls int
	CloseCalls int

	// StartErr, when set, is returned by Start.
	StartErr error

	// BrowseFunc, when set, supplies snapshots; otherwise a success
	// snapshot with empty text is returned.
	BrowseFunc func(req Request) *Snapshot
}

var _ Controller = &MockController{}

// Start implements Controller for testing.
func (m *MockController) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StartCalls++
	return m.StartErr
}

// Browse implements Controller for testing.
func (m *MockController) Browse(ctx context.Context, req Request) *Snapshot {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	fn := m.BrowseFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(req)
	}
	return &Snapshot{Status: StatusSuccess, FinalURL: req.URL}
}

// Close implements Controller for testing.
func (m *MockController) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CloseCalls++
	return nil
}
