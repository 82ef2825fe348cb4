package search

import "context"

// MockSearcher is a recording Searcher for tests.
type MockSearcher struct {
	// Keywords records every searched keyword.
	Keywords []string

	// Results is returned for every call unless SearchFunc is set.
	Results []Result

	// Err, when set, is returned instead of Results.
	Err error

	// SearchFunc, when set, replaces the canned behavior.
	SearchFunc func(ctx context.Context, keyword string) ([]Result, error)
}

var _ Searcher = &MockSearcher{}

// Search implements Searcher for testing.
func (m *MockSearcher) Search(ctx context.Context, keyword string) ([]Result, error) {
	m.Keywords = append(m.Keywords, keyword)
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, keyword)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Results, nil
}
