package search

import "context"

// Result is one search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Searcher is the web-search boundary. Implementations return at most their
// configured maximum of results and discard URLs without an http(s) scheme.
type Searcher interface {
	Search(ctx context.Context, keyword string) ([]Result, error)
}
