// Package search is the web-search collaborator used by the search-assisted
// repair tier. Like retrieval, it is an augmentation: when the service is
// unavailable, callers get static heuristic suggestions instead of an error.
package search

import "context"

// Result is one search hit.
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Snippet string  `json:"content"`
	Score   float64 `json:"score"`
	// SourceType classifies the URL: "official_docs", "github",
	// "stackoverflow" or "other". Drives extraction priority.
	SourceType string `json:"-"`
	// Extracted holds full page content for prioritized results, when
	// extraction succeeded.
	Extracted string `json:"-"`
}

// Client is the web-search capability.
type Client interface {
	// Available reports whether the collaborator can be reached at all.
	Available() bool
	// Search runs a query restricted to the domain allow-list.
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
	// Extract fetches full page content for the given URLs.
	Extract(ctx context.Context, urls []string) (map[string]string, error)
}

// Unavailable is the client used when no search service is configured.
type Unavailable struct{}

func (Unavailable) Available() bool { return false }
func (Unavailable) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	return nil, nil
}
func (Unavailable) Extract(ctx context.Context, urls []string) (map[string]string, error) {
	return nil, nil
}
