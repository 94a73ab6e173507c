package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const tavilyBaseURL = "https://api.tavily.com"

// priorityDomains is the allow-list for error-resolution searches, highest
// priority first: official docs, then code hosting, then Q&A.
var priorityDomains = []string{
	"docs.manim.community",
	"github.com/ManimCommunity",
	"github.com",
	"stackoverflow.com",
}

// TavilyClient talks to the Tavily search API over HTTP.
type TavilyClient struct {
	apiKey     string
	httpClient *http.Client
}

// NewTavilyClient creates a client. An empty API key yields a client that
// reports itself unavailable.
func NewTavilyClient(apiKey string, timeout time.Duration) *TavilyClient {
	return &TavilyClient{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Available reports whether an API key is configured.
func (c *TavilyClient) Available() bool {
	return c.apiKey != ""
}

type tavilySearchRequest struct {
	APIKey         string   `json:"api_key"`
	Query          string   `json:"query"`
	SearchDepth    string   `json:"search_depth"`
	MaxResults     int      `json:"max_results"`
	IncludeDomains []string `json:"include_domains,omitempty"`
}

type tavilySearchResponse struct {
	Results []Result `json:"results"`
}

// Search runs a query restricted to the priority domain allow-list and
// returns results sorted by source priority, then score.
func (c *TavilyClient) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if !c.Available() {
		return nil, fmt.Errorf("search service not configured")
	}
	if maxResults <= 0 {
		maxResults = 5
	}

	reqBody := tavilySearchRequest{
		APIKey:         c.apiKey,
		Query:          query,
		SearchDepth:    "advanced",
		MaxResults:     maxResults,
		IncludeDomains: priorityDomains,
	}
	var resp tavilySearchResponse
	if err := c.post(ctx, "/search", reqBody, &resp); err != nil {
		return nil, err
	}

	results := resp.Results
	for i := range results {
		results[i].SourceType = ClassifyURL(results[i].URL)
	}
	SortByPriority(results)
	return results, nil
}

type tavilyExtractRequest struct {
	APIKey       string   `json:"api_key"`
	URLs         []string `json:"urls"`
	ExtractDepth string   `json:"extract_depth"`
}

type tavilyExtractResponse struct {
	Results []struct {
		URL        string `json:"url"`
		RawContent string `json:"raw_content"`
	} `json:"results"`
}

// Extract fetches full page content for the given URLs.
func (c *TavilyClient) Extract(ctx context.Context, urls []string) (map[string]string, error) {
	if !c.Available() {
		return nil, fmt.Errorf("search service not configured")
	}
	if len(urls) == 0 {
		return nil, nil
	}

	reqBody := tavilyExtractRequest{APIKey: c.apiKey, URLs: urls, ExtractDepth: "basic"}
	var resp tavilyExtractResponse
	if err := c.post(ctx, "/extract", reqBody, &resp); err != nil {
		return nil, err
	}

	contents := make(map[string]string, len(resp.Results))
	for _, r := range resp.Results {
		contents[r.URL] = r.RawContent
	}
	return contents, nil
}

func (c *TavilyClient) post(ctx context.Context, path string, reqBody, out interface{}) error {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tavilyBaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("search API error: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return fmt.Errorf("search API returned status %d", httpResp.StatusCode)
	}
	if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode search response: %w", err)
	}
	return nil
}

// ClassifyURL buckets a URL into a source type for extraction priority.
func ClassifyURL(url string) string {
	switch {
	case strings.Contains(url, "docs.manim.community"):
		return "official_docs"
	case strings.Contains(url, "github.com"):
		return "github"
	case strings.Contains(url, "stackoverflow.com"):
		return "stackoverflow"
	default:
		return "other"
	}
}

var sourcePriority = map[string]int{
	"official_docs": 1,
	"github":        2,
	"stackoverflow": 3,
	"other":         5,
}

// SortByPriority orders results by source-type priority, then by score.
func SortByPriority(results []Result) {
	for i := 1; i < len(results); i++ {
		for j := i; j > 0 && less(results[j], results[j-1]); j-- {
			results[j], results[j-1] = results[j-1], results[j]
		}
	}
}

func less(a, b Result) bool {
	pa, pb := sourcePriority[a.SourceType], sourcePriority[b.SourceType]
	if pa != pb {
		return pa < pb
	}
	return a.Score > b.Score
}
