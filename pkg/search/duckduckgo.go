package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

const defaultEndpoint = "https://html.duckduckgo.com/html/"

// DuckDuckGoSearcher queries the DuckDuckGo HTML frontend, which needs no
// API key, and scrapes the result list.
type DuckDuckGoSearcher struct {
	endpoint   string
	maxResults int
	region     string
	httpClient *http.Client
	logger     *logrus.Logger
}

var _ Searcher = &DuckDuckGoSearcher{}

// NewDuckDuckGoSearcher builds a searcher capped at maxResults hits.
func NewDuckDuckGoSearcher(maxResults int, timeout time.Duration, region string, logger *logrus.Logger) *DuckDuckGoSearcher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if maxResults <= 0 {
		maxResults = 5
	}
	return &DuckDuckGoSearcher{
		endpoint:   defaultEndpoint,
		maxResults: maxResults,
		region:     region,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Search runs one keyword query.
func (s *DuckDuckGoSearcher) Search(ctx context.Context, keyword string) ([]Result, error) {
	form := url.Values{"q": {keyword}}
	if s.region != "" {
		form.Set("kl", s.region)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request for %q failed: %w", keyword, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search for %q returned status %d", keyword, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search results: %w", err)
	}

	results := ParseResults(doc, s.maxResults)
	s.logger.WithFields(logrus.Fields{
		"keyword": keyword,
		"count":   len(results),
	}).Info("Search completed")
	return results, nil
}

// ParseResults extracts up to max hits from a DuckDuckGo HTML results page.
// Non-http(s) URLs are dropped.
func ParseResults(doc *goquery.Document, max int) []Result {
	var results []Result
	doc.Find("div.result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		link := sel.Find("a.result__a").First()
		href, ok := link.Attr("href")
		if !ok {
			return true
		}
		target := resolveRedirect(href)
		if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
			return true
		}
		results = append(results, Result{
			Title:   strings.TrimSpace(link.Text()),
			URL:     target,
			Snippet: strings.TrimSpace(sel.Find(".result__snippet").First().Text()),
		})
		return len(results) < max
	})
	return results
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg= redirect links.
func resolveRedirect(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	if uddg := parsed.Query().Get("uddg"); uddg != "" {
		if target, err := url.QueryUnescape(uddg); err == nil {
			return target
		}
	}
	return href
}
