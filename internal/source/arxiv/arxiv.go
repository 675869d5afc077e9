// Package arxiv queries the arXiv Atom search API.
package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kailas-cloud/paperdex/internal/domain"
)

// apiBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var apiBase = "https://export.arxiv.org/api/query"

// Client fetches papers from arXiv.
type Client struct {
	httpClient *http.Client
	userAgent  string
	maxResults int
}

// New creates an arXiv client. maxResults bounds each search request.
func New(httpClient *http.Client, userAgent string, maxResults int) *Client {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &Client{httpClient: httpClient, userAgent: userAgent, maxResults: maxResults}
}

// Source returns the catalog identifier.
func (c *Client) Source() domain.Source { return domain.SourceArxiv }

// Search issues one bounded query against the Atom API and parses the
// entries into papers.
func (c *Client) Search(ctx context.Context, query string) ([]domain.Paper, error) {
	q := buildQuery(query)
	if q == "" {
		return nil, fmt.Errorf("empty arXiv query")
	}

	url := fmt.Sprintf("%s?search_query=%s&start=0&max_results=%d&sortBy=relevance&sortOrder=descending",
		apiBase, q, c.maxResults)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed feed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}

	papers := make([]domain.Paper, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		title := strings.TrimSpace(entry.Title)
		if title == "" {
			continue
		}

		p := domain.Paper{
			Title:    title,
			Abstract: strings.TrimSpace(entry.Summary),
			Link:     strings.TrimSpace(entry.ID),
			Source:   domain.SourceArxiv,
		}

		for _, a := range entry.Authors {
			p.Authors = append(p.Authors, strings.TrimSpace(a.Name))
		}

		if t, parseErr := time.Parse(time.RFC3339, entry.Published); parseErr == nil {
			p.Published = t
		}

		papers = append(papers, p)
	}
	return papers, nil
}

// buildQuery constructs the search_query parameter from free text.
// Each term is percent-encoded so reserved URL characters in the query
// cannot corrupt the request.
func buildQuery(freeText string) string {
	terms := strings.Fields(freeText)
	if len(terms) == 0 {
		return ""
	}
	for i, t := range terms {
		terms[i] = url.QueryEscape(t)
	}
	return "all:" + strings.Join(terms, "+")
}

// Atom feed XML structures.
type feed struct {
	Entries []entry `xml:"entry"`
}

type entry struct {
	ID        string   `xml:"id"`
	Title     string   `xml:"title"`
	Summary   string   `xml:"summary"`
	Published string   `xml:"published"`
	Authors   []author `xml:"author"`
}

type author struct {
	Name string `xml:"name"`
}
