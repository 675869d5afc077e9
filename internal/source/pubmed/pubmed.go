// Package pubmed queries the PubMed E-utilities API (esearch + esummary).
package pubmed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kailas-cloud/paperdex/internal/domain"
)

// apiBase is the NCBI E-utilities endpoint. Declared as a var so tests
// can substitute an httptest server.
var apiBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// Client fetches papers from PubMed via the two-step esearch/esummary lookup.
type Client struct {
	httpClient *http.Client
	userAgent  string
	apiKey     string
	maxResults int
}

// New creates a PubMed client. apiKey is optional and raises NCBI's
// server-side rate allowance when set.
func New(httpClient *http.Client, userAgent, apiKey string, maxResults int) *Client {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &Client{httpClient: httpClient, userAgent: userAgent, apiKey: apiKey, maxResults: maxResults}
}

// Source returns the catalog identifier.
func (c *Client) Source() domain.Source { return domain.SourcePubmed }

// Search resolves the query to article IDs, then batch-fetches their
// summaries.
func (c *Client) Search(ctx context.Context, query string) ([]domain.Paper, error) {
	ids, err := c.searchIDs(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return c.fetchSummaries(ctx, ids)
}

// searchIDs runs esearch and returns up to maxResults PubMed IDs.
func (c *Client) searchIDs(ctx context.Context, query string) ([]string, error) {
	u := fmt.Sprintf("%s/esearch.fcgi?db=pubmed&term=%s&retmax=%d&retmode=json",
		apiBase, url.QueryEscape(query), c.maxResults)
	if c.apiKey != "" {
		u += "&api_key=" + url.QueryEscape(c.apiKey)
	}

	var parsed struct {
		ESearchResult struct {
			IDList []string `json:"idlist"`
		} `json:"esearchresult"`
	}
	if err := c.getJSON(ctx, u, &parsed); err != nil {
		return nil, fmt.Errorf("esearch: %w", err)
	}

	ids := parsed.ESearchResult.IDList
	if len(ids) > c.maxResults {
		ids = ids[:c.maxResults]
	}
	return ids, nil
}

// fetchSummaries runs one esummary call for the whole ID batch.
func (c *Client) fetchSummaries(ctx context.Context, ids []string) ([]domain.Paper, error) {
	u := fmt.Sprintf("%s/esummary.fcgi?db=pubmed&id=%s&retmode=json",
		apiBase, strings.Join(ids, ","))
	if c.apiKey != "" {
		u += "&api_key=" + url.QueryEscape(c.apiKey)
	}

	var parsed struct {
		Result map[string]json.RawMessage `json:"result"`
	}
	if err := c.getJSON(ctx, u, &parsed); err != nil {
		return nil, fmt.Errorf("esummary: %w", err)
	}

	// Keep the esearch ID order; the "result" map also contains a "uids" key.
	papers := make([]domain.Paper, 0, len(ids))
	for _, id := range ids {
		raw, ok := parsed.Result[id]
		if !ok {
			continue
		}

		var doc summaryDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			continue
		}
		title := strings.TrimSpace(doc.Title)
		if title == "" {
			continue
		}

		p := domain.Paper{
			Title:  title,
			Link:   fmt.Sprintf("https://pubmed.ncbi.nlm.nih.gov/%s/", id),
			Source: domain.SourcePubmed,
		}
		for _, a := range doc.Authors {
			if name := strings.TrimSpace(a.Name); name != "" {
				p.Authors = append(p.Authors, name)
			}
		}
		if t, err := time.Parse("2006/01/02", firstDateField(doc.PubDate)); err == nil {
			p.Published = t
		}

		papers = append(papers, p)
	}
	return papers, nil
}

func (c *Client) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("PubMed API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("PubMed API returned HTTP %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

// firstDateField trims a pubdate like "2023/05/12 00:00" or "2023 May 12"
// down to its yyyy/mm/dd prefix when present.
func firstDateField(pubdate string) string {
	if i := strings.IndexByte(pubdate, ' '); i > 0 {
		return pubdate[:i]
	}
	return pubdate
}

type summaryDoc struct {
	Title   string `json:"title"`
	PubDate string `json:"pubdate"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
}
