package arxiv

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kailas-cloud/paperdex/internal/domain"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/1706.03762v7</id>
    <title>Attention Is All You Need</title>
    <summary>  The dominant sequence transduction models are based on complex recurrent networks.  </summary>
    <published>2017-06-12T17:57:34Z</published>
    <author><name>Ashish Vaswani</name></author>
    <author><name>Noam Shazeer</name></author>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/1810.04805v2</id>
    <title>BERT: Pre-training of Deep Bidirectional Transformers</title>
    <summary>We introduce a new language representation model.</summary>
    <published>2018-10-11T00:50:01Z</published>
    <author><name>Jacob Devlin</name></author>
  </entry>
</feed>`

func withTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	orig := apiBase
	apiBase = server.URL
	t.Cleanup(func() {
		apiBase = orig
		server.Close()
	})
	return server
}

func TestSearch(t *testing.T) {
	withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if got := q.Get("search_query"); !strings.HasPrefix(got, "all:") {
			t.Errorf("search_query = %q, want all: prefix", got)
		}
		if got := q.Get("max_results"); got != "5" {
			t.Errorf("max_results = %q, want 5", got)
		}
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(sampleFeed))
	})

	c := New(http.DefaultClient, "test-agent", 5)
	papers, err := c.Search(context.Background(), "attention transformers")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(papers) != 2 {
		t.Fatalf("got %d papers, want 2", len(papers))
	}

	first := papers[0]
	if first.Title != "Attention Is All You Need" {
		t.Errorf("Title = %q", first.Title)
	}
	if first.Source != domain.SourceArxiv {
		t.Errorf("Source = %q", first.Source)
	}
	if len(first.Authors) != 2 || first.Authors[0] != "Ashish Vaswani" {
		t.Errorf("Authors = %v", first.Authors)
	}
	if first.Link != "http://arxiv.org/abs/1706.03762v7" {
		t.Errorf("Link = %q", first.Link)
	}
	if strings.HasPrefix(first.Abstract, " ") || strings.HasSuffix(first.Abstract, " ") {
		t.Errorf("Abstract not trimmed: %q", first.Abstract)
	}
	if first.Published.IsZero() {
		t.Error("Published not parsed")
	}
}

func TestSearch_HTTPError(t *testing.T) {
	withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	c := New(http.DefaultClient, "test-agent", 5)
	if _, err := c.Search(context.Background(), "anything"); err == nil {
		t.Fatal("expected error")
	}
}

func TestSearch_MalformedXML(t *testing.T) {
	withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not xml at all"))
	})

	c := New(http.DefaultClient, "test-agent", 5)
	if _, err := c.Search(context.Background(), "anything"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"quantum computing", "all:quantum+computing"},
		{"  spaced   out  ", "all:spaced+out"},
		{"C&C attacks", "all:C%26C+attacks"},
		{"100% renewable #energy", "all:100%25+renewable+%23energy"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := buildQuery(tc.in); got != tc.want {
			t.Errorf("buildQuery(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
