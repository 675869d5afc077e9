package domain

import (
	"strings"
	"time"
)

// Source identifies the upstream paper catalog a record came from.
type Source string

const (
	// SourceArxiv is the arXiv Atom API.
	SourceArxiv Source = "arxiv"
	// SourcePubmed is the PubMed E-utilities API.
	SourcePubmed Source = "pubmed"
	// SourceAll means no source filter.
	SourceAll Source = "all"
)

// ParseSource validates a source filter string. An empty string means all.
func ParseSource(s string) (Source, error) {
	switch Source(s) {
	case SourceArxiv, SourcePubmed, SourceAll:
		return Source(s), nil
	case "":
		return SourceAll, nil
	default:
		return "", ErrInvalidSource
	}
}

// Paper is a normalized record from any upstream catalog.
type Paper struct {
	Title     string
	Authors   []string
	Abstract  string
	Summary   string
	Link      string
	Source    Source
	Published time.Time
	// RelevanceScore is set only for cache hits: 1 - cosine distance, clamped to [0,1].
	RelevanceScore float64
}

// NormalizeTitle lowercases, trims, and collapses inner whitespace.
// Paper identity is approximated by equality of normalized titles; two
// differently-worded titles for the same paper are treated as distinct.
// Known limitation, kept deliberately.
func NormalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}
