// Package papercache persists summarized papers as Redis hashes behind an
// HNSW vector index, keyed by a digest of the normalized title and source.
package papercache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/kailas-cloud/paperdex/internal/db"
	"github.com/kailas-cloud/paperdex/internal/domain"
)

// store is the consumer interface for cache persistence (ISP).
type store interface {
	Ping(ctx context.Context) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Repo implements usecase/cache.Repository.
type Repo struct {
	store      store
	keyPrefix  string
	collection string
}

// New creates a paper cache repository. keyPrefix and collection shape
// the hash keys ("<prefix><collection>:<id>") and the index name
// ("<prefix><collection>:idx").
func New(s store, keyPrefix, collection string) *Repo {
	return &Repo{store: s, keyPrefix: keyPrefix, collection: collection}
}

// Ping proxies the connectivity check from the store.
func (r *Repo) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}

// EnsureIndex creates the vector index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context, dimensions int) error {
	name := r.indexName()

	exists, err := r.store.IndexExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check index %s: %w", name, err)
	}
	if exists {
		return nil
	}

	def, err := db.NewIndex(name).
		Prefix(r.docPrefix()).
		Tag("source").
		Tag("title_norm").
		Numeric("inserted_at").
		VectorHNSW("vector", dimensions, db.DistanceCosine, 16, 200).
		Build()
	if err != nil {
		return fmt.Errorf("build index definition: %w", err)
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index %s: %w", name, err)
	}
	return nil
}

// Insert upserts a batch of summarized papers in one pipelined call.
// vectors[i] is the embedding for papers[i]. The document ID is derived
// from the normalized title and source, so re-inserting the same paper
// overwrites its previous entry.
func (r *Repo) Insert(ctx context.Context, papers []domain.Paper, vectors [][]float32) error {
	if len(papers) == 0 {
		return nil
	}
	if len(papers) != len(vectors) {
		return fmt.Errorf("insert: %d papers but %d vectors", len(papers), len(vectors))
	}

	now := time.Now().Unix()
	items := make([]db.HashSetItem, 0, len(papers))
	for i, p := range papers {
		fields, err := buildFields(p, vectors[i], now)
		if err != nil {
			return err
		}
		items = append(items, db.HashSetItem{
			Key:    r.docKey(docID(p)),
			Fields: fields,
		})
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("insert %d papers: %w", len(items), err)
	}
	return nil
}

// Lookup runs a KNN search over the cache, optionally pre-filtered by
// source, and returns papers ordered by descending similarity.
func (r *Repo) Lookup(ctx context.Context, vector []float32, source domain.Source, k int) ([]domain.Paper, error) {
	q := &db.KNNQuery{
		IndexName: r.indexName(),
		Vector:    vector,
		K:         k,
		ReturnFields: []string{
			"title", "authors", "abstract", "summary",
			"link", "source", "published", "__vector_score",
		},
	}
	if source != domain.SourceAll {
		q.Prefilter = fmt.Sprintf("@source:{%s}", source)
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("knn lookup: %w", err)
	}
	if sr == nil || len(sr.Entries) == 0 {
		return nil, nil
	}

	papers := make([]domain.Paper, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		papers = append(papers, parseEntry(entry))
	}
	return papers, nil
}

// Count returns the number of cached papers.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, r.indexName(), "*")
	if err != nil {
		return 0, fmt.Errorf("count papers: %w", err)
	}
	return n, nil
}

func (r *Repo) docPrefix() string {
	return fmt.Sprintf("%s%s:", r.keyPrefix, r.collection)
}

func (r *Repo) docKey(id string) string {
	return r.docPrefix() + id
}

func (r *Repo) indexName() string {
	return fmt.Sprintf("%s%s:idx", r.keyPrefix, r.collection)
}

// docID derives a stable hash ID from the normalized title and source.
func docID(p domain.Paper) string {
	sum := sha256.Sum256([]byte(string(p.Source) + "\x00" + domain.NormalizeTitle(p.Title)))
	return hex.EncodeToString(sum[:16])
}

// buildFields flattens a paper and its embedding into the stored hash fields.
func buildFields(p domain.Paper, vector []float32, insertedAt int64) (map[string]string, error) {
	authors, err := json.Marshal(p.Authors)
	if err != nil {
		return nil, fmt.Errorf("marshal authors: %w", err)
	}

	fields := map[string]string{
		"title":       p.Title,
		"title_norm":  domain.NormalizeTitle(p.Title),
		"authors":     string(authors),
		"abstract":    p.Abstract,
		"summary":     p.Summary,
		"link":        p.Link,
		"source":      string(p.Source),
		"inserted_at": strconv.FormatInt(insertedAt, 10),
		"vector":      vectorToBytes(vector),
	}
	if !p.Published.IsZero() {
		fields["published"] = p.Published.Format(time.RFC3339)
	}
	return fields, nil
}

// parseEntry reconstructs a paper from stored hash fields. Malformed
// individual fields degrade to zero values rather than failing the hit.
func parseEntry(entry db.SearchEntry) domain.Paper {
	f := entry.Fields
	p := domain.Paper{
		Title:          f["title"],
		Abstract:       f["abstract"],
		Summary:        f["summary"],
		Link:           f["link"],
		Source:         domain.Source(f["source"]),
		RelevanceScore: entry.Score,
	}
	if raw := f["authors"]; raw != "" {
		_ = json.Unmarshal([]byte(raw), &p.Authors)
	}
	if raw := f["published"]; raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			p.Published = t
		}
	}
	return p
}

// vectorToBytes serializes []float32 to the binary string stored in the
// hash vector field (little-endian, matching the index serializer).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
