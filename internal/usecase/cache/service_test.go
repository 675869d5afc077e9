package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/paperdex/internal/domain"
)

func TestLookup_Hit(t *testing.T) {
	s, mr, me := newTestService(t)

	me.embedFn = func(_ context.Context, text string) (domain.EmbeddingResult, error) {
		if text != "quantum computing" {
			t.Errorf("embedded text = %q", text)
		}
		return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}}, nil
	}
	mr.lookupFn = func(_ context.Context, vector []float32, source domain.Source, k int) ([]domain.Paper, error) {
		if len(vector) != 2 {
			t.Errorf("vector len = %d", len(vector))
		}
		if source != domain.SourceArxiv {
			t.Errorf("source = %q", source)
		}
		if k != 5 {
			t.Errorf("k = %d", k)
		}
		return []domain.Paper{{Title: "Hit", RelevanceScore: 0.9}}, nil
	}

	out := s.Lookup(context.Background(), mustQuery(t, "quantum computing", "arxiv"))
	if out.Degraded() {
		t.Fatalf("unexpected degradation: %s", out.Reason)
	}
	if len(out.Value) != 1 || out.Value[0].Title != "Hit" {
		t.Errorf("papers = %v", out.Value)
	}
}

func TestLookup_NoRepo(t *testing.T) {
	s := New(Config{Repo: nil, Embedder: &mockEmbedder{}, Logger: zap.NewNop()})

	out := s.Lookup(context.Background(), mustQuery(t, "quantum", "all"))
	if out.Reason != domain.DegradedStore {
		t.Errorf("reason = %q, want %q", out.Reason, domain.DegradedStore)
	}
	if len(out.Value) != 0 {
		t.Errorf("papers = %v, want none", out.Value)
	}
}

func TestLookup_EmbeddingFails(t *testing.T) {
	s, mr, me := newTestService(t)
	me.embedFn = func(_ context.Context, _ string) (domain.EmbeddingResult, error) {
		return domain.EmbeddingResult{}, errors.New("provider down")
	}
	mr.lookupFn = func(_ context.Context, _ []float32, _ domain.Source, _ int) ([]domain.Paper, error) {
		t.Error("store should not be queried when embedding fails")
		return nil, nil
	}

	out := s.Lookup(context.Background(), mustQuery(t, "quantum", "all"))
	if out.Reason != domain.DegradedEmbedding {
		t.Errorf("reason = %q, want %q", out.Reason, domain.DegradedEmbedding)
	}
}

func TestLookup_StalledEmbedderTimesOut(t *testing.T) {
	me := &mockEmbedder{embedFn: func(ctx context.Context, _ string) (domain.EmbeddingResult, error) {
		<-ctx.Done()
		return domain.EmbeddingResult{}, ctx.Err()
	}}
	s := New(Config{
		Repo:       &mockRepo{},
		Embedder:   me,
		Dimensions: 2,
		LookupK:    5,
		Collection: "papers",
		Timeout:    20 * time.Millisecond,
		Logger:     zap.NewNop(),
	})

	start := time.Now()
	out := s.Lookup(context.Background(), mustQuery(t, "quantum", "all"))
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("Lookup took %v, want prompt return after the call timeout", elapsed)
	}
	if out.Reason != domain.DegradedEmbedding {
		t.Errorf("reason = %q, want %q", out.Reason, domain.DegradedEmbedding)
	}
}

func TestLookup_StoreFails(t *testing.T) {
	s, mr, _ := newTestService(t)
	mr.lookupFn = func(_ context.Context, _ []float32, _ domain.Source, _ int) ([]domain.Paper, error) {
		return nil, errors.New("connection refused")
	}

	out := s.Lookup(context.Background(), mustQuery(t, "quantum", "all"))
	if out.Reason != domain.DegradedStore {
		t.Errorf("reason = %q, want %q", out.Reason, domain.DegradedStore)
	}
}

func TestInsert_Success(t *testing.T) {
	s, mr, _ := newTestService(t)

	var gotPapers []domain.Paper
	var gotVectors [][]float32
	mr.insertFn = func(_ context.Context, papers []domain.Paper, vectors [][]float32) error {
		gotPapers, gotVectors = papers, vectors
		return nil
	}

	papers := []domain.Paper{
		{Title: "One", Summary: "First summary."},
		{Title: "Two", Summary: "Second summary."},
	}
	if reason := s.Insert(context.Background(), papers); reason != domain.DegradedNone {
		t.Fatalf("reason = %q", reason)
	}

	if len(gotPapers) != 2 || len(gotVectors) != 2 {
		t.Fatalf("insert got %d papers, %d vectors", len(gotPapers), len(gotVectors))
	}
}

func TestInsert_EmbeddingFailsPerItem(t *testing.T) {
	s, mr, me := newTestService(t)

	// Per-item path: fail only the first text.
	calls := 0
	me.embedFn = func(_ context.Context, _ string) (domain.EmbeddingResult, error) {
		calls++
		if calls == 1 {
			return domain.EmbeddingResult{}, errors.New("bad input")
		}
		return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}}, nil
	}

	var gotPapers []domain.Paper
	mr.insertFn = func(_ context.Context, papers []domain.Paper, vectors [][]float32) error {
		gotPapers = papers
		return nil
	}

	papers := []domain.Paper{
		{Title: "Bad", Summary: "x"},
		{Title: "Good", Summary: "y"},
	}
	reason := s.Insert(context.Background(), papers)
	if reason != domain.DegradedEmbedding {
		t.Errorf("reason = %q, want %q", reason, domain.DegradedEmbedding)
	}
	if len(gotPapers) != 1 || gotPapers[0].Title != "Good" {
		t.Errorf("inserted papers = %v", gotPapers)
	}
}

func TestInsert_StoreFails(t *testing.T) {
	s, mr, _ := newTestService(t)
	mr.insertFn = func(_ context.Context, _ []domain.Paper, _ [][]float32) error {
		return errors.New("write refused")
	}

	reason := s.Insert(context.Background(), []domain.Paper{{Title: "One", Summary: "s"}})
	if reason != domain.DegradedStore {
		t.Errorf("reason = %q, want %q", reason, domain.DegradedStore)
	}
}

func TestInsert_IndexCreatedOnce(t *testing.T) {
	s, mr, _ := newTestService(t)

	ensures := 0
	mr.ensureIndexFn = func(_ context.Context, dimensions int) error {
		ensures++
		if dimensions != 2 {
			t.Errorf("dimensions = %d", dimensions)
		}
		return nil
	}

	papers := []domain.Paper{{Title: "One", Summary: "s"}}
	s.Insert(context.Background(), papers)
	s.Insert(context.Background(), papers)

	if ensures != 1 {
		t.Errorf("EnsureIndex called %d times, want 1", ensures)
	}
}

func TestInsert_IndexFailureRetriesNextTime(t *testing.T) {
	s, mr, _ := newTestService(t)

	ensures := 0
	mr.ensureIndexFn = func(_ context.Context, _ int) error {
		ensures++
		if ensures == 1 {
			return errors.New("store down")
		}
		return nil
	}

	papers := []domain.Paper{{Title: "One", Summary: "s"}}
	if reason := s.Insert(context.Background(), papers); reason != domain.DegradedStore {
		t.Fatalf("first insert reason = %q", reason)
	}
	if reason := s.Insert(context.Background(), papers); reason != domain.DegradedNone {
		t.Fatalf("second insert reason = %q", reason)
	}
	if ensures != 2 {
		t.Errorf("EnsureIndex called %d times, want 2", ensures)
	}
}

func TestInsert_NoRepo(t *testing.T) {
	s := New(Config{Repo: nil, Embedder: &mockEmbedder{}, Logger: zap.NewNop()})
	if reason := s.Insert(context.Background(), []domain.Paper{{Title: "One"}}); reason != domain.DegradedStore {
		t.Errorf("reason = %q", reason)
	}
}

func TestStatus_Active(t *testing.T) {
	s, mr, _ := newTestService(t)
	mr.countFn = func(_ context.Context) (int, error) { return 7, nil }

	status, count, collection, err := s.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status != domain.CacheActive {
		t.Errorf("status = %q", status)
	}
	if count != 7 {
		t.Errorf("count = %d", count)
	}
	if collection != "papers" {
		t.Errorf("collection = %q", collection)
	}
}

func TestStatus_Unreachable(t *testing.T) {
	s, mr, _ := newTestService(t)
	mr.pingFn = func(_ context.Context) error { return errors.New("refused") }

	status, _, _, err := s.Status(context.Background())
	if status != domain.CacheDegraded {
		t.Errorf("status = %q", status)
	}
	if !errors.Is(err, domain.ErrCacheUnavailable) {
		t.Errorf("err = %v, want ErrCacheUnavailable", err)
	}
}

func TestStatus_NoRepo(t *testing.T) {
	s := New(Config{Repo: nil, Embedder: &mockEmbedder{}, Collection: "papers", Logger: zap.NewNop()})
	status, _, _, err := s.Status(context.Background())
	if status != domain.CacheDegraded {
		t.Errorf("status = %q", status)
	}
	if !errors.Is(err, domain.ErrCacheUnavailable) {
		t.Errorf("err = %v", err)
	}
}

func TestStatus_CountErrorStillActive(t *testing.T) {
	s, mr, _ := newTestService(t)
	mr.countFn = func(_ context.Context) (int, error) { return 0, errors.New("no index") }

	status, count, _, err := s.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status != domain.CacheActive || count != 0 {
		t.Errorf("status = %q count = %d", status, count)
	}
}
