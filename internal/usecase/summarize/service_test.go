package summarize

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/paperdex/internal/domain"
)

// mockCompleter implements the consumer interface for tests.
type mockCompleter struct {
	completeFn func(ctx context.Context, prompt string) (string, error)
}

func (m *mockCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if m.completeFn != nil {
		return m.completeFn(ctx, prompt)
	}
	return "llm summary", nil
}

func longAbstract() string {
	return "We introduce a novel approach to distributed consensus in asynchronous networks. " +
		"Prior work on this topic assumed partially synchronous communication between nodes. " +
		"Our protocol removes that assumption entirely while preserving safety guarantees. " +
		"Extensive experiments confirm the theoretical throughput predictions across clusters. " +
		"Code is available online."
}

func TestSummarize_UsesLLM(t *testing.T) {
	var gotPrompt string
	mc := &mockCompleter{completeFn: func(_ context.Context, prompt string) (string, error) {
		gotPrompt = prompt
		return "A concise model summary.", nil
	}}
	s := New(mc, 0, zap.NewNop())

	out := s.Summarize(context.Background(), domain.Paper{
		Title:    "Consensus Paper",
		Abstract: longAbstract(),
	})

	if out != "A concise model summary." {
		t.Errorf("out = %q", out)
	}
	if gotPrompt != longAbstract() {
		t.Errorf("prompt = %q, want the abstract", gotPrompt)
	}
}

func TestSummarize_ShortAbstractVerbatim(t *testing.T) {
	mc := &mockCompleter{completeFn: func(_ context.Context, _ string) (string, error) {
		t.Error("LLM should not be called for short text")
		return "", nil
	}}
	s := New(mc, 0, zap.NewNop())

	out := s.Summarize(context.Background(), domain.Paper{
		Title:    "Short",
		Abstract: "Already brief.",
	})
	if out != "Already brief." {
		t.Errorf("out = %q", out)
	}
}

func TestSummarize_LLMErrorFallsBackToExtractive(t *testing.T) {
	mc := &mockCompleter{completeFn: func(_ context.Context, _ string) (string, error) {
		return "", errors.New("rate limited upstream")
	}}
	s := New(mc, 0, zap.NewNop())

	out := s.Summarize(context.Background(), domain.Paper{
		Title:    "Consensus Paper",
		Abstract: longAbstract(),
	})

	if out == "" {
		t.Fatal("expected extractive fallback, got empty")
	}
	if !strings.HasPrefix(out, "We introduce a novel approach") {
		t.Errorf("expected extractive summary, got %q", out)
	}
}

func TestSummarize_StalledLLMTimesOut(t *testing.T) {
	mc := &mockCompleter{completeFn: func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	s := New(mc, 20*time.Millisecond, zap.NewNop())

	start := time.Now()
	out := s.Summarize(context.Background(), domain.Paper{
		Title:    "Consensus Paper",
		Abstract: longAbstract(),
	})
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("Summarize took %v, want prompt return after the call timeout", elapsed)
	}
	if !strings.HasPrefix(out, "We introduce a novel approach") {
		t.Errorf("expected extractive summary, got %q", out)
	}
}

func TestSummarize_LLMEmptyOutputFallsBack(t *testing.T) {
	mc := &mockCompleter{completeFn: func(_ context.Context, _ string) (string, error) {
		return "   ", nil
	}}
	s := New(mc, 0, zap.NewNop())

	out := s.Summarize(context.Background(), domain.Paper{
		Title:    "Consensus Paper",
		Abstract: longAbstract(),
	})
	if !strings.HasPrefix(out, "We introduce a novel approach") {
		t.Errorf("expected extractive summary, got %q", out)
	}
}

func TestSummarize_NoLLMUsesExtractive(t *testing.T) {
	s := New(nil, 0, zap.NewNop())

	out := s.Summarize(context.Background(), domain.Paper{
		Title:    "Consensus Paper",
		Abstract: longAbstract(),
	})
	if !strings.HasPrefix(out, "We introduce a novel approach") {
		t.Errorf("expected extractive summary, got %q", out)
	}
}

func TestSummarize_TitleWhenNoAbstract(t *testing.T) {
	s := New(nil, 0, zap.NewNop())

	out := s.Summarize(context.Background(), domain.Paper{Title: "Only A Title"})
	if out != "Only A Title" {
		t.Errorf("out = %q", out)
	}
}

func TestSummarize_PlaceholderWhenNoText(t *testing.T) {
	s := New(nil, 0, zap.NewNop())

	out := s.Summarize(context.Background(), domain.Paper{})
	if !strings.HasPrefix(out, "Summary unavailable for:") {
		t.Errorf("out = %q", out)
	}
}

func TestSummarizeAll_PreservesOrder(t *testing.T) {
	mc := &mockCompleter{completeFn: func(_ context.Context, prompt string) (string, error) {
		// Echo back a marker derived from the prompt.
		return "summary of " + prompt[:strings.Index(prompt, " ")], nil
	}}
	s := New(mc, 0, zap.NewNop())

	papers := make([]domain.Paper, 10)
	for i := range papers {
		papers[i] = domain.Paper{
			Title:    "Paper " + strconv.Itoa(i),
			Abstract: "p" + strconv.Itoa(i) + " " + longAbstract(),
		}
	}

	summaries := s.SummarizeAll(context.Background(), papers)
	if len(summaries) != len(papers) {
		t.Fatalf("got %d summaries, want %d", len(summaries), len(papers))
	}
	for i, sum := range summaries {
		want := "summary of p" + strconv.Itoa(i)
		if sum != want {
			t.Errorf("summaries[%d] = %q, want %q", i, sum, want)
		}
	}
}

func TestSummarizeAll_Empty(t *testing.T) {
	s := New(nil, 0, zap.NewNop())
	if got := s.SummarizeAll(context.Background(), nil); got != nil {
		t.Errorf("got %v, want nil", got)
	}
}
