// Package summarize condenses paper abstracts, preferring an LLM and
// degrading to extractive summaries when the model is unavailable.
package summarize

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/paperdex/internal/domain"
)

// shortTextThreshold is the length below which text is already a summary.
const shortTextThreshold = 50

// defaultTimeout bounds a single completion call.
const defaultTimeout = 10 * time.Second

// Service produces one summary per paper.
type Service struct {
	llm     Completer
	timeout time.Duration
	logger  *zap.Logger
}

// New creates a summarization service. llm may be nil, in which case
// every summary is extractive. timeout caps each completion call; a
// call past the deadline degrades like any other LLM failure.
func New(llm Completer, timeout time.Duration, logger *zap.Logger) *Service {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Service{llm: llm, timeout: timeout, logger: logger}
}

// Summarize returns a summary for one paper. It never fails: LLM errors
// degrade to an extractive summary, and a paper with no usable text gets
// an explicit placeholder.
func (s *Service) Summarize(ctx context.Context, p domain.Paper) string {
	text := strings.TrimSpace(p.Abstract)
	if text == "" {
		text = strings.TrimSpace(p.Title)
	}
	if text == "" {
		return placeholder(p)
	}

	if len(text) < shortTextThreshold {
		return text
	}

	if s.llm != nil {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		out, err := s.llm.Complete(callCtx, text)
		cancel()
		if err == nil {
			if out = strings.TrimSpace(out); out != "" {
				return out
			}
		} else {
			s.logger.Warn("LLM summary failed, falling back to extractive",
				zap.String("title", p.Title), zap.Error(err))
		}
	}

	if out := Extractive(text); out != "" {
		return out
	}
	return placeholder(p)
}

// SummarizeAll fans out one summary per paper and returns them in input
// order, so summaries[i] always describes papers[i].
func (s *Service) SummarizeAll(ctx context.Context, papers []domain.Paper) []string {
	if len(papers) == 0 {
		return nil
	}

	summaries := make([]string, len(papers))
	var wg sync.WaitGroup
	for i, p := range papers {
		wg.Add(1)
		go func(i int, p domain.Paper) {
			defer wg.Done()
			summaries[i] = s.Summarize(ctx, p)
		}(i, p)
	}
	wg.Wait()
	return summaries
}

func placeholder(p domain.Paper) string {
	return "Summary unavailable for: " + p.Title
}
