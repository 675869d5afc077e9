package openai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/paperdex/internal/domain"
	"github.com/kailas-cloud/paperdex/internal/metrics"
)

const summarySystemPrompt = "You are a research assistant. Provide a comprehensive " +
	"summary of the research paper abstract you are given, in three to five sentences, " +
	"covering the problem, the approach, and the key findings. Do not add preamble."

// ChatClient produces paper summaries via an OpenAI-compatible chat-completion API.
// A client-side rate limiter bounds the request rate across concurrent fan-outs.
type ChatClient struct {
	client  *openai.Client
	model   string
	limiter *rate.Limiter
	logger  *zap.Logger
}

// ChatConfig holds the chat-completion client settings.
type ChatConfig struct {
	APIKey            string
	BaseURL           string
	Model             string
	RequestsPerSecond float64
	Logger            *zap.Logger
}

// NewChatClient creates a chat-completion summary client.
func NewChatClient(cfg *ChatConfig) *ChatClient {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	return &ChatClient{
		client:  newClient(cfg.APIKey, cfg.BaseURL),
		model:   cfg.Model,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		logger:  cfg.Logger,
	}
}

// Complete sends one summarization request and returns the model's text.
func (c *ChatClient) Complete(ctx context.Context, text string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0.3,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: summarySystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	}

	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.SummaryRequestsTotal.WithLabelValues(c.model, "error").Inc()
		return "", parseAPIError(err, domain.ErrSummaryProviderError)
	}

	if len(resp.Choices) == 0 {
		metrics.SummaryRequestsTotal.WithLabelValues(c.model, "error").Inc()
		return "", fmt.Errorf("empty completion response: %w", domain.ErrSummaryProviderError)
	}

	metrics.SummaryRequestsTotal.WithLabelValues(c.model, "success").Inc()
	metrics.SummaryRequestDuration.WithLabelValues(c.model).Observe(duration.Seconds())

	if resp.Usage.TotalTokens > 0 {
		metrics.SummaryTokensTotal.WithLabelValues(c.model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.SummaryTokensTotal.WithLabelValues(c.model, "completion").Add(float64(resp.Usage.CompletionTokens))
		metrics.SummaryTokensTotal.WithLabelValues(c.model, "total").Add(float64(resp.Usage.TotalTokens))
	}

	c.logger.Debug("Summary completion finished",
		zap.String("model", c.model),
		zap.Duration("duration", duration),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)

	return resp.Choices[0].Message.Content, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (c *ChatClient) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}
