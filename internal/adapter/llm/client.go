package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"flashgen/internal/domain"
	"flashgen/internal/logger"
	"flashgen/internal/metrics"

	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Client implements domain.CompletionClient on top of a langchaingo model.
// Every call holds one slot of a process-wide semaphore and runs under its
// own timeout.
type Client struct {
	model   llms.Model
	name    string
	timeout time.Duration
	slots   *semaphore.Weighted
	metrics *metrics.Metrics
}

// NewClient wraps model. maxConcurrent bounds the number of outstanding
// provider calls; callers beyond it wait for a slot or their context.
func NewClient(model llms.Model, name string, timeout time.Duration, maxConcurrent int64, m *metrics.Metrics) *Client {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Client{
		model:   model,
		name:    name,
		timeout: timeout,
		slots:   semaphore.NewWeighted(maxConcurrent),
		metrics: m,
	}
}

// Complete implements domain.CompletionClient
func (c *Client) Complete(ctx context.Context, prompt string, params domain.GenerationParams) (string, error) {
	l := logger.Get()

	if err := c.slots.Acquire(ctx, 1); err != nil {
		c.metrics.ProviderCall(metrics.OutcomeError)
		return "", domain.NewProviderUnavailableError(fmt.Errorf("waiting for a %s call slot: %w", c.name, err))
	}
	defer c.slots.Release(1)

	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := llms.GenerateFromSinglePrompt(callCtx, c.model, prompt, callOptions(params)...)
	if err != nil {
		outcome := metrics.OutcomeError
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			outcome = metrics.OutcomeTimeout
		}
		c.metrics.ProviderCall(outcome)
		l.Error("Model provider call failed",
			zap.String("provider", c.name),
			zap.String("outcome", outcome),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", domain.NewProviderUnavailableError(fmt.Errorf("%s completion failed: %w", c.name, err))
	}

	c.metrics.ProviderCall(metrics.OutcomeSuccess)
	l.Debug("Model provider call completed",
		zap.String("provider", c.name),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("response_length", len(text)))
	return text, nil
}

func callOptions(params domain.GenerationParams) []llms.CallOption {
	opts := []llms.CallOption{llms.WithTemperature(params.Temperature)}
	if params.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(params.MaxTokens))
	}
	return opts
}

var _ domain.CompletionClient = (*Client)(nil)
