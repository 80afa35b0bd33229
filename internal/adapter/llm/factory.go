package llm

import (
	"context"
	"fmt"
	"net/http"

	"flashgen/internal/config"
	"flashgen/internal/logger"
	"flashgen/internal/metrics"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

// NewModel creates the langchaingo model for the configured provider.
func NewModel(ctx context.Context, cfg config.LLMConfig) (llms.Model, error) {
	switch cfg.Provider {
	case config.ProviderOllama:
		httpClient := &http.Client{Timeout: cfg.RequestTimeout}
		model, err := ollama.New(
			ollama.WithServerURL(cfg.ServerURL),
			ollama.WithModel(cfg.Model),
			ollama.WithHTTPClient(httpClient),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}
		return model, nil
	case config.ProviderOpenAI:
		model, err := openai.New(
			openai.WithToken(cfg.APIKey),
			openai.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai client: %w", err)
		}
		return model, nil
	case config.ProviderGoogleAI:
		model, err := googleai.New(ctx,
			googleai.WithAPIKey(cfg.APIKey),
			googleai.WithDefaultModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create googleai client: %w", err)
		}
		return model, nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}

// NewFromConfig builds the completion client for cfg.
func NewFromConfig(ctx context.Context, cfg config.LLMConfig, m *metrics.Metrics) (*Client, error) {
	model, err := NewModel(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Get().Info("Model provider initialized",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model),
		zap.Duration("timeout", cfg.RequestTimeout),
		zap.Int64("max_concurrent_calls", cfg.MaxConcurrentCalls))
	return NewClient(model, cfg.Provider, cfg.RequestTimeout, cfg.MaxConcurrentCalls, m), nil
}
