package llm

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"flashgen/internal/config"
	"flashgen/internal/domain"
	"flashgen/internal/logger"
	"flashgen/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeModel struct {
	response string
	err      error
	delay    time.Duration

	mu          sync.Mutex
	prompts     []string
	options     llms.CallOptions
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, opts ...llms.CallOption) (*llms.ContentResponse, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		cur := f.maxInFlight.Load()
		if n <= cur || f.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}

	f.mu.Lock()
	for _, m := range messages {
		for _, part := range m.Parts {
			if text, ok := part.(llms.TextContent); ok {
				f.prompts = append(f.prompts, text.Text)
			}
		}
	}
	for _, opt := range opts {
		opt(&f.options)
	}
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.response}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, opts ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, opts...)
}

func TestClient_Complete(t *testing.T) {
	model := &fakeModel{response: `[{"term":"A","definition":"B"}]`}
	m := metrics.New()
	client := NewClient(model, "fake", time.Second, 2, m)

	text, err := client.Complete(context.Background(), "make cards", domain.GenerationParams{Temperature: 0.4, MaxTokens: 512})
	require.NoError(t, err)

	assert.Equal(t, `[{"term":"A","definition":"B"}]`, text)
	assert.Equal(t, []string{"make cards"}, model.prompts)
	assert.InDelta(t, 0.4, model.options.Temperature, 1e-9)
	assert.Equal(t, 512, model.options.MaxTokens)
}

func TestClient_Complete_ProviderError(t *testing.T) {
	model := &fakeModel{err: errors.New("502 bad gateway")}
	m := metrics.New()
	client := NewClient(model, "fake", time.Second, 1, m)

	_, err := client.Complete(context.Background(), "p", domain.GenerationParams{})
	require.Error(t, err)
	assert.True(t, domain.HasCode(err, domain.CodeProviderUnavailable))
	assert.Contains(t, err.Error(), "502 bad gateway")
}

func TestClient_Complete_Timeout(t *testing.T) {
	model := &fakeModel{response: "late", delay: time.Second}
	m := metrics.New()
	client := NewClient(model, "fake", 20*time.Millisecond, 1, m)

	_, err := client.Complete(context.Background(), "p", domain.GenerationParams{})
	require.Error(t, err)
	assert.True(t, domain.HasCode(err, domain.CodeProviderUnavailable))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	expected := `
# HELP flashgen_provider_calls_total Calls made to the model provider by outcome.
# TYPE flashgen_provider_calls_total counter
flashgen_provider_calls_total{outcome="timeout"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "flashgen_provider_calls_total"))
}

func TestClient_Complete_CancelledWhileWaitingForSlot(t *testing.T) {
	model := &fakeModel{response: "ok", delay: 200 * time.Millisecond}
	client := NewClient(model, "fake", time.Second, 1, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = client.Complete(context.Background(), "first", domain.GenerationParams{})
	}()
	require.Eventually(t, func() bool { return model.inFlight.Load() == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := client.Complete(ctx, "second", domain.GenerationParams{})
	assert.True(t, domain.HasCode(err, domain.CodeProviderUnavailable))

	<-done
}

func TestClient_Complete_BoundsConcurrency(t *testing.T) {
	model := &fakeModel{response: "ok", delay: 30 * time.Millisecond}
	client := NewClient(model, "fake", time.Second, 2, nil)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.Complete(context.Background(), "p", domain.GenerationParams{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, model.maxInFlight.Load(), int32(2))
}

func TestNewModel(t *testing.T) {
	ctx := context.Background()

	_, err := NewModel(ctx, config.LLMConfig{Provider: config.ProviderOllama, ServerURL: "http://localhost:11434", Model: "qwen3:0.6b", RequestTimeout: time.Second})
	assert.NoError(t, err)

	_, err = NewModel(ctx, config.LLMConfig{Provider: config.ProviderOpenAI, APIKey: "sk-test", Model: "gpt-4o-mini"})
	assert.NoError(t, err)

	_, err = NewModel(ctx, config.LLMConfig{Provider: "carrier-pigeon"})
	assert.Error(t, err)
}

func TestNewFromConfig_LogsProviderOnce(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	defer logger.Replace(zap.New(core))()

	cfg := config.LLMConfig{
		Provider:           config.ProviderOllama,
		ServerURL:          "http://localhost:11434",
		Model:              "qwen3:0.6b",
		RequestTimeout:     time.Second,
		MaxConcurrentCalls: 2,
	}
	client, err := NewFromConfig(context.Background(), cfg, metrics.New())
	require.NoError(t, err)
	require.NotNil(t, client)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "Model provider initialized", entry.Message)
	assert.Equal(t, map[string]interface{}{
		"provider":             "ollama",
		"model":                "qwen3:0.6b",
		"timeout":              time.Second,
		"max_concurrent_calls": int64(2),
	}, entry.ContextMap())
}
