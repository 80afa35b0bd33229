package service

import (
	"context"
	"time"

	"flashgen/internal/config"
	"flashgen/internal/domain"
	"flashgen/internal/logger"
	"flashgen/internal/metrics"
	"flashgen/internal/normalizer"
	"flashgen/internal/prompt"
	"flashgen/internal/ratelimit"

	"go.uber.org/zap"
)

// generationService implements domain.GenerationService
type generationService struct {
	client  domain.CompletionClient
	counter *ratelimit.GenerationCounter
	policy  normalizer.ExpertPolicy
	llmCfg  config.LLMConfig
	metrics *metrics.Metrics
}

// NewGenerationService creates the generation pipeline. counter and m may be
// nil, which disables per-client budgets and metrics respectively.
func NewGenerationService(
	client domain.CompletionClient,
	counter *ratelimit.GenerationCounter,
	policy normalizer.ExpertPolicy,
	llmCfg config.LLMConfig,
	m *metrics.Metrics,
) domain.GenerationService {
	return &generationService{
		client:  client,
		counter: counter,
		policy:  policy,
		llmCfg:  llmCfg,
		metrics: m,
	}
}

// Generate checks the client's budget, runs the pipeline for req and counts
// the generation against the budget only when it succeeded.
func (s *generationService) Generate(ctx context.Context, clientKey string, req domain.GenerationRequest) (*domain.GenerationResult, error) {
	start := time.Now()
	kind := string(req.Kind)

	if err := s.counter.Allow(ctx, clientKey); err != nil {
		s.metrics.ObserveGeneration(kind, metrics.OutcomeRateLimited, time.Since(start))
		return nil, err
	}

	result, err := s.generate(ctx, req)
	if err != nil {
		logger.Get().Warn("Generation failed",
			zap.String("kind", kind),
			zap.String("level", string(req.Level)),
			zap.String("language", req.Language),
			zap.Error(err),
		)
		s.metrics.ObserveGeneration(kind, metrics.OutcomeError, time.Since(start))
		return nil, err
	}

	s.counter.Record(ctx, clientKey)
	s.metrics.ObserveGeneration(kind, metrics.OutcomeSuccess, time.Since(start))
	logger.Get().Info("Generation completed",
		zap.String("kind", kind),
		zap.Int("items", result.Items.Len()),
		zap.Bool("regenerated", result.Regenerated),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

func (s *generationService) generate(ctx context.Context, req domain.GenerationRequest) (*domain.GenerationResult, error) {
	params := s.paramsFor(req)

	if req.Kind == domain.KindNotes {
		raw, err := s.client.Complete(ctx, prompt.Build(req), params)
		if err != nil {
			return nil, err
		}
		notes, err := normalizer.NotesFrom(raw)
		if err != nil {
			return nil, err
		}
		return &domain.GenerationResult{Notes: notes}, nil
	}

	items, err := s.attempt(ctx, prompt.Build(req), req, params)
	if err != nil {
		return nil, err
	}
	if !normalizer.AppliesTo(req) || s.policy.Satisfied(items.Flashcards) {
		return &domain.GenerationResult{Items: items}, nil
	}

	// One regeneration only. Its output wins whenever it is usable, even if
	// it still misses the policy.
	logger.Get().Info("Flashcards below expert level, regenerating once",
		zap.Int("items", items.Len()))

	retry, err := s.attempt(ctx, prompt.BuildExpertRetry(req), req, params)
	if err != nil {
		logger.Get().Warn("Expert regeneration failed, returning original flashcards", zap.Error(err))
		s.metrics.Regeneration(metrics.OutcomeFallback)
		return &domain.GenerationResult{Items: items}, nil
	}

	s.metrics.Regeneration(metrics.OutcomeReplaced)
	logger.Get().Info("Expert regeneration replaced original flashcards",
		zap.Int("items", retry.Len()),
		zap.Bool("policy_satisfied", s.policy.Satisfied(retry.Flashcards)),
	)
	return &domain.GenerationResult{Items: retry, Regenerated: true}, nil
}

// attempt is one provider call followed by normalization, parsing and
// validation.
func (s *generationService) attempt(ctx context.Context, text string, req domain.GenerationRequest, params domain.GenerationParams) (*domain.ItemSet, error) {
	raw, err := s.client.Complete(ctx, text, params)
	if err != nil {
		return nil, err
	}
	return normalizer.Process(raw, req.Kind, req.ItemCount)
}

func (s *generationService) paramsFor(req domain.GenerationRequest) domain.GenerationParams {
	return domain.GenerationParams{
		Temperature: s.llmCfg.TemperatureFor(string(req.Level)),
		MaxTokens:   s.llmCfg.MaxTokens,
	}
}
