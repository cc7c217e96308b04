package ai

import (
	"context"
	"fmt"

	"github.com/mealprep/recommender/internal/infrastructure/ai/gemini"
	"github.com/mealprep/recommender/internal/infrastructure/ai/ollama"
	"github.com/mealprep/recommender/internal/infrastructure/ai/openai"
	"github.com/mealprep/recommender/internal/infrastructure/config"
	"github.com/mealprep/recommender/internal/ports/outbound"
	"github.com/mealprep/recommender/pkg/healthcheck"
	"go.uber.org/zap"
)

// Provider is a ready ranking provider plus its cleanup
type Provider struct {
	*ResilientProvider
	close func() error
}

// Close releases the underlying client
func (p *Provider) Close() error {
	if p.close == nil {
		return nil
	}
	return p.close()
}

// NewProvider builds the configured provider wrapped in ResilientProvider
func NewProvider(ctx context.Context, cfg config.AIConfig, health *healthcheck.HealthCheck, observer BreakerObserver, logger *zap.Logger) (*Provider, error) {
	var (
		inner   outbound.RankingProvider
		closeFn func() error
	)

	switch outbound.ProviderType(cfg.Provider) {
	case outbound.ProviderOllama:
		inner = ollama.NewClient(ollama.Config{
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger)
	case outbound.ProviderOpenAI:
		inner = openai.NewClient(openai.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger)
	case outbound.ProviderGemini:
		client, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		inner, closeFn = client, client.Close
	default:
		return nil, fmt.Errorf("unknown ranking provider %q", cfg.Provider)
	}

	if health != nil && cfg.HealthCacheTTL > 0 {
		health.SetCacheTTL(cfg.HealthCacheTTL)
	}

	resilient := NewResilientProvider(inner, ResilienceFromConfig(cfg), health, observer, logger)
	return &Provider{ResilientProvider: resilient, close: closeFn}, nil
}

// ResilienceFromConfig maps the ai config section
func ResilienceFromConfig(cfg config.AIConfig) ResilienceConfig {
	return ResilienceConfig{
		AttemptTimeout: cfg.Timeout,
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxBackoff:     cfg.MaxBackoff,
		RateLimit:      cfg.RateLimit,
		RateBurst:      cfg.RateBurst,
		Breaker: BreakerConfig{
			MaxRequests:         cfg.CircuitBreaker.MaxRequests,
			Interval:            cfg.CircuitBreaker.Interval,
			Timeout:             cfg.CircuitBreaker.Timeout,
			ConsecutiveFailures: cfg.CircuitBreaker.ConsecutiveFailures,
		},
	}
}
