// Package ai wires ranking providers and the resilience layer around them
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/mealprep/recommender/internal/domain/mealplan"
	"github.com/mealprep/recommender/internal/ports/outbound"
	apperrors "github.com/mealprep/recommender/pkg/errors"
	"github.com/mealprep/recommender/pkg/healthcheck"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("github.com/mealprep/recommender/internal/infrastructure/ai")

var errProviderUnhealthy = errors.New("ranking provider reports unavailable")

// ResilienceConfig tunes ResilientProvider
type ResilienceConfig struct {
	// AttemptTimeout bounds a single call to the provider
	AttemptTimeout time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// RateLimit is calls per second; zero means unlimited
	RateLimit float64
	RateBurst int
	Breaker   BreakerConfig
}

// BreakerConfig tunes the circuit breaker
type BreakerConfig struct {
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
}

// DefaultResilienceConfig returns conservative defaults
func DefaultResilienceConfig() ResilienceConfig {
	return ResilienceConfig{
		AttemptTimeout: 20 * time.Second,
		MaxRetries:     2,
		InitialBackoff: 250 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		RateLimit:      5,
		RateBurst:      5,
		Breaker: BreakerConfig{
			MaxRequests:         1,
			Interval:            time.Minute,
			Timeout:             30 * time.Second,
			ConsecutiveFailures: 5,
		},
	}
}

// BreakerObserver is told about circuit state changes
type BreakerObserver interface {
	CircuitStateChanged(provider, state string)
}

// ResilientProvider decorates a RankingProvider with rate limiting, a
// circuit breaker, bounded exponential retries and per-attempt timeouts.
// It never inspects or alters the ranking itself.
type ResilientProvider struct {
	inner     outbound.RankingProvider
	breaker   *gobreaker.CircuitBreaker[[]outbound.RankedItem]
	limiter   *rate.Limiter
	health    *healthcheck.HealthCheck
	checkName string
	cfg       ResilienceConfig
	logger    *zap.Logger
}

var _ outbound.RankingProvider = (*ResilientProvider)(nil)

// NewResilientProvider wraps inner and registers its health check
func NewResilientProvider(inner outbound.RankingProvider, cfg ResilienceConfig, health *healthcheck.HealthCheck, observer BreakerObserver, logger *zap.Logger) *ResilientProvider {
	namedLogger := logger.Named("resilient-ranking").With(zap.String("provider", inner.Name()))

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 1
	}
	if cfg.Breaker.ConsecutiveFailures == 0 {
		cfg.Breaker.ConsecutiveFailures = DefaultResilienceConfig().Breaker.ConsecutiveFailures
	}

	p := &ResilientProvider{
		inner:     inner,
		limiter:   rate.NewLimiter(limit, cfg.RateBurst),
		health:    health,
		checkName: "ranking_" + inner.Name(),
		cfg:       cfg,
		logger:    namedLogger,
	}

	p.breaker = gobreaker.NewCircuitBreaker[[]outbound.RankedItem](gobreaker.Settings{
		Name:        inner.Name(),
		MaxRequests: cfg.Breaker.MaxRequests,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.Breaker.ConsecutiveFailures
		},
		// rejected requests are the caller's fault, not the provider's
		IsSuccessful: func(err error) bool {
			return err == nil || !retryable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			namedLogger.Warn("Ranking circuit state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			if observer != nil {
				observer.CircuitStateChanged(name, to.String())
			}
			if health != nil {
				health.Invalidate(p.checkName)
			}
		},
	})

	if health != nil {
		health.Register(p.checkName, healthcheck.NewErrorChecker(p.checkName, func(ctx context.Context) error {
			if !inner.IsAvailable(ctx) {
				return errProviderUnhealthy
			}
			return nil
		}))
	}

	return p
}

// Name returns the wrapped provider's name
func (p *ResilientProvider) Name() string {
	return p.inner.Name()
}

// IsAvailable is false while the circuit is open, otherwise the cached
// health of the wrapped provider
func (p *ResilientProvider) IsAvailable(ctx context.Context) bool {
	if p.breaker.State() == gobreaker.StateOpen {
		return false
	}
	if p.health == nil {
		return p.inner.IsAvailable(ctx)
	}
	return p.health.IsHealthy(ctx, p.checkName)
}

// Rank calls the wrapped provider. Exhausted retries, an open circuit and
// rejected requests all surface as COLLABORATOR_UNAVAILABLE.
func (p *ResilientProvider) Rank(ctx context.Context, req outbound.RankRequest) ([]outbound.RankedItem, error) {
	ctx, span := tracer.Start(ctx, "ranking.Rank")
	defer span.End()
	span.SetAttributes(
		attribute.String("provider", p.inner.Name()),
		attribute.String("slot", req.Slot.Key()),
		attribute.Int("candidates", len(req.Candidates)),
	)

	var items []outbound.RankedItem
	attempts := 0
	operation := func() error {
		if err := p.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(fmt.Errorf("rate limiter: %w", err))
		}

		attempts++
		res, err := p.breaker.Execute(func() ([]outbound.RankedItem, error) {
			attemptCtx := ctx
			if p.cfg.AttemptTimeout > 0 {
				var cancel context.CancelFunc
				attemptCtx, cancel = context.WithTimeout(ctx, p.cfg.AttemptTimeout)
				defer cancel()
			}
			return p.inner.Rank(attemptCtx, req)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) ||
				ctx.Err() != nil || !retryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		items = res
		return nil
	}

	notify := func(err error, wait time.Duration) {
		p.logger.Warn("Ranking attempt failed, retrying",
			zap.Int("attempt", attempts),
			zap.Duration("backoff", wait),
			zap.Error(err))
	}

	if err := backoff.RetryNotify(operation, p.policy(ctx), notify); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Int("attempts", attempts))
		if ctx.Err() != nil {
			// the caller's deadline is reported by the caller
			return nil, err
		}
		return nil, p.unavailable(err, attempts)
	}

	span.SetAttributes(attribute.Int("attempts", attempts), attribute.Int("items", len(items)))
	return items, nil
}

func (p *ResilientProvider) policy(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	if p.cfg.InitialBackoff > 0 {
		b.InitialInterval = p.cfg.InitialBackoff
	}
	if p.cfg.MaxBackoff > 0 {
		b.MaxInterval = p.cfg.MaxBackoff
	}
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(max(p.cfg.MaxRetries, 0))), ctx)
}

func (p *ResilientProvider) unavailable(err error, attempts int) error {
	reason := fmt.Sprintf("ranking failed after %d attempt(s)", attempts)
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		reason = "circuit breaker is open"
	case !retryable(err):
		reason = "ranking request rejected"
	}
	p.logger.Warn("Ranking provider unavailable",
		zap.String("reason", reason),
		zap.Int("attempts", attempts),
		zap.Error(err))
	return apperrors.NewCollaboratorUnavailableError(p.inner.Name(), reason,
		fmt.Errorf("%w: %w", mealplan.ErrCollaboratorUnavailable, err)).
		WithMetadata("attempts", attempts)
}

// retryable treats unknown errors as transport failures
func retryable(err error) bool {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable()
	}
	return true
}
