package providers

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"jobscraper/internal/errkind"
	"jobscraper/internal/model"
)

// BreakerAdapter wraps an Adapter with a circuit breaker so a provider
// in sustained failure trips open and fails fast with a retryable error
// instead of hammering a downed third party (spec section 7).
type BreakerAdapter struct {
	inner   Adapter
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// WrapWithBreaker builds a BreakerAdapter for inner, tripping once more
// than 5 consecutive failures occur and allowing 3 trial requests after a 30s
// cooldown, matching the sustained-failure shape used elsewhere in the
// retrieved corpus for third-party adapters.
func WrapWithBreaker(inner Adapter, logger *zap.Logger) *BreakerAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	name := string(inner.Name())
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("provider circuit breaker state change",
				zap.String("provider", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	}
	return &BreakerAdapter{inner: inner, breaker: gobreaker.NewCircuitBreaker(settings), logger: logger}
}

func (b *BreakerAdapter) Name() model.Provider { return b.inner.Name() }

func (b *BreakerAdapter) HasCredentials() bool { return b.inner.HasCredentials() }

func (b *BreakerAdapter) ScrapeSite(ctx context.Context, site model.Site, skipUrls map[string]bool) (ScrapePayload, error) {
	result, err := b.breaker.Execute(func() (any, error) {
		return b.inner.ScrapeSite(ctx, site, skipUrls)
	})
	return breakerResult(result, err)
}

func (b *BreakerAdapter) FetchGreenhouseListing(ctx context.Context, site model.Site) (GreenhouseListing, error) {
	result, err := b.breaker.Execute(func() (any, error) {
		return b.inner.FetchGreenhouseListing(ctx, site)
	})
	if err != nil {
		return GreenhouseListing{}, classifyBreakerErr(err)
	}
	return result.(GreenhouseListing), nil
}

func (b *BreakerAdapter) ScrapeGreenhouseJobs(ctx context.Context, urls []string, sourceURL, idempotencyKey string) (ScrapePayload, error) {
	result, err := b.breaker.Execute(func() (any, error) {
		return b.inner.ScrapeGreenhouseJobs(ctx, urls, sourceURL, idempotencyKey)
	})
	return breakerResult(result, err)
}

func breakerResult(result any, err error) (ScrapePayload, error) {
	if err != nil {
		return ScrapePayload{}, classifyBreakerErr(err)
	}
	return result.(ScrapePayload), nil
}

// classifyBreakerErr surfaces gobreaker's own open-circuit error as a
// retryable transient error rather than letting it escape unclassified.
func classifyBreakerErr(err error) error {
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return errkind.New(errkind.Transient, err)
	}
	return err
}
