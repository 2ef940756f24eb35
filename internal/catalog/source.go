package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"

	"venue-recommender/internal/common/config"
	"venue-recommender/internal/common/logger"
	"venue-recommender/internal/models"
)

var (
	ErrUnsupportedKind = errors.New("UNSUPPORTED_ITEM_KIND")
	ErrInvalidPayload  = errors.New("INVALID_CATALOG_PAYLOAD")
	ErrSourceOpen      = errors.New("CATALOG_SOURCE_OPEN")
)

// Source is the external catalog. Implementations may fail or time out; the
// refresher tolerates both.
type Source interface {
	Name() string
	FetchItems(ctx context.Context, kind models.ItemKind) ([]models.Item, error)
}

// BreakerSource guards a Source with a circuit breaker and a per-call timeout.
type BreakerSource struct {
	next    Source
	cb      *gobreaker.CircuitBreaker[[]models.Item]
	timeout time.Duration
}

func NewBreakerSource(next Source, cfg config.CircuitBreakerConfig, timeout time.Duration, log logger.Logger) *BreakerSource {
	failures := cfg.ConsecutiveFailures
	if failures == 0 {
		failures = 3
	}
	name := "catalog-" + next.Name()
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    time.Duration(cfg.Interval) * time.Millisecond,
		Timeout:     time.Duration(cfg.Timeout) * time.Millisecond,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Catalog circuit breaker state changed", map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
	}
	return &BreakerSource{
		next:    next,
		cb:      gobreaker.NewCircuitBreaker[[]models.Item](settings),
		timeout: timeout,
	}
}

func (b *BreakerSource) Name() string { return b.next.Name() }

func (b *BreakerSource) FetchItems(ctx context.Context, kind models.ItemKind) ([]models.Item, error) {
	items, err := b.cb.Execute(func() ([]models.Item, error) {
		callCtx := ctx
		if b.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, b.timeout)
			defer cancel()
		}
		return b.next.FetchItems(callCtx, kind)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceOpen, b.cb.Name(), err)
	}
	return items, err
}

// State exposes the breaker state for readiness checks.
func (b *BreakerSource) State() gobreaker.State {
	return b.cb.State()
}
