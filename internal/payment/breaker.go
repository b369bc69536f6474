package payment

import (
	"context"
	"errors"
	"time"

	"storefront/internal/model"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// breakerGateway trips after consecutive gateway failures and fails fast
// until the open period has elapsed.
type breakerGateway struct {
	next   Gateway
	create *gobreaker.CircuitBreaker[*Session]
	get    *gobreaker.CircuitBreaker[*SessionDetails]
	logger zerolog.Logger
}

// NewBreakerGateway wraps next with circuit breakers on both calls.
func NewBreakerGateway(next Gateway, failures uint32, openFor time.Duration, logger zerolog.Logger) Gateway {
	logger = logger.With().Str("component", "gateway-breaker").Logger()

	settings := func(name string) gobreaker.Settings {
		return gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Timeout:     openFor,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			// Caller cancellations and per-request rejections say nothing
			// about gateway health.
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled) || clientError(err)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn().
					Str("breaker", name).
					Str("from", from.String()).
					Str("to", to.String()).
					Msg("payment gateway breaker state changed")
			},
		}
	}

	return &breakerGateway{
		next:   next,
		create: gobreaker.NewCircuitBreaker[*Session](settings("gateway-create")),
		get:    gobreaker.NewCircuitBreaker[*SessionDetails](settings("gateway-retrieve")),
		logger: logger,
	}
}

func (b *breakerGateway) CreateSession(ctx context.Context, params CreateSessionParams) (*Session, error) {
	s, err := b.create.Execute(func() (*Session, error) {
		return b.next.CreateSession(ctx, params)
	})
	return s, b.mapErr(err)
}

func (b *breakerGateway) RetrieveSession(ctx context.Context, sessionID string) (*SessionDetails, error) {
	d, err := b.get.Execute(func() (*SessionDetails, error) {
		return b.next.RetrieveSession(ctx, sessionID)
	})
	return d, b.mapErr(err)
}

func (b *breakerGateway) mapErr(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return model.ErrGateway.Wrap(err)
	}
	return err
}
