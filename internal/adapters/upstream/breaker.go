package upstream

import (
	"context"
	"errors"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/okian/marquee/pkg/logger"
	"github.com/okian/marquee/pkg/metrics"
)

// newBreaker opens after breakerThreshold consecutive failures and probes
// again with a single request after breakerTimeout.
func (c *Client) newBreaker() *gobreaker.CircuitBreaker[[]byte] {
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        c.provider,
		MaxRequests: 1,
		Timeout:     c.breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= c.breakerThreshold
		},
		// Client errors and caller cancellation say nothing about the
		// provider's health.
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			var se *StatusError
			if errors.As(err, &se) {
				return !se.Temporary()
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn(context.Background(), "circuit breaker state change",
				logger.String("from", from.String()),
				logger.String("to", to.String()))
			metrics.SetCircuitBreakerState(name, breakerStateValue(to))
			metrics.RecordCircuitBreakerTransition(name, from.String(), to.String())
		},
	})
}

// breakerStateValue maps a breaker state to its gauge value.
func breakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
