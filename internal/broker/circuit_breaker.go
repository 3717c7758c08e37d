package broker

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/pdswan/wheelhouse/internal/models"
)

// CircuitBreakerClient wraps a Client with circuit breaker protection so a
// flapping broker session fails fast instead of stalling the run.
type CircuitBreakerClient struct {
	client  Client
	breaker *gobreaker.CircuitBreaker
}

// exec is a generic helper for circuit breaker wrapper methods
func execCircuitBreaker[T any](
	breaker *gobreaker.CircuitBreaker,
	client Client,
	fn func(Client) (T, error),
) (T, error) {
	var zero T
	res, err := breaker.Execute(func() (interface{}, error) { return fn(client) })
	if err != nil {
		return zero, err
	}
	if res == nil {
		return zero, nil
	}
	v, ok := res.(T)
	if !ok {
		return zero, errors.New("circuit breaker: type assertion failed")
	}
	return v, nil
}

// CircuitBreakerSettings configures circuit breaker behavior
type CircuitBreakerSettings struct {
	MaxRequests  uint32        // Max requests when half-open
	Interval     time.Duration // Reset counts interval
	Timeout      time.Duration // Open circuit duration
	MinRequests  uint32        // Min requests before tripping
	FailureRatio float64       // Failure ratio threshold
}

// NewCircuitBreakerClient creates a CircuitBreakerClient with sensible defaults
func NewCircuitBreakerClient(client Client, logger *logrus.Logger) *CircuitBreakerClient {
	return NewCircuitBreakerClientWithSettings(client, logger, CircuitBreakerSettings{
		MaxRequests:  3,                // Allow 3 requests when half-open
		Interval:     60 * time.Second, // Reset counts every minute
		Timeout:      30 * time.Second, // Open circuit for 30 seconds
		MinRequests:  5,                // Minimum requests before tripping
		FailureRatio: 0.6,              // Trip if 60% failure rate
	})
}

// NewCircuitBreakerClientWithSettings creates a CircuitBreakerClient with custom settings
func NewCircuitBreakerClientWithSettings(client Client, logger *logrus.Logger, settings CircuitBreakerSettings) *CircuitBreakerClient {
	gbSettings := gobreaker.Settings{
		Name:        "BrokerCircuitBreaker",
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 || counts.Requests < settings.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= settings.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if logger != nil {
				logger.WithFields(logrus.Fields{
					"breaker": name,
					"from":    from.String(),
					"to":      to.String(),
				}).Warn("circuit breaker state changed")
			}
		},
	}

	return &CircuitBreakerClient{
		client:  client,
		breaker: gobreaker.NewCircuitBreaker(gbSettings),
	}
}

// Ensure CircuitBreakerClient implements Client at compile time.
var _ Client = (*CircuitBreakerClient)(nil)

// AccountSnapshot wraps the underlying client call with circuit breaker
func (c *CircuitBreakerClient) AccountSnapshot(ctx context.Context) (*models.AccountSnapshot, error) {
	return execCircuitBreaker(c.breaker, c.client, func(cl Client) (*models.AccountSnapshot, error) {
		return cl.AccountSnapshot(ctx)
	})
}

// Positions wraps the underlying client call with circuit breaker
func (c *CircuitBreakerClient) Positions(ctx context.Context) ([]models.Position, error) {
	return execCircuitBreaker(c.breaker, c.client, func(cl Client) ([]models.Position, error) {
		return cl.Positions(ctx)
	})
}

// Quote wraps the underlying client call with circuit breaker
func (c *CircuitBreakerClient) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	return execCircuitBreaker(c.breaker, c.client, func(cl Client) (*models.Quote, error) {
		return cl.Quote(ctx, symbol)
	})
}

// HistoricalBars wraps the underlying client call with circuit breaker
func (c *CircuitBreakerClient) HistoricalBars(ctx context.Context, symbol string, days int) ([]models.Bar, error) {
	return execCircuitBreaker(c.breaker, c.client, func(cl Client) ([]models.Bar, error) {
		return cl.HistoricalBars(ctx, symbol, days)
	})
}

// OpenOrders wraps the underlying client call with circuit breaker
func (c *CircuitBreakerClient) OpenOrders(ctx context.Context) ([]OpenOrder, error) {
	return execCircuitBreaker(c.breaker, c.client, func(cl Client) ([]OpenOrder, error) {
		return cl.OpenOrders(ctx)
	})
}

// CancelOrder wraps the underlying client call with circuit breaker
func (c *CircuitBreakerClient) CancelOrder(ctx context.Context, orderID string) error {
	_, err := execCircuitBreaker(c.breaker, c.client, func(cl Client) (struct{}, error) {
		return struct{}{}, cl.CancelOrder(ctx, orderID)
	})
	return err
}

// SubmitOrder wraps the underlying client call with circuit breaker
func (c *CircuitBreakerClient) SubmitOrder(ctx context.Context, instruction models.OrderInstruction) (string, error) {
	return execCircuitBreaker(c.breaker, c.client, func(cl Client) (string, error) {
		return cl.SubmitOrder(ctx, instruction)
	})
}

// Executions wraps the underlying client call with circuit breaker
func (c *CircuitBreakerClient) Executions(ctx context.Context, since time.Time) ([]models.Execution, error) {
	return execCircuitBreaker(c.breaker, c.client, func(cl Client) ([]models.Execution, error) {
		return cl.Executions(ctx, since)
	})
}
