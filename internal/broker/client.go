// Package broker defines the brokerage capability interface the runner
// depends on, its error taxonomy, and a circuit-breaker wrapper.
package broker

import (
	"context"
	"time"

	"github.com/pdswan/wheelhouse/internal/models"
)

// OpenOrder is a resting order reported by the broker.
type OpenOrder struct {
	ID       string
	Symbol   string
	OrderRef string
}

// Client is the capability set the runner needs from a brokerage. The
// session is assumed connected; lifecycle management lives outside this
// interface.
type Client interface {
	// Account state
	AccountSnapshot(ctx context.Context) (*models.AccountSnapshot, error)
	Positions(ctx context.Context) ([]models.Position, error)

	// Market data
	Quote(ctx context.Context, symbol string) (*models.Quote, error)
	HistoricalBars(ctx context.Context, symbol string, days int) ([]models.Bar, error)

	// Orders
	OpenOrders(ctx context.Context) ([]OpenOrder, error)
	CancelOrder(ctx context.Context, orderID string) error
	SubmitOrder(ctx context.Context, instruction models.OrderInstruction) (string, error)

	// Fills
	Executions(ctx context.Context, since time.Time) ([]models.Execution, error)
}
