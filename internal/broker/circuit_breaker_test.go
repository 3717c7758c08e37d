package broker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdswan/wheelhouse/internal/models"
)

func TestCircuitBreakerPassesThrough(t *testing.T) {
	mock := NewMockClient()
	mock.Snapshot = &models.AccountSnapshot{NetLiquidation: 50000, BuyingPower: 50000}
	mock.Quotes["SPY"] = &models.Quote{Symbol: "SPY", Bid: 99, Ask: 101, Last: 100, Close: 98}

	client := NewCircuitBreakerClient(mock, logrus.New())

	snap, err := client.AccountSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 50000.0, snap.NetLiquidation)

	q, err := client.Quote(context.Background(), "SPY")
	require.NoError(t, err)
	assert.Equal(t, "SPY", q.Symbol)
}

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	mock := NewMockClient()
	mock.SnapshotErr = errors.New("session lost")

	client := NewCircuitBreakerClientWithSettings(mock, logrus.New(), CircuitBreakerSettings{
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Minute,
		MinRequests:  3,
		FailureRatio: 0.5,
	})

	for i := 0; i < 3; i++ {
		_, err := client.AccountSnapshot(context.Background())
		require.Error(t, err)
	}

	// The breaker is open now; the underlying client must not be reached.
	mock.SnapshotErr = nil
	mock.Snapshot = &models.AccountSnapshot{NetLiquidation: 1}
	_, err := client.AccountSnapshot(context.Background())
	assert.Error(t, err)
}

func TestCircuitBreakerPreservesTypedErrors(t *testing.T) {
	mock := NewMockClient()
	mock.QuoteErrs["QQQ"] = errors.New("feed down")

	client := NewCircuitBreakerClient(mock, logrus.New())
	_, err := client.Quote(context.Background(), "QQQ")
	require.Error(t, err)

	var mde *MarketDataError
	assert.True(t, errors.As(err, &mde))
	assert.Equal(t, "QQQ", mde.Symbol)
}

func TestOrderSubmissionErrorFormatting(t *testing.T) {
	rejected := &OrderSubmissionError{Symbol: "SPY", OrderRef: "tg:write-puts", Err: errors.New("margin")}
	assert.Contains(t, rejected.Error(), "rejected")

	timedOut := &OrderSubmissionError{Symbol: "SPY", OrderRef: "tg:write-puts", Timeout: true, Err: errors.New("no ack")}
	assert.Contains(t, timedOut.Error(), "timed out")
}
