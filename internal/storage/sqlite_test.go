package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdswan/wheelhouse/internal/models"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBeginRunAndEvents(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	meta := RunMeta{
		RunID:      "run-1",
		StartedAt:  time.Now(),
		ConfigPath: "config.yaml",
		Version:    "test",
		Hostname:   "host",
	}
	require.NoError(t, store.BeginRun(ctx, meta))
	// Duplicate run ids are rejected.
	assert.Error(t, store.BeginRun(ctx, meta))

	require.NoError(t, store.RecordEvent(ctx, "run-1", "stage_complete", "SPY", map[string]string{"stage": "write_puts"}))
	require.NoError(t, store.RecordEvent(ctx, "run-1", "run_complete", "", nil))
}

func TestHistoricalBarsUpsert(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	first := []models.Bar{
		{Date: day, Open: 100, High: 101, Low: 99, Close: 100.5, Volume: 1000},
		{Date: day.AddDate(0, 0, 1), Open: 100.5, High: 102, Low: 100, Close: 101, Volume: 1100},
	}
	require.NoError(t, store.RecordHistoricalBars(ctx, "SPY", "1 day", first))

	// Re-recording the same day replaces, never duplicates.
	revised := []models.Bar{{Date: day, Open: 100, High: 103, Low: 99, Close: 102, Volume: 1200}}
	require.NoError(t, store.RecordHistoricalBars(ctx, "SPY", "1 day", revised))

	bars, err := store.HistoricalBars(ctx, "SPY", day)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 102.0, bars[0].Close)
	assert.Equal(t, 101.0, bars[1].Close)

	// Since filter excludes older bars.
	bars, err = store.HistoricalBars(ctx, "SPY", day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, bars, 1)
}

func TestLastTaggedExecution(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	now := time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC)
	executions := []models.Execution{
		{OrderRef: "tg:regime-rebalance band", Symbol: "SPY", Side: models.SideBuy, Shares: 100, Price: 500, Time: now.AddDate(0, 0, -10)},
		{OrderRef: "tg:regime-rebalance flow", Symbol: "TLT", Side: models.SideBuy, Shares: 50, Price: 90, Time: now.AddDate(0, 0, -3)},
		{OrderRef: "tg:write-puts dte=45", Symbol: "SPY", Side: models.SideSell, Shares: 1, Price: 2.5, Time: now.AddDate(0, 0, -1)},
	}
	require.NoError(t, store.RecordExecutions(ctx, "run-1", executions))

	ts, ok, err := store.LastTaggedExecution(ctx, "tg:regime-rebalance", []string{"SPY", "TLT"}, now.AddDate(0, 0, -30))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, now.AddDate(0, 0, -3), ts.UTC())

	// Symbol filter applies.
	_, ok, err = store.LastTaggedExecution(ctx, "tg:regime-rebalance", []string{"QQQ"}, now.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.False(t, ok)

	// Since filter applies.
	_, ok, err = store.LastTaggedExecution(ctx, "tg:regime-rebalance", []string{"SPY", "TLT"}, now.AddDate(0, 0, -2))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOrderIntentAndResultRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	inst := models.OrderInstruction{
		Symbol:     "SPY",
		SecType:    models.SecTypeOption,
		Side:       models.SideSell,
		Quantity:   1,
		LimitPrice: 2.05,
		Algo:       models.AlgoAdaptive,
		TIF:        "day",
		OrderRef:   "tg:write-puts dte=45",
		Strike:     400,
		Expiry:     "20240419",
		Right:      models.RightPut,
	}
	require.NoError(t, store.RecordOrderIntents(ctx, "run-1", false, []models.OrderInstruction{inst}))
	require.NoError(t, store.RecordOrderResult(ctx, "run-1", models.OrderResult{
		Instruction: inst,
		BrokerID:    "42",
		Status:      models.OrderSubmitted,
	}))
}
