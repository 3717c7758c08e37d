// Package storage persists run history: what each run saw, proposed,
// submitted, and heard back. The core reads back only the historical bars
// cache and the rebalance cooldown lookup.
package storage

import (
	"context"
	"time"

	"github.com/pdswan/wheelhouse/internal/models"
)

// RunMeta identifies one run in the journal.
type RunMeta struct {
	RunID      string
	StartedAt  time.Time
	ConfigPath string
	DryRun     bool
	Version    string
	Hostname   string
}

// Interface is the persistence contract for a run.
type Interface interface {
	// BeginRun opens the run's journal entry.
	BeginRun(ctx context.Context, meta RunMeta) error
	// RecordEvent appends a free-form event. Payload is marshaled to JSON.
	RecordEvent(ctx context.Context, runID, eventType, symbol string, payload any) error
	// RecordAccountSnapshot stores the account summary collected this run.
	RecordAccountSnapshot(ctx context.Context, runID string, snapshot *models.AccountSnapshot) error
	// RecordOrderIntents stores the sequenced instructions before submission.
	RecordOrderIntents(ctx context.Context, runID string, dryRun bool, instructions []models.OrderInstruction) error
	// RecordOrderResult stores one submission outcome.
	RecordOrderResult(ctx context.Context, runID string, result models.OrderResult) error
	// RecordExecutions stores broker fills observed during the run.
	RecordExecutions(ctx context.Context, runID string, executions []models.Execution) error
	// RecordHistoricalBars upserts daily bars, keyed on symbol, bar time,
	// and timeframe.
	RecordHistoricalBars(ctx context.Context, symbol, timeframe string, bars []models.Bar) error
	// HistoricalBars returns cached bars for a symbol at or after since,
	// oldest first.
	HistoricalBars(ctx context.Context, symbol string, since time.Time) ([]models.Bar, error)
	// LastTaggedExecution returns the most recent execution time at or
	// after since whose order ref starts with prefix, restricted to the
	// given symbols. ok is false when none exists.
	LastTaggedExecution(ctx context.Context, prefix string, symbols []string, since time.Time) (time.Time, bool, error)
	// Close releases the underlying store.
	Close() error
}
