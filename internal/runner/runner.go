// Package runner wires one batch run end to end: gate on exchange hours,
// collect account state, evaluate the strategy rules, sequence and submit
// the resulting orders, and journal the outcome.
package runner

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/pdswan/wheelhouse/internal/broker"
	"github.com/pdswan/wheelhouse/internal/config"
	"github.com/pdswan/wheelhouse/internal/models"
	"github.com/pdswan/wheelhouse/internal/orders"
	"github.com/pdswan/wheelhouse/internal/pipeline"
	"github.com/pdswan/wheelhouse/internal/storage"
	"github.com/pdswan/wheelhouse/internal/strategy"
)

// Version is stamped into the run journal; overridden at build time.
var Version = "dev"

const barTimeframe = "1 day"

// RunOnce executes a single run and returns its report. The report is
// always returned, also on failure, so callers can see how far the run got.
func RunOnce(ctx context.Context, cfg *config.Config, client broker.Client, store storage.Interface, logger *logrus.Logger, dryRun bool) (*models.RunReport, error) {
	report := &models.RunReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		DryRun:    dryRun,
	}
	log := logger.WithFields(logrus.Fields{"run_id": report.RunID, "dry_run": dryRun})

	hostname, _ := os.Hostname()
	if err := store.BeginRun(ctx, storage.RunMeta{
		RunID:     report.RunID,
		StartedAt: report.StartedAt,
		DryRun:    dryRun,
		Version:   Version,
		Hostname:  hostname,
	}); err != nil {
		return report, err
	}

	if err := gateOnHours(ctx, &cfg.ExchangeHours, logger, time.Now); err != nil {
		report.Fatal = err.Error()
		_ = store.RecordEvent(ctx, report.RunID, "run_aborted", "", map[string]string{"reason": err.Error()})
		if errors.Is(err, ErrMarketClosed) {
			log.WithError(err).Info("exiting without action")
		}
		return report, err
	}

	if *cfg.Account.CancelOrders && !dryRun {
		if err := cancelOpenOrders(ctx, client, log); err != nil {
			log.WithError(err).Warn("failed to cancel open orders")
		}
	}

	graph, err := pipeline.FromRunConfig(cfg.Run)
	if err != nil {
		report.Fatal = err.Error()
		return report, err
	}

	r := &run{
		cfg:    cfg,
		client: client,
		store:  store,
		log:    log,
		report: report,
		dryRun: dryRun,
	}

	pr := pipeline.NewRunner(graph, logger)
	pr.Bind(pipeline.StageCollectState, r.collectState)
	pr.Bind(pipeline.StageWritePuts, r.evaluate("write_puts", strategy.WritePuts))
	pr.Bind(pipeline.StageWriteCalls, r.evaluate("write_calls", strategy.WriteCalls))
	pr.Bind(pipeline.StageRollPositions, r.evaluate("roll_positions", strategy.Roll))
	pr.Bind(pipeline.StageClosePositions, r.evaluate("close_positions", strategy.Close))
	pr.Bind(pipeline.StageRegimeRebalance, r.evaluate("regime_rebalance", strategy.RegimeRebalance))
	pr.Bind(pipeline.StageVIXHedge, r.evaluate("vix_hedge", strategy.VIXHedge))
	pr.Bind(pipeline.StageCashManagement, r.evaluate("cash_management", strategy.CashManagement))
	pr.Bind(pipeline.StageRecordOutcome, r.recordOutcome)

	execErr := pr.Execute(ctx, report)
	_ = store.RecordEvent(ctx, report.RunID, "run_complete", "", map[string]any{
		"proposed":  len(report.Proposed),
		"dropped":   len(report.Dropped),
		"submitted": len(report.Submitted),
		"fatal":     report.Fatal,
	})
	return report, execErr
}

// run carries the state shared between the bound stage functions.
type run struct {
	cfg    *config.Config
	client broker.Client
	store  storage.Interface
	log    *logrus.Entry
	report *models.RunReport
	dryRun bool

	inputs *strategy.Inputs
}

// collectState fetches everything the evaluators need in one pass. The
// account snapshot is fatal when missing; a single symbol's market data is
// not.
func (r *run) collectState(ctx context.Context) error {
	snapshot, err := r.client.AccountSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("fetching account snapshot: %w", err)
	}
	positions, err := r.client.Positions(ctx)
	if err != nil {
		return fmt.Errorf("fetching positions: %w", err)
	}

	in := &strategy.Inputs{
		Snapshot:  snapshot,
		Positions: make(map[string][]models.Position),
		Quotes:    make(map[string]*models.Quote),
		Bars:      make(map[string][]models.Bar),
		Now:       time.Now().UTC(),
	}
	for _, p := range positions {
		in.Positions[p.Symbol] = append(in.Positions[p.Symbol], p)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, symbol := range r.quoteSymbols() {
		symbol := symbol
		g.Go(func() error {
			q, err := r.client.Quote(gctx, symbol)
			if err != nil {
				mu.Lock()
				r.report.AddError(symbol, "collect_state", err)
				mu.Unlock()
				return nil
			}
			mu.Lock()
			in.Quotes[symbol] = q
			mu.Unlock()
			return nil
		})
	}
	barDays := r.barLookbackDays()
	for _, symbol := range r.barSymbols() {
		symbol := symbol
		g.Go(func() error {
			bars, err := r.client.HistoricalBars(gctx, symbol, barDays)
			if err != nil {
				mu.Lock()
				r.report.AddError(symbol, "collect_state", err)
				mu.Unlock()
				return nil
			}
			mu.Lock()
			in.Bars[symbol] = bars
			mu.Unlock()
			if err := r.store.RecordHistoricalBars(gctx, symbol, barTimeframe, bars); err != nil {
				r.log.WithError(err).WithField("symbol", symbol).Warn("failed to cache bars")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	lookback := time.Duration(r.cfg.RegimeRebalance.OrderHistoryLookbackDays) * 24 * time.Hour
	since := in.Now.Add(-lookback)
	if execs, err := r.client.Executions(ctx, since); err != nil {
		r.log.WithError(err).Warn("failed to fetch recent executions")
	} else {
		in.RecentExecutions = execs
	}
	// The journal remembers rebalances from before the broker's execution
	// window; surface the latest one for the cooldown check.
	if rc := &r.cfg.RegimeRebalance; rc.Enabled && len(rc.Symbols) > 0 {
		if ts, ok, err := r.store.LastTaggedExecution(ctx, strategy.TagRegimeRebalance, rc.Symbols, since); err == nil && ok {
			in.RecentExecutions = append(in.RecentExecutions, models.Execution{
				OrderRef: strategy.TagRegimeRebalance,
				Symbol:   rc.Symbols[0],
				Time:     ts,
			})
		}
	}

	if err := r.store.RecordAccountSnapshot(ctx, r.report.RunID, snapshot); err != nil {
		r.log.WithError(err).Warn("failed to record account snapshot")
	}

	r.inputs = in
	return nil
}

// evaluate adapts a strategy evaluator into a pipeline stage.
func (r *run) evaluate(rule string, fn strategy.Evaluator) pipeline.StageFunc {
	return func(ctx context.Context) error {
		if r.inputs == nil {
			return fmt.Errorf("%s ran before state collection", rule)
		}
		actions, errs := fn(r.inputs, r.cfg)
		r.report.Proposed = append(r.report.Proposed, actions...)
		r.report.Errors = append(r.report.Errors, errs...)
		r.log.WithFields(logrus.Fields{
			"rule":    rule,
			"actions": len(actions),
			"errors":  len(errs),
		}).Debug("evaluated rule")
		return nil
	}
}

// recordOutcome sequences the proposals, submits the orders (unless dry
// run), and journals everything.
func (r *run) recordOutcome(ctx context.Context) error {
	seq := orders.NewSequencer(r.cfg)
	instructions, dropped := seq.Sequence(r.report.Proposed, r.inputs.Quotes)
	r.report.Dropped = append(r.report.Dropped, dropped...)

	if err := r.store.RecordOrderIntents(ctx, r.report.RunID, r.dryRun, instructions); err != nil {
		r.log.WithError(err).Warn("failed to record order intents")
	}

	for _, inst := range instructions {
		result := models.OrderResult{Instruction: inst}
		if r.dryRun {
			result.Status = models.OrderSkipped
		} else {
			brokerID, err := r.client.SubmitOrder(ctx, inst)
			result.BrokerID = brokerID
			switch {
			case err == nil:
				result.Status = models.OrderSubmitted
			default:
				result.Error = err.Error()
				result.Status = models.OrderRejected
				var subErr *broker.OrderSubmissionError
				if errors.As(err, &subErr) && subErr.Timeout {
					result.Status = models.OrderTimedOut
				}
			}
		}
		r.report.Submitted = append(r.report.Submitted, result)
		if err := r.store.RecordOrderResult(ctx, r.report.RunID, result); err != nil {
			r.log.WithError(err).Warn("failed to record order result")
		}
	}

	if !r.dryRun {
		if execs, err := r.client.Executions(ctx, r.report.StartedAt); err == nil && len(execs) > 0 {
			if err := r.store.RecordExecutions(ctx, r.report.RunID, execs); err != nil {
				r.log.WithError(err).Warn("failed to record executions")
			}
		}
	}
	return nil
}

// quoteSymbols lists every symbol whose quote the run needs.
func (r *run) quoteSymbols() []string {
	seen := map[string]bool{}
	var out []string
	add := func(symbol string) {
		if symbol != "" && !seen[symbol] {
			seen[symbol] = true
			out = append(out, symbol)
		}
	}
	for _, symbol := range r.cfg.Symbols.Order {
		add(symbol)
	}
	if r.cfg.CashManagement.Enabled {
		add(r.cfg.CashManagement.CashFund)
	}
	if r.cfg.VIXCallHedge.Enabled {
		add(strategy.VIXSymbol)
		add(strategy.VIXMOSymbol)
	}
	return out
}

// barSymbols lists the symbols needing price history.
func (r *run) barSymbols() []string {
	seen := map[string]bool{}
	var out []string
	for _, symbol := range r.cfg.Symbols.Order {
		if !seen[symbol] {
			seen[symbol] = true
			out = append(out, symbol)
		}
	}
	for _, symbol := range r.cfg.RegimeRebalance.Symbols {
		if !seen[symbol] {
			seen[symbol] = true
			out = append(out, symbol)
		}
	}
	return out
}

// barLookbackDays covers both the stddev window and the regime lookback.
func (r *run) barLookbackDays() int {
	days := r.cfg.Constants.DailyStdDevWindow + 1
	if r.cfg.RegimeRebalance.Enabled {
		days = int(math.Max(float64(days), float64(r.cfg.RegimeRebalance.LookbackDays)))
	}
	return days
}

func cancelOpenOrders(ctx context.Context, client broker.Client, log *logrus.Entry) error {
	open, err := client.OpenOrders(ctx)
	if err != nil {
		return err
	}
	for _, o := range open {
		if err := client.CancelOrder(ctx, o.ID); err != nil {
			log.WithError(err).WithField("order_id", o.ID).Warn("failed to cancel order")
			continue
		}
		log.WithFields(logrus.Fields{"order_id": o.ID, "symbol": o.Symbol}).Info("cancelled open order")
	}
	return nil
}
