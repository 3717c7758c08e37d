package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pdswan/wheelhouse/internal/config"
)

// ErrMarketClosed aborts a run before any action when the exchange window
// is shut and action_when_closed is "exit".
var ErrMarketClosed = errors.New("market is closed")

// tradingWindow computes today's actionable window in the exchange's
// timezone, shrunk by the configured delays.
func tradingWindow(hours *config.ExchangeHoursConfig, now time.Time) (open, close time.Time, err error) {
	loc, err := time.LoadLocation(hours.Timezone)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("loading exchange timezone: %w", err)
	}
	local := now.In(loc)

	parse := func(hhmm string) (time.Time, error) {
		t, err := time.ParseInLocation("15:04", hhmm, loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("parsing exchange hours %q: %w", hhmm, err)
		}
		return time.Date(local.Year(), local.Month(), local.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
	}
	open, err = parse(hours.Open)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	close, err = parse(hours.Close)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	open = open.Add(time.Duration(hours.DelayAfterOpen) * time.Second)
	close = close.Add(-time.Duration(hours.DelayBeforeClose) * time.Second)
	return open, close, nil
}

// marketOpen reports whether now falls inside the trading window on a
// weekday.
func marketOpen(hours *config.ExchangeHoursConfig, now time.Time) (bool, time.Time, error) {
	open, close, err := tradingWindow(hours, now)
	if err != nil {
		return false, time.Time{}, err
	}
	local := now.In(open.Location())
	if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false, time.Time{}, nil
	}
	if local.Before(open) {
		return false, open, nil
	}
	if !local.Before(close) {
		return false, time.Time{}, nil
	}
	return true, time.Time{}, nil
}

// gateOnHours applies action_when_closed before the run does anything:
// exit aborts, continue proceeds regardless, wait sleeps until the window
// opens if it opens soon enough.
func gateOnHours(ctx context.Context, hours *config.ExchangeHoursConfig, logger *logrus.Logger, now func() time.Time) error {
	open, opensAt, err := marketOpen(hours, now())
	if err != nil {
		return err
	}
	if open {
		return nil
	}

	switch hours.ActionWhenClosed {
	case "continue":
		logger.Warn("market is closed, continuing anyway")
		return nil
	case "wait":
		if opensAt.IsZero() {
			return fmt.Errorf("%w and will not reopen today", ErrMarketClosed)
		}
		wait := opensAt.Sub(now())
		if max := time.Duration(hours.MaxWaitUntilOpen) * time.Second; max > 0 && wait > max {
			return fmt.Errorf("%w: open is %s away, beyond max_wait_until_open", ErrMarketClosed, wait.Round(time.Second))
		}
		logger.WithField("wait", wait.Round(time.Second).String()).Info("waiting for market open")
		select {
		case <-time.After(wait):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	default: // exit
		return ErrMarketClosed
	}
}
