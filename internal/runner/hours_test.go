package runner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdswan/wheelhouse/internal/config"
)

func nyHours() *config.ExchangeHoursConfig {
	return &config.ExchangeHoursConfig{
		Timezone:         "America/New_York",
		Open:             "09:30",
		Close:            "16:00",
		ActionWhenClosed: "exit",
	}
}

// ny builds a New York wall-clock instant on a known Monday.
func ny(t *testing.T, hour, min int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return time.Date(2024, 3, 4, hour, min, 0, 0, loc)
}

func TestMarketOpen(t *testing.T) {
	hours := nyHours()

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"mid session", ny(t, 12, 0), true},
		{"at open", ny(t, 9, 30), true},
		{"before open", ny(t, 9, 0), false},
		{"at close", ny(t, 16, 0), false},
		{"after close", ny(t, 18, 0), false},
		{"saturday", ny(t, 12, 0).AddDate(0, 0, 5), false},
		{"sunday", ny(t, 12, 0).AddDate(0, 0, 6), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			open, _, err := marketOpen(hours, tt.now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, open)
		})
	}
}

func TestMarketOpenDelays(t *testing.T) {
	hours := nyHours()
	hours.DelayAfterOpen = 1800   // 09:30 -> 10:00
	hours.DelayBeforeClose = 1800 // 16:00 -> 15:30

	open, _, err := marketOpen(hours, ny(t, 9, 45))
	require.NoError(t, err)
	assert.False(t, open)

	open, _, err = marketOpen(hours, ny(t, 15, 45))
	require.NoError(t, err)
	assert.False(t, open)

	open, _, err = marketOpen(hours, ny(t, 12, 0))
	require.NoError(t, err)
	assert.True(t, open)
}

func TestGateOnHoursExit(t *testing.T) {
	hours := nyHours()
	now := func() time.Time { return ny(t, 8, 0) }

	err := gateOnHours(context.Background(), hours, testLogger(), now)
	assert.ErrorIs(t, err, ErrMarketClosed)
}

func TestGateOnHoursContinue(t *testing.T) {
	hours := nyHours()
	hours.ActionWhenClosed = "continue"
	now := func() time.Time { return ny(t, 8, 0) }

	assert.NoError(t, gateOnHours(context.Background(), hours, testLogger(), now))
}

func TestGateOnHoursWaitRefusesLongWaits(t *testing.T) {
	hours := nyHours()
	hours.ActionWhenClosed = "wait"
	hours.MaxWaitUntilOpen = 60
	now := func() time.Time { return ny(t, 8, 0) }

	err := gateOnHours(context.Background(), hours, testLogger(), now)
	assert.ErrorIs(t, err, ErrMarketClosed)
}

func TestGateOnHoursWaitAfterCloseCannotReopen(t *testing.T) {
	hours := nyHours()
	hours.ActionWhenClosed = "wait"
	now := func() time.Time { return ny(t, 18, 0) }

	err := gateOnHours(context.Background(), hours, testLogger(), now)
	assert.ErrorIs(t, err, ErrMarketClosed)
}

func TestGateOnHoursOpenPassesThrough(t *testing.T) {
	hours := nyHours()
	now := func() time.Time { return ny(t, 12, 0) }

	assert.NoError(t, gateOnHours(context.Background(), hours, testLogger(), now))
}
