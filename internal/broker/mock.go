package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pdswan/wheelhouse/internal/models"
)

// MockClient is a configurable in-memory Client for tests.
type MockClient struct {
	mu sync.Mutex

	Snapshot      *models.AccountSnapshot
	SnapshotErr   error
	PositionsList []models.Position
	PositionsErr  error
	Quotes        map[string]*models.Quote
	QuoteErrs     map[string]error
	Bars          map[string][]models.Bar
	BarsErrs      map[string]error
	Orders        []OpenOrder
	Fills         []models.Execution

	SubmitErr    error
	SubmitErrFor map[string]error // keyed by symbol

	Submitted []models.OrderInstruction
	Cancelled []string

	nextOrderID int
}

// Ensure MockClient implements Client at compile time.
var _ Client = (*MockClient)(nil)

// NewMockClient returns an empty mock.
func NewMockClient() *MockClient {
	return &MockClient{
		Quotes:       make(map[string]*models.Quote),
		QuoteErrs:    make(map[string]error),
		Bars:         make(map[string][]models.Bar),
		BarsErrs:     make(map[string]error),
		SubmitErrFor: make(map[string]error),
	}
}

// AccountSnapshot returns the configured snapshot.
func (m *MockClient) AccountSnapshot(ctx context.Context) (*models.AccountSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SnapshotErr != nil {
		return nil, m.SnapshotErr
	}
	if m.Snapshot == nil {
		return nil, fmt.Errorf("mock: no snapshot configured")
	}
	snap := *m.Snapshot
	return &snap, nil
}

// Positions returns the configured positions.
func (m *MockClient) Positions(ctx context.Context) ([]models.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PositionsErr != nil {
		return nil, m.PositionsErr
	}
	out := make([]models.Position, len(m.PositionsList))
	copy(out, m.PositionsList)
	return out, nil
}

// Quote returns the configured quote or a MarketDataError.
func (m *MockClient) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.QuoteErrs[symbol]; err != nil {
		return nil, &MarketDataError{Symbol: symbol, Err: err}
	}
	q, ok := m.Quotes[symbol]
	if !ok {
		return nil, &MarketDataError{Symbol: symbol, Err: fmt.Errorf("no quote configured")}
	}
	quote := *q
	return &quote, nil
}

// HistoricalBars returns the configured bars.
func (m *MockClient) HistoricalBars(ctx context.Context, symbol string, days int) ([]models.Bar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.BarsErrs[symbol]; err != nil {
		return nil, &MarketDataError{Symbol: symbol, Err: err}
	}
	bars := m.Bars[symbol]
	if days > 0 && len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	out := make([]models.Bar, len(bars))
	copy(out, bars)
	return out, nil
}

// OpenOrders returns the configured resting orders.
func (m *MockClient) OpenOrders(ctx context.Context) ([]OpenOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]OpenOrder, len(m.Orders))
	copy(out, m.Orders)
	return out, nil
}

// CancelOrder records the cancellation.
func (m *MockClient) CancelOrder(ctx context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Cancelled = append(m.Cancelled, orderID)
	return nil
}

// SubmitOrder records the instruction and returns a synthetic broker id.
// Single-leg option instructions with an incomplete contract fail the same
// way a real gateway's qualification step would.
func (m *MockClient) SubmitOrder(ctx context.Context, instruction models.OrderInstruction) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if instruction.SecType == models.SecTypeOption && (instruction.Strike <= 0 || instruction.Expiry == "" || !instruction.Right.Valid()) {
		return "", &ContractQualificationError{Symbol: instruction.Symbol, Reason: "incomplete option contract"}
	}
	if err := m.SubmitErrFor[instruction.Symbol]; err != nil {
		return "", err
	}
	if m.SubmitErr != nil {
		return "", m.SubmitErr
	}
	m.Submitted = append(m.Submitted, instruction)
	m.nextOrderID++
	return fmt.Sprintf("mock-%d", m.nextOrderID), nil
}

// Executions returns configured fills at or after since.
func (m *MockClient) Executions(ctx context.Context, since time.Time) ([]models.Execution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Execution
	for _, f := range m.Fills {
		if !f.Time.Before(since) {
			out = append(out, f)
		}
	}
	return out, nil
}
