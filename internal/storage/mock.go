package storage

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pdswan/wheelhouse/internal/models"
)

// MockStore is an in-memory Interface for tests and storage-disabled runs.
type MockStore struct {
	mu sync.Mutex

	Runs       []RunMeta
	Events     []MockEvent
	Snapshots  []models.AccountSnapshot
	Intents    []models.OrderInstruction
	Results    []models.OrderResult
	Executions []models.Execution
	Bars       map[string][]models.Bar

	// Err, when set, is returned from every mutating call.
	Err error
}

// MockEvent is one recorded event.
type MockEvent struct {
	RunID   string
	Type    string
	Symbol  string
	Payload any
}

var _ Interface = (*MockStore)(nil)

// NewMockStore returns an empty in-memory store.
func NewMockStore() *MockStore {
	return &MockStore{Bars: make(map[string][]models.Bar)}
}

func (m *MockStore) BeginRun(_ context.Context, meta RunMeta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Runs = append(m.Runs, meta)
	return nil
}

func (m *MockStore) RecordEvent(_ context.Context, runID, eventType, symbol string, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Events = append(m.Events, MockEvent{RunID: runID, Type: eventType, Symbol: symbol, Payload: payload})
	return nil
}

func (m *MockStore) RecordAccountSnapshot(_ context.Context, _ string, snapshot *models.AccountSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Snapshots = append(m.Snapshots, *snapshot)
	return nil
}

func (m *MockStore) RecordOrderIntents(_ context.Context, _ string, _ bool, instructions []models.OrderInstruction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Intents = append(m.Intents, instructions...)
	return nil
}

func (m *MockStore) RecordOrderResult(_ context.Context, _ string, result models.OrderResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Results = append(m.Results, result)
	return nil
}

func (m *MockStore) RecordExecutions(_ context.Context, _ string, executions []models.Execution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Executions = append(m.Executions, executions...)
	return nil
}

func (m *MockStore) RecordHistoricalBars(_ context.Context, symbol, _ string, bars []models.Bar) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Bars[symbol] = append(m.Bars[symbol], bars...)
	return nil
}

func (m *MockStore) HistoricalBars(_ context.Context, symbol string, since time.Time) ([]models.Bar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Bar
	for _, b := range m.Bars[symbol] {
		if !b.Date.Before(since) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *MockStore) LastTaggedExecution(_ context.Context, prefix string, symbols []string, since time.Time) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var last time.Time
	for _, ex := range m.Executions {
		if ex.Time.Before(since) || !strings.HasPrefix(ex.OrderRef, prefix) {
			continue
		}
		for _, sym := range symbols {
			if sym == ex.Symbol && ex.Time.After(last) {
				last = ex.Time
			}
		}
	}
	return last, !last.IsZero(), nil
}

func (m *MockStore) Close() error { return nil }
