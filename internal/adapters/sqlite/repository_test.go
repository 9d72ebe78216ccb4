package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tradeledger/internal/domain"
	"tradeledger/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}
func (m *mockLogger) Fatal(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// setupTestDB creates a temporary database for testing
func setupTestDB(t *testing.T) (*Repository, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "tradeledger-test-*")
	require.NoError(t, err)

	dbPath := filepath.Join(tmpDir, "test.db")
	repo, err := NewRepository(Config{
		DBPath: dbPath,
		Logger: &mockLogger{},
	})
	require.NoError(t, err)

	cleanup := func() {
		repo.Close()
		os.RemoveAll(tmpDir)
	}

	return repo, cleanup
}

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestRepository_SaveAndGetExecutions(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	expiry := ts("2024-06-21T00:00:00Z")
	execs := []*domain.Execution{
		{
			ID: "e2", UserID: "u1", Timestamp: ts("2024-05-01T15:00:00Z"),
			Symbol: "AAPL", Side: domain.SideSell, Quantity: 100, Price: 190.5,
			Fees: 1.0, Currency: "USD", Venue: "schwab",
			Instrument: domain.InstrumentEquity,
		},
		{
			ID: "e1", UserID: "u1", Timestamp: ts("2024-05-01T14:00:00Z"),
			Symbol: "AAPL", Side: domain.SideBuy, Quantity: 100, Price: 189.0,
			Fees: 1.0, Currency: "USD", Venue: "schwab", OrderID: "o1",
			Instrument: domain.InstrumentEquity,
		},
		{
			ID: "e3", UserID: "u1", Timestamp: ts("2024-05-02T14:00:00Z"),
			Symbol: "AAPL 240621C00200000", Side: domain.SideBuy, Quantity: 2, Price: 3.5,
			Currency: "USD", Instrument: domain.InstrumentOption,
			Option: &domain.OptionContract{
				Underlying: "AAPL", Expiry: expiry, Strike: 200, Type: domain.Call,
			},
		},
		{
			ID: "e4", UserID: "u2", Timestamp: ts("2024-05-01T14:00:00Z"),
			Symbol: "TSLA", Side: domain.SideBuy, Quantity: 10, Price: 180.0,
			Currency: "USD", Instrument: domain.InstrumentEquity,
		},
	}
	require.NoError(t, repo.SaveExecutions(ctx, execs))

	t.Run("orders by timestamp and scopes to user", func(t *testing.T) {
		got, err := repo.GetExecutions(ctx, "u1", ports.ExecutionFilter{})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "e1", got[0].ID)
		assert.Equal(t, "e2", got[1].ID)
		assert.Equal(t, "e3", got[2].ID)
		assert.Equal(t, "o1", got[0].OrderID)
	})

	t.Run("round-trips option contract fields", func(t *testing.T) {
		got, err := repo.GetExecutions(ctx, "u1", ports.ExecutionFilter{})
		require.NoError(t, err)
		opt := got[2].Option
		require.NotNil(t, opt)
		assert.Equal(t, "AAPL", opt.Underlying)
		assert.Equal(t, 200.0, opt.Strike)
		assert.Equal(t, domain.Call, opt.Type)
		assert.True(t, opt.Expiry.Equal(expiry))
	})

	t.Run("symbol filter matches option underlying", func(t *testing.T) {
		got, err := repo.GetExecutions(ctx, "u1", ports.ExecutionFilter{Symbols: []string{"AAPL"}})
		require.NoError(t, err)
		// Equity fills by symbol plus the option fill by underlying.
		require.Len(t, got, 3)
	})

	t.Run("reimport overwrites by ID", func(t *testing.T) {
		require.NoError(t, repo.SaveExecutions(ctx, []*domain.Execution{{
			ID: "e1", UserID: "u1", Timestamp: ts("2024-05-01T14:00:00Z"),
			Symbol: "AAPL", Side: domain.SideBuy, Quantity: 100, Price: 188.5,
			Currency: "USD", Instrument: domain.InstrumentEquity,
		}}))
		got, err := repo.GetExecutions(ctx, "u1", ports.ExecutionFilter{})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, 188.5, got[0].Price)
	})
}

func TestRepository_UpsertTrade(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	opened := ts("2024-05-01T14:00:00Z")
	trade := &domain.Trade{
		UserID: "u1", GroupKey: "AAPL-e1", Symbol: "AAPL",
		Instrument: domain.InstrumentEquity, Status: domain.StatusOpen,
		OpenedAt: opened, QtyOpened: 100, AvgOpenPrice: 189.0,
		Fees: 1.0, Currency: "USD", Venue: "schwab",
	}
	require.NoError(t, repo.UpsertTrade(ctx, trade))

	trades, err := repo.FindTrades(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, domain.StatusOpen, trades[0].Status)
	assert.Nil(t, trades[0].RealizedPnL)

	// Second upsert with the same group key closes the trade in place.
	closedAt := ts("2024-05-01T15:00:00Z")
	pnl := 148.0
	closePrice := 190.5
	trade.Status = domain.StatusClosed
	trade.ClosedAt = &closedAt
	trade.QtyClosed = 100
	trade.AvgClosePrice = &closePrice
	trade.RealizedPnL = &pnl
	trade.CloseReason = domain.CloseReasonFill
	require.NoError(t, repo.UpsertTrade(ctx, trade))

	trades, err = repo.FindTrades(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, domain.StatusClosed, trades[0].Status)
	require.NotNil(t, trades[0].RealizedPnL)
	assert.Equal(t, pnl, *trades[0].RealizedPnL)
	assert.Equal(t, domain.CloseReasonFill, trades[0].CloseReason)
}

func TestRepository_TradeLegsRoundTrip(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	expiry := ts("2024-06-21T00:00:00Z")
	trade := &domain.Trade{
		UserID: "u1", GroupKey: "AAPL-e3", Symbol: "AAPL",
		Instrument: domain.InstrumentOption, Status: domain.StatusOpen,
		OpenedAt: ts("2024-05-02T14:00:00Z"), QtyOpened: 2, AvgOpenPrice: 3.5,
		Currency: "USD", Underlying: "AAPL", OptionExpiry: &expiry,
		Legs: []domain.TradeLeg{
			{Side: domain.SideBuy, Type: domain.Call, Strike: 200, Expiry: expiry, Qty: 2, AvgPrice: 3.5},
			{Side: domain.SideSell, Type: domain.Call, Strike: 210, Expiry: expiry, Qty: 2, AvgPrice: 1.2},
		},
	}
	require.NoError(t, repo.UpsertTrade(ctx, trade))

	open, err := repo.FindOpenOptionTrades(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, open, 1)
	require.Len(t, open[0].Legs, 2)
	assert.Equal(t, 200.0, open[0].Legs[0].Strike)
	assert.Equal(t, domain.SideSell, open[0].Legs[1].Side)
	assert.Equal(t, "AAPL", open[0].Underlying)
	require.NotNil(t, open[0].OptionExpiry)
	assert.True(t, open[0].OptionExpiry.Equal(expiry))
}

func TestRepository_DeleteTradesForSymbols(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	for _, tr := range []*domain.Trade{
		{UserID: "u1", GroupKey: "AAPL-a", Symbol: "AAPL", Instrument: domain.InstrumentEquity,
			Status: domain.StatusOpen, OpenedAt: ts("2024-05-01T14:00:00Z"), QtyOpened: 1, AvgOpenPrice: 10},
		{UserID: "u1", GroupKey: "TSLA-b", Symbol: "TSLA", Instrument: domain.InstrumentEquity,
			Status: domain.StatusOpen, OpenedAt: ts("2024-05-01T14:00:00Z"), QtyOpened: 1, AvgOpenPrice: 10},
		{UserID: "u2", GroupKey: "AAPL-c", Symbol: "AAPL", Instrument: domain.InstrumentEquity,
			Status: domain.StatusOpen, OpenedAt: ts("2024-05-01T14:00:00Z"), QtyOpened: 1, AvgOpenPrice: 10},
	} {
		require.NoError(t, repo.UpsertTrade(ctx, tr))
	}

	deleted, err := repo.DeleteTradesForSymbols(ctx, "u1", []string{"AAPL"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	// u1 keeps TSLA, u2 keeps AAPL.
	u1, err := repo.FindTrades(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, u1, 1)
	assert.Equal(t, "TSLA", u1[0].Symbol)

	u2, err := repo.FindTrades(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, u2, 1)

	deleted, err = repo.DeleteTradesForSymbols(ctx, "u1", nil)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}
