package ports

import (
	"context"

	"tradeledger/internal/domain"
)

// ExecutionFilter narrows the execution stream fetched for a match run.
type ExecutionFilter struct {
	Symbols        []string // Restrict to these symbols (empty = all)
	IngestionRunID string   // Restrict to a single import run (empty = all)
}

// ExecutionRepository supplies the engine with normalized executions.
// Implementations must return executions in ascending timestamp order;
// replay order is a correctness invariant of the matcher.
type ExecutionRepository interface {
	// GetExecutions retrieves a user's executions, oldest first.
	GetExecutions(ctx context.Context, userID string, filter ExecutionFilter) ([]*domain.Execution, error)
	// SaveExecutions persists a batch of normalized executions.
	SaveExecutions(ctx context.Context, execs []*domain.Execution) error
}

// TradeRepository persists reconstructed trades.
type TradeRepository interface {
	// UpsertTrade inserts or overwrites a trade keyed by (user_id, group_key).
	// The upsert is idempotent: the same key always converges to one row.
	UpsertTrade(ctx context.Context, trade *domain.Trade) error
	// DeleteTradesForSymbols removes all trades for the given symbols ahead
	// of a rebuild and returns the number of rows deleted.
	DeleteTradesForSymbols(ctx context.Context, userID string, symbols []string) (int64, error)
	// FindTrades retrieves all trades for a user, ordered by opened_at.
	FindTrades(ctx context.Context, userID string) ([]*domain.Trade, error)
	// FindOpenOptionTrades retrieves a user's option trades still marked open.
	FindOpenOptionTrades(ctx context.Context, userID string) ([]*domain.Trade, error)
}
