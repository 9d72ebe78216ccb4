package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tradeledger/internal/domain"
	"tradeledger/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements the ports.ExecutionRepository and ports.TradeRepository
// interfaces using SQLite.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/tradeledger.db" // Default path
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000") // WAL mode for better concurrency
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// Set connection pool settings (important for SQLite)
	db.SetMaxOpenConns(1) // SQLite handles concurrency internally, but Go driver benefits from limiting connections
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	repo := &Repository{db: db, logger: cfg.Logger}

	// Initialize schema (consider moving to a separate migration tool/step)
	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "SQLite database ready", map[string]interface{}{"path": dbPath})

	return repo, nil
}

// initializeSchema creates tables if they don't exist.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS executions_normalized (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		timestamp TIMESTAMP NOT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		quantity REAL NOT NULL,
		price REAL NOT NULL,
		fees REAL NOT NULL DEFAULT 0,
		currency TEXT NOT NULL DEFAULT 'USD',
		venue TEXT NOT NULL DEFAULT '',
		order_id TEXT NOT NULL DEFAULT '',
		exec_id TEXT NOT NULL DEFAULT '',
		instrument_type TEXT NOT NULL,
		multiplier REAL NOT NULL DEFAULT 1,
		broker_account_id TEXT NOT NULL DEFAULT '',
		ingestion_run_id TEXT NOT NULL DEFAULT '',
		underlying TEXT NULL,
		option_expiry TIMESTAMP NULL,
		option_strike REAL NULL,
		option_type TEXT NULL
	);

	CREATE TABLE IF NOT EXISTS trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		group_key TEXT NOT NULL,
		symbol TEXT NOT NULL,
		instrument_type TEXT NOT NULL,
		status TEXT NOT NULL,
		opened_at TIMESTAMP NOT NULL,
		closed_at TIMESTAMP NULL,
		qty_opened REAL NOT NULL,
		qty_closed REAL NOT NULL DEFAULT 0,
		avg_open_price REAL NOT NULL,
		avg_close_price REAL NULL,
		realized_pnl REAL NULL,
		fees REAL NOT NULL DEFAULT 0,
		currency TEXT NOT NULL DEFAULT 'USD',
		venue TEXT NOT NULL DEFAULT '',
		close_reason TEXT NULL,
		ingestion_run_id TEXT NOT NULL DEFAULT '',
		legs TEXT NULL,
		underlying TEXT NULL,
		option_expiry TIMESTAMP NULL,
		UNIQUE (user_id, group_key)
	);

	CREATE INDEX IF NOT EXISTS idx_executions_user_ts ON executions_normalized (user_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_trades_user_symbol ON trades (user_id, symbol);
	CREATE INDEX IF NOT EXISTS idx_trades_user_status ON trades (user_id, status, instrument_type);
	`
	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// --- ExecutionRepository Implementation ---

// SaveExecutions persists a batch of normalized executions inside one
// transaction. Re-importing the same IDs overwrites in place.
func (r *Repository) SaveExecutions(ctx context.Context, execs []*domain.Execution) error {
	const query = `
	INSERT OR REPLACE INTO executions_normalized
		(id, user_id, timestamp, symbol, side, quantity, price, fees, currency, venue,
		 order_id, exec_id, instrument_type, multiplier, broker_account_id, ingestion_run_id,
		 underlying, option_expiry, option_strike, option_type)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare execution insert: %w", err)
	}
	defer stmt.Close()

	for _, exec := range execs {
		var underlying, optType sql.NullString
		var expiry sql.NullTime
		var strike sql.NullFloat64
		if exec.Option != nil {
			underlying = sql.NullString{String: exec.Option.Underlying, Valid: true}
			optType = sql.NullString{String: string(exec.Option.Type), Valid: true}
			expiry = sql.NullTime{Time: exec.Option.Expiry, Valid: !exec.Option.Expiry.IsZero()}
			strike = sql.NullFloat64{Float64: exec.Option.Strike, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			exec.ID, exec.UserID, exec.Timestamp, exec.Symbol, string(exec.Side),
			exec.Quantity, exec.Price, exec.Fees, exec.Currency, exec.Venue,
			exec.OrderID, exec.ExecID, string(exec.Instrument), exec.Multiplier,
			exec.BrokerAccountID, exec.IngestionRunID,
			underlying, expiry, strike, optType,
		); err != nil {
			return fmt.Errorf("failed to insert execution %s: %w", exec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit executions: %w", err)
	}
	r.logger.Debug(ctx, "Executions saved", map[string]interface{}{"count": len(execs)})
	return nil
}

// GetExecutions retrieves a user's executions in ascending timestamp order.
// A symbol filter also matches option executions by underlying.
func (r *Repository) GetExecutions(ctx context.Context, userID string, filter ports.ExecutionFilter) ([]*domain.Execution, error) {
	query := `
	SELECT id, user_id, timestamp, symbol, side, quantity, price, fees, currency, venue,
	       order_id, exec_id, instrument_type, multiplier, broker_account_id, ingestion_run_id,
	       underlying, option_expiry, option_strike, option_type
	FROM executions_normalized
	WHERE user_id = ?`
	args := []interface{}{userID}

	if len(filter.Symbols) > 0 {
		ph := placeholders(len(filter.Symbols))
		query += fmt.Sprintf(" AND (symbol IN (%s) OR underlying IN (%s))", ph, ph)
		for i := 0; i < 2; i++ {
			for _, s := range filter.Symbols {
				args = append(args, s)
			}
		}
	}
	if filter.IngestionRunID != "" {
		query += " AND ingestion_run_id = ?"
		args = append(args, filter.IngestionRunID)
	}
	query += " ORDER BY timestamp ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions for user %s: %w", userID, err)
	}
	defer rows.Close()

	execs := make([]*domain.Execution, 0)
	for rows.Next() {
		exec, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}
		execs = append(execs, exec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating execution rows: %w", err)
	}
	return execs, nil
}

// --- TradeRepository Implementation ---

// UpsertTrade inserts or overwrites a trade keyed by (user_id, group_key).
func (r *Repository) UpsertTrade(ctx context.Context, trade *domain.Trade) error {
	const query = `
	INSERT INTO trades
		(user_id, group_key, symbol, instrument_type, status, opened_at, closed_at,
		 qty_opened, qty_closed, avg_open_price, avg_close_price, realized_pnl, fees,
		 currency, venue, close_reason, ingestion_run_id, legs, underlying, option_expiry)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (user_id, group_key) DO UPDATE SET
		symbol = excluded.symbol,
		instrument_type = excluded.instrument_type,
		status = excluded.status,
		opened_at = excluded.opened_at,
		closed_at = excluded.closed_at,
		qty_opened = excluded.qty_opened,
		qty_closed = excluded.qty_closed,
		avg_open_price = excluded.avg_open_price,
		avg_close_price = excluded.avg_close_price,
		realized_pnl = excluded.realized_pnl,
		fees = excluded.fees,
		currency = excluded.currency,
		venue = excluded.venue,
		close_reason = excluded.close_reason,
		ingestion_run_id = excluded.ingestion_run_id,
		legs = excluded.legs,
		underlying = excluded.underlying,
		option_expiry = excluded.option_expiry`

	var legsJSON sql.NullString
	if len(trade.Legs) > 0 {
		b, err := json.Marshal(trade.Legs)
		if err != nil {
			return fmt.Errorf("failed to marshal legs for trade %s: %w", trade.GroupKey, err)
		}
		legsJSON = sql.NullString{String: string(b), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		trade.UserID, trade.GroupKey, trade.Symbol, string(trade.Instrument), string(trade.Status),
		trade.OpenedAt, nullTime(trade.ClosedAt),
		trade.QtyOpened, trade.QtyClosed, trade.AvgOpenPrice,
		nullFloat(trade.AvgClosePrice), nullFloat(trade.RealizedPnL), trade.Fees,
		trade.Currency, trade.Venue, nullString(string(trade.CloseReason)),
		trade.IngestionRunID, legsJSON, nullString(trade.Underlying), nullTime(trade.OptionExpiry),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert trade %s: %w", trade.GroupKey, err)
	}
	r.logger.Debug(ctx, "Trade upserted", map[string]interface{}{
		"groupKey": trade.GroupKey, "status": trade.Status,
	})
	return nil
}

// DeleteTradesForSymbols removes all trades for the given symbols ahead of a
// rebuild and returns the number of rows deleted.
func (r *Repository) DeleteTradesForSymbols(ctx context.Context, userID string, symbols []string) (int64, error) {
	if len(symbols) == 0 {
		return 0, nil
	}

	query := fmt.Sprintf(
		"DELETE FROM trades WHERE user_id = ? AND symbol IN (%s)",
		placeholders(len(symbols)))
	args := make([]interface{}, 0, len(symbols)+1)
	args = append(args, userID)
	for _, s := range symbols {
		args = append(args, s)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete trades for user %s: %w", userID, err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get delete count: %w", err)
	}
	r.logger.Debug(ctx, "Trades deleted before rebuild", map[string]interface{}{
		"userID": userID, "count": count,
	})
	return count, nil
}

// FindTrades retrieves all trades for a user, ordered by open time.
func (r *Repository) FindTrades(ctx context.Context, userID string) ([]*domain.Trade, error) {
	return r.queryTrades(ctx,
		selectTradeColumns+" FROM trades WHERE user_id = ? ORDER BY opened_at ASC, group_key ASC",
		userID)
}

// FindOpenOptionTrades retrieves a user's option trades still marked open.
func (r *Repository) FindOpenOptionTrades(ctx context.Context, userID string) ([]*domain.Trade, error) {
	return r.queryTrades(ctx,
		selectTradeColumns+" FROM trades WHERE user_id = ? AND status = ? AND instrument_type = ? ORDER BY opened_at ASC, group_key ASC",
		userID, string(domain.StatusOpen), string(domain.InstrumentOption))
}

const selectTradeColumns = `
	SELECT id, user_id, group_key, symbol, instrument_type, status, opened_at, closed_at,
	       qty_opened, qty_closed, avg_open_price, avg_close_price, realized_pnl, fees,
	       currency, venue, close_reason, ingestion_run_id, legs, underlying, option_expiry`

func (r *Repository) queryTrades(ctx context.Context, query string, args ...interface{}) ([]*domain.Trade, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	trades := make([]*domain.Trade, 0)
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, trade)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade rows: %w", err)
	}
	return trades, nil
}

// --- Helper Scan Functions ---

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanExecution(s scanner) (*domain.Execution, error) {
	e := &domain.Execution{}
	var side, instrument string
	var underlying, optType sql.NullString
	var expiry sql.NullTime
	var strike sql.NullFloat64

	err := s.Scan(
		&e.ID, &e.UserID, &e.Timestamp, &e.Symbol, &side, &e.Quantity, &e.Price,
		&e.Fees, &e.Currency, &e.Venue, &e.OrderID, &e.ExecID, &instrument,
		&e.Multiplier, &e.BrokerAccountID, &e.IngestionRunID,
		&underlying, &expiry, &strike, &optType)
	if err != nil {
		return nil, err
	}
	e.Side = domain.Side(side)
	e.Instrument = domain.InstrumentType(instrument)
	if underlying.Valid {
		e.Option = &domain.OptionContract{
			Underlying: underlying.String,
			Strike:     strike.Float64,
			Type:       domain.OptionType(optType.String),
		}
		if expiry.Valid {
			e.Option.Expiry = expiry.Time
		}
	}
	return e, nil
}

func scanTrade(s scanner) (*domain.Trade, error) {
	t := &domain.Trade{}
	var instrument, status string
	var closedAt, optionExpiry sql.NullTime
	var avgClose, realizedPnL sql.NullFloat64
	var closeReason, legsJSON, underlying sql.NullString

	err := s.Scan(
		&t.ID, &t.UserID, &t.GroupKey, &t.Symbol, &instrument, &status,
		&t.OpenedAt, &closedAt, &t.QtyOpened, &t.QtyClosed, &t.AvgOpenPrice,
		&avgClose, &realizedPnL, &t.Fees, &t.Currency, &t.Venue,
		&closeReason, &t.IngestionRunID, &legsJSON, &underlying, &optionExpiry)
	if err != nil {
		return nil, err
	}
	t.Instrument = domain.InstrumentType(instrument)
	t.Status = domain.TradeStatus(status)
	if closedAt.Valid {
		t.ClosedAt = &closedAt.Time
	}
	if optionExpiry.Valid {
		t.OptionExpiry = &optionExpiry.Time
	}
	if avgClose.Valid {
		t.AvgClosePrice = &avgClose.Float64
	}
	if realizedPnL.Valid {
		t.RealizedPnL = &realizedPnL.Float64
	}
	if closeReason.Valid {
		t.CloseReason = domain.CloseReason(closeReason.String)
	}
	if underlying.Valid {
		t.Underlying = underlying.String
	}
	if legsJSON.Valid && legsJSON.String != "" {
		if err := json.Unmarshal([]byte(legsJSON.String), &t.Legs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal trade legs: %w", err)
		}
	}
	return t, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
