// Package matching reconstructs round-trip trades from a chronological
// stream of normalized executions. Each matching key, (symbol, account)
// for linear instruments and (underlying, expiry) for options, is replayed as
// an independent single-threaded state machine; keys are matched
// concurrently by a bounded worker pool.
package matching

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"tradeledger/internal/domain"
	"tradeledger/internal/ports"
	"tradeledger/internal/pricing"
)

// OptionPricer is the slice of the pricing service the engine consumes: it
// values option legs at settlement.
type OptionPricer interface {
	Price(in pricing.Inputs) float64
}

// Config holds construction parameters for the matching engine.
type Config struct {
	Logger    ports.Logger
	ExecRepo  ports.ExecutionRepository
	TradeRepo ports.TradeRepository
	Pricer    OptionPricer
	// Workers bounds the number of matching keys processed concurrently.
	Workers int
	// WindowGap is the maximum spacing between consecutive option
	// executions that still share a window. Defaults to 60s.
	WindowGap time.Duration
	// Now injects the clock for expiry checks. Defaults to time.Now.
	Now func() time.Time
}

// Engine is the position-matching engine.
type Engine struct {
	logger    ports.Logger
	execRepo  ports.ExecutionRepository
	tradeRepo ports.TradeRepository
	pricer    OptionPricer
	workers   int
	windowGap time.Duration
	now       func() time.Time
}

// MatchOptions scopes a match run.
type MatchOptions struct {
	// Symbols restricts the rebuild to these symbols (empty = everything).
	Symbols []string
	// IngestionRunID restricts the execution stream to one import run.
	IngestionRunID string
	// SettlePrices optionally maps underlying symbol to its settlement
	// price; expired option legs are then valued at intrinsic instead of
	// settling worthless.
	SettlePrices map[string]float64
}

// Report summarizes a batch match so partial progress stays observable even
// when the run fails.
type Report struct {
	ExecutionsSeen    int
	ExecutionsSkipped int
	TradesCreated     int // closed trades written
	TradesUpdated     int // open trades written
	TradesDeleted     int64
	TradesExpired     int
}

// NewEngine creates a matching engine.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Logger == nil || cfg.ExecRepo == nil || cfg.TradeRepo == nil || cfg.Pricer == nil {
		return nil, fmt.Errorf("missing required dependencies for matching engine")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.WindowGap <= 0 {
		cfg.WindowGap = 60 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{
		logger:    cfg.Logger,
		execRepo:  cfg.ExecRepo,
		tradeRepo: cfg.TradeRepo,
		pricer:    cfg.Pricer,
		workers:   cfg.Workers,
		windowGap: cfg.WindowGap,
		now:       cfg.Now,
	}, nil
}

// matchTask is one independently replayable matching key.
type matchTask struct {
	instrument domain.InstrumentType
	execs      []*domain.Execution
}

// MatchUser rebuilds all trades for a user's execution stream. Existing
// trades for the affected symbols are deleted first, so re-running over the
// same executions converges to an identical trade set.
func (e *Engine) MatchUser(ctx context.Context, userID string, opts MatchOptions) (Report, error) {
	var report Report

	execs, err := e.execRepo.GetExecutions(ctx, userID, ports.ExecutionFilter{
		Symbols:        opts.Symbols,
		IngestionRunID: opts.IngestionRunID,
	})
	if err != nil {
		return report, fmt.Errorf("failed to fetch executions for user %s: %w", userID, err)
	}
	report.ExecutionsSeen = len(execs)

	valid := make([]*domain.Execution, 0, len(execs))
	for _, exec := range execs {
		if err := exec.Validate(); err != nil {
			report.ExecutionsSkipped++
			e.logger.Warn(ctx, "Skipping malformed execution", map[string]interface{}{
				"execID": exec.ID, "symbol": exec.Symbol, "reason": err.Error(),
			})
			continue
		}
		if exec.Instrument == domain.InstrumentOption && !exec.HasOptionContract() {
			report.ExecutionsSkipped++
			e.logger.Warn(ctx, "Skipping option execution without underlying/expiry", map[string]interface{}{
				"execID": exec.ID, "symbol": exec.Symbol,
			})
			continue
		}
		valid = append(valid, exec)
	}

	// Rebuild semantics: drop whatever was previously matched for the
	// affected symbols before replaying.
	affected := opts.Symbols
	if len(affected) == 0 {
		affected = distinctSymbols(valid)
	}
	if len(affected) > 0 {
		deleted, err := e.tradeRepo.DeleteTradesForSymbols(ctx, userID, affected)
		if err != nil {
			return report, fmt.Errorf("failed to delete trades before rebuild: %w", err)
		}
		report.TradesDeleted = deleted
	}

	if len(valid) == 0 {
		e.logger.Info(ctx, "No valid executions to match", map[string]interface{}{"userID": userID})
		return report, nil
	}

	trades := e.runTasks(ctx, e.partition(valid))

	// Deterministic persistence order regardless of worker scheduling.
	sort.Slice(trades, func(i, j int) bool { return trades[i].GroupKey < trades[j].GroupKey })

	for _, trade := range trades {
		if trade.QtyOpened <= 0 || trade.AvgOpenPrice < 0 {
			e.logger.Warn(ctx, "Skipping invalid trade", map[string]interface{}{
				"groupKey": trade.GroupKey, "qtyOpened": trade.QtyOpened,
			})
			continue
		}
		if err := e.tradeRepo.UpsertTrade(ctx, trade); err != nil {
			return report, fmt.Errorf("failed to upsert trade %s: %w", trade.GroupKey, err)
		}
		if trade.IsClosed() {
			report.TradesCreated++
		} else {
			report.TradesUpdated++
		}
	}

	expired, err := e.expireOpenOptions(ctx, userID, opts.SettlePrices)
	if err != nil {
		return report, err
	}
	report.TradesExpired = expired

	e.logger.Info(ctx, "Match run complete", map[string]interface{}{
		"userID":  userID,
		"seen":    report.ExecutionsSeen,
		"skipped": report.ExecutionsSkipped,
		"created": report.TradesCreated,
		"updated": report.TradesUpdated,
		"expired": report.TradesExpired,
	})
	return report, nil
}

// partition splits the validated stream into independent matching tasks.
func (e *Engine) partition(execs []*domain.Execution) []matchTask {
	linear := make(map[string][]*domain.Execution)
	optionGroups := make(map[string][]*domain.Execution)

	for _, exec := range execs {
		switch exec.Instrument {
		case domain.InstrumentEquity, domain.InstrumentFutures:
			key := string(exec.Instrument) + "\x00" + exec.Symbol + "\x00" + exec.BrokerAccountID
			linear[key] = append(linear[key], exec)
		case domain.InstrumentOption:
			key := exec.Option.Underlying + "\x00" + exec.Option.Expiry.Format("2006-01-02")
			optionGroups[key] = append(optionGroups[key], exec)
		}
	}

	tasks := make([]matchTask, 0, len(linear)+len(optionGroups))
	for _, group := range linear {
		sortByTimestamp(group)
		tasks = append(tasks, matchTask{instrument: group[0].Instrument, execs: group})
	}
	for _, group := range optionGroups {
		sortByTimestamp(group)
		tasks = append(tasks, matchTask{instrument: domain.InstrumentOption, execs: group})
	}
	return tasks
}

// runTasks fans tasks out to the worker pool and collects the produced
// trades. Workers share no mutable state.
func (e *Engine) runTasks(ctx context.Context, tasks []matchTask) []*domain.Trade {
	taskCh := make(chan matchTask)
	var mu sync.Mutex
	var trades []*domain.Trade
	var wg sync.WaitGroup

	workers := e.workers
	if workers > len(tasks) {
		workers = len(tasks)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range taskCh {
				var out []*domain.Trade
				if task.instrument == domain.InstrumentOption {
					out = e.matchOptionGroup(ctx, task.execs)
				} else {
					out = e.matchLinear(ctx, task.instrument, task.execs)
				}
				mu.Lock()
				trades = append(trades, out...)
				mu.Unlock()
			}
		}()
	}

	for _, t := range tasks {
		taskCh <- t
	}
	close(taskCh)
	wg.Wait()
	return trades
}

func distinctSymbols(execs []*domain.Execution) []string {
	seen := make(map[string]struct{})
	var symbols []string
	for _, exec := range execs {
		symbol := exec.Symbol
		if exec.Instrument == domain.InstrumentOption && exec.Option != nil {
			symbol = exec.Option.Underlying
		}
		if _, ok := seen[symbol]; !ok {
			seen[symbol] = struct{}{}
			symbols = append(symbols, symbol)
		}
	}
	sort.Strings(symbols)
	return symbols
}

func sortByTimestamp(execs []*domain.Execution) {
	sort.SliceStable(execs, func(i, j int) bool {
		return execs[i].Timestamp.Before(execs[j].Timestamp)
	})
}

func groupKey(symbol, firstExecID string) string {
	return symbol + "-" + firstExecID
}
