package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tradeledger/config"
	"tradeledger/internal/analytics"
	"tradeledger/internal/matching"
	"tradeledger/internal/ports"
	"tradeledger/internal/pricing"
)

// MatchService orchestrates a trade reconstruction run: it drives the
// matching engine over a user's executions, then summarizes the resulting
// trade set.
type MatchService struct {
	cfg       *config.Config
	logger    ports.Logger
	engine    *matching.Engine
	pricer    *pricing.Service
	tradeRepo ports.TradeRepository
}

// NewMatchService creates a new application service instance.
func NewMatchService(
	cfg *config.Config,
	logger ports.Logger,
	engine *matching.Engine,
	pricer *pricing.Service,
	tradeRepo ports.TradeRepository,
) (*MatchService, error) {

	// Validate dependencies
	if cfg == nil || logger == nil || engine == nil || pricer == nil || tradeRepo == nil {
		return nil, fmt.Errorf("missing required dependencies for MatchService")
	}

	return &MatchService{
		cfg:       cfg,
		logger:    logger,
		engine:    engine,
		pricer:    pricer,
		tradeRepo: tradeRepo,
	}, nil
}

// Run matches a single user's execution stream and logs a performance
// summary of the reconstructed trades. It honors SIGINT/SIGTERM via context
// cancellation.
func (s *MatchService) Run(ctx context.Context, userID string, opts matching.MatchOptions) (matching.Report, error) {
	s.logger.Info(ctx, "Starting match run", map[string]interface{}{"userID": userID})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			s.logger.Info(ctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
			cancel()
		case <-ctx.Done():
		}
	}()

	report, err := s.engine.MatchUser(ctx, userID, opts)
	if err != nil {
		s.logger.Error(ctx, err, "Match run failed", map[string]interface{}{"userID": userID})
		return report, fmt.Errorf("match run for user %s failed: %w", userID, err)
	}

	if err := s.logSummary(ctx, userID); err != nil {
		// Summary is informational; the match itself succeeded.
		s.logger.Warn(ctx, "Failed to summarize trades", map[string]interface{}{
			"userID": userID, "reason": err.Error(),
		})
	}

	return report, nil
}

// logSummary computes and logs performance metrics over the user's trades.
func (s *MatchService) logSummary(ctx context.Context, userID string) error {
	trades, err := s.tradeRepo.FindTrades(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to fetch trades for summary: %w", err)
	}

	metrics := analytics.AnalyzePerformance(trades)
	s.logger.Info(ctx, "Trade summary", map[string]interface{}{
		"userID":       userID,
		"totalTrades":  metrics.TotalTrades,
		"openTrades":   metrics.OpenTrades,
		"closedTrades": metrics.ClosedTrades,
		"winRate":      fmt.Sprintf("%.2f", metrics.WinRate),
		"totalProfit":  fmt.Sprintf("%.2f", metrics.TotalProfit),
		"totalFees":    fmt.Sprintf("%.2f", metrics.TotalFees),
		"profitFactor": fmt.Sprintf("%.2f", metrics.ProfitFactor),
		"expectancy":   fmt.Sprintf("%.2f", metrics.Expectancy),
	})
	return nil
}
