package matching

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"tradeledger/internal/domain"
	"tradeledger/internal/money"
	"tradeledger/internal/pricing"
)

// expireOpenOptions closes option trades whose expiry date is strictly in
// the past and that are still marked open. When a settlement price for the
// underlying is known, each leg settles at its intrinsic value via the
// pricer; otherwise the contracts settle worthless, matching broker OEXP
// records.
func (e *Engine) expireOpenOptions(ctx context.Context, userID string, settlePrices map[string]float64) (int, error) {
	openTrades, err := e.tradeRepo.FindOpenOptionTrades(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch open option trades: %w", err)
	}

	today := midnight(e.now())
	expired := 0

	for _, trade := range openTrades {
		expiry := tradeExpiry(trade)
		if expiry == nil || !midnight(*expiry).Before(today) {
			continue
		}
		if trade.RemainingQty() <= 0 && len(trade.Legs) == 0 {
			continue
		}

		spot, hasSpot := settlePrices[trade.Underlying]

		legs := make([]money.OptionLeg, 0, len(trade.Legs))
		for _, leg := range trade.Legs {
			settle := 0.0
			if hasSpot {
				settle = e.pricer.Price(pricing.Inputs{
					S:    spot,
					K:    leg.Strike,
					T:    0, // at/after expiry the pricer returns intrinsic
					IV:   0,
					Type: leg.Type,
				})
			}
			legs = append(legs, money.OptionLeg{
				OpenPrice:  decimal.NewFromFloat(leg.AvgPrice),
				ClosePrice: decimal.NewFromFloat(settle),
				Qty:        decimal.NewFromFloat(leg.Qty * leg.Side.Sign()),
				Multiplier: decimal.NewFromFloat(100),
			})
		}

		pnl := money.OptionPnL(legs, decimal.NewFromFloat(trade.Fees)).InexactFloat64()
		if trade.RealizedPnL != nil {
			pnl += *trade.RealizedPnL
		}

		closedAt := *expiry
		closePrice := 0.0
		trade.Status = domain.StatusClosed
		trade.ClosedAt = &closedAt
		trade.QtyClosed = trade.QtyOpened
		trade.AvgClosePrice = &closePrice
		trade.RealizedPnL = &pnl
		trade.CloseReason = domain.CloseReasonExpiredAuto

		if err := e.tradeRepo.UpsertTrade(ctx, trade); err != nil {
			return expired, fmt.Errorf("failed to upsert expired trade %s: %w", trade.GroupKey, err)
		}
		e.logger.Info(ctx, "Auto-expired option trade", map[string]interface{}{
			"groupKey": trade.GroupKey, "underlying": trade.Underlying, "pnl": pnl,
		})
		expired++
	}

	return expired, nil
}

func tradeExpiry(trade *domain.Trade) *time.Time {
	if trade.OptionExpiry != nil {
		return trade.OptionExpiry
	}
	if len(trade.Legs) > 0 && !trade.Legs[0].Expiry.IsZero() {
		return &trade.Legs[0].Expiry
	}
	return nil
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
