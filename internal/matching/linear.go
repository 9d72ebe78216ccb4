package matching

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"tradeledger/internal/domain"
	"tradeledger/internal/money"
)

// matchLinear replays one (symbol, account) execution stream through the
// FIFO state machine shared by equities and futures. Futures differ only by
// the contract multiplier applied to P&L.
//
// States: flat -> open(direction) -> {open(size updated), closed+flat,
// closed+reopened(opposite direction)}.
func (e *Engine) matchLinear(ctx context.Context, instrument domain.InstrumentType, execs []*domain.Execution) []*domain.Trade {
	var trades []*domain.Trade

	pos := domain.Position{}
	var openTrade *domain.Trade

	for _, exec := range execs {
		qty := exec.SignedQuantity()

		switch {
		case pos.IsFlat():
			pos = domain.Position{
				Symbol:      exec.Symbol,
				Qty:         qty,
				AvgPrice:    exec.Price,
				TotalFees:   exec.Fees,
				FirstExecID: exec.ID,
				LastExecID:  exec.ID,
			}
			openTrade = newLinearTrade(exec, instrument, qty, exec.Price, exec.Fees)

		case sameSign(pos.Qty, pos.Qty+qty):
			// Same direction: grow the position, re-average the entry.
			oldAbs := abs(pos.Qty)
			pos.Qty += qty
			avg, err := money.WeightedAveragePriceFloat(
				[]float64{pos.AvgPrice, exec.Price},
				[]float64{oldAbs, abs(qty)},
			)
			if err != nil {
				// Quantities netting to zero here is a transient flip state;
				// keep the previous average rather than failing the batch.
				if !errors.Is(err, money.ErrDivisionByZero) {
					e.logger.Warn(ctx, "Weighted average failed", map[string]interface{}{
						"execID": exec.ID, "reason": err.Error(),
					})
				}
				avg = pos.AvgPrice
			}
			pos.AvgPrice = avg
			pos.TotalFees += exec.Fees
			pos.LastExecID = exec.ID
			if openTrade != nil {
				openTrade.QtyOpened = abs(pos.Qty)
				openTrade.AvgOpenPrice = avg
				openTrade.Fees = pos.TotalFees
			}

		default:
			// Direction change: close the open trade at this execution's
			// price, then reopen with any residual quantity.
			residual := pos.Qty + qty
			pos.TotalFees += exec.Fees

			if openTrade != nil {
				closeQty := abs(pos.Qty)
				pnl := linearPnL(instrument, openTrade.AvgOpenPrice, exec.Price,
					closeQty*pos.Direction(), exec.EffectiveMultiplier(), pos.TotalFees)

				closedAt := exec.Timestamp
				closePrice := exec.Price
				openTrade.Status = domain.StatusClosed
				openTrade.ClosedAt = &closedAt
				openTrade.QtyClosed = closeQty
				openTrade.AvgClosePrice = &closePrice
				openTrade.RealizedPnL = &pnl
				openTrade.Fees = pos.TotalFees
				openTrade.CloseReason = domain.CloseReasonFill
				trades = append(trades, openTrade)
			}

			if residual != 0 {
				pos = domain.Position{
					Symbol:      exec.Symbol,
					Qty:         residual,
					AvgPrice:    exec.Price,
					FirstExecID: exec.ID,
					LastExecID:  exec.ID,
				}
				openTrade = newLinearTrade(exec, instrument, residual, exec.Price, 0)
			} else {
				pos = domain.Position{}
				openTrade = nil
			}
		}
	}

	if openTrade != nil {
		trades = append(trades, openTrade)
	}
	return trades
}

func newLinearTrade(exec *domain.Execution, instrument domain.InstrumentType, signedQty, price, fees float64) *domain.Trade {
	return &domain.Trade{
		UserID:         exec.UserID,
		GroupKey:       groupKey(exec.Symbol, exec.ID),
		Symbol:         exec.Symbol,
		Instrument:     instrument,
		Status:         domain.StatusOpen,
		OpenedAt:       exec.Timestamp,
		QtyOpened:      abs(signedQty),
		AvgOpenPrice:   price,
		Fees:           fees,
		Currency:       exec.Currency,
		Venue:          exec.Venue,
		IngestionRunID: exec.IngestionRunID,
	}
}

// linearPnL computes (exit - entry) * signedQty [* multiplier] - fees with
// decimal arithmetic. signedQty carries the trade direction: positive for
// longs, negative for shorts.
func linearPnL(instrument domain.InstrumentType, avgOpen, avgClose, signedQty, multiplier, fees float64) float64 {
	open := decimal.NewFromFloat(avgOpen)
	clos := decimal.NewFromFloat(avgClose)
	qty := decimal.NewFromFloat(signedQty)
	f := decimal.NewFromFloat(fees)

	if instrument == domain.InstrumentFutures {
		return money.FuturesPnL(open, clos, qty, decimal.NewFromFloat(multiplier), f).InexactFloat64()
	}
	return money.EquityPnL(open, clos, qty, f).InexactFloat64()
}

func sameSign(a, b float64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
