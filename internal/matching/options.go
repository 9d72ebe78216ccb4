package matching

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"tradeledger/internal/domain"
	"tradeledger/internal/money"
)

// optionLeg tracks one (strike, type, side) position within a window.
type optionLeg struct {
	side   domain.Side
	typ    domain.OptionType
	strike float64
	pos    domain.Position
}

// matchOptionGroup replays one (underlying, expiry) group: partition into
// windows, aggregate per-leg positions within each window, and emit one
// trade per window, closed iff the window's net contracts return to zero.
func (e *Engine) matchOptionGroup(ctx context.Context, execs []*domain.Execution) []*domain.Trade {
	var trades []*domain.Trade

	for _, window := range groupIntoWindows(execs, e.windowGap) {
		if trade := e.matchWindow(ctx, window); trade != nil {
			trades = append(trades, trade)
		}
	}
	return trades
}

func (e *Engine) matchWindow(ctx context.Context, window []*domain.Execution) *domain.Trade {
	contract := window[0].Option
	legs := make(map[string]*optionLeg)

	var totalFees float64
	var totalBought float64
	firstExecID := window[0].ID

	for _, exec := range window {
		key := legKey(exec)
		qty := exec.SignedQuantity()

		if exec.Side == domain.SideBuy || exec.Side == domain.SideCover {
			totalBought += exec.Quantity
		}

		leg, ok := legs[key]
		if !ok {
			leg = &optionLeg{
				side:   exec.Side,
				typ:    exec.Option.Type,
				strike: exec.Option.Strike,
				pos: domain.Position{
					Symbol:      optionSymbol(exec),
					FirstExecID: exec.ID,
				},
			}
			legs[key] = leg
		}

		oldAbs := abs(leg.pos.Qty)
		leg.pos.Qty += qty
		if leg.pos.Qty != 0 {
			avg, err := money.WeightedAveragePriceFloat(
				[]float64{leg.pos.AvgPrice, exec.Price},
				[]float64{oldAbs, abs(qty)},
			)
			if err != nil {
				if !errors.Is(err, money.ErrDivisionByZero) {
					e.logger.Warn(ctx, "Leg average failed", map[string]interface{}{
						"execID": exec.ID, "reason": err.Error(),
					})
				}
				avg = leg.pos.AvgPrice
			}
			leg.pos.AvgPrice = avg
		} else {
			leg.pos.AvgPrice = exec.Price
		}
		leg.pos.TotalCost += qty * exec.Price * exec.EffectiveMultiplier()
		leg.pos.TotalFees += exec.Fees
		leg.pos.LastExecID = exec.ID

		totalFees += exec.Fees
	}

	// Deterministic leg order regardless of map iteration.
	ordered := make([]*optionLeg, 0, len(legs))
	for _, leg := range legs {
		ordered = append(ordered, leg)
	}
	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.strike != b.strike {
			return a.strike < b.strike
		}
		if a.typ != b.typ {
			return a.typ < b.typ
		}
		return a.side < b.side
	})

	var net float64
	var totalQty float64
	legsOut := make([]domain.TradeLeg, 0, len(ordered))
	prices := make([]float64, 0, len(ordered))
	weights := make([]float64, 0, len(ordered))
	for _, leg := range ordered {
		net += leg.pos.Qty
		totalQty += abs(leg.pos.Qty)
		legsOut = append(legsOut, domain.TradeLeg{
			Side:     leg.side,
			Type:     leg.typ,
			Strike:   leg.strike,
			Expiry:   contract.Expiry,
			Qty:      abs(leg.pos.Qty),
			AvgPrice: leg.pos.AvgPrice,
		})
		prices = append(prices, leg.pos.AvgPrice)
		weights = append(weights, abs(leg.pos.Qty))
	}

	status := domain.StatusOpen
	if net == 0 {
		status = domain.StatusClosed
	}

	avgOpen := 0.0
	if totalQty > 0 {
		if v, err := money.WeightedAveragePriceFloat(prices, weights); err == nil {
			avgOpen = v
		}
	} else if len(window) > 0 {
		avgOpen = window[0].Price
	}

	expiry := contract.Expiry
	trade := &domain.Trade{
		UserID:         window[0].UserID,
		GroupKey:       groupKey(contract.Underlying, firstExecID),
		Symbol:         contract.Underlying,
		Instrument:     domain.InstrumentOption,
		Status:         status,
		OpenedAt:       window[0].Timestamp,
		AvgOpenPrice:   avgOpen,
		Fees:           totalFees,
		Currency:       window[0].Currency,
		Venue:          window[0].Venue,
		IngestionRunID: window[0].IngestionRunID,
		Legs:           legsOut,
		Underlying:     contract.Underlying,
		OptionExpiry:   &expiry,
	}

	if status == domain.StatusClosed {
		qtyOpened := totalBought
		if qtyOpened <= 0 {
			qtyOpened = totalQty
		}
		closedAt := window[len(window)-1].Timestamp
		pnl := windowPnL(window, totalFees)
		closePrice := avgOpen

		trade.QtyOpened = qtyOpened
		trade.QtyClosed = qtyOpened
		trade.ClosedAt = &closedAt
		trade.AvgClosePrice = &closePrice
		trade.RealizedPnL = &pnl
		trade.CloseReason = domain.CloseReasonFill
	} else {
		trade.QtyOpened = abs(net)
		if trade.QtyOpened == 0 {
			trade.QtyOpened = totalQty
		}
	}

	return trade
}

// windowPnL computes realized P&L for a closed window by matching buys
// against sells chronologically within each (strike, type) contract and
// pricing the difference per contract multiplier.
func windowPnL(window []*domain.Execution, totalFees float64) float64 {
	type pair struct{ buys, sells []*domain.Execution }
	contracts := make(map[string]*pair)
	order := make([]string, 0)

	for _, exec := range window {
		key := fmt.Sprintf("%g-%s", exec.Option.Strike, exec.Option.Type)
		p, ok := contracts[key]
		if !ok {
			p = &pair{}
			contracts[key] = p
			order = append(order, key)
		}
		if exec.SignedQuantity() > 0 {
			p.buys = append(p.buys, exec)
		} else {
			p.sells = append(p.sells, exec)
		}
	}
	sort.Strings(order)

	gross := decimal.Zero
	for _, key := range order {
		p := contracts[key]
		bi, si := 0, 0
		buyLeft := remainingQtys(p.buys)
		sellLeft := remainingQtys(p.sells)

		for bi < len(p.buys) && si < len(p.sells) {
			buy, sell := p.buys[bi], p.sells[si]
			matched := minQty(buyLeft[bi], sellLeft[si])

			diff := decimal.NewFromFloat(sell.Price).Sub(decimal.NewFromFloat(buy.Price))
			gross = gross.Add(diff.
				Mul(decimal.NewFromFloat(matched)).
				Mul(decimal.NewFromFloat(buy.EffectiveMultiplier())))

			buyLeft[bi] -= matched
			sellLeft[si] -= matched
			if buyLeft[bi] == 0 {
				bi++
			}
			if sellLeft[si] == 0 {
				si++
			}
		}
	}

	return gross.Sub(decimal.NewFromFloat(totalFees)).InexactFloat64()
}

func remainingQtys(execs []*domain.Execution) []float64 {
	out := make([]float64, len(execs))
	for i, e := range execs {
		out[i] = e.Quantity
	}
	return out
}

func legKey(exec *domain.Execution) string {
	return fmt.Sprintf("%g-%s-%s", exec.Option.Strike, exec.Option.Type, exec.Side)
}

func optionSymbol(exec *domain.Execution) string {
	return fmt.Sprintf("%s%s%g%s",
		exec.Option.Underlying,
		exec.Option.Expiry.Format("060102"),
		exec.Option.Strike,
		exec.Option.Type)
}

func minQty(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
