package analytics

import (
	"sort"
	"time"

	"tradeledger/internal/domain"
)

// PerformanceMetrics holds summary statistics over a set of closed trades.
// Open trades carry no realized P&L and are counted but otherwise ignored.
type PerformanceMetrics struct {
	// Basic Metrics
	TotalTrades   int
	OpenTrades    int
	ClosedTrades  int
	WinningTrades int
	LosingTrades  int
	WinRate       float64
	TotalProfit   float64
	TotalFees     float64
	GrossProfit   float64
	GrossLoss     float64
	ProfitFactor  float64
	AverageWin    float64
	AverageLoss   float64

	// Advanced Metrics
	MaxConsecutiveWins   int
	MaxConsecutiveLosses int
	AverageTradeDuration time.Duration
	Expectancy           float64
	MonthlyReturns       map[string]float64
	ByInstrument         map[domain.InstrumentType]InstrumentMetrics
}

// InstrumentMetrics breaks results down per instrument type.
type InstrumentMetrics struct {
	ClosedTrades int
	TotalProfit  float64
	WinRate      float64
}

// AnalyzePerformance calculates performance metrics from reconstructed trades.
func AnalyzePerformance(trades []*domain.Trade) *PerformanceMetrics {
	metrics := &PerformanceMetrics{
		MonthlyReturns: make(map[string]float64),
		ByInstrument:   make(map[domain.InstrumentType]InstrumentMetrics),
	}

	if len(trades) == 0 {
		return metrics
	}

	// Process in close order so streak counting is chronological.
	closed := make([]*domain.Trade, 0, len(trades))
	for _, trade := range trades {
		metrics.TotalTrades++
		metrics.TotalFees += trade.Fees
		if !trade.IsClosed() || trade.RealizedPnL == nil || trade.ClosedAt == nil {
			metrics.OpenTrades++
			continue
		}
		closed = append(closed, trade)
	}
	sort.Slice(closed, func(i, j int) bool {
		return closed[i].ClosedAt.Before(*closed[j].ClosedAt)
	})

	instrumentWins := make(map[domain.InstrumentType]int)
	var consecutiveWins, consecutiveLosses int
	var totalDuration time.Duration

	for _, trade := range closed {
		pnl := *trade.RealizedPnL
		metrics.ClosedTrades++
		metrics.TotalProfit += pnl
		totalDuration += trade.ClosedAt.Sub(trade.OpenedAt)

		if pnl > 0 {
			metrics.WinningTrades++
			metrics.GrossProfit += pnl
			consecutiveWins++
			consecutiveLosses = 0
			instrumentWins[trade.Instrument]++
		} else {
			metrics.LosingTrades++
			metrics.GrossLoss += pnl
			consecutiveLosses++
			consecutiveWins = 0
		}
		if consecutiveWins > metrics.MaxConsecutiveWins {
			metrics.MaxConsecutiveWins = consecutiveWins
		}
		if consecutiveLosses > metrics.MaxConsecutiveLosses {
			metrics.MaxConsecutiveLosses = consecutiveLosses
		}

		monthKey := trade.ClosedAt.Format("2006-01")
		metrics.MonthlyReturns[monthKey] += pnl

		im := metrics.ByInstrument[trade.Instrument]
		im.ClosedTrades++
		im.TotalProfit += pnl
		metrics.ByInstrument[trade.Instrument] = im
	}

	// Calculate final metrics
	if metrics.ClosedTrades > 0 {
		metrics.WinRate = float64(metrics.WinningTrades) / float64(metrics.ClosedTrades)
		metrics.AverageTradeDuration = totalDuration / time.Duration(metrics.ClosedTrades)

		if metrics.WinningTrades > 0 {
			metrics.AverageWin = metrics.GrossProfit / float64(metrics.WinningTrades)
		}
		if metrics.LosingTrades > 0 {
			metrics.AverageLoss = metrics.GrossLoss / float64(metrics.LosingTrades)
		}
		if metrics.GrossLoss != 0 {
			metrics.ProfitFactor = metrics.GrossProfit / -metrics.GrossLoss
		}
		metrics.Expectancy = (metrics.WinRate * metrics.AverageWin) + ((1 - metrics.WinRate) * metrics.AverageLoss)

		for instrument, im := range metrics.ByInstrument {
			im.WinRate = float64(instrumentWins[instrument]) / float64(im.ClosedTrades)
			metrics.ByInstrument[instrument] = im
		}
	}

	return metrics
}

// GetMonthlyReturns returns the monthly returns as a sorted slice.
func (m *PerformanceMetrics) GetMonthlyReturns() []MonthlyReturn {
	returns := make([]MonthlyReturn, 0, len(m.MonthlyReturns))
	for month, profit := range m.MonthlyReturns {
		date, _ := time.Parse("2006-01", month)
		returns = append(returns, MonthlyReturn{
			Month:  date,
			Return: profit,
		})
	}
	sort.Slice(returns, func(i, j int) bool {
		return returns[i].Month.Before(returns[j].Month)
	})
	return returns
}

// MonthlyReturn represents a monthly return value.
type MonthlyReturn struct {
	Month  time.Time
	Return float64
}
