package domain

import "time"

// TradeLeg is one side of a multi-leg options trade, aggregated from the
// executions of a single (strike, type, side) position within a window.
type TradeLeg struct {
	Side     Side       `json:"side"`      // buy or sell
	Type     OptionType `json:"type"`      // call or put
	Strike   float64    `json:"strike"`    // Strike price
	Expiry   time.Time  `json:"expiry"`    // Contract expiration
	Qty      float64    `json:"qty"`       // Absolute contracts in this leg
	AvgPrice float64    `json:"avg_price"` // Volume-weighted average fill price
}

// Trade represents a reconstructed round-trip position derived from one or
// more executions. A trade is closed iff its net signed quantity across all
// legs is exactly zero; RealizedPnL is defined only when closed.
type Trade struct {
	ID             int64          // Assigned by the store
	UserID         string         // Owning user
	GroupKey       string         // Uniqueness key for upsert (symbol + first execution ID)
	Symbol         string         // Instrument symbol (underlying for options)
	Instrument     InstrumentType // equity / option / futures
	Status         TradeStatus    // open or closed
	OpenedAt       time.Time      // Timestamp of the opening execution
	ClosedAt       *time.Time     // Timestamp of the closing execution (nil while open)
	QtyOpened      float64        // Total quantity opened
	QtyClosed      float64        // Total quantity closed so far
	AvgOpenPrice   float64        // Volume-weighted average entry price
	AvgClosePrice  *float64       // Volume-weighted average exit price (nil while open)
	RealizedPnL    *float64       // Realized profit/loss, fees included (nil while open)
	Fees           float64        // Accumulated fees across all executions
	Currency       string         // Settlement currency
	Venue          string         // Executing venue or broker
	CloseReason    CloseReason    // Why the trade closed (empty while open)
	IngestionRunID string         // Import run that produced the opening execution
	Legs           []TradeLeg     // Option legs (empty for linear instruments)

	// Option contract columns, denormalized from the first leg for querying.
	Underlying   string
	OptionExpiry *time.Time
}

// IsClosed reports whether the trade has been fully closed.
func (t *Trade) IsClosed() bool {
	return t.Status == StatusClosed
}

// RemainingQty returns the quantity still open.
func (t *Trade) RemainingQty() float64 {
	return t.QtyOpened - t.QtyClosed
}
