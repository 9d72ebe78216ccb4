package domain

// Position is the mutable matching-state for one key (symbol+account, or one
// option leg) while replaying executions. The sign of Qty matches the open
// trade's direction; a quantity of exactly zero means no trade is open.
type Position struct {
	Symbol      string  // Matching key symbol (leg symbol for options)
	Qty         float64 // Running signed quantity
	AvgPrice    float64 // Volume-weighted average entry price
	TotalCost   float64 // Accumulated signed cost (price x qty x multiplier)
	TotalFees   float64 // Accumulated fees
	FirstExecID string  // Execution that opened the position
	LastExecID  string  // Most recent execution applied
}

// IsFlat reports whether the position holds no quantity.
func (p *Position) IsFlat() bool {
	return p.Qty == 0
}

// Direction returns +1 for long positions, -1 for short, 0 when flat.
func (p *Position) Direction() float64 {
	switch {
	case p.Qty > 0:
		return 1
	case p.Qty < 0:
		return -1
	}
	return 0
}
