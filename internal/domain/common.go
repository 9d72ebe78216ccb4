package domain

// Side represents the direction of an execution (fill).
type Side string

const (
	SideBuy   Side = "buy"
	SideSell  Side = "sell"
	SideShort Side = "short"
	SideCover Side = "cover"
)

// IsValid reports whether the side is one of the known values.
func (s Side) IsValid() bool {
	switch s {
	case SideBuy, SideSell, SideShort, SideCover:
		return true
	}
	return false
}

// Sign returns +1 for executions that increase a long position (buy, cover)
// and -1 for those that decrease it (sell, short).
func (s Side) Sign() float64 {
	if s == SideSell || s == SideShort {
		return -1
	}
	return 1
}

// InstrumentType tags an execution with its asset class.
type InstrumentType string

const (
	InstrumentEquity  InstrumentType = "equity"
	InstrumentOption  InstrumentType = "option"
	InstrumentFutures InstrumentType = "futures"
)

// IsValid reports whether the instrument type is one of the known values.
func (t InstrumentType) IsValid() bool {
	switch t {
	case InstrumentEquity, InstrumentOption, InstrumentFutures:
		return true
	}
	return false
}

// OptionType distinguishes calls from puts.
type OptionType string

const (
	Call OptionType = "call"
	Put  OptionType = "put"
)

// TradeStatus represents the lifecycle state of a reconstructed trade.
type TradeStatus string

const (
	StatusOpen   TradeStatus = "open"
	StatusClosed TradeStatus = "closed"
)

// CloseReason indicates why a trade was closed.
type CloseReason string

const (
	CloseReasonFill        CloseReason = "fill"
	CloseReasonExpiredAuto CloseReason = "expired_auto"
)
