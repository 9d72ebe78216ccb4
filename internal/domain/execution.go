package domain

import (
	"strings"
	"time"
)

// OptionContract carries the option-specific payload of an execution.
// It is nil for equity and futures executions.
type OptionContract struct {
	Underlying string     // Underlying symbol (e.g., "SPY")
	Expiry     time.Time  // Contract expiration date
	Strike     float64    // Strike price
	Type       OptionType // Call or put
}

// Execution represents one normalized broker fill. It is the immutable input
// unit of the matching engine. Quantity and Price are non-negative
// magnitudes; direction is encoded by Side.
type Execution struct {
	ID              string         // Unique execution identifier
	UserID          string         // Owning user
	Timestamp       time.Time      // Fill time
	Symbol          string         // Instrument symbol as reported by the broker
	Side            Side           // buy / sell / short / cover
	Quantity        float64        // Fill size (always >= 0)
	Price           float64        // Fill price (always >= 0)
	Fees            float64        // Commissions and fees for this fill
	Currency        string         // Settlement currency
	Venue           string         // Executing venue or broker
	OrderID         string         // Parent order identifier
	ExecID          string         // Broker-side execution identifier
	Instrument      InstrumentType // equity / option / futures
	Multiplier      float64        // Contract multiplier (1 for equities)
	BrokerAccountID string         // Account the fill belongs to
	IngestionRunID  string         // Import run that produced this record
	Option          *OptionContract
}

// SignedQuantity returns the quantity with the sign implied by the side.
func (e *Execution) SignedQuantity() float64 {
	if e.Quantity < 0 {
		// Imported data occasionally carries a sign already; the magnitude
		// is the invariant, so strip it.
		return e.Side.Sign() * -e.Quantity
	}
	return e.Side.Sign() * e.Quantity
}

// EffectiveMultiplier returns the contract multiplier, defaulting to 100 for
// options and 1 otherwise when the imported value is missing.
func (e *Execution) EffectiveMultiplier() float64 {
	if e.Multiplier > 0 {
		return e.Multiplier
	}
	if e.Instrument == InstrumentOption {
		return 100
	}
	return 1
}

// Validate reports whether the execution carries the fields the matcher
// requires. Invalid executions are skipped, never fatal to a batch.
func (e *Execution) Validate() error {
	if strings.TrimSpace(e.Symbol) == "" {
		return ErrMissingSymbol
	}
	if e.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	// Options can legitimately fill at zero (e.g., expiration records).
	if e.Instrument == InstrumentOption {
		if e.Price < 0 {
			return ErrInvalidPrice
		}
	} else if e.Price <= 0 {
		return ErrInvalidPrice
	}
	if !e.Side.IsValid() {
		return ErrInvalidSide
	}
	if !e.Instrument.IsValid() {
		return ErrInvalidInstrument
	}
	return nil
}

// HasOptionContract reports whether the execution carries the underlying and
// expiry the options matcher groups by.
func (e *Execution) HasOptionContract() bool {
	return e.Option != nil && e.Option.Underlying != "" && !e.Option.Expiry.IsZero()
}
