package domain

import "errors"

// Validation errors for normalized executions. The matcher treats all of
// these as skip-and-continue conditions.
var (
	ErrMissingSymbol     = errors.New("execution is missing a symbol")
	ErrInvalidQuantity   = errors.New("execution quantity must be a positive magnitude")
	ErrInvalidPrice      = errors.New("execution price is invalid for its instrument type")
	ErrInvalidSide       = errors.New("execution side is not buy/sell/short/cover")
	ErrInvalidInstrument = errors.New("execution instrument type is unknown")
)
