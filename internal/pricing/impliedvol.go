package pricing

import (
	"math"

	"tradeledger/internal/domain"
)

const (
	ivSeed       = 0.30
	ivMin        = 0.01
	ivMax        = 5.00
	ivTolerance  = 1e-6
	ivMaxNewton  = 100
	ivMaxBisect  = 50
	vegaEpsilon  = 1e-10
	residualSpan = 0.10 // relative residual beyond which a bisection result is low-confidence
)

// IVInputs are the implied-volatility solver inputs.
type IVInputs struct {
	TargetPrice float64 // Observed market price to invert
	S           float64
	K           float64
	T           float64
	R           float64
	Q           float64
	Type        domain.OptionType
}

// IVKind discriminates the solver outcome.
type IVKind string

const (
	// IVSuccess means the solver converged to within tolerance.
	IVSuccess IVKind = "success"
	// IVUnstableMid means bisection converged but the residual exceeds 10%
	// of the target; treat the value as low-confidence.
	IVUnstableMid IVKind = "unstable_mid"
	// IVNoSolution means no volatility can reproduce the target price.
	IVNoSolution IVKind = "no_solution"
)

// IVResult is the typed outcome of an implied-volatility solve. Failure to
// converge is a result, not an error.
type IVResult struct {
	Kind IVKind
	IV   float64 // Defined for success and unstable_mid
	Note string  // Diagnostic for unstable_mid / no_solution
}

func (r IVResult) Solved() bool { return r.Kind != IVNoSolution }

// SolveImpliedVol inverts the Black-Scholes price for volatility using
// Newton-Raphson with a bisection fallback.
func SolveImpliedVol(in IVInputs) IVResult {
	if in.T <= MinTimeToExpiry {
		return IVResult{Kind: IVNoSolution, Note: "time to expiry below minimum"}
	}
	if in.TargetPrice <= Intrinsic(in.S, in.K, in.Type) {
		return IVResult{Kind: IVNoSolution, Note: "target price at or below intrinsic value"}
	}

	bs := Inputs{S: in.S, K: in.K, T: in.T, R: in.R, Q: in.Q, Type: in.Type}

	iv := ivSeed
	for i := 0; i < ivMaxNewton; i++ {
		bs.IV = iv
		diff := in.TargetPrice - Price(bs)
		if math.Abs(diff) < ivTolerance {
			return IVResult{Kind: IVSuccess, IV: iv}
		}

		v := vega(bs)
		if math.Abs(v) < vegaEpsilon {
			break // flat vega, Newton step would blow up
		}
		iv = clampIV(iv + diff/v)
	}

	return bisectImpliedVol(in, bs)
}

// bisectImpliedVol is the fallback when Newton-Raphson stalls or runs out of
// iterations: 50 rounds over [ivMin, ivMax]. Black-Scholes prices increase
// monotonically in volatility, so plain bisection converges.
func bisectImpliedVol(in IVInputs, bs Inputs) IVResult {
	low, high := ivMin, ivMax
	mid := ivSeed

	for i := 0; i < ivMaxBisect; i++ {
		mid = (low + high) / 2
		bs.IV = mid
		price := Price(bs)

		if math.Abs(price-in.TargetPrice) < ivTolerance {
			return IVResult{Kind: IVSuccess, IV: mid}
		}
		if price < in.TargetPrice {
			low = mid
		} else {
			high = mid
		}
	}

	bs.IV = mid
	residual := math.Abs(Price(bs) - in.TargetPrice)
	if in.TargetPrice > 0 && residual/in.TargetPrice > residualSpan {
		return IVResult{
			Kind: IVUnstableMid,
			IV:   mid,
			Note: "bisection residual exceeds 10% of target price",
		}
	}
	return IVResult{Kind: IVSuccess, IV: mid}
}

func clampIV(iv float64) float64 {
	if iv < ivMin {
		return ivMin
	}
	if iv > ivMax {
		return ivMax
	}
	return iv
}
