// Package pricing implements theoretical option valuation: Black-Scholes
// closed-form pricing and Greeks, a Barone-Adesi-Whaley American
// approximation, and a Newton-Raphson implied-volatility solver with
// bisection fallback. All prices are plain float64; money arithmetic in the
// matcher stays decimal-safe and only consumes these values at the boundary.
package pricing

import (
	"math"

	"tradeledger/internal/domain"
)

// MinTimeToExpiry is one second expressed in years. Times at or below this
// floor are treated as expired to avoid division by zero in d1/d2.
const MinTimeToExpiry = 1.0 / (365.0 * 24.0 * 3600.0)

// Inputs are the Black-Scholes model inputs.
type Inputs struct {
	S    float64           // Spot price of the underlying
	K    float64           // Strike price
	T    float64           // Time to expiration in years
	IV   float64           // Implied volatility (decimal, 0.25 = 25%)
	R    float64           // Risk-free rate (decimal)
	Q    float64           // Dividend / carry yield (decimal)
	Type domain.OptionType // Call or put
}

// Greeks bundles a price with its sensitivities. Theta is per calendar day,
// vega per 1 volatility point (0.01), rho per 1% rate change.
type Greeks struct {
	Price float64
	Delta float64
	Gamma float64
	Theta float64
	Vega  float64
	Rho   float64
}

// erf is the Abramowitz-Stegun 5-term approximation (7.1.26), accurate to
// about 1.5e-7. Avoids a special-function dependency.
func erf(x float64) float64 {
	const (
		a1 = 0.254829592
		a2 = -0.284496736
		a3 = 1.421413741
		a4 = -1.453152027
		a5 = 1.061405429
		p  = 0.3275911
	)

	sign := 1.0
	if x < 0 {
		sign = -1.0
		x = -x
	}

	t := 1.0 / (1.0 + p*x)
	y := 1.0 - (((((a5*t+a4)*t)+a3)*t+a2)*t+a1)*t*math.Exp(-x*x)
	return sign * y
}

// normCDF is the standard normal cumulative distribution function.
func normCDF(x float64) float64 {
	return 0.5 * (1.0 + erf(x/math.Sqrt2))
}

// normPDF is the standard normal density.
func normPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2.0*math.Pi)
}

// Intrinsic returns the exercise value of the option right now.
func Intrinsic(s, k float64, typ domain.OptionType) float64 {
	if typ == domain.Call {
		return math.Max(s-k, 0)
	}
	return math.Max(k-s, 0)
}

// d1d2 computes the probability terms using the forward-price formulation
// F = S*e^((r-q)T), d1 = (ln(F/K) + 0.5*iv^2*T) / (iv*sqrt(T)).
func d1d2(in Inputs) (d1, d2 float64) {
	f := in.S * math.Exp((in.R-in.Q)*in.T)
	sqrtT := math.Sqrt(in.T)
	d1 = (math.Log(f/in.K) + 0.5*in.IV*in.IV*in.T) / (in.IV * sqrtT)
	d2 = d1 - in.IV*sqrtT
	return d1, d2
}

// Price returns the Black-Scholes price. At T <= MinTimeToExpiry it returns
// the intrinsic value.
func Price(in Inputs) float64 {
	if in.T <= MinTimeToExpiry {
		return Intrinsic(in.S, in.K, in.Type)
	}

	f := in.S * math.Exp((in.R-in.Q)*in.T)
	d1, d2 := d1d2(in)
	df := math.Exp(-in.R * in.T)

	if in.Type == domain.Call {
		return df * (f*normCDF(d1) - in.K*normCDF(d2))
	}
	// Put via put-call symmetry on the forward.
	return df * (in.K*normCDF(-d2) - f*normCDF(-d1))
}

// ComputeGreeks returns the closed-form Greeks. At expiry, delta collapses to
// the 0/±1 step function and all other sensitivities are zero.
func ComputeGreeks(in Inputs) Greeks {
	if in.T <= MinTimeToExpiry {
		return expiryGreeks(in)
	}

	d1, d2 := d1d2(in)
	n1 := normPDF(d1)
	sqrtT := math.Sqrt(in.T)
	discQ := math.Exp(-in.Q * in.T)
	discR := math.Exp(-in.R * in.T)

	var delta, theta, rho float64
	if in.Type == domain.Call {
		nd1 := normCDF(d1)
		nd2 := normCDF(d2)
		delta = discQ * nd1
		theta = -(in.S*discQ*n1*in.IV)/(2*sqrtT) - in.R*in.K*discR*nd2 + in.Q*in.S*discQ*nd1
		rho = in.K * in.T * discR * nd2
	} else {
		nmd1 := normCDF(-d1)
		nmd2 := normCDF(-d2)
		delta = discQ * (normCDF(d1) - 1)
		theta = -(in.S*discQ*n1*in.IV)/(2*sqrtT) + in.R*in.K*discR*nmd2 - in.Q*in.S*discQ*nmd1
		rho = -in.K * in.T * discR * nmd2
	}

	gamma := discQ * n1 / (in.S * in.IV * sqrtT)
	vega := in.S * discQ * n1 * sqrtT

	return Greeks{
		Price: Price(in),
		Delta: delta,
		Gamma: gamma,
		Theta: theta / 365.0,
		Vega:  vega / 100.0,
		Rho:   rho / 100.0,
	}
}

// expiryGreeks is the degenerate Greeks surface at T <= MinTimeToExpiry.
func expiryGreeks(in Inputs) Greeks {
	g := Greeks{Price: Intrinsic(in.S, in.K, in.Type)}
	if in.Type == domain.Call {
		if in.S > in.K {
			g.Delta = 1
		}
	} else {
		if in.S < in.K {
			g.Delta = -1
		}
	}
	return g
}

// vega returns the raw (unscaled) Black-Scholes vega, used by the IV solver.
func vega(in Inputs) float64 {
	if in.T <= MinTimeToExpiry {
		return 0
	}
	d1, _ := d1d2(in)
	return in.S * math.Exp(-in.Q*in.T) * normPDF(d1) * math.Sqrt(in.T)
}
