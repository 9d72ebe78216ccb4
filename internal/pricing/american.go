package pricing

import (
	"math"

	"tradeledger/internal/domain"
)

// fdBump is the perturbation used by the finite-difference American Greeks.
const fdBump = 0.001

// AmericanPrice returns the Barone-Adesi-Whaley quadratic approximation for
// an American option, layered on the European Black-Scholes price.
func AmericanPrice(in Inputs) float64 {
	if in.T <= MinTimeToExpiry {
		return Intrinsic(in.S, in.K, in.Type)
	}

	if in.Type == domain.Call {
		// Early exercise of a call is only ever optimal when the carry
		// yield exceeds the risk-free rate.
		if in.Q <= in.R {
			return Price(in)
		}
		return americanCall(in)
	}
	return americanPut(in)
}

// bawRoots returns the characteristic roots q1, q2 of the BAW quadratic.
func bawRoots(in Inputs) (q1, q2 float64) {
	sigma2 := in.IV * in.IV
	w := 2 * (in.R - in.Q) / sigma2
	k1 := 2 * in.R / (sigma2 * (1 - math.Exp(-in.R*in.T)))

	disc := math.Sqrt((w-1)*(w-1) + 4*k1)
	q1 = 0.5 * (-(w - 1) + disc)
	q2 = 0.5 * (-(w - 1) - disc)
	return q1, q2
}

func americanCall(in Inputs) float64 {
	q1, q2 := bawRoots(in)
	sStar := in.K / (1 - 2*q1/((q1-1)*(q1-q2)))

	if in.S >= sStar {
		return in.S - in.K
	}

	// Exercise-premium correction uses the positive root; the negative-root
	// term diverges as S -> 0 and is discarded by the approximation.
	nd1 := normCDF(bawD1(sStar, in))
	a := (sStar / q1) * (1 - math.Exp((in.Q-in.R)*in.T)*nd1)
	return Price(in) + a*math.Pow(in.S/sStar, q1)
}

func americanPut(in Inputs) float64 {
	q1, q2 := bawRoots(in)
	sStar := putCriticalPrice(in, q1, q2)

	if in.S <= sStar {
		return in.K - in.S
	}

	// Puts keep the negative-root term, which decays as S grows above S*.
	nmd1 := normCDF(-bawD1(sStar, in))
	a := -(sStar / q2) * (1 - math.Exp((in.Q-in.R)*in.T)*nmd1)
	return Price(in) + a*math.Pow(in.S/sStar, q2)
}

func putCriticalPrice(in Inputs, q1, q2 float64) float64 {
	return in.K / (1 - 2*q2/((q2-1)*(q2-q1)))
}

// bawD1 is d1 evaluated at the critical price.
func bawD1(s float64, in Inputs) float64 {
	return (math.Log(s/in.K) + (in.R-in.Q+0.5*in.IV*in.IV)*in.T) / (in.IV * math.Sqrt(in.T))
}

// IsEarlyExerciseOptimal exposes the optimality test the American pricer
// applies internally, for UI hints.
func IsEarlyExerciseOptimal(in Inputs) bool {
	if in.T <= MinTimeToExpiry {
		return false
	}
	if in.Type == domain.Call {
		return in.Q > in.R
	}
	q1, q2 := bawRoots(in)
	return in.S <= putCriticalPrice(in, q1, q2)
}

// AmericanGreeks computes Greeks by central finite differences on the
// American pricer itself; BAW has no clean analytic Greeks. Theta is per
// calendar day, vega per vol point, rho per 1% rate change, matching the
// European conventions.
func AmericanGreeks(in Inputs) Greeks {
	if in.T <= MinTimeToExpiry {
		return expiryGreeks(in)
	}

	price := AmericanPrice(in)

	bumpS := func(ds float64) float64 {
		b := in
		b.S += ds
		return AmericanPrice(b)
	}
	up, down := bumpS(fdBump), bumpS(-fdBump)
	delta := (up - down) / (2 * fdBump)
	gamma := (up - 2*price + down) / (fdBump * fdBump)

	tUp, tDown := in, in
	tUp.T += fdBump / 365.0
	tDown.T -= fdBump / 365.0
	// dP/dT per year; theta is quoted as decay, so negate.
	theta := -(AmericanPrice(tUp) - AmericanPrice(tDown)) / (2 * fdBump / 365.0)

	vUp, vDown := in, in
	vUp.IV += 0.01
	vDown.IV -= 0.01
	vega := (AmericanPrice(vUp) - AmericanPrice(vDown)) / (2 * 0.01)

	rUp, rDown := in, in
	rUp.R += 0.01
	rDown.R -= 0.01
	rho := (AmericanPrice(rUp) - AmericanPrice(rDown)) / (2 * 0.01)

	return Greeks{
		Price: price,
		Delta: delta,
		Gamma: gamma,
		Theta: theta / 365.0,
		Vega:  vega / 100.0,
		Rho:   rho / 100.0,
	}
}
