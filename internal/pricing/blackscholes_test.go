package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tradeledger/internal/domain"
)

func TestPrice(t *testing.T) {
	tests := []struct {
		name string
		in   Inputs
		want float64
	}{
		{
			name: "ATM call one month out",
			in:   Inputs{S: 100, K: 100, T: 30.0 / 365.0, IV: 0.25, R: 0.05, Q: 0.02, Type: domain.Call},
			want: 2.9751351566776907,
		},
		{
			name: "ATM put one month out",
			in:   Inputs{S: 100, K: 100, T: 30.0 / 365.0, IV: 0.25, R: 0.05, Q: 0.02, Type: domain.Put},
			want: 2.729268058967613,
		},
		{
			name: "ITM call six months out",
			in:   Inputs{S: 105, K: 100, T: 0.5, IV: 0.30, R: 0.03, Q: 0.01, Type: domain.Call},
			want: 11.881536148083493,
		},
		{
			name: "OTM put six months out",
			in:   Inputs{S: 105, K: 100, T: 0.5, IV: 0.30, R: 0.03, Q: 0.01, Type: domain.Put},
			want: 5.9164197931581315,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Price(tt.in), 1e-9)
		})
	}
}

func TestPrice_ExpiryReturnsIntrinsic(t *testing.T) {
	tests := []struct {
		name string
		in   Inputs
		want float64
	}{
		{"ITM call", Inputs{S: 110, K: 100, T: 0, IV: 0.25, Type: domain.Call}, 10},
		{"OTM call", Inputs{S: 90, K: 100, T: 0, IV: 0.25, Type: domain.Call}, 0},
		{"ITM put", Inputs{S: 90, K: 100, T: MinTimeToExpiry, IV: 0.25, Type: domain.Put}, 10},
		{"OTM put", Inputs{S: 110, K: 100, T: MinTimeToExpiry / 2, IV: 0.25, Type: domain.Put}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Price(tt.in))
		})
	}
}

func TestPrice_PutCallParity(t *testing.T) {
	// C - P = S*e^{-qT} - K*e^{-rT}
	call := Inputs{S: 105, K: 100, T: 0.5, IV: 0.30, R: 0.03, Q: 0.01, Type: domain.Call}
	put := call
	put.Type = domain.Put

	lhs := Price(call) - Price(put)
	assert.InDelta(t, 5.965116354925385, lhs, 1e-9)
}

func TestComputeGreeks(t *testing.T) {
	in := Inputs{S: 100, K: 100, T: 30.0 / 365.0, IV: 0.25, R: 0.05, Q: 0.02, Type: domain.Call}

	g := ComputeGreeks(in)
	assert.InDelta(t, 2.9751351566776907, g.Price, 1e-9)
	assert.InDelta(t, 0.5271312489032434, g.Delta, 1e-9)
	assert.InDelta(t, 0.05543328859312487, g.Gamma, 1e-9)
	assert.InDelta(t, -0.05138504020336265, g.Theta, 1e-9) // per calendar day
	assert.InDelta(t, 0.1139040176571059, g.Vega, 1e-9)    // per vol point
	assert.InDelta(t, 0.04088053950710682, g.Rho, 1e-9)    // per 1% rate

	in.Type = domain.Put
	g = ComputeGreeks(in)
	assert.InDelta(t, 2.729268058967613, g.Price, 1e-9)
	assert.InDelta(t, -0.4712262658380619, g.Delta, 1e-9)
	assert.InDelta(t, 0.05543328859312487, g.Gamma, 1e-9) // same gamma as the call
	assert.InDelta(t, -0.0432130424243533, g.Theta, 1e-9)
	assert.InDelta(t, -0.04097415998036203, g.Rho, 1e-9)
}

func TestComputeGreeks_AtExpiry(t *testing.T) {
	tests := []struct {
		name      string
		in        Inputs
		wantDelta float64
	}{
		{"ITM call collapses to delta 1", Inputs{S: 110, K: 100, T: 0, Type: domain.Call}, 1},
		{"OTM call collapses to delta 0", Inputs{S: 90, K: 100, T: 0, Type: domain.Call}, 0},
		{"ITM put collapses to delta -1", Inputs{S: 90, K: 100, T: 0, Type: domain.Put}, -1},
		{"OTM put collapses to delta 0", Inputs{S: 110, K: 100, T: 0, Type: domain.Put}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := ComputeGreeks(tt.in)
			assert.Equal(t, tt.wantDelta, g.Delta)
			assert.Zero(t, g.Gamma)
			assert.Zero(t, g.Theta)
			assert.Zero(t, g.Vega)
			assert.Zero(t, g.Rho)
			assert.Equal(t, Intrinsic(tt.in.S, tt.in.K, tt.in.Type), g.Price)
		})
	}
}

func TestIntrinsic(t *testing.T) {
	assert.Equal(t, 10.0, Intrinsic(110, 100, domain.Call))
	assert.Equal(t, 0.0, Intrinsic(90, 100, domain.Call))
	assert.Equal(t, 10.0, Intrinsic(90, 100, domain.Put))
	assert.Equal(t, 0.0, Intrinsic(110, 100, domain.Put))
}
