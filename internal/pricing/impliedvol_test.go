package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeledger/internal/domain"
)

func TestSolveImpliedVol_RoundTrip(t *testing.T) {
	// Price an option at a known vol, then recover that vol from the price.
	tests := []struct {
		name string
		in   Inputs
	}{
		{"ATM call", Inputs{S: 100, K: 100, T: 30.0 / 365.0, IV: 0.25, R: 0.05, Q: 0.02, Type: domain.Call}},
		{"ATM put", Inputs{S: 100, K: 100, T: 30.0 / 365.0, IV: 0.25, R: 0.05, Q: 0.02, Type: domain.Put}},
		{"ITM call high vol", Inputs{S: 105, K: 100, T: 0.5, IV: 0.60, R: 0.03, Q: 0.01, Type: domain.Call}},
		{"OTM put low vol", Inputs{S: 120, K: 100, T: 0.25, IV: 0.15, R: 0.05, Q: 0, Type: domain.Put}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := Price(tt.in)
			r := SolveImpliedVol(IVInputs{
				TargetPrice: target,
				S:           tt.in.S, K: tt.in.K, T: tt.in.T,
				R: tt.in.R, Q: tt.in.Q, Type: tt.in.Type,
			})
			require.Equal(t, IVSuccess, r.Kind)
			assert.InDelta(t, tt.in.IV, r.IV, 1e-4)
		})
	}
}

func TestSolveImpliedVol_NoSolution(t *testing.T) {
	tests := []struct {
		name string
		in   IVInputs
	}{
		{
			name: "target below intrinsic",
			in:   IVInputs{TargetPrice: 5, S: 110, K: 100, T: 0.25, R: 0.05, Type: domain.Call},
		},
		{
			name: "target equals intrinsic",
			in:   IVInputs{TargetPrice: 10, S: 110, K: 100, T: 0.25, R: 0.05, Type: domain.Call},
		},
		{
			name: "time to expiry below minimum",
			in:   IVInputs{TargetPrice: 3, S: 100, K: 100, T: MinTimeToExpiry / 2, R: 0.05, Type: domain.Call},
		},
		{
			name: "zero target on OTM option",
			in:   IVInputs{TargetPrice: 0, S: 90, K: 100, T: 0.25, R: 0.05, Type: domain.Call},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := SolveImpliedVol(tt.in)
			assert.Equal(t, IVNoSolution, r.Kind)
			assert.False(t, r.Solved())
			assert.NotEmpty(t, r.Note)
		})
	}
}

func TestSolveImpliedVol_ClampsExtremeVols(t *testing.T) {
	// A very expensive OTM option implies a vol near the upper clamp; the
	// solver must stay inside [ivMin, ivMax] rather than diverge.
	in := Inputs{S: 100, K: 200, T: 30.0 / 365.0, IV: ivMax, R: 0.05, Q: 0, Type: domain.Call}
	target := Price(in)

	r := SolveImpliedVol(IVInputs{
		TargetPrice: target, S: in.S, K: in.K, T: in.T, R: in.R, Q: in.Q, Type: in.Type,
	})
	require.True(t, r.Solved())
	assert.LessOrEqual(t, r.IV, ivMax)
	assert.GreaterOrEqual(t, r.IV, ivMin)
	assert.InDelta(t, ivMax, r.IV, 1e-3)
}
