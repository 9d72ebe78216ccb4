package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeledger/internal/domain"
)

type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func TestGreeksKey_RoundsInputs(t *testing.T) {
	a := Inputs{S: 100.00004, K: 100, T: 0.0821917805, IV: 0.25, R: 0.05, Q: 0.02, Type: domain.Call}
	b := Inputs{S: 100.00001, K: 100, T: 0.0821917808, IV: 0.25, R: 0.05, Q: 0.02, Type: domain.Call}
	assert.Equal(t, greeksKey(a), greeksKey(b), "inputs within rounding tolerance share a key")

	c := b
	c.S = 100.2
	assert.NotEqual(t, greeksKey(b), greeksKey(c))

	d := b
	d.Type = domain.Put
	assert.NotEqual(t, greeksKey(b), greeksKey(d), "option type is part of the key")
}

func TestIVKey_DiscriminatesTarget(t *testing.T) {
	a := IVInputs{TargetPrice: 2.5, S: 100, K: 100, T: 0.25, R: 0.05, Type: domain.Call}
	b := a
	b.TargetPrice = 2.6
	assert.NotEqual(t, ivKey(a), ivKey(b))
}

func TestResultCache_EvictsLRU(t *testing.T) {
	c, err := newResultCache[int](2, 0)
	require.NoError(t, err)
	defer c.close()

	c.put("a", 1)
	c.put("b", 2)
	c.put("c", 3) // evicts "a"

	_, ok := c.get("a")
	assert.False(t, ok)
	v, ok := c.get("b")
	require.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, 2, c.len())
}

func TestResultCache_FlushTimerPurges(t *testing.T) {
	c, err := newResultCache[int](10, 10*time.Millisecond)
	require.NoError(t, err)
	defer c.close()

	c.put("a", 1)
	require.Eventually(t, func() bool { return c.len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestService_GreeksMemoized(t *testing.T) {
	svc, err := NewService(Config{Logger: &mockLogger{}})
	require.NoError(t, err)
	defer svc.Close()

	in := Inputs{S: 100, K: 100, T: 30.0 / 365.0, IV: 0.25, R: 0.05, Q: 0.02, Type: domain.Call}
	first := svc.Greeks(in)
	assert.Equal(t, 1, svc.greeks.len())

	// A second call with inputs inside rounding tolerance hits the cache.
	in.S = 100.00001
	second := svc.Greeks(in)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, svc.greeks.len())
}

func TestService_ImpliedVolCachesOnlySolvable(t *testing.T) {
	svc, err := NewService(Config{Logger: &mockLogger{}})
	require.NoError(t, err)
	defer svc.Close()

	solvable := IVInputs{TargetPrice: 2.9751, S: 100, K: 100, T: 30.0 / 365.0, R: 0.05, Q: 0.02, Type: domain.Call}
	r := svc.ImpliedVol(solvable)
	require.True(t, r.Solved())
	assert.Equal(t, 1, svc.iv.len())

	// No-solution rejects are cheap and not worth a cache slot.
	stale := IVInputs{TargetPrice: 5, S: 110, K: 100, T: 0.25, R: 0.05, Type: domain.Call}
	r = svc.ImpliedVol(stale)
	assert.Equal(t, IVNoSolution, r.Kind)
	assert.Equal(t, 1, svc.iv.len())
}

func TestService_StyleSelection(t *testing.T) {
	in := Inputs{S: 100, K: 100, T: 30.0 / 365.0, IV: 0.25, R: 0.05, Q: 0.02, Type: domain.Put}

	euro, err := NewService(Config{Logger: &mockLogger{}})
	require.NoError(t, err)
	defer euro.Close()

	amer, err := NewService(Config{Style: StyleAmerican, Logger: &mockLogger{}})
	require.NoError(t, err)
	defer amer.Close()

	assert.Equal(t, Price(in), euro.Price(in))
	assert.Equal(t, AmericanPrice(in), amer.Price(in))
	assert.Greater(t, amer.Price(in), euro.Price(in))
}

func TestNewService_RequiresLogger(t *testing.T) {
	_, err := NewService(Config{})
	assert.Error(t, err)
}
