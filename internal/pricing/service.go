package pricing

import (
	"fmt"
	"time"

	"tradeledger/internal/ports"
)

// Style selects the exercise style a Service prices with.
type Style string

const (
	StyleEuropean Style = "european"
	StyleAmerican Style = "american"
)

// Config holds construction parameters for the pricing service.
type Config struct {
	Style           Style         // Defaults to European
	IVCacheSize     int           // Defaults to 200 entries
	GreeksCacheSize int           // Defaults to 500 entries
	FlushInterval   time.Duration // Periodic hard clear; 0 disables the timer
	Logger          ports.Logger
}

// Service is the injectable option pricer. It owns the two result caches and
// their flush timers; no package-level state. A Service is safe for
// concurrent use.
type Service struct {
	style  Style
	logger ports.Logger
	iv     *resultCache[IVResult]
	greeks *resultCache[Greeks]
}

// NewService creates a pricing service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for pricing service")
	}
	if cfg.Style == "" {
		cfg.Style = StyleEuropean
	}
	if cfg.IVCacheSize <= 0 {
		cfg.IVCacheSize = 200
	}
	if cfg.GreeksCacheSize <= 0 {
		cfg.GreeksCacheSize = 500
	}

	ivCache, err := newResultCache[IVResult](cfg.IVCacheSize, cfg.FlushInterval)
	if err != nil {
		return nil, err
	}
	greeksCache, err := newResultCache[Greeks](cfg.GreeksCacheSize, cfg.FlushInterval)
	if err != nil {
		ivCache.close()
		return nil, err
	}

	return &Service{
		style:  cfg.Style,
		logger: cfg.Logger,
		iv:     ivCache,
		greeks: greeksCache,
	}, nil
}

// Close stops the cache flush timers.
func (s *Service) Close() {
	s.iv.close()
	s.greeks.close()
}

// Price returns the model price under the configured exercise style.
func (s *Service) Price(in Inputs) float64 {
	if s.style == StyleAmerican {
		return AmericanPrice(in)
	}
	return Price(in)
}

// Greeks returns the price and sensitivities, memoized on rounded inputs.
func (s *Service) Greeks(in Inputs) Greeks {
	key := greeksKey(in)
	if g, ok := s.greeks.get(key); ok {
		return g
	}

	var g Greeks
	if s.style == StyleAmerican {
		g = AmericanGreeks(in)
	} else {
		g = ComputeGreeks(in)
	}
	s.greeks.put(key, g)
	return g
}

// ImpliedVol solves for implied volatility. Successful and unstable results
// are cached; no-solution outcomes are recomputed (they are cheap rejects).
func (s *Service) ImpliedVol(in IVInputs) IVResult {
	key := ivKey(in)
	if r, ok := s.iv.get(key); ok {
		return r
	}

	r := SolveImpliedVol(in)
	if r.Kind != IVNoSolution {
		s.iv.put(key, r)
	}
	return r
}

// IsEarlyExerciseOptimal reports the American early-exercise test.
func (s *Service) IsEarlyExerciseOptimal(in Inputs) bool {
	return IsEarlyExerciseOptimal(in)
}
