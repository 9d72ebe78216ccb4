package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"tradeledger/config"
	"tradeledger/internal/adapters/logger"
	"tradeledger/internal/domain"
	"tradeledger/internal/pricing"
)

// optcalc prices a single option contract from the command line: model
// price, greeks, early-exercise test, and optionally the implied volatility
// backed out from a market price.
func main() {
	spot := flag.Float64("spot", 0, "underlying spot price")
	strike := flag.Float64("strike", 0, "strike price")
	expiryStr := flag.String("expiry", "", "expiration date (2006-01-02)")
	years := flag.Float64("years", 0, "time to expiry in years (overrides -expiry)")
	vol := flag.Float64("vol", 0.30, "annualized volatility")
	optType := flag.String("type", "call", "option type: call or put")
	target := flag.Float64("market", 0, "market price to back an implied vol out of (0 = skip)")
	flag.Parse()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.NewStdLogger(cfg.LogLevel)

	typ := domain.OptionType(*optType)
	if typ != domain.Call && typ != domain.Put {
		log.Fatalf("FATAL: invalid -type '%s' (want call or put)", *optType)
	}
	if *spot <= 0 || *strike <= 0 {
		log.Fatalf("FATAL: -spot and -strike must be positive")
	}

	t := *years
	if t == 0 {
		if *expiryStr == "" {
			log.Fatalf("FATAL: provide -expiry or -years")
		}
		expiry, err := time.Parse("2006-01-02", *expiryStr)
		if err != nil {
			log.Fatalf("FATAL: bad -expiry '%s': %v", *expiryStr, err)
		}
		t = pricing.YearsToExpiry(time.Now(), expiry, cfg.DayCount)
	}

	// 3. Initialize Pricing Service
	pricer, err := pricing.NewService(pricing.Config{
		Style:           cfg.PricingStyle,
		IVCacheSize:     cfg.IVCacheSize,
		GreeksCacheSize: cfg.GreeksCacheSize,
		FlushInterval:   cfg.CacheFlushInterval,
		Logger:          appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize pricing service")
		log.Fatalf("FATAL: Failed to initialize pricing service: %v", err)
	}
	defer pricer.Close()

	in := pricing.Inputs{
		S:    *spot,
		K:    *strike,
		T:    t,
		IV:   *vol,
		R:    cfg.RiskFreeRate,
		Q:    cfg.DividendYield,
		Type: typ,
	}

	g := pricer.Greeks(in)
	fmt.Printf("%s %s strike=%.2f spot=%.2f T=%.6fy vol=%.4f r=%.4f q=%.4f\n",
		cfg.PricingStyle, typ, *strike, *spot, t, *vol, cfg.RiskFreeRate, cfg.DividendYield)
	fmt.Printf("  price:  %.4f\n", g.Price)
	fmt.Printf("  delta:  %.4f\n", g.Delta)
	fmt.Printf("  gamma:  %.4f\n", g.Gamma)
	fmt.Printf("  theta:  %.4f (per calendar day)\n", g.Theta)
	fmt.Printf("  vega:   %.4f (per vol point)\n", g.Vega)
	fmt.Printf("  rho:    %.4f (per 1%% rate)\n", g.Rho)
	fmt.Printf("  early exercise optimal: %v\n", pricer.IsEarlyExerciseOptimal(in))

	if *target > 0 {
		r := pricer.ImpliedVol(pricing.IVInputs{
			TargetPrice: *target,
			S:           *spot,
			K:           *strike,
			T:           t,
			R:           cfg.RiskFreeRate,
			Q:           cfg.DividendYield,
			Type:        typ,
		})
		if r.Solved() {
			fmt.Printf("  implied vol: %.6f", r.IV)
			if r.Note != "" {
				fmt.Printf(" (%s)", r.Note)
			}
			fmt.Println()
		} else {
			fmt.Printf("  implied vol: no solution (%s)\n", r.Note)
		}
	}
}
