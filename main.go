package main

import (
	"context"
	"flag"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"strings"

	"tradeledger/config"
	"tradeledger/internal/adapters/logger"
	"tradeledger/internal/adapters/sqlite"
	"tradeledger/internal/app"
	"tradeledger/internal/matching"
	"tradeledger/internal/pricing"
)

func main() {
	userFlag := flag.String("user", "", "user ID to match (overrides MATCH_USER_ID)")
	symbolsFlag := flag.String("symbols", "", "comma-separated symbols to rebuild (default: all)")
	runFlag := flag.String("run", "", "restrict matching to one ingestion run ID")
	flag.Parse()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	userID := *userFlag
	if userID == "" {
		userID = cfg.MatchUserID
	}
	if userID == "" {
		log.Fatalf("FATAL: No user to match: set MATCH_USER_ID or pass -user")
	}

	// 2. Initialize Logger
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize database repository")
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err) // Also log to stderr
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing database repository")
		}
	}()

	// 4. Initialize Pricing Service
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

	// 5. Initialize Matching Engine
	engine, err := matching.NewEngine(matching.Config{
		Logger:    appLogger,
		ExecRepo:  repo,
		TradeRepo: repo,
		Pricer:    pricer,
		Workers:   cfg.MatchWorkers,
		WindowGap: cfg.OptionWindowGap,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize matching engine")
		log.Fatalf("FATAL: Failed to initialize matching engine: %v", err)
	}

	// 6. Initialize Application Service
	matchService, err := app.NewMatchService(cfg, appLogger, engine, pricer, repo)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize match service")
		log.Fatalf("FATAL: Failed to initialize match service: %v", err)
	}

	// 7. Run the match
	opts := matching.MatchOptions{IngestionRunID: *runFlag}
	if *symbolsFlag != "" {
		opts.Symbols = strings.Split(*symbolsFlag, ",")
	}
	if _, err := matchService.Run(context.Background(), userID, opts); err != nil {
		appLogger.Error(context.Background(), err, "Match service exited with error")
		log.Fatalf("FATAL: Match service exited with error: %v", err)
	}

	appLogger.Info(context.Background(), "Application finished gracefully.")
}
