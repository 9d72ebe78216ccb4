package main

import (
	"context"
	"flag"
	"log"

	"github.com/google/uuid"

	"tradeledger/config"
	"tradeledger/internal/adapters/logger"
	"tradeledger/internal/adapters/sqlite"
	"tradeledger/internal/utils"
)

// loadexecs imports a normalized execution CSV into the database, tagging
// the batch with a fresh ingestion run ID so it can be matched in isolation.
func main() {
	fileFlag := flag.String("file", "", "path to the execution CSV to import")
	userFlag := flag.String("user", "", "user ID to assign when the CSV user_id column is empty")
	flag.Parse()

	if *fileFlag == "" {
		log.Fatalf("FATAL: -file is required")
	}

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
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
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err)
	}
	defer repo.Close()

	// 4. Parse the CSV
	execs, err := utils.ReadExecutionsFromCSV(*fileFlag)
	if err != nil {
		appLogger.Error(context.Background(), err, "Error reading execution CSV", map[string]interface{}{"file": *fileFlag})
		log.Fatalf("Error reading execution CSV: %v", err)
	}

	// 5. Tag the batch and fill gaps left by the export
	runID := uuid.NewString()
	for _, exec := range execs {
		exec.IngestionRunID = runID
		if exec.ID == "" {
			exec.ID = uuid.NewString()
		}
		if exec.UserID == "" {
			exec.UserID = *userFlag
		}
	}

	// 6. Persist
	if err := repo.SaveExecutions(context.Background(), execs); err != nil {
		appLogger.Error(context.Background(), err, "Error saving executions")
		log.Fatalf("Error saving executions: %v", err)
	}
	appLogger.Info(context.Background(), "Import complete", map[string]interface{}{
		"file": *fileFlag, "count": len(execs), "ingestionRunID": runID,
	})
}
