// Command sweep processes every due recurring transaction that has
// auto-processing enabled. It is meant to run from cron.
package main

import (
	"fmt"
	"os"

	"caudal/internal/database"
	"caudal/internal/logger"
	"caudal/internal/services"
)

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Sweep error: %v", err)
	}
}

func run() error {
	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	db := dbManager.DB()
	accountService := services.NewAccountService(db)
	categoryService := services.NewCategoryService(db)
	recurringService := services.NewRecurringService(db, accountService, categoryService)

	summary, err := recurringService.ProcessDueAutoRecurring()
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}

	logger.Get().Infof("Sweep complete: %d processed, %d deactivated, %d failed",
		summary.Processed, summary.Deactivated, len(summary.Failed))
	return nil
}
