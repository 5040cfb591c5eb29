package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/commercelab/retail-analytics/internal/config"
	"github.com/commercelab/retail-analytics/internal/database"
	"github.com/commercelab/retail-analytics/internal/export"
	"github.com/commercelab/retail-analytics/internal/logging"
	"github.com/commercelab/retail-analytics/internal/services"
)

const serviceVersion = "1.0.0"

func main() {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.NewStandardLogger(cfg.LogLevel, cfg.Environment)
	logger.LogStartup("retail-analytics", serviceVersion)
	logrus.SetLevel(logging.ParseLogrusLevel(cfg.LogLevel))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Error("Analysis run failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *logging.StandardLogger) error {
	db, err := database.NewPostgresConnection(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	var cache export.Cache
	if cfg.Redis.Enabled {
		redisClient, err := database.NewRedisConnection(cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer redisClient.Close()
		cache = redisClient
	}

	repo := database.NewTransactionRepository(db.Pool)
	service := services.NewAnalyticsService(cfg.Analysis, repo, logger.Logger())

	result, err := service.Run(ctx)
	if err != nil {
		return err
	}

	exporter := export.NewExporter(cfg.Export, cache, logger.Logger())
	if err := exporter.Export(ctx, result.Metrics); err != nil {
		return err
	}

	logger.LogRunComplete(result.RunID, result.Duration.Milliseconds(),
		result.Metrics.Overview.TotalOrders, result.Metrics.Overview.TotalCustomers)

	printSummary(result)
	return nil
}

// printSummary writes a human-readable digest to stdout. The JSON
// export is the machine-readable artifact; this is for the operator
// watching the run.
func printSummary(result *services.RunResult) {
	p := message.NewPrinter(language.English)
	m := result.Metrics

	p.Printf("\n=== Customer Analytics Summary (run %s) ===\n", m.RunID)
	p.Printf("Period: %s to %s (%d months)\n",
		m.AnalysisPeriod.StartDate, m.AnalysisPeriod.EndDate, m.AnalysisPeriod.DurationMonths)
	p.Printf("Customers: %d  Orders: %d  Revenue: %s\n",
		m.Overview.TotalCustomers, m.Overview.TotalOrders, m.Overview.TotalRevenue.StringFixed(2))
	p.Printf("Top segment: %s (%.1f%% of revenue)\n",
		m.Segmentation.TopSegment, m.Segmentation.TopSegmentRevenuePct)
	if m.Retention.Month1RetentionPct.Valid {
		p.Printf("Month-1 retention: %.1f%%\n", m.Retention.Month1RetentionPct.Value)
	}
	p.Printf("Discount test: uplift %.2f%%, ROI %.2f%%, p=%.4f\n",
		m.ABTesting.RevenueUpliftPct, m.ABTesting.ROIPct, m.ABTesting.PValue)
	p.Printf("Recommendation: %s\n", m.ABTesting.Recommendation)
	p.Printf("Top 20%% of customers hold %.1f%% of revenue\n",
		m.RevenueConcentration.Top20PctRevenueSharePct)
}
