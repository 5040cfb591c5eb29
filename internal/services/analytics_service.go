package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/commercelab/retail-analytics/internal/config"
	"github.com/commercelab/retail-analytics/internal/models"
)

// TransactionLoader supplies the transaction snapshot. Satisfied by
// database.TransactionRepository.
type TransactionLoader interface {
	LoadSnapshot(ctx context.Context) ([]models.Transaction, error)
}

// RunResult bundles the consolidated metrics with the full per-engine
// outputs for callers that want more than the summary.
type RunResult struct {
	RunID    string
	Duration time.Duration

	Metrics *models.ConsolidatedMetrics
	RFM     *models.RFMResult
	Cohort  *models.CohortResult
	ABTest  *models.ABTestResult
	Raw     *models.RawAggregates
}

// AnalyticsService orchestrates one analysis run: load, validate,
// fan out to the four engines, then consolidate. Engines are pure
// functions of the immutable snapshot, so they run concurrently.
type AnalyticsService struct {
	loader     TransactionLoader
	rfm        *RFMEngine
	cohort     *CohortEngine
	abtest     *ABTestEngine
	raw        *RawAggregatesEngine
	aggregator *Aggregator
	logger     *slog.Logger
}

// NewAnalyticsService wires the engines from configuration.
func NewAnalyticsService(cfg config.AnalysisConfig, loader TransactionLoader, logger *slog.Logger) *AnalyticsService {
	return &AnalyticsService{
		loader:     loader,
		rfm:        NewRFMEngine(cfg, logger),
		cohort:     NewCohortEngine(cfg, logger),
		abtest:     NewABTestEngine(cfg, logger),
		raw:        NewRawAggregatesEngine(cfg, logger),
		aggregator: NewAggregator(cfg, logger),
		logger:     logger.With("component", "analytics_service"),
	}
}

// Run executes a full analysis over the current transaction snapshot.
func (s *AnalyticsService) Run(ctx context.Context) (*RunResult, error) {
	runID := uuid.New().String()
	started := time.Now()

	s.logger.Info("Analysis run starting", "run_id", runID)

	txns, err := s.loader.LoadSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}

	snap, err := NewSnapshot(txns)
	if err != nil {
		return nil, fmt.Errorf("build snapshot: %w", err)
	}
	s.logger.Info("Snapshot validated",
		"run_id", runID,
		"transactions", len(snap.Transactions),
		"customers", snap.CustomerCount(),
		"analysis_date", snap.AnalysisDate.Format("2006-01-02"),
	)

	result := &RunResult{RunID: runID}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := s.rfm.Analyze(snap)
		if err != nil {
			return fmt.Errorf("rfm engine: %w", err)
		}
		result.RFM = out
		return nil
	})
	g.Go(func() error {
		out, err := s.cohort.Analyze(snap)
		if err != nil {
			return fmt.Errorf("cohort engine: %w", err)
		}
		result.Cohort = out
		return nil
	})
	g.Go(func() error {
		out, err := s.abtest.Analyze(snap)
		if err != nil {
			return fmt.Errorf("ab test engine: %w", err)
		}
		result.ABTest = out
		return nil
	})
	g.Go(func() error {
		out, err := s.raw.Analyze(snap)
		if err != nil {
			return fmt.Errorf("raw aggregates: %w", err)
		}
		result.Raw = out
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	metrics, err := s.aggregator.Consolidate(runID, snap, result.RFM, result.Cohort, result.ABTest, result.Raw)
	if err != nil {
		return nil, fmt.Errorf("consolidate: %w", err)
	}
	result.Metrics = metrics
	result.Duration = time.Since(started)

	s.logger.Info("Analysis run complete",
		"run_id", runID,
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result, nil
}
