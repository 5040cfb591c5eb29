package services

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/commercelab/retail-analytics/internal/config"
	"github.com/commercelab/retail-analytics/internal/models"
)

// CohortEngine groups customers into acquisition-month cohorts and
// tracks how each cohort keeps transacting over time.
type CohortEngine struct {
	churnReductionTarget float64
	logger               *slog.Logger
}

// NewCohortEngine creates a cohort engine with the configured churn
// reduction target.
func NewCohortEngine(cfg config.AnalysisConfig, logger *slog.Logger) *CohortEngine {
	return &CohortEngine{
		churnReductionTarget: cfg.ChurnReductionTarget,
		logger:               logger,
	}
}

// monthIndex flattens a date to a comparable year-month integer so
// elapsed months are an integer difference regardless of day-of-month
// or year boundaries (Dec 2024 to Feb 2025 is 2).
func monthIndex(t time.Time) int {
	return t.Year()*12 + int(t.Month()) - 1
}

func monthLabel(idx int) string {
	return fmt.Sprintf("%04d-%02d", idx/12, idx%12+1)
}

// Analyze builds the cohort entry set and the retention and revenue
// matrices. Matrix cells an older cohort has not reached stay invalid;
// they mean "no data yet", never 0%.
func (e *CohortEngine) Analyze(snap *Snapshot) (*models.CohortResult, error) {
	start := time.Now()

	// Cohort month per customer: calendar month of the earliest
	// transaction.
	cohortOf := make(map[int64]int)
	for _, t := range snap.Transactions {
		idx := monthIndex(t.InvoiceDate)
		if existing, ok := cohortOf[t.CustomerID]; !ok || idx < existing {
			cohortOf[t.CustomerID] = idx
		}
	}

	type cellKey struct {
		cohort int
		age    int
	}
	cellCustomers := make(map[cellKey]map[int64]struct{})
	cellRevenue := make(map[cellKey]decimal.Decimal)

	for _, t := range snap.Transactions {
		cohort := cohortOf[t.CustomerID]
		age := monthIndex(t.InvoiceDate) - cohort
		key := cellKey{cohort: cohort, age: age}
		if cellCustomers[key] == nil {
			cellCustomers[key] = make(map[int64]struct{})
		}
		cellCustomers[key][t.CustomerID] = struct{}{}
		cellRevenue[key] = cellRevenue[key].Add(t.Revenue())
	}

	cohortSet := make(map[int]struct{})
	maxAge := 0
	for key := range cellCustomers {
		cohortSet[key.cohort] = struct{}{}
		if key.age > maxAge {
			maxAge = key.age
		}
	}
	cohortIdxs := make([]int, 0, len(cohortSet))
	for idx := range cohortSet {
		cohortIdxs = append(cohortIdxs, idx)
	}
	sort.Ints(cohortIdxs)

	result := &models.CohortResult{
		CohortMonths:    make([]string, len(cohortIdxs)),
		MaxAge:          maxAge,
		RetentionMatrix: make([][]models.Rate, len(cohortIdxs)),
		RevenueMatrix:   make([][]models.Rate, len(cohortIdxs)),
	}

	for row, cohort := range cohortIdxs {
		label := monthLabel(cohort)
		result.CohortMonths[row] = label

		base, ok := cellCustomers[cellKey{cohort: cohort, age: 0}]
		if !ok || len(base) == 0 {
			return nil, fmt.Errorf("%w: cohort %s has no age-0 entry", ErrDataIntegrity, label)
		}
		cohortSize := len(base)

		retention := make([]models.Rate, maxAge+1)
		revenue := make([]models.Rate, maxAge+1)
		totalRevenue := decimal.Zero
		for age := 0; age <= maxAge; age++ {
			key := cellKey{cohort: cohort, age: age}
			set, ok := cellCustomers[key]
			if !ok {
				continue
			}
			rev := cellRevenue[key]
			result.Entries = append(result.Entries, models.CohortEntry{
				CohortMonth:      label,
				MonthsSinceFirst: age,
				Customers:        len(set),
				Revenue:          rev,
			})
			retention[age] = models.ValidRate(float64(len(set)) / float64(cohortSize) * 100)
			revenue[age] = models.ValidRate(rev.InexactFloat64())
			totalRevenue = totalRevenue.Add(rev)
		}
		result.RetentionMatrix[row] = retention
		result.RevenueMatrix[row] = revenue

		result.Summaries = append(result.Summaries, models.CohortSummary{
			CohortMonth:  label,
			CohortSize:   cohortSize,
			TotalRevenue: totalRevenue,
			AvgLTV:       totalRevenue.Div(decimal.NewFromInt(int64(cohortSize))),
		})
	}

	e.summarizeByAge(result)
	e.deriveChurnTargets(result)

	e.logger.Info("Cohort analysis complete",
		"cohorts", len(cohortIdxs),
		"max_age_months", maxAge,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// summarizeByAge averages retention per elapsed month over the cohorts
// that have reached that age. Missing cells are skipped, not counted as
// zero.
func (e *CohortEngine) summarizeByAge(result *models.CohortResult) {
	result.AvgRetentionByAge = make([]models.Rate, result.MaxAge+1)
	result.MedianRetentionByAge = make([]models.Rate, result.MaxAge+1)
	result.AvgChurnByAge = make([]models.Rate, result.MaxAge+1)

	for age := 0; age <= result.MaxAge; age++ {
		var observed []float64
		for _, row := range result.RetentionMatrix {
			if row[age].Valid {
				observed = append(observed, row[age].Value)
			}
		}
		if len(observed) == 0 {
			continue
		}
		avg := mean(observed)
		result.AvgRetentionByAge[age] = models.ValidRate(avg)
		result.MedianRetentionByAge[age] = models.ValidRate(median(observed))
		result.AvgChurnByAge[age] = models.ValidRate(100 - avg)
	}
}

// deriveChurnTargets sets the month-1 churn baseline and the reduction
// target. The target is a policy constant applied to the baseline, not
// a data-derived value.
func (e *CohortEngine) deriveChurnTargets(result *models.CohortResult) {
	if result.MaxAge < 1 || !result.AvgChurnByAge[1].Valid {
		return
	}
	baseline := result.AvgChurnByAge[1].Value
	target := baseline * (1 - e.churnReductionTarget)
	result.BaselineMonth1Churn = models.ValidRate(baseline)
	result.TargetMonth1Churn = models.ValidRate(target)
	if baseline > 0 {
		result.ChurnReductionPct = (baseline - target) / baseline * 100
	}
}
