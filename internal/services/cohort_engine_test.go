package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commercelab/retail-analytics/internal/models"
)

func TestMonthIndex(t *testing.T) {
	dec := date(2024, time.December, 31)
	feb := date(2025, time.February, 1)
	assert.Equal(t, 2, monthIndex(feb)-monthIndex(dec))
	assert.Equal(t, 0, monthIndex(date(2025, time.January, 1))-monthIndex(date(2025, time.January, 31)))
}

func TestMonthLabel(t *testing.T) {
	assert.Equal(t, "2024-12", monthLabel(monthIndex(date(2024, time.December, 15))))
	assert.Equal(t, "2025-01", monthLabel(monthIndex(date(2025, time.January, 2))))
}

// cohortTestSnapshot: customers 1 and 2 start in December 2024,
// customer 1 returns in January; customer 3 starts in January.
func cohortTestSnapshot(t *testing.T) *Snapshot {
	t.Helper()
	return mustSnapshot(t, []models.Transaction{
		txn(1, "INV001", date(2024, time.December, 5), 1, 100.0),
		txn(2, "INV002", date(2024, time.December, 20), 1, 50.0),
		txn(1, "INV003", date(2025, time.January, 10), 1, 30.0),
		txn(3, "INV004", date(2025, time.January, 15), 1, 80.0),
	})
}

func TestCohortEngine_Analyze(t *testing.T) {
	engine := NewCohortEngine(testAnalysisConfig(), testLogger())

	result, err := engine.Analyze(cohortTestSnapshot(t))
	require.NoError(t, err)

	require.Equal(t, []string{"2024-12", "2025-01"}, result.CohortMonths)
	require.Equal(t, 1, result.MaxAge)

	// December cohort: 2 customers at age 0, 1 back at age 1.
	dec := result.RetentionMatrix[0]
	require.True(t, dec[0].Valid)
	assert.InDelta(t, 100.0, dec[0].Value, 1e-9)
	require.True(t, dec[1].Valid)
	assert.InDelta(t, 50.0, dec[1].Value, 1e-9)

	// January cohort has not reached age 1: the cell is absent, not 0.
	jan := result.RetentionMatrix[1]
	require.True(t, jan[0].Valid)
	assert.InDelta(t, 100.0, jan[0].Value, 1e-9)
	assert.False(t, jan[1].Valid)
}

func TestCohortEngine_SummariesAndLTV(t *testing.T) {
	engine := NewCohortEngine(testAnalysisConfig(), testLogger())

	result, err := engine.Analyze(cohortTestSnapshot(t))
	require.NoError(t, err)
	require.Len(t, result.Summaries, 2)

	dec := result.Summaries[0]
	assert.Equal(t, "2024-12", dec.CohortMonth)
	assert.Equal(t, 2, dec.CohortSize)
	// 100 + 50 at age 0 plus 30 at age 1, over 2 customers.
	assert.True(t, dec.TotalRevenue.Equal(decimal.NewFromInt(180)), "got %s", dec.TotalRevenue)
	assert.True(t, dec.AvgLTV.Equal(decimal.NewFromInt(90)), "got %s", dec.AvgLTV)

	jan := result.Summaries[1]
	assert.Equal(t, 1, jan.CohortSize)
	assert.True(t, jan.TotalRevenue.Equal(decimal.NewFromInt(80)))
}

func TestCohortEngine_AveragesSkipMissingCells(t *testing.T) {
	engine := NewCohortEngine(testAnalysisConfig(), testLogger())

	result, err := engine.Analyze(cohortTestSnapshot(t))
	require.NoError(t, err)

	// Only the December cohort reached age 1, so the age-1 average is
	// its 50%, not (50 + 0) / 2.
	require.True(t, result.AvgRetentionByAge[1].Valid)
	assert.InDelta(t, 50.0, result.AvgRetentionByAge[1].Value, 1e-9)
	require.True(t, result.AvgChurnByAge[1].Valid)
	assert.InDelta(t, 50.0, result.AvgChurnByAge[1].Value, 1e-9)

	require.True(t, result.AvgRetentionByAge[0].Valid)
	assert.InDelta(t, 100.0, result.AvgRetentionByAge[0].Value, 1e-9)
}

func TestCohortEngine_ChurnTargets(t *testing.T) {
	engine := NewCohortEngine(testAnalysisConfig(), testLogger())

	result, err := engine.Analyze(cohortTestSnapshot(t))
	require.NoError(t, err)

	// Baseline month-1 churn 50%, reduced by the 14% target.
	require.True(t, result.BaselineMonth1Churn.Valid)
	assert.InDelta(t, 50.0, result.BaselineMonth1Churn.Value, 1e-9)
	require.True(t, result.TargetMonth1Churn.Valid)
	assert.InDelta(t, 43.0, result.TargetMonth1Churn.Value, 1e-9)
	assert.InDelta(t, 14.0, result.ChurnReductionPct, 1e-9)
}

func TestCohortEngine_SingleMonthHasNoChurnBaseline(t *testing.T) {
	engine := NewCohortEngine(testAnalysisConfig(), testLogger())
	snap := mustSnapshot(t, []models.Transaction{
		txn(1, "INV001", date(2025, time.January, 5), 1, 100.0),
		txn(2, "INV002", date(2025, time.January, 20), 1, 50.0),
	})

	result, err := engine.Analyze(snap)
	require.NoError(t, err)

	assert.Equal(t, 0, result.MaxAge)
	assert.False(t, result.BaselineMonth1Churn.Valid)
	assert.False(t, result.TargetMonth1Churn.Valid)
}

func TestCohortEngine_EntriesMatchMatrix(t *testing.T) {
	engine := NewCohortEngine(testAnalysisConfig(), testLogger())

	result, err := engine.Analyze(cohortTestSnapshot(t))
	require.NoError(t, err)

	// One entry per observed (cohort, age) cell: Dec 0, Dec 1, Jan 0.
	require.Len(t, result.Entries, 3)
	assert.Equal(t, models.CohortEntry{
		CohortMonth:      "2024-12",
		MonthsSinceFirst: 1,
		Customers:        1,
		Revenue:          decimal.NewFromInt(30),
	}, result.Entries[1])
}
