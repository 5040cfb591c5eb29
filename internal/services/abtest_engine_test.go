package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commercelab/retail-analytics/internal/models"
)

func TestABTestEngine_GroupSplitAndRevenue(t *testing.T) {
	engine := NewABTestEngine(testAnalysisConfig(), testLogger())
	day := date(2025, time.January, 10)

	// Control billed 1000; Treatment billed 1250 but paid 1100 after a
	// 300 x 0.5 discount.
	snap := mustSnapshot(t, []models.Transaction{
		txn(1, "INV001", day, 10, 60.0),
		txn(2, "INV002", day, 10, 40.0),
		txn(3, "INV003", day, 10, 95.0, withGroup(models.GroupTreatment, 0)),
		txn(4, "INV004", day, 10, 30.0, withGroup(models.GroupTreatment, 0.5)),
	})

	result, err := engine.Analyze(snap)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Control.Customers)
	assert.Equal(t, 2, result.Treatment.Customers)
	assert.True(t, result.Control.Revenue.Equal(decimal.NewFromInt(1000)), "got %s", result.Control.Revenue)
	assert.True(t, result.Treatment.Revenue.Equal(decimal.NewFromInt(1100)), "got %s", result.Treatment.Revenue)
	assert.True(t, result.TreatmentCost.Equal(decimal.NewFromInt(150)), "got %s", result.TreatmentCost)
	assert.InDelta(t, 10.0, result.RevenueUpliftPct, 1e-9)
}

func TestABTestEngine_ROI(t *testing.T) {
	engine := NewABTestEngine(testAnalysisConfig(), testLogger())
	day := date(2025, time.January, 10)

	// Control billed 5000; Treatment paid 4500 with 600 given away in
	// discounts. ROI = (4500 - 5000 - 600) / 600 = -183.33%.
	snap := mustSnapshot(t, []models.Transaction{
		txn(1, "INV001", day, 50, 100.0),
		txn(2, "INV002", day, 39, 100.0, withGroup(models.GroupTreatment, 0)),
		txn(3, "INV003", day, 12, 100.0, withGroup(models.GroupTreatment, 0.5)),
	})

	result, err := engine.Analyze(snap)
	require.NoError(t, err)

	assert.True(t, result.Treatment.Revenue.Equal(decimal.NewFromInt(4500)), "got %s", result.Treatment.Revenue)
	assert.True(t, result.TreatmentCost.Equal(decimal.NewFromInt(600)))
	assert.InDelta(t, -183.3333, result.ROIPct, 1e-3)
	assert.InDelta(t, -10.0, result.RevenueUpliftPct, 1e-9)
}

func TestABTestEngine_ROIZeroWhenNoDiscountGiven(t *testing.T) {
	engine := NewABTestEngine(testAnalysisConfig(), testLogger())
	day := date(2025, time.January, 10)

	snap := mustSnapshot(t, []models.Transaction{
		txn(1, "INV001", day, 10, 50.0),
		txn(2, "INV002", day, 10, 60.0, withGroup(models.GroupTreatment, 0)),
	})

	result, err := engine.Analyze(snap)
	require.NoError(t, err)

	assert.True(t, result.TreatmentCost.IsZero())
	assert.Equal(t, 0.0, result.ROIPct)
	assert.InDelta(t, 20.0, result.RevenueUpliftPct, 1e-9)
}

func TestABTestEngine_RepeatRate(t *testing.T) {
	engine := NewABTestEngine(testAnalysisConfig(), testLogger())
	day := date(2025, time.January, 10)

	// Customer 1 orders twice (repeat), customer 2 once. Customer 3
	// places two rows on one invoice: still a single order.
	snap := mustSnapshot(t, []models.Transaction{
		txn(1, "INV001", day, 1, 10.0),
		txn(1, "INV002", day.AddDate(0, 0, 5), 1, 10.0),
		txn(2, "INV003", day, 1, 10.0),
		txn(3, "INV004", day, 1, 10.0, withGroup(models.GroupTreatment, 0)),
		txn(3, "INV004", day, 2, 5.0, withGroup(models.GroupTreatment, 0),
			withProduct("SKU002", "REGENCY CAKESTAND 3 TIER")),
	})

	result, err := engine.Analyze(snap)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Control.RepeatCustomers)
	assert.InDelta(t, 50.0, result.Control.RepeatRate, 1e-9)
	assert.Equal(t, 0, result.Treatment.RepeatCustomers)
	assert.Equal(t, 0.0, result.Treatment.RepeatRate)
	assert.InDelta(t, -50.0, result.RepeatRateUpliftPP, 1e-9)
}

func TestABTestEngine_OrderFrequencyAndAOV(t *testing.T) {
	engine := NewABTestEngine(testAnalysisConfig(), testLogger())
	day := date(2025, time.January, 10)

	// Control: 1 order per customer, AOV 100. Treatment: 2 orders per
	// customer, AOV 50.
	snap := mustSnapshot(t, []models.Transaction{
		txn(1, "INV001", day, 1, 100.0),
		txn(2, "INV002", day, 1, 100.0),
		txn(3, "INV003", day, 1, 50.0, withGroup(models.GroupTreatment, 0)),
		txn(3, "INV004", day.AddDate(0, 0, 1), 1, 50.0, withGroup(models.GroupTreatment, 0)),
		txn(4, "INV005", day, 1, 50.0, withGroup(models.GroupTreatment, 0)),
		txn(4, "INV006", day.AddDate(0, 0, 2), 1, 50.0, withGroup(models.GroupTreatment, 0)),
	})

	result, err := engine.Analyze(snap)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, result.Control.AvgOrdersPerCustomer, 1e-9)
	assert.InDelta(t, 2.0, result.Treatment.AvgOrdersPerCustomer, 1e-9)
	assert.InDelta(t, 100.0, result.OrderFrequencyUpliftPct, 1e-9)
	assert.InDelta(t, 100.0, result.Control.AvgOrderValue, 1e-9)
	assert.InDelta(t, 50.0, result.Treatment.AvgOrderValue, 1e-9)
	assert.InDelta(t, -50.0, result.AOVChangePct, 1e-9)
}

func TestABTestEngine_IndeterminateTinyGroups(t *testing.T) {
	engine := NewABTestEngine(testAnalysisConfig(), testLogger())
	day := date(2025, time.January, 10)

	snap := mustSnapshot(t, []models.Transaction{
		txn(1, "INV001", day, 1, 100.0),
		txn(2, "INV002", day, 1, 90.0, withGroup(models.GroupTreatment, 0)),
	})

	result, err := engine.Analyze(snap)
	require.NoError(t, err)

	assert.True(t, result.RevenueTest.Indeterminate)
	assert.False(t, result.RevenueTest.Significant)
	assert.True(t, result.OrdersTest.Indeterminate)
	assert.True(t, result.ControlRevenueCI.Indeterminate)
	assert.True(t, result.TreatmentRevenueCI.Indeterminate)
}

func TestABTestEngine_CustomerLevelStatistics(t *testing.T) {
	engine := NewABTestEngine(testAnalysisConfig(), testLogger())
	day := date(2025, time.January, 10)

	// One heavy buyer repeats many times; run the t-test over customer
	// aggregates, so the sample sizes are 2 and 2, not row counts.
	snap := mustSnapshot(t, []models.Transaction{
		txn(1, "INV001", day, 1, 100.0),
		txn(1, "INV002", day.AddDate(0, 0, 1), 1, 100.0),
		txn(1, "INV003", day.AddDate(0, 0, 2), 1, 100.0),
		txn(2, "INV004", day, 1, 50.0),
		txn(3, "INV005", day, 1, 120.0, withGroup(models.GroupTreatment, 0)),
		txn(4, "INV006", day, 1, 60.0, withGroup(models.GroupTreatment, 0)),
	})

	result, err := engine.Analyze(snap)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Control.Customers)
	assert.Equal(t, 2, result.Treatment.Customers)
	assert.False(t, result.RevenueTest.Indeterminate)
	// Control customer means: 300 and 50. Treatment: 120 and 60.
	assert.InDelta(t, 175.0, result.Control.AvgRevenuePerCustomer, 1e-9)
	assert.InDelta(t, 90.0, result.Treatment.AvgRevenuePerCustomer, 1e-9)
}
