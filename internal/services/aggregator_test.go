package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commercelab/retail-analytics/internal/config"
	"github.com/commercelab/retail-analytics/internal/models"
)

func rfmCustomer(id int64, monetary float64, rScore int) models.CustomerRFM {
	return models.CustomerRFM{
		CustomerID: id,
		Monetary:   decimal.NewFromFloat(monetary),
		RScore:     rScore,
	}
}

func TestAggregator_RevenueConcentration(t *testing.T) {
	cfg := testAnalysisConfig()
	cfg.TopCustomerFractions = config.TopCustomerFractions{Narrow: 0.5, Broad: 0.75}
	agg := NewAggregator(cfg, testLogger())

	// Total 1000. Top 2 of 4 hold 700, top 3 hold 900.
	customers := []models.CustomerRFM{
		rfmCustomer(1, 100, 3),
		rfmCustomer(2, 200, 3),
		rfmCustomer(3, 300, 3),
		rfmCustomer(4, 400, 3),
	}

	c := agg.revenueConcentration(customers)
	assert.InDelta(t, 70.0, c.Top10PctRevenueSharePct, 1e-9)
	assert.InDelta(t, 90.0, c.Top20PctRevenueSharePct, 1e-9)
	assert.GreaterOrEqual(t, c.Top20PctRevenueSharePct, c.Top10PctRevenueSharePct)
}

func TestAggregator_RevenueConcentrationFloorsCount(t *testing.T) {
	agg := NewAggregator(testAnalysisConfig(), testLogger())

	// 10% of 4 customers floors to 0: no customers, 0% share.
	customers := []models.CustomerRFM{
		rfmCustomer(1, 100, 3),
		rfmCustomer(2, 200, 3),
		rfmCustomer(3, 300, 3),
		rfmCustomer(4, 400, 3),
	}

	c := agg.revenueConcentration(customers)
	assert.Equal(t, 0.0, c.Top10PctRevenueSharePct)
}

func TestAggregator_ChurnRisk(t *testing.T) {
	agg := NewAggregator(testAnalysisConfig(), testLogger())

	rfm := &models.RFMResult{
		Customers: []models.CustomerRFM{
			rfmCustomer(1, 100, 1),
			rfmCustomer(2, 200, 2),
			rfmCustomer(3, 300, 3),
			rfmCustomer(4, 400, 5),
		},
		TotalRevenue: decimal.NewFromInt(1000),
	}

	m := agg.churnRisk(rfm)
	assert.Equal(t, 2, m.HighRiskCustomers)
	assert.InDelta(t, 50.0, m.HighRiskPct, 1e-9)
	assert.True(t, m.RevenueAtRisk.Equal(decimal.NewFromInt(300)), "got %s", m.RevenueAtRisk)
	assert.InDelta(t, 30.0, m.RevenueAtRiskPct, 1e-9)
}

func TestAggregator_JoinKeyValidation(t *testing.T) {
	agg := NewAggregator(testAnalysisConfig(), testLogger())

	validRFM := &models.RFMResult{
		Segments: []models.SegmentSummary{{Segment: models.SegmentChampions}},
	}
	validCohort := &models.CohortResult{CohortMonths: []string{"2025-01"}}
	validRaw := &models.RawAggregates{
		RevenueByMonth:      []models.MonthlyRevenue{{YearMonth: "2025-01"}},
		CustomerAcquisition: []models.CustomerAcquisition{{Month: "2025-01"}},
	}

	tests := []struct {
		name   string
		rfm    *models.RFMResult
		cohort *models.CohortResult
		raw    *models.RawAggregates
	}{
		{
			name: "unknown segment label",
			rfm: &models.RFMResult{
				Segments: []models.SegmentSummary{{Segment: "Whales"}},
			},
			cohort: validCohort,
			raw:    validRaw,
		},
		{
			name:   "cohort month missing from monthly revenue",
			rfm:    validRFM,
			cohort: &models.CohortResult{CohortMonths: []string{"2025-02"}},
			raw:    validRaw,
		},
		{
			name:   "acquisition month missing from cohorts",
			rfm:    validRFM,
			cohort: &models.CohortResult{CohortMonths: []string{"2025-01"}},
			raw: &models.RawAggregates{
				RevenueByMonth: []models.MonthlyRevenue{
					{YearMonth: "2025-01"}, {YearMonth: "2025-02"},
				},
				CustomerAcquisition: []models.CustomerAcquisition{{Month: "2025-02"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := agg.validateJoinKeys(tt.rfm, tt.cohort, tt.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrJoinMismatch)
		})
	}

	assert.NoError(t, agg.validateJoinKeys(validRFM, validCohort, validRaw))
}

func TestRecommend(t *testing.T) {
	tests := []struct {
		name     string
		ab       *models.ABTestResult
		expected string
	}{
		{
			name: "significant positive uplift with positive roi",
			ab: &models.ABTestResult{
				RevenueUpliftPct: 12.0,
				ROIPct:           40.0,
				RevenueTest:      models.TTestResult{Significant: true},
			},
			expected: RecommendImplement,
		},
		{
			name: "positive uplift but not significant",
			ab: &models.ABTestResult{
				RevenueUpliftPct: 5.0,
				ROIPct:           10.0,
				RevenueTest:      models.TTestResult{Significant: false},
			},
			expected: RecommendKeepTesting,
		},
		{
			name: "significant but negative roi",
			ab: &models.ABTestResult{
				RevenueUpliftPct: 8.0,
				ROIPct:           -20.0,
				RevenueTest:      models.TTestResult{Significant: true},
			},
			expected: RecommendReject,
		},
		{
			name: "negative uplift",
			ab: &models.ABTestResult{
				RevenueUpliftPct: -3.0,
				RevenueTest:      models.TTestResult{Significant: true},
			},
			expected: RecommendReject,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, recommend(tt.ab))
		})
	}
}

// consolidateFixture runs the real engines end to end on one snapshot.
func consolidateFixture(t *testing.T) (*Snapshot, *models.ConsolidatedMetrics) {
	t.Helper()
	cfg := testAnalysisConfig()
	logger := testLogger()

	snap := mustSnapshot(t, []models.Transaction{
		txn(1, "INV001", date(2024, time.December, 5), 2, 50.0),
		txn(1, "INV002", date(2025, time.January, 8), 1, 30.0,
			withProduct("SKU002", "REGENCY CAKESTAND 3 TIER")),
		txn(2, "INV003", date(2024, time.December, 12), 1, 80.0,
			withProduct("SKU003", "JUMBO BAG RED RETROSPOT")),
		txn(3, "INV004", date(2025, time.January, 15), 3, 20.0, withGroup(models.GroupTreatment, 0.25),
			withProduct("SKU004", "PARTY BUNTING")),
		txn(4, "INV005", date(2025, time.January, 20), 1, 45.0, withGroup(models.GroupTreatment, 0),
			withProduct("SKU005", "ASSORTED COLOUR BIRD ORNAMENT")),
		txn(4, "INV006", date(2025, time.February, 3), 2, 15.0, withGroup(models.GroupTreatment, 0)),
	})

	rfm, err := NewRFMEngine(cfg, logger).Analyze(snap)
	require.NoError(t, err)
	cohort, err := NewCohortEngine(cfg, logger).Analyze(snap)
	require.NoError(t, err)
	ab, err := NewABTestEngine(cfg, logger).Analyze(snap)
	require.NoError(t, err)
	raw, err := NewRawAggregatesEngine(cfg, logger).Analyze(snap)
	require.NoError(t, err)

	metrics, err := NewAggregator(cfg, logger).Consolidate("run-1", snap, rfm, cohort, ab, raw)
	require.NoError(t, err)
	return snap, metrics
}

func TestAggregator_Consolidate(t *testing.T) {
	snap, metrics := consolidateFixture(t)

	assert.Equal(t, "run-1", metrics.RunID)
	assert.Equal(t, "2024-12-05", metrics.AnalysisPeriod.StartDate)
	assert.Equal(t, "2025-02-03", metrics.AnalysisPeriod.EndDate)
	assert.Equal(t, 3, metrics.AnalysisPeriod.DurationMonths)

	assert.Equal(t, snap.CustomerCount(), metrics.Overview.TotalCustomers)
	assert.Equal(t, 6, metrics.Overview.TotalOrders)
	assert.Equal(t, 5, metrics.Overview.TotalProducts)

	// Control 100+30+80 = 210; treatment 45 discounted + 45 + 30 = 120.
	assert.True(t, metrics.Overview.TotalRevenue.Equal(decimal.NewFromInt(330)),
		"got %s", metrics.Overview.TotalRevenue)

	assert.NotEmpty(t, metrics.Segmentation.TopSegment)
	assert.NotEmpty(t, metrics.ABTesting.Recommendation)
	assert.Len(t, metrics.Growth.MonthlyRevenueTrend, 3)
	assert.Equal(t, 4, metrics.Growth.TotalNewCustomers)
	assert.Equal(t, "London", metrics.Geographic.TopRegion)
	assert.NotEmpty(t, metrics.Products.TopProducts)
}
