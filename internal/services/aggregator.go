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

// Recommendation labels for the discount experiment outcome.
const (
	RecommendImplement   = "Implement discount strategy"
	RecommendKeepTesting = "Continue testing with larger sample"
	RecommendReject      = "Do not implement discount strategy"
)

// Aggregator merges the engine outputs and the raw aggregates into one
// consolidated metrics snapshot. It performs no independent statistics:
// everything here is a merge or a sort-and-share derivation. Join keys
// are validated before merging; a mismatch is rule drift between
// engines and aborts the run.
type Aggregator struct {
	fractions config.TopCustomerFractions
	logger    *slog.Logger
}

// NewAggregator creates an aggregator with the configured top-customer
// fractions.
func NewAggregator(cfg config.AnalysisConfig, logger *slog.Logger) *Aggregator {
	return &Aggregator{fractions: cfg.TopCustomerFractions, logger: logger}
}

// Consolidate builds the final metrics snapshot from all engine outputs.
func (a *Aggregator) Consolidate(
	runID string,
	snap *Snapshot,
	rfm *models.RFMResult,
	cohort *models.CohortResult,
	ab *models.ABTestResult,
	raw *models.RawAggregates,
) (*models.ConsolidatedMetrics, error) {
	if err := a.validateJoinKeys(rfm, cohort, raw); err != nil {
		return nil, err
	}

	concentration := a.revenueConcentration(rfm.Customers)
	churnRisk := a.churnRisk(rfm)

	totalOrders := 0
	avgTransactionValues := make([]float64, 0, len(raw.RevenueByMonth))
	for _, m := range raw.RevenueByMonth {
		totalOrders += m.TotalOrders
		avgTransactionValues = append(avgTransactionValues, m.AvgTransactionValue.InexactFloat64())
	}

	clvs := make([]float64, len(rfm.Customers))
	for i, c := range rfm.Customers {
		clvs[i] = c.HistoricalCLV.InexactFloat64()
	}

	metrics := &models.ConsolidatedMetrics{
		RunID:           runID,
		ReportGenerated: time.Now().UTC(),
		AnalysisPeriod: models.AnalysisPeriod{
			StartDate:      snap.MinDate.Format("2006-01-02"),
			EndDate:        snap.MaxDate.Format("2006-01-02"),
			DurationMonths: monthIndex(snap.MaxDate) - monthIndex(snap.MinDate) + 1,
		},
		Overview: models.OverviewSection{
			TotalRevenue:   ab.Control.Revenue.Add(ab.Treatment.Revenue),
			TotalCustomers: len(rfm.Customers),
			TotalOrders:    totalOrders,
			AvgOrderValue:  mean(avgTransactionValues),
			TotalProducts:  raw.TotalProducts,
		},
		ABTesting: models.ABTestingSection{
			RevenueUpliftPct:         ab.RevenueUpliftPct,
			OrderFrequencyUpliftPct:  ab.OrderFrequencyUpliftPct,
			RepeatRateUpliftPP:       ab.RepeatRateUpliftPP,
			ROIPct:                   ab.ROIPct,
			StatisticallySignificant: ab.RevenueTest.Significant,
			Indeterminate:            ab.RevenueTest.Indeterminate,
			PValue:                   ab.RevenueTest.PValue,
			Recommendation:           recommend(ab),
		},
		Retention:            a.retentionSection(cohort),
		Segmentation:         a.segmentationSection(rfm, churnRisk),
		RevenueConcentration: concentration,
		CustomerValue: models.CustomerValueSection{
			AvgCLV:             mean(clvs),
			MedianCLV:          median(clvs),
			HighValueCustomers: int(float64(len(rfm.Customers)) * a.fractions.Broad),
			HighValueRevenue:   rfm.TotalRevenue.Mul(decimal.NewFromFloat(concentration.Top20PctRevenueSharePct / 100)),
		},
		ChurnAnalysis: churnRisk,
		Growth: models.GrowthSection{
			MonthlyRevenueTrend:      raw.RevenueByMonth,
			CustomerAcquisitionTrend: raw.CustomerAcquisition,
			TotalNewCustomers:        totalNewCustomers(raw.CustomerAcquisition),
		},
		Geographic: a.geographicSection(raw),
		Products:   a.productsSection(raw),
	}

	a.logger.Info("Consolidated metrics snapshot built",
		"run_id", runID,
		"total_customers", metrics.Overview.TotalCustomers,
		"total_orders", metrics.Overview.TotalOrders,
	)
	return metrics, nil
}

// validateJoinKeys checks that the labels the merge joins on agree
// across engines. A key present on one side only means the engines
// drifted apart, so the merge would silently drop data; abort instead.
func (a *Aggregator) validateJoinKeys(rfm *models.RFMResult, cohort *models.CohortResult, raw *models.RawAggregates) error {
	known := make(map[string]struct{})
	for _, label := range AllSegments() {
		known[label] = struct{}{}
	}
	for _, s := range rfm.Segments {
		if _, ok := known[s.Segment]; !ok {
			return fmt.Errorf("%w: unknown segment label %q in RFM output", ErrJoinMismatch, s.Segment)
		}
	}

	snapshotMonths := make(map[string]struct{})
	for _, m := range raw.RevenueByMonth {
		snapshotMonths[m.YearMonth] = struct{}{}
	}
	for _, month := range cohort.CohortMonths {
		if _, ok := snapshotMonths[month]; !ok {
			return fmt.Errorf("%w: cohort month %q missing from monthly revenue", ErrJoinMismatch, month)
		}
	}
	for _, acq := range raw.CustomerAcquisition {
		found := false
		for _, month := range cohort.CohortMonths {
			if month == acq.Month {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: acquisition month %q missing from cohort months", ErrJoinMismatch, acq.Month)
		}
	}
	return nil
}

// revenueConcentration sorts customers by monetary value descending and
// measures the revenue share of the top fractions. Customer counts are
// floored, matching a strict "top N" cut.
func (a *Aggregator) revenueConcentration(customers []models.CustomerRFM) models.ConcentrationMetrics {
	sorted := make([]models.CustomerRFM, len(customers))
	copy(sorted, customers)
	sort.SliceStable(sorted, func(i, j int) bool {
		if c := sorted[i].Monetary.Cmp(sorted[j].Monetary); c != 0 {
			return c > 0
		}
		return sorted[i].CustomerID < sorted[j].CustomerID
	})

	total := decimal.Zero
	for _, c := range sorted {
		total = total.Add(c.Monetary)
	}

	share := func(fraction float64) float64 {
		if total.Sign() == 0 {
			return 0
		}
		top := int(float64(len(sorted)) * fraction)
		sum := decimal.Zero
		for _, c := range sorted[:top] {
			sum = sum.Add(c.Monetary)
		}
		return sum.Div(total).InexactFloat64() * 100
	}

	return models.ConcentrationMetrics{
		Top10PctRevenueSharePct: share(a.fractions.Narrow),
		Top20PctRevenueSharePct: share(a.fractions.Broad),
	}
}

// churnRisk flags customers whose recency score is 2 or lower.
func (a *Aggregator) churnRisk(rfm *models.RFMResult) models.ChurnRiskMetrics {
	m := models.ChurnRiskMetrics{}
	for _, c := range rfm.Customers {
		if c.RScore <= 2 {
			m.HighRiskCustomers++
			m.RevenueAtRisk = m.RevenueAtRisk.Add(c.Monetary)
		}
	}
	if len(rfm.Customers) > 0 {
		m.HighRiskPct = float64(m.HighRiskCustomers) / float64(len(rfm.Customers)) * 100
	}
	if rfm.TotalRevenue.Sign() > 0 {
		m.RevenueAtRiskPct = m.RevenueAtRisk.Div(rfm.TotalRevenue).InexactFloat64() * 100
	}
	return m
}

func (a *Aggregator) retentionSection(cohort *models.CohortResult) models.RetentionSection {
	atAge := func(age int) models.Rate {
		if age > cohort.MaxAge {
			return models.Rate{}
		}
		return cohort.AvgRetentionByAge[age]
	}

	ltvs := make([]float64, len(cohort.Summaries))
	for i, s := range cohort.Summaries {
		ltvs[i] = s.AvgLTV.InexactFloat64()
	}

	return models.RetentionSection{
		Month0RetentionPct:      atAge(0),
		Month1RetentionPct:      atAge(1),
		Month2RetentionPct:      atAge(2),
		Month3RetentionPct:      atAge(3),
		BaselineChurnPct:        cohort.BaselineMonth1Churn,
		TargetChurnPct:          cohort.TargetMonth1Churn,
		ChurnReductionTargetPct: cohort.ChurnReductionPct,
		AvgLTV:                  mean(ltvs),
	}
}

func (a *Aggregator) segmentationSection(rfm *models.RFMResult, churnRisk models.ChurnRiskMetrics) models.SegmentationSection {
	s := models.SegmentationSection{
		TotalSegments: len(rfm.Segments),
		AtRiskPct:     churnRisk.HighRiskPct,
	}
	if len(rfm.Segments) > 0 {
		s.TopSegment = rfm.Segments[0].Segment
		s.TopSegmentRevenuePct = rfm.Segments[0].RevenuePercent
	}
	for _, seg := range rfm.Segments {
		if seg.Segment == models.SegmentChampions {
			s.ChampionsPct = seg.CustomerPercent
		}
	}
	return s
}

func (a *Aggregator) geographicSection(raw *models.RawAggregates) models.GeographicSection {
	g := models.GeographicSection{UKRegionsCount: len(raw.RevenueByRegion)}
	if len(raw.RevenueByRegion) > 0 {
		g.TopRegion = raw.RevenueByRegion[0].Region
		g.TopRegionRevenue = raw.RevenueByRegion[0].Revenue
	}
	top := raw.RevenueByRegion
	if len(top) > 5 {
		top = top[:5]
	}
	g.RegionalDistribution = top
	return g
}

func (a *Aggregator) productsSection(raw *models.RawAggregates) models.ProductsSection {
	p := models.ProductsSection{}
	if len(raw.ProductPerformance) > 0 {
		p.TopProductRevenue = raw.ProductPerformance[0].TotalRevenue
	}
	top := raw.ProductPerformance
	if len(top) > 10 {
		top = top[:10]
	}
	p.TopProducts = top
	return p
}

func totalNewCustomers(acquisition []models.CustomerAcquisition) int {
	total := 0
	for _, a := range acquisition {
		total += a.NewCustomers
	}
	return total
}

// recommend turns the experiment outcome into an action label.
func recommend(ab *models.ABTestResult) string {
	switch {
	case ab.RevenueTest.Significant && ab.RevenueUpliftPct > 0 && ab.ROIPct > 0:
		return RecommendImplement
	case ab.RevenueUpliftPct > 0 && !ab.RevenueTest.Significant:
		return RecommendKeepTesting
	default:
		return RecommendReject
	}
}
