package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MonthlyRevenue is one calendar month's activity across the snapshot.
type MonthlyRevenue struct {
	YearMonth           string          `json:"year_month"`
	ActiveCustomers     int             `json:"active_customers"`
	TotalOrders         int             `json:"total_orders"`
	TotalRevenue        decimal.Decimal `json:"total_revenue"`
	AvgTransactionValue decimal.Decimal `json:"avg_transaction_value"`
	TotalItems          int64           `json:"total_items"`
}

// RegionRevenue aggregates UK transactions by region.
type RegionRevenue struct {
	Region    string          `json:"region"`
	Customers int             `json:"customers"`
	Revenue   decimal.Decimal `json:"revenue"`
	Orders    int             `json:"orders"`
}

// ProductPerformance aggregates one stock code across the snapshot.
type ProductPerformance struct {
	StockCode       string          `json:"stock_code"`
	ProductName     string          `json:"product_name"`
	UniqueCustomers int             `json:"unique_customers"`
	TotalQuantity   int64           `json:"total_quantity"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	AvgPrice        decimal.Decimal `json:"avg_price"`
}

// CustomerAcquisition counts customers acquired in one month with the
// revenue they generated over the whole snapshot.
type CustomerAcquisition struct {
	Month        string          `json:"month"`
	NewCustomers int             `json:"new_customers"`
	Revenue      decimal.Decimal `json:"revenue"`
}

// RawAggregates holds the month/region/product groupings computed
// straight off the snapshot, independent of the analytical engines.
type RawAggregates struct {
	TotalProducts       int                   `json:"total_products"`
	RevenueByMonth      []MonthlyRevenue      `json:"revenue_by_month"`
	RevenueByRegion     []RegionRevenue       `json:"revenue_by_region"`
	ProductPerformance  []ProductPerformance  `json:"product_performance"`
	CustomerAcquisition []CustomerAcquisition `json:"customer_acquisition"`
}

// ConcentrationMetrics measures revenue share captured by the top
// customer percentiles.
type ConcentrationMetrics struct {
	Top10PctRevenueSharePct float64 `json:"top_10_pct_revenue_share_pct"`
	Top20PctRevenueSharePct float64 `json:"top_20_pct_revenue_share_pct"`
}

// ChurnRiskMetrics describes customers with a recency score of 2 or
// lower.
type ChurnRiskMetrics struct {
	HighRiskCustomers int             `json:"high_risk_customers"`
	HighRiskPct       float64         `json:"high_risk_pct"`
	RevenueAtRisk     decimal.Decimal `json:"revenue_at_risk"`
	RevenueAtRiskPct  float64         `json:"revenue_at_risk_pct"`
}

// OverviewSection summarises the snapshot.
type OverviewSection struct {
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
	TotalCustomers int             `json:"total_customers"`
	TotalOrders    int             `json:"total_orders"`
	AvgOrderValue  float64         `json:"avg_order_value"`
	TotalProducts  int             `json:"total_products"`
}

// ABTestingSection carries the headline experiment outcomes.
type ABTestingSection struct {
	RevenueUpliftPct         float64 `json:"revenue_uplift_pct"`
	OrderFrequencyUpliftPct  float64 `json:"order_frequency_uplift_pct"`
	RepeatRateUpliftPP       float64 `json:"repeat_rate_uplift_pp"`
	ROIPct                   float64 `json:"roi_pct"`
	StatisticallySignificant bool    `json:"statistically_significant"`
	Indeterminate            bool    `json:"indeterminate"`
	PValue                   float64 `json:"p_value"`
	Recommendation           string  `json:"recommendation"`
}

// RetentionSection summarises the cohort analysis.
type RetentionSection struct {
	Month0RetentionPct      Rate    `json:"month_0_retention_pct"`
	Month1RetentionPct      Rate    `json:"month_1_retention_pct"`
	Month2RetentionPct      Rate    `json:"month_2_retention_pct"`
	Month3RetentionPct      Rate    `json:"month_3_retention_pct"`
	BaselineChurnPct        Rate    `json:"baseline_churn_pct"`
	TargetChurnPct          Rate    `json:"target_churn_pct"`
	ChurnReductionTargetPct float64 `json:"churn_reduction_target_pct"`
	AvgLTV                  float64 `json:"avg_ltv"`
}

// SegmentationSection summarises the RFM segmentation.
type SegmentationSection struct {
	TotalSegments        int     `json:"total_segments"`
	TopSegment           string  `json:"top_segment"`
	TopSegmentRevenuePct float64 `json:"top_segment_revenue_pct"`
	ChampionsPct         float64 `json:"champions_pct"`
	AtRiskPct            float64 `json:"at_risk_pct"`
}

// CustomerValueSection summarises customer lifetime value.
type CustomerValueSection struct {
	AvgCLV             float64         `json:"avg_clv"`
	MedianCLV          float64         `json:"median_clv"`
	HighValueCustomers int             `json:"high_value_customers"`
	HighValueRevenue   decimal.Decimal `json:"high_value_revenue"`
}

// GrowthSection carries month-over-month trends.
type GrowthSection struct {
	MonthlyRevenueTrend      []MonthlyRevenue      `json:"monthly_revenue_trend"`
	CustomerAcquisitionTrend []CustomerAcquisition `json:"customer_acquisition_trend"`
	TotalNewCustomers        int                   `json:"total_new_customers"`
}

// GeographicSection summarises UK regional performance.
type GeographicSection struct {
	TopRegion            string          `json:"top_region"`
	TopRegionRevenue     decimal.Decimal `json:"top_region_revenue"`
	UKRegionsCount       int             `json:"uk_regions_count"`
	RegionalDistribution []RegionRevenue `json:"regional_distribution"`
}

// ProductsSection summarises product performance.
type ProductsSection struct {
	TopProductRevenue decimal.Decimal      `json:"top_product_revenue"`
	TopProducts       []ProductPerformance `json:"top_products"`
}

// AnalysisPeriod describes the span of the snapshot.
type AnalysisPeriod struct {
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date"`
	DurationMonths int    `json:"duration_months"`
}

// ConsolidatedMetrics is the single serializable snapshot handed to
// report renderers. Pure merge of the engine outputs plus the raw
// aggregates; no independent statistics.
type ConsolidatedMetrics struct {
	RunID           string         `json:"run_id"`
	ReportGenerated time.Time      `json:"report_generated"`
	AnalysisPeriod  AnalysisPeriod `json:"analysis_period"`

	Overview             OverviewSection      `json:"overview"`
	ABTesting            ABTestingSection     `json:"ab_testing"`
	Retention            RetentionSection     `json:"retention"`
	Segmentation         SegmentationSection  `json:"segmentation"`
	RevenueConcentration ConcentrationMetrics `json:"revenue_concentration"`
	CustomerValue        CustomerValueSection `json:"customer_value"`
	ChurnAnalysis        ChurnRiskMetrics     `json:"churn_analysis"`
	Growth               GrowthSection        `json:"growth"`
	Geographic           GeographicSection    `json:"geographic"`
	Products             ProductsSection      `json:"products"`
}
