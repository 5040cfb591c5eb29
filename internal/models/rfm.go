package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer segment labels produced by the RFM decision table.
const (
	SegmentChampions         = "Champions"
	SegmentLoyalCustomers    = "Loyal Customers"
	SegmentPotentialLoyalist = "Potential Loyalist"
	SegmentNewCustomers      = "New Customers"
	SegmentPromising         = "Promising"
	SegmentNeedAttention     = "Need Attention"
	SegmentAboutToSleep      = "About To Sleep"
	SegmentAtRisk            = "At Risk"
	SegmentCannotLoseThem    = "Cannot Lose Them"
	SegmentHibernating       = "Hibernating"
	SegmentLost              = "Lost"
)

// CustomerRFM holds the per-customer recency/frequency/monetary profile
// for one analysis run. Recomputed from scratch each run, never updated
// incrementally.
type CustomerRFM struct {
	CustomerID          int64           `json:"customer_id"`
	Country             string          `json:"country"`
	Region              string          `json:"region"`
	LastPurchaseDate    time.Time       `json:"last_purchase_date"`
	RecencyDays         int             `json:"recency_days"`
	Frequency           int             `json:"frequency"`
	Monetary            decimal.Decimal `json:"monetary"`
	TotalTransactions   int             `json:"total_transactions"`
	AvgTransactionValue decimal.Decimal `json:"avg_transaction_value"`
	RScore              int             `json:"r_score"`
	FScore              int             `json:"f_score"`
	MScore              int             `json:"m_score"`
	RFMScore            string          `json:"rfm_score"`
	RFMTotal            int             `json:"rfm_total"`
	Segment             string          `json:"segment"`
	HistoricalCLV       decimal.Decimal `json:"historical_clv"`
	PredictedCLV        decimal.Decimal `json:"predicted_clv"`
}

// SegmentSummary aggregates one segment's customers for reporting.
type SegmentSummary struct {
	Segment             string          `json:"segment"`
	Customers           int             `json:"customers"`
	TotalRevenue        decimal.Decimal `json:"total_revenue"`
	AvgFrequency        float64         `json:"avg_frequency"`
	AvgRecency          float64         `json:"avg_recency"`
	AvgTransactionValue decimal.Decimal `json:"avg_transaction_value"`
	RevenuePercent      float64         `json:"revenue_percent"`
	CustomerPercent     float64         `json:"customer_percent"`
}

// RFMResult is the full output of one RFM analysis run.
type RFMResult struct {
	AnalysisDate time.Time        `json:"analysis_date"`
	Customers    []CustomerRFM    `json:"customers"`
	Segments     []SegmentSummary `json:"segments"`
	TotalRevenue decimal.Decimal  `json:"total_revenue"`
	// ScoreBuckets records the quintile count actually used per metric.
	// Below 5 it signals reduced granularity on duplicate-heavy data.
	ScoreBuckets RFMScoreBuckets `json:"score_buckets"`
}

// RFMScoreBuckets reports the effective bucket count used when scoring
// each metric. 5 unless the distribution had fewer distinct values.
type RFMScoreBuckets struct {
	Recency   int `json:"recency"`
	Frequency int `json:"frequency"`
	Monetary  int `json:"monetary"`
}
