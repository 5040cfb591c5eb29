package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Rate is a retention/churn percentage that distinguishes "no data yet"
// from an observed zero. An invalid Rate marshals as JSON null so
// downstream consumers never mistake an unreached cohort age for 0%.
type Rate struct {
	Value float64
	Valid bool
}

// ValidRate returns an observed rate.
func ValidRate(v float64) Rate {
	return Rate{Value: v, Valid: true}
}

// MarshalJSON implements json.Marshaler.
func (r Rate) MarshalJSON() ([]byte, error) {
	if !r.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(r.Value)
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Rate) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = Rate{}
		return nil
	}
	r.Valid = true
	return json.Unmarshal(data, &r.Value)
}

// CohortEntry counts the distinct customers of one acquisition cohort
// transacting at a given age, with their revenue for that month.
type CohortEntry struct {
	CohortMonth      string          `json:"cohort_month"`
	MonthsSinceFirst int             `json:"months_since_first"`
	Customers        int             `json:"customers"`
	Revenue          decimal.Decimal `json:"revenue"`
}

// CohortSummary describes one cohort as a whole.
type CohortSummary struct {
	CohortMonth  string          `json:"cohort_month"`
	CohortSize   int             `json:"cohort_size"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	AvgLTV       decimal.Decimal `json:"avg_ltv"`
}

// CohortResult is the full output of one cohort analysis run.
//
// RetentionMatrix and RevenueMatrix are indexed [cohort][age] with
// cohorts in chronological order and ages 0..MaxAge. Cells a cohort has
// not reached carry an invalid Rate, not zero.
type CohortResult struct {
	CohortMonths    []string  `json:"cohort_months"`
	MaxAge          int       `json:"max_age_months"`
	Entries         []CohortEntry `json:"entries"`
	RetentionMatrix [][]Rate      `json:"retention_matrix"`
	RevenueMatrix   [][]Rate `json:"revenue_matrix"`

	Summaries []CohortSummary `json:"cohort_summaries"`

	// Per-age averages over cohorts that have reached that age.
	AvgRetentionByAge    []Rate `json:"avg_retention_by_age"`
	MedianRetentionByAge []Rate `json:"median_retention_by_age"`
	AvgChurnByAge        []Rate `json:"avg_churn_by_age"`

	BaselineMonth1Churn Rate    `json:"baseline_month1_churn"`
	TargetMonth1Churn   Rate    `json:"target_month1_churn"`
	ChurnReductionPct   float64 `json:"churn_reduction_pct"`
}
