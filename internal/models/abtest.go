package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CustomerAggregate is one customer's order history rolled up for the
// experiment. All significance testing runs over these, never over raw
// transactions, to avoid pseudo-replication.
type CustomerAggregate struct {
	CustomerID         int64           `json:"customer_id"`
	TestGroup          string          `json:"test_group"`
	TotalOrders        int             `json:"total_orders"`
	TotalItems         int64           `json:"total_items"`
	TotalRevenue       decimal.Decimal `json:"total_revenue"`
	DiscountedRevenue  decimal.Decimal `json:"discounted_revenue"`
	DiscountAmount     decimal.Decimal `json:"discount_amount"`
	AvgOrderValue      decimal.Decimal `json:"avg_order_value"`
	TotalTransactions  int             `json:"total_transactions"`
	FirstPurchase      time.Time       `json:"first_purchase"`
	LastPurchase       time.Time       `json:"last_purchase"`
}

// TTestResult holds a two-sample Student's t-test outcome. Indeterminate
// is set instead of a fabricated p-value when a group is too small or
// the pooled variance is zero.
type TTestResult struct {
	TStat         float64 `json:"t_stat"`
	PValue        float64 `json:"p_value"`
	Significant   bool    `json:"significant"`
	Indeterminate bool    `json:"indeterminate"`
}

// ChiSquareResult holds a 2x2 chi-square independence test outcome.
type ChiSquareResult struct {
	ChiSquare     float64 `json:"chi_square"`
	PValue        float64 `json:"p_value"`
	Significant   bool    `json:"significant"`
	Indeterminate bool    `json:"indeterminate"`
}

// ConfidenceInterval is a mean with its 95% t-distribution interval.
type ConfidenceInterval struct {
	Mean          float64 `json:"mean"`
	Lower         float64 `json:"lower"`
	Upper         float64 `json:"upper"`
	Indeterminate bool    `json:"indeterminate"`
}

// GroupMetrics aggregates one test group.
type GroupMetrics struct {
	Customers             int             `json:"customers"`
	Revenue               decimal.Decimal `json:"revenue"`
	AvgRevenuePerCustomer float64         `json:"avg_revenue_per_customer"`
	AvgOrdersPerCustomer  float64         `json:"avg_orders_per_customer"`
	AvgOrderValue         float64         `json:"avg_order_value"`
	RepeatCustomers       int             `json:"repeat_customers"`
	RepeatRate            float64         `json:"repeat_rate"`
}

// ABTestResult is the full outcome of the discount experiment for one
// snapshot. Immutable once computed.
type ABTestResult struct {
	Control   GroupMetrics `json:"control"`
	Treatment GroupMetrics `json:"treatment"`

	TreatmentCost    decimal.Decimal `json:"treatment_cost"`
	RevenueUpliftPct float64         `json:"revenue_uplift_pct"`
	ROIPct           float64         `json:"roi_pct"`

	OrderFrequencyUpliftPct float64 `json:"order_frequency_uplift_pct"`
	AOVChangePct            float64 `json:"aov_change_pct"`
	RepeatRateUpliftPP      float64 `json:"repeat_rate_uplift_pp"`

	RevenueTest    TTestResult     `json:"revenue_test"`
	OrdersTest     TTestResult     `json:"orders_test"`
	RepeatRateTest ChiSquareResult `json:"repeat_rate_test"`

	CohensDRevenue float64 `json:"cohens_d_revenue"`
	CohensDOrders  float64 `json:"cohens_d_orders"`

	ControlRevenueCI   ConfidenceInterval `json:"control_revenue_ci"`
	TreatmentRevenueCI ConfidenceInterval `json:"treatment_revenue_ci"`
}
