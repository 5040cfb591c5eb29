package services

import (
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/commercelab/retail-analytics/internal/config"
	"github.com/commercelab/retail-analytics/internal/models"
)

// ABTestEngine evaluates the discount experiment: Control paid full
// price, Treatment bought at a discount. Every statistic runs over
// customer-level aggregates, never over raw transactions, so repeated
// purchases by one customer cannot inflate significance.
type ABTestEngine struct {
	significanceLevel    float64
	confidenceLevel      float64
	repeatOrderThreshold int
	logger               *slog.Logger
}

// NewABTestEngine creates an A/B test engine with the configured
// significance and confidence levels.
func NewABTestEngine(cfg config.AnalysisConfig, logger *slog.Logger) *ABTestEngine {
	return &ABTestEngine{
		significanceLevel:    cfg.SignificanceLevel,
		confidenceLevel:      cfg.ConfidenceLevel,
		repeatOrderThreshold: cfg.RepeatOrderThreshold,
		logger:               logger,
	}
}

// Analyze computes the full experiment result for the snapshot.
func (e *ABTestEngine) Analyze(snap *Snapshot) (*models.ABTestResult, error) {
	start := time.Now()

	aggregates := e.aggregateCustomers(snap)

	var control, treatment []models.CustomerAggregate
	for _, agg := range aggregates {
		if agg.TestGroup == models.GroupControl {
			control = append(control, agg)
		} else {
			treatment = append(treatment, agg)
		}
	}

	// Control revenue is what was billed; Treatment revenue is what was
	// actually paid after discounts. The difference between raw and
	// discounted treatment revenue is the experiment's cost.
	controlRevenue := decimal.Zero
	controlRevenues := make([]float64, len(control))
	controlOrders := make([]float64, len(control))
	for i, c := range control {
		controlRevenue = controlRevenue.Add(c.TotalRevenue)
		controlRevenues[i] = c.TotalRevenue.InexactFloat64()
		controlOrders[i] = float64(c.TotalOrders)
	}

	treatmentRevenue := decimal.Zero
	treatmentCost := decimal.Zero
	treatmentRevenues := make([]float64, len(treatment))
	treatmentOrders := make([]float64, len(treatment))
	for i, c := range treatment {
		treatmentRevenue = treatmentRevenue.Add(c.DiscountedRevenue)
		treatmentCost = treatmentCost.Add(c.DiscountAmount)
		treatmentRevenues[i] = c.DiscountedRevenue.InexactFloat64()
		treatmentOrders[i] = float64(c.TotalOrders)
	}

	result := &models.ABTestResult{
		Control:       e.groupMetrics(control, controlRevenue, controlRevenues),
		Treatment:     e.groupMetrics(treatment, treatmentRevenue, treatmentRevenues),
		TreatmentCost: treatmentCost,
	}

	result.RevenueUpliftPct = revenueUpliftPct(controlRevenue, treatmentRevenue)
	result.ROIPct = roiPct(controlRevenue, treatmentRevenue, treatmentCost)

	if result.Control.AvgOrdersPerCustomer > 0 {
		result.OrderFrequencyUpliftPct = (result.Treatment.AvgOrdersPerCustomer - result.Control.AvgOrdersPerCustomer) /
			result.Control.AvgOrdersPerCustomer * 100
	}
	if result.Control.AvgOrderValue > 0 {
		result.AOVChangePct = (result.Treatment.AvgOrderValue - result.Control.AvgOrderValue) /
			result.Control.AvgOrderValue * 100
	}
	result.RepeatRateUpliftPP = result.Treatment.RepeatRate - result.Control.RepeatRate

	result.RevenueTest = studentTTest(controlRevenues, treatmentRevenues, e.significanceLevel)
	result.OrdersTest = studentTTest(controlOrders, treatmentOrders, e.significanceLevel)
	result.CohensDRevenue = cohensD(treatmentRevenues, controlRevenues)
	result.CohensDOrders = cohensD(treatmentOrders, controlOrders)
	result.ControlRevenueCI = confidenceInterval(controlRevenues, e.confidenceLevel)
	result.TreatmentRevenueCI = confidenceInterval(treatmentRevenues, e.confidenceLevel)

	result.RepeatRateTest = chiSquare2x2(
		result.Control.RepeatCustomers, result.Control.Customers-result.Control.RepeatCustomers,
		result.Treatment.RepeatCustomers, result.Treatment.Customers-result.Treatment.RepeatCustomers,
		e.significanceLevel,
	)

	e.logger.Info("A/B test analysis complete",
		"control_customers", result.Control.Customers,
		"treatment_customers", result.Treatment.Customers,
		"revenue_uplift_pct", result.RevenueUpliftPct,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// aggregateCustomers rolls transactions up to one record per customer,
// sorted by customer id for determinism.
func (e *ABTestEngine) aggregateCustomers(snap *Snapshot) []models.CustomerAggregate {
	type accumulator struct {
		agg      *models.CustomerAggregate
		invoices map[string]struct{}
	}

	byCustomer := make(map[int64]*accumulator)
	for _, t := range snap.Transactions {
		acc, ok := byCustomer[t.CustomerID]
		if !ok {
			acc = &accumulator{
				agg: &models.CustomerAggregate{
					CustomerID:    t.CustomerID,
					TestGroup:     t.TestGroup,
					FirstPurchase: t.InvoiceDate,
					LastPurchase:  t.InvoiceDate,
				},
				invoices: make(map[string]struct{}),
			}
			byCustomer[t.CustomerID] = acc
		}
		a := acc.agg
		acc.invoices[t.InvoiceNo] = struct{}{}
		a.TotalItems += t.Quantity
		a.TotalRevenue = a.TotalRevenue.Add(t.Revenue())
		a.DiscountedRevenue = a.DiscountedRevenue.Add(t.DiscountedRevenue())
		a.DiscountAmount = a.DiscountAmount.Add(t.DiscountAmount())
		a.TotalTransactions++
		if t.InvoiceDate.Before(a.FirstPurchase) {
			a.FirstPurchase = t.InvoiceDate
		}
		if t.InvoiceDate.After(a.LastPurchase) {
			a.LastPurchase = t.InvoiceDate
		}
	}

	aggregates := make([]models.CustomerAggregate, 0, len(byCustomer))
	for _, acc := range byCustomer {
		a := acc.agg
		a.TotalOrders = len(acc.invoices)
		a.AvgOrderValue = a.TotalRevenue.Div(decimal.NewFromInt(int64(a.TotalTransactions)))
		aggregates = append(aggregates, *a)
	}
	sort.Slice(aggregates, func(i, j int) bool {
		return aggregates[i].CustomerID < aggregates[j].CustomerID
	})
	return aggregates
}

func (e *ABTestEngine) groupMetrics(customers []models.CustomerAggregate, revenue decimal.Decimal, revenues []float64) models.GroupMetrics {
	m := models.GroupMetrics{
		Customers: len(customers),
		Revenue:   revenue,
	}
	if len(customers) == 0 {
		return m
	}

	orders := 0
	aovSum := 0.0
	for _, c := range customers {
		orders += c.TotalOrders
		aovSum += c.AvgOrderValue.InexactFloat64()
		if c.TotalOrders > e.repeatOrderThreshold {
			m.RepeatCustomers++
		}
	}
	n := float64(len(customers))
	m.AvgRevenuePerCustomer = mean(revenues)
	m.AvgOrdersPerCustomer = float64(orders) / n
	m.AvgOrderValue = aovSum / n
	m.RepeatRate = float64(m.RepeatCustomers) / n * 100
	return m
}

// revenueUpliftPct is (treatment - control) / control x 100, or 0 when
// there is no control revenue to compare against.
func revenueUpliftPct(control, treatment decimal.Decimal) float64 {
	if control.Sign() == 0 {
		return 0
	}
	return treatment.Sub(control).Div(control).InexactFloat64() * 100
}

// roiPct is (treatment - control - cost) / cost x 100, defined as
// exactly 0 when the cost is 0.
func roiPct(control, treatment, cost decimal.Decimal) float64 {
	if cost.Sign() == 0 {
		return 0
	}
	return treatment.Sub(control).Sub(cost).Div(cost).InexactFloat64() * 100
}
