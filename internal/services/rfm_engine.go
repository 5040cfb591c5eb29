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

// RFMEngine scores every customer on recency, frequency and monetary
// value, classifies them into segments and estimates lifetime value.
type RFMEngine struct {
	buckets          int
	clvRecencyWeight float64
	logger           *slog.Logger
}

// NewRFMEngine creates an RFM engine with the configured policy values.
func NewRFMEngine(cfg config.AnalysisConfig, logger *slog.Logger) *RFMEngine {
	return &RFMEngine{
		buckets:          cfg.QuintileBuckets,
		clvRecencyWeight: cfg.CLVRecencyWeight,
		logger:           logger,
	}
}

// segmentRule is one row of the classification decision table.
type segmentRule struct {
	label   string
	matches func(r, f, m int) bool
}

// segmentRules is evaluated top to bottom, first match wins. The order
// carries priority semantics: reordering changes classifications.
var segmentRules = []segmentRule{
	{models.SegmentChampions, func(r, f, m int) bool { return r >= 4 && f >= 4 && m >= 4 }},
	{models.SegmentLoyalCustomers, func(r, f, m int) bool { return r >= 3 && f >= 4 && m >= 3 }},
	{models.SegmentPotentialLoyalist, func(r, f, m int) bool { return r >= 4 && f >= 2 && m >= 2 }},
	{models.SegmentNewCustomers, func(r, f, m int) bool { return r >= 4 && f == 1 }},
	{models.SegmentPromising, func(r, f, m int) bool { return r >= 3 && f >= 2 && m >= 2 }},
	{models.SegmentNeedAttention, func(r, f, m int) bool { return r >= 3 && f >= 3 && m >= 3 }},
	{models.SegmentAboutToSleep, func(r, f, m int) bool { return r >= 2 && r <= 3 }},
	{models.SegmentAtRisk, func(r, f, m int) bool { return r <= 2 && f >= 3 && m >= 3 }},
	{models.SegmentCannotLoseThem, func(r, f, m int) bool { return r <= 2 && f >= 4 && m >= 4 }},
	{models.SegmentHibernating, func(r, f, m int) bool { return r <= 2 && f <= 2 }},
}

// classifySegment maps an (R, F, M) score triple to a segment label.
// "Lost" is the catch-all default.
func classifySegment(r, f, m int) string {
	for _, rule := range segmentRules {
		if rule.matches(r, f, m) {
			return rule.label
		}
	}
	return models.SegmentLost
}

// AllSegments lists every label the decision table can produce, in
// priority order.
func AllSegments() []string {
	labels := make([]string, 0, len(segmentRules)+1)
	for _, rule := range segmentRules {
		labels = append(labels, rule.label)
	}
	return append(labels, models.SegmentLost)
}

// Analyze produces one CustomerRFM record per distinct customer plus
// the segment summary table.
func (e *RFMEngine) Analyze(snap *Snapshot) (*models.RFMResult, error) {
	start := time.Now()

	customers, err := e.aggregateCustomers(snap)
	if err != nil {
		return nil, err
	}

	rBuckets := assignScores(customers, func(c *models.CustomerRFM) float64 {
		return float64(c.RecencyDays)
	}, false, e.buckets, func(c *models.CustomerRFM, score int) { c.RScore = score })

	fBuckets := assignScores(customers, func(c *models.CustomerRFM) float64 {
		return float64(c.Frequency)
	}, true, e.buckets, func(c *models.CustomerRFM, score int) { c.FScore = score })

	mBuckets := assignScores(customers, func(c *models.CustomerRFM) float64 {
		return c.Monetary.InexactFloat64()
	}, true, e.buckets, func(c *models.CustomerRFM, score int) { c.MScore = score })

	totalRevenue := decimal.Zero
	for _, c := range customers {
		c.RFMScore = fmt.Sprintf("%d%d%d", c.RScore, c.FScore, c.MScore)
		c.RFMTotal = c.RScore + c.FScore + c.MScore
		c.Segment = classifySegment(c.RScore, c.FScore, c.MScore)
		c.HistoricalCLV = c.Monetary
		c.PredictedCLV = e.predictCLV(c)
		totalRevenue = totalRevenue.Add(c.Monetary)
	}

	result := &models.RFMResult{
		AnalysisDate: snap.AnalysisDate,
		Customers:    dereference(customers),
		Segments:     summarizeSegments(customers, totalRevenue),
		TotalRevenue: totalRevenue,
		ScoreBuckets: models.RFMScoreBuckets{
			Recency:   rBuckets,
			Frequency: fBuckets,
			Monetary:  mBuckets,
		},
	}

	e.logger.Info("RFM analysis complete",
		"customers", len(customers),
		"segments", len(result.Segments),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// aggregateCustomers rolls the snapshot up to one record per customer,
// sorted by customer id for deterministic downstream ranking.
func (e *RFMEngine) aggregateCustomers(snap *Snapshot) ([]*models.CustomerRFM, error) {
	type accumulator struct {
		rfm      *models.CustomerRFM
		invoices map[string]struct{}
	}

	byCustomer := make(map[int64]*accumulator)
	for _, t := range snap.Transactions {
		acc, ok := byCustomer[t.CustomerID]
		if !ok {
			acc = &accumulator{
				rfm: &models.CustomerRFM{
					CustomerID: t.CustomerID,
					Country:    t.Country,
					Region:     t.Region,
				},
				invoices: make(map[string]struct{}),
			}
			byCustomer[t.CustomerID] = acc
		}
		acc.invoices[t.InvoiceNo] = struct{}{}
		acc.rfm.Monetary = acc.rfm.Monetary.Add(t.Revenue())
		acc.rfm.TotalTransactions++
		if t.InvoiceDate.After(acc.rfm.LastPurchaseDate) {
			acc.rfm.LastPurchaseDate = t.InvoiceDate
		}
	}

	customers := make([]*models.CustomerRFM, 0, len(byCustomer))
	for _, acc := range byCustomer {
		c := acc.rfm
		c.Frequency = len(acc.invoices)
		c.RecencyDays = int(snap.AnalysisDate.Sub(c.LastPurchaseDate).Hours() / 24)
		c.AvgTransactionValue = c.Monetary.Div(decimal.NewFromInt(int64(c.TotalTransactions)))

		if c.Frequency <= 0 || c.Monetary.Sign() <= 0 {
			return nil, fmt.Errorf("%w: customer %d has frequency %d and monetary %s",
				ErrDataIntegrity, c.CustomerID, c.Frequency, c.Monetary)
		}
		customers = append(customers, c)
	}

	sort.Slice(customers, func(i, j int) bool {
		return customers[i].CustomerID < customers[j].CustomerID
	})
	return customers, nil
}

// predictCLV is a heuristic projection, not a model fit:
// avg transaction value x frequency x (R/5) x recency weight.
func (e *RFMEngine) predictCLV(c *models.CustomerRFM) decimal.Decimal {
	recencyFactor := float64(c.RScore) / 5 * e.clvRecencyWeight
	return c.AvgTransactionValue.
		Mul(decimal.NewFromInt(int64(c.Frequency))).
		Mul(decimal.NewFromFloat(recencyFactor))
}

// assignScores ranks customers by one metric and slices the ranking
// into near-equal buckets. Ties are broken by ascending customer id so
// binning is reproducible. When the metric has fewer distinct values
// than requested buckets, the bucket count collapses to that number and
// the score range shrinks from the bottom (the top score stays 5).
// Returns the effective bucket count.
//
// ascending=true maps the highest metric values to the highest score
// (frequency, monetary); ascending=false reverses it (recency, where
// lower raw values are better).
func assignScores(
	customers []*models.CustomerRFM,
	metric func(*models.CustomerRFM) float64,
	ascending bool,
	buckets int,
	setScore func(*models.CustomerRFM, int),
) int {
	n := len(customers)
	if n == 0 {
		return 0
	}

	order := make([]*models.CustomerRFM, n)
	copy(order, customers)
	sort.SliceStable(order, func(i, j int) bool {
		vi, vj := metric(order[i]), metric(order[j])
		if vi != vj {
			return vi < vj
		}
		return order[i].CustomerID < order[j].CustomerID
	})

	distinct := 1
	for i := 1; i < n; i++ {
		if metric(order[i]) != metric(order[i-1]) {
			distinct++
		}
	}
	q := buckets
	if distinct < q {
		q = distinct
	}

	for rank, c := range order {
		bucket := rank * q / n
		if ascending {
			setScore(c, buckets-q+1+bucket)
		} else {
			setScore(c, buckets-bucket)
		}
	}
	return q
}

// summarizeSegments builds the per-segment report table, sorted by
// total revenue descending.
func summarizeSegments(customers []*models.CustomerRFM, totalRevenue decimal.Decimal) []models.SegmentSummary {
	type bucket struct {
		count     int
		revenue   decimal.Decimal
		avgValue  decimal.Decimal
		frequency int
		recency   int
	}

	bySegment := make(map[string]*bucket)
	for _, c := range customers {
		b, ok := bySegment[c.Segment]
		if !ok {
			b = &bucket{}
			bySegment[c.Segment] = b
		}
		b.count++
		b.revenue = b.revenue.Add(c.Monetary)
		b.avgValue = b.avgValue.Add(c.AvgTransactionValue)
		b.frequency += c.Frequency
		b.recency += c.RecencyDays
	}

	totalCustomers := len(customers)
	summaries := make([]models.SegmentSummary, 0, len(bySegment))
	for segment, b := range bySegment {
		count := decimal.NewFromInt(int64(b.count))
		s := models.SegmentSummary{
			Segment:             segment,
			Customers:           b.count,
			TotalRevenue:        b.revenue,
			AvgFrequency:        float64(b.frequency) / float64(b.count),
			AvgRecency:          float64(b.recency) / float64(b.count),
			AvgTransactionValue: b.avgValue.Div(count),
		}
		if totalRevenue.Sign() > 0 {
			s.RevenuePercent = b.revenue.Div(totalRevenue).InexactFloat64() * 100
		}
		s.CustomerPercent = float64(b.count) / float64(totalCustomers) * 100
		summaries = append(summaries, s)
	}

	sort.Slice(summaries, func(i, j int) bool {
		if c := summaries[i].TotalRevenue.Cmp(summaries[j].TotalRevenue); c != 0 {
			return c > 0
		}
		return summaries[i].Segment < summaries[j].Segment
	})
	return summaries
}

func dereference(customers []*models.CustomerRFM) []models.CustomerRFM {
	out := make([]models.CustomerRFM, len(customers))
	for i, c := range customers {
		out[i] = *c
	}
	return out
}
