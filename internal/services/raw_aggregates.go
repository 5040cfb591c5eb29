package services

import (
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/commercelab/retail-analytics/internal/config"
	"github.com/commercelab/retail-analytics/internal/models"
)

// countryUK scopes the regional breakdown; non-UK customers all carry
// the synthetic "International" region and would drown the signal.
const countryUK = "United Kingdom"

// RawAggregatesEngine computes the plain month/region/product groupings
// straight off the snapshot. No statistics, just grouping and summing.
type RawAggregatesEngine struct {
	topProducts int
	logger      *slog.Logger
}

// NewRawAggregatesEngine creates the raw aggregates engine.
func NewRawAggregatesEngine(cfg config.AnalysisConfig, logger *slog.Logger) *RawAggregatesEngine {
	return &RawAggregatesEngine{topProducts: cfg.TopProducts, logger: logger}
}

// Analyze produces the raw grouping tables used by the aggregator.
func (e *RawAggregatesEngine) Analyze(snap *Snapshot) (*models.RawAggregates, error) {
	start := time.Now()

	result := &models.RawAggregates{
		RevenueByMonth:      e.revenueByMonth(snap),
		RevenueByRegion:     e.revenueByRegion(snap),
		CustomerAcquisition: e.customerAcquisition(snap),
	}
	result.ProductPerformance, result.TotalProducts = e.productPerformance(snap)

	e.logger.Info("Raw aggregates complete",
		"months", len(result.RevenueByMonth),
		"regions", len(result.RevenueByRegion),
		"products", result.TotalProducts,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func (e *RawAggregatesEngine) revenueByMonth(snap *Snapshot) []models.MonthlyRevenue {
	type bucket struct {
		customers map[int64]struct{}
		invoices  map[string]struct{}
		revenue   decimal.Decimal
		items     int64
		rows      int
	}

	byMonth := make(map[string]*bucket)
	for _, t := range snap.Transactions {
		key := t.YearMonth()
		b, ok := byMonth[key]
		if !ok {
			b = &bucket{customers: make(map[int64]struct{}), invoices: make(map[string]struct{})}
			byMonth[key] = b
		}
		b.customers[t.CustomerID] = struct{}{}
		b.invoices[t.InvoiceNo] = struct{}{}
		b.revenue = b.revenue.Add(t.Revenue())
		b.items += t.Quantity
		b.rows++
	}

	months := make([]models.MonthlyRevenue, 0, len(byMonth))
	for key, b := range byMonth {
		months = append(months, models.MonthlyRevenue{
			YearMonth:           key,
			ActiveCustomers:     len(b.customers),
			TotalOrders:         len(b.invoices),
			TotalRevenue:        b.revenue,
			AvgTransactionValue: b.revenue.Div(decimal.NewFromInt(int64(b.rows))),
			TotalItems:          b.items,
		})
	}
	sort.Slice(months, func(i, j int) bool { return months[i].YearMonth < months[j].YearMonth })
	return months
}

func (e *RawAggregatesEngine) revenueByRegion(snap *Snapshot) []models.RegionRevenue {
	type bucket struct {
		customers map[int64]struct{}
		invoices  map[string]struct{}
		revenue   decimal.Decimal
	}

	byRegion := make(map[string]*bucket)
	for _, t := range snap.Transactions {
		if t.Country != countryUK {
			continue
		}
		b, ok := byRegion[t.Region]
		if !ok {
			b = &bucket{customers: make(map[int64]struct{}), invoices: make(map[string]struct{})}
			byRegion[t.Region] = b
		}
		b.customers[t.CustomerID] = struct{}{}
		b.invoices[t.InvoiceNo] = struct{}{}
		b.revenue = b.revenue.Add(t.Revenue())
	}

	regions := make([]models.RegionRevenue, 0, len(byRegion))
	for region, b := range byRegion {
		regions = append(regions, models.RegionRevenue{
			Region:    region,
			Customers: len(b.customers),
			Revenue:   b.revenue,
			Orders:    len(b.invoices),
		})
	}
	sort.Slice(regions, func(i, j int) bool {
		if c := regions[i].Revenue.Cmp(regions[j].Revenue); c != 0 {
			return c > 0
		}
		return regions[i].Region < regions[j].Region
	})
	return regions
}

func (e *RawAggregatesEngine) productPerformance(snap *Snapshot) ([]models.ProductPerformance, int) {
	type bucket struct {
		name      string
		customers map[int64]struct{}
		quantity  int64
		revenue   decimal.Decimal
		priceSum  decimal.Decimal
		rows      int
	}

	byProduct := make(map[string]*bucket)
	for _, t := range snap.Transactions {
		b, ok := byProduct[t.StockCode]
		if !ok {
			b = &bucket{customers: make(map[int64]struct{})}
			byProduct[t.StockCode] = b
		}
		if t.Description > b.name {
			b.name = t.Description
		}
		b.customers[t.CustomerID] = struct{}{}
		b.quantity += t.Quantity
		b.revenue = b.revenue.Add(t.Revenue())
		b.priceSum = b.priceSum.Add(t.UnitPrice)
		b.rows++
	}

	products := make([]models.ProductPerformance, 0, len(byProduct))
	for code, b := range byProduct {
		products = append(products, models.ProductPerformance{
			StockCode:       code,
			ProductName:     b.name,
			UniqueCustomers: len(b.customers),
			TotalQuantity:   b.quantity,
			TotalRevenue:    b.revenue,
			AvgPrice:        b.priceSum.Div(decimal.NewFromInt(int64(b.rows))),
		})
	}
	sort.Slice(products, func(i, j int) bool {
		if c := products[i].TotalRevenue.Cmp(products[j].TotalRevenue); c != 0 {
			return c > 0
		}
		return products[i].StockCode < products[j].StockCode
	})

	total := len(products)
	if len(products) > e.topProducts {
		products = products[:e.topProducts]
	}
	return products, total
}

func (e *RawAggregatesEngine) customerAcquisition(snap *Snapshot) []models.CustomerAcquisition {
	firstMonth := make(map[int64]int)
	revenueByCustomer := make(map[int64]decimal.Decimal)
	for _, t := range snap.Transactions {
		idx := monthIndex(t.InvoiceDate)
		if existing, ok := firstMonth[t.CustomerID]; !ok || idx < existing {
			firstMonth[t.CustomerID] = idx
		}
		revenueByCustomer[t.CustomerID] = revenueByCustomer[t.CustomerID].Add(t.Revenue())
	}

	type bucket struct {
		customers int
		revenue   decimal.Decimal
	}
	byMonth := make(map[int]*bucket)
	for customer, idx := range firstMonth {
		b, ok := byMonth[idx]
		if !ok {
			b = &bucket{}
			byMonth[idx] = b
		}
		b.customers++
		b.revenue = b.revenue.Add(revenueByCustomer[customer])
	}

	acquisition := make([]models.CustomerAcquisition, 0, len(byMonth))
	for idx, b := range byMonth {
		acquisition = append(acquisition, models.CustomerAcquisition{
			Month:        monthLabel(idx),
			NewCustomers: b.customers,
			Revenue:      b.revenue,
		})
	}
	sort.Slice(acquisition, func(i, j int) bool { return acquisition[i].Month < acquisition[j].Month })
	return acquisition
}
