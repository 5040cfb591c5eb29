package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Test group labels assigned to every customer in the discount experiment.
const (
	GroupControl   = "Control"
	GroupTreatment = "Treatment"
)

// Transaction represents a single cleaned invoice line from the
// transaction snapshot. Records are immutable once loaded.
type Transaction struct {
	InvoiceNo    string          `json:"invoice_no" db:"invoice_no"`
	CustomerID   int64           `json:"customer_id" db:"customer_id"`
	InvoiceDate  time.Time       `json:"invoice_date" db:"invoice_date"`
	StockCode    string          `json:"stock_code" db:"stock_code"`
	Description  string          `json:"description" db:"description"`
	Quantity     int64           `json:"quantity" db:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price" db:"unit_price"`
	Country      string          `json:"country" db:"country"`
	Region       string          `json:"region" db:"region"`
	TestGroup    string          `json:"test_group" db:"test_group"`
	DiscountRate decimal.Decimal `json:"discount_rate" db:"discount_rate"`
}

// Revenue is the undiscounted line revenue: quantity x unit price.
func (t Transaction) Revenue() decimal.Decimal {
	return t.UnitPrice.Mul(decimal.NewFromInt(t.Quantity))
}

// DiscountedRevenue is the revenue actually paid after the discount rate.
func (t Transaction) DiscountedRevenue() decimal.Decimal {
	return t.Revenue().Mul(decimal.NewFromInt(1).Sub(t.DiscountRate))
}

// DiscountAmount is the revenue forgone to the discount.
func (t Transaction) DiscountAmount() decimal.Decimal {
	return t.Revenue().Sub(t.DiscountedRevenue())
}

// YearMonth returns the calendar month label of the invoice date,
// formatted "2006-01". All month-level grouping uses this label.
func (t Transaction) YearMonth() string {
	return t.InvoiceDate.Format("2006-01")
}
