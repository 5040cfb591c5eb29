package services

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/commercelab/retail-analytics/internal/models"
)

// Snapshot is an immutable, validated view of the transaction table for
// one analysis run. All four engines read it concurrently without
// locking; nothing mutates it after construction.
type Snapshot struct {
	Transactions []models.Transaction

	// AnalysisDate is the single reference point for recency: the day
	// after the latest invoice in the snapshot.
	AnalysisDate time.Time
	MinDate      time.Time
	MaxDate      time.Time
}

// NewSnapshot validates the loaded transaction set and fixes the
// analysis date. Violations of the cleaning contract return
// ErrDataIntegrity.
func NewSnapshot(txns []models.Transaction) (*Snapshot, error) {
	if len(txns) == 0 {
		return nil, fmt.Errorf("%w: empty transaction snapshot", ErrDataIntegrity)
	}

	one := decimal.NewFromInt(1)
	groupByCustomer := make(map[int64]string)
	regionByCustomer := make(map[int64]string)

	var minDate, maxDate time.Time
	for i, t := range txns {
		switch {
		case t.InvoiceNo == "":
			return nil, fmt.Errorf("%w: row %d has empty invoice no", ErrDataIntegrity, i)
		case t.CustomerID <= 0:
			return nil, fmt.Errorf("%w: row %d has invalid customer id %d", ErrDataIntegrity, i, t.CustomerID)
		case t.InvoiceDate.IsZero():
			return nil, fmt.Errorf("%w: row %d has zero invoice date", ErrDataIntegrity, i)
		case t.Quantity <= 0:
			return nil, fmt.Errorf("%w: row %d has non-positive quantity %d", ErrDataIntegrity, i, t.Quantity)
		case t.UnitPrice.Sign() <= 0:
			return nil, fmt.Errorf("%w: row %d has non-positive unit price %s", ErrDataIntegrity, i, t.UnitPrice)
		case t.DiscountRate.Sign() < 0 || t.DiscountRate.Cmp(one) >= 0:
			return nil, fmt.Errorf("%w: row %d has discount rate %s outside [0, 1)", ErrDataIntegrity, i, t.DiscountRate)
		}

		switch t.TestGroup {
		case models.GroupControl:
			if t.DiscountRate.Sign() != 0 {
				return nil, fmt.Errorf("%w: row %d is Control with non-zero discount rate", ErrDataIntegrity, i)
			}
		case models.GroupTreatment:
		default:
			return nil, fmt.Errorf("%w: row %d has unknown test group %q", ErrDataIntegrity, i, t.TestGroup)
		}

		if g, ok := groupByCustomer[t.CustomerID]; ok && g != t.TestGroup {
			return nil, fmt.Errorf("%w: customer %d assigned to both %s and %s", ErrDataIntegrity, t.CustomerID, g, t.TestGroup)
		}
		groupByCustomer[t.CustomerID] = t.TestGroup

		if r, ok := regionByCustomer[t.CustomerID]; ok && r != t.Region {
			return nil, fmt.Errorf("%w: customer %d has regions %q and %q", ErrDataIntegrity, t.CustomerID, r, t.Region)
		}
		regionByCustomer[t.CustomerID] = t.Region

		if minDate.IsZero() || t.InvoiceDate.Before(minDate) {
			minDate = t.InvoiceDate
		}
		if t.InvoiceDate.After(maxDate) {
			maxDate = t.InvoiceDate
		}
	}

	return &Snapshot{
		Transactions: txns,
		AnalysisDate: maxDate.AddDate(0, 0, 1),
		MinDate:      minDate,
		MaxDate:      maxDate,
	}, nil
}

// CustomerCount returns the number of distinct customers in the snapshot.
func (s *Snapshot) CustomerCount() int {
	seen := make(map[int64]struct{})
	for _, t := range s.Transactions {
		seen[t.CustomerID] = struct{}{}
	}
	return len(seen)
}
