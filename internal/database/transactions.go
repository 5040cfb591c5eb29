package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"

	"github.com/commercelab/retail-analytics/internal/models"
)

// DatabasePool defines the interface for database pool operations.
// This interface allows for both real pool and mock pool implementations.
type DatabasePool interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// TransactionRepository reads the cleaned transaction snapshot. Upstream
// preparation owns cleaning (cancelled orders, null customers, outliers);
// this layer only moves rows.
type TransactionRepository struct {
	pool DatabasePool
}

// NewTransactionRepository creates a new transaction repository.
func NewTransactionRepository(pool DatabasePool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

const loadTransactionsQuery = `
	SELECT invoice_no, customer_id, invoice_date, stock_code, description,
	       quantity, unit_price, country, region, test_group, discount_rate
	FROM transactions
	ORDER BY customer_id, invoice_date, invoice_no
`

// LoadSnapshot reads the full transaction table in one pass. The
// connection is held only for the duration of the load; engines run
// against the returned slice.
func (r *TransactionRepository) LoadSnapshot(ctx context.Context) ([]models.Transaction, error) {
	start := time.Now()

	rows, err := r.pool.Query(ctx, loadTransactionsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txns []models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(
			&t.InvoiceNo,
			&t.CustomerID,
			&t.InvoiceDate,
			&t.StockCode,
			&t.Description,
			&t.Quantity,
			&t.UnitPrice,
			&t.Country,
			&t.Region,
			&t.TestGroup,
			&t.DiscountRate,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transactions: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"rows":        len(txns),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Loaded transaction snapshot")

	return txns, nil
}

// CountTransactions returns the snapshot row count without loading it.
func (r *TransactionRepository) CountTransactions(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}
