// Package batch provides the batch ledger, the authoritative per-batch
// stock record for perishable inventory.
package batch

import (
	"context"
	"time"

	"farmastok/internal/core/apperror"
	"farmastok/internal/core/id"
)

// Batch represents one lot of a product with its own expiry and remaining stock.
//
// Invariant: StockQuantity >= 0 at all times. Mutations that would drive it
// negative must be rejected before any write happens.
type Batch struct {
	ID            id.ID     `db:"batch_id" json:"batchId"`
	BatchCode     string    `db:"batch_code" json:"batchCode"`
	ProductCode   string    `db:"code_product" json:"codeProduct"`
	InitialStock  int       `db:"initial_stock" json:"initialStock"`
	StockQuantity int       `db:"stock_quantity" json:"stockQuantity"`
	ArrivalDate   time.Time `db:"arrival_date" json:"arrivalDate"`
	ExpiryDate    time.Time `db:"exp_date" json:"expDate"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`
}

// Validate checks structural batch invariants.
func (b *Batch) Validate(ctx context.Context) error {
	if b.BatchCode == "" {
		return apperror.NewInvalidInput("batch code is required").WithDetail("field", "batchCode")
	}
	if b.ProductCode == "" {
		return apperror.NewInvalidInput("product code is required").WithDetail("field", "codeProduct")
	}
	if b.StockQuantity < 0 {
		return apperror.NewInvalidInput("stock quantity cannot be negative").
			WithDetail("field", "stockQuantity").
			WithDetail("value", b.StockQuantity)
	}
	if b.ExpiryDate.IsZero() {
		return apperror.NewInvalidInput("expiry date is required").WithDetail("field", "expDate")
	}
	return nil
}

// IsExpired reports whether the batch is past its expiry date as of the given day.
func (b *Batch) IsExpired(asOf time.Time) bool {
	return b.ExpiryDate.Before(asOf)
}

// TotalStock sums current sellable stock across batches.
func TotalStock(batches []Batch) int {
	total := 0
	for _, b := range batches {
		total += b.StockQuantity
	}
	return total
}
