package batch

import (
	"context"
	"time"

	"farmastok/internal/core/id"
)

// Repository defines persistence operations for the batch ledger.
//
// Ordering contract: every List* method returns batches in the canonical
// consumption order — expiry date ascending, ties broken by arrival date.
// Allocation and distribution both rely on this order being stable.
type Repository interface {
	// GetByID returns a single batch.
	GetByID(ctx context.Context, batchID id.ID) (*Batch, error)

	// ListByProduct returns all batches of a product in canonical order.
	ListByProduct(ctx context.Context, productCode string) ([]Batch, error)

	// ListByProductForUpdate returns all batches of a product in canonical
	// order, locking each row for the duration of the transaction.
	// Must be called inside a transaction.
	ListByProductForUpdate(ctx context.Context, productCode string) ([]Batch, error)

	// ListAvailableForUpdate returns batches with positive stock in canonical
	// order, locking each row. Must be called inside a transaction.
	ListAvailableForUpdate(ctx context.Context, productCode string) ([]Batch, error)

	// Search returns a page of batches matching the search term
	// (batch code, product code or product name) plus the total row count.
	Search(ctx context.Context, filter SearchFilter) ([]Batch, int, error)

	// SetStock overwrites a batch's stock quantity. Rejects negative values.
	SetStock(ctx context.Context, batchID id.ID, quantity int) error

	// DecrementStock reduces a batch's stock by the given amount.
	// The row must already be locked by the surrounding transaction.
	DecrementStock(ctx context.Context, batchID id.ID, by int) error

	// UpdateExpiry changes a batch's expiry date.
	UpdateExpiry(ctx context.Context, batchID id.ID, expiry time.Time) error

	// TotalStockByProduct returns sums of stock_quantity and initial_stock
	// grouped by product code.
	TotalStockByProduct(ctx context.Context) (map[string]StockTotal, error)
}

// SearchFilter narrows and pages batch searches.
type SearchFilter struct {
	Search string
	Page   int
	Limit  int
}

// StockTotal aggregates per-product stock figures.
type StockTotal struct {
	Current int
	Initial int
}
