package sales

import (
	"context"
	"time"

	"farmastok/internal/core/id"
)

// Filter narrows sale listings. Zero values are ignored.
type Filter struct {
	DateFrom *time.Time
	DateTo   *time.Time
	Page     int
	Limit    int
}

// Repository is the persistence contract for sales.
type Repository interface {
	// Create inserts a sale with its lines.
	Create(ctx context.Context, sale *Sale) error
	// GetByID loads a sale with its lines.
	GetByID(ctx context.Context, saleID id.ID) (*Sale, error)
	// List returns sales matching the filter plus the unpaged total.
	// Lines are loaded for every returned sale.
	List(ctx context.Context, filter Filter) ([]Sale, int, error)
}
