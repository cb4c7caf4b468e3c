package catalog

import (
	"context"
)

// Repository defines read-only catalog access.
type Repository interface {
	// GetProduct returns a product by its unique code.
	GetProduct(ctx context.Context, code string) (*Product, error)

	// GetProductByName resolves a product by its display name.
	// Used as a fallback when a sale line carries no usable product code.
	GetProductByName(ctx context.Context, name string) (*Product, error)

	// ListProducts returns all products with their categories.
	ListProducts(ctx context.Context) ([]Product, error)

	// ListProductsByCategory returns the products in one category.
	ListProductsByCategory(ctx context.Context, categoryCode string) ([]Product, error)

	// GetCategory returns a category by code.
	GetCategory(ctx context.Context, code string) (*Category, error)
}
