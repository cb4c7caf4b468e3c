// Package catalog provides read access to the product catalog.
// Products and categories are owned by an external catalog system; the
// inventory core references them by code and never mutates them.
package catalog

import (
	"farmastok/internal/core/types"
)

// Category represents a product category.
type Category struct {
	Code string `db:"code_categories" json:"codeCategories"`
	Name string `db:"name_categories" json:"nameCategories"`
}

// Product represents a catalog product referenced by batches.
type Product struct {
	Code          string      `db:"code_product" json:"codeProduct"`
	Name          string      `db:"name_product" json:"nameProduct"`
	CategoryCode  string      `db:"code_categories" json:"codeCategories"`
	MinStock      int         `db:"min_stock" json:"minStock"`
	SellPrice     types.Money `db:"sell_price" json:"sellPrice"`
	PurchasePrice types.Money `db:"purchase_price" json:"purchasePrice"`

	// Loaded relation
	Category *Category `db:"-" json:"category,omitempty"`
}
