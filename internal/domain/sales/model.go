// Package sales records dispensing transactions. Every sale line draws its
// quantity from batch stock through the FIFO allocation engine, so a sale is
// only saved when all of its lines could be covered.
package sales

import (
	"time"

	"farmastok/internal/core/id"
	"farmastok/internal/core/types"
)

// Sale is one dispensing transaction with its lines.
type Sale struct {
	ID            id.ID       `db:"sale_id"`
	InvoiceNumber string      `db:"invoice_number"`
	SaleDate      time.Time   `db:"sale_date"`
	CustomerName  string      `db:"customer_name"`
	TotalAmount   types.Money `db:"total_amount"`
	CreatedBy     id.ID       `db:"created_by"`
	CreatedAt     time.Time   `db:"created_at"`

	Lines []SaleLine `db:"-"`
}

// SaleLine is one product position on a sale.
type SaleLine struct {
	ID          id.ID       `db:"line_id"`
	SaleID      id.ID       `db:"sale_id"`
	ProductCode string      `db:"code_product"`
	ProductName string      `db:"product_name"`
	Quantity    int         `db:"quantity"`
	UnitPrice   types.Money `db:"unit_price"`
	Subtotal    types.Money `db:"subtotal"`
}
