package dto

import (
	"time"

	"farmastok/internal/domain/sales"
)

// SaleLineRequest is one requested product position.
type SaleLineRequest struct {
	ProductCode string `json:"productCode"`
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity" binding:"required,min=1"`
}

// CreateSaleRequest records a sale.
type CreateSaleRequest struct {
	SaleDate     *time.Time        `json:"saleDate"`
	CustomerName string            `json:"customerName"`
	Lines        []SaleLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ToCreateInput converts to a domain create input.
func (r *CreateSaleRequest) ToCreateInput() sales.CreateInput {
	input := sales.CreateInput{
		CustomerName: r.CustomerName,
		Lines:        make([]sales.LineInput, len(r.Lines)),
	}
	if r.SaleDate != nil {
		input.SaleDate = *r.SaleDate
	}
	for i, line := range r.Lines {
		input.Lines[i] = sales.LineInput{
			ProductCode: line.ProductCode,
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
		}
	}
	return input
}

// SaleLineResponse is one line of a recorded sale.
type SaleLineResponse struct {
	ID          string `json:"id"`
	ProductCode string `json:"productCode"`
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unitPrice"`
	Subtotal    string `json:"subtotal"`
}

// SaleResponse is a recorded sale with its lines.
type SaleResponse struct {
	ID            string             `json:"id"`
	InvoiceNumber string             `json:"invoiceNumber"`
	SaleDate      time.Time          `json:"saleDate"`
	CustomerName  string             `json:"customerName,omitempty"`
	TotalAmount   string             `json:"totalAmount"`
	CreatedBy     string             `json:"createdBy"`
	CreatedAt     time.Time          `json:"createdAt"`
	Lines         []SaleLineResponse `json:"lines"`
}

// FromSale converts a domain sale.
func FromSale(s *sales.Sale) SaleResponse {
	lines := make([]SaleLineResponse, len(s.Lines))
	for i, l := range s.Lines {
		lines[i] = SaleLineResponse{
			ID:          l.ID.String(),
			ProductCode: l.ProductCode,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice.String(),
			Subtotal:    l.Subtotal.String(),
		}
	}
	return SaleResponse{
		ID:            s.ID.String(),
		InvoiceNumber: s.InvoiceNumber,
		SaleDate:      s.SaleDate,
		CustomerName:  s.CustomerName,
		TotalAmount:   s.TotalAmount.String(),
		CreatedBy:     s.CreatedBy.String(),
		CreatedAt:     s.CreatedAt,
		Lines:         lines,
	}
}

// FromSales converts a slice of domain sales.
func FromSales(items []sales.Sale) []SaleResponse {
	out := make([]SaleResponse, len(items))
	for i := range items {
		out[i] = FromSale(&items[i])
	}
	return out
}

// SaleListRequest filters sale listings.
type SaleListRequest struct {
	PaginationRequest
	DateFrom *time.Time `form:"dateFrom" time_format:"2006-01-02"`
	DateTo   *time.Time `form:"dateTo" time_format:"2006-01-02"`
}
