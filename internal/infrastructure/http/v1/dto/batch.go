package dto

import (
	"time"

	"farmastok/internal/domain/batch"
)

// BatchResponse represents one batch.
type BatchResponse struct {
	ID            string    `json:"id"`
	BatchCode     string    `json:"batchCode"`
	ProductCode   string    `json:"productCode"`
	InitialStock  int       `json:"initialStock"`
	StockQuantity int       `json:"stockQuantity"`
	ArrivalDate   time.Time `json:"arrivalDate"`
	ExpiryDate    time.Time `json:"expiryDate"`
	Expired       bool      `json:"expired"`
}

// FromBatch converts a domain batch.
func FromBatch(b batch.Batch) BatchResponse {
	return BatchResponse{
		ID:            b.ID.String(),
		BatchCode:     b.BatchCode,
		ProductCode:   b.ProductCode,
		InitialStock:  b.InitialStock,
		StockQuantity: b.StockQuantity,
		ArrivalDate:   b.ArrivalDate,
		ExpiryDate:    b.ExpiryDate,
		Expired:       b.IsExpired(time.Now()),
	}
}

// FromBatches converts a slice of domain batches.
func FromBatches(batches []batch.Batch) []BatchResponse {
	out := make([]BatchResponse, len(batches))
	for i, b := range batches {
		out[i] = FromBatch(b)
	}
	return out
}

// BatchSearchRequest filters batch searches.
type BatchSearchRequest struct {
	PaginationRequest
	Search string `form:"search"`
}

// UpdateExpiryRequest changes a batch's expiry date.
type UpdateExpiryRequest struct {
	ExpiryDate time.Time `json:"expiryDate" binding:"required" time_format:"2006-01-02"`
}

