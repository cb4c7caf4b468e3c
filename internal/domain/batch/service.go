package batch

import (
	"context"
	"fmt"
	"time"

	"farmastok/internal/core/apperror"
	"farmastok/internal/core/id"
	"farmastok/internal/core/types"
	"farmastok/internal/domain/catalog"
	"farmastok/pkg/logger"
)

// Service provides business operations for the batch ledger.
type Service struct {
	repo    Repository
	catalog catalog.Repository
}

// NewService creates a new batch ledger service.
func NewService(repo Repository, catalogRepo catalog.Repository) *Service {
	return &Service{
		repo:    repo,
		catalog: catalogRepo,
	}
}

// GetByID retrieves a single batch.
func (s *Service) GetByID(ctx context.Context, batchID id.ID) (*Batch, error) {
	return s.repo.GetByID(ctx, batchID)
}

// ListByProduct returns a product's batches in canonical consumption order.
func (s *Service) ListByProduct(ctx context.Context, productCode string) ([]Batch, error) {
	if productCode == "" {
		return nil, apperror.NewInvalidInput("product code is required")
	}
	return s.repo.ListByProduct(ctx, productCode)
}

// ProductStock returns a product's batches together with the summed stock.
func (s *Service) ProductStock(ctx context.Context, productCode string) ([]Batch, int, error) {
	batches, err := s.ListByProduct(ctx, productCode)
	if err != nil {
		return nil, 0, err
	}
	return batches, TotalStock(batches), nil
}

// Search returns a page of batches.
func (s *Service) Search(ctx context.Context, filter SearchFilter) ([]Batch, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	return s.repo.Search(ctx, filter)
}

// UpdateExpiry changes a batch's expiry date.
func (s *Service) UpdateExpiry(ctx context.Context, batchID id.ID, expiry time.Time) error {
	if expiry.IsZero() {
		return apperror.NewInvalidInput("expiry date is required").WithDetail("field", "expDate")
	}

	if _, err := s.repo.GetByID(ctx, batchID); err != nil {
		return err
	}

	if err := s.repo.UpdateExpiry(ctx, batchID, expiry); err != nil {
		return fmt.Errorf("update expiry: %w", err)
	}

	logger.Info(ctx, "batch expiry updated",
		"batch_id", batchID,
		"exp_date", types.FormatDate(expiry),
	)
	return nil
}

// MinStockAlert flags a product whose total stock is at or below its minimum.
type MinStockAlert struct {
	ProductCode  string      `json:"codeProduct"`
	ProductName  string      `json:"nameProduct"`
	CategoryCode string      `json:"codeCategories"`
	MinStock     int         `json:"minStock"`
	CurrentStock int         `json:"currentStock"`
	SellPrice    types.Money `json:"sellPrice"`
}

// MinStockAlerts returns every product whose summed batch stock has fallen
// to or below the product's minimum threshold.
func (s *Service) MinStockAlerts(ctx context.Context) ([]MinStockAlert, error) {
	products, err := s.catalog.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	totals, err := s.repo.TotalStockByProduct(ctx)
	if err != nil {
		return nil, fmt.Errorf("total stock by product: %w", err)
	}

	alerts := make([]MinStockAlert, 0)
	for _, p := range products {
		current := totals[p.Code].Current
		if current <= p.MinStock {
			alerts = append(alerts, MinStockAlert{
				ProductCode:  p.Code,
				ProductName:  p.Name,
				CategoryCode: p.CategoryCode,
				MinStock:     p.MinStock,
				CurrentStock: current,
				SellPrice:    p.SellPrice,
			})
		}
	}

	return alerts, nil
}
