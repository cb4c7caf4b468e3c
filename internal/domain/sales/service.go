package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"farmastok/internal/core/apperror"
	"farmastok/internal/core/appctx"
	"farmastok/internal/core/id"
	"farmastok/internal/core/tx"
	"farmastok/internal/domain/allocation"
	"farmastok/internal/domain/catalog"
	"farmastok/pkg/logger"
)

// Service creates and reads sales. Stock leaves the system only through the
// allocation engine, inside the same transaction that saves the sale.
type Service struct {
	repo      Repository
	catalog   catalog.Repository
	allocator *allocation.Engine
	txManager tx.Manager
}

// NewService creates a sales service.
func NewService(repo Repository, cat catalog.Repository, allocator *allocation.Engine, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		catalog:   cat,
		allocator: allocator,
		txManager: txManager,
	}
}

// LineInput is one requested product position.
type LineInput struct {
	ProductCode string
	ProductName string
	Quantity    int
}

// CreateInput describes a sale to record.
type CreateInput struct {
	SaleDate     time.Time
	CustomerName string
	Lines        []LineInput
}

// Create records a sale, deducting every line from batch stock FIFO by
// expiry. If any line cannot be covered the whole sale rolls back.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Sale, error) {
	user := appctx.GetUser(ctx)
	if user == nil {
		return nil, apperror.NewUnauthorized("authentication required")
	}
	createdBy, err := id.Parse(user.UserID)
	if err != nil {
		return nil, apperror.NewUnauthorized("invalid user identity")
	}
	if len(input.Lines) == 0 {
		return nil, apperror.NewInvalidInput("a sale needs at least one line")
	}

	saleDate := input.SaleDate
	if saleDate.IsZero() {
		saleDate = time.Now()
	}

	sale := &Sale{
		ID:            id.New(),
		InvoiceNumber: newInvoiceNumber(saleDate),
		SaleDate:      saleDate,
		CustomerName:  input.CustomerName,
		TotalAmount:   decimal.Zero,
		CreatedBy:     createdBy,
		CreatedAt:     time.Now(),
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, line := range input.Lines {
			if line.Quantity <= 0 {
				return apperror.NewInvalidInput("line quantity must be a positive integer").
					WithDetail("product_code", line.ProductCode).
					WithDetail("quantity", line.Quantity)
			}

			product, err := s.resolveProduct(ctx, line)
			if err != nil {
				return err
			}

			if _, err := s.allocator.Allocate(ctx, product.Code, line.Quantity); err != nil {
				return err
			}

			subtotal := product.SellPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
			sale.Lines = append(sale.Lines, SaleLine{
				ID:          id.New(),
				SaleID:      sale.ID,
				ProductCode: product.Code,
				ProductName: product.Name,
				Quantity:    line.Quantity,
				UnitPrice:   product.SellPrice,
				Subtotal:    subtotal,
			})
			sale.TotalAmount = sale.TotalAmount.Add(subtotal)
		}
		return s.repo.Create(ctx, sale)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "sale recorded",
		"invoice", sale.InvoiceNumber,
		"lines", len(sale.Lines),
		"total", sale.TotalAmount.String())
	return sale, nil
}

// GetByID loads a sale with its lines.
func (s *Service) GetByID(ctx context.Context, saleID id.ID) (*Sale, error) {
	return s.repo.GetByID(ctx, saleID)
}

// List returns sales matching the filter plus the unpaged total.
func (s *Service) List(ctx context.Context, filter Filter) ([]Sale, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	return s.repo.List(ctx, filter)
}

// resolveProduct resolves a line's product by code, falling back to the
// display name when the code is empty.
func (s *Service) resolveProduct(ctx context.Context, line LineInput) (*catalog.Product, error) {
	if line.ProductCode != "" {
		return s.catalog.GetProduct(ctx, line.ProductCode)
	}
	if line.ProductName != "" {
		return s.catalog.GetProductByName(ctx, line.ProductName)
	}
	return nil, apperror.NewInvalidInput("a sale line needs a product code or name")
}

func newInvoiceNumber(saleDate time.Time) string {
	suffix := id.New().String()
	return fmt.Sprintf("INV-%s-%s", saleDate.Format("20060102"), suffix[len(suffix)-12:])
}
