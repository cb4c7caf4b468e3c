package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"farmastok/internal/core/apperror"
	"farmastok/internal/domain/catalog"
)

const (
	productTable  = "products"
	categoryTable = "categories"
)

// CatalogRepo implements catalog.Repository.
type CatalogRepo struct {
	txManager *TxManager
}

// NewCatalogRepo creates a new catalog repository.
func NewCatalogRepo(txManager *TxManager) *CatalogRepo {
	return &CatalogRepo{txManager: txManager}
}

var _ catalog.Repository = (*CatalogRepo)(nil)

func builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *CatalogRepo) productSelect() squirrel.SelectBuilder {
	return builder().
		Select(
			"p.code_product", "p.name_product", "p.code_categories",
			"p.min_stock", "p.sell_price", "p.purchase_price",
		).
		From(productTable + " p")
}

// GetProduct returns a product by its unique code.
func (r *CatalogRepo) GetProduct(ctx context.Context, code string) (*catalog.Product, error) {
	q := r.productSelect().Where(squirrel.Eq{"p.code_product": code}).Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var p catalog.Product
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("product", code)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// GetProductByName resolves a product by its display name.
func (r *CatalogRepo) GetProductByName(ctx context.Context, name string) (*catalog.Product, error) {
	q := r.productSelect().Where(squirrel.Eq{"p.name_product": name}).Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var p catalog.Product
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("product", name)
		}
		return nil, fmt.Errorf("get product by name: %w", err)
	}
	return &p, nil
}

// ListProducts returns all products.
func (r *CatalogRepo) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	q := r.productSelect().OrderBy("p.name_product ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var products []catalog.Product
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &products, sql, args...); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// ListProductsByCategory returns the products in one category.
func (r *CatalogRepo) ListProductsByCategory(ctx context.Context, categoryCode string) ([]catalog.Product, error) {
	q := r.productSelect().
		Where(squirrel.Eq{"p.code_categories": categoryCode}).
		OrderBy("p.name_product ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var products []catalog.Product
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &products, sql, args...); err != nil {
		return nil, fmt.Errorf("list products by category: %w", err)
	}
	return products, nil
}

// GetCategory returns a category by code.
func (r *CatalogRepo) GetCategory(ctx context.Context, code string) (*catalog.Category, error) {
	q := builder().
		Select("code_categories", "name_categories").
		From(categoryTable).
		Where(squirrel.Eq{"code_categories": code}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var c catalog.Category
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &c, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("category", code)
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &c, nil
}
