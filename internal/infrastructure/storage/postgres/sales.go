package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"farmastok/internal/core/apperror"
	"farmastok/internal/core/id"
	"farmastok/internal/domain/sales"
)

const (
	saleTable     = "sales"
	saleLineTable = "sale_lines"
)

// SalesRepo implements sales.Repository.
type SalesRepo struct {
	txManager *TxManager
}

// NewSalesRepo creates a new sales repository.
func NewSalesRepo(txManager *TxManager) *SalesRepo {
	return &SalesRepo{txManager: txManager}
}

var _ sales.Repository = (*SalesRepo)(nil)

func (r *SalesRepo) saleSelect() squirrel.SelectBuilder {
	return builder().
		Select(
			"sale_id", "invoice_number", "sale_date", "customer_name",
			"total_amount", "created_by", "created_at",
		).
		From(saleTable)
}

// Create inserts a sale with its lines.
func (r *SalesRepo) Create(ctx context.Context, sale *sales.Sale) error {
	querier := r.txManager.GetQuerier(ctx)

	saleQ := builder().
		Insert(saleTable).
		Columns(
			"sale_id", "invoice_number", "sale_date", "customer_name",
			"total_amount", "created_by", "created_at",
		).
		Values(
			sale.ID, sale.InvoiceNumber, sale.SaleDate, sale.CustomerName,
			sale.TotalAmount, sale.CreatedBy, sale.CreatedAt,
		)

	sql, args, err := saleQ.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert sale: %w", err)
	}

	if len(sale.Lines) == 0 {
		return nil
	}

	lineQ := builder().
		Insert(saleLineTable).
		Columns(
			"line_id", "sale_id", "code_product", "product_name",
			"quantity", "unit_price", "subtotal",
		)
	for _, line := range sale.Lines {
		lineQ = lineQ.Values(
			line.ID, line.SaleID, line.ProductCode, line.ProductName,
			line.Quantity, line.UnitPrice, line.Subtotal,
		)
	}

	sql, args, err = lineQ.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert sale lines: %w", err)
	}
	return nil
}

// GetByID loads a sale with its lines.
func (r *SalesRepo) GetByID(ctx context.Context, saleID id.ID) (*sales.Sale, error) {
	q := r.saleSelect().Where(squirrel.Eq{"sale_id": saleID}).Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var sale sales.Sale
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &sale, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("sale", saleID.String())
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}

	lines, err := r.loadLines(ctx, []id.ID{sale.ID})
	if err != nil {
		return nil, err
	}
	sale.Lines = lines[sale.ID]
	return &sale, nil
}

// List returns sales matching the filter plus the unpaged total.
func (r *SalesRepo) List(ctx context.Context, filter sales.Filter) ([]sales.Sale, int, error) {
	base := r.saleSelect()
	countQ := builder().Select("COUNT(*)").From(saleTable)

	conds := squirrel.And{}
	if filter.DateFrom != nil {
		conds = append(conds, squirrel.GtOrEq{"sale_date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		conds = append(conds, squirrel.LtOrEq{"sale_date": *filter.DateTo})
	}
	if len(conds) > 0 {
		base = base.Where(conds)
		countQ = countQ.Where(conds)
	}

	querier := r.txManager.GetQuerier(ctx)

	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count query: %w", err)
	}
	var total int
	if err := pgxscan.Get(ctx, querier, &total, countSQL, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count sales: %w", err)
	}

	offset := uint64((filter.Page - 1) * filter.Limit)
	base = base.
		OrderBy("sale_date DESC, created_at DESC").
		Limit(uint64(filter.Limit)).
		Offset(offset)

	sql, args, err := base.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build query: %w", err)
	}

	var result []sales.Sale
	if err := pgxscan.Select(ctx, querier, &result, sql, args...); err != nil {
		return nil, 0, fmt.Errorf("list sales: %w", err)
	}

	if len(result) > 0 {
		ids := make([]id.ID, len(result))
		for i := range result {
			ids[i] = result[i].ID
		}
		lines, err := r.loadLines(ctx, ids)
		if err != nil {
			return nil, 0, err
		}
		for i := range result {
			result[i].Lines = lines[result[i].ID]
		}
	}
	return result, total, nil
}

func (r *SalesRepo) loadLines(ctx context.Context, saleIDs []id.ID) (map[id.ID][]sales.SaleLine, error) {
	q := builder().
		Select(
			"line_id", "sale_id", "code_product", "product_name",
			"quantity", "unit_price", "subtotal",
		).
		From(saleLineTable).
		Where(squirrel.Eq{"sale_id": saleIDs}).
		OrderBy("line_id ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []sales.SaleLine
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("load sale lines: %w", err)
	}

	grouped := make(map[id.ID][]sales.SaleLine, len(saleIDs))
	for _, line := range lines {
		grouped[line.SaleID] = append(grouped[line.SaleID], line)
	}
	return grouped, nil
}
