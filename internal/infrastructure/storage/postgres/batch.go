package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"farmastok/internal/core/apperror"
	"farmastok/internal/core/id"
	"farmastok/internal/domain/batch"
)

const batchTable = "batches"

// canonicalOrder is the consumption order every batch listing uses:
// soonest expiry first, ties broken by arrival.
const canonicalOrder = "exp_date ASC, arrival_date ASC"

// BatchRepo implements batch.Repository.
type BatchRepo struct {
	txManager *TxManager
}

// NewBatchRepo creates a new batch repository.
func NewBatchRepo(txManager *TxManager) *BatchRepo {
	return &BatchRepo{txManager: txManager}
}

var _ batch.Repository = (*BatchRepo)(nil)

func (r *BatchRepo) baseSelect() squirrel.SelectBuilder {
	return builder().
		Select(
			"batch_id", "batch_code", "code_product", "initial_stock",
			"stock_quantity", "arrival_date", "exp_date",
			"created_at", "updated_at",
		).
		From(batchTable)
}

// GetByID returns a single batch.
func (r *BatchRepo) GetByID(ctx context.Context, batchID id.ID) (*batch.Batch, error) {
	q := r.baseSelect().Where(squirrel.Eq{"batch_id": batchID}).Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var b batch.Batch
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &b, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("batch", batchID.String())
		}
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return &b, nil
}

// ListByProduct returns all batches of a product in canonical order.
func (r *BatchRepo) ListByProduct(ctx context.Context, productCode string) ([]batch.Batch, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"code_product": productCode}).
		OrderBy(canonicalOrder)
	return r.selectBatches(ctx, q, "list batches")
}

// ListByProductForUpdate returns all batches of a product in canonical order
// with their rows locked.
func (r *BatchRepo) ListByProductForUpdate(ctx context.Context, productCode string) ([]batch.Batch, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"code_product": productCode}).
		OrderBy(canonicalOrder).
		Suffix("FOR UPDATE")
	return r.selectBatches(ctx, q, "lock batches")
}

// ListAvailableForUpdate returns batches with positive stock in canonical
// order with their rows locked.
func (r *BatchRepo) ListAvailableForUpdate(ctx context.Context, productCode string) ([]batch.Batch, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"code_product": productCode}).
		Where(squirrel.Gt{"stock_quantity": 0}).
		OrderBy(canonicalOrder).
		Suffix("FOR UPDATE")
	return r.selectBatches(ctx, q, "lock available batches")
}

func (r *BatchRepo) selectBatches(ctx context.Context, q squirrel.SelectBuilder, op string) ([]batch.Batch, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var batches []batch.Batch
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &batches, sql, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return batches, nil
}

// Search returns a page of batches matching the search term plus the total
// row count. The term matches batch code, product code and product name.
func (r *BatchRepo) Search(ctx context.Context, filter batch.SearchFilter) ([]batch.Batch, int, error) {
	base := builder().
		Select(
			"b.batch_id", "b.batch_code", "b.code_product", "b.initial_stock",
			"b.stock_quantity", "b.arrival_date", "b.exp_date",
			"b.created_at", "b.updated_at",
		).
		From(batchTable + " b").
		Join(productTable + " p ON p.code_product = b.code_product")

	countQ := builder().
		Select("COUNT(*)").
		From(batchTable + " b").
		Join(productTable + " p ON p.code_product = b.code_product")

	if filter.Search != "" {
		term := "%" + filter.Search + "%"
		cond := squirrel.Or{
			squirrel.ILike{"b.batch_code": term},
			squirrel.ILike{"b.code_product": term},
			squirrel.ILike{"p.name_product": term},
		}
		base = base.Where(cond)
		countQ = countQ.Where(cond)
	}

	querier := r.txManager.GetQuerier(ctx)

	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count query: %w", err)
	}
	var total int
	if err := pgxscan.Get(ctx, querier, &total, countSQL, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count batches: %w", err)
	}

	offset := uint64((filter.Page - 1) * filter.Limit)
	base = base.
		OrderBy("b.exp_date ASC, b.arrival_date ASC").
		Limit(uint64(filter.Limit)).
		Offset(offset)

	sql, args, err := base.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build query: %w", err)
	}

	var batches []batch.Batch
	if err := pgxscan.Select(ctx, querier, &batches, sql, args...); err != nil {
		return nil, 0, fmt.Errorf("search batches: %w", err)
	}
	return batches, total, nil
}

// SetStock overwrites a batch's stock quantity.
func (r *BatchRepo) SetStock(ctx context.Context, batchID id.ID, quantity int) error {
	if quantity < 0 {
		return apperror.NewInvalidInput("stock quantity cannot be negative").
			WithDetail("batch_id", batchID.String()).
			WithDetail("quantity", quantity)
	}

	q := builder().
		Update(batchTable).
		Set("stock_quantity", quantity).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"batch_id": batchID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("set stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("batch", batchID.String())
	}
	return nil
}

// DecrementStock reduces a batch's stock by the given amount. The guard in
// the WHERE clause keeps the quantity from ever going negative even if the
// caller's arithmetic is off.
func (r *BatchRepo) DecrementStock(ctx context.Context, batchID id.ID, by int) error {
	if by <= 0 {
		return apperror.NewInvalidInput("decrement must be a positive integer").
			WithDetail("batch_id", batchID.String()).
			WithDetail("by", by)
	}

	q := builder().
		Update(batchTable).
		Set("stock_quantity", squirrel.Expr("stock_quantity - ?", by)).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"batch_id": batchID}).
		Where(squirrel.GtOrEq{"stock_quantity": by})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConflict("batch stock changed concurrently or is insufficient").
			WithDetail("batch_id", batchID.String()).
			WithDetail("by", by)
	}
	return nil
}

// UpdateExpiry changes a batch's expiry date.
func (r *BatchRepo) UpdateExpiry(ctx context.Context, batchID id.ID, expiry time.Time) error {
	q := builder().
		Update(batchTable).
		Set("exp_date", expiry).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"batch_id": batchID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update expiry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("batch", batchID.String())
	}
	return nil
}

// TotalStockByProduct returns stock sums grouped by product code.
func (r *BatchRepo) TotalStockByProduct(ctx context.Context) (map[string]batch.StockTotal, error) {
	q := builder().
		Select(
			"code_product",
			"COALESCE(SUM(stock_quantity), 0) AS current_stock",
			"COALESCE(SUM(initial_stock), 0) AS initial_stock",
		).
		From(batchTable).
		GroupBy("code_product")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []struct {
		CodeProduct  string `db:"code_product"`
		CurrentStock int    `db:"current_stock"`
		InitialStock int    `db:"initial_stock"`
	}
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("total stock by product: %w", err)
	}

	totals := make(map[string]batch.StockTotal, len(rows))
	for _, row := range rows {
		totals[row.CodeProduct] = batch.StockTotal{
			Current: row.CurrentStock,
			Initial: row.InitialStock,
		}
	}
	return totals, nil
}
