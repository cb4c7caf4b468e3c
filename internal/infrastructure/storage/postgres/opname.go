package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"farmastok/internal/core/apperror"
	"farmastok/internal/core/id"
	"farmastok/internal/domain/opname"
)

const opnameTable = "opname_tasks"

var opnameColumns = []string{
	"task_id", "user_id", "code_product", "batch_id", "status",
	"scheduled_date", "opname_date", "system_stock", "physical_stock",
	"expired_stock", "damaged_stock", "residual", "notes",
	"edit_requested", "edit_reason", "created_at", "updated_at",
}

// OpnameRepo implements opname.Repository.
type OpnameRepo struct {
	txManager *TxManager
}

// NewOpnameRepo creates a new stock-count task repository.
func NewOpnameRepo(txManager *TxManager) *OpnameRepo {
	return &OpnameRepo{txManager: txManager}
}

var _ opname.Repository = (*OpnameRepo)(nil)

func (r *OpnameRepo) baseSelect() squirrel.SelectBuilder {
	return builder().Select(opnameColumns...).From(opnameTable)
}

// Create inserts one or more tasks in a single statement.
func (r *OpnameRepo) Create(ctx context.Context, tasks []opname.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	q := builder().Insert(opnameTable).Columns(opnameColumns...)
	for _, t := range tasks {
		q = q.Values(
			t.ID, t.UserID, t.ProductCode, t.BatchID, t.Status,
			t.ScheduledDate, t.OpnameDate, t.SystemStock, t.PhysicalStock,
			t.ExpiredStock, t.DamagedStock, t.Residual, t.Notes,
			t.EditRequested, t.EditReason, t.CreatedAt, t.UpdatedAt,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert tasks: %w", err)
	}
	return nil
}

// GetByID loads one task.
func (r *OpnameRepo) GetByID(ctx context.Context, taskID id.ID) (*opname.Task, error) {
	q := r.baseSelect().Where(squirrel.Eq{"task_id": taskID}).Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var t opname.Task
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &t, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("task", taskID.String())
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return &t, nil
}

// Update persists count, status and edit-request changes.
func (r *OpnameRepo) Update(ctx context.Context, task *opname.Task) error {
	q := builder().
		Update(opnameTable).
		Set("status", task.Status).
		Set("opname_date", task.OpnameDate).
		Set("physical_stock", task.PhysicalStock).
		Set("expired_stock", task.ExpiredStock).
		Set("damaged_stock", task.DamagedStock).
		Set("residual", task.Residual).
		Set("notes", task.Notes).
		Set("edit_requested", task.EditRequested).
		Set("edit_reason", task.EditReason).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"task_id": task.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("task", task.ID.String())
	}
	return nil
}

// List returns tasks matching the filter plus the unpaged total.
func (r *OpnameRepo) List(ctx context.Context, filter opname.Filter) ([]opname.Task, int, error) {
	base := r.baseSelect()
	countQ := builder().Select("COUNT(*)").From(opnameTable)

	conds := squirrel.And{}
	if filter.UserID != nil {
		conds = append(conds, squirrel.Eq{"user_id": *filter.UserID})
	}
	if filter.ProductCode != "" {
		conds = append(conds, squirrel.Eq{"code_product": filter.ProductCode})
	}
	if filter.Status != "" {
		conds = append(conds, squirrel.Eq{"status": filter.Status})
	}
	if filter.DateFrom != nil {
		conds = append(conds, squirrel.GtOrEq{"scheduled_date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		conds = append(conds, squirrel.LtOrEq{"scheduled_date": *filter.DateTo})
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
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	base = base.OrderBy("created_at DESC")
	if filter.Limit > 0 {
		offset := 0
		if filter.Page > 1 {
			offset = (filter.Page - 1) * filter.Limit
		}
		base = base.Limit(uint64(filter.Limit)).Offset(uint64(offset))
	}

	sql, args, err := base.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build query: %w", err)
	}

	var tasks []opname.Task
	if err := pgxscan.Select(ctx, querier, &tasks, sql, args...); err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, total, nil
}

// ListScheduledForUpdate loads a user's scheduled batch tasks for one
// product, locked, in canonical consumption order.
func (r *OpnameRepo) ListScheduledForUpdate(ctx context.Context, userID id.ID, productCode string) ([]opname.Task, error) {
	q := builder().
		Select(prefixColumns("t", opnameColumns)...).
		From(opnameTable + " t").
		Join(batchTable + " b ON b.batch_id = t.batch_id").
		Where(squirrel.Eq{"t.user_id": userID}).
		Where(squirrel.Eq{"t.code_product": productCode}).
		Where(squirrel.Eq{"t.status": opname.StatusScheduled}).
		OrderBy("b.exp_date ASC, b.arrival_date ASC").
		Suffix("FOR UPDATE OF t")

	return r.selectTasks(ctx, q, "lock scheduled tasks")
}

// ListPendingForUpdate loads pending direct-count tasks for one product,
// locked, batch tasks first in canonical order, residual rows last.
func (r *OpnameRepo) ListPendingForUpdate(ctx context.Context, productCode string) ([]opname.Task, error) {
	q := builder().
		Select(prefixColumns("t", opnameColumns)...).
		From(opnameTable + " t").
		LeftJoin(batchTable + " b ON b.batch_id = t.batch_id").
		Where(squirrel.Eq{"t.code_product": productCode}).
		Where(squirrel.Eq{"t.status": opname.StatusPending}).
		OrderBy("b.exp_date ASC NULLS LAST, b.arrival_date ASC NULLS LAST").
		Suffix("FOR UPDATE OF t")

	return r.selectTasks(ctx, q, "lock pending tasks")
}

// ListOpenByCategories loads scheduled and submitted tasks whose product is
// in any of the given categories, joined with counter and category names.
func (r *OpnameRepo) ListOpenByCategories(ctx context.Context, categoryCodes []string) ([]opname.OpenTask, error) {
	q := builder().
		Select(
			"t.task_id", "u.name AS user_name",
			"c.code_categories AS code_category",
			"c.name_categories AS name_category",
			"t.status", "t.scheduled_date",
		).
		From(opnameTable + " t").
		Join(productTable + " p ON p.code_product = t.code_product").
		Join(categoryTable + " c ON c.code_categories = p.code_categories").
		Join(userTable + " u ON u.user_id = t.user_id").
		Where(squirrel.Eq{"c.code_categories": categoryCodes}).
		Where(squirrel.Eq{"t.status": []opname.Status{opname.StatusScheduled, opname.StatusSubmitted}}).
		OrderBy("c.code_categories ASC, t.scheduled_date ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var open []opname.OpenTask
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &open, sql, args...); err != nil {
		return nil, fmt.Errorf("list open tasks by category: %w", err)
	}
	return open, nil
}

// ListOverdueForUpdate loads scheduled tasks whose date has passed, locked.
func (r *OpnameRepo) ListOverdueForUpdate(ctx context.Context, asOf time.Time) ([]opname.Task, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"status": opname.StatusScheduled}).
		Where(squirrel.Lt{"scheduled_date": asOf}).
		OrderBy("scheduled_date ASC").
		Suffix("FOR UPDATE")

	return r.selectTasks(ctx, q, "lock overdue tasks")
}

func (r *OpnameRepo) selectTasks(ctx context.Context, q squirrel.SelectBuilder, op string) ([]opname.Task, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var tasks []opname.Task
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &tasks, sql, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return tasks, nil
}

func prefixColumns(alias string, cols []string) []string {
	prefixed := make([]string, len(cols))
	for i, col := range cols {
		prefixed[i] = alias + "." + col
	}
	return prefixed
}
