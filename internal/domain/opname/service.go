package opname

import (
	"context"
	"time"

	"farmastok/internal/core/apperror"
	"farmastok/internal/core/appctx"
	"farmastok/internal/core/id"
	"farmastok/internal/core/tx"
	"farmastok/internal/domain/batch"
	"farmastok/internal/domain/catalog"
	"farmastok/pkg/logger"
)

// Service orchestrates the stock-count workflow: scheduling, submission,
// review and the admin direct-count path. Every mutating operation runs
// inside a transaction so task rows and batch stock move together.
type Service struct {
	repo      Repository
	batches   batch.Repository
	catalog   catalog.Repository
	txManager tx.Manager
}

// NewService creates a stock-count service.
func NewService(repo Repository, batches batch.Repository, cat catalog.Repository, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		batches:   batches,
		catalog:   cat,
		txManager: txManager,
	}
}

// CreateTasksInput assigns one or more categories to a counter on a date.
type CreateTasksInput struct {
	UserID        id.ID
	CategoryCodes []string
	ScheduledDate time.Time
	Notes         string
}

// CreateTasks schedules one task per batch of every product in the given
// categories. Creation is refused while any of the categories still has
// scheduled or submitted tasks, so two counters never hold the same shelf.
func (s *Service) CreateTasks(ctx context.Context, input CreateTasksInput) ([]Task, error) {
	if len(input.CategoryCodes) == 0 {
		return nil, apperror.NewInvalidInput("at least one category is required")
	}
	if input.ScheduledDate.IsZero() {
		return nil, apperror.NewInvalidInput("scheduled date is required")
	}

	var created []Task
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		report, err := s.conflictReport(ctx, input.CategoryCodes)
		if err != nil {
			return err
		}
		if report.HasConflict {
			return apperror.NewConflict("categories have open stock-count tasks").
				WithDetail("conflicts", report.Conflicts)
		}

		scheduled := input.ScheduledDate
		now := time.Now()

		for _, code := range input.CategoryCodes {
			products, err := s.catalog.ListProductsByCategory(ctx, code)
			if err != nil {
				return err
			}
			for _, product := range products {
				batches, err := s.batches.ListByProduct(ctx, product.Code)
				if err != nil {
					return err
				}
				for _, b := range batches {
					batchID := b.ID
					created = append(created, Task{
						ID:            id.New(),
						UserID:        input.UserID,
						ProductCode:   product.Code,
						BatchID:       &batchID,
						Status:        StatusScheduled,
						ScheduledDate: &scheduled,
						SystemStock:   b.StockQuantity,
						Notes:         input.Notes,
						CreatedAt:     now,
						UpdatedAt:     now,
					})
				}
			}
		}

		if len(created) == 0 {
			return apperror.NewNotFound("batches for categories", input.CategoryCodes)
		}
		return s.repo.Create(ctx, created)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock-count tasks created",
		"user_id", input.UserID.String(),
		"categories", input.CategoryCodes,
		"tasks", len(created))
	return created, nil
}

// TasksForUser lists the calling user's scheduled tasks.
func (s *Service) TasksForUser(ctx context.Context) ([]Task, error) {
	uid, err := currentUserID(ctx)
	if err != nil {
		return nil, err
	}
	tasks, _, err := s.repo.List(ctx, Filter{UserID: &uid, Status: StatusScheduled})
	return tasks, err
}

// SubmitProductCount records one physical count for a whole product and
// distributes it proportionally over the caller's scheduled batch tasks.
// Any part of the count no batch absorbed becomes a residual adjustment row.
func (s *Service) SubmitProductCount(ctx context.Context, productCode string, counts Counts, notes string) ([]Task, error) {
	uid, err := currentUserID(ctx)
	if err != nil {
		return nil, err
	}
	if err := ValidateCounts(counts.Physical, counts.Expired, counts.Damaged); err != nil {
		return nil, err
	}

	var submitted []Task
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		tasks, err := s.repo.ListScheduledForUpdate(ctx, uid, productCode)
		if err != nil {
			return err
		}
		if len(tasks) == 0 {
			return apperror.NewNotFound("scheduled tasks", productCode)
		}

		stocks := make([]BatchStock, len(tasks))
		for i, t := range tasks {
			stocks[i] = BatchStock{BatchID: *t.BatchID, SystemStock: t.SystemStock}
		}

		result, err := Distribute(stocks, counts.Physical, counts.Expired, counts.Damaged)
		if err != nil {
			return err
		}

		now := time.Now()
		for i := range tasks {
			share := result.Shares[i]
			if err := tasks[i].Submit(Counts{
				Physical: share.Physical,
				Expired:  share.Expired,
				Damaged:  share.Damaged,
			}, notes, now); err != nil {
				return err
			}
			if err := s.repo.Update(ctx, &tasks[i]); err != nil {
				return err
			}
			submitted = append(submitted, tasks[i])
		}

		if result.Residual != 0 {
			residual := s.residualTask(uid, productCode, result, StatusSubmitted, now)
			if err := s.repo.Create(ctx, []Task{residual}); err != nil {
				return err
			}
			submitted = append(submitted, residual)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock count submitted",
		"product", productCode,
		"physical", counts.Physical,
		"tasks", len(submitted))
	return submitted, nil
}

// SubmitTask records counts for a single batch task.
func (s *Service) SubmitTask(ctx context.Context, taskID id.ID, counts Counts, notes string) (*Task, error) {
	if err := ValidateCounts(counts.Physical, counts.Expired, counts.Damaged); err != nil {
		return nil, err
	}

	var task *Task
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		task, err = s.repo.GetByID(ctx, taskID)
		if err != nil {
			return err
		}
		if err := s.authorizeOwner(ctx, task); err != nil {
			return err
		}
		if err := task.Submit(counts, notes, time.Now()); err != nil {
			return err
		}
		return s.repo.Update(ctx, task)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock-count task submitted", "task_id", taskID.String())
	return task, nil
}

// RequestEdit flags a submitted task so an admin can send it back for a
// corrected count. Exactly one request may be open per task.
func (s *Service) RequestEdit(ctx context.Context, taskID id.ID, reason string) (*Task, error) {
	var task *Task
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		task, err = s.repo.GetByID(ctx, taskID)
		if err != nil {
			return err
		}
		if err := s.authorizeOwner(ctx, task); err != nil {
			return err
		}
		if err := task.RequestEdit(reason); err != nil {
			return err
		}
		return s.repo.Update(ctx, task)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "edit requested", "task_id", taskID.String(), "reason", reason)
	return task, nil
}

// ReviewInput is an admin's decision on a scheduled or submitted task.
// AdjustStock asks for the counted quantity to be written back to the batch
// ledger; a review without it is audit-only.
type ReviewInput struct {
	TaskID      id.ID
	Status      Status
	Notes       string
	ApproveEdit *bool
	AdjustStock bool
}

// Review finalizes a scheduled or submitted task. A pending edit request
// must be decided first: approval reopens the task for recount, rejection
// keeps the recorded counts and the review proceeds. When the outcome is
// adjusted on a batch task and AdjustStock was requested, the counted
// quantity becomes the batch's stock.
func (s *Service) Review(ctx context.Context, input ReviewInput) (*Task, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}

	var task *Task
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		task, err = s.repo.GetByID(ctx, input.TaskID)
		if err != nil {
			return err
		}
		if task.Status != StatusSubmitted && task.Status != StatusScheduled {
			return apperror.NewConflict("task is not open for review").
				WithDetail("task_id", task.ID.String()).
				WithDetail("status", string(task.Status))
		}

		if input.ApproveEdit != nil {
			if *input.ApproveEdit {
				if err := task.ApproveEdit(); err != nil {
					return err
				}
				return s.repo.Update(ctx, task)
			}
			if err := task.RejectEdit(); err != nil {
				return err
			}
		} else if task.EditRequested {
			return apperror.NewConflict("task has a pending edit request").
				WithDetail("task_id", task.ID.String()).
				WithDetail("edit_reason", task.EditReason)
		}

		status := input.Status
		if status == "" {
			status = StatusAdjusted
		}
		if err := task.Finalize(status, input.Notes); err != nil {
			return err
		}

		if input.AdjustStock && status == StatusAdjusted && !task.IsResidual() {
			if err := s.batches.SetStock(ctx, *task.BatchID, task.PhysicalStock); err != nil {
				return err
			}
		}
		return s.repo.Update(ctx, task)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock-count task reviewed",
		"task_id", input.TaskID.String(),
		"status", string(task.Status))
	return task, nil
}

// DirectCount records an admin's immediate count for a product, apportioning
// it batch by batch in consumption order capped at each batch's stock. The
// resulting tasks stay pending until confirmed.
func (s *Service) DirectCount(ctx context.Context, productCode string, counts Counts, notes string) ([]Task, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	uid, err := currentUserID(ctx)
	if err != nil {
		return nil, err
	}

	var created []Task
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		batches, err := s.batches.ListByProductForUpdate(ctx, productCode)
		if err != nil {
			return err
		}
		if len(batches) == 0 {
			return apperror.NewNotFound("batches", productCode)
		}

		stocks := make([]BatchStock, len(batches))
		for i, b := range batches {
			stocks[i] = BatchStock{BatchID: b.ID, SystemStock: b.StockQuantity}
		}

		result, err := DistributeCapped(stocks, counts.Physical, counts.Expired, counts.Damaged)
		if err != nil {
			return err
		}

		now := time.Now()
		for i, b := range batches {
			batchID := b.ID
			share := result.Shares[i]
			created = append(created, Task{
				ID:            id.New(),
				UserID:        uid,
				ProductCode:   productCode,
				BatchID:       &batchID,
				Status:        StatusPending,
				OpnameDate:    &now,
				SystemStock:   b.StockQuantity,
				PhysicalStock: share.Physical,
				ExpiredStock:  share.Expired,
				DamagedStock:  share.Damaged,
				Notes:         notes,
				CreatedAt:     now,
				UpdatedAt:     now,
			})
		}

		if result.Residual != 0 {
			created = append(created, s.residualTask(uid, productCode, result, StatusPending, now))
		}
		return s.repo.Create(ctx, created)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "direct count recorded",
		"product", productCode,
		"physical", counts.Physical,
		"tasks", len(created))
	return created, nil
}

// ConfirmDirect applies a product's pending direct count to batch stock.
// The counted total fills batches in consumption order up to each batch's
// recorded stock; whatever does not fit is added to the first batch so the
// written quantities always sum to the count.
func (s *Service) ConfirmDirect(ctx context.Context, productCode string) ([]Task, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}

	var confirmed []Task
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		tasks, err := s.repo.ListPendingForUpdate(ctx, productCode)
		if err != nil {
			return err
		}
		if len(tasks) == 0 {
			return apperror.NewNotFound("pending direct count", productCode)
		}

		var batchTasks []*Task
		total := 0
		for i := range tasks {
			total += tasks[i].PhysicalStock
			if !tasks[i].IsResidual() {
				batchTasks = append(batchTasks, &tasks[i])
			}
		}

		remaining := total
		allocated := make([]int, len(batchTasks))
		for i, t := range batchTasks {
			take := t.SystemStock
			if take > remaining {
				take = remaining
			}
			if take < 0 {
				take = 0
			}
			allocated[i] = take
			remaining -= take
		}
		if remaining > 0 && len(batchTasks) > 0 {
			allocated[0] += remaining
		}

		for i, t := range batchTasks {
			if err := t.ConfirmPending(allocated[i]); err != nil {
				return err
			}
			if err := s.batches.SetStock(ctx, *t.BatchID, allocated[i]); err != nil {
				return err
			}
		}

		for i := range tasks {
			if tasks[i].IsResidual() {
				if err := tasks[i].Finalize(StatusAdjusted, ""); err != nil {
					return err
				}
			}
			if err := s.repo.Update(ctx, &tasks[i]); err != nil {
				return err
			}
			confirmed = append(confirmed, tasks[i])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "direct count confirmed",
		"product", productCode,
		"tasks", len(confirmed))
	return confirmed, nil
}

// CheckConflict reports which of the given categories still have open tasks
// and who holds them.
func (s *Service) CheckConflict(ctx context.Context, categoryCodes []string) (ConflictReport, error) {
	if len(categoryCodes) == 0 {
		return ConflictReport{}, apperror.NewInvalidInput("at least one category is required")
	}
	return s.conflictReport(ctx, categoryCodes)
}

// SweepOverdue force-submits scheduled tasks whose date has passed,
// recording zero counts so review surfaces the missed work. Returns the
// number of tasks swept.
func (s *Service) SweepOverdue(ctx context.Context, asOf time.Time) (int, error) {
	swept := 0
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		tasks, err := s.repo.ListOverdueForUpdate(ctx, asOf)
		if err != nil {
			return err
		}
		for i := range tasks {
			if err := tasks[i].ExpireOverdue(asOf); err != nil {
				return err
			}
			if err := s.repo.Update(ctx, &tasks[i]); err != nil {
				return err
			}
			swept++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if swept > 0 {
		logger.Warn(ctx, "overdue stock-count tasks auto-submitted", "tasks", swept)
	}
	return swept, nil
}

// List returns tasks matching the filter. Staff callers are restricted to
// their own tasks.
func (s *Service) List(ctx context.Context, filter Filter) ([]Task, int, error) {
	if !appctx.IsAdmin(ctx) {
		uid, err := currentUserID(ctx)
		if err != nil {
			return nil, 0, err
		}
		filter.UserID = &uid
	}
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	return s.repo.List(ctx, filter)
}

// History returns finalized tasks matching the filter.
func (s *Service) History(ctx context.Context, filter Filter) ([]Task, int, error) {
	filter.Status = StatusAdjusted
	return s.List(ctx, filter)
}

// GetByID loads one task. Staff callers may only read their own.
func (s *Service) GetByID(ctx context.Context, taskID id.ID) (*Task, error) {
	task, err := s.repo.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeOwner(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *Service) conflictReport(ctx context.Context, categoryCodes []string) (ConflictReport, error) {
	for _, code := range categoryCodes {
		if _, err := s.catalog.GetCategory(ctx, code); err != nil {
			return ConflictReport{}, err
		}
	}
	open, err := s.repo.ListOpenByCategories(ctx, categoryCodes)
	if err != nil {
		return ConflictReport{}, err
	}
	return BuildConflictReport(open), nil
}

func (s *Service) residualTask(userID id.ID, productCode string, result Result, status Status, now time.Time) Task {
	return Task{
		ID:          id.New(),
		UserID:      userID,
		ProductCode: productCode,
		BatchID:     nil,
		Status:      status,
		OpnameDate:  &now,
		SystemStock: result.TotalSystemStock,
		Residual:    result.Residual,
		Notes:       "unexplained stock difference",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (s *Service) authorizeOwner(ctx context.Context, task *Task) error {
	if appctx.IsAdmin(ctx) {
		return nil
	}
	uid, err := currentUserID(ctx)
	if err != nil {
		return err
	}
	if task.UserID != uid {
		return apperror.NewForbidden("task belongs to another user")
	}
	return nil
}

func (s *Service) requireAdmin(ctx context.Context) error {
	if !appctx.IsAdmin(ctx) {
		return apperror.NewForbidden("admin role required")
	}
	return nil
}

func currentUserID(ctx context.Context) (id.ID, error) {
	user := appctx.GetUser(ctx)
	if user == nil {
		return id.Nil(), apperror.NewUnauthorized("authentication required")
	}
	uid, err := id.Parse(user.UserID)
	if err != nil {
		return id.Nil(), apperror.NewUnauthorized("invalid user identity")
	}
	return uid, nil
}
