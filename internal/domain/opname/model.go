package opname

import (
	"time"

	"farmastok/internal/core/apperror"
	"farmastok/internal/core/id"
)

// Status is the lifecycle state of a stock-count task.
type Status string

const (
	// StatusScheduled marks a task assigned to a user but not yet counted.
	StatusScheduled Status = "scheduled"
	// StatusSubmitted marks a task with counts recorded, awaiting review.
	StatusSubmitted Status = "submitted"
	// StatusAdjusted marks a reviewed task whose counts are final.
	StatusAdjusted Status = "adjusted"
	// StatusPending marks an admin direct count awaiting confirmation.
	StatusPending Status = "pending"
)

// ValidStatus reports whether s is a known task status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusScheduled, StatusSubmitted, StatusAdjusted, StatusPending:
		return true
	}
	return false
}

// Counts is a submitted count composition for one product or batch.
type Counts struct {
	Physical int
	Expired  int
	Damaged  int
}

// Task is one unit of stock-count work: a batch (or a residual adjustment
// with no batch) assigned to a user, with recorded counts and review state.
type Task struct {
	ID            id.ID      `db:"task_id"`
	UserID        id.ID      `db:"user_id"`
	ProductCode   string     `db:"code_product"`
	BatchID       *id.ID     `db:"batch_id"`
	Status        Status     `db:"status"`
	ScheduledDate *time.Time `db:"scheduled_date"`
	OpnameDate    *time.Time `db:"opname_date"`
	SystemStock   int        `db:"system_stock"`
	PhysicalStock int        `db:"physical_stock"`
	ExpiredStock  int        `db:"expired_stock"`
	DamagedStock  int        `db:"damaged_stock"`
	Residual      int        `db:"residual"`
	Notes         string     `db:"notes"`
	EditRequested bool       `db:"edit_requested"`
	EditReason    string     `db:"edit_reason"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

// IsResidual reports whether the task is a synthetic adjustment row that
// carries an unexplained surplus or deficit instead of a batch count.
func (t *Task) IsResidual() bool {
	return t.BatchID == nil
}

// Difference is the signed gap between recorded and counted stock.
// It is derived on read and never stored.
func (t *Task) Difference() int {
	return t.SystemStock - t.PhysicalStock
}

// Submit records counts on a scheduled task and moves it to submitted.
func (t *Task) Submit(c Counts, notes string, asOf time.Time) error {
	if t.Status != StatusScheduled {
		return apperror.NewConflict("task is not awaiting a count").
			WithDetail("task_id", t.ID.String()).
			WithDetail("status", string(t.Status))
	}
	t.PhysicalStock = c.Physical
	t.ExpiredStock = c.Expired
	t.DamagedStock = c.Damaged
	t.Notes = notes
	t.OpnameDate = &asOf
	t.Status = StatusSubmitted
	return nil
}

// RequestEdit flags a submitted task for correction. Only one edit request
// may be open at a time, and the reason is mandatory.
func (t *Task) RequestEdit(reason string) error {
	if t.Status != StatusSubmitted {
		return apperror.NewConflict("only submitted tasks can request an edit").
			WithDetail("task_id", t.ID.String()).
			WithDetail("status", string(t.Status))
	}
	if t.EditRequested {
		return apperror.NewConflict("an edit request is already pending").
			WithDetail("task_id", t.ID.String())
	}
	if reason == "" {
		return apperror.NewInvalidInput("edit reason is required")
	}
	t.EditRequested = true
	t.EditReason = reason
	return nil
}

// ApproveEdit returns the task to scheduled so the counter can resubmit,
// clearing the edit request.
func (t *Task) ApproveEdit() error {
	if !t.EditRequested {
		return apperror.NewConflict("task has no pending edit request").
			WithDetail("task_id", t.ID.String())
	}
	t.EditRequested = false
	t.EditReason = ""
	t.Status = StatusScheduled
	return nil
}

// RejectEdit clears the edit request and leaves the recorded counts as the
// ones under review.
func (t *Task) RejectEdit() error {
	if !t.EditRequested {
		return apperror.NewConflict("task has no pending edit request").
			WithDetail("task_id", t.ID.String())
	}
	t.EditRequested = false
	t.EditReason = ""
	return nil
}

// Finalize closes the review with the given status and notes.
func (t *Task) Finalize(status Status, notes string) error {
	if !ValidStatus(status) {
		return apperror.NewInvalidInput("unknown task status").
			WithDetail("status", string(status))
	}
	t.Status = status
	if notes != "" {
		t.Notes = notes
	}
	return nil
}

// ConfirmPending finalizes an admin direct count with its allocated share.
func (t *Task) ConfirmPending(allocated int) error {
	if t.Status != StatusPending {
		return apperror.NewConflict("task is not awaiting confirmation").
			WithDetail("task_id", t.ID.String()).
			WithDetail("status", string(t.Status))
	}
	t.PhysicalStock = allocated
	t.Status = StatusAdjusted
	return nil
}

// ExpireOverdue force-submits a scheduled task whose date has passed,
// recording zero counts so the review queue surfaces the miss.
func (t *Task) ExpireOverdue(asOf time.Time) error {
	if t.Status != StatusScheduled {
		return apperror.NewConflict("only scheduled tasks can be expired").
			WithDetail("task_id", t.ID.String()).
			WithDetail("status", string(t.Status))
	}
	t.PhysicalStock = 0
	t.ExpiredStock = 0
	t.DamagedStock = 0
	t.Notes = "missed count, auto-submitted"
	t.OpnameDate = &asOf
	t.Status = StatusSubmitted
	return nil
}
