package opname

import (
	"context"
	"time"

	"farmastok/internal/core/id"
)

// Filter narrows task listings. Zero values are ignored.
type Filter struct {
	UserID      *id.ID
	ProductCode string
	Status      Status
	DateFrom    *time.Time
	DateTo      *time.Time
	Page        int
	Limit       int
}

// Repository is the persistence contract for stock-count tasks.
type Repository interface {
	// Create inserts one or more tasks in a single statement.
	Create(ctx context.Context, tasks []Task) error
	// GetByID loads one task.
	GetByID(ctx context.Context, taskID id.ID) (*Task, error)
	// Update persists count, status and edit-request changes.
	Update(ctx context.Context, task *Task) error
	// List returns tasks matching the filter plus the unpaged total.
	List(ctx context.Context, filter Filter) ([]Task, int, error)
	// ListScheduledForUpdate loads a user's scheduled batch tasks for one
	// product, locked, in canonical consumption order (expiry ascending,
	// ties by arrival date).
	ListScheduledForUpdate(ctx context.Context, userID id.ID, productCode string) ([]Task, error)
	// ListPendingForUpdate loads pending direct-count tasks for one product,
	// locked, in canonical consumption order.
	ListPendingForUpdate(ctx context.Context, productCode string) ([]Task, error)
	// ListOpenByCategories loads scheduled and submitted tasks whose product
	// falls in any of the given categories, joined with counter and category.
	ListOpenByCategories(ctx context.Context, categoryCodes []string) ([]OpenTask, error)
	// ListOverdueForUpdate loads scheduled tasks whose date has passed,
	// locked for the sweep.
	ListOverdueForUpdate(ctx context.Context, asOf time.Time) ([]Task, error)
}
