package dto

import (
	"time"

	"farmastok/internal/domain/opname"
)

// CreateTasksRequest schedules stock-count work.
type CreateTasksRequest struct {
	UserID        string    `json:"userId" binding:"required,uuid"`
	CategoryCodes []string  `json:"categoryCodes" binding:"required,min=1"`
	ScheduledDate time.Time `json:"scheduledDate" binding:"required" time_format:"2006-01-02"`
	Notes         string    `json:"notes"`
}

// CountsRequest is a submitted count composition.
type CountsRequest struct {
	PhysicalStock int `json:"physicalStock" binding:"min=0"`
	ExpiredStock  int `json:"expiredStock" binding:"min=0"`
	DamagedStock  int `json:"damagedStock" binding:"min=0"`
}

// ToCounts converts to domain counts.
func (r *CountsRequest) ToCounts() opname.Counts {
	return opname.Counts{
		Physical: r.PhysicalStock,
		Expired:  r.ExpiredStock,
		Damaged:  r.DamagedStock,
	}
}

// SubmitCountRequest records a product-level count.
type SubmitCountRequest struct {
	ProductCode string `json:"productCode" binding:"required"`
	CountsRequest
	Notes string `json:"notes"`
}

// SubmitTaskRequest records a count for a single task.
type SubmitTaskRequest struct {
	CountsRequest
	Notes string `json:"notes"`
}

// RequestEditRequest asks to correct a submitted count.
type RequestEditRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// ReviewRequest is an admin decision on a scheduled or submitted task.
// AdjustStock requests the counted quantity be written to the batch ledger.
type ReviewRequest struct {
	Status      string `json:"status"`
	Notes       string `json:"notes"`
	ApproveEdit *bool  `json:"approveEdit"`
	AdjustStock bool   `json:"adjustStock"`
}

// DirectCountRequest records an admin's immediate count.
type DirectCountRequest struct {
	ProductCode string `json:"productCode" binding:"required"`
	CountsRequest
	Notes string `json:"notes"`
}

// ConfirmDirectRequest applies a pending direct count.
type ConfirmDirectRequest struct {
	ProductCode string `json:"productCode" binding:"required"`
}

// ConflictCheckRequest asks whether categories are free to schedule.
type ConflictCheckRequest struct {
	CategoryCodes []string `json:"categoryCodes" binding:"required,min=1"`
}

// TaskListRequest filters task listings.
type TaskListRequest struct {
	PaginationRequest
	ProductCode string     `form:"productCode"`
	Status      string     `form:"status"`
	DateFrom    *time.Time `form:"dateFrom" time_format:"2006-01-02"`
	DateTo      *time.Time `form:"dateTo" time_format:"2006-01-02"`
}

// TaskResponse is one stock-count task.
type TaskResponse struct {
	ID            string     `json:"id"`
	UserID        string     `json:"userId"`
	ProductCode   string     `json:"productCode"`
	BatchID       *string    `json:"batchId,omitempty"`
	Status        string     `json:"status"`
	ScheduledDate *time.Time `json:"scheduledDate,omitempty"`
	OpnameDate    *time.Time `json:"opnameDate,omitempty"`
	SystemStock   int        `json:"systemStock"`
	PhysicalStock int        `json:"physicalStock"`
	ExpiredStock  int        `json:"expiredStock"`
	DamagedStock  int        `json:"damagedStock"`
	Difference    int        `json:"difference"`
	Residual      int        `json:"residual,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	EditRequested bool       `json:"editRequested"`
	EditReason    string     `json:"editReason,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// FromTask converts a domain task. Difference is derived, never stored.
func FromTask(t *opname.Task) TaskResponse {
	resp := TaskResponse{
		ID:            t.ID.String(),
		UserID:        t.UserID.String(),
		ProductCode:   t.ProductCode,
		Status:        string(t.Status),
		ScheduledDate: t.ScheduledDate,
		OpnameDate:    t.OpnameDate,
		SystemStock:   t.SystemStock,
		PhysicalStock: t.PhysicalStock,
		ExpiredStock:  t.ExpiredStock,
		DamagedStock:  t.DamagedStock,
		Difference:    t.Difference(),
		Residual:      t.Residual,
		Notes:         t.Notes,
		EditRequested: t.EditRequested,
		EditReason:    t.EditReason,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
	if t.BatchID != nil {
		batchID := t.BatchID.String()
		resp.BatchID = &batchID
	}
	return resp
}

// FromTasks converts a slice of domain tasks.
func FromTasks(tasks []opname.Task) []TaskResponse {
	out := make([]TaskResponse, len(tasks))
	for i := range tasks {
		out[i] = FromTask(&tasks[i])
	}
	return out
}
