package handlers

import (
	"github.com/gin-gonic/gin"

	"farmastok/internal/core/apperror"
	"farmastok/internal/core/id"
	"farmastok/internal/domain/opname"
	"farmastok/internal/infrastructure/http/v1/dto"
	"farmastok/internal/infrastructure/storage/postgres"
)

// OpnameHandler handles stock-count endpoints.
type OpnameHandler struct {
	*BaseHandler
	service *opname.Service
	audit   ChangeLogger
}

// NewOpnameHandler creates a new stock-count handler.
func NewOpnameHandler(service *opname.Service, audit ChangeLogger) *OpnameHandler {
	return &OpnameHandler{
		BaseHandler: NewBaseHandler(),
		service:     service,
		audit:       audit,
	}
}

// CreateTasks schedules stock-count work for a counter. Admin only.
// POST /api/v1/opname/tasks
func (h *OpnameHandler) CreateTasks(c *gin.Context) {
	var req dto.CreateTasksRequest
	if !h.BindJSON(c, &req) {
		return
	}

	userID, err := id.Parse(req.UserID)
	if err != nil {
		h.Error(c, apperror.NewInvalidInput("invalid user id"))
		return
	}

	tasks, err := h.service.CreateTasks(c.Request.Context(), opname.CreateTasksInput{
		UserID:        userID,
		CategoryCodes: req.CategoryCodes,
		ScheduledDate: req.ScheduledDate,
		Notes:         req.Notes,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.CreatedData(c, gin.H{"tasks": dto.FromTasks(tasks)})
}

// MyTasks lists the caller's scheduled tasks.
// GET /api/v1/opname/tasks/my
func (h *OpnameHandler) MyTasks(c *gin.Context) {
	tasks, err := h.service.TasksForUser(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"tasks": dto.FromTasks(tasks)})
}

// SubmitCount records a product-level count, distributed over the caller's
// scheduled batch tasks.
// POST /api/v1/opname/submit
func (h *OpnameHandler) SubmitCount(c *gin.Context) {
	var req dto.SubmitCountRequest
	if !h.BindJSON(c, &req) {
		return
	}

	tasks, err := h.service.SubmitProductCount(c.Request.Context(), req.ProductCode, req.ToCounts(), req.Notes)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Audit(c, h.audit, "opname", req.ProductCode,
		postgres.AuditActionCount, map[string]any{
			"physical": req.PhysicalStock,
			"expired":  req.ExpiredStock,
			"damaged":  req.DamagedStock,
			"tasks":    len(tasks),
		})

	h.OK(c, gin.H{"tasks": dto.FromTasks(tasks)})
}

// SubmitTask records a count for a single task.
// POST /api/v1/opname/tasks/:id/submit
func (h *OpnameHandler) SubmitTask(c *gin.Context) {
	taskID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.SubmitTaskRequest
	if !h.BindJSON(c, &req) {
		return
	}

	task, err := h.service.SubmitTask(c.Request.Context(), taskID, req.ToCounts(), req.Notes)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromTask(task))
}

// RequestEdit flags a submitted task for correction.
// POST /api/v1/opname/tasks/:id/request-edit
func (h *OpnameHandler) RequestEdit(c *gin.Context) {
	taskID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.RequestEditRequest
	if !h.BindJSON(c, &req) {
		return
	}

	task, err := h.service.RequestEdit(c.Request.Context(), taskID, req.Reason)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromTask(task))
}

// Review finalizes a scheduled or submitted task. Admin only.
// POST /api/v1/opname/tasks/:id/review
func (h *OpnameHandler) Review(c *gin.Context) {
	taskID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.ReviewRequest
	if !h.BindJSON(c, &req) {
		return
	}

	task, err := h.service.Review(c.Request.Context(), opname.ReviewInput{
		TaskID:      taskID,
		Status:      opname.Status(req.Status),
		Notes:       req.Notes,
		ApproveEdit: req.ApproveEdit,
		AdjustStock: req.AdjustStock,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Audit(c, h.audit, "opname_task", taskID.String(),
		postgres.AuditActionReview, map[string]any{
			"status":       string(task.Status),
			"approve_edit": req.ApproveEdit,
			"adjust_stock": req.AdjustStock,
		})

	h.OK(c, dto.FromTask(task))
}

// DirectCount records an admin's immediate count. Admin only.
// POST /api/v1/opname/direct
func (h *OpnameHandler) DirectCount(c *gin.Context) {
	var req dto.DirectCountRequest
	if !h.BindJSON(c, &req) {
		return
	}

	tasks, err := h.service.DirectCount(c.Request.Context(), req.ProductCode, req.ToCounts(), req.Notes)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.CreatedData(c, gin.H{"tasks": dto.FromTasks(tasks)})
}

// ConfirmDirect applies a pending direct count to batch stock. Admin only.
// POST /api/v1/opname/direct/confirm
func (h *OpnameHandler) ConfirmDirect(c *gin.Context) {
	var req dto.ConfirmDirectRequest
	if !h.BindJSON(c, &req) {
		return
	}

	tasks, err := h.service.ConfirmDirect(c.Request.Context(), req.ProductCode)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Audit(c, h.audit, "opname", req.ProductCode,
		postgres.AuditActionAdjust, map[string]any{
			"tasks": len(tasks),
		})

	h.OK(c, gin.H{"tasks": dto.FromTasks(tasks)})
}

// CheckConflict reports categories with open stock-count tasks. Admin only.
// POST /api/v1/opname/conflicts
func (h *OpnameHandler) CheckConflict(c *gin.Context) {
	var req dto.ConflictCheckRequest
	if !h.BindJSON(c, &req) {
		return
	}

	report, err := h.service.CheckConflict(c.Request.Context(), req.CategoryCodes)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, report)
}

// List returns tasks matching the filter.
// GET /api/v1/opname/tasks
func (h *OpnameHandler) List(c *gin.Context) {
	filter, ok := h.bindTaskFilter(c)
	if !ok {
		return
	}

	tasks, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse[dto.TaskResponse]{
		Data:       dto.FromTasks(tasks),
		Pagination: dto.NewPaginationResponse(filter.Page, filter.Limit, total),
	})
}

// History returns finalized tasks matching the filter.
// GET /api/v1/opname/history
func (h *OpnameHandler) History(c *gin.Context) {
	filter, ok := h.bindTaskFilter(c)
	if !ok {
		return
	}

	tasks, total, err := h.service.History(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse[dto.TaskResponse]{
		Data:       dto.FromTasks(tasks),
		Pagination: dto.NewPaginationResponse(filter.Page, filter.Limit, total),
	})
}

// Get returns one task.
// GET /api/v1/opname/tasks/:id
func (h *OpnameHandler) Get(c *gin.Context) {
	taskID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	task, err := h.service.GetByID(c.Request.Context(), taskID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromTask(task))
}

func (h *OpnameHandler) bindTaskFilter(c *gin.Context) (opname.Filter, bool) {
	var req dto.TaskListRequest
	if !h.BindQuery(c, &req) {
		return opname.Filter{}, false
	}
	req.Defaults()

	return opname.Filter{
		ProductCode: req.ProductCode,
		Status:      opname.Status(req.Status),
		DateFrom:    req.DateFrom,
		DateTo:      req.DateTo,
		Page:        req.Page,
		Limit:       req.Limit,
	}, true
}
