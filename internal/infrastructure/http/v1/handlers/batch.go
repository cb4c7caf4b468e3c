package handlers

import (
	"github.com/gin-gonic/gin"

	"farmastok/internal/domain/batch"
	"farmastok/internal/infrastructure/http/v1/dto"
	"farmastok/internal/infrastructure/storage/postgres"
)

// BatchHandler handles batch ledger endpoints.
type BatchHandler struct {
	*BaseHandler
	service *batch.Service
	audit   ChangeLogger
}

// NewBatchHandler creates a new batch handler.
func NewBatchHandler(service *batch.Service, audit ChangeLogger) *BatchHandler {
	return &BatchHandler{
		BaseHandler: NewBaseHandler(),
		service:     service,
		audit:       audit,
	}
}

// Search returns a page of batches matching the search term.
// GET /api/v1/batches
func (h *BatchHandler) Search(c *gin.Context) {
	var req dto.BatchSearchRequest
	if !h.BindQuery(c, &req) {
		return
	}
	req.Defaults()

	batches, total, err := h.service.Search(c.Request.Context(), batch.SearchFilter{
		Search: req.Search,
		Page:   req.Page,
		Limit:  req.Limit,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse[dto.BatchResponse]{
		Data:       dto.FromBatches(batches),
		Pagination: dto.NewPaginationResponse(req.Page, req.Limit, total),
	})
}

// Get returns one batch.
// GET /api/v1/batches/:id
func (h *BatchHandler) Get(c *gin.Context) {
	batchID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	b, err := h.service.GetByID(c.Request.Context(), batchID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromBatch(*b))
}

// ByProduct returns a product's batches with the summed stock.
// GET /api/v1/batches/product/:code
func (h *BatchHandler) ByProduct(c *gin.Context) {
	batches, total, err := h.service.ProductStock(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{
		"productCode": c.Param("code"),
		"totalStock":  total,
		"batches":     dto.FromBatches(batches),
	})
}

// UpdateExpiry changes a batch's expiry date. Admin only.
// PATCH /api/v1/batches/:id/expiry
func (h *BatchHandler) UpdateExpiry(c *gin.Context) {
	batchID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateExpiryRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.UpdateExpiry(c.Request.Context(), batchID, req.ExpiryDate); err != nil {
		h.Error(c, err)
		return
	}

	h.Audit(c, h.audit, "batch", batchID.String(),
		postgres.AuditActionExpiry, map[string]any{
			"exp_date": req.ExpiryDate,
		})

	h.Success(c, "expiry updated")
}

// MinStockAlerts returns products at or below their minimum stock.
// GET /api/v1/batches/alerts/min-stock
func (h *BatchHandler) MinStockAlerts(c *gin.Context) {
	alerts, err := h.service.MinStockAlerts(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"alerts": alerts})
}
