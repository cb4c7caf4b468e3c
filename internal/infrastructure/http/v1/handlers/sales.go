package handlers

import (
	"github.com/gin-gonic/gin"

	"farmastok/internal/domain/sales"
	"farmastok/internal/infrastructure/http/v1/dto"
	"farmastok/internal/infrastructure/storage/postgres"
)

// SalesHandler handles sales endpoints.
type SalesHandler struct {
	*BaseHandler
	service *sales.Service
	audit   ChangeLogger
}

// NewSalesHandler creates a new sales handler.
func NewSalesHandler(service *sales.Service, audit ChangeLogger) *SalesHandler {
	return &SalesHandler{
		BaseHandler: NewBaseHandler(),
		service:     service,
		audit:       audit,
	}
}

// Create records a sale, deducting stock FIFO by expiry.
// POST /api/v1/sales
func (h *SalesHandler) Create(c *gin.Context) {
	var req dto.CreateSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	sale, err := h.service.Create(c.Request.Context(), req.ToCreateInput())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Audit(c, h.audit, "sale", sale.ID.String(),
		postgres.AuditActionSale, map[string]any{
			"invoice": sale.InvoiceNumber,
			"total":   sale.TotalAmount.String(),
			"lines":   len(sale.Lines),
		})

	h.CreatedData(c, dto.FromSale(sale))
}

// List returns sales matching the filter.
// GET /api/v1/sales
func (h *SalesHandler) List(c *gin.Context) {
	var req dto.SaleListRequest
	if !h.BindQuery(c, &req) {
		return
	}
	req.Defaults()

	items, total, err := h.service.List(c.Request.Context(), sales.Filter{
		DateFrom: req.DateFrom,
		DateTo:   req.DateTo,
		Page:     req.Page,
		Limit:    req.Limit,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse[dto.SaleResponse]{
		Data:       dto.FromSales(items),
		Pagination: dto.NewPaginationResponse(req.Page, req.Limit, total),
	})
}

// Get returns one sale with its lines.
// GET /api/v1/sales/:id
func (h *SalesHandler) Get(c *gin.Context) {
	saleID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	sale, err := h.service.GetByID(c.Request.Context(), saleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromSale(sale))
}
