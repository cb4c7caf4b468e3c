package handlers

import (
	"github.com/gin-gonic/gin"

	"farmastok/internal/infrastructure/storage/postgres"
)

// AuditHandler exposes the audit trail. Admin only.
type AuditHandler struct {
	*BaseHandler
	audit *postgres.AuditService
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(audit *postgres.AuditService) *AuditHandler {
	return &AuditHandler{
		BaseHandler: NewBaseHandler(),
		audit:       audit,
	}
}

// EntityHistory returns the audit entries recorded for one entity.
// GET /api/v1/audit/:type/:id
func (h *AuditHandler) EntityHistory(c *gin.Context) {
	limit := h.ParseIntQuery(c, "limit", 50)

	entries, err := h.audit.GetEntityHistory(c.Request.Context(), c.Param("type"), c.Param("id"), limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"entries": entries})
}
