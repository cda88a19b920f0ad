package handlers

import (
	"github.com/gin-gonic/gin"

	"simbapos/internal/infrastructure/storage/postgres"
)

// AuditHandler exposes entity change history.
type AuditHandler struct {
	*BaseHandler
	sink *postgres.AuditSink
}

// NewAuditHandler creates an audit handler.
func NewAuditHandler(sink *postgres.AuditSink) *AuditHandler {
	return &AuditHandler{BaseHandler: NewBaseHandler(), sink: sink}
}

// History lists recorded changes for one entity, newest first.
// GET /audit/:entityType/:entityId?limit=
func (h *AuditHandler) History(c *gin.Context) {
	records, err := h.sink.EntityHistory(
		c.Request.Context(),
		c.Param("entityType"),
		c.Param("entityId"),
		h.ParseIntQuery(c, "limit", 50),
	)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, records)
}
