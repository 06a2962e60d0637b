package handlers

import (
	"github.com/gin-gonic/gin"

	"visualeyes/internal/core/apperror"
	"visualeyes/internal/domain/audit"
	"visualeyes/internal/domain/identity"
)

// auditEntityTypes are the record types with a queryable trail.
var auditEntityTypes = map[string]bool{
	"employee": true,
	"customer": true,
}

const defaultHistoryLimit = 50

// AuditHandler serves the admin-only audit trail.
type AuditHandler struct {
	BaseHandler
	history  audit.History
	resolver *identity.Resolver
}

// NewAuditHandler creates an audit handler.
func NewAuditHandler(history audit.History, resolver *identity.Resolver) *AuditHandler {
	return &AuditHandler{history: history, resolver: resolver}
}

// EntityHistory returns the audit trail of one record, newest first.
// GET /audit/:entityType/:id
func (h *AuditHandler) EntityHistory(c *gin.Context) {
	actor, ok := h.Subject(c)
	if !ok {
		return
	}
	if err := h.resolver.CanAct(actor, identity.ActionAuditView, nil); err != nil {
		h.Error(c, err)
		return
	}

	entityType := c.Param("entityType")
	if !auditEntityTypes[entityType] {
		h.Error(c, apperror.NewValidation("unknown entity type").WithDetail("entityType", entityType))
		return
	}

	entityID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	limit := h.ParseIntQuery(c, "limit", defaultHistoryLimit)
	if limit < 1 || limit > 200 {
		limit = defaultHistoryLimit
	}

	entries, err := h.history.EntityHistory(c.Request.Context(), entityType, entityID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, entries)
}
