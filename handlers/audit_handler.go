package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sardraft-backend/service"
)

// AuditHandler handles HTTP requests for the audit trail and filings
type AuditHandler struct {
	auditService  *service.AuditService
	reviewService *service.ReviewService
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(auditService *service.AuditService, reviewService *service.ReviewService) *AuditHandler {
	return &AuditHandler{
		auditService:  auditService,
		reviewService: reviewService,
	}
}

// ListEvents handles GET /api/cases/:id/audit
func (h *AuditHandler) ListEvents(c *gin.Context) {
	id, ok := caseIDParam(c)
	if !ok {
		return
	}

	events, err := h.auditService.ListCaseEvents(c.Request.Context(), currentActor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    events,
	})
}

// VerifyChain handles GET /api/cases/:id/audit/verify
func (h *AuditHandler) VerifyChain(c *gin.Context) {
	id, ok := caseIDParam(c)
	if !ok {
		return
	}

	report, err := h.auditService.VerifyCase(c.Request.Context(), currentActor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    report,
	})
}

// GetFiling handles GET /api/cases/:id/filing
func (h *AuditHandler) GetFiling(c *gin.Context) {
	id, ok := caseIDParam(c)
	if !ok {
		return
	}

	filing, err := h.reviewService.Filing(c.Request.Context(), currentActor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    filing,
	})
}
