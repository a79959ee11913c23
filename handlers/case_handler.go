package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"sardraft-backend/models"
	"sardraft-backend/service"
)

// CaseHandler handles HTTP requests for cases and the narrative workflow
type CaseHandler struct {
	caseService      *service.CaseService
	narrativeService *service.NarrativeService
	reviewService    *service.ReviewService
}

// NewCaseHandler creates a new case handler
func NewCaseHandler(caseService *service.CaseService, narrativeService *service.NarrativeService, reviewService *service.ReviewService) *CaseHandler {
	return &CaseHandler{
		caseService:      caseService,
		narrativeService: narrativeService,
		reviewService:    reviewService,
	}
}

func caseIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "INVALID_ID", "Invalid case ID format")
		return uuid.Nil, false
	}
	return id, true
}

// CreateCaseRequest represents the request body for creating a case
type CreateCaseRequest struct {
	Reference    string `json:"reference" binding:"required"`
	AlertID      string `json:"alert_id" binding:"required"`
	CustomerID   string `json:"customer_id" binding:"required"`
	Severity     string `json:"severity"`
	Jurisdiction string `json:"jurisdiction"`
}

// CreateCase handles POST /api/cases
func (h *CaseHandler) CreateCase(c *gin.Context) {
	var req CreateCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "INVALID_REQUEST", err.Error())
		return
	}

	alertID, err := uuid.Parse(req.AlertID)
	if err != nil {
		respondBadRequest(c, "INVALID_ALERT_ID", "Invalid alert_id format")
		return
	}

	created, err := h.caseService.Create(c.Request.Context(), currentActor(c), service.CreateCaseRequest{
		Reference:    req.Reference,
		AlertID:      alertID,
		CustomerID:   req.CustomerID,
		Severity:     req.Severity,
		Jurisdiction: req.Jurisdiction,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    created,
	})
}

// IngestAlertRequest represents the request body for ingesting an alert
type IngestAlertRequest struct {
	Alert    models.Alert            `json:"alert" binding:"required"`
	Customer *models.CustomerProfile `json:"customer"`
}

// IngestAlert handles POST /api/alerts
func (h *CaseHandler) IngestAlert(c *gin.Context) {
	var req IngestAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "INVALID_REQUEST", err.Error())
		return
	}

	alert, err := h.caseService.Ingest(c.Request.Context(), currentActor(c), service.IngestAlertRequest{
		Alert:    req.Alert,
		Customer: req.Customer,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    alert,
	})
}

// ListCases handles GET /api/cases
func (h *CaseHandler) ListCases(c *gin.Context) {
	status := models.CaseStatus(c.Query("status"))

	cases, err := h.caseService.List(c.Request.Context(), currentActor(c), status)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    cases,
	})
}

// GetCase handles GET /api/cases/:id
func (h *CaseHandler) GetCase(c *gin.Context) {
	id, ok := caseIDParam(c)
	if !ok {
		return
	}

	bundle, err := h.caseService.Bundle(c.Request.Context(), currentActor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"case":     bundle.Case,
			"alert":    bundle.Alert,
			"customer": bundle.Customer,
		},
	})
}

// Generate handles POST /api/cases/:id/generate
func (h *CaseHandler) Generate(c *gin.Context) {
	id, ok := caseIDParam(c)
	if !ok {
		return
	}

	version, err := h.narrativeService.Generate(c.Request.Context(), currentActor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    version,
	})
}

// UpdateNarrativeRequest represents the request body for editing a draft
type UpdateNarrativeRequest struct {
	Body string `json:"body" binding:"required"`
}

// UpdateNarrative handles PUT /api/cases/:id/narrative
func (h *CaseHandler) UpdateNarrative(c *gin.Context) {
	id, ok := caseIDParam(c)
	if !ok {
		return
	}

	var req UpdateNarrativeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "INVALID_REQUEST", err.Error())
		return
	}

	version, err := h.narrativeService.Edit(c.Request.Context(), currentActor(c), id, req.Body)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    version,
	})
}

// GetNarrative handles GET /api/cases/:id/narrative
func (h *CaseHandler) GetNarrative(c *gin.Context) {
	id, ok := caseIDParam(c)
	if !ok {
		return
	}

	version, err := h.narrativeService.Current(c.Request.Context(), currentActor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    version,
	})
}

// ListVersions handles GET /api/cases/:id/versions
func (h *CaseHandler) ListVersions(c *gin.Context) {
	id, ok := caseIDParam(c)
	if !ok {
		return
	}

	versions, err := h.narrativeService.Versions(c.Request.Context(), currentActor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    versions,
	})
}

// Submit handles POST /api/cases/:id/submit
func (h *CaseHandler) Submit(c *gin.Context) {
	id, ok := caseIDParam(c)
	if !ok {
		return
	}

	version, err := h.reviewService.Submit(c.Request.Context(), currentActor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    version,
	})
}

// DecisionRequest represents the request body for approve and reject
type DecisionRequest struct {
	Rationale string `json:"rationale"`
}

// Approve handles POST /api/cases/:id/approve
func (h *CaseHandler) Approve(c *gin.Context) {
	h.decide(c, h.reviewService.Approve)
}

// Reject handles POST /api/cases/:id/reject
func (h *CaseHandler) Reject(c *gin.Context) {
	h.decide(c, h.reviewService.Reject)
}

func (h *CaseHandler) decide(c *gin.Context, fn func(ctx context.Context, actor models.Actor, caseID uuid.UUID, rationale string) (*models.NarrativeVersion, error)) {
	id, ok := caseIDParam(c)
	if !ok {
		return
	}

	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		respondBadRequest(c, "INVALID_REQUEST", err.Error())
		return
	}

	version, err := fn(c.Request.Context(), currentActor(c), id, req.Rationale)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    version,
	})
}

// FileRequest represents the request body for filing
type FileRequest struct {
	SARReference string `json:"sar_reference" binding:"required"`
}

// File handles POST /api/cases/:id/file
func (h *CaseHandler) File(c *gin.Context) {
	id, ok := caseIDParam(c)
	if !ok {
		return
	}

	var req FileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "INVALID_REQUEST", err.Error())
		return
	}

	filing, err := h.reviewService.File(c.Request.Context(), currentActor(c), id, req.SARReference)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    filing,
	})
}
