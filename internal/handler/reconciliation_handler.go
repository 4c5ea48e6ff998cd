package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"recon-engine/internal/middleware"
	"recon-engine/internal/service"
	"recon-engine/pkg/logger"
	"recon-engine/pkg/response"
)

// ReconciliationHandler is the API Facade surface over the Reconciliation
// Engine's public operations.
type ReconciliationHandler struct {
	service service.ReconciliationService
}

func NewReconciliationHandler(svc service.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{service: svc}
}

type createProjectRequest struct {
	Name        string `json:"name" binding:"required"`
	PeriodStart string `json:"periodStart" binding:"required"`
	PeriodEnd   string `json:"periodEnd" binding:"required"`
	CompanyNpwp string `json:"companyNpwp" binding:"required"`
}

// CreateProject godoc
// @Summary Create a reconciliation project
// @Tags reconciliation
// @Accept json
// @Produce json
// @Success 201 {object} response.Response
// @Router /api/v1/reconciliation/projects [post]
func (h *ReconciliationHandler) CreateProject(c *gin.Context) {
	user := middleware.CurrentUser(c)
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	periodStart, err := time.Parse("2006-01-02", req.PeriodStart)
	if err != nil {
		response.BadRequest(c, "invalid periodStart", "use YYYY-MM-DD format")
		return
	}
	periodEnd, err := time.Parse("2006-01-02", req.PeriodEnd)
	if err != nil {
		response.BadRequest(c, "invalid periodEnd", "use YYYY-MM-DD format")
		return
	}

	project, err := h.service.CreateProject(user.ID, req.Name, periodStart, periodEnd, req.CompanyNpwp)
	if err != nil {
		logger.GetLogger().WithError(err).Error("create project failed")
		response.InternalError(c, "failed to create project", err.Error())
		return
	}
	response.Success(c, http.StatusCreated, "project created", project)
}

// GetProject godoc
// @Summary Get a reconciliation project
// @Tags reconciliation
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/reconciliation/projects/{id} [get]
func (h *ReconciliationHandler) GetProject(c *gin.Context) {
	project, err := h.service.GetProject(c.Param("id"))
	if err != nil || project == nil {
		response.NotFound(c, "project not found")
		return
	}
	response.Success(c, http.StatusOK, "project", project)
}

// ListProjects godoc
// @Summary List reconciliation projects for the authenticated user
// @Tags reconciliation
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/reconciliation/projects [get]
func (h *ReconciliationHandler) ListProjects(c *gin.Context) {
	user := middleware.CurrentUser(c)
	projects, err := h.service.ListProjectsForUser(user.ID)
	if err != nil {
		response.InternalError(c, "failed to list projects", err.Error())
		return
	}
	response.Success(c, http.StatusOK, "projects", projects)
}

type importRequest struct {
	BatchID string `json:"batchId" binding:"required"`
}

// ImportInvoices godoc
// @Summary Import tax invoices from a processed batch into a project
// @Tags reconciliation
// @Accept json
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/reconciliation/projects/{id}/import/invoices [post]
func (h *ReconciliationHandler) ImportInvoices(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}
	imported, skipped, err := h.service.ImportInvoicesFromBatch(c.Param("id"), req.BatchID)
	if err != nil {
		logger.GetLogger().WithError(err).Error("import invoices failed")
		response.InternalError(c, "failed to import invoices", err.Error())
		return
	}
	response.Success(c, http.StatusOK, "invoices imported", gin.H{"imported": imported, "skipped": skipped})
}

// ImportTransactions godoc
// @Summary Import bank transactions from a processed batch into a project
// @Tags reconciliation
// @Accept json
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/reconciliation/projects/{id}/import/transactions [post]
func (h *ReconciliationHandler) ImportTransactions(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}
	imported, skipped, err := h.service.ImportTransactionsFromBatch(c.Param("id"), req.BatchID)
	if err != nil {
		logger.GetLogger().WithError(err).Error("import transactions failed")
		response.InternalError(c, "failed to import transactions", err.Error())
		return
	}
	response.Success(c, http.StatusOK, "transactions imported", gin.H{"imported": imported, "skipped": skipped})
}

// AIExtractVendors godoc
// @Summary Fill extractedVendorName via Smart Mapper for unmatched transactions
// @Tags reconciliation
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/reconciliation/projects/{id}/ai/extract-vendor [post]
func (h *ReconciliationHandler) AIExtractVendors(c *gin.Context) {
	updated, err := h.service.AIExtractVendorFromTransactions(c.Param("id"))
	if err != nil {
		response.InternalError(c, "vendor extraction failed", err.Error())
		return
	}
	response.Success(c, http.StatusOK, "vendor extraction complete", gin.H{"updated": updated})
}

// AIExtractInvoiceNumbers godoc
// @Summary Fill extractedInvoiceNumber via Smart Mapper for unmatched transactions
// @Tags reconciliation
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/reconciliation/projects/{id}/ai/extract-invoice [post]
func (h *ReconciliationHandler) AIExtractInvoiceNumbers(c *gin.Context) {
	updated, err := h.service.AIExtractInvoiceFromTransactions(c.Param("id"))
	if err != nil {
		response.InternalError(c, "invoice number extraction failed", err.Error())
		return
	}
	response.Success(c, http.StatusOK, "invoice extraction complete", gin.H{"updated": updated})
}

type autoMatchRequest struct {
	MinConfidence float64 `json:"minConfidence"`
}

// AutoMatch godoc
// @Summary Greedily auto-match a project's unmatched invoices/transactions
// @Tags reconciliation
// @Accept json
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/reconciliation/projects/{id}/auto-match [post]
func (h *ReconciliationHandler) AutoMatch(c *gin.Context) {
	var req autoMatchRequest
	_ = c.ShouldBindJSON(&req)

	matches, err := h.service.AutoMatchProject(c.Param("id"), req.MinConfidence)
	if err != nil {
		logger.GetLogger().WithError(err).Error("auto-match failed")
		response.InternalError(c, "auto-match failed", err.Error())
		return
	}
	response.Success(c, http.StatusOK, "auto-match complete", gin.H{"matches": matches, "count": len(matches)})
}

// SuggestMatches godoc
// @Summary Suggest the top-k candidate transactions for one invoice
// @Tags reconciliation
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/reconciliation/projects/{id}/invoices/{invoiceId}/suggestions [get]
func (h *ReconciliationHandler) SuggestMatches(c *gin.Context) {
	k := 5
	if raw := c.Query("k"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			k = parsed
		}
	}
	candidates, err := h.service.SuggestMatches(c.Param("id"), c.Param("invoiceId"), k)
	if err != nil {
		response.InternalError(c, "failed to suggest matches", err.Error())
		return
	}
	response.Success(c, http.StatusOK, "suggestions", candidates)
}

type manualMatchRequest struct {
	InvoiceID     string `json:"invoiceId" binding:"required"`
	TransactionID string `json:"transactionId" binding:"required"`
}

// ManualMatch godoc
// @Summary Manually assert a match between an invoice and a transaction
// @Tags reconciliation
// @Accept json
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/reconciliation/projects/{id}/matches [post]
func (h *ReconciliationHandler) ManualMatch(c *gin.Context) {
	var req manualMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}
	match, err := h.service.ManualMatch(c.Param("id"), req.InvoiceID, req.TransactionID)
	if err != nil {
		logger.GetLogger().WithError(err).Error("manual match failed")
		response.InternalError(c, "manual match failed", err.Error())
		return
	}
	response.Success(c, http.StatusCreated, "match created", match)
}

type unmatchRequest struct {
	Reason string `json:"reason"`
}

// Unmatch godoc
// @Summary Reject an active match, returning both sides to unmatched
// @Tags reconciliation
// @Accept json
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/reconciliation/matches/{matchId} [delete]
func (h *ReconciliationHandler) Unmatch(c *gin.Context) {
	var req unmatchRequest
	_ = c.ShouldBindJSON(&req)

	var reason *string
	if req.Reason != "" {
		reason = &req.Reason
	}
	if err := h.service.Unmatch(c.Param("matchId"), reason); err != nil {
		logger.GetLogger().WithError(err).Error("unmatch failed")
		response.InternalError(c, "unmatch failed", err.Error())
		return
	}
	response.Success(c, http.StatusOK, "match rejected", nil)
}
