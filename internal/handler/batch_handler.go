package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"recon-engine/internal/export"
	"recon-engine/internal/middleware"
	"recon-engine/internal/orchestrator"
	"recon-engine/pkg/logger"
	"recon-engine/pkg/response"
)

// BatchHandler is the Ingestion Gateway + batch-query surface of the API
// Facade: authenticated multi-file upload, per-batch status,
// results listing, cancellation and export.
type BatchHandler struct {
	orc *orchestrator.Orchestrator
}

func NewBatchHandler(orc *orchestrator.Orchestrator) *BatchHandler {
	return &BatchHandler{orc: orc}
}

const maxUploadMemory = 32 << 20 // 32MB, multipart form parse buffer

// Upload godoc
// @Summary Upload a batch of documents for processing
// @Tags batches
// @Accept multipart/form-data
// @Produce json
// @Success 202 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /api/v1/upload [post]
func (h *BatchHandler) Upload(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "not authenticated", "")
		return
	}

	if err := c.Request.ParseMultipartForm(maxUploadMemory); err != nil {
		response.BadRequest(c, "invalid multipart payload", err.Error())
		return
	}

	fileHeaders := c.Request.MultipartForm.File["files[]"]
	if len(fileHeaders) == 0 {
		fileHeaders = c.Request.MultipartForm.File["files"]
	}
	declaredTypes := c.Request.MultipartForm.Value["document_types[]"]
	if len(declaredTypes) == 0 {
		declaredTypes = c.Request.MultipartForm.Value["document_types"]
	}

	if len(fileHeaders) == 0 {
		response.ValidationError(c, "no files provided")
		return
	}
	if len(declaredTypes) != len(fileHeaders) {
		response.ValidationError(c, "files[] and document_types[] must have equal length")
		return
	}

	uploads := make([]orchestrator.UploadFile, 0, len(fileHeaders))
	for i, fh := range fileHeaders {
		f, err := fh.Open()
		if err != nil {
			response.BadRequest(c, "failed to read uploaded file", err.Error())
			return
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			response.BadRequest(c, "failed to read uploaded file", err.Error())
			return
		}
		uploads = append(uploads, orchestrator.UploadFile{
			DisplayName:  fh.Filename,
			DeclaredType: declaredTypes[i],
			Content:      content,
		})
	}

	batch, err := h.orc.SubmitBatch(user.ID, uploads)
	if err != nil {
		if errors.Is(err, orchestrator.ErrBatchTooLarge) {
			response.ValidationError(c, "batch exceeds the maximum number of files allowed")
			return
		}
		logger.GetLogger().WithError(err).Error("submit batch failed")
		response.InternalError(c, "failed to submit batch", err.Error())
		return
	}

	if !batch.Status.Terminal() {
		// Background processing must outlive this request; the request's
		// own context is cancelled once the handler returns.
		go h.orc.ProcessBatch(context.Background(), batch.ID)
	}

	files, err := h.orc.ListFiles(user.ID, batch.ID)
	if err != nil {
		logger.GetLogger().WithError(err).Warn("failed to list files for upload response")
	}
	fileViews := make([]gin.H, 0, len(files))
	for _, f := range files {
		fileViews = append(fileViews, gin.H{
			"id":     f.ID,
			"name":   f.DisplayName,
			"type":   f.DeclaredType,
			"status": string(f.Status),
		})
	}

	response.Success(c, http.StatusAccepted, "batch accepted", gin.H{
		"batchId":    batch.ID,
		"files":      fileViews,
		"status":     string(batch.Status),
		"createdAt":  batch.CreatedAt,
		"totalFiles": batch.TotalFiles,
	})
}

// GetBatch godoc
// @Summary Get a batch's status
// @Tags batches
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {object} response.Response
// @Router /api/v1/batches/{id} [get]
func (h *BatchHandler) GetBatch(c *gin.Context) {
	user := middleware.CurrentUser(c)
	batchID := c.Param("id")

	batch, err := h.orc.GetBatch(user.ID, batchID)
	if err != nil {
		if errors.Is(err, orchestrator.ErrNotOwner) {
			response.Error(c, http.StatusForbidden, "FORBIDDEN", "not the batch owner", "")
			return
		}
		response.InternalError(c, "failed to load batch", err.Error())
		return
	}
	if batch == nil {
		response.NotFound(c, "batch not found")
		return
	}

	response.Success(c, http.StatusOK, "batch status", gin.H{
		"id":                 batch.ID,
		"status":             string(batch.Status),
		"totalFiles":         batch.TotalFiles,
		"processedFiles":     batch.ProcessedFiles,
		"progressPercentage": batch.ProgressPercentage(),
		"createdAt":          batch.CreatedAt,
		"completedAt":        batch.CompletedAt,
		"errorMessage":       batch.ErrorMessage,
	})
}

// ListBatches godoc
// @Summary List batches for the authenticated user
// @Tags batches
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/batches [get]
func (h *BatchHandler) ListBatches(c *gin.Context) {
	user := middleware.CurrentUser(c)
	batches, err := h.orc.ListBatchesForUser(user.ID)
	if err != nil {
		response.InternalError(c, "failed to list batches", err.Error())
		return
	}
	response.Success(c, http.StatusOK, "batches", batches)
}

// GetResults godoc
// @Summary Get a batch's scan results
// @Tags batches
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {object} response.Response
// @Router /api/v1/batches/{id}/results [get]
func (h *BatchHandler) GetResults(c *gin.Context) {
	user := middleware.CurrentUser(c)
	batchID := c.Param("id")

	results, err := h.orc.ListResults(user.ID, batchID)
	if err != nil {
		if errors.Is(err, orchestrator.ErrNotOwner) {
			response.Error(c, http.StatusForbidden, "FORBIDDEN", "not the batch owner", "")
			return
		}
		response.InternalError(c, "failed to list results", err.Error())
		return
	}
	response.Success(c, http.StatusOK, "scan results", results)
}

// Cancel godoc
// @Summary Request cancellation of an in-progress batch
// @Tags batches
// @Produce json
// @Param id path string true "Batch ID"
// @Success 202 {object} response.Response
// @Router /api/v1/batches/{id}/cancel [post]
func (h *BatchHandler) Cancel(c *gin.Context) {
	user := middleware.CurrentUser(c)
	batchID := c.Param("id")

	if _, err := h.orc.GetBatch(user.ID, batchID); err != nil {
		if errors.Is(err, orchestrator.ErrNotOwner) {
			response.Error(c, http.StatusForbidden, "FORBIDDEN", "not the batch owner", "")
			return
		}
		response.NotFound(c, "batch not found")
		return
	}

	h.orc.Cancel(batchID)
	response.Success(c, http.StatusAccepted, "cancellation requested", nil)
}

// ExportCSV godoc
// @Summary Export a batch's results as CSV rows
// @Tags batches
// @Produce text/csv
// @Param id path string true "Batch ID"
// @Success 200 {file} byte
// @Router /api/v1/batches/{id}/export/csv [get]
func (h *BatchHandler) ExportCSV(c *gin.Context) {
	user := middleware.CurrentUser(c)
	batchID := c.Param("id")

	results, err := h.orc.ListResults(user.ID, batchID)
	if err != nil {
		if errors.Is(err, orchestrator.ErrNotOwner) {
			response.Error(c, http.StatusForbidden, "FORBIDDEN", "not the batch owner", "")
			return
		}
		response.InternalError(c, "failed to load results for export", err.Error())
		return
	}

	c.Header("Content-Disposition", "attachment; filename=\"batch_"+batchID+"_"+time.Now().Format("20060102")+".csv\"")
	c.Header("Content-Type", "text/csv")
	if err := export.WriteBatchCSV(c.Writer, results); err != nil {
		logger.GetLogger().WithError(err).Error("export failed")
	}
}
