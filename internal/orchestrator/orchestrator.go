// Package orchestrator implements the Batch Orchestrator: it
// accepts uploaded batches, drives the per-file pipeline (OCR → parse/bank
// normalization → Storage), and publishes progress to the Progress Bus.
// Only one background task owns a given batch at a time.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"recon-engine/internal/bankadapter"
	"recon-engine/internal/bankhybrid"
	"recon-engine/internal/docparser"
	"recon-engine/internal/domain"
	"recon-engine/internal/ocr"
	"recon-engine/internal/progressbus"
	"recon-engine/internal/repository"
	"recon-engine/internal/security"
	"recon-engine/internal/smartmapper"
	"recon-engine/internal/vault"
	"recon-engine/pkg/logger"
)

// ErrBatchTooLarge is returned by SubmitBatch when the caller exceeds the
// configured maximum file count.
var ErrBatchTooLarge = fmt.Errorf("orchestrator: batch exceeds maximum file count")

// ErrNotOwner is returned by query helpers when the acting user does not
// own the requested batch.
var ErrNotOwner = fmt.Errorf("orchestrator: batch not owned by user")

// smartMapperDocTypes are the document types the orchestrator asks Smart
// Mapper to enrich when a mapper is configured.
var smartMapperDocTypes = map[string]bool{
	docparser.TypeFakturPajak: true,
	docparser.TypePph21:       true,
	docparser.TypePph23:       true,
	docparser.TypeInvoice:     true,
}

// UploadFile is one file accepted into a batch submission, already read
// into memory by the API Facade (multipart handling is the handler's job).
type UploadFile struct {
	DisplayName  string
	DeclaredType string
	Content      []byte
}

// Orchestrator wires together the OCR Gateway, Document Parsers, Bank
// Normalization, Smart Mapper, File Vault, Storage and Progress Bus into
// the batch pipeline.
type Orchestrator struct {
	batchRepo      repository.BatchRepository
	vault          *vault.Vault
	validator      *security.Validator
	ocrGateway     *ocr.Gateway
	parsers        *docparser.Registry
	bankDetector   *bankadapter.Detector
	hybrid         *bankhybrid.Processor
	mapper         smartmapper.Mapper
	bus            *progressbus.Bus
	maxBatchFiles  int
	useSmartMapper bool

	mu      sync.Mutex
	cancels map[string]*atomic.Bool
	owners  map[string]bool // batchID currently owned by a running task
}

func New(
	batchRepo repository.BatchRepository,
	v *vault.Vault,
	validator *security.Validator,
	ocrGateway *ocr.Gateway,
	parsers *docparser.Registry,
	bankDetector *bankadapter.Detector,
	hybrid *bankhybrid.Processor,
	mapper smartmapper.Mapper,
	bus *progressbus.Bus,
	maxBatchFiles int,
	useSmartMapper bool,
) *Orchestrator {
	if maxBatchFiles <= 0 {
		maxBatchFiles = 50
	}
	return &Orchestrator{
		batchRepo:      batchRepo,
		vault:          v,
		validator:      validator,
		ocrGateway:     ocrGateway,
		parsers:        parsers,
		bankDetector:   bankDetector,
		hybrid:         hybrid,
		mapper:         mapper,
		bus:            bus,
		maxBatchFiles:  maxBatchFiles,
		useSmartMapper: useSmartMapper,
		cancels:        map[string]*atomic.Bool{},
		owners:         map[string]bool{},
	}
}

// SubmitBatch creates the Batch row, validates and vaults every file, and
// inserts a DocumentFile per file. Per-file validation errors are recorded
// but only fail the whole batch if every file fails. The writes are not
// wrapped in one transaction: a failure part-way leaves the batch row,
// the vaulted files and the DocumentFile rows already written in place.
// The caller is responsible for launching ProcessBatch in the background.
func (o *Orchestrator) SubmitBatch(userID int, files []UploadFile) (*domain.Batch, error) {
	if len(files) > o.maxBatchFiles {
		return nil, ErrBatchTooLarge
	}

	batch := &domain.Batch{
		ID:         uuid.New().String(),
		UserID:     userID,
		Status:     domain.BatchProcessing,
		TotalFiles: len(files),
	}
	if err := o.batchRepo.CreateBatch(batch); err != nil {
		return nil, fmt.Errorf("create batch: %w", err)
	}

	accepted := 0
	for i, f := range files {
		report := o.validator.Validate(f.DisplayName, f.Content)
		if !report.IsValid {
			o.logBatch(batch.ID, nil, domain.LogError, fmt.Sprintf("rejected %s: %v", f.DisplayName, report.Errors))
			continue
		}

		storedPath, contentHash, err := o.vault.Store(batch.ID, i, f.DisplayName, f.Content)
		if err != nil {
			o.logBatch(batch.ID, nil, domain.LogError, fmt.Sprintf("failed to store %s: %v", f.DisplayName, err))
			continue
		}

		doc := &domain.DocumentFile{
			ID:           uuid.New().String(),
			BatchID:      batch.ID,
			DisplayName:  f.DisplayName,
			StoredPath:   storedPath,
			DeclaredType: f.DeclaredType,
			SizeBytes:    int64(len(f.Content)),
			MimeType:     detectMimeType(f.Content),
			ContentHash:  contentHash,
			Status:       domain.FilePending,
		}
		if err := o.batchRepo.CreateFile(doc); err != nil {
			o.logBatch(batch.ID, nil, domain.LogError, fmt.Sprintf("failed to persist file row for %s: %v", f.DisplayName, err))
			continue
		}
		accepted++
	}

	if accepted == 0 {
		batch.Status = domain.BatchFailed
		errMsg := "all files failed validation"
		batch.ErrorMessage = &errMsg
		_ = o.batchRepo.UpdateBatch(batch)
	}

	return batch, nil
}

func detectMimeType(content []byte) string {
	detected := mimetype.Detect(content).String()
	if idx := strings.Index(detected, ";"); idx >= 0 {
		detected = strings.TrimSpace(detected[:idx])
	}
	return detected
}

// Cancel sets the cooperative cancellation flag consulted between files; a
// file already in flight runs to completion.
func (o *Orchestrator) Cancel(batchID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	flag, ok := o.cancels[batchID]
	if !ok {
		flag = &atomic.Bool{}
		o.cancels[batchID] = flag
	}
	flag.Store(true)
}

func (o *Orchestrator) cancelled(batchID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	flag, ok := o.cancels[batchID]
	return ok && flag.Load()
}

func (o *Orchestrator) claim(batchID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.owners[batchID] {
		return false
	}
	o.owners[batchID] = true
	return true
}

func (o *Orchestrator) release(batchID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.owners, batchID)
	delete(o.cancels, batchID)
}

// ProcessBatch drives the per-file pipeline for one batch. It enforces the
// "only one background task owns a batchId" invariant and must be launched
// as `go orchestrator.ProcessBatch(ctx, batchID)` by the caller.
func (o *Orchestrator) ProcessBatch(ctx context.Context, batchID string) {
	if !o.claim(batchID) {
		logger.GetLogger().WithField("batch_id", batchID).Warn("processBatch called while batch already owned")
		return
	}
	defer o.release(batchID)

	// Any unexpected panic in the background task is caught at the
	// outermost boundary and translated into a failed batch plus a
	// batch-level error event, rather than crashing the process.
	defer func() {
		if r := recover(); r != nil {
			logger.GetLogger().WithField("batch_id", batchID).WithField("panic", r).Error("batch processing panicked")
			now := time.Now()
			errMsg := fmt.Sprintf("internal error: %v", r)
			if b, err := o.batchRepo.GetBatch(batchID); err == nil && b != nil && !b.Status.Terminal() {
				b.Status = domain.BatchFailed
				b.CompletedAt = &now
				b.ErrorMessage = &errMsg
				_ = o.batchRepo.UpdateBatch(b)
			}
			o.bus.Publish(batchID, progressbus.Event{
				Type:    progressbus.EventBatchError,
				Payload: map[string]interface{}{"batch_id": batchID, "error": errMsg},
			})
		}
	}()

	batch, err := o.batchRepo.GetBatch(batchID)
	if err != nil || batch == nil {
		logger.GetLogger().WithField("batch_id", batchID).Error("batch not found at start of processing")
		return
	}
	if batch.Status.Terminal() {
		return
	}

	files, err := o.batchRepo.ListFilesForBatch(batchID)
	if err != nil {
		logger.GetLogger().WithError(err).WithField("batch_id", batchID).Error("failed to list batch files")
		return
	}

	succeeded, observedCancel := 0, false
	for _, f := range files {
		if o.cancelled(batchID) {
			observedCancel = true
			break
		}
		if f.Status != domain.FilePending {
			if f.Status == domain.FileCompleted {
				succeeded++
			}
			continue
		}

		if o.processFile(ctx, batch, &f) {
			succeeded++
		}

		batch.ProcessedFiles++
		_ = o.batchRepo.UpdateBatch(batch)
		o.bus.Publish(batchID, progressbus.Event{
			Type: progressbus.EventBatchProgress,
			Payload: map[string]interface{}{
				"batch_id":        batchID,
				"processed_files": batch.ProcessedFiles,
				"total_files":     batch.TotalFiles,
				"progress":        batch.ProgressPercentage(),
			},
		})
	}

	now := time.Now()
	batch.CompletedAt = &now
	switch {
	case observedCancel:
		batch.Status = domain.BatchCancelled
	case succeeded == 0:
		batch.Status = domain.BatchFailed
	case succeeded == len(files):
		batch.Status = domain.BatchCompleted
	default:
		batch.Status = domain.BatchPartial
	}
	_ = o.batchRepo.UpdateBatch(batch)

	o.bus.Publish(batchID, progressbus.Event{
		Type:    progressbus.EventBatchComplete,
		Payload: map[string]interface{}{"batch_id": batchID, "status": string(batch.Status)},
	})
}

func (o *Orchestrator) processFile(ctx context.Context, batch *domain.Batch, f *domain.DocumentFile) bool {
	start := time.Now()
	f.Status = domain.FileProcessing
	f.ProcessingStart = &start
	_ = o.batchRepo.UpdateFile(f)

	o.bus.Publish(batch.ID, progressbus.Event{
		Type:    progressbus.EventFileProgress,
		Payload: map[string]interface{}{"file_id": f.ID, "status": "processing"},
	})

	content, err := o.vault.Read(f.StoredPath)
	if err != nil {
		return o.failFile(batch.ID, f, fmt.Errorf("read stored file: %w", err))
	}

	ocrResult, err := o.ocrGateway.ExtractText(ctx, content, f.MimeType)
	if err != nil {
		return o.failFile(batch.ID, f, fmt.Errorf("ocr extraction failed: %w", err))
	}

	envelope, extractedData, confidence, engineUsed, err := o.buildEnvelope(ctx, f.DeclaredType, ocrResult)
	if err != nil {
		return o.failFile(batch.ID, f, fmt.Errorf("parse failed: %w", err))
	}

	result := &domain.ScanResult{
		ID:                    uuid.New().String(),
		BatchID:               batch.ID,
		DocumentFileID:        f.ID,
		DocumentType:          f.DeclaredType,
		OriginalFilename:      f.DisplayName,
		RawText:               envelope.RawText,
		ExtractedData:         extractedData,
		Confidence:            confidence,
		EngineUsed:            engineUsed,
		ProcessingTimeSeconds: time.Since(start).Seconds(),
	}
	if err := o.batchRepo.CreateScanResult(result); err != nil {
		return o.failFile(batch.ID, f, fmt.Errorf("persist scan result: %w", err))
	}

	end := time.Now()
	f.ProcessingEnd = &end
	f.Status = domain.FileCompleted
	f.ResultID = &result.ID
	_ = o.batchRepo.UpdateFile(f)

	o.bus.Publish(batch.ID, progressbus.Event{
		Type:    progressbus.EventFileProgress,
		Payload: map[string]interface{}{"file_id": f.ID, "status": "completed"},
	})
	return true
}

// buildEnvelope branches by document type: rekening_koran goes through
// bank detection + the hybrid processor; everything else goes through the
// document parser registry, optionally enriched by Smart Mapper.
func (o *Orchestrator) buildEnvelope(ctx context.Context, declaredType string, ocrResult *domain.OCRResult) (*docparser.Envelope, map[string]interface{}, float64, string, error) {
	if docparser.IsBankStatement(declaredType) {
		adapter, err := o.bankDetector.Detect(ocrResult.RawText)
		if err != nil {
			return nil, nil, 0, "", fmt.Errorf("bank detection: %w", err)
		}
		result, err := o.hybrid.Process(ctx, ocrResult, adapter)
		if err != nil {
			return nil, nil, 0, "", fmt.Errorf("hybrid bank processing: %w", err)
		}
		envelope := &docparser.Envelope{DocumentType: declaredType, RawText: ocrResult.RawText}
		data := map[string]interface{}{
			"bank_name":       result.Metadata.BankName,
			"account_number":  result.Metadata.AccountNumber,
			"opening_balance": result.Metadata.OpeningBalance.String(),
			"transactions":    standardizedTransactionsToRows(result.Transactions),
			"metrics":         result.Metrics,
		}
		return envelope, data, result.Confidence, ocrResult.EngineUsed, nil
	}

	parser, resolvedType := o.parsers.Resolve(declaredType)
	envelope, err := parser.Parse(ocrResult)
	if err != nil {
		return nil, nil, 0, "", err
	}

	data := map[string]interface{}{"resolved_document_type": resolvedType}
	if o.useSmartMapper && smartMapperDocTypes[resolvedType] {
		if fields, err := o.mapper.ExtractFromText(ctx, envelope.RawText, resolvedType, nil); err == nil {
			mergeSmartMapperFields(data, fields)
		} else {
			logger.GetLogger().WithError(err).Debug("smart mapper extraction failed, falling back to raw text")
		}
	}
	return envelope, data, ocrResult.Confidence, ocrResult.EngineUsed, nil
}

// mergeSmartMapperFields flattens the nested shape returned for
// invoice-like documents ({seller, buyer, invoice:{number,issueDate},
// financials:{dpp,ppn,total}}) into the flat keys the Reconciliation Engine
// import step reads, while also accepting an already-flat response.
func mergeSmartMapperFields(data map[string]interface{}, fields map[string]interface{}) {
	if v, ok := fields["invoice_number"]; ok {
		data["invoice_number"] = v
	}
	if v, ok := fields["invoice_date"]; ok {
		data["invoice_date"] = v
	}
	if v, ok := fields["vendor_name"]; ok {
		data["vendor_name"] = v
	}
	if v, ok := fields["vendor_npwp"]; ok {
		data["vendor_npwp"] = v
	}
	if v, ok := fields["dpp"]; ok {
		data["dpp"] = v
	}
	if v, ok := fields["ppn"]; ok {
		data["ppn"] = v
	}
	if v, ok := fields["total_amount"]; ok {
		data["total_amount"] = v
	}

	if seller, ok := fields["seller"].(map[string]interface{}); ok {
		if name, ok := seller["name"].(string); ok {
			data["vendor_name"] = name
		}
		if npwp, ok := seller["npwp"].(string); ok {
			data["vendor_npwp"] = npwp
		}
	}
	if inv, ok := fields["invoice"].(map[string]interface{}); ok {
		if number, ok := inv["number"].(string); ok {
			data["invoice_number"] = number
		}
		if date, ok := inv["issueDate"].(string); ok {
			data["invoice_date"] = date
		}
	}
	if fin, ok := fields["financials"].(map[string]interface{}); ok {
		for _, key := range []string{"dpp", "ppn", "total"} {
			if v, ok := fin[key]; ok {
				if key == "total" {
					data["total_amount"] = v
				} else {
					data[key] = v
				}
			}
		}
	}
}

func standardizedTransactionsToRows(txs []domain.StandardizedTransaction) []interface{} {
	rows := make([]interface{}, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, map[string]interface{}{
			"transaction_date": tx.EffectiveTransactionDate().Format("2006-01-02"),
			"description":      tx.Description,
			"reference_number": tx.ReferenceNumber,
			"debit":            tx.Debit.String(),
			"credit":           tx.Credit.String(),
			"balance":          tx.Balance.String(),
			"bank_name":        tx.BankName,
			"account_number":   tx.AccountNumber,
		})
	}
	return rows
}

func (o *Orchestrator) failFile(batchID string, f *domain.DocumentFile, cause error) bool {
	end := time.Now()
	f.ProcessingEnd = &end
	f.Status = domain.FileFailed
	_ = o.batchRepo.UpdateFile(f)
	o.logBatch(batchID, &f.ID, domain.LogError, cause.Error())
	o.bus.Publish(batchID, progressbus.Event{
		Type:    progressbus.EventFileProgress,
		Payload: map[string]interface{}{"file_id": f.ID, "status": "failed", "error": cause.Error()},
	})
	return false
}

func (o *Orchestrator) logBatch(batchID string, fileID *string, level domain.LogLevel, message string) {
	_ = o.batchRepo.AppendLog(&domain.ProcessingLog{
		BatchID: batchID,
		FileID:  fileID,
		Level:   level,
		Message: message,
	})
}

// GetBatch returns a batch, enforcing ownership.
func (o *Orchestrator) GetBatch(userID int, batchID string) (*domain.Batch, error) {
	b, err := o.batchRepo.GetBatch(batchID)
	if err != nil || b == nil {
		return nil, err
	}
	if b.UserID != userID {
		return nil, ErrNotOwner
	}
	return b, nil
}

// ListBatchesForUser lists every batch owned by userID.
func (o *Orchestrator) ListBatchesForUser(userID int) ([]domain.Batch, error) {
	return o.batchRepo.ListBatchesForUser(userID)
}

// ListResults returns every scan result for a batch, enforcing ownership.
func (o *Orchestrator) ListResults(userID int, batchID string) ([]domain.ScanResult, error) {
	if _, err := o.GetBatch(userID, batchID); err != nil {
		return nil, err
	}
	return o.batchRepo.ListScanResultsForBatch(batchID)
}

// GetResult returns one scan result, enforcing ownership via its batch.
func (o *Orchestrator) GetResult(userID int, batchID, resultID string) (*domain.ScanResult, error) {
	if _, err := o.GetBatch(userID, batchID); err != nil {
		return nil, err
	}
	res, err := o.batchRepo.GetScanResult(resultID)
	if err != nil || res == nil {
		return res, err
	}
	if res.BatchID != batchID {
		return nil, ErrNotOwner
	}
	return res, nil
}

// GetBatchResults is an alias kept for API-facade naming parity with spec
// §4.6's `getBatchResults` operation name.
func (o *Orchestrator) GetBatchResults(userID int, batchID string) ([]domain.ScanResult, error) {
	return o.ListResults(userID, batchID)
}

// ListFiles returns every DocumentFile row for a batch, enforcing ownership.
// Used by the upload response to echo back the per-file accepted state.
func (o *Orchestrator) ListFiles(userID int, batchID string) ([]domain.DocumentFile, error) {
	if _, err := o.GetBatch(userID, batchID); err != nil {
		return nil, err
	}
	return o.batchRepo.ListFilesForBatch(batchID)
}
