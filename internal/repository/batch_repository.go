package repository

import (
	"database/sql"
	"fmt"

	"recon-engine/internal/domain"
)

// BatchRepository is the Storage component's batch/file/log persistence
// boundary.
type BatchRepository interface {
	CreateBatch(b *domain.Batch) error
	UpdateBatch(b *domain.Batch) error
	GetBatch(id string) (*domain.Batch, error)
	ListBatchesForUser(userID int) ([]domain.Batch, error)

	CreateFile(f *domain.DocumentFile) error
	UpdateFile(f *domain.DocumentFile) error
	GetFile(id string) (*domain.DocumentFile, error)
	ListFilesForBatch(batchID string) ([]domain.DocumentFile, error)

	CreateScanResult(r *domain.ScanResult) error
	GetScanResult(id string) (*domain.ScanResult, error)
	ListScanResultsForBatch(batchID string) ([]domain.ScanResult, error)

	AppendLog(l *domain.ProcessingLog) error
	ListLogsForBatch(batchID string) ([]domain.ProcessingLog, error)
}

type batchRepository struct {
	db *sql.DB
}

func NewBatchRepository(db *sql.DB) BatchRepository {
	return &batchRepository{db: db}
}

func (r *batchRepository) CreateBatch(b *domain.Batch) error {
	query := `
		INSERT INTO batches (id, user_id, status, total_files, processed_files)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	err := r.db.QueryRow(query, b.ID, b.UserID, b.Status, b.TotalFiles, b.ProcessedFiles).Scan(&b.CreatedAt)
	if err != nil {
		return fmt.Errorf("create batch: %w", err)
	}
	return nil
}

func (r *batchRepository) UpdateBatch(b *domain.Batch) error {
	query := `
		UPDATE batches
		SET status = $2, total_files = $3, processed_files = $4, completed_at = $5, error_message = $6
		WHERE id = $1
	`
	_, err := r.db.Exec(query, b.ID, b.Status, b.TotalFiles, b.ProcessedFiles, b.CompletedAt, b.ErrorMessage)
	if err != nil {
		return fmt.Errorf("update batch: %w", err)
	}
	return nil
}

func (r *batchRepository) GetBatch(id string) (*domain.Batch, error) {
	var b domain.Batch
	query := `
		SELECT id, user_id, status, total_files, processed_files, created_at, completed_at, error_message
		FROM batches WHERE id = $1
	`
	err := r.db.QueryRow(query, id).Scan(
		&b.ID, &b.UserID, &b.Status, &b.TotalFiles, &b.ProcessedFiles, &b.CreatedAt, &b.CompletedAt, &b.ErrorMessage,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return &b, nil
}

func (r *batchRepository) ListBatchesForUser(userID int) ([]domain.Batch, error) {
	query := `
		SELECT id, user_id, status, total_files, processed_files, created_at, completed_at, error_message
		FROM batches WHERE user_id = $1 ORDER BY created_at DESC
	`
	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	var out []domain.Batch
	for rows.Next() {
		var b domain.Batch
		if err := rows.Scan(&b.ID, &b.UserID, &b.Status, &b.TotalFiles, &b.ProcessedFiles, &b.CreatedAt, &b.CompletedAt, &b.ErrorMessage); err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *batchRepository) CreateFile(f *domain.DocumentFile) error {
	query := `
		INSERT INTO document_files (
			id, batch_id, display_name, stored_path, declared_type, size_bytes, mime_type, content_hash, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(query, f.ID, f.BatchID, f.DisplayName, f.StoredPath, f.DeclaredType, f.SizeBytes, f.MimeType, f.ContentHash, f.Status)
	if err != nil {
		return fmt.Errorf("create document file: %w", err)
	}
	return nil
}

func (r *batchRepository) UpdateFile(f *domain.DocumentFile) error {
	query := `
		UPDATE document_files
		SET status = $2, processing_start = $3, processing_end = $4, result_id = $5
		WHERE id = $1
	`
	_, err := r.db.Exec(query, f.ID, f.Status, f.ProcessingStart, f.ProcessingEnd, f.ResultID)
	if err != nil {
		return fmt.Errorf("update document file: %w", err)
	}
	return nil
}

func (r *batchRepository) GetFile(id string) (*domain.DocumentFile, error) {
	var f domain.DocumentFile
	query := `
		SELECT id, batch_id, display_name, stored_path, declared_type, size_bytes, mime_type, content_hash,
		       status, processing_start, processing_end, result_id
		FROM document_files WHERE id = $1
	`
	err := r.db.QueryRow(query, id).Scan(
		&f.ID, &f.BatchID, &f.DisplayName, &f.StoredPath, &f.DeclaredType, &f.SizeBytes, &f.MimeType, &f.ContentHash,
		&f.Status, &f.ProcessingStart, &f.ProcessingEnd, &f.ResultID,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get document file: %w", err)
	}
	return &f, nil
}

func (r *batchRepository) ListFilesForBatch(batchID string) ([]domain.DocumentFile, error) {
	query := `
		SELECT id, batch_id, display_name, stored_path, declared_type, size_bytes, mime_type, content_hash,
		       status, processing_start, processing_end, result_id
		FROM document_files WHERE batch_id = $1 ORDER BY display_name
	`
	rows, err := r.db.Query(query, batchID)
	if err != nil {
		return nil, fmt.Errorf("list document files: %w", err)
	}
	defer rows.Close()

	var out []domain.DocumentFile
	for rows.Next() {
		var f domain.DocumentFile
		if err := rows.Scan(&f.ID, &f.BatchID, &f.DisplayName, &f.StoredPath, &f.DeclaredType, &f.SizeBytes, &f.MimeType,
			&f.ContentHash, &f.Status, &f.ProcessingStart, &f.ProcessingEnd, &f.ResultID); err != nil {
			return nil, fmt.Errorf("scan document file: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *batchRepository) CreateScanResult(res *domain.ScanResult) error {
	query := `
		INSERT INTO scan_results (
			id, batch_id, document_file_id, document_type, original_filename, raw_text,
			extracted_data, confidence, engine_used, processing_time_seconds
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(query,
		res.ID, res.BatchID, res.DocumentFileID, res.DocumentType, res.OriginalFilename, res.RawText,
		jsonColumn(res.ExtractedData), res.Confidence, res.EngineUsed, res.ProcessingTimeSeconds,
	).Scan(&res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create scan result: %w", err)
	}
	return nil
}

func (r *batchRepository) GetScanResult(id string) (*domain.ScanResult, error) {
	var res domain.ScanResult
	var data []byte
	query := `
		SELECT id, batch_id, document_file_id, document_type, original_filename, raw_text,
		       extracted_data, confidence, engine_used, processing_time_seconds, created_at, updated_at
		FROM scan_results WHERE id = $1
	`
	err := r.db.QueryRow(query, id).Scan(
		&res.ID, &res.BatchID, &res.DocumentFileID, &res.DocumentType, &res.OriginalFilename, &res.RawText,
		&data, &res.Confidence, &res.EngineUsed, &res.ProcessingTimeSeconds, &res.CreatedAt, &res.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get scan result: %w", err)
	}
	res.ExtractedData = decodeJSONColumn(data)
	return &res, nil
}

func (r *batchRepository) ListScanResultsForBatch(batchID string) ([]domain.ScanResult, error) {
	query := `
		SELECT id, batch_id, document_file_id, document_type, original_filename, raw_text,
		       extracted_data, confidence, engine_used, processing_time_seconds, created_at, updated_at
		FROM scan_results WHERE batch_id = $1 ORDER BY created_at
	`
	rows, err := r.db.Query(query, batchID)
	if err != nil {
		return nil, fmt.Errorf("list scan results: %w", err)
	}
	defer rows.Close()

	var out []domain.ScanResult
	for rows.Next() {
		var res domain.ScanResult
		var data []byte
		if err := rows.Scan(&res.ID, &res.BatchID, &res.DocumentFileID, &res.DocumentType, &res.OriginalFilename,
			&res.RawText, &data, &res.Confidence, &res.EngineUsed, &res.ProcessingTimeSeconds, &res.CreatedAt, &res.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan scan result: %w", err)
		}
		res.ExtractedData = decodeJSONColumn(data)
		out = append(out, res)
	}
	return out, rows.Err()
}

func (r *batchRepository) AppendLog(l *domain.ProcessingLog) error {
	query := `
		INSERT INTO processing_logs (batch_id, file_id, level, message)
		VALUES ($1, $2, $3, $4)
		RETURNING id, timestamp
	`
	err := r.db.QueryRow(query, l.BatchID, l.FileID, l.Level, l.Message).Scan(&l.ID, &l.Timestamp)
	if err != nil {
		return fmt.Errorf("append processing log: %w", err)
	}
	return nil
}

func (r *batchRepository) ListLogsForBatch(batchID string) ([]domain.ProcessingLog, error) {
	query := `
		SELECT id, batch_id, file_id, level, message, timestamp
		FROM processing_logs WHERE batch_id = $1 ORDER BY timestamp
	`
	rows, err := r.db.Query(query, batchID)
	if err != nil {
		return nil, fmt.Errorf("list processing logs: %w", err)
	}
	defer rows.Close()

	var out []domain.ProcessingLog
	for rows.Next() {
		var l domain.ProcessingLog
		if err := rows.Scan(&l.ID, &l.BatchID, &l.FileID, &l.Level, &l.Message, &l.Timestamp); err != nil {
			return nil, fmt.Errorf("scan processing log: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
