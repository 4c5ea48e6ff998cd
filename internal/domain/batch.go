package domain

import "time"

// BatchStatus is the monotonic state of a Batch's processing lifecycle.
type BatchStatus string

const (
	BatchProcessing BatchStatus = "processing"
	BatchCompleted  BatchStatus = "completed"
	BatchPartial    BatchStatus = "partial"
	BatchFailed     BatchStatus = "failed"
	BatchCancelled  BatchStatus = "cancelled"
)

// Terminal reports whether the status accepts no further transitions.
func (s BatchStatus) Terminal() bool {
	switch s {
	case BatchCompleted, BatchPartial, BatchFailed, BatchCancelled:
		return true
	default:
		return false
	}
}

// Batch groups a set of uploaded files submitted together for processing.
type Batch struct {
	ID             string      `json:"id" db:"id"`
	UserID         int         `json:"user_id" db:"user_id"`
	Status         BatchStatus `json:"status" db:"status"`
	TotalFiles     int         `json:"total_files" db:"total_files"`
	ProcessedFiles int         `json:"processed_files" db:"processed_files"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
	CompletedAt    *time.Time  `json:"completed_at,omitempty" db:"completed_at"`
	ErrorMessage   *string     `json:"error_message,omitempty" db:"error_message"`
}

// ProgressPercentage returns the completion ratio in [0,100].
func (b *Batch) ProgressPercentage() float64 {
	if b.TotalFiles == 0 {
		return 0
	}
	return float64(b.ProcessedFiles) / float64(b.TotalFiles) * 100
}

// FileStatus is the lifecycle of a single uploaded file within a batch.
type FileStatus string

const (
	FilePending    FileStatus = "pending"
	FileProcessing FileStatus = "processing"
	FileCompleted  FileStatus = "completed"
	FileFailed     FileStatus = "failed"
)

// DocumentFile is one uploaded artifact within a Batch.
type DocumentFile struct {
	ID              string     `json:"id" db:"id"`
	BatchID         string     `json:"batch_id" db:"batch_id"`
	DisplayName     string     `json:"display_name" db:"display_name"`
	StoredPath      string     `json:"stored_path" db:"stored_path"`
	DeclaredType    string     `json:"declared_type" db:"declared_type"`
	SizeBytes       int64      `json:"size_bytes" db:"size_bytes"`
	MimeType        string     `json:"mime_type" db:"mime_type"`
	ContentHash     string     `json:"content_hash" db:"content_hash"`
	Status          FileStatus `json:"status" db:"status"`
	ProcessingStart *time.Time `json:"processing_start,omitempty" db:"processing_start"`
	ProcessingEnd   *time.Time `json:"processing_end,omitempty" db:"processing_end"`
	ResultID        *string    `json:"result_id,omitempty" db:"result_id"`
}

// LogLevel is the severity of a ProcessingLog entry.
type LogLevel string

const (
	LogInfo    LogLevel = "INFO"
	LogWarning LogLevel = "WARNING"
	LogError   LogLevel = "ERROR"
)

// ProcessingLog is an append-only audit trail entry for a batch.
type ProcessingLog struct {
	ID        int       `json:"id" db:"id"`
	BatchID   string    `json:"batch_id" db:"batch_id"`
	FileID    *string   `json:"file_id,omitempty" db:"file_id"`
	Level     LogLevel  `json:"level" db:"level"`
	Message   string    `json:"message" db:"message"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}

// ScanResult is the persisted outcome of running OCR and extraction over one DocumentFile.
type ScanResult struct {
	ID                   string                 `json:"id" db:"id"`
	BatchID              string                 `json:"batch_id" db:"batch_id"`
	DocumentFileID       string                 `json:"document_file_id" db:"document_file_id"`
	DocumentType         string                 `json:"document_type" db:"document_type"`
	OriginalFilename     string                 `json:"original_filename" db:"original_filename"`
	RawText              string                 `json:"raw_text" db:"raw_text"`
	ExtractedData        map[string]interface{} `json:"extracted_data" db:"extracted_data"`
	Confidence           float64                `json:"confidence" db:"confidence"`
	EngineUsed           string                 `json:"engine_used" db:"engine_used"`
	ProcessingTimeSeconds float64               `json:"processing_time_seconds" db:"processing_time_seconds"`
	CreatedAt            time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time              `json:"updated_at" db:"updated_at"`
}
