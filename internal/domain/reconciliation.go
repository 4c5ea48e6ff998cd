package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProjectStatus is the lifecycle of a ReconciliationProject.
type ProjectStatus string

const (
	ProjectActive     ProjectStatus = "active"
	ProjectDraft      ProjectStatus = "draft"
	ProjectInProgress ProjectStatus = "inProgress"
	ProjectCompleted  ProjectStatus = "completed"
)

// ReconciliationProject scopes a set of invoices and bank transactions to be matched together.
type ReconciliationProject struct {
	ID          string        `json:"id" db:"id"`
	UserID      int           `json:"user_id" db:"user_id"`
	Name        string        `json:"name" db:"name"`
	PeriodStart time.Time     `json:"period_start" db:"period_start"`
	PeriodEnd   time.Time     `json:"period_end" db:"period_end"`
	CompanyNpwp string        `json:"company_npwp" db:"company_npwp"`
	Status      ProjectStatus `json:"status" db:"status"`

	TotalInvoices         int `json:"total_invoices" db:"total_invoices"`
	TotalTransactions     int `json:"total_transactions" db:"total_transactions"`
	MatchedCount          int `json:"matched_count" db:"matched_count"`
	UnmatchedInvoices     int `json:"unmatched_invoices" db:"unmatched_invoices"`
	UnmatchedTransactions int `json:"unmatched_transactions" db:"unmatched_transactions"`

	InvoiceSum     decimal.Decimal `json:"invoice_sum" db:"invoice_sum"`
	TransactionSum decimal.Decimal `json:"transaction_sum" db:"transaction_sum"`
	VarianceAmount decimal.Decimal `json:"variance_amount" db:"variance_amount"`
}

// MatchStatus is the reconciliation state of an invoice or transaction side.
type MatchStatus string

const (
	Unmatched      MatchStatus = "unmatched"
	AutoMatched    MatchStatus = "autoMatched"
	ManualMatched  MatchStatus = "manualMatched"
)

// InvoiceType distinguishes output (keluaran) from input (masukan) tax invoices.
type InvoiceType string

const (
	InvoiceKeluaran InvoiceType = "keluaran"
	InvoiceMasukan  InvoiceType = "masukan"
)

// TaxInvoice is a Faktur Pajak (or PPh withholding certificate) extracted from a scan.
type TaxInvoice struct {
	ID                    string          `json:"id" db:"id"`
	ProjectID             string          `json:"project_id" db:"project_id"`
	ScanResultID          *string         `json:"scan_result_id,omitempty" db:"scan_result_id"`
	InvoiceNumber         string          `json:"invoice_number" db:"invoice_number"`
	InvoiceDate           time.Time       `json:"invoice_date" db:"invoice_date"`
	InvoiceType           InvoiceType     `json:"invoice_type" db:"invoice_type"`
	VendorName            string          `json:"vendor_name" db:"vendor_name"`
	VendorNpwp            string          `json:"vendor_npwp" db:"vendor_npwp"`
	Dpp                   decimal.Decimal `json:"dpp" db:"dpp"`
	Ppn                   decimal.Decimal `json:"ppn" db:"ppn"`
	TotalAmount           decimal.Decimal `json:"total_amount" db:"total_amount"`
	MatchStatus           MatchStatus     `json:"match_status" db:"match_status"`
	MatchConfidence       float64         `json:"match_confidence" db:"match_confidence"`
	MatchedTransactionID  *string         `json:"matched_transaction_id,omitempty" db:"matched_transaction_id"`
	MatchedAt             *time.Time      `json:"matched_at,omitempty" db:"matched_at"`
}

// BankTransaction is one normalized entry from a processed Rekening Koran.
type BankTransaction struct {
	ID                    string          `json:"id" db:"id"`
	ProjectID             string          `json:"project_id" db:"project_id"`
	ScanResultID          *string         `json:"scan_result_id,omitempty" db:"scan_result_id"`
	BankName              string          `json:"bank_name" db:"bank_name"`
	AccountNumber         string          `json:"account_number" db:"account_number"`
	TransactionDate       time.Time       `json:"transaction_date" db:"transaction_date"`
	Description           string          `json:"description" db:"description"`
	ReferenceNumber       string          `json:"reference_number" db:"reference_number"`
	Debit                 decimal.Decimal `json:"debit" db:"debit"`
	Credit                decimal.Decimal `json:"credit" db:"credit"`
	Balance               decimal.Decimal `json:"balance" db:"balance"`
	ExtractedVendorName   *string         `json:"extracted_vendor_name,omitempty" db:"extracted_vendor_name"`
	ExtractedInvoiceNumber *string        `json:"extracted_invoice_number,omitempty" db:"extracted_invoice_number"`
	MatchStatus           MatchStatus     `json:"match_status" db:"match_status"`
	MatchConfidence       float64         `json:"match_confidence" db:"match_confidence"`
	MatchedInvoiceID      *string         `json:"matched_invoice_id,omitempty" db:"matched_invoice_id"`
	MatchedAt             *time.Time      `json:"matched_at,omitempty" db:"matched_at"`
}

// MatchType distinguishes a greedy auto-match from a user-asserted manual one.
type MatchType string

const (
	MatchAuto   MatchType = "auto"
	MatchManual MatchType = "manual"
)

// MatchRowStatus is the lifecycle of a ReconciliationMatch row.
type MatchRowStatus string

const (
	MatchActive   MatchRowStatus = "active"
	MatchRejected MatchRowStatus = "rejected"
)

// SubScores are the weighted components behind a ReconciliationMatch's total score.
type SubScores struct {
	Amount    float64 `json:"amount"`
	Date      float64 `json:"date"`
	Vendor    float64 `json:"vendor"`
	Reference float64 `json:"reference"`
}

// ReconciliationMatch pairs a TaxInvoice with a BankTransaction.
type ReconciliationMatch struct {
	ID               string          `json:"id" db:"id"`
	ProjectID        string          `json:"project_id" db:"project_id"`
	InvoiceID        string          `json:"invoice_id" db:"invoice_id"`
	TransactionID    string          `json:"transaction_id" db:"transaction_id"`
	MatchType        MatchType       `json:"match_type" db:"match_type"`
	MatchScore       float64         `json:"match_score" db:"match_score"`
	AmountVariance   decimal.Decimal `json:"amount_variance" db:"amount_variance"`
	DateVarianceDays int             `json:"date_variance_days" db:"date_variance_days"`
	SubScores        SubScores       `json:"sub_scores" db:"-"`
	Status           MatchRowStatus  `json:"status" db:"status"`
	Confirmed        bool            `json:"confirmed" db:"confirmed"`
	RejectionReason  *string         `json:"rejection_reason,omitempty" db:"rejection_reason"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
}

// ConfidenceBand buckets a match score into high/medium/low thresholds.
func ConfidenceBand(score float64) string {
	switch {
	case score >= 0.90:
		return "high"
	case score >= 0.70:
		return "medium"
	case score >= 0.50:
		return "low"
	default:
		return "none"
	}
}
