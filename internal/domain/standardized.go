package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// StandardizedTransaction is the common shape every bank adapter converts its
// rekening-koran rows into, regardless of source layout.
type StandardizedTransaction struct {
	TransactionDate time.Time  `json:"transaction_date"`
	PostingDate     *time.Time `json:"posting_date,omitempty"`
	EffectiveDate   *time.Time `json:"effective_date,omitempty"`

	Description     string `json:"description"`
	TransactionType string `json:"transaction_type"`
	ReferenceNumber string `json:"reference_number"`

	Debit   decimal.Decimal `json:"debit"`
	Credit  decimal.Decimal `json:"credit"`
	Balance decimal.Decimal `json:"balance"`

	BranchCode     string `json:"branch_code,omitempty"`
	Teller         string `json:"teller,omitempty"`
	AdditionalInfo string `json:"additional_info,omitempty"`

	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	AccountHolder string `json:"account_holder"`

	RawData map[string]string `json:"raw_data,omitempty"`

	// Confidence is populated by the rule-based parser (§4.4.3); LLM-sourced
	// transactions default to 1.0 since the mapper has already committed.
	Confidence float64 `json:"confidence"`
}

// EffectiveTransactionDate returns the effective date when present, else the
// posting date, else the transaction date: the effective date is the
// primary transactionDate when both posting and effective are present.
func (t *StandardizedTransaction) EffectiveTransactionDate() time.Time {
	if t.EffectiveDate != nil {
		return *t.EffectiveDate
	}
	if t.PostingDate != nil {
		return *t.PostingDate
	}
	return t.TransactionDate
}

// Cell is one OCR-extracted table cell.
type Cell struct {
	Text string `json:"text"`
}

// Row is one row of an OCR-extracted table.
type Row struct {
	Cells []Cell `json:"cells"`
}

// Table is one OCR-extracted table, optionally scoped to a page.
type Table struct {
	PageNumber int   `json:"page_number,omitempty"`
	Rows       []Row `json:"rows"`
}

// OCRResult is the normalized output of the OCR Gateway for one file.
type OCRResult struct {
	RawText               string   `json:"raw_text"`
	StructuredTables      []Table  `json:"structured_tables,omitempty"`
	Confidence            float64  `json:"confidence"`
	EngineUsed            string   `json:"engine_used"`
	ProcessingTimeSeconds float64  `json:"processing_time_seconds"`
}
