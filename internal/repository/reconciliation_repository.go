package repository

import (
	"database/sql"
	"fmt"

	"recon-engine/internal/domain"
)

// ReconciliationRepository is the Storage component's persistence for
// ReconciliationProject, TaxInvoice, BankTransaction and
// ReconciliationMatch.
type ReconciliationRepository interface {
	CreateProject(p *domain.ReconciliationProject) error
	UpdateProjectCounters(p *domain.ReconciliationProject) error
	GetProject(id string) (*domain.ReconciliationProject, error)
	ListProjectsForUser(userID int) ([]domain.ReconciliationProject, error)

	CreateInvoice(inv *domain.TaxInvoice) error
	UpdateInvoice(inv *domain.TaxInvoice) error
	GetInvoice(id string) (*domain.TaxInvoice, error)
	InvoiceExistsForScanResult(scanResultID string) (bool, error)
	ListInvoicesForProject(projectID string) ([]domain.TaxInvoice, error)
	ListUnmatchedInvoices(projectID string) ([]domain.TaxInvoice, error)

	CreateTransaction(tx *domain.BankTransaction) error
	UpdateTransaction(tx *domain.BankTransaction) error
	GetTransaction(id string) (*domain.BankTransaction, error)
	TransactionExists(scanResultID, date, description string) (bool, error)
	ListTransactionsForProject(projectID string) ([]domain.BankTransaction, error)
	ListUnmatchedTransactions(projectID string) ([]domain.BankTransaction, error)

	CreateMatch(m *domain.ReconciliationMatch) error
	UpdateMatch(m *domain.ReconciliationMatch) error
	GetMatch(id string) (*domain.ReconciliationMatch, error)
	GetActiveMatchForPair(invoiceID, transactionID string) (*domain.ReconciliationMatch, error)
	ListMatchesForProject(projectID string) ([]domain.ReconciliationMatch, error)
}

type reconciliationRepository struct {
	db *sql.DB
}

func NewReconciliationRepository(db *sql.DB) ReconciliationRepository {
	return &reconciliationRepository{db: db}
}

func (r *reconciliationRepository) CreateProject(p *domain.ReconciliationProject) error {
	query := `
		INSERT INTO reconciliation_projects (
			id, user_id, name, period_start, period_end, company_npwp, status,
			total_invoices, total_transactions, matched_count, unmatched_invoices, unmatched_transactions,
			invoice_sum, transaction_sum, variance_amount
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`
	_, err := r.db.Exec(query,
		p.ID, p.UserID, p.Name, p.PeriodStart, p.PeriodEnd, p.CompanyNpwp, p.Status,
		p.TotalInvoices, p.TotalTransactions, p.MatchedCount, p.UnmatchedInvoices, p.UnmatchedTransactions,
		p.InvoiceSum, p.TransactionSum, p.VarianceAmount,
	)
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

func (r *reconciliationRepository) UpdateProjectCounters(p *domain.ReconciliationProject) error {
	query := `
		UPDATE reconciliation_projects SET
			status = $2, total_invoices = $3, total_transactions = $4, matched_count = $5,
			unmatched_invoices = $6, unmatched_transactions = $7,
			invoice_sum = $8, transaction_sum = $9, variance_amount = $10
		WHERE id = $1
	`
	_, err := r.db.Exec(query, p.ID, p.Status, p.TotalInvoices, p.TotalTransactions, p.MatchedCount,
		p.UnmatchedInvoices, p.UnmatchedTransactions, p.InvoiceSum, p.TransactionSum, p.VarianceAmount)
	if err != nil {
		return fmt.Errorf("update project counters: %w", err)
	}
	return nil
}

func (r *reconciliationRepository) GetProject(id string) (*domain.ReconciliationProject, error) {
	var p domain.ReconciliationProject
	query := `
		SELECT id, user_id, name, period_start, period_end, company_npwp, status,
		       total_invoices, total_transactions, matched_count, unmatched_invoices, unmatched_transactions,
		       invoice_sum, transaction_sum, variance_amount
		FROM reconciliation_projects WHERE id = $1
	`
	err := r.db.QueryRow(query, id).Scan(
		&p.ID, &p.UserID, &p.Name, &p.PeriodStart, &p.PeriodEnd, &p.CompanyNpwp, &p.Status,
		&p.TotalInvoices, &p.TotalTransactions, &p.MatchedCount, &p.UnmatchedInvoices, &p.UnmatchedTransactions,
		&p.InvoiceSum, &p.TransactionSum, &p.VarianceAmount,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return &p, nil
}

func (r *reconciliationRepository) ListProjectsForUser(userID int) ([]domain.ReconciliationProject, error) {
	query := `
		SELECT id, user_id, name, period_start, period_end, company_npwp, status,
		       total_invoices, total_transactions, matched_count, unmatched_invoices, unmatched_transactions,
		       invoice_sum, transaction_sum, variance_amount
		FROM reconciliation_projects WHERE user_id = $1 ORDER BY period_start DESC
	`
	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []domain.ReconciliationProject
	for rows.Next() {
		var p domain.ReconciliationProject
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.PeriodStart, &p.PeriodEnd, &p.CompanyNpwp, &p.Status,
			&p.TotalInvoices, &p.TotalTransactions, &p.MatchedCount, &p.UnmatchedInvoices, &p.UnmatchedTransactions,
			&p.InvoiceSum, &p.TransactionSum, &p.VarianceAmount); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *reconciliationRepository) CreateInvoice(inv *domain.TaxInvoice) error {
	query := `
		INSERT INTO tax_invoices (
			id, project_id, scan_result_id, invoice_number, invoice_date, invoice_type,
			vendor_name, vendor_npwp, dpp, ppn, total_amount, match_status, match_confidence
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`
	_, err := r.db.Exec(query, inv.ID, inv.ProjectID, inv.ScanResultID, inv.InvoiceNumber, inv.InvoiceDate, inv.InvoiceType,
		inv.VendorName, inv.VendorNpwp, inv.Dpp, inv.Ppn, inv.TotalAmount, inv.MatchStatus, inv.MatchConfidence)
	if err != nil {
		return fmt.Errorf("create invoice: %w", err)
	}
	return nil
}

func (r *reconciliationRepository) UpdateInvoice(inv *domain.TaxInvoice) error {
	query := `
		UPDATE tax_invoices SET
			match_status = $2, match_confidence = $3, matched_transaction_id = $4, matched_at = $5
		WHERE id = $1
	`
	_, err := r.db.Exec(query, inv.ID, inv.MatchStatus, inv.MatchConfidence, inv.MatchedTransactionID, inv.MatchedAt)
	if err != nil {
		return fmt.Errorf("update invoice: %w", err)
	}
	return nil
}

func (r *reconciliationRepository) GetInvoice(id string) (*domain.TaxInvoice, error) {
	var inv domain.TaxInvoice
	query := `
		SELECT id, project_id, scan_result_id, invoice_number, invoice_date, invoice_type,
		       vendor_name, vendor_npwp, dpp, ppn, total_amount, match_status, match_confidence,
		       matched_transaction_id, matched_at
		FROM tax_invoices WHERE id = $1
	`
	err := r.db.QueryRow(query, id).Scan(
		&inv.ID, &inv.ProjectID, &inv.ScanResultID, &inv.InvoiceNumber, &inv.InvoiceDate, &inv.InvoiceType,
		&inv.VendorName, &inv.VendorNpwp, &inv.Dpp, &inv.Ppn, &inv.TotalAmount, &inv.MatchStatus, &inv.MatchConfidence,
		&inv.MatchedTransactionID, &inv.MatchedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return &inv, nil
}

func (r *reconciliationRepository) InvoiceExistsForScanResult(scanResultID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM tax_invoices WHERE scan_result_id = $1)`, scanResultID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check invoice existence: %w", err)
	}
	return exists, nil
}

func (r *reconciliationRepository) ListInvoicesForProject(projectID string) ([]domain.TaxInvoice, error) {
	return r.queryInvoices(`
		SELECT id, project_id, scan_result_id, invoice_number, invoice_date, invoice_type,
		       vendor_name, vendor_npwp, dpp, ppn, total_amount, match_status, match_confidence,
		       matched_transaction_id, matched_at
		FROM tax_invoices WHERE project_id = $1 ORDER BY invoice_date`, projectID)
}

func (r *reconciliationRepository) ListUnmatchedInvoices(projectID string) ([]domain.TaxInvoice, error) {
	return r.queryInvoices(`
		SELECT id, project_id, scan_result_id, invoice_number, invoice_date, invoice_type,
		       vendor_name, vendor_npwp, dpp, ppn, total_amount, match_status, match_confidence,
		       matched_transaction_id, matched_at
		FROM tax_invoices WHERE project_id = $1 AND match_status = 'unmatched' ORDER BY invoice_date`, projectID)
}

func (r *reconciliationRepository) queryInvoices(query, projectID string) ([]domain.TaxInvoice, error) {
	rows, err := r.db.Query(query, projectID)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var out []domain.TaxInvoice
	for rows.Next() {
		var inv domain.TaxInvoice
		if err := rows.Scan(&inv.ID, &inv.ProjectID, &inv.ScanResultID, &inv.InvoiceNumber, &inv.InvoiceDate, &inv.InvoiceType,
			&inv.VendorName, &inv.VendorNpwp, &inv.Dpp, &inv.Ppn, &inv.TotalAmount, &inv.MatchStatus, &inv.MatchConfidence,
			&inv.MatchedTransactionID, &inv.MatchedAt); err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (r *reconciliationRepository) CreateTransaction(tx *domain.BankTransaction) error {
	query := `
		INSERT INTO bank_transactions (
			id, project_id, scan_result_id, bank_name, account_number, transaction_date, description,
			reference_number, debit, credit, balance, extracted_vendor_name, extracted_invoice_number,
			match_status, match_confidence
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`
	_, err := r.db.Exec(query, tx.ID, tx.ProjectID, tx.ScanResultID, tx.BankName, tx.AccountNumber, tx.TransactionDate,
		tx.Description, tx.ReferenceNumber, tx.Debit, tx.Credit, tx.Balance, tx.ExtractedVendorName,
		tx.ExtractedInvoiceNumber, tx.MatchStatus, tx.MatchConfidence)
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

func (r *reconciliationRepository) UpdateTransaction(tx *domain.BankTransaction) error {
	query := `
		UPDATE bank_transactions SET
			match_status = $2, match_confidence = $3, matched_invoice_id = $4, matched_at = $5,
			extracted_vendor_name = $6, extracted_invoice_number = $7
		WHERE id = $1
	`
	_, err := r.db.Exec(query, tx.ID, tx.MatchStatus, tx.MatchConfidence, tx.MatchedInvoiceID, tx.MatchedAt,
		tx.ExtractedVendorName, tx.ExtractedInvoiceNumber)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return nil
}

func (r *reconciliationRepository) GetTransaction(id string) (*domain.BankTransaction, error) {
	var tx domain.BankTransaction
	query := `
		SELECT id, project_id, scan_result_id, bank_name, account_number, transaction_date, description,
		       reference_number, debit, credit, balance, extracted_vendor_name, extracted_invoice_number,
		       match_status, match_confidence, matched_invoice_id, matched_at
		FROM bank_transactions WHERE id = $1
	`
	err := r.db.QueryRow(query, id).Scan(
		&tx.ID, &tx.ProjectID, &tx.ScanResultID, &tx.BankName, &tx.AccountNumber, &tx.TransactionDate, &tx.Description,
		&tx.ReferenceNumber, &tx.Debit, &tx.Credit, &tx.Balance, &tx.ExtractedVendorName, &tx.ExtractedInvoiceNumber,
		&tx.MatchStatus, &tx.MatchConfidence, &tx.MatchedInvoiceID, &tx.MatchedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return &tx, nil
}

func (r *reconciliationRepository) TransactionExists(scanResultID, date, description string) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS(
			SELECT 1 FROM bank_transactions
			WHERE scan_result_id = $1 AND transaction_date::text = $2 AND description = $3
		)
	`
	err := r.db.QueryRow(query, scanResultID, date, description).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check transaction existence: %w", err)
	}
	return exists, nil
}

func (r *reconciliationRepository) ListTransactionsForProject(projectID string) ([]domain.BankTransaction, error) {
	return r.queryTransactions(`
		SELECT id, project_id, scan_result_id, bank_name, account_number, transaction_date, description,
		       reference_number, debit, credit, balance, extracted_vendor_name, extracted_invoice_number,
		       match_status, match_confidence, matched_invoice_id, matched_at
		FROM bank_transactions WHERE project_id = $1 ORDER BY transaction_date`, projectID)
}

func (r *reconciliationRepository) ListUnmatchedTransactions(projectID string) ([]domain.BankTransaction, error) {
	return r.queryTransactions(`
		SELECT id, project_id, scan_result_id, bank_name, account_number, transaction_date, description,
		       reference_number, debit, credit, balance, extracted_vendor_name, extracted_invoice_number,
		       match_status, match_confidence, matched_invoice_id, matched_at
		FROM bank_transactions WHERE project_id = $1 AND match_status = 'unmatched' ORDER BY transaction_date`, projectID)
}

func (r *reconciliationRepository) queryTransactions(query, projectID string) ([]domain.BankTransaction, error) {
	rows, err := r.db.Query(query, projectID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []domain.BankTransaction
	for rows.Next() {
		var tx domain.BankTransaction
		if err := rows.Scan(&tx.ID, &tx.ProjectID, &tx.ScanResultID, &tx.BankName, &tx.AccountNumber, &tx.TransactionDate,
			&tx.Description, &tx.ReferenceNumber, &tx.Debit, &tx.Credit, &tx.Balance, &tx.ExtractedVendorName,
			&tx.ExtractedInvoiceNumber, &tx.MatchStatus, &tx.MatchConfidence, &tx.MatchedInvoiceID, &tx.MatchedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (r *reconciliationRepository) CreateMatch(m *domain.ReconciliationMatch) error {
	query := `
		INSERT INTO reconciliation_matches (
			id, project_id, invoice_id, transaction_id, match_type, match_score,
			amount_variance, date_variance_days, status, confirmed
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at
	`
	err := r.db.QueryRow(query, m.ID, m.ProjectID, m.InvoiceID, m.TransactionID, m.MatchType, m.MatchScore,
		m.AmountVariance, m.DateVarianceDays, m.Status, m.Confirmed).Scan(&m.CreatedAt)
	if err != nil {
		return fmt.Errorf("create match: %w", err)
	}
	return nil
}

func (r *reconciliationRepository) UpdateMatch(m *domain.ReconciliationMatch) error {
	query := `
		UPDATE reconciliation_matches SET status = $2, confirmed = $3, rejection_reason = $4
		WHERE id = $1
	`
	_, err := r.db.Exec(query, m.ID, m.Status, m.Confirmed, m.RejectionReason)
	if err != nil {
		return fmt.Errorf("update match: %w", err)
	}
	return nil
}

func (r *reconciliationRepository) GetMatch(id string) (*domain.ReconciliationMatch, error) {
	var m domain.ReconciliationMatch
	query := `
		SELECT id, project_id, invoice_id, transaction_id, match_type, match_score,
		       amount_variance, date_variance_days, status, confirmed, rejection_reason, created_at
		FROM reconciliation_matches WHERE id = $1
	`
	err := r.db.QueryRow(query, id).Scan(
		&m.ID, &m.ProjectID, &m.InvoiceID, &m.TransactionID, &m.MatchType, &m.MatchScore,
		&m.AmountVariance, &m.DateVarianceDays, &m.Status, &m.Confirmed, &m.RejectionReason, &m.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get match: %w", err)
	}
	return &m, nil
}

func (r *reconciliationRepository) GetActiveMatchForPair(invoiceID, transactionID string) (*domain.ReconciliationMatch, error) {
	var m domain.ReconciliationMatch
	query := `
		SELECT id, project_id, invoice_id, transaction_id, match_type, match_score,
		       amount_variance, date_variance_days, status, confirmed, rejection_reason, created_at
		FROM reconciliation_matches
		WHERE invoice_id = $1 AND transaction_id = $2 AND status = 'active'
	`
	err := r.db.QueryRow(query, invoiceID, transactionID).Scan(
		&m.ID, &m.ProjectID, &m.InvoiceID, &m.TransactionID, &m.MatchType, &m.MatchScore,
		&m.AmountVariance, &m.DateVarianceDays, &m.Status, &m.Confirmed, &m.RejectionReason, &m.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active match: %w", err)
	}
	return &m, nil
}

func (r *reconciliationRepository) ListMatchesForProject(projectID string) ([]domain.ReconciliationMatch, error) {
	query := `
		SELECT id, project_id, invoice_id, transaction_id, match_type, match_score,
		       amount_variance, date_variance_days, status, confirmed, rejection_reason, created_at
		FROM reconciliation_matches WHERE project_id = $1 ORDER BY created_at
	`
	rows, err := r.db.Query(query, projectID)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	var out []domain.ReconciliationMatch
	for rows.Next() {
		var m domain.ReconciliationMatch
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.InvoiceID, &m.TransactionID, &m.MatchType, &m.MatchScore,
			&m.AmountVariance, &m.DateVarianceDays, &m.Status, &m.Confirmed, &m.RejectionReason, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
