package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"recon-engine/internal/domain"
	"recon-engine/internal/matcher"
	"recon-engine/internal/numfmt"
	"recon-engine/internal/repository"
	"recon-engine/internal/smartmapper"
	"recon-engine/pkg/logger"
)

const defaultMinMatchConfidence = 0.70

// ReconciliationPoint identifies which PPN bucket (§4.9) a TaxInvoice
// resolves into; also exported for export-writer callers.
type ReconciliationPoint = domain.ReconciliationPoint

// ReconciliationService implements the Reconciliation Engine's public
// operations.
type ReconciliationService interface {
	CreateProject(userID int, name string, periodStart, periodEnd time.Time, companyNpwp string) (*domain.ReconciliationProject, error)
	GetProject(projectID string) (*domain.ReconciliationProject, error)
	ListProjectsForUser(userID int) ([]domain.ReconciliationProject, error)

	ImportInvoicesFromBatch(projectID, batchID string) (imported int, skipped int, err error)
	ImportTransactionsFromBatch(projectID, batchID string) (imported int, skipped int, err error)

	AIExtractVendorFromTransactions(projectID string) (updated int, err error)
	AIExtractInvoiceFromTransactions(projectID string) (updated int, err error)

	AutoMatchProject(projectID string, minConfidence float64) ([]domain.ReconciliationMatch, error)
	SuggestMatches(projectID, invoiceID string, k int) ([]matcher.Candidate, error)
	ManualMatch(projectID, invoiceID, transactionID string) (*domain.ReconciliationMatch, error)
	Unmatch(matchID string, reason *string) error

	ClassifyPoint(inv domain.TaxInvoice, companyNpwp string) ReconciliationPoint
}

type reconciliationService struct {
	reconRepo  repository.ReconciliationRepository
	batchRepo  repository.BatchRepository
	mapper     smartmapper.Mapper
}

func NewReconciliationService(
	reconRepo repository.ReconciliationRepository,
	batchRepo repository.BatchRepository,
	mapper smartmapper.Mapper,
) ReconciliationService {
	return &reconciliationService{reconRepo: reconRepo, batchRepo: batchRepo, mapper: mapper}
}

func (s *reconciliationService) CreateProject(userID int, name string, periodStart, periodEnd time.Time, companyNpwp string) (*domain.ReconciliationProject, error) {
	p := &domain.ReconciliationProject{
		ID:             uuid.New().String(),
		UserID:         userID,
		Name:           name,
		PeriodStart:    periodStart,
		PeriodEnd:      periodEnd,
		CompanyNpwp:    companyNpwp,
		Status:         domain.ProjectDraft,
		InvoiceSum:     decimal.Zero,
		TransactionSum: decimal.Zero,
		VarianceAmount: decimal.Zero,
	}
	if err := s.reconRepo.CreateProject(p); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return p, nil
}

func (s *reconciliationService) GetProject(projectID string) (*domain.ReconciliationProject, error) {
	return s.reconRepo.GetProject(projectID)
}

func (s *reconciliationService) ListProjectsForUser(userID int) ([]domain.ReconciliationProject, error) {
	return s.reconRepo.ListProjectsForUser(userID)
}

// ImportInvoicesFromBatch reads every faktur_pajak/pph21/pph23/invoice scan
// result in batchID and creates a TaxInvoice per result, skipping results
// already imported (idempotent by scanResultId).
func (s *reconciliationService) ImportInvoicesFromBatch(projectID, batchID string) (int, int, error) {
	results, err := s.batchRepo.ListScanResultsForBatch(batchID)
	if err != nil {
		return 0, 0, fmt.Errorf("list scan results: %w", err)
	}

	imported, skipped := 0, 0
	for _, res := range results {
		if res.DocumentType == "rekening_koran" {
			continue
		}
		exists, err := s.reconRepo.InvoiceExistsForScanResult(res.ID)
		if err != nil {
			return imported, skipped, fmt.Errorf("check existing invoice: %w", err)
		}
		if exists {
			skipped++
			continue
		}

		inv := invoiceFromExtractedData(projectID, res)
		if err := s.reconRepo.CreateInvoice(&inv); err != nil {
			return imported, skipped, fmt.Errorf("create invoice: %w", err)
		}
		imported++
	}

	if err := s.recomputeCounters(projectID); err != nil {
		logger.GetLogger().WithError(err).Warn("failed to recompute project counters after invoice import")
	}
	return imported, skipped, nil
}

// ImportTransactionsFromBatch reads every rekening_koran scan result and
// creates one BankTransaction per normalized transaction row, skipping rows
// already imported (idempotent by scanResultId+date+description, §4.8).
func (s *reconciliationService) ImportTransactionsFromBatch(projectID, batchID string) (int, int, error) {
	results, err := s.batchRepo.ListScanResultsForBatch(batchID)
	if err != nil {
		return 0, 0, fmt.Errorf("list scan results: %w", err)
	}

	imported, skipped := 0, 0
	for _, res := range results {
		if res.DocumentType != "rekening_koran" {
			continue
		}
		rows := extractedTransactionRows(res.ExtractedData)
		for _, row := range rows {
			date, description := transactionRowKey(row)
			exists, err := s.reconRepo.TransactionExists(res.ID, date, description)
			if err != nil {
				return imported, skipped, fmt.Errorf("check existing transaction: %w", err)
			}
			if exists {
				skipped++
				continue
			}
			tx := transactionFromRow(projectID, res, row)
			if err := s.reconRepo.CreateTransaction(&tx); err != nil {
				return imported, skipped, fmt.Errorf("create transaction: %w", err)
			}
			imported++
		}
	}

	if err := s.recomputeCounters(projectID); err != nil {
		logger.GetLogger().WithError(err).Warn("failed to recompute project counters after transaction import")
	}
	return imported, skipped, nil
}

// AIExtractVendorFromTransactions fills BankTransaction.extractedVendorName
// via the Smart Mapper for transactions that do not have it yet. A Smart
// Mapper failure is non-fatal: that transaction is simply left unfilled.
func (s *reconciliationService) AIExtractVendorFromTransactions(projectID string) (int, error) {
	transactions, err := s.reconRepo.ListUnmatchedTransactions(projectID)
	if err != nil {
		return 0, fmt.Errorf("list unmatched transactions: %w", err)
	}

	updated := 0
	for i := range transactions {
		tx := transactions[i]
		if tx.ExtractedVendorName != nil {
			continue
		}
		data, err := s.mapper.ExtractFromText(context.Background(), tx.Description, "vendor_name", nil)
		if err != nil {
			logger.GetLogger().WithError(err).WithField("transaction_id", tx.ID).Debug("smart mapper vendor extraction failed")
			continue
		}
		vendor, ok := stringField(data, "vendor_name")
		if !ok || vendor == "" {
			continue
		}
		tx.ExtractedVendorName = &vendor
		if err := s.reconRepo.UpdateTransaction(&tx); err != nil {
			return updated, fmt.Errorf("update transaction: %w", err)
		}
		updated++
	}
	return updated, nil
}

// AIExtractInvoiceFromTransactions mirrors AIExtractVendorFromTransactions
// for extractedInvoiceNumber.
func (s *reconciliationService) AIExtractInvoiceFromTransactions(projectID string) (int, error) {
	transactions, err := s.reconRepo.ListUnmatchedTransactions(projectID)
	if err != nil {
		return 0, fmt.Errorf("list unmatched transactions: %w", err)
	}

	updated := 0
	for i := range transactions {
		tx := transactions[i]
		if tx.ExtractedInvoiceNumber != nil {
			continue
		}
		data, err := s.mapper.ExtractFromText(context.Background(), tx.Description, "invoice_number", nil)
		if err != nil {
			logger.GetLogger().WithError(err).WithField("transaction_id", tx.ID).Debug("smart mapper invoice extraction failed")
			continue
		}
		number, ok := stringField(data, "invoice_number")
		if !ok || number == "" {
			continue
		}
		tx.ExtractedInvoiceNumber = &number
		if err := s.reconRepo.UpdateTransaction(&tx); err != nil {
			return updated, fmt.Errorf("update transaction: %w", err)
		}
		updated++
	}
	return updated, nil
}

// AutoMatchProject runs the greedy auto-matcher over every unmatched
// invoice/transaction pair and persists the resulting matches.
func (s *reconciliationService) AutoMatchProject(projectID string, minConfidence float64) ([]domain.ReconciliationMatch, error) {
	if minConfidence <= 0 {
		minConfidence = defaultMinMatchConfidence
	}

	invoices, err := s.reconRepo.ListUnmatchedInvoices(projectID)
	if err != nil {
		return nil, fmt.Errorf("list unmatched invoices: %w", err)
	}
	transactions, err := s.reconRepo.ListUnmatchedTransactions(projectID)
	if err != nil {
		return nil, fmt.Errorf("list unmatched transactions: %w", err)
	}

	candidates := matcher.AutoMatch(invoices, transactions, minConfidence)

	created := make([]domain.ReconciliationMatch, 0, len(candidates))
	for _, c := range candidates {
		m := candidateToMatch(projectID, c, domain.MatchAuto)
		if err := s.reconRepo.CreateMatch(&m); err != nil {
			return created, fmt.Errorf("create match: %w", err)
		}

		inv := c.Invoice
		inv.MatchStatus = domain.AutoMatched
		inv.MatchConfidence = c.TotalScore
		inv.MatchedTransactionID = &c.Transaction.ID
		now := m.CreatedAt
		inv.MatchedAt = &now
		if err := s.reconRepo.UpdateInvoice(&inv); err != nil {
			return created, fmt.Errorf("update invoice: %w", err)
		}

		tx := c.Transaction
		tx.MatchStatus = domain.AutoMatched
		tx.MatchConfidence = c.TotalScore
		tx.MatchedInvoiceID = &c.Invoice.ID
		tx.MatchedAt = &now
		if err := s.reconRepo.UpdateTransaction(&tx); err != nil {
			return created, fmt.Errorf("update transaction: %w", err)
		}

		created = append(created, m)
	}

	if err := s.recomputeCounters(projectID); err != nil {
		logger.GetLogger().WithError(err).Warn("failed to recompute project counters after auto-match")
	}
	return created, nil
}

// SuggestMatches returns the top-k scored candidate transactions for one
// invoice, without creating a match.
func (s *reconciliationService) SuggestMatches(projectID, invoiceID string, k int) ([]matcher.Candidate, error) {
	inv, err := s.reconRepo.GetInvoice(invoiceID)
	if err != nil || inv == nil {
		return nil, fmt.Errorf("invoice not found: %w", err)
	}
	transactions, err := s.reconRepo.ListUnmatchedTransactions(projectID)
	if err != nil {
		return nil, fmt.Errorf("list unmatched transactions: %w", err)
	}
	if k <= 0 {
		k = 5
	}
	return matcher.SuggestMatches(*inv, transactions, k), nil
}

// ManualMatch bypasses the confidence threshold: the caller asserts the
// pair, but the score is still computed and stored for audit.
func (s *reconciliationService) ManualMatch(projectID, invoiceID, transactionID string) (*domain.ReconciliationMatch, error) {
	inv, err := s.reconRepo.GetInvoice(invoiceID)
	if err != nil || inv == nil {
		return nil, fmt.Errorf("invoice not found: %w", err)
	}
	tx, err := s.reconRepo.GetTransaction(transactionID)
	if err != nil || tx == nil {
		return nil, fmt.Errorf("transaction not found: %w", err)
	}

	c := matcher.Score(*inv, *tx)
	m := candidateToMatch(projectID, c, domain.MatchManual)
	if err := s.reconRepo.CreateMatch(&m); err != nil {
		return nil, fmt.Errorf("create match: %w", err)
	}

	now := m.CreatedAt
	inv.MatchStatus = domain.ManualMatched
	inv.MatchConfidence = c.TotalScore
	inv.MatchedTransactionID = &tx.ID
	inv.MatchedAt = &now
	if err := s.reconRepo.UpdateInvoice(inv); err != nil {
		return nil, fmt.Errorf("update invoice: %w", err)
	}

	tx.MatchStatus = domain.ManualMatched
	tx.MatchConfidence = c.TotalScore
	tx.MatchedInvoiceID = &inv.ID
	tx.MatchedAt = &now
	if err := s.reconRepo.UpdateTransaction(tx); err != nil {
		return nil, fmt.Errorf("update transaction: %w", err)
	}

	if err := s.recomputeCounters(projectID); err != nil {
		logger.GetLogger().WithError(err).Warn("failed to recompute project counters after manual match")
	}
	return &m, nil
}

// Unmatch flips a match to rejected and clears both sides back to unmatched.
func (s *reconciliationService) Unmatch(matchID string, reason *string) error {
	m, err := s.reconRepo.GetMatch(matchID)
	if err != nil || m == nil {
		return fmt.Errorf("match not found: %w", err)
	}
	m.Status = domain.MatchRejected
	m.Confirmed = false
	m.RejectionReason = reason
	if err := s.reconRepo.UpdateMatch(m); err != nil {
		return fmt.Errorf("update match: %w", err)
	}

	inv, err := s.reconRepo.GetInvoice(m.InvoiceID)
	if err == nil && inv != nil {
		inv.MatchStatus = domain.Unmatched
		inv.MatchConfidence = 0
		inv.MatchedTransactionID = nil
		inv.MatchedAt = nil
		_ = s.reconRepo.UpdateInvoice(inv)
	}

	tx, err := s.reconRepo.GetTransaction(m.TransactionID)
	if err == nil && tx != nil {
		tx.MatchStatus = domain.Unmatched
		tx.MatchConfidence = 0
		tx.MatchedInvoiceID = nil
		tx.MatchedAt = nil
		_ = s.reconRepo.UpdateTransaction(tx)
	}

	return s.recomputeCounters(m.ProjectID)
}

// ClassifyPoint implements the PPN variant's auto-split step:
// a TaxInvoice is Point A (Keluaran) when its seller is the project's own
// company, else Point B (Masukan).
func (s *reconciliationService) ClassifyPoint(inv domain.TaxInvoice, companyNpwp string) ReconciliationPoint {
	if normalizeNpwp(inv.VendorNpwp) == normalizeNpwp(companyNpwp) {
		return domain.PointA
	}
	return domain.PointB
}

func normalizeNpwp(npwp string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, npwp)
}

func (s *reconciliationService) recomputeCounters(projectID string) error {
	p, err := s.reconRepo.GetProject(projectID)
	if err != nil || p == nil {
		return fmt.Errorf("get project: %w", err)
	}

	invoices, err := s.reconRepo.ListInvoicesForProject(projectID)
	if err != nil {
		return fmt.Errorf("list invoices: %w", err)
	}
	transactions, err := s.reconRepo.ListTransactionsForProject(projectID)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}

	p.TotalInvoices = len(invoices)
	p.TotalTransactions = len(transactions)

	matched, unmatchedInv, invoiceSum := 0, 0, decimal.Zero
	for _, inv := range invoices {
		invoiceSum = invoiceSum.Add(inv.TotalAmount)
		if inv.MatchStatus == domain.Unmatched {
			unmatchedInv++
		} else {
			matched++
		}
	}
	unmatchedTx, transactionSum := 0, decimal.Zero
	for _, tx := range transactions {
		transactionSum = transactionSum.Add(tx.Credit)
		if tx.MatchStatus == domain.Unmatched {
			unmatchedTx++
		}
	}

	p.MatchedCount = matched
	p.UnmatchedInvoices = unmatchedInv
	p.UnmatchedTransactions = unmatchedTx
	p.InvoiceSum = invoiceSum
	p.TransactionSum = transactionSum
	p.VarianceAmount = invoiceSum.Sub(transactionSum).Abs()

	if p.TotalInvoices > 0 && unmatchedInv == 0 {
		p.Status = domain.ProjectCompleted
	} else if matched > 0 {
		p.Status = domain.ProjectInProgress
	}

	return s.reconRepo.UpdateProjectCounters(p)
}

func candidateToMatch(projectID string, c matcher.Candidate, matchType domain.MatchType) domain.ReconciliationMatch {
	return domain.ReconciliationMatch{
		ID:               uuid.New().String(),
		ProjectID:        projectID,
		InvoiceID:        c.Invoice.ID,
		TransactionID:    c.Transaction.ID,
		MatchType:        matchType,
		MatchScore:       c.TotalScore,
		AmountVariance:   c.AmountDelta,
		DateVarianceDays: c.DateDeltaDays,
		SubScores:        c.SubScores,
		Status:           domain.MatchActive,
		Confirmed:        matchType == domain.MatchManual,
		CreatedAt:        time.Now(),
	}
}

func invoiceFromExtractedData(projectID string, res domain.ScanResult) domain.TaxInvoice {
	data := res.ExtractedData
	scanResultID := res.ID
	inv := domain.TaxInvoice{
		ID:           uuid.New().String(),
		ProjectID:    projectID,
		ScanResultID: &scanResultID,
		MatchStatus:  domain.Unmatched,
	}
	inv.InvoiceNumber, _ = stringField(data, "invoice_number")
	inv.VendorName, _ = stringField(data, "vendor_name")
	inv.VendorNpwp, _ = stringField(data, "vendor_npwp")

	if raw, ok := stringField(data, "invoice_date"); ok {
		if d, ok := numfmt.ParseDate(raw); ok {
			inv.InvoiceDate = d
		}
	}
	inv.Dpp = decimalField(data, "dpp")
	inv.Ppn = decimalField(data, "ppn")
	inv.TotalAmount = decimalField(data, "total_amount")
	if inv.TotalAmount.IsZero() {
		inv.TotalAmount = inv.Dpp.Add(inv.Ppn)
	}

	switch res.DocumentType {
	case "pph21", "pph23":
		inv.InvoiceType = domain.InvoiceMasukan
	default:
		inv.InvoiceType = domain.InvoiceKeluaran
	}
	return inv
}

func extractedTransactionRows(data map[string]interface{}) []map[string]interface{} {
	raw, ok := data["transactions"]
	if !ok {
		return nil
	}
	list, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	rows := make([]map[string]interface{}, 0, len(list))
	for _, item := range list {
		if row, ok := item.(map[string]interface{}); ok {
			rows = append(rows, row)
		}
	}
	return rows
}

func transactionRowKey(row map[string]interface{}) (date, description string) {
	date, _ = stringField(row, "transaction_date")
	description, _ = stringField(row, "description")
	return date, description
}

func transactionFromRow(projectID string, res domain.ScanResult, row map[string]interface{}) domain.BankTransaction {
	scanResultID := res.ID
	tx := domain.BankTransaction{
		ID:           uuid.New().String(),
		ProjectID:    projectID,
		ScanResultID: &scanResultID,
		MatchStatus:  domain.Unmatched,
	}
	tx.BankName, _ = stringField(row, "bank_name")
	tx.AccountNumber, _ = stringField(row, "account_number")
	tx.Description, _ = stringField(row, "description")
	tx.ReferenceNumber, _ = stringField(row, "reference_number")
	if raw, ok := stringField(row, "transaction_date"); ok {
		if d, ok := numfmt.ParseDate(raw); ok {
			tx.TransactionDate = d
		}
	}
	tx.Debit = decimalField(row, "debit")
	tx.Credit = decimalField(row, "credit")
	tx.Balance = decimalField(row, "balance")
	return tx
}

func stringField(data map[string]interface{}, key string) (string, bool) {
	if data == nil {
		return "", false
	}
	v, ok := data[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func decimalField(data map[string]interface{}, key string) decimal.Decimal {
	if data == nil {
		return decimal.Zero
	}
	switch v := data[key].(type) {
	case string:
		return numfmt.ParseAmount(v)
	case float64:
		return decimal.NewFromFloat(v)
	default:
		return decimal.Zero
	}
}
