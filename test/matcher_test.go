package test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"recon-engine/internal/domain"
	"recon-engine/internal/matcher"
)

func invoiceFixture(number string, amount float64, date time.Time, vendor string) domain.TaxInvoice {
	return domain.TaxInvoice{
		ID:            "inv-" + number,
		InvoiceNumber: number,
		InvoiceDate:   date,
		VendorName:    vendor,
		TotalAmount:   decimal.NewFromFloat(amount),
	}
}

func transactionFixture(ref string, amount float64, date time.Time, description string) domain.BankTransaction {
	return domain.BankTransaction{
		ID:              "tx-" + ref,
		ReferenceNumber: ref,
		TransactionDate: date,
		Description:     description,
		Credit:          decimal.NewFromFloat(amount),
	}
}

func TestScore_ExactMatchIsPerfect(t *testing.T) {
	now := time.Now()
	inv := invoiceFixture("INV/001/2026", 1000000, now, "PT MAJU JAYA")
	tx := transactionFixture("INV/001/2026", 1000000, now, "TRANSFER PT MAJU JAYA INV/001/2026")

	c := matcher.Score(inv, tx)

	assert.Equal(t, 1.0, c.TotalScore)
	assert.True(t, c.AmountDelta.IsZero())
	assert.Equal(t, 0, c.DateDeltaDays)
}

func TestScore_DegradesWithAmountDrift(t *testing.T) {
	now := time.Now()
	inv := invoiceFixture("INV/002/2026", 1000000, now, "PT MAJU JAYA")
	tx := transactionFixture("INV/002/2026", 850000, now, "PT MAJU JAYA")

	c := matcher.Score(inv, tx)

	assert.Less(t, c.SubScores.Amount, 1.0)
	assert.Greater(t, c.SubScores.Amount, 0.0)
}

func TestScore_UnrelatedVendorScoresLow(t *testing.T) {
	now := time.Now()
	inv := invoiceFixture("INV/003/2026", 500000, now, "PT MAJU JAYA")
	tx := transactionFixture("REF999", 500000, now.AddDate(0, 0, 30), "SETORAN TUNAI")

	c := matcher.Score(inv, tx)

	assert.Less(t, c.TotalScore, 0.6)
}

func TestAutoMatch_GreedyAssignsBestFirst(t *testing.T) {
	now := time.Now()
	invoices := []domain.TaxInvoice{
		invoiceFixture("A", 100000, now, "VENDOR A"),
		invoiceFixture("B", 200000, now, "VENDOR B"),
	}
	transactions := []domain.BankTransaction{
		transactionFixture("A", 100000, now, "VENDOR A"),
		transactionFixture("B", 200000, now, "VENDOR B"),
		transactionFixture("C", 999999, now, "UNRELATED"),
	}

	matches := matcher.AutoMatch(invoices, transactions, 0.70)

	assert.Len(t, matches, 2)
	seen := map[string]bool{}
	for _, m := range matches {
		seen[m.Invoice.InvoiceNumber] = true
	}
	assert.True(t, seen["A"])
	assert.True(t, seen["B"])
}

func TestAutoMatch_ConsumesTransactionOnce(t *testing.T) {
	now := time.Now()
	invoices := []domain.TaxInvoice{
		invoiceFixture("A", 100000, now, "VENDOR A"),
		invoiceFixture("A2", 100000, now, "VENDOR A"),
	}
	transactions := []domain.BankTransaction{
		transactionFixture("A", 100000, now, "VENDOR A"),
	}

	matches := matcher.AutoMatch(invoices, transactions, 0.70)

	assert.Len(t, matches, 1)
}

func TestAutoMatch_RespectsMinConfidence(t *testing.T) {
	now := time.Now()
	invoices := []domain.TaxInvoice{invoiceFixture("A", 100000, now, "VENDOR A")}
	transactions := []domain.BankTransaction{transactionFixture("Z", 5000, now.AddDate(0, 0, 90), "NO RELATION")}

	matches := matcher.AutoMatch(invoices, transactions, 0.70)

	assert.Empty(t, matches)
}

func TestSuggestMatches_OrdersByScoreDescending(t *testing.T) {
	now := time.Now()
	inv := invoiceFixture("INV/010", 500000, now, "PT SUMBER REZEKI")
	transactions := []domain.BankTransaction{
		transactionFixture("X1", 500000, now.AddDate(0, 0, 20), "UNKNOWN"),
		transactionFixture("INV/010", 500000, now, "PT SUMBER REZEKI INV/010"),
	}

	suggestions := matcher.SuggestMatches(inv, transactions, 5)

	assert.Len(t, suggestions, 2)
	assert.GreaterOrEqual(t, suggestions[0].TotalScore, suggestions[1].TotalScore)
	assert.Equal(t, "INV/010", suggestions[0].Transaction.ReferenceNumber)
}

func TestSuggestMatches_RespectsK(t *testing.T) {
	now := time.Now()
	inv := invoiceFixture("INV/011", 500000, now, "PT SUMBER REZEKI")
	var transactions []domain.BankTransaction
	for i := 0; i < 10; i++ {
		transactions = append(transactions, transactionFixture("X", 500000, now, "PT SUMBER REZEKI"))
	}

	suggestions := matcher.SuggestMatches(inv, transactions, 3)

	assert.Len(t, suggestions, 3)
}
