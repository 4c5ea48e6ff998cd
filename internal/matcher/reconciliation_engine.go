// Package matcher scores and matches TaxInvoice/BankTransaction pairs for
// the Reconciliation Engine.
package matcher

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"recon-engine/internal/domain"
)

// Candidate is a scored (invoice, transaction) pair, not yet persisted.
type Candidate struct {
	Invoice     domain.TaxInvoice
	Transaction domain.BankTransaction
	SubScores   domain.SubScores
	TotalScore  float64
	AmountDelta decimal.Decimal
	DateDeltaDays int
}

// Score evaluates one candidate pair weighted sub-scores.
func Score(inv domain.TaxInvoice, tx domain.BankTransaction) Candidate {
	amount := amountScore(inv.TotalAmount, tx.Credit)
	date := dateScore(inv.InvoiceDate, tx.TransactionDate)
	vendor := vendorScore(inv.VendorName, tx.Description)
	reference := referenceScore(inv.InvoiceNumber, tx.ReferenceNumber, tx.Description)

	total := 0.50*amount + 0.25*date + 0.15*vendor + 0.10*reference

	return Candidate{
		Invoice:     inv,
		Transaction: tx,
		SubScores: domain.SubScores{
			Amount:    amount,
			Date:      date,
			Vendor:    vendor,
			Reference: reference,
		},
		TotalScore:    total,
		AmountDelta:   tx.Credit.Sub(inv.TotalAmount).Abs(),
		DateDeltaDays: dayDelta(inv.InvoiceDate, tx.TransactionDate),
	}
}

func amountScore(invoiceAmount, txAmount decimal.Decimal) float64 {
	if invoiceAmount.IsZero() {
		if txAmount.IsZero() {
			return 1.0
		}
		return 0
	}
	delta := txAmount.Sub(invoiceAmount).Abs()
	ratio, _ := delta.Div(invoiceAmount).Float64()

	switch {
	case ratio == 0:
		return 1.0
	case ratio <= 0.01:
		return 0.95
	case ratio <= 0.05:
		return 0.85
	case ratio <= 0.10:
		return 0.70
	default:
		return math.Max(0, 0.70-2*(ratio-0.10))
	}
}

func dayDelta(a, b time.Time) int {
	d := int(b.Sub(a).Hours() / 24)
	if d < 0 {
		d = -d
	}
	return d
}

func dateScore(invoiceDate, txDate time.Time) float64 {
	d := dayDelta(invoiceDate, txDate)
	switch {
	case d == 0:
		return 1.0
	case d <= 1:
		return 0.95
	case d <= 3:
		return 0.85
	case d <= 7:
		return 0.70
	default:
		return math.Max(0, 0.70-0.05*float64(d-7))
	}
}

func vendorScore(vendorName, description string) float64 {
	vendor := strings.ToUpper(strings.TrimSpace(vendorName))
	desc := strings.ToUpper(description)
	if vendor == "" {
		return 0
	}
	if strings.Contains(desc, vendor) {
		return 1.0
	}
	return lcsRatio(vendor, desc)
}

func referenceScore(invoiceNumber, reference, description string) float64 {
	number := strings.ToUpper(strings.TrimSpace(invoiceNumber))
	ref := strings.ToUpper(reference)
	desc := strings.ToUpper(description)
	if number == "" {
		return 0
	}
	if strings.Contains(ref, number) {
		return 1.0
	}
	if strings.Contains(desc, number) {
		return 0.8
	}
	for _, part := range splitInvoiceNumber(number) {
		if len(part) >= 3 && (strings.Contains(ref, part) || strings.Contains(desc, part)) {
			return 0.5
		}
	}
	return 0
}

func splitInvoiceNumber(number string) []string {
	return strings.FieldsFunc(number, func(r rune) bool {
		return r == '.' || r == '-' || r == '/' || r == ' '
	})
}

// lcsRatio is the longest-common-subsequence length over the longer string's
// length, used as vendorScore's fallback when the vendor name does not
// appear verbatim in the transaction description.
func lcsRatio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	n, m := len(a), len(b)
	prev := make([]int, m+1)
	curr := make([]int, m+1)
	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	longest := n
	if m > longest {
		longest = m
	}
	return float64(prev[m]) / float64(longest)
}

// AutoMatch runs a greedy per-invoice first-best-match pass: invoices are
// iterated in their declared order, each one takes the highest-scoring
// unmatched transaction clearing minConfidence, and a transaction consumed
// by a match is unavailable to later invoices. This is a deliberate,
// non-optimal trade-off against an assignment-problem solver.
func AutoMatch(invoices []domain.TaxInvoice, transactions []domain.BankTransaction, minConfidence float64) []Candidate {
	available := make([]bool, len(transactions))
	for i := range available {
		available[i] = true
	}

	var matches []Candidate
	for _, inv := range invoices {
		bestIdx := -1
		var best Candidate
		for i, tx := range transactions {
			if !available[i] {
				continue
			}
			c := Score(inv, tx)
			if c.TotalScore < minConfidence {
				continue
			}
			if bestIdx == -1 || c.TotalScore > best.TotalScore {
				bestIdx = i
				best = c
			}
		}
		if bestIdx != -1 {
			available[bestIdx] = false
			matches = append(matches, best)
		}
	}
	return matches
}

// SuggestMatches returns the top-k scored candidates for one invoice against
// a pool of transactions, highest score first.
func SuggestMatches(invoice domain.TaxInvoice, transactions []domain.BankTransaction, k int) []Candidate {
	candidates := make([]Candidate, 0, len(transactions))
	for _, tx := range transactions {
		candidates = append(candidates, Score(invoice, tx))
	}
	sortCandidatesDesc(candidates)
	if k > 0 && len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates
}

func sortCandidatesDesc(c []Candidate) {
	for i := 1; i < len(c); i++ {
		for j := i; j > 0 && c[j].TotalScore > c[j-1].TotalScore; j-- {
			c[j], c[j-1] = c[j-1], c[j]
		}
	}
}
