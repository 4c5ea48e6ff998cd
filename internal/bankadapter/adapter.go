// Package bankadapter implements the per-bank rekening-koran adapters and
// their ordered auto-detector. Every adapter is a value
// implementing the Adapter interface; the Detector holds a stable ordered
// list where more specific adapters precede their generic peers.
package bankadapter

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"recon-engine/internal/domain"
	"recon-engine/internal/numfmt"
)

// Adapter is the contract every bank-specific parser implements.
type Adapter interface {
	Name() string
	Code() string
	Keywords() []string
	Detect(text string) bool
	Parse(ocr *domain.OCRResult) ([]domain.StandardizedTransaction, error)
	ParseFromText(text string) []domain.StandardizedTransaction
}

// ColumnRole names what a table column holds, in the order the bank's
// layout presents it.
type ColumnRole int

const (
	ColSkip ColumnRole = iota
	ColDate
	ColPostingDate
	ColEffectiveDate
	ColDescription
	ColBranch
	ColReference
	ColDebit
	ColCredit
	ColMutasi // single signed amount column; sign inferred from notation/keywords
	ColFlag   // explicit D/C, DB/CR, D/K marker paired with ColAmount
	ColAmount // unsigned amount paired with ColFlag
	ColBalance
	ColTeller
)

var debitIndicators = []string{
	"TARIK", "BAYAR", "TRANSFER KE", "BIAYA", "ADMIN", "DEBET", "DEBIT",
	"PEMBAYARAN", "PAJAK", "PULSA", "LISTRIK", "PDAM", "BPJS", "ATM",
}

var creditIndicators = []string{
	"SETOR", "TERIMA", "TRANSFER DARI", "BUNGA", "KREDIT", "CREDIT",
	"SETORAN", "DEPOSIT", "GAJI", "SALARY", "KLIRING",
}

// GenericAdapter implements Adapter from a declarative per-bank
// configuration, covering the column-layout and sign-convention variance
// across banks without hand-writing twelve bespoke parsers.
type GenericAdapter struct {
	BankName string
	BankCode string
	KeywordList []string
	Columns     []ColumnRole

	AccountNumberRegex *regexp.Regexp
	AccountHolderRegex *regexp.Regexp
	// FallbackLineRegex matches one transaction line in parseFromText, with
	// named groups: date, description, amount, flag, balance.
	FallbackLineRegex *regexp.Regexp
}

func (a *GenericAdapter) Name() string       { return a.BankName }
func (a *GenericAdapter) Code() string       { return a.BankCode }
func (a *GenericAdapter) Keywords() []string { return a.KeywordList }

// Detect reports a case-insensitive substring match against any keyword.
func (a *GenericAdapter) Detect(text string) bool {
	upper := strings.ToUpper(text)
	for _, kw := range a.KeywordList {
		if strings.Contains(upper, strings.ToUpper(kw)) {
			return true
		}
	}
	return false
}

// Parse converts OCR tables into StandardizedTransaction rows. When no
// tables are present it falls back to ParseFromText.
func (a *GenericAdapter) Parse(ocr *domain.OCRResult) ([]domain.StandardizedTransaction, error) {
	accountNumber, accountHolder := a.extractAccountInfo(ocr.RawText)

	var out []domain.StandardizedTransaction
	if len(ocr.StructuredTables) > 0 {
		for _, table := range ocr.StructuredTables {
			for rowIdx, row := range table.Rows {
				if rowIdx == 0 {
					continue // header row
				}
				if len(row.Cells) == 0 {
					continue
				}
				tx, ok := a.parseRow(row.Cells)
				if !ok {
					continue
				}
				tx.BankName = a.BankName
				tx.AccountNumber = accountNumber
				tx.AccountHolder = accountHolder
				out = append(out, tx)
			}
		}
	} else {
		out = a.ParseFromText(ocr.RawText)
		for i := range out {
			out[i].BankName = a.BankName
			out[i].AccountNumber = accountNumber
			out[i].AccountHolder = accountHolder
		}
	}
	return out, nil
}

func (a *GenericAdapter) parseRow(cells []domain.Cell) (domain.StandardizedTransaction, bool) {
	var tx domain.StandardizedTransaction
	var flag string
	var amount decimal.Decimal
	haveDate := false

	for idx, role := range a.Columns {
		text := safeGet(cells, idx)
		switch role {
		case ColDate:
			if t, ok := numfmt.ParseDate(text); ok {
				tx.TransactionDate = t
				haveDate = true
			}
		case ColPostingDate:
			if t, ok := numfmt.ParseDate(text); ok {
				tx.PostingDate = &t
			}
		case ColEffectiveDate:
			if t, ok := numfmt.ParseDate(text); ok {
				tx.EffectiveDate = &t
			}
		case ColDescription:
			tx.Description = strings.TrimSpace(text)
		case ColBranch:
			tx.BranchCode = strings.TrimSpace(text)
		case ColTeller:
			tx.Teller = strings.TrimSpace(text)
		case ColReference:
			tx.ReferenceNumber = strings.TrimSpace(text)
		case ColDebit:
			if d := numfmt.ParseAmount(text); !d.IsZero() {
				tx.Debit = d
			}
		case ColCredit:
			if d := numfmt.ParseAmount(text); !d.IsZero() {
				tx.Credit = d
			}
		case ColMutasi:
			debit, credit := parseSignedAmount(text, tx.Description)
			tx.Debit, tx.Credit = debit, credit
		case ColFlag:
			flag = text
		case ColAmount:
			amount = numfmt.ParseAmount(text)
		case ColBalance:
			tx.Balance = numfmt.ParseAmount(text)
		}
	}

	if flag != "" {
		debit, credit := applyFlag(flag, amount)
		tx.Debit, tx.Credit = debit, credit
	}

	tx.TransactionDate = tx.EffectiveTransactionDate()
	if !haveDate && tx.TransactionDate.IsZero() {
		return tx, false
	}
	if tx.Description == "" && tx.Balance.IsZero() && tx.Debit.IsZero() && tx.Credit.IsZero() {
		return tx, false
	}
	return tx, true
}

// ParseFromText is the per-bank regex fallback used when no structured
// tables are present. Its output is untrusted until the
// progressive validator runs.
func (a *GenericAdapter) ParseFromText(text string) []domain.StandardizedTransaction {
	if a.FallbackLineRegex == nil {
		return nil
	}
	var out []domain.StandardizedTransaction
	for _, line := range strings.Split(text, "\n") {
		m := a.FallbackLineRegex.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		names := a.FallbackLineRegex.SubexpNames()
		fields := map[string]string{}
		for i, n := range names {
			if n != "" && i < len(m) {
				fields[n] = m[i]
			}
		}
		date, ok := numfmt.ParseDate(fields["date"])
		if !ok {
			continue
		}
		desc := strings.TrimSpace(fields["description"])
		debit, credit := parseSignedAmount(fields["amount"], desc)
		if flag, ok := fields["flag"]; ok && flag != "" {
			debit, credit = applyFlag(flag, numfmt.ParseAmount(fields["amount"]))
		}
		out = append(out, domain.StandardizedTransaction{
			TransactionDate: date,
			Description:     desc,
			Debit:           debit,
			Credit:          credit,
			Balance:         numfmt.ParseAmount(fields["balance"]),
			Confidence:      0.6,
		})
	}
	return out
}

func (a *GenericAdapter) extractAccountInfo(text string) (number, holder string) {
	if a.AccountNumberRegex != nil {
		if m := a.AccountNumberRegex.FindStringSubmatch(text); len(m) > 1 {
			number = m[1]
		}
	}
	if a.AccountHolderRegex != nil {
		if m := a.AccountHolderRegex.FindStringSubmatch(text); len(m) > 1 {
			holder = strings.TrimSpace(m[1])
		}
	}
	return number, holder
}

// AccountNumber extracts the account number from a statement's first-page
// text using adapter a's own regex when it implements GenericAdapter,
// falling back to a generic ACCOUNT/REKENING label pattern otherwise.
func AccountNumber(a Adapter, text string) string {
	if g, ok := a.(*GenericAdapter); ok {
		number, _ := g.extractAccountInfo(text)
		return number
	}
	if m := genericAccountNumberRegex.FindStringSubmatch(text); len(m) > 1 {
		return m[1]
	}
	return ""
}

var openingBalanceRegex = regexp.MustCompile(`(?i)(?:SALDO\s*AWAL|OPENING\s*BALANCE|BEGINNING\s*BALANCE)[:\s]*(?:RP\.?)?\s*([\d.,]+)`)

// OpeningBalance extracts the statement's opening balance from its
// first-page text, returning decimal.Zero when no recognizable label is
// present.
func OpeningBalance(text string) decimal.Decimal {
	if m := openingBalanceRegex.FindStringSubmatch(text); len(m) > 1 {
		return numfmt.ParseAmount(m[1])
	}
	return decimal.Zero
}

// safeGet returns cells[idx].Text or "" when idx is out of range, defensive
// against synthetic/partial tables.
func safeGet(cells []domain.Cell, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[idx].Text)
}

// applyFlag splits an unsigned amount into (debit, credit) from an explicit
// D/C-style marker. Unrecognized flags default to credit.
func applyFlag(flag string, amount decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	switch strings.ToUpper(strings.TrimSpace(flag)) {
	case "DB", "DEBIT", "D", "DR":
		return amount, decimal.Zero
	case "CR", "CREDIT", "C", "K", "KREDIT":
		return decimal.Zero, amount
	default:
		return decimal.Zero, amount
	}
}

// parseSignedAmount handles the BCA-style single "mutasi" column: explicit
// CR/DB suffix, parenthesized/negative notation, or keyword inference from
// the transaction description. Ambiguous cases default to credit.
func parseSignedAmount(raw, description string) (debit, credit decimal.Decimal) {
	s := strings.TrimSpace(raw)
	upper := strings.ToUpper(s)

	switch {
	case strings.Contains(upper, "CR") || strings.Contains(s, "+"):
		return decimal.Zero, numfmt.ParseAmount(strings.NewReplacer("CR", "", "cr", "", "+", "").Replace(s))
	case strings.Contains(upper, "DB") || strings.Contains(upper, "DR"):
		return numfmt.ParseAmount(strings.NewReplacer("DB", "", "db", "", "DR", "", "dr", "").Replace(s)), decimal.Zero
	case strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")"):
		return numfmt.ParseAmount(strings.Trim(s, "()")), decimal.Zero
	case strings.HasPrefix(s, "-"):
		return numfmt.ParseAmount(strings.TrimPrefix(s, "-")), decimal.Zero
	}

	amount := numfmt.ParseAmount(s)
	if amount.IsZero() {
		return decimal.Zero, decimal.Zero
	}

	descUpper := strings.ToUpper(description)
	for _, kw := range debitIndicators {
		if strings.Contains(descUpper, kw) {
			return amount, decimal.Zero
		}
	}
	for _, kw := range creditIndicators {
		if strings.Contains(descUpper, kw) {
			return decimal.Zero, amount
		}
	}
	// Ambiguous: default to credit
	return decimal.Zero, amount
}
