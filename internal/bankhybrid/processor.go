// Package bankhybrid implements the hybrid bank-statement processor:
// rule-based parsing of every row, chunked progressive validation
// against saldo continuity, and a selective LLM fallback only for chunks
// that fail validation.
package bankhybrid

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"recon-engine/internal/bankadapter"
	"recon-engine/internal/domain"
	"recon-engine/internal/numfmt"
	"recon-engine/internal/smartmapper"
	"recon-engine/pkg/logger"
)

// Config tunes the thresholds the processor applies.
type Config struct {
	ChunkSize           int
	SaldoTolerance      decimal.Decimal
	ConfidenceThreshold float64
}

// DefaultConfig holds the documented production defaults.
func DefaultConfig() Config {
	return Config{
		ChunkSize:           50,
		SaldoTolerance:      decimal.NewFromFloat(0.01),
		ConfidenceThreshold: 0.90,
	}
}

// ParsedTransaction is one rule-based-parsed row with a per-row confidence
// score used to gate the chunk-level validator.
type ParsedTransaction struct {
	domain.StandardizedTransaction
	HasDate        bool
	HasDescription bool
	HasAmount      bool
	HasBalance     bool
}

// Chunk is a contiguous window of parsed transactions treated as one
// validation unit, carrying the balance it expects to start from.
type Chunk struct {
	Index            int
	StartingBalance  decimal.Decimal
	Transactions     []ParsedTransaction
	ValidationPassed bool
	UsedLLM          bool
	Unresolved       bool
}

// Metrics reports the hybrid run's cost-saving profile.
type Metrics struct {
	RuleBasedCount        int     `json:"rule_based_count"`
	LLMCount              int     `json:"llm_count"`
	ChunksWithGPT         int     `json:"chunks_with_gpt"`
	ChunksTotal           int     `json:"chunks_total"`
	TokenSavingsPercent   float64 `json:"token_savings_percent"`
	ProcessingTimeSeconds float64 `json:"processing_time_seconds"`
}

// Metadata is the account-level info extracted from the first page.
type Metadata struct {
	BankName       string
	AccountNumber  string
	OpeningBalance decimal.Decimal
}

// Result is the hybrid processor's final output.
type Result struct {
	Metadata     Metadata
	Transactions []domain.StandardizedTransaction
	Chunks       []Chunk
	Confidence   float64
	Metrics      Metrics
}

// Processor runs the rule-based parse + progressive validation + selective
// LLM fallback pipeline for one rekening-koran file.
type Processor struct {
	cfg    Config
	mapper smartmapper.Mapper
}

func NewProcessor(cfg Config, mapper smartmapper.Mapper) *Processor {
	return &Processor{cfg: cfg, mapper: mapper}
}

// Process runs the full hybrid pipeline for one bank statement's OCR
// result, using adapter to shape rows into StandardizedTransaction and the
// opening balance (when known) as the first chunk's starting balance.
func (p *Processor) Process(ctx context.Context, ocr *domain.OCRResult, adapter bankadapter.Adapter) (*Result, error) {
	start := time.Now()

	meta := extractMetadata(ocr.RawText, adapter)

	raw, err := adapter.Parse(ocr)
	if err != nil {
		return nil, err
	}
	parsed := scoreTransactions(raw)

	chunks := chunkTransactions(parsed, p.cfg.ChunkSize, meta.OpeningBalance)

	result := &Result{Metadata: meta}
	var prevChunkEnd = meta.OpeningBalance
	havePrevEnd := !meta.OpeningBalance.IsZero()

	for i := range chunks {
		chunk := &chunks[i]
		chunk.ValidationPassed = validateChunk(*chunk, p.cfg, prevChunkEnd, havePrevEnd)

		if !chunk.ValidationPassed {
			logger.GetLogger().WithComponent("bankhybrid").WithField("chunk", chunk.Index).Info("chunk failed validation, attempting LLM fallback")
			if err := p.applyLLMFallback(ctx, chunk); err != nil {
				logger.GetLogger().WithComponent("bankhybrid").WithError(err).WithField("chunk", chunk.Index).Warn("LLM fallback failed, keeping rule-based content")
				chunk.Unresolved = true
			} else {
				chunk.UsedLLM = true
			}
		}

		if len(chunk.Transactions) > 0 {
			last := chunk.Transactions[len(chunk.Transactions)-1]
			prevChunkEnd = last.Balance
			havePrevEnd = true
		}

		result.Chunks = append(result.Chunks, *chunk)
		for _, tx := range chunk.Transactions {
			result.Transactions = append(result.Transactions, tx.StandardizedTransaction)
		}
	}

	result.Metrics = computeMetrics(result.Chunks, start)
	result.Confidence = overallConfidence(result.Chunks)
	return result, nil
}

func extractMetadata(text string, adapter bankadapter.Adapter) Metadata {
	return Metadata{
		BankName:       adapter.Name(),
		AccountNumber:  bankadapter.AccountNumber(adapter, text),
		OpeningBalance: bankadapter.OpeningBalance(text),
	}
}

// scoreTransactions attaches the rule-based confidence weights to each
// parsed row.
func scoreTransactions(txs []domain.StandardizedTransaction) []ParsedTransaction {
	out := make([]ParsedTransaction, len(txs))
	for i, tx := range txs {
		pt := ParsedTransaction{StandardizedTransaction: tx}
		pt.HasDate = !tx.TransactionDate.IsZero()
		pt.HasDescription = tx.Description != ""
		pt.HasAmount = !tx.Debit.IsZero() || !tx.Credit.IsZero()
		pt.HasBalance = !tx.Balance.IsZero()

		var confidence float64
		if pt.HasDate {
			confidence += 0.25
		}
		if pt.HasDescription {
			confidence += 0.15
		}
		if pt.HasAmount {
			confidence += 0.30
		}
		if pt.HasBalance {
			confidence += 0.30
		}
		pt.Confidence = confidence
		out[i] = pt
	}
	return out
}

func chunkTransactions(txs []ParsedTransaction, size int, openingBalance decimal.Decimal) []Chunk {
	if size <= 0 {
		size = 50
	}
	var chunks []Chunk
	startBalance := openingBalance
	for i := 0; i < len(txs); i += size {
		end := i + size
		if end > len(txs) {
			end = len(txs)
		}
		window := txs[i:end]
		chunks = append(chunks, Chunk{
			Index:           len(chunks),
			StartingBalance: startBalance,
			Transactions:    window,
		})
		if len(window) > 0 {
			startBalance = window[len(window)-1].Balance
		}
	}
	return chunks
}

// validateChunk applies the four chunk-acceptance checks. A chunk fails if
// any per-transaction saldo-continuity check fails, any required field is
// missing, inter-chunk continuity breaks, or the average confidence is
// below threshold.
func validateChunk(chunk Chunk, cfg Config, prevChunkEnd decimal.Decimal, havePrevEnd bool) bool {
	if len(chunk.Transactions) == 0 {
		return true
	}

	if chunk.Index > 0 && havePrevEnd {
		diff := chunk.StartingBalance.Sub(prevChunkEnd).Abs()
		if diff.GreaterThan(cfg.SaldoTolerance) {
			return false
		}
	}

	prevBalance := chunk.StartingBalance
	havePrev := chunk.Index > 0 || !chunk.StartingBalance.IsZero()
	var totalConfidence float64

	for _, tx := range chunk.Transactions {
		totalConfidence += tx.Confidence

		if !tx.HasDate || !tx.HasDescription || !tx.HasBalance {
			return false
		}

		if havePrev {
			expected := prevBalance.Add(tx.Credit).Sub(tx.Debit)
			if expected.Sub(tx.Balance).Abs().GreaterThan(cfg.SaldoTolerance) {
				return false
			}
		}
		prevBalance = tx.Balance
		havePrev = true
	}

	avg := totalConfidence / float64(len(chunk.Transactions))
	return avg >= cfg.ConfidenceThreshold
}

// applyLLMFallback sends the chunk's transactions to the Smart Mapper as
// raw text with the starting balance as context, and replaces the chunk's
// transactions with the mapper's output on success.
func (p *Processor) applyLLMFallback(ctx context.Context, chunk *Chunk) error {
	raw := renderChunkText(*chunk)
	fields, err := p.mapper.ExtractFromText(ctx, raw, "rekening_koran_chunk", map[string]interface{}{
		"starting_balance": chunk.StartingBalance.String(),
	})
	if err != nil {
		return err
	}

	txs, err := decodeMappedTransactions(fields)
	if err != nil {
		return err
	}
	for i := range txs {
		txs[i].Confidence = 1.0
	}
	chunk.Transactions = txs
	chunk.ValidationPassed = true
	return nil
}

func computeMetrics(chunks []Chunk, start time.Time) Metrics {
	m := Metrics{ChunksTotal: len(chunks)}
	for _, c := range chunks {
		if c.UsedLLM {
			m.ChunksWithGPT++
			m.LLMCount += len(c.Transactions)
		} else {
			m.RuleBasedCount += len(c.Transactions)
		}
	}
	total := m.RuleBasedCount + m.LLMCount
	if total > 0 {
		m.TokenSavingsPercent = float64(m.RuleBasedCount) / float64(total) * 100
	}
	m.ProcessingTimeSeconds = time.Since(start).Seconds()
	return m
}

// overallConfidence is 0.6·avgTxnConfidence + 0.4·validationPassRate,
// step 6.
func overallConfidence(chunks []Chunk) float64 {
	var totalConfidence float64
	var count int
	var passed int

	for _, c := range chunks {
		if c.ValidationPassed && !c.Unresolved {
			passed++
		}
		for _, tx := range c.Transactions {
			totalConfidence += tx.Confidence
			count++
		}
	}
	if count == 0 || len(chunks) == 0 {
		return 0
	}
	avgTxn := totalConfidence / float64(count)
	passRate := float64(passed) / float64(len(chunks))
	return 0.6*avgTxn + 0.4*passRate
}

func renderChunkText(chunk Chunk) string {
	text := ""
	for _, tx := range chunk.Transactions {
		text += tx.TransactionDate.Format("2006-01-02") + " | " + tx.Description + " | debit=" +
			tx.Debit.String() + " credit=" + tx.Credit.String() + " balance=" + tx.Balance.String() + "\n"
	}
	return text
}

// decodeMappedTransactions parses the Smart Mapper's
// {transactions:[{tanggal,keterangan,debet,kredit,saldo,...}]} shape
// into ParsedTransaction rows.
func decodeMappedTransactions(fields map[string]interface{}) ([]ParsedTransaction, error) {
	raw, ok := fields["transactions"].([]interface{})
	if !ok {
		return nil, errEmptyMapperOutput
	}
	out := make([]ParsedTransaction, 0, len(raw))
	for _, item := range raw {
		row, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		date, _ := numfmt.ParseDate(stringField(row, "tanggal"))
		pt := ParsedTransaction{
			StandardizedTransaction: domain.StandardizedTransaction{
				TransactionDate: date,
				Description:     stringField(row, "keterangan"),
				Debit:           numfmt.ParseAmount(stringField(row, "debet")),
				Credit:          numfmt.ParseAmount(stringField(row, "kredit")),
				Balance:         numfmt.ParseAmount(stringField(row, "saldo")),
			},
			HasDate:        true,
			HasDescription: true,
			HasAmount:      true,
			HasBalance:     true,
		}
		out = append(out, pt)
	}
	if len(out) == 0 {
		return nil, errEmptyMapperOutput
	}
	return out, nil
}

func stringField(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

var errEmptyMapperOutput = emptyMapperOutputError{}

type emptyMapperOutputError struct{}

func (emptyMapperOutputError) Error() string { return "bankhybrid: mapper returned no transactions" }
