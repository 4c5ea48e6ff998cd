package test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"recon-engine/internal/bankadapter"
	"recon-engine/internal/docparser"
	"recon-engine/internal/domain"
	"recon-engine/internal/numfmt"
)

func TestParseAmount_IndonesianSeparators(t *testing.T) {
	got := numfmt.ParseAmount("1.000.000,50")
	assert.True(t, got.Equal(decimal.RequireFromString("1000000.50")))
}

func TestParseAmount_USSeparators(t *testing.T) {
	got := numfmt.ParseAmount("1,000,000.50")
	assert.True(t, got.Equal(decimal.RequireFromString("1000000.50")))
}

func TestParseAmount_Parenthesized(t *testing.T) {
	got := numfmt.ParseAmount("(250.000,00)")
	assert.True(t, got.Equal(decimal.RequireFromString("-250000")))
}

func TestParseAmount_RupiahPrefix(t *testing.T) {
	got := numfmt.ParseAmount("Rp 75.000")
	assert.True(t, got.Equal(decimal.RequireFromString("75000")))
}

func TestParseAmount_Unparseable(t *testing.T) {
	got := numfmt.ParseAmount("tidak ada")
	assert.True(t, got.IsZero())
}

func TestParseDate_IndonesianMonthName(t *testing.T) {
	d, ok := numfmt.ParseDate("15 Januari 2024")
	assert.True(t, ok)
	assert.Equal(t, 2024, d.Year())
	assert.Equal(t, 1, int(d.Month()))
	assert.Equal(t, 15, d.Day())
}

func TestParseDate_SlashFormat(t *testing.T) {
	d, ok := numfmt.ParseDate("17/08/2024")
	assert.True(t, ok)
	assert.Equal(t, 2024, d.Year())
}

func TestParseDate_Invalid(t *testing.T) {
	_, ok := numfmt.ParseDate("not a date")
	assert.False(t, ok)
}

func TestRegistry_ResolveKnownType(t *testing.T) {
	registry := docparser.NewRegistry()
	parser, resolved := registry.Resolve(docparser.TypePph21)
	assert.NotNil(t, parser)
	assert.Equal(t, docparser.TypePph21, resolved)
}

func TestRegistry_ResolveUnknownTypeFallsBackToFakturPajak(t *testing.T) {
	registry := docparser.NewRegistry()
	parser, resolved := registry.Resolve("some_unregistered_type")
	assert.NotNil(t, parser)
	assert.Equal(t, docparser.TypeFakturPajak, resolved)
}

func TestRawTextParser_BuildsEnvelopeStats(t *testing.T) {
	parser := &docparser.RawTextParser{}
	ocr := &domain.OCRResult{
		RawText:    "line one\n\nline two three\n",
		EngineUsed: "local",
	}

	env, err := parser.Parse(ocr)

	assert.NoError(t, err)
	assert.Equal(t, 2, env.Stats.LineCount)
	assert.Equal(t, 4, env.Stats.WordCount)
	assert.Equal(t, "local", env.ProcessingInfo["engine_used"])
}

func TestIsBankStatement(t *testing.T) {
	assert.True(t, docparser.IsBankStatement(docparser.TypeRekeningKoran))
	assert.False(t, docparser.IsBankStatement(docparser.TypeInvoice))
}

func TestDetector_DetectsBcaFromKeywords(t *testing.T) {
	detector := bankadapter.NewDetector()
	text := "PT BANK CENTRAL ASIA TBK\nTanggal Keterangan CBG Mutasi Saldo"

	adapter, err := detector.Detect(text)

	assert.NoError(t, err)
	assert.Equal(t, "BCA", adapter.Code())
}

func TestDetector_ReturnsErrorWhenNoAdapterMatches(t *testing.T) {
	detector := bankadapter.NewDetector()

	_, err := detector.Detect("this text matches no known bank statement layout at all")

	assert.Error(t, err)
}

func TestBcaAdapter_ParseFromTextExtractsRows(t *testing.T) {
	adapter := bankadapter.NewBcaAdapter()
	text := "01/08/24 TRANSFER DARI PT MAJU JAYA 1.000.000,00 5.000.000,00\n"

	rows := adapter.ParseFromText(text)

	if assert.Len(t, rows, 1) {
		assert.True(t, rows[0].Credit.GreaterThan(decimal.Zero))
	}
}
