package bankadapter

import "regexp"

// NewBcaAdapter builds the generic BCA (regular, non-Syariah) adapter:
// Tanggal | Keterangan | CBG | Mutasi | Saldo, where Mutasi can be signed by
// notation or default to credit.
func NewBcaAdapter() *GenericAdapter {
	return &GenericAdapter{
		BankName: "Bank BCA",
		BankCode: "BCA",
		KeywordList: []string{
			"BANK CENTRAL ASIA",
			"PT BANK CENTRAL ASIA",
			"BCA",
			"KETERANGAN",
			"CBG",
			"MUTASI",
		},
		Columns: []ColumnRole{ColDate, ColDescription, ColBranch, ColMutasi, ColBalance},
		AccountNumberRegex: regexp.MustCompile(`(?i)(?:REKENING|NO\s*REK|ACCOUNT)[:\s]*(\d{10,13})`),
		AccountHolderRegex: regexp.MustCompile(`(?i)(?:NAMA|NAME|PEMILIK)[:\s]*([A-Z\s.&,]+?)(?:\n|REKENING|NO|ALAMAT)`),
		FallbackLineRegex: regexp.MustCompile(
			`^\s*(?P<date>\d{2}[/\-.]\d{2}[/\-.]\d{2,4})\s+(?P<description>.+?)\s+(?P<amount>\(?-?[\d.,]+\)?\s*(?:CR|DB)?)\s+(?P<balance>[\d.,]+)\s*$`),
	}
}

// NewBcaSyariahAdapter builds the generic BCA Syariah adapter, which
// presents explicit Tanggal Efektif / Tanggal Transaksi / Kode Transaksi
// columns and must be tried before the regular BCA adapter.
func NewBcaSyariahAdapter() *GenericAdapter {
	return &GenericAdapter{
		BankName: "BCA Syariah",
		BankCode: "BCA_SYARIAH",
		KeywordList: []string{
			"BCA SYARIAH",
			"PT BANK BCA SYARIAH",
			"TANGGAL EFEKTIF",
			"TANGGAL TRANSAKSI",
			"KODE TRANSAKSI",
			"KETERANGAN TAMBAHAN",
			"KODE CABANG",
		},
		Columns: []ColumnRole{ColEffectiveDate, ColDate, ColReference, ColDescription, ColBranch, ColDebit, ColCredit, ColBalance},
		AccountNumberRegex: regexp.MustCompile(`(?i)(?:REKENING|NO\s*REK|ACCOUNT)[:\s]*(\d{10,13})`),
		AccountHolderRegex: regexp.MustCompile(`(?i)(?:NAMA|NAME|PEMILIK)[:\s]*([A-Z\s.&,]+?)(?:\n|REKENING|NO|ALAMAT)`),
		FallbackLineRegex: regexp.MustCompile(
			`^\s*(?P<date>\d{2}[/\-.]\d{2}[/\-.]\d{2,4})\s+(?P<description>.+?)\s+(?P<amount>[\d.,()\-]+)\s+(?P<balance>[\d.,]+)\s*$`),
	}
}
