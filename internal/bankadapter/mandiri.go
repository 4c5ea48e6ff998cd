package bankadapter

import "regexp"

// NewMandiriV1Adapter builds the generic Bank Mandiri adapter (legacy
// layout).
func NewMandiriV1Adapter() *GenericAdapter {
	return &GenericAdapter{
		BankName: "Bank Mandiri",
		BankCode: "MANDIRI_V1",
		KeywordList: []string{
			"PT BANK MANDIRI",
			"BANK MANDIRI (PERSERO)",
			"POSTING DATE",
			"REMARK",
		},
		Columns: []ColumnRole{ColDate, ColDescription, ColBranch, ColMutasi, ColBalance},
		AccountNumberRegex: regexp.MustCompile(`(?i)(?:REKENING|ACCOUNT)[:\s]*(\d{10,16})`),
		AccountHolderRegex: regexp.MustCompile(`(?i)(?:NAMA|NAME)[:\s]*([A-Z\s.&,]+?)(?:\n|REKENING|NO|ALAMAT)`),
		FallbackLineRegex: regexp.MustCompile(
			`^\s*(?P<date>\d{2}[/\-.]\d{2}[/\-.]\d{2,4})\s+(?P<description>.+?)\s+(?P<amount>[\d.,()\-]+)\s+(?P<balance>[\d.,]+)\s*$`),
	}
}

// NewMandiriV2Adapter builds the generic Bank Mandiri adapter for the
// revised e-statement layout, with KET. KODE TRANSAKSI/JENIS TRANS and the
// "NOMER REKENING" typo preserved intentionally from the original format.
func NewMandiriV2Adapter() *GenericAdapter {
	return &GenericAdapter{
		BankName: "Bank Mandiri",
		BankCode: "MANDIRI_V2",
		KeywordList: []string{
			"PT BANK MANDIRI",
			"BANK MANDIRI (PERSERO)",
			"KET. KODE TRANSAKSI",
			"JENIS TRANS",
			"NOMER REKENING",
		},
		Columns: []ColumnRole{ColDate, ColReference, ColDescription, ColDebit, ColCredit, ColBalance},
		AccountNumberRegex: regexp.MustCompile(`(?i)NOMER?\s*REKENING[:\s]*(\d{10,16})`),
		AccountHolderRegex: regexp.MustCompile(`(?i)(?:NAMA|NAME)[:\s]*([A-Z\s.&,]+?)(?:\n|REKENING|NO|ALAMAT)`),
		FallbackLineRegex: regexp.MustCompile(
			`^\s*(?P<date>\d{2}[/\-.]\d{2}[/\-.]\d{2,4})\s+(?P<description>.+?)\s+(?P<amount>[\d.,()\-]+)\s+(?P<balance>[\d.,]+)\s*$`),
	}
}
