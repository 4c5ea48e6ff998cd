package bankadapter

import "regexp"

var genericAccountNumberRegex = regexp.MustCompile(`(?i)(?:ACCOUNT|REKENING|NO\s*REK)[:\s]*(\d{10,16})`)
var genericAccountHolderRegex = regexp.MustCompile(`(?i)(?:NAME|NAMA|ACCOUNT\s*HOLDER)[:\s]*([A-Z\s.&,]+?)(?:\n|ACCOUNT|REKENING|ADDRESS|ALAMAT)`)
var genericFallbackLine = regexp.MustCompile(
	`^\s*(?P<date>\d{2}[/\-.]\d{2}[/\-.]\d{2,4})\s+(?P<description>.+?)\s+(?P<amount>[\d.,()\-]+)\s+(?P<balance>[\d.,]+)\s*$`)

// NewCimbNiagaAdapter builds the generic CIMB Niaga adapter, recognizing two
// layout variants (POST DATE/EFF DATE vs TGL. TXN/TGL. VALUTA); the generic
// column set below covers the more detailed of the two.
func NewCimbNiagaAdapter() *GenericAdapter {
	return &GenericAdapter{
		BankName: "CIMB Niaga",
		BankCode: "CIMB_NIAGA",
		KeywordList: []string{
			"CIMB NIAGA",
			"PT BANK CIMB NIAGA",
			"POST DATE",
			"EFF DATE",
			"TRANSACTION REF NO",
			"TGL. TXN",
			"TXN. DATE",
			"TGL. VALUTA",
		},
		Columns:            []ColumnRole{ColPostingDate, ColEffectiveDate, ColReference, ColDescription, ColDebit, ColCredit, ColBalance},
		AccountNumberRegex: genericAccountNumberRegex,
		AccountHolderRegex: genericAccountHolderRegex,
		FallbackLineRegex:  genericFallbackLine,
	}
}

// NewMufgAdapter builds the generic MUFG Bank adapter.
func NewMufgAdapter() *GenericAdapter {
	return &GenericAdapter{
		BankName: "MUFG Bank",
		BankCode: "MUFG",
		KeywordList: []string{
			"MUFG BANK",
			"MITSUBISHI UFJ",
			"BOOKING DATE",
			"VALUE DATE",
			"CUSTOMER REFERENCE",
			"BANK REFERENCE",
		},
		Columns:            []ColumnRole{ColPostingDate, ColEffectiveDate, ColReference, ColDescription, ColDebit, ColCredit, ColBalance},
		AccountNumberRegex: genericAccountNumberRegex,
		AccountHolderRegex: genericAccountHolderRegex,
		FallbackLineRegex:  genericFallbackLine,
	}
}

// NewPermataAdapter builds the generic Bank Permata adapter.
func NewPermataAdapter() *GenericAdapter {
	return &GenericAdapter{
		BankName: "Permata Bank",
		BankCode: "PERMATA",
		KeywordList: []string{
			"BANK PERMATA",
			"PERMATA BANK",
			"PT BANK PERMATA",
			"POST DATE",
			"EFF DATE",
			"TRANSACTION CODE",
		},
		Columns:            []ColumnRole{ColPostingDate, ColEffectiveDate, ColReference, ColDescription, ColDebit, ColCredit, ColBalance},
		AccountNumberRegex: genericAccountNumberRegex,
		AccountHolderRegex: genericAccountHolderRegex,
		FallbackLineRegex:  genericFallbackLine,
	}
}

// NewBriAdapter builds the generic Bank BRI adapter.
func NewBriAdapter() *GenericAdapter {
	return &GenericAdapter{
		BankName: "Bank BRI",
		BankCode: "BRI",
		KeywordList: []string{
			"BANK RAKYAT INDONESIA",
			"PT BANK BRI",
			"PT. BANK BRI",
			"TANGGAL TRANSAKSI",
			"URAIAN TRANSAKSI",
			"TELLER",
		},
		Columns:            []ColumnRole{ColDate, ColDescription, ColTeller, ColDebit, ColCredit, ColBalance},
		AccountNumberRegex: genericAccountNumberRegex,
		AccountHolderRegex: genericAccountHolderRegex,
		FallbackLineRegex:  genericFallbackLine,
	}
}

// NewOcbcAdapter builds the generic OCBC NISP adapter.
func NewOcbcAdapter() *GenericAdapter {
	return &GenericAdapter{
		BankName: "OCBC Bank",
		BankCode: "OCBC",
		KeywordList: []string{
			"OCBC BANK",
			"PT BANK OCBC",
			"OCBC NISP",
			"TGL TRANS",
			"TRANS DATE",
			"TGL VALUTA",
			"VALUE DATE",
		},
		Columns:            []ColumnRole{ColDate, ColEffectiveDate, ColDescription, ColDebit, ColCredit, ColBalance},
		AccountNumberRegex: genericAccountNumberRegex,
		AccountHolderRegex: genericAccountHolderRegex,
		FallbackLineRegex:  genericFallbackLine,
	}
}

// NewBsiSyariahAdapter builds the generic Bank Syariah Indonesia adapter,
// which carries an explicit D/K (debit/kredit) flag alongside a transaction
// timestamp and ID.
func NewBsiSyariahAdapter() *GenericAdapter {
	return &GenericAdapter{
		BankName: "Bank Syariah Indonesia",
		BankCode: "BSI_SYARIAH",
		KeywordList: []string{
			"BANK SYARIAH INDONESIA",
			"BSI BANK SYARIAH",
			"BSI SYARIAH",
			"PT BSI",
			"PT. BSI",
			"TRX TIME",
			"TRXID",
			"TRX ID",
			"D/K",
		},
		Columns:            []ColumnRole{ColDate, ColReference, ColDescription, ColAmount, ColFlag, ColBalance},
		AccountNumberRegex: genericAccountNumberRegex,
		AccountHolderRegex: genericAccountHolderRegex,
		FallbackLineRegex: regexp.MustCompile(
			`^\s*(?P<date>\d{2}[/\-.]\d{2}[/\-.]\d{2,4})\s+(?P<description>.+?)\s+(?P<amount>[\d.,]+)\s+(?P<flag>D|K)\s+(?P<balance>[\d.,]+)\s*$`),
	}
}
