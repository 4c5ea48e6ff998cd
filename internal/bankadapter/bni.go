package bankadapter

import "regexp"

// NewBniV1Adapter builds the generic Bank BNI adapter (TGL TRANS / URAIAN /
// separate DEBET-KREDIT columns layout).
func NewBniV1Adapter() *GenericAdapter {
	return &GenericAdapter{
		BankName: "Bank BNI",
		BankCode: "BNI_V1",
		KeywordList: []string{
			"BANK NEGARA INDONESIA",
			"PT BANK BNI",
			"TGL TRANS",
			"URAIAN",
			"DEBET",
			"KREDIT",
		},
		Columns: []ColumnRole{ColDate, ColDescription, ColDebit, ColCredit, ColBalance},
		AccountNumberRegex: regexp.MustCompile(`(?i)(?:ACCOUNT|REKENING)[:\s]*(\d{10,16})`),
		AccountHolderRegex: regexp.MustCompile(`(?i)(?:NAME|NAMA)[:\s]*([A-Z\s.]+?)(?:\n|ACCOUNT|ADDRESS)`),
		FallbackLineRegex: regexp.MustCompile(
			`^\s*(?P<date>\d{2}[/\-.]\d{2}[/\-.]\d{2,4})\s+(?P<description>.+?)\s+(?P<amount>[\d.,()\-]+)\s+(?P<balance>[\d.,]+)\s*$`),
	}
}

// NewBniV2Adapter builds the generic Bank BNI adapter for the posting/
// effective-date, DB/CR-flag layout.
func NewBniV2Adapter() *GenericAdapter {
	return &GenericAdapter{
		BankName: "Bank BNI",
		BankCode: "BNI_V2",
		KeywordList: []string{
			"BANK NEGARA INDONESIA",
			"PT BANK BNI",
			"POSTING DATE",
			"EFFECTIVE DATE",
			"DB/CR",
			"JOURNAL",
		},
		Columns: []ColumnRole{ColPostingDate, ColEffectiveDate, ColBranch, ColReference, ColDescription, ColAmount, ColFlag, ColBalance},
		AccountNumberRegex: regexp.MustCompile(`(?i)(?:ACCOUNT|REKENING)[:\s]*(\d{10,16})`),
		AccountHolderRegex: regexp.MustCompile(`(?i)(?:NAME|NAMA)[:\s]*([A-Z\s.]+?)(?:\n|ACCOUNT|ADDRESS)`),
		FallbackLineRegex: regexp.MustCompile(
			`^\s*(?P<date>\d{2}[/\-.]\d{2}[/\-.]\d{2,4})\s+(?P<description>.+?)\s+(?P<amount>[\d.,]+)\s+(?P<flag>DB|CR)\s+(?P<balance>[\d.,]+)\s*$`),
	}
}
