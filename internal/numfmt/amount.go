// Package numfmt holds the amount and date parsing helpers shared by the
// document parsers and bank adapters.
package numfmt

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var currencyPrefix = regexp.MustCompile(`(?i)^(rp\.?|idr)\s*`)

// ParseAmount parses a leniently-formatted monetary string into a decimal,
// detecting Indonesian ("1.000.000,00") vs US ("1,000,000.00") separator
// convention by the position of the last separator. Unparseable input
// returns zero, matching the original's clean_amount fallback.
func ParseAmount(raw string) decimal.Decimal {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero
	}
	s = currencyPrefix.ReplaceAllString(s, "")
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', ' ', '$', '€', '£', '¥':
			return -1
		default:
			return r
		}
	}, s)

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	}
	if strings.HasPrefix(s, "-") {
		negative = true
		s = strings.TrimPrefix(s, "-")
	}

	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")

	switch {
	case hasComma && hasDot:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			// Indonesian: 1.000.000,00
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			// US: 1,000,000.00
			s = strings.ReplaceAll(s, ",", "")
		}
	case hasComma:
		lastComma := strings.LastIndex(s, ",")
		if strings.Count(s, ",") == 1 && len(s)-lastComma-1 <= 2 {
			// Likely decimal separator: 1000,00
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case hasDot:
		lastDot := strings.LastIndex(s, ".")
		if strings.Count(s, ".") == 1 && len(s)-lastDot-1 <= 2 {
			// Decimal separator, keep as-is.
		} else {
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	if negative {
		d = d.Neg()
	}
	return d.Round(2)
}

var dateFormats = []string{
	"02/01/2006",
	"02-01-2006",
	"02.01.2006",
	"2006-01-02",
	"02 Jan 2006",
	"02 January 2006",
	"02/01/06",
	"02-01-06",
}

var indonesianMonths = map[string]time.Month{
	"januari": time.January, "februari": time.February, "maret": time.March,
	"april": time.April, "mei": time.May, "juni": time.June,
	"juli": time.July, "agustus": time.August, "september": time.September,
	"oktober": time.October, "november": time.November, "desember": time.December,
}

// ParseDate parses a date from a closed list of formats including Indonesian
// and English month names. Returns ok=false when no format matches.
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	if t, ok := parseIndonesianMonthDate(s); ok {
		return t, true
	}

	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return normalizeTwoDigitYear(t), true
		}
	}
	return time.Time{}, false
}

func normalizeTwoDigitYear(t time.Time) time.Time {
	if t.Year() < 100 {
		year := t.Year()
		if year < 70 {
			year += 2000
		} else {
			year += 1900
		}
		return time.Date(year, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	return t
}

func parseIndonesianMonthDate(s string) (time.Time, bool) {
	parts := strings.Fields(s)
	if len(parts) != 3 {
		return time.Time{}, false
	}
	month, ok := indonesianMonths[strings.ToLower(parts[1])]
	if !ok {
		return time.Time{}, false
	}
	var day, year int
	if _, err := parseIntStrict(parts[0], &day); err != nil {
		return time.Time{}, false
	}
	if _, err := parseIntStrict(parts[2], &year); err != nil {
		return time.Time{}, false
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), true
}

func parseIntStrict(s string, out *int) (int, error) {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, errNotDigit
		}
		n = n*10 + int(r-'0')
	}
	*out = n
	return n, nil
}

type notDigitError struct{}

func (notDigitError) Error() string { return "not a digit" }

var errNotDigit = notDigitError{}
