package docparser

import (
	"strings"

	"recon-engine/internal/domain"
)

// RawTextParser builds the raw-text envelope that faktur_pajak, pph21,
// pph23 and invoice documents carry until the Smart Mapper performs
// structured extraction.
type RawTextParser struct{}

func (p *RawTextParser) Parse(ocr *domain.OCRResult) (*Envelope, error) {
	lines := splitNonEmptyLines(ocr.RawText)
	return &Envelope{
		RawText:   ocr.RawText,
		TextLines: lines,
		Stats: Stats{
			LineCount:      len(lines),
			CharacterCount: len(ocr.RawText),
			WordCount:      len(strings.Fields(ocr.RawText)),
		},
		ProcessingInfo: map[string]string{
			"engine_used": ocr.EngineUsed,
		},
	}, nil
}

func splitNonEmptyLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
