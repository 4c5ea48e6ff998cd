package ocr

import (
	"bytes"
	"context"

	"recon-engine/internal/domain"
)

// LocalProvider is the offline fallback engine. It extracts whatever plain
// text is embedded directly in the content (covers text-layer PDFs produced
// by office exporters) and otherwise degrades to a low-confidence empty
// result rather than failing outright, mirroring the original's graceful
// degradation when the cloud provider is unavailable.
type LocalProvider struct{}

func NewLocalProvider() *LocalProvider { return &LocalProvider{} }

func (p *LocalProvider) Name() string { return "local_fallback" }

func (p *LocalProvider) Extract(ctx context.Context, content []byte, mimeType string) (*domain.OCRResult, error) {
	text := extractPrintableText(content)
	confidence := 35.0
	if text == "" {
		confidence = 0
	}
	return &domain.OCRResult{
		RawText:    text,
		Confidence: confidence,
		EngineUsed: p.Name(),
	}, nil
}

// extractPrintableText pulls contiguous runs of printable ASCII out of a
// binary blob, a best-effort text layer extraction with no PDF/image
// decoding dependency.
func extractPrintableText(content []byte) string {
	var out bytes.Buffer
	var run bytes.Buffer
	flush := func() {
		if run.Len() >= 4 {
			if out.Len() > 0 {
				out.WriteByte(' ')
			}
			out.Write(run.Bytes())
		}
		run.Reset()
	}
	for _, b := range content {
		if (b >= 0x20 && b < 0x7f) || b == '\n' || b == '\t' {
			run.WriteByte(b)
		} else {
			flush()
		}
	}
	flush()
	return out.String()
}
