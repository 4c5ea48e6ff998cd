// Package ocr implements the abstract OCR contract: a cloud
// primary provider with a local fallback, language-agnostic about which
// concrete engine is wired in.
package ocr

import (
	"context"
	"errors"
	"time"

	"recon-engine/internal/domain"
	"recon-engine/pkg/logger"
)

// ErrNoProviders is returned at startup when no provider initialized; the
// process refuses to start without at least one.
var ErrNoProviders = errors.New("ocr: no provider available")

// Provider is one concrete OCR engine. Providers are opaque to the Gateway:
// it only routes to whichever one the deployment wired in.
type Provider interface {
	Name() string
	Extract(ctx context.Context, content []byte, mimeType string) (*domain.OCRResult, error)
}

// Gateway tries providers in order (cloud primary, then local fallback) and
// fails the file only when every provider fails or returns empty text.
type Gateway struct {
	providers []Provider
}

// NewGateway builds a Gateway from the providers wired in by the deployment,
// in try-order. At least one provider is required.
func NewGateway(providers ...Provider) (*Gateway, error) {
	if len(providers) == 0 {
		return nil, ErrNoProviders
	}
	return &Gateway{providers: providers}, nil
}

// ExtractText runs the OCR providers in order, returning the first
// successful, non-empty result. An error is returned only when every
// provider fails or returns empty text.
func (g *Gateway) ExtractText(ctx context.Context, content []byte, mimeType string) (*domain.OCRResult, error) {
	var lastErr error
	for _, p := range g.providers {
		start := time.Now()
		result, err := p.Extract(ctx, content, mimeType)
		if err != nil {
			lastErr = err
			logger.GetLogger().WithComponent("ocr").WithError(err).WithField("provider", p.Name()).Warn("provider failed, trying next")
			continue
		}
		if result == nil || result.RawText == "" {
			lastErr = errors.New("empty text from " + p.Name())
			logger.GetLogger().WithComponent("ocr").WithField("provider", p.Name()).Warn("provider returned empty text, trying next")
			continue
		}
		if result.EngineUsed == "" {
			result.EngineUsed = p.Name()
		}
		if result.ProcessingTimeSeconds == 0 {
			result.ProcessingTimeSeconds = time.Since(start).Seconds()
		}
		return result, nil
	}
	if lastErr == nil {
		lastErr = errors.New("no ocr provider configured")
	}
	return nil, lastErr
}
