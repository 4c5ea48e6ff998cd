// Package smartmapper adapts an external LLM for structured extraction from
// raw OCR text. The structure returned is document-type-specific
// and opaque to the core beyond the fields reconciliation needs.
package smartmapper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"recon-engine/pkg/logger"
)

// Mapper extracts structured fields from raw text via an external LLM.
// Failure is non-fatal to callers: they must fall back to the raw-text
// envelope.
type Mapper interface {
	ExtractFromText(ctx context.Context, text, documentType string, metadata map[string]interface{}) (map[string]interface{}, error)
}

// Client calls a configured LLM HTTP endpoint. The prompt itself is opaque
// to the core.
type Client struct {
	Endpoint   string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient builds a Client from deployment configuration. An empty endpoint
// or key means the mapper is disabled; callers see every call fail and must
// fall back to raw text
func NewClient(endpoint, apiKey string) *Client {
	return &Client{
		Endpoint:   endpoint,
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: 90 * time.Second},
	}
}

type mapperRequest struct {
	Text         string                 `json:"text"`
	DocumentType string                 `json:"document_type"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

func (c *Client) ExtractFromText(ctx context.Context, text, documentType string, metadata map[string]interface{}) (map[string]interface{}, error) {
	if c.Endpoint == "" || c.APIKey == "" {
		return nil, fmt.Errorf("smart mapper not configured")
	}

	payload, err := json.Marshal(mapperRequest{Text: text, DocumentType: documentType, Metadata: metadata})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		logger.GetLogger().WithComponent("smartmapper").WithError(err).Warn("request failed")
		return nil, fmt.Errorf("smart mapper request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("smart mapper returned status %d", resp.StatusCode)
	}

	var fields map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&fields); err != nil {
		return nil, fmt.Errorf("smart mapper response decode failed: %w", err)
	}
	return fields, nil
}

// NullMapper is a Mapper that always fails, used when no LLM is configured
// so the orchestrator degrades to raw-text envelopes everywhere instead of
// crashing at startup (smart mapping is optional, unlike the OCR Gateway).
type NullMapper struct{}

func (NullMapper) ExtractFromText(ctx context.Context, text, documentType string, metadata map[string]interface{}) (map[string]interface{}, error) {
	return nil, fmt.Errorf("smart mapper disabled")
}
