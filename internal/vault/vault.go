// Package vault implements the File Vault: a content-addressed, per-batch
// on-disk store for uploaded artifacts, laid out as
// UPLOAD_DIR/{batchId}/{NNN_sanitizedFilename}.
package vault

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"recon-engine/internal/security"
)

// Vault stores uploaded file content under a root upload directory.
type Vault struct {
	rootDir string
}

func New(rootDir string) *Vault {
	return &Vault{rootDir: rootDir}
}

// EnsureWritable verifies the root directory exists and accepts writes,
// part of the service's startup contract.
func (v *Vault) EnsureWritable() error {
	if err := os.MkdirAll(v.rootDir, 0o755); err != nil {
		return fmt.Errorf("vault: cannot create upload dir: %w", err)
	}
	probe := filepath.Join(v.rootDir, ".write-probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return fmt.Errorf("vault: upload dir not writable: %w", err)
	}
	return os.Remove(probe)
}

// Store writes content into the batch's directory under the zero-padded
// file index and sanitized filename, and returns the stored path and the
// SHA-256 content hash (the File Vault is content-addressed by this hash,
// though the on-disk path stays human-readable under the batch/index
// convention).
func (v *Vault) Store(batchID string, fileIndex int, displayName string, content []byte) (storedPath string, contentHash string, err error) {
	batchDir := filepath.Join(v.rootDir, batchID)
	if err := os.MkdirAll(batchDir, 0o755); err != nil {
		return "", "", fmt.Errorf("vault: cannot create batch dir: %w", err)
	}

	safeName := security.SanitizeFilename(displayName)
	name := fmt.Sprintf("%03d_%s", fileIndex, safeName)
	path := filepath.Join(batchDir, name)

	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", "", fmt.Errorf("vault: write failed: %w", err)
	}

	sum := sha256.Sum256(content)
	return path, hex.EncodeToString(sum[:]), nil
}

// Read loads a previously stored file's content back from disk.
func (v *Vault) Read(storedPath string) ([]byte, error) {
	return os.ReadFile(storedPath)
}

// BatchDir returns the on-disk directory owned by one batch.
func (v *Vault) BatchDir(batchID string) string {
	return filepath.Join(v.rootDir, batchID)
}
