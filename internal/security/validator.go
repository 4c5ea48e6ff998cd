// Package security implements per-file upload validation: size, extension,
// MIME sniffing, PDF page-count ceiling, integrity digests and heuristic
// content checks.
package security

import (
	"bytes"
	"crypto/md5"
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"recon-engine/internal/config"
)

// CheckResult is the outcome of one named validation check.
type CheckResult struct {
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
}

// FileInfo carries the integrity metadata computed for an uploaded file.
type FileInfo struct {
	MD5       string `json:"md5"`
	SHA256    string `json:"sha256"`
	SizeBytes int    `json:"size_bytes"`
	PageCount int    `json:"page_count,omitempty"`
}

// Report is the full validation outcome for one uploaded blob.
type Report struct {
	Filename string                 `json:"filename"`
	IsValid  bool                   `json:"is_valid"`
	Errors   []string               `json:"errors"`
	Warnings []string               `json:"warnings"`
	Checks   map[string]CheckResult `json:"checks"`
	FileInfo FileInfo               `json:"file_info"`
}

var expectedMimes = map[string][]string{
	"pdf":  {"application/pdf"},
	"png":  {"image/png"},
	"jpg":  {"image/jpeg"},
	"jpeg": {"image/jpeg"},
	"tiff": {"image/tiff"},
	"bmp":  {"image/bmp", "image/x-ms-bmp"},
	"xlsx": {"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
	"xls":  {"application/vnd.ms-excel", "application/msexcel"},
}

var debitScriptSignatures = [][]byte{[]byte("<script"), []byte("javascript:"), []byte("vbscript:"), []byte("<?php")}

var suspiciousFilenameChars = []string{"..", "/", "\\", "|", "<", ">", ":", "\"", "?", "*"}

// Validator validates uploaded file blobs against the configured policy.
type Validator struct {
	cfg config.SecurityConfig
}

// New builds a Validator from the security section of the application config.
func New(cfg config.SecurityConfig) *Validator {
	return &Validator{cfg: cfg}
}

// Validate runs every check in declared order. Failures accumulate and no
// failure short-circuits the remaining checks; an empty filename is
// recorded as a failed extension check.
func (v *Validator) Validate(filename string, content []byte) *Report {
	report := &Report{
		Filename: filename,
		IsValid:  true,
		Errors:   []string{},
		Warnings: []string{},
		Checks:   map[string]CheckResult{},
		FileInfo: FileInfo{SizeBytes: len(content)},
	}

	sizeCheck := v.validateSize(len(content))
	report.Checks["size"] = sizeCheck
	if !sizeCheck.Passed {
		report.IsValid = false
		report.Errors = append(report.Errors, sizeCheck.Message)
	}

	extCheck, ext := v.validateExtension(filename)
	report.Checks["extension"] = extCheck
	if !extCheck.Passed {
		report.IsValid = false
		report.Errors = append(report.Errors, extCheck.Message)
	}

	mimeCheck := v.validateMimeType(content, ext)
	report.Checks["mime"] = mimeCheck
	if !mimeCheck.Passed {
		report.IsValid = false
		report.Errors = append(report.Errors, mimeCheck.Message)
	}

	md5Sum := md5.Sum(content)
	sha256Sum := sha256.Sum256(content)
	report.FileInfo.MD5 = fmt.Sprintf("%x", md5Sum)
	report.FileInfo.SHA256 = fmt.Sprintf("%x", sha256Sum)

	if len(content) == 0 {
		report.IsValid = false
		report.Errors = append(report.Errors, "file integrity check failed: file is empty")
	}

	if ext == "pdf" {
		pageCheck, pages := v.validatePDFPageCount(content)
		report.Checks["page_count"] = pageCheck
		report.FileInfo.PageCount = pages
		if !pageCheck.Passed {
			report.IsValid = false
			report.Errors = append(report.Errors, pageCheck.Message)
		}
	}

	report.Checks["virus_scan"] = CheckResult{Passed: true, Message: "virus scanning disabled"}

	report.Warnings = append(report.Warnings, v.advancedChecks(content, filename)...)

	return report
}

func (v *Validator) validateSize(size int) CheckResult {
	maxBytes := v.cfg.MaxFileSizeMB * 1024 * 1024
	if int64(size) > maxBytes {
		return CheckResult{
			Passed:  false,
			Message: fmt.Sprintf("file size (%.2f MB) exceeds maximum allowed size (%d MB)", float64(size)/(1024*1024), v.cfg.MaxFileSizeMB),
		}
	}
	return CheckResult{Passed: true, Message: "file size validation passed"}
}

func (v *Validator) validateExtension(filename string) (CheckResult, string) {
	if filename == "" {
		return CheckResult{Passed: false, Message: "filename is required"}, ""
	}
	ext := ""
	if idx := strings.LastIndex(filename, "."); idx >= 0 {
		ext = strings.ToLower(filename[idx+1:])
	}
	for _, allowed := range v.cfg.AllowedExtensions {
		if allowed == ext {
			return CheckResult{Passed: true, Message: "file extension validation passed"}, ext
		}
	}
	return CheckResult{
		Passed:  false,
		Message: fmt.Sprintf("file extension '%s' not allowed. allowed extensions: %s", ext, strings.Join(v.cfg.AllowedExtensions, ", ")),
	}, ext
}

func (v *Validator) validateMimeType(content []byte, ext string) CheckResult {
	detected := mimetype.Detect(content).String()
	// mimetype returns e.g. "image/jpeg; charset=binary"; normalize to the bare type.
	if idx := strings.Index(detected, ";"); idx >= 0 {
		detected = strings.TrimSpace(detected[:idx])
	}

	allowed, known := expectedMimes[ext]
	if !known {
		return CheckResult{Passed: false, Message: fmt.Sprintf("unknown or unsupported file extension: %s", ext)}
	}
	for _, m := range allowed {
		if m == detected {
			return CheckResult{Passed: true, Message: "mime type validation passed"}
		}
	}
	return CheckResult{Passed: false, Message: fmt.Sprintf("mime type mismatch. detected: %s, expected: %v", detected, allowed)}
}

// validatePDFPageCount counts "/Type /Page" object tokens, a lightweight
// stand-in for a full PDF parser (see DESIGN.md).
func (v *Validator) validatePDFPageCount(content []byte) (CheckResult, int) {
	pattern := []byte("/Type/Page")
	normalized := bytes.ReplaceAll(content, []byte(" "), []byte(""))
	count := bytes.Count(normalized, pattern)
	// "/Type/Pages" (the page-tree root) also matches the prefix; subtract those.
	count -= bytes.Count(normalized, []byte("/Type/Pages"))
	if count < 0 {
		count = 0
	}

	max := v.cfg.MaxPdfPagesPerFile
	if count > max {
		parts := (count + max - 1) / max
		return CheckResult{
			Passed:  false,
			Message: fmt.Sprintf("PDF has %d pages. Maximum allowed: %d pages. Split into %d files.", count, max, parts),
		}, count
	}
	return CheckResult{Passed: true, Message: fmt.Sprintf("PDF page count validation passed (%d pages)", count)}, count
}

var reservedWindowsStems = map[string]bool{
	"con": true, "prn": true, "aux": true, "nul": true,
	"com1": true, "com2": true, "com3": true, "com4": true, "com5": true,
	"com6": true, "com7": true, "com8": true, "com9": true,
	"lpt1": true, "lpt2": true, "lpt3": true, "lpt4": true, "lpt5": true,
	"lpt6": true, "lpt7": true, "lpt8": true, "lpt9": true,
}

// SanitizeFilename strips path traversal segments, control characters and
// reserved Windows device stems, then clamps the result to 255 bytes while
// preserving the extension filename invariant.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	name = strings.ReplaceAll(name, "..", "")

	var b strings.Builder
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	name = strings.TrimSpace(b.String())
	if name == "" {
		name = "unnamed"
	}

	ext := ""
	stem := name
	if idx := strings.LastIndex(name, "."); idx > 0 {
		ext = name[idx:]
		stem = name[:idx]
	}
	if reservedWindowsStems[strings.ToLower(stem)] {
		stem = "_" + stem
	}
	name = stem + ext

	if len(name) > 255 {
		overflow := len(name) - 255
		if overflow >= len(stem) {
			stem = ""
		} else {
			stem = stem[:len(stem)-overflow]
		}
		name = stem + ext
	}
	return name
}

func (v *Validator) advancedChecks(content []byte, filename string) []string {
	var warnings []string

	head := content
	if len(head) > 1024 {
		head = head[:1024]
	}
	if bytes.Contains(head, []byte("MZ")) {
		warnings = append(warnings, "file contains executable content signatures")
	}

	scanWindow := content
	if len(scanWindow) > 10000 {
		scanWindow = scanWindow[:10000]
	}
	for _, sig := range debitScriptSignatures {
		if bytes.Contains(scanWindow, sig) {
			warnings = append(warnings, "file contains script-like content")
			break
		}
	}

	switch {
	case len(content) == 0:
		warnings = append(warnings, "file is empty")
	case len(content) < 100:
		warnings = append(warnings, "file is unusually small")
	}

	for _, ch := range suspiciousFilenameChars {
		if strings.Contains(filename, ch) {
			warnings = append(warnings, "filename contains suspicious characters")
			break
		}
	}

	return warnings
}
