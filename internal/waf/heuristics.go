package waf

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/wardenhq/warden/internal/models"
)

// dangerousExtensions are rejected outright regardless of declared size or
// MIME type.
var dangerousExtensions = map[string]bool{
	"exe": true, "bat": true, "cmd": true, "com": true, "scr": true,
	"vbs": true, "js": true, "php": true, "phtml": true,
}

// safeMIMETypes is the sniffed-content allowlist; anything else that is not
// image/* is treated as suspicious.
var safeMIMETypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/gif":       true,
	"image/webp":      true,
	"application/pdf": true,
	"text/plain":      true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
}

// HeuristicsConfig tunes the structural checks.
type HeuristicsConfig struct {
	CheckUploads    bool
	MaxUploadBytes  int64
	MaxRequestBytes int
}

// CheckRequest runs the structural checks that operate independently of the
// rule set. It only runs when the scanner found nothing; checks run in a
// fixed order and the first hit wins.
func CheckRequest(r *RequestInfo, cfg HeuristicsConfig) *Threat {
	if cfg.CheckUploads {
		for _, upload := range r.Uploads {
			if t := checkUpload(upload, cfg.MaxUploadBytes); t != nil {
				return t
			}
		}
	}

	if containsTraversal(r) {
		return &Threat{
			Category: models.CategoryPathTraversal,
			Details:  "directory traversal sequence in request field",
			Action:   models.ActionBlock,
			Severity: models.SeverityHigh,
		}
	}

	if size := parameterBytes(r); size > cfg.MaxRequestBytes {
		return &Threat{
			Category: models.CategoryBufferOverflow,
			Details:  fmt.Sprintf("request parameters total %d bytes, limit %d", size, cfg.MaxRequestBytes),
			Action:   models.ActionBlock,
			Severity: models.SeverityHigh,
		}
	}

	return nil
}

func checkUpload(upload FileUpload, maxBytes int64) *Threat {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(upload.Filename), "."))
	if dangerousExtensions[ext] {
		return &Threat{
			Category: models.CategoryDangerousUpload,
			Details:  fmt.Sprintf("upload %q has dangerous extension .%s", upload.Filename, ext),
			Action:   models.ActionBlock,
			Severity: models.SeverityCritical,
		}
	}

	if maxBytes > 0 && upload.Size > maxBytes {
		return &Threat{
			Category: models.CategoryFileTooLarge,
			Details:  fmt.Sprintf("upload %q is %d bytes, limit %d", upload.Filename, upload.Size, maxBytes),
			Action:   models.ActionBlock,
			Severity: models.SeverityHigh,
		}
	}

	// Sniffed type takes effect only when the transport layer could read
	// the file content.
	if upload.SniffedType != "" {
		mime := normalizeMIME(upload.SniffedType)
		if !safeMIMETypes[mime] && !strings.HasPrefix(mime, "image/") {
			return &Threat{
				Category: models.CategorySuspiciousFile,
				Details:  fmt.Sprintf("upload %q sniffed as %s", upload.Filename, mime),
				Action:   models.ActionBlock,
				Severity: models.SeverityHigh,
			}
		}
	}

	return nil
}

// normalizeMIME strips parameters like "; charset=utf-8" that
// http.DetectContentType appends.
func normalizeMIME(mime string) string {
	if i := strings.Index(mime, ";"); i != -1 {
		mime = mime[:i]
	}
	return strings.ToLower(strings.TrimSpace(mime))
}

func containsTraversal(r *RequestInfo) bool {
	return eachValue(r, func(v string) bool {
		return strings.Contains(v, "../") || strings.Contains(v, `..\`)
	})
}
