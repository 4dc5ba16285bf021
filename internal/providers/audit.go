package providers

import (
	"encoding/json"
	"strings"

	"go.uber.org/zap"
)

const requestSnapshotLimit = 4000
const responseLogLimit = 4000

// MaskSecret returns a lightly redacted version of a secret for audit
// logging: short secrets are fully starred, longer ones keep a four
// character prefix and two character suffix ("xxxx...yy").
func MaskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:4] + "..." + secret[len(secret)-2:]
}

// sanitizeHeaders masks every header value, preserving header names so
// the logged shape still shows what was sent.
func sanitizeHeaders(headers map[string]string) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		if v == "" {
			continue
		}
		out[k] = MaskSecret(v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// RequestSnapshot is the serialisable, secret-masked view of an
// outbound provider request attached to scrape records for audit.
type RequestSnapshot struct {
	Method  string            `json:"method,omitempty"`
	URL     string            `json:"url,omitempty"`
	Body    any               `json:"body,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// BuildRequestSnapshot constructs the audit-logged view of an outbound
// request, masking header values and trimming the serialized form to
// requestSnapshotLimit characters.
func BuildRequestSnapshot(method, url string, body any, headers map[string]string) string {
	snapshot := RequestSnapshot{Method: method, URL: url, Body: body, Headers: sanitizeHeaders(headers)}
	encoded, err := json.Marshal(snapshot)
	if err != nil {
		return ""
	}
	return previewString(string(encoded), requestSnapshotLimit)
}

// Auditor logs every outbound provider call and its response as a
// structured event, not just returning it to the caller (spec section
// 9, "provider dispatch/response audit logging").
type Auditor struct {
	Logger *zap.Logger
}

func NewAuditor(logger *zap.Logger) *Auditor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Auditor{Logger: logger}
}

// LogDispatch records an outbound scrape request before it is sent.
func (a *Auditor) LogDispatch(provider, url string, fields ...zap.Field) {
	all := append([]zap.Field{zap.String("provider", provider), zap.String("url", url)}, fields...)
	a.Logger.Info("scrape dispatch", all...)
}

// LogResponse records a provider's response, trimming any large payload
// preview to responseLogLimit characters.
func (a *Auditor) LogResponse(provider, action string, responsePreview string, fields ...zap.Field) {
	all := append([]zap.Field{
		zap.String("provider", provider),
		zap.String("action", action),
		zap.String("response", previewString(responsePreview, responseLogLimit)),
	}, fields...)
	a.Logger.Info("scrape response", all...)
}

func previewString(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
