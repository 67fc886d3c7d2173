// Package report разбирает отчёты браузера о нарушениях CSP (violation reports)
// и передаёт их обработчику синхронно или через ограниченную очередь.
package report

// report.go
import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
)

const (
	ContentTypeCSPReport = "application/csp-report"
	ContentTypeJSON      = "application/json"

	// DefaultMaxBytes — предел тела отчёта; нормальный отчёт укладывается в пару килобайт.
	DefaultMaxBytes int64 = 16 << 10
)

// Имена полей в формате браузера.
const (
	FieldEnvelope           = "csp-report"
	FieldDocumentURI        = "document-uri"
	FieldReferrer           = "referrer"
	FieldViolatedDirective  = "violated-directive"
	FieldEffectiveDirective = "effective-directive"
	FieldOriginalPolicy     = "original-policy"
	FieldBlockedURI         = "blocked-uri"
	FieldStatusCode         = "status-code"
	FieldScriptSample       = "script-sample"
	FieldDisposition        = "disposition"
	FieldSourceFile         = "source-file"
	FieldLineNumber         = "line-number"
	FieldColumnNumber       = "column-number"
)

// ViolationReport — разобранный отчёт. Необязательные поля равны nil, если их не прислали.
type ViolationReport struct {
	DocumentURI        string  `json:"document-uri"`
	Referrer           *string `json:"referrer,omitempty"`
	ViolatedDirective  string  `json:"violated-directive"`
	EffectiveDirective *string `json:"effective-directive,omitempty"`
	OriginalPolicy     string  `json:"original-policy"`
	BlockedURI         *string `json:"blocked-uri,omitempty"`
	StatusCode         *int    `json:"status-code,omitempty"`
	ScriptSample       *string `json:"script-sample,omitempty"`
	Disposition        *string `json:"disposition,omitempty"`
	SourceFile         *string `json:"source-file,omitempty"`
	LineNumber         *int    `json:"line-number,omitempty"`
	ColumnNumber       *int    `json:"column-number,omitempty"`
}

// Parse разбирает тело отчёта. Принимается как обёртка {"csp-report": {...}}
// (так шлют браузеры), так и голый объект.
func Parse(body []byte, contentType string) (*ViolationReport, error) {
	if err := checkContentType(contentType); err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, &ParseError{Kind: InvalidJSON}
	}

	fields, err := object(body, "")
	if err != nil {
		return nil, err
	}
	if raw, ok := fields[FieldEnvelope]; ok {
		if fields, err = object(raw, FieldEnvelope); err != nil {
			return nil, err
		}
	}

	d := decoder{fields: fields}
	r := &ViolationReport{
		DocumentURI:        d.required(FieldDocumentURI),
		ViolatedDirective:  d.required(FieldViolatedDirective),
		OriginalPolicy:     d.required(FieldOriginalPolicy),
		Referrer:           d.optString(FieldReferrer),
		EffectiveDirective: d.optString(FieldEffectiveDirective),
		BlockedURI:         d.optString(FieldBlockedURI),
		StatusCode:         d.optInt(FieldStatusCode),
		ScriptSample:       d.optString(FieldScriptSample),
		Disposition:        d.optString(FieldDisposition),
		SourceFile:         d.optString(FieldSourceFile),
		LineNumber:         d.optInt(FieldLineNumber),
		ColumnNumber:       d.optInt(FieldColumnNumber),
	}
	if d.err != nil {
		return nil, d.err
	}
	return r, nil
}

// ParseReader читает не больше maxBytes (<= 0 — DefaultMaxBytes) и вызывает Parse.
func ParseReader(r io.Reader, contentType string, maxBytes int64) (*ViolationReport, error) {
	if err := checkContentType(contentType); err != nil {
		return nil, err
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	body, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, &ParseError{Kind: InvalidJSON, Err: err}
	}
	if int64(len(body)) > maxBytes {
		return nil, &ParseError{Kind: PayloadTooLarge}
	}
	return Parse(body, contentType)
}

func checkContentType(contentType string) error {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return &ParseError{Kind: UnsupportedContentType, Err: err}
	}
	if mt != ContentTypeCSPReport && mt != ContentTypeJSON {
		return &ParseError{Kind: UnsupportedContentType, Err: fmt.Errorf("got %q", mt)}
	}
	return nil
}

func object(raw []byte, field string) (map[string]json.RawMessage, error) {
	if !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		return nil, &ParseError{Kind: SchemaMismatch, Field: field}
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, &ParseError{Kind: SchemaMismatch, Field: field, Err: err}
	}
	return m, nil
}

// decoder запоминает первую ошибку; поля проверяются в порядке вызовов.
type decoder struct {
	fields map[string]json.RawMessage
	err    error
}

func (d *decoder) fail(field string, err error) {
	if d.err == nil {
		d.err = &ParseError{Kind: SchemaMismatch, Field: field, Err: err}
	}
}

func (d *decoder) required(field string) string {
	raw, ok := d.fields[field]
	if !ok || isNull(raw) {
		d.fail(field, nil)
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		d.fail(field, err)
		return ""
	}
	return s
}

func (d *decoder) optString(field string) *string {
	raw, ok := d.fields[field]
	if !ok || isNull(raw) {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		d.fail(field, err)
		return nil
	}
	return &s
}

func (d *decoder) optInt(field string) *int {
	raw, ok := d.fields[field]
	if !ok || isNull(raw) {
		return nil
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		d.fail(field, err)
		return nil
	}
	return &n
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
