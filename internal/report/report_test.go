package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalReport = `{"document-uri":"https://a/","violated-directive":"script-src","original-policy":"default-src 'self'"}`

func TestParseMinimalReport(t *testing.T) {
	r, err := Parse([]byte(minimalReport), "application/csp-report")
	require.NoError(t, err)

	assert.Equal(t, "https://a/", r.DocumentURI)
	assert.Equal(t, "script-src", r.ViolatedDirective)
	assert.Equal(t, "default-src 'self'", r.OriginalPolicy)
	assert.Nil(t, r.Referrer)
	assert.Nil(t, r.BlockedURI)
	assert.Nil(t, r.EffectiveDirective)
	assert.Nil(t, r.StatusCode)
	assert.Nil(t, r.ScriptSample)
}

func TestParseMissingRequiredField(t *testing.T) {
	body := `{"document-uri":"https://a/","original-policy":"default-src 'self'"}`
	_, err := Parse([]byte(body), "application/json")
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrSchemaMismatch)
	assert.ErrorIs(t, err, MismatchOn("violated-directive"))
	assert.NotErrorIs(t, err, MismatchOn("document-uri"))

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, FieldViolatedDirective, pe.Field)
}

func TestParseEnvelopeWithAllFields(t *testing.T) {
	body := `{"csp-report":{
		"document-uri":"https://shop.example.com/cart",
		"referrer":"https://shop.example.com/",
		"violated-directive":"script-src-elem",
		"effective-directive":"script-src-elem",
		"original-policy":"default-src 'self'; report-uri /csp-report",
		"disposition":"enforce",
		"blocked-uri":"https://evil.test/x.js",
		"line-number":12,
		"column-number":7,
		"source-file":"https://shop.example.com/app.js",
		"status-code":200,
		"script-sample":""
	}}`
	r, err := Parse([]byte(body), "application/csp-report; charset=utf-8")
	require.NoError(t, err)

	require.NotNil(t, r.BlockedURI)
	assert.Equal(t, "https://evil.test/x.js", *r.BlockedURI)
	require.NotNil(t, r.StatusCode)
	assert.Equal(t, 200, *r.StatusCode)
	require.NotNil(t, r.LineNumber)
	assert.Equal(t, 12, *r.LineNumber)
	require.NotNil(t, r.ScriptSample)
	assert.Empty(t, *r.ScriptSample)
	assert.Equal(t, "enforce", *r.Disposition)
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		body string
		ct   string
		want error
	}{
		{"text/plain", minimalReport, "text/plain", ErrUnsupportedContentType},
		{"empty content type", minimalReport, "", ErrUnsupportedContentType},
		{"broken json", `{"document-uri":`, "application/json", ErrInvalidJSON},
		{"array root", `[1,2]`, "application/json", ErrSchemaMismatch},
		{"envelope not object", `{"csp-report":"x"}`, "application/json", MismatchOn("csp-report")},
		{"wrong type required", `{"document-uri":1,"violated-directive":"a","original-policy":"b"}`, "application/json", MismatchOn("document-uri")},
		{"null required", `{"document-uri":"a","violated-directive":null,"original-policy":"b"}`, "application/json", MismatchOn("violated-directive")},
		{"wrong type optional", `{"document-uri":"a","violated-directive":"b","original-policy":"c","status-code":"200"}`, "application/json", MismatchOn("status-code")},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r, err := Parse([]byte(c.body), c.ct)
			assert.Nil(t, r)
			assert.ErrorIs(t, err, c.want)
		})
	}
}

func TestParseReaderLimit(t *testing.T) {
	_, err := ParseReader(strings.NewReader(minimalReport), "application/json", 16)
	assert.ErrorIs(t, err, ErrPayloadTooLarge)

	r, err := ParseReader(strings.NewReader(minimalReport), "application/json", 0)
	require.NoError(t, err)
	assert.Equal(t, "script-src", r.ViolatedDirective)

	big := bytes.Repeat([]byte(" "), int(DefaultMaxBytes)+1)
	_, err = ParseReader(bytes.NewReader(big), "application/json", 0)
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestSanitized(t *testing.T) {
	sample := `<script>alert(1)</script>x`
	r := &ViolationReport{
		DocumentURI:       `https://a/<b>bold</b>`,
		ViolatedDirective: "script-src",
		OriginalPolicy:    "default-src 'self'",
		ScriptSample:      &sample,
	}
	s := r.Sanitized()
	assert.Equal(t, "https://a/bold", s.DocumentURI)
	assert.Equal(t, "x", *s.ScriptSample)
	assert.Equal(t, sample, *r.ScriptSample, "original untouched")

	f := s.Fields()
	assert.Equal(t, "script-src", f["violated_directive"])
	assert.NotContains(t, f, "referrer")
}

func TestSanitizedKeepsQuotes(t *testing.T) {
	r := &ViolationReport{DocumentURI: "https://a/", ViolatedDirective: "script-src", OriginalPolicy: "default-src 'self'"}
	assert.Equal(t, "default-src 'self'", r.Sanitized().OriginalPolicy)
}

func TestSanitizedKeepsEncodedMarkupEscaped(t *testing.T) {
	sample := `&lt;script&gt;alert(1)&lt;/script&gt;`
	r := &ViolationReport{
		DocumentURI:       "https://a/?x=1&y=2",
		ViolatedDirective: "script-src",
		OriginalPolicy:    "default-src 'self'",
		ScriptSample:      &sample,
	}
	s := r.Sanitized()
	assert.NotContains(t, *s.ScriptSample, "<script>")
	assert.Equal(t, sample, *s.ScriptSample)
	assert.Equal(t, "https://a/?x=1&y=2", s.DocumentURI)

	amp := "&amp;lt;b&amp;gt;"
	r.ScriptSample = &amp
	assert.NotContains(t, *r.Sanitized().ScriptSample, "<b>")
}
