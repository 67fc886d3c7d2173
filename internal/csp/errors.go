package csp

// errors.go
import (
	"fmt"
	"strings"
)

// ErrorKind — машинный код ошибки валидации.
type ErrorKind string

const (
	ConflictingSources  ErrorKind = "conflicting_sources"
	InvalidHost         ErrorKind = "invalid_host"
	InvalidScheme       ErrorKind = "invalid_scheme"
	EmptyDirective      ErrorKind = "empty_directive"
	InvalidReportURI    ErrorKind = "invalid_report_uri"
	InvalidReportTo     ErrorKind = "invalid_report_to"
	InvalidNonce        ErrorKind = "invalid_nonce"
	InvalidHash         ErrorKind = "invalid_hash"
	InvalidSandboxToken ErrorKind = "invalid_sandbox_token"
	UnknownDirective    ErrorKind = "unknown_directive"
	UnknownSource       ErrorKind = "unknown_source"
)

// Эталонные значения для errors.Is: совпадение по Kind.
var (
	ErrConflictingSources = &ValidationError{Kind: ConflictingSources}
	ErrInvalidHost        = &ValidationError{Kind: InvalidHost}
	ErrInvalidScheme      = &ValidationError{Kind: InvalidScheme}
	ErrEmptyDirective     = &ValidationError{Kind: EmptyDirective}
	ErrInvalidReportURI   = &ValidationError{Kind: InvalidReportURI}
)

// ValidationError — одно нарушение правил политики.
type ValidationError struct {
	Kind      ErrorKind
	Directive DirectiveName // пусто для report-uri/report-to и разбора токенов
	Value     string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("csp: ")
	b.WriteString(string(e.Kind))
	if e.Directive != "" {
		b.WriteString(" in ")
		b.WriteString(string(e.Directive))
	}
	if e.Value != "" {
		fmt.Fprintf(&b, ": %q", e.Value)
	}
	return b.String()
}

// Is сравнивает по Kind; Directive/Value у эталона учитываются, только если заданы.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	if t.Directive != "" && t.Directive != e.Directive {
		return false
	}
	return t.Value == "" || t.Value == e.Value
}

// ValidationErrors — все нарушения за один проход валидации.
type ValidationErrors []*ValidationError

func (es ValidationErrors) Error() string {
	parts := make([]string, 0, len(es))
	for _, e := range es {
		parts = append(parts, e.Error())
	}
	return strings.Join(parts, "; ")
}

func (es ValidationErrors) Unwrap() []error {
	out := make([]error, 0, len(es))
	for _, e := range es {
		out = append(out, e)
	}
	return out
}

// Has — есть ли ошибка данного вида (для конкретной директивы, если name не пустой).
func (es ValidationErrors) Has(kind ErrorKind, name DirectiveName) bool {
	for _, e := range es {
		if e.Kind == kind && (name == "" || e.Directive == name) {
			return true
		}
	}
	return false
}

// Warning — некритичное замечание (не мешает Build).
type Warning struct {
	Directive DirectiveName
	Source    Source
	Message   string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s (%s)", w.Directive, w.Message, w.Source)
}
