package report

// errors.go
import (
	"fmt"
)

// ErrorKind — машинный код ошибки разбора; уходит клиенту в поле code.
type ErrorKind string

const (
	UnsupportedContentType ErrorKind = "unsupported_content_type"
	InvalidJSON            ErrorKind = "invalid_json"
	SchemaMismatch         ErrorKind = "schema_mismatch"
	PayloadTooLarge        ErrorKind = "payload_too_large"
)

// Для errors.Is: совпадение по Kind.
var (
	ErrUnsupportedContentType = &ParseError{Kind: UnsupportedContentType}
	ErrInvalidJSON            = &ParseError{Kind: InvalidJSON}
	ErrSchemaMismatch         = &ParseError{Kind: SchemaMismatch}
	ErrPayloadTooLarge        = &ParseError{Kind: PayloadTooLarge}
)

// ParseError — отчёт не принят. Field заполнен для SchemaMismatch.
type ParseError struct {
	Kind  ErrorKind
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	msg := "report: " + string(e.Kind)
	if e.Field != "" {
		msg += fmt.Sprintf(" (%s)", e.Field)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is: Field у эталона учитывается, только если задан.
func (e *ParseError) Is(target error) bool {
	t, ok := target.(*ParseError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Field == "" || t.Field == e.Field)
}

// MismatchOn — эталон для errors.Is с конкретным полем.
func MismatchOn(field string) error {
	return &ParseError{Kind: SchemaMismatch, Field: field}
}
