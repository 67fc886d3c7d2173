// Package csp описывает модель Content-Security-Policy: источники, директивы,
// неизменяемую политику, билдер с валидацией и каноническую сериализацию заголовка.
package csp

// source.go
import (
	"cmp"
	"regexp"
	"strings"
)

// SourceKind — тег варианта источника (source expression).
type SourceKind uint8

const (
	KindSelf SourceKind = iota + 1
	KindNone
	KindUnsafeInline
	KindUnsafeEval
	KindStrictDynamic
	KindReportSample
	KindWasmUnsafeEval
	KindUnsafeHashes
	KindScheme
	KindHost
	KindNonce
	KindHash
)

// HashAlgorithm — алгоритм для hash-source.
type HashAlgorithm uint8

const (
	SHA256 HashAlgorithm = iota + 1
	SHA384
	SHA512
)

// String возвращает имя алгоритма в нижнем регистре, как его ждёт браузер.
func (a HashAlgorithm) String() string {
	switch a {
	case SHA256:
		return "sha256"
	case SHA384:
		return "sha384"
	case SHA512:
		return "sha512"
	default:
		return ""
	}
}

// digestSize — длина дайджеста в байтах (для проверки значения hash-source).
func (a HashAlgorithm) digestSize() int {
	switch a {
	case SHA256:
		return 32
	case SHA384:
		return 48
	case SHA512:
		return 64
	default:
		return 0
	}
}

// ParseHashAlgorithm разбирает "sha256" / "SHA-384" и т.п.
func ParseHashAlgorithm(s string) (HashAlgorithm, bool) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "") {
	case "sha256":
		return SHA256, true
	case "sha384":
		return SHA384, true
	case "sha512":
		return SHA512, true
	default:
		return 0, false
	}
}

// Source — одно выражение источника CSP. Значение сравнимо через ==,
// поэтому два одинаковых источника всегда равны.
type Source struct {
	kind  SourceKind
	value string
	alg   HashAlgorithm
}

// Ключевые слова.
var (
	Self           = Source{kind: KindSelf}
	None           = Source{kind: KindNone}
	UnsafeInline   = Source{kind: KindUnsafeInline}
	UnsafeEval     = Source{kind: KindUnsafeEval}
	StrictDynamic  = Source{kind: KindStrictDynamic}
	ReportSample   = Source{kind: KindReportSample}
	WasmUnsafeEval = Source{kind: KindWasmUnsafeEval}
	UnsafeHashes   = Source{kind: KindUnsafeHashes}
)

// Scheme — scheme-source без двоеточия: Scheme("https") → "https:".
func Scheme(s string) Source { return Source{kind: KindScheme, value: s} }

// Host — host-source, выводится как есть ("cdn.example.com", "https://*.example.com:443").
func Host(h string) Source { return Source{kind: KindHost, value: h} }

// Nonce — nonce-source, значение без кавычек и префикса.
func Nonce(v string) Source { return Source{kind: KindNonce, value: v} }

// Hash — hash-source со значением в base64.
func Hash(alg HashAlgorithm, v string) Source { return Source{kind: KindHash, alg: alg, value: v} }

func (s Source) Kind() SourceKind { return s.kind }

// Value — текст источника для Scheme/Host/Nonce/Hash, пустая строка для ключевых слов.
func (s Source) Value() string { return s.value }

// Algorithm — алгоритм hash-source (0 для остальных вариантов).
func (s Source) Algorithm() HashAlgorithm { return s.alg }

// IsKeyword сообщает, является ли источник ключевым словом в кавычках.
func (s Source) IsKeyword() bool {
	return s.kind >= KindSelf && s.kind <= KindUnsafeHashes
}

// String — фрагмент заголовка для источника.
func (s Source) String() string {
	switch s.kind {
	case KindSelf:
		return "'self'"
	case KindNone:
		return "'none'"
	case KindUnsafeInline:
		return "'unsafe-inline'"
	case KindUnsafeEval:
		return "'unsafe-eval'"
	case KindStrictDynamic:
		return "'strict-dynamic'"
	case KindReportSample:
		return "'report-sample'"
	case KindWasmUnsafeEval:
		return "'wasm-unsafe-eval'"
	case KindUnsafeHashes:
		return "'unsafe-hashes'"
	case KindScheme:
		return s.value + ":"
	case KindHost:
		return s.value
	case KindNonce:
		return "'nonce-" + s.value + "'"
	case KindHash:
		return "'" + s.alg.String() + "-" + s.value + "'"
	default:
		return ""
	}
}

// Compare задаёт порядок по значению: вариант, затем алгоритм, затем текст.
func Compare(a, b Source) int {
	if c := cmp.Compare(a.kind, b.kind); c != 0 {
		return c
	}
	if c := cmp.Compare(a.alg, b.alg); c != 0 {
		return c
	}
	return strings.Compare(a.value, b.value)
}

var (
	schemeRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.\-]*$`)

	// [scheme://](*|[*.]label(.label)*)[:port|:*][/path]
	hostRe = regexp.MustCompile(`^(?:[A-Za-z][A-Za-z0-9+.\-]*://)?` +
		`(?:\*|(?:\*\.)?[A-Za-z0-9](?:[A-Za-z0-9\-]*[A-Za-z0-9])?(?:\.[A-Za-z0-9](?:[A-Za-z0-9\-]*[A-Za-z0-9])?)*)` +
		`(?::(?:[0-9]{1,5}|\*))?` +
		`(?:/[^\s;,']*)?$`)

	base64Re = regexp.MustCompile(`^[A-Za-z0-9+/_\-]+={0,2}$`)
)

// ValidScheme проверяет текст scheme-source.
func ValidScheme(s string) bool { return schemeRe.MatchString(s) }

// ValidHost проверяет текст host-source.
func ValidHost(h string) bool { return hostRe.MatchString(h) }

// ParseSource разбирает токен так, как он пишется в заголовке или в файле политики.
func ParseSource(token string) (Source, error) {
	t := strings.TrimSpace(token)
	if t == "" {
		return Source{}, &ValidationError{Kind: InvalidHost, Value: token}
	}

	if strings.HasPrefix(t, "'") {
		if len(t) < 3 || !strings.HasSuffix(t, "'") {
			return Source{}, &ValidationError{Kind: UnknownSource, Value: token}
		}
		inner := t[1 : len(t)-1]
		switch strings.ToLower(inner) {
		case "self":
			return Self, nil
		case "none":
			return None, nil
		case "unsafe-inline":
			return UnsafeInline, nil
		case "unsafe-eval":
			return UnsafeEval, nil
		case "strict-dynamic":
			return StrictDynamic, nil
		case "report-sample":
			return ReportSample, nil
		case "wasm-unsafe-eval":
			return WasmUnsafeEval, nil
		case "unsafe-hashes":
			return UnsafeHashes, nil
		}
		if v, ok := strings.CutPrefix(inner, "nonce-"); ok {
			return Nonce(v), nil
		}
		if alg, v, ok := strings.Cut(inner, "-"); ok {
			if a, known := ParseHashAlgorithm(alg); known {
				return Hash(a, v), nil
			}
		}
		return Source{}, &ValidationError{Kind: UnknownSource, Value: token}
	}

	if s, ok := strings.CutSuffix(t, ":"); ok && schemeRe.MatchString(s) {
		return Scheme(s), nil
	}
	return Host(t), nil
}

// ParseSources разбирает список токенов; ошибки собираются все сразу.
func ParseSources(tokens []string) ([]Source, error) {
	out := make([]Source, 0, len(tokens))
	var errs ValidationErrors
	for _, tok := range tokens {
		s, err := ParseSource(tok)
		if err != nil {
			errs = append(errs, err.(*ValidationError))
			continue
		}
		out = append(out, s)
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}
