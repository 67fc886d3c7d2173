package csp

// validate.go
import (
	"encoding/base64"
	"net/url"
	"regexp"
	"strings"
)

// Допустимые токены sandbox.
// Source: https://developer.mozilla.org/en-US/docs/Web/HTTP/Headers/Content-Security-Policy/sandbox
var sandboxTokens = map[string]struct{}{
	"allow-downloads":                         {},
	"allow-downloads-without-user-activation": {},
	"allow-forms":                             {},
	"allow-modals":                            {},
	"allow-orientation-lock":                  {},
	"allow-pointer-lock":                      {},
	"allow-popups":                            {},
	"allow-popups-to-escape-sandbox":          {},
	"allow-presentation":                      {},
	"allow-same-origin":                       {},
	"allow-scripts":                           {},
	"allow-storage-access-by-user-activation": {},
	"allow-top-navigation":                    {},
	"allow-top-navigation-by-user-activation": {},
	"allow-top-navigation-to-custom-protocols": {},
}

// report-to: имя группы, токен без пробелов и разделителей.
var reportToRe = regexp.MustCompile(`^[A-Za-z0-9_\-.]+$`)

// Validate проверяет готовую политику по тем же правилам, что и Builder.Build.
// Нужен для политик из BuildUnchecked. Ошибка, если есть, имеет тип ValidationErrors.
func Validate(p *Policy) ([]Warning, error) {
	var (
		errs     ValidationErrors
		warnings []Warning
	)

	for _, name := range canonicalOrder {
		sources, ok := p.directives[name]
		if !ok {
			continue
		}
		e, w := validateDirective(name, sources)
		errs = append(errs, e...)
		warnings = append(warnings, w...)
	}

	for _, tok := range p.sandbox {
		if _, ok := sandboxTokens[tok]; !ok {
			errs = append(errs, &ValidationError{Kind: InvalidSandboxToken, Directive: Sandbox, Value: tok})
		}
	}

	if uri, ok := p.ReportURI(); ok && !validReportURI(uri) {
		errs = append(errs, &ValidationError{Kind: InvalidReportURI, Directive: ReportURI, Value: uri})
	}
	if group, ok := p.ReportTo(); ok && !reportToRe.MatchString(group) {
		errs = append(errs, &ValidationError{Kind: InvalidReportTo, Directive: ReportTo, Value: group})
	}

	if len(errs) > 0 {
		return warnings, errs
	}
	return warnings, nil
}

func validateDirective(name DirectiveName, sources []Source) (ValidationErrors, []Warning) {
	var (
		errs     ValidationErrors
		warnings []Warning
	)

	if len(sources) == 0 {
		return ValidationErrors{{Kind: EmptyDirective, Directive: name}}, nil
	}

	hasNone := false
	for _, s := range sources {
		if s == None {
			hasNone = true
			break
		}
	}
	if hasNone && len(sources) > 1 {
		errs = append(errs, &ValidationError{Kind: ConflictingSources, Directive: name, Value: joinSources(sources)})
	}

	for _, s := range sources {
		switch s.Kind() {
		case KindSelf, KindNone, KindUnsafeInline, KindUnsafeEval, KindStrictDynamic,
			KindReportSample, KindWasmUnsafeEval, KindUnsafeHashes:
			// ключевые слова корректны всегда
		case KindScheme:
			if !ValidScheme(s.Value()) {
				errs = append(errs, &ValidationError{Kind: InvalidScheme, Directive: name, Value: s.Value()})
			}
		case KindHost:
			if !ValidHost(s.Value()) {
				errs = append(errs, &ValidationError{Kind: InvalidHost, Directive: name, Value: s.Value()})
			}
		case KindNonce:
			if !base64Re.MatchString(s.Value()) {
				errs = append(errs, &ValidationError{Kind: InvalidNonce, Directive: name, Value: s.Value()})
			}
			if !name.AllowsInlineTokens() {
				warnings = append(warnings, Warning{Directive: name, Source: s, Message: "nonce has no effect here"})
			}
		case KindHash:
			if !validHashValue(s) {
				errs = append(errs, &ValidationError{Kind: InvalidHash, Directive: name, Value: s.String()})
			}
			if !name.AllowsInlineTokens() {
				warnings = append(warnings, Warning{Directive: name, Source: s, Message: "hash has no effect here"})
			}
		default:
			errs = append(errs, &ValidationError{Kind: UnknownSource, Directive: name})
		}
	}
	return errs, warnings
}

func validHashValue(s Source) bool {
	size := s.Algorithm().digestSize()
	if size == 0 {
		return false
	}
	raw, err := base64.StdEncoding.DecodeString(s.Value())
	return err == nil && len(raw) == size
}

// validReportURI: абсолютный http(s) URL или относительная ссылка от корня.
func validReportURI(uri string) bool {
	if uri == "" || strings.ContainsAny(uri, " \t\r\n;,") {
		return false
	}
	u, err := url.Parse(uri)
	if err != nil {
		return false
	}
	if u.IsAbs() {
		return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
	}
	return strings.HasPrefix(uri, "/") && !strings.HasPrefix(uri, "//")
}

func joinSources(sources []Source) string {
	parts := make([]string, len(sources))
	for i, s := range sources {
		parts[i] = s.String()
	}
	return strings.Join(parts, " ")
}
