package csp

// verify.go
import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var ErrInvalidURI = errors.New("csp: invalid uri")

// Verifier отвечает на вопрос «разрешит ли политика это?» по правилам CSP3
// для source list: отсутствующая директива берётся из запасной
// (script-src-elem → script-src → default-src), 'none' запрещает всё,
// host-source без порта пускает только порт по умолчанию.
// Редиректы и 'strict-dynamic' не учитываются. Безопасен для конкурентного использования.
type Verifier struct {
	policy *Policy
	self   *url.URL // origin страницы для 'self'; nil — 'self' ничего не разрешает
}

func NewVerifier(p *Policy, self *url.URL) *Verifier {
	return &Verifier{policy: p, self: self}
}

// effective — источники директивы с учётом цепочки запасных директив
// (script-src-elem → script-src → default-src и т. п.).
func (v *Verifier) effective(name DirectiveName) ([]Source, bool) {
	for _, n := range name.fallbackChain() {
		if s, ok := v.policy.directives[n]; ok {
			return s, true
		}
	}
	return nil, false
}

// AllowsURI проверяет загрузку ресурса по абсолютному URI.
// Если ни директивы, ни default-src нет, загрузка разрешена.
func (v *Verifier) AllowsURI(raw string, name DirectiveName) (bool, error) {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() {
		return false, fmt.Errorf("%w: %q", ErrInvalidURI, raw)
	}
	sources, ok := v.effective(name)
	if !ok {
		return true, nil
	}
	for _, s := range sources {
		switch s.Kind() {
		case KindNone:
			return false, nil
		case KindSelf:
			if v.sameOrigin(u) {
				return true, nil
			}
		case KindScheme:
			if schemeMatches(s.Value(), u.Scheme) {
				return true, nil
			}
		case KindHost:
			if v.matchHost(u, s.Value()) {
				return true, nil
			}
		}
	}
	return false, nil
}

// AllowsNonce — есть ли в директиве ровно такой nonce.
func (v *Verifier) AllowsNonce(nonce string, name DirectiveName) bool {
	sources, ok := v.effective(name)
	if !ok || nonce == "" {
		return false
	}
	for _, s := range sources {
		if s.Kind() == KindNone {
			return false
		}
		if s.Kind() == KindNonce && subtle.ConstantTimeCompare([]byte(s.Value()), []byte(nonce)) == 1 {
			return true
		}
	}
	return false
}

// AllowsHash — совпадает ли хеш содержимого с одним из hash-source директивы.
func (v *Verifier) AllowsHash(content []byte, name DirectiveName) bool {
	sources, ok := v.effective(name)
	if !ok {
		return false
	}
	for _, s := range sources {
		if s.Kind() == KindNone {
			return false
		}
		if s.Kind() == KindHash && ComputeHash(s.Algorithm(), content) == s {
			return true
		}
	}
	return false
}

// AllowsInline — разрешит ли директива (script-src/style-src) inline-блок
// с данным содержимым и nonce. Без директивы и default-src inline разрешён.
func (v *Verifier) AllowsInline(content []byte, nonce string, name DirectiveName) bool {
	sources, ok := v.effective(name)
	if !ok {
		return true
	}
	hasInline := false
	for _, s := range sources {
		switch s.Kind() {
		case KindNone:
			return false
		case KindUnsafeInline:
			hasInline = true
		}
	}
	if v.AllowsNonce(nonce, name) || v.AllowsHash(content, name) {
		return true
	}
	// при наличии nonce или hash браузер игнорирует 'unsafe-inline'
	for _, s := range sources {
		if s.Kind() == KindNonce || s.Kind() == KindHash {
			return false
		}
	}
	return hasInline
}

func (v *Verifier) sameOrigin(u *url.URL) bool {
	if v.self == nil {
		return false
	}
	return strings.EqualFold(u.Scheme, v.self.Scheme) &&
		strings.EqualFold(u.Hostname(), v.self.Hostname()) &&
		effectivePort(u) == effectivePort(v.self)
}

func effectivePort(u *url.URL) string {
	if p := u.Port(); p != "" {
		return p
	}
	return defaultPort(u.Scheme)
}

// schemeMatches: схема выражения или её защищённый вариант (http: → https, ws: → wss).
// Source: https://www.w3.org/TR/CSP3/#match-schemes
func schemeMatches(expr, actual string) bool {
	expr, actual = strings.ToLower(expr), strings.ToLower(actual)
	switch {
	case expr == actual:
		return true
	case expr == "http":
		return actual == "https"
	case expr == "ws":
		return actual == "wss" || actual == "http" || actual == "https"
	}
	return false
}

// defaultPort — порт по умолчанию для схемы; "" для схем без порта.
func defaultPort(scheme string) string {
	switch strings.ToLower(scheme) {
	case "http", "ws":
		return "80"
	case "https", "wss":
		return "443"
	}
	return ""
}

// matchHost сопоставляет URI с host-source вида [scheme://]host[:port][/path].
// Без схемы допускается схема страницы или её https-вариант (без страницы — http и https).
// Без порта допускается только порт по умолчанию для схемы URI.
func (v *Verifier) matchHost(u *url.URL, pattern string) bool {
	rest := pattern
	if scheme, after, ok := strings.Cut(rest, "://"); ok {
		if !schemeMatches(scheme, u.Scheme) {
			return false
		}
		rest = after
	} else {
		pageScheme := "http"
		if v.self != nil {
			pageScheme = v.self.Scheme
		}
		if !schemeMatches(pageScheme, u.Scheme) {
			return false
		}
	}

	path := ""
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest, path = rest[:i], rest[i:]
	}

	port := ""
	if i := strings.LastIndexByte(rest, ':'); i >= 0 {
		rest, port = rest[:i], rest[i+1:]
	}

	host := strings.ToLower(u.Hostname())
	switch {
	case rest == "*":
	case strings.HasPrefix(rest, "*."):
		domain := strings.ToLower(rest[1:]) // ".example.com"
		if !strings.HasSuffix(host, domain) || len(host) == len(domain) {
			return false
		}
	default:
		if host != strings.ToLower(rest) {
			return false
		}
	}

	switch port {
	case "*":
	case "":
		if p := u.Port(); p != "" && p != defaultPort(u.Scheme) {
			return false
		}
	default:
		if port != effectivePort(u) {
			return false
		}
	}

	if path != "" {
		if strings.HasSuffix(path, "/") {
			return strings.HasPrefix(u.EscapedPath(), path)
		}
		return u.EscapedPath() == path
	}
	return true
}
