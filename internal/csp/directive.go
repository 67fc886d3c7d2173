package csp

// directive.go
import (
	"slices"
	"strings"
)

// DirectiveName — имя директивы CSP.
type DirectiveName string

// Порядок объявления ниже и есть канонический порядок сериализации.
// Source: https://developer.mozilla.org/en-US/docs/Web/HTTP/Headers/Content-Security-Policy
const (
	// Fetch directives
	DefaultSrc    DirectiveName = "default-src"
	ScriptSrc     DirectiveName = "script-src"
	ScriptSrcElem DirectiveName = "script-src-elem"
	ScriptSrcAttr DirectiveName = "script-src-attr"
	StyleSrc      DirectiveName = "style-src"
	StyleSrcElem  DirectiveName = "style-src-elem"
	StyleSrcAttr  DirectiveName = "style-src-attr"
	ImgSrc        DirectiveName = "img-src"
	ConnectSrc    DirectiveName = "connect-src"
	FontSrc       DirectiveName = "font-src"
	ObjectSrc     DirectiveName = "object-src"
	MediaSrc      DirectiveName = "media-src"
	FrameSrc      DirectiveName = "frame-src"
	ChildSrc      DirectiveName = "child-src"
	WorkerSrc     DirectiveName = "worker-src"
	ManifestSrc   DirectiveName = "manifest-src"

	// Document directives
	BaseURI DirectiveName = "base-uri"
	Sandbox DirectiveName = "sandbox"

	// Navigation directives
	FormAction     DirectiveName = "form-action"
	FrameAncestors DirectiveName = "frame-ancestors"

	// Other directives
	UpgradeInsecureRequests DirectiveName = "upgrade-insecure-requests"
	BlockAllMixedContent    DirectiveName = "block-all-mixed-content"

	// Reporting directives (всегда последние)
	ReportURI DirectiveName = "report-uri"
	ReportTo  DirectiveName = "report-to"
)

var canonicalOrder = []DirectiveName{
	DefaultSrc, ScriptSrc, ScriptSrcElem, ScriptSrcAttr,
	StyleSrc, StyleSrcElem, StyleSrcAttr,
	ImgSrc, ConnectSrc, FontSrc, ObjectSrc, MediaSrc, FrameSrc,
	ChildSrc, WorkerSrc, ManifestSrc,
	BaseURI, Sandbox,
	FormAction, FrameAncestors,
	UpgradeInsecureRequests, BlockAllMixedContent,
	ReportURI, ReportTo,
}

var canonicalIndex = func() map[DirectiveName]int {
	m := make(map[DirectiveName]int, len(canonicalOrder))
	for i, n := range canonicalOrder {
		m[n] = i
	}
	return m
}()

// CanonicalOrder возвращает копию канонического порядка директив.
func CanonicalOrder() []DirectiveName {
	return slices.Clone(canonicalOrder)
}

// ParseDirectiveName нормализует имя ("Script-Src " → script-src).
func ParseDirectiveName(s string) (DirectiveName, bool) {
	n := DirectiveName(strings.ToLower(strings.TrimSpace(s)))
	_, ok := canonicalIndex[n]
	return n, ok
}

// Known — имя из фиксированного перечисления.
func (n DirectiveName) Known() bool {
	_, ok := canonicalIndex[n]
	return ok
}

// TakesSources — директива со списком source expressions.
func (n DirectiveName) TakesSources() bool {
	switch n {
	case Sandbox, UpgradeInsecureRequests, BlockAllMixedContent, ReportURI, ReportTo:
		return false
	}
	return n.Known()
}

// Valueless — директива-флаг без значения.
func (n DirectiveName) Valueless() bool {
	return n == UpgradeInsecureRequests || n == BlockAllMixedContent
}

// AllowsInlineTokens — nonce/hash имеют смысл только в семействах script/style
// (и в default-src как запасном варианте для них).
func (n DirectiveName) AllowsInlineTokens() bool {
	switch n {
	case ScriptSrc, ScriptSrcElem, ScriptSrcAttr, StyleSrc, StyleSrcElem, StyleSrcAttr, DefaultSrc:
		return true
	}
	return false
}

// fallbackChain — какие директивы браузер смотрит для n, по порядку.
// Source: https://www.w3.org/TR/CSP3/#directive-fallback-list
func (n DirectiveName) fallbackChain() []DirectiveName {
	switch n {
	case ScriptSrcElem, ScriptSrcAttr:
		return []DirectiveName{n, ScriptSrc, DefaultSrc}
	case StyleSrcElem, StyleSrcAttr:
		return []DirectiveName{n, StyleSrc, DefaultSrc}
	case WorkerSrc:
		return []DirectiveName{n, ChildSrc, ScriptSrc, DefaultSrc}
	case FrameSrc:
		return []DirectiveName{n, ChildSrc, DefaultSrc}
	case DefaultSrc:
		return []DirectiveName{n}
	}
	if strings.HasSuffix(string(n), "-src") {
		return []DirectiveName{n, DefaultSrc}
	}
	return []DirectiveName{n}
}

// Directive — имя и упорядоченный набор источников без дубликатов.
type Directive struct {
	Name    DirectiveName
	Sources []Source
}

// String — "name frag1 frag2 ...".
func (d Directive) String() string {
	var b strings.Builder
	writeDirective(&b, d.Name, d.Sources)
	return b.String()
}

// Contains сообщает, есть ли источник в директиве.
func (d Directive) Contains(s Source) bool {
	return slices.Contains(d.Sources, s)
}

func writeDirective(b *strings.Builder, name DirectiveName, sources []Source) {
	b.WriteString(string(name))
	for _, s := range sources {
		b.WriteByte(' ')
		b.WriteString(s.String())
	}
}

// dedupe сохраняет порядок вставки и схлопывает повторы.
func dedupe(sources []Source) []Source {
	out := make([]Source, 0, len(sources))
	for _, s := range sources {
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}
