package csp

// policy.go
import (
	"slices"
)

// Policy — готовая политика. После создания не меняется и безопасна
// для одновременного чтения из любого числа горутин.
type Policy struct {
	directives map[DirectiveName][]Source
	flags      map[DirectiveName]struct{} // upgrade-insecure-requests, block-all-mixed-content
	sandbox    []string
	hasSandbox bool
	reportURI  string
	reportTo   string
	reportOnly bool
}

// Directive возвращает копию источников директивы.
func (p *Policy) Directive(name DirectiveName) ([]Source, bool) {
	s, ok := p.directives[name]
	if !ok {
		return nil, false
	}
	return slices.Clone(s), true
}

// Directives — директивы со списками источников в каноническом порядке.
func (p *Policy) Directives() []Directive {
	out := make([]Directive, 0, len(p.directives))
	for _, name := range canonicalOrder {
		if s, ok := p.directives[name]; ok {
			out = append(out, Directive{Name: name, Sources: slices.Clone(s)})
		}
	}
	return out
}

// Has — директива (в том числе флаг или sandbox) присутствует в политике.
func (p *Policy) Has(name DirectiveName) bool {
	if _, ok := p.directives[name]; ok {
		return true
	}
	if _, ok := p.flags[name]; ok {
		return true
	}
	if name == Sandbox {
		return p.hasSandbox
	}
	return false
}

// Sandbox — токены sandbox; ok=false, если директивы нет.
func (p *Policy) Sandbox() ([]string, bool) {
	return slices.Clone(p.sandbox), p.hasSandbox
}

func (p *Policy) ReportURI() (string, bool) { return p.reportURI, p.reportURI != "" }

func (p *Policy) ReportTo() (string, bool) { return p.reportTo, p.reportTo != "" }

func (p *Policy) ReportOnly() bool { return p.reportOnly }

// HeaderName — имя заголовка для этой политики.
func (p *Policy) HeaderName() string { return HeaderName(p) }

// String — сериализованное значение заголовка.
func (p *Policy) String() string { return Serialize(p) }

// WithNonce возвращает производную политику, в которой nonce разрешает
// inline-скрипты и стили страницы. Исходная политика не меняется.
//
// script-src и style-src дополняются Nonce(nonce); если их нет, но есть
// default-src, директива создаётся из источников default-src плюс nonce,
// иначе браузер применил бы default-src без nonce. script-src-elem и
// style-src-elem дополняются, только если заданы. Директивы с 'none' не трогаются.
func (p *Policy) WithNonce(nonce string) *Policy {
	if nonce == "" {
		return p
	}
	n := Nonce(nonce)
	out := p.clone()
	for _, name := range []DirectiveName{ScriptSrc, ScriptSrcElem, StyleSrc, StyleSrcElem} {
		sources, ok := out.directives[name]
		if !ok && (name == ScriptSrc || name == StyleSrc) {
			sources, ok = out.directives[DefaultSrc]
		}
		if !ok || slices.Contains(sources, None) || slices.Contains(sources, n) {
			continue
		}
		next := make([]Source, len(sources), len(sources)+1)
		copy(next, sources)
		out.directives[name] = append(next, n)
	}
	return out
}

// clone — неглубокая копия: срезы источников общие, но никогда не изменяются на месте.
func (p *Policy) clone() *Policy {
	out := *p
	out.directives = make(map[DirectiveName][]Source, len(p.directives))
	for k, v := range p.directives {
		out.directives[k] = v
	}
	return &out
}
