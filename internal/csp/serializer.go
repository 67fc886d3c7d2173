package csp

// serializer.go
import (
	"strings"
)

const (
	HeaderEnforce    = "Content-Security-Policy"
	HeaderReportOnly = "Content-Security-Policy-Report-Only"
)

// Serialize выводит политику в каноническом порядке директив, независимо от
// порядка вызовов билдера: одинаковое содержимое даёт одинаковую строку.
// Источники внутри директивы идут в порядке вставки.
func Serialize(p *Policy) string {
	var b strings.Builder
	b.Grow(128)

	sep := func() {
		if b.Len() > 0 {
			b.WriteString("; ")
		}
	}

	for _, name := range canonicalOrder {
		switch {
		case name == ReportURI || name == ReportTo:
			// ниже, после всех директив
		case name == Sandbox:
			if !p.hasSandbox {
				continue
			}
			sep()
			b.WriteString(string(Sandbox))
			for _, tok := range p.sandbox {
				b.WriteByte(' ')
				b.WriteString(tok)
			}
		case name.Valueless():
			if _, ok := p.flags[name]; ok {
				sep()
				b.WriteString(string(name))
			}
		default:
			sources, ok := p.directives[name]
			if !ok {
				continue
			}
			sep()
			writeDirective(&b, name, sources)
		}
	}

	if uri, ok := p.ReportURI(); ok {
		sep()
		b.WriteString("report-uri ")
		b.WriteString(uri)
	}
	if group, ok := p.ReportTo(); ok {
		sep()
		b.WriteString("report-to ")
		b.WriteString(group)
	}
	return b.String()
}

// HeaderName — Content-Security-Policy или его -Report-Only вариант.
func HeaderName(p *Policy) string {
	if p.reportOnly {
		return HeaderReportOnly
	}
	return HeaderEnforce
}
