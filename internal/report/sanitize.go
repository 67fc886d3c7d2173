package report

// sanitize.go
import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// readable возвращает только апостроф и амперсанд: 'self' и query-строки
// остаются читаемыми, а &lt; &gt; &#34; так и остаются сущностями.
var readable = strings.NewReplacer("&#39;", "'", "&amp;", "&")

// Sanitized возвращает копию отчёта, где строковые поля очищены от разметки.
// Все поля присылает клиент, в логи и БД идёт только очищенная копия.
// Угловые скобки и кавычки остаются экранированными, раскодированы только ' и &.
func (r *ViolationReport) Sanitized() *ViolationReport {
	out := *r
	out.DocumentURI = clean(r.DocumentURI)
	out.ViolatedDirective = clean(r.ViolatedDirective)
	out.OriginalPolicy = clean(r.OriginalPolicy)
	out.Referrer = sanitizePtr(r.Referrer)
	out.EffectiveDirective = sanitizePtr(r.EffectiveDirective)
	out.BlockedURI = sanitizePtr(r.BlockedURI)
	out.ScriptSample = sanitizePtr(r.ScriptSample)
	out.Disposition = sanitizePtr(r.Disposition)
	out.SourceFile = sanitizePtr(r.SourceFile)
	return &out
}

func sanitizePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := clean(*s)
	return &v
}

func clean(s string) string {
	return readable.Replace(strict.Sanitize(s))
}

// Fields — плоское представление для LogInfo/LogWarn.
func (r *ViolationReport) Fields() map[string]interface{} {
	f := map[string]interface{}{
		"document_uri":       r.DocumentURI,
		"violated_directive": r.ViolatedDirective,
		"original_policy":    r.OriginalPolicy,
	}
	put := func(k string, v *string) {
		if v != nil {
			f[k] = *v
		}
	}
	put("referrer", r.Referrer)
	put("effective_directive", r.EffectiveDirective)
	put("blocked_uri", r.BlockedURI)
	put("script_sample", r.ScriptSample)
	put("disposition", r.Disposition)
	put("source_file", r.SourceFile)
	if r.StatusCode != nil {
		f["status_code"] = *r.StatusCode
	}
	if r.LineNumber != nil {
		f["line_number"] = *r.LineNumber
	}
	if r.ColumnNumber != nil {
		f["column_number"] = *r.ColumnNumber
	}
	return f
}
