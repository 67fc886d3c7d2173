package csp

// builder.go
import (
	"slices"
)

// Builder накапливает директивы и собирает Policy. Не потокобезопасен:
// используется из одной горутины, обычно на старте процесса.
//
// Повторный вызов сеттера той же директивы заменяет список целиком
// (последняя запись побеждает), источники не накапливаются.
type Builder struct {
	directives map[DirectiveName][]Source
	flags      map[DirectiveName]struct{}
	sandbox    []string
	hasSandbox bool
	reportURI  string
	reportTo   string
	reportOnly bool

	setErrs  ValidationErrors // ошибки самих вызовов Set (неизвестная директива)
	warnings []Warning
}

func NewBuilder() *Builder {
	return &Builder{
		directives: make(map[DirectiveName][]Source),
		flags:      make(map[DirectiveName]struct{}),
	}
}

// Set задаёт источники директивы. Дубликаты схлопываются, порядок вставки сохраняется.
func (b *Builder) Set(name DirectiveName, sources ...Source) *Builder {
	if !name.TakesSources() {
		b.setErrs = append(b.setErrs, &ValidationError{Kind: UnknownDirective, Directive: name})
		return b
	}
	b.directives[name] = dedupe(sources)
	return b
}

// Unset убирает директиву из будущей политики.
func (b *Builder) Unset(name DirectiveName) *Builder {
	delete(b.directives, name)
	delete(b.flags, name)
	if name == Sandbox {
		b.sandbox, b.hasSandbox = nil, false
	}
	return b
}

func (b *Builder) DefaultSrc(s ...Source) *Builder     { return b.Set(DefaultSrc, s...) }
func (b *Builder) ScriptSrc(s ...Source) *Builder      { return b.Set(ScriptSrc, s...) }
func (b *Builder) ScriptSrcElem(s ...Source) *Builder  { return b.Set(ScriptSrcElem, s...) }
func (b *Builder) ScriptSrcAttr(s ...Source) *Builder  { return b.Set(ScriptSrcAttr, s...) }
func (b *Builder) StyleSrc(s ...Source) *Builder       { return b.Set(StyleSrc, s...) }
func (b *Builder) StyleSrcElem(s ...Source) *Builder   { return b.Set(StyleSrcElem, s...) }
func (b *Builder) StyleSrcAttr(s ...Source) *Builder   { return b.Set(StyleSrcAttr, s...) }
func (b *Builder) ImgSrc(s ...Source) *Builder         { return b.Set(ImgSrc, s...) }
func (b *Builder) ConnectSrc(s ...Source) *Builder     { return b.Set(ConnectSrc, s...) }
func (b *Builder) FontSrc(s ...Source) *Builder        { return b.Set(FontSrc, s...) }
func (b *Builder) ObjectSrc(s ...Source) *Builder      { return b.Set(ObjectSrc, s...) }
func (b *Builder) MediaSrc(s ...Source) *Builder       { return b.Set(MediaSrc, s...) }
func (b *Builder) FrameSrc(s ...Source) *Builder       { return b.Set(FrameSrc, s...) }
func (b *Builder) ChildSrc(s ...Source) *Builder       { return b.Set(ChildSrc, s...) }
func (b *Builder) WorkerSrc(s ...Source) *Builder      { return b.Set(WorkerSrc, s...) }
func (b *Builder) ManifestSrc(s ...Source) *Builder    { return b.Set(ManifestSrc, s...) }
func (b *Builder) BaseURI(s ...Source) *Builder        { return b.Set(BaseURI, s...) }
func (b *Builder) FormAction(s ...Source) *Builder     { return b.Set(FormAction, s...) }
func (b *Builder) FrameAncestors(s ...Source) *Builder { return b.Set(FrameAncestors, s...) }

// ReportURI задаёт адрес для отчётов; пустая строка снимает значение.
func (b *Builder) ReportURI(uri string) *Builder {
	b.reportURI = uri
	return b
}

// ReportTo задаёт имя группы Reporting API.
func (b *Builder) ReportTo(group string) *Builder {
	b.reportTo = group
	return b
}

func (b *Builder) ReportOnly(on bool) *Builder {
	b.reportOnly = on
	return b
}

func (b *Builder) UpgradeInsecureRequests(on bool) *Builder { return b.flag(UpgradeInsecureRequests, on) }

func (b *Builder) BlockAllMixedContent(on bool) *Builder { return b.flag(BlockAllMixedContent, on) }

// Sandbox включает директиву sandbox; без токенов получается самый строгий режим.
func (b *Builder) Sandbox(tokens ...string) *Builder {
	b.sandbox = dedupeStrings(tokens)
	b.hasSandbox = true
	return b
}

func (b *Builder) flag(name DirectiveName, on bool) *Builder {
	if on {
		b.flags[name] = struct{}{}
	} else {
		delete(b.flags, name)
	}
	return b
}

// Build проверяет накопленные директивы и возвращает политику.
// Все нарушения собираются в ValidationErrors за один проход.
// Предупреждения доступны через Warnings.
func (b *Builder) Build() (*Policy, error) {
	p := b.snapshot()
	warnings, err := Validate(p)
	b.warnings = warnings

	errs := slices.Clone(b.setErrs)
	if err != nil {
		errs = append(errs, err.(ValidationErrors)...)
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return p, nil
}

// BuildUnchecked собирает политику без проверок. Результат может быть
// некорректным; вызывающий берёт риск на себя. Проверить позже можно через Validate.
func (b *Builder) BuildUnchecked() *Policy {
	b.warnings = nil
	return b.snapshot()
}

// Warnings — замечания последнего вызова Build.
func (b *Builder) Warnings() []Warning {
	return slices.Clone(b.warnings)
}

// snapshot копирует состояние, чтобы билдер можно было переиспользовать.
func (b *Builder) snapshot() *Policy {
	p := &Policy{
		directives: make(map[DirectiveName][]Source, len(b.directives)),
		flags:      make(map[DirectiveName]struct{}, len(b.flags)),
		sandbox:    slices.Clone(b.sandbox),
		hasSandbox: b.hasSandbox,
		reportURI:  b.reportURI,
		reportTo:   b.reportTo,
		reportOnly: b.reportOnly,
	}
	for k, v := range b.directives {
		p.directives[k] = slices.Clone(v)
	}
	for k := range b.flags {
		p.flags[k] = struct{}{}
	}
	return p
}

func dedupeStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}
