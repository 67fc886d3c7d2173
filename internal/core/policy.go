package core

// policy.go
import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"cspApp/internal/csp"
)

// PolicyDocument — политика CSP в YAML-файле (CSP_POLICY_FILE).
//
//	directives:
//	  default-src: ["'self'"]
//	  script-src: ["'self'", "cdn.example.com"]
//	report_uri: /csp-report
//	report_only: false
type PolicyDocument struct {
	Directives              map[string][]string `yaml:"directives"`
	ReportURI               string              `yaml:"report_uri,omitempty"`
	ReportTo                string              `yaml:"report_to,omitempty"`
	ReportOnly              bool                `yaml:"report_only,omitempty"`
	UpgradeInsecureRequests bool                `yaml:"upgrade_insecure_requests,omitempty"`
	BlockAllMixedContent    bool                `yaml:"block_all_mixed_content,omitempty"`
	Sandbox                 []string            `yaml:"sandbox,omitempty"`
}

// DefaultPolicyDocument — строгая политика для встроенных страниц.
// Inline-скрипты и стили разрешаются только по nonce запроса.
func DefaultPolicyDocument() PolicyDocument {
	return PolicyDocument{
		Directives: map[string][]string{
			"default-src":     {"'self'"},
			"script-src":      {"'self'", "https://cdn.jsdelivr.net"},
			"style-src":       {"'self'", "https://cdn.jsdelivr.net"},
			"img-src":         {"'self'", "data:"},
			"font-src":        {"'self'", "https://cdn.jsdelivr.net", "data:"},
			"connect-src":     {"'self'", "https://cdn.jsdelivr.net"},
			"object-src":      {"'none'"},
			"base-uri":        {"'self'"},
			"form-action":     {"'self'"},
			"frame-ancestors": {"'none'"},
		},
	}
}

// LoadPolicyDocument читает YAML-файл; пустой путь — политика по умолчанию.
func LoadPolicyDocument(path string) (PolicyDocument, error) {
	if path == "" {
		return DefaultPolicyDocument(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return PolicyDocument{}, fmt.Errorf("policy: чтение %s: %w", path, err)
	}
	return ParsePolicyDocument(raw)
}

func ParsePolicyDocument(raw []byte) (PolicyDocument, error) {
	var doc PolicyDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return PolicyDocument{}, fmt.Errorf("policy: разбор YAML: %w", err)
	}
	if len(doc.Directives) == 0 {
		return PolicyDocument{}, errors.New("policy: в файле нет директив")
	}
	return doc, nil
}

// ApplyConfig дополняет документ значениями из окружения: report-uri и report-to
// из конфига используются, только если файл их не задал; report-only включается любым источником.
func (d PolicyDocument) ApplyConfig(cfg Config) PolicyDocument {
	if d.ReportURI == "" {
		d.ReportURI = cfg.ReportURI
	}
	if d.ReportTo == "" {
		d.ReportTo = cfg.ReportTo
	}
	d.ReportOnly = d.ReportOnly || cfg.ReportOnly
	return d
}

// Builder переводит документ в csp.Builder. Ошибки разбора токенов
// собираются все сразу; директивы обходятся в каноническом порядке,
// неизвестные имена идут последними по алфавиту.
func (d PolicyDocument) Builder() (*csp.Builder, error) {
	b, errs := d.builder()
	if len(errs) > 0 {
		return nil, errs
	}
	return b, nil
}

func (d PolicyDocument) builder() (*csp.Builder, csp.ValidationErrors) {
	b := csp.NewBuilder()
	var errs csp.ValidationErrors

	byName := make(map[csp.DirectiveName][]string, len(d.Directives))
	var unknown []string
	for rawName, tokens := range d.Directives {
		name, ok := csp.ParseDirectiveName(rawName)
		if !ok || !name.TakesSources() {
			unknown = append(unknown, rawName)
			continue
		}
		byName[name] = append(byName[name], tokens...)
	}

	for _, name := range csp.CanonicalOrder() {
		tokens, ok := byName[name]
		if !ok {
			continue
		}
		sources, err := csp.ParseSources(tokens)
		if err != nil {
			var verrs csp.ValidationErrors
			if errors.As(err, &verrs) {
				for _, e := range verrs {
					e.Directive = name
					errs = append(errs, e)
				}
			}
			continue
		}
		for _, s := range sources {
			// nonce подставляется на каждый запрос, в файле он был бы постоянным
			if s.Kind() == csp.KindNonce {
				errs = append(errs, &csp.ValidationError{Kind: csp.InvalidNonce, Directive: name, Value: s.String()})
			}
		}
		b.Set(name, sources...)
	}

	slices.Sort(unknown)
	for _, rawName := range unknown {
		errs = append(errs, &csp.ValidationError{Kind: csp.UnknownDirective, Directive: csp.DirectiveName(rawName)})
	}

	if d.Sandbox != nil {
		b.Sandbox(d.Sandbox...)
	}
	b.UpgradeInsecureRequests(d.UpgradeInsecureRequests).
		BlockAllMixedContent(d.BlockAllMixedContent).
		ReportURI(strings.TrimSpace(d.ReportURI)).
		ReportTo(strings.TrimSpace(d.ReportTo)).
		ReportOnly(d.ReportOnly)
	return b, errs
}

// BuildPolicy собирает и проверяет политику: ошибки разбора файла и ошибки
// валидации возвращаются одним списком. Предупреждения пишутся в лог.
func (d PolicyDocument) BuildPolicy() (*csp.Policy, error) {
	b, errs := d.builder()
	p, err := b.Build()
	if err != nil {
		var verrs csp.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, err
		}
		errs = append(errs, verrs...)
	}
	if len(errs) > 0 {
		return nil, errs
	}
	for _, w := range b.Warnings() {
		LogWarn("Предупреждение политики CSP", map[string]interface{}{
			"directive": string(w.Directive),
			"source":    w.Source.String(),
			"message":   w.Message,
		})
	}
	return p, nil
}
