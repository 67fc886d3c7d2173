package view

//view.go
import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/gorilla/csrf"

	"cspApp/internal/core"
)

//go:embed templates
var files embed.FS

// Templates — структура для хранения шаблонов.
type Templates struct {
	templates map[string]*template.Template
}

// PageData — унифицированная структура для всех шаблонов (OWASP A03, A07).
type PageData struct {
	Title     string
	CSRFField template.HTML
	Nonce     string // тот же nonce, что в заголовке CSP этого ответа
	Data      interface{}
}

const layoutFile = "templates/layouts/base.gohtml"

var pages = map[string]string{
	"home":     "templates/pages/home.gohtml",
	"notfound": "templates/pages/404.gohtml",
}

// New разбирает встроенные шаблоны один раз при старте (OWASP A05).
func New() (*Templates, error) {
	layout, err := template.ParseFS(files, layoutFile)
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга layout: %w", err)
	}

	t := &Templates{templates: make(map[string]*template.Template, len(pages))}
	for name, page := range pages {
		tpl := template.Must(layout.Clone())
		if _, err := tpl.ParseFS(files, page); err != nil {
			return nil, fmt.Errorf("ошибка парсинга шаблона %q: %w", name, err)
		}
		if tpl.Lookup("base") == nil {
			return nil, fmt.Errorf("в шаблонах отсутствует define \"base\" для страницы %s", name)
		}
		t.templates[name] = tpl
	}
	return t, nil
}

// Render рендерит шаблон с nonce из контекста запроса (OWASP A03, A09).
// Статус ответа ставится здесь, чтобы ошибка шаблона успела превратиться в 500.
func (t *Templates) Render(w http.ResponseWriter, r *http.Request, status int, templateName, title string, data interface{}) error {
	tpl, ok := t.templates[templateName]
	if !ok {
		return fmt.Errorf("шаблон не найден: %s", templateName)
	}

	nonce := core.NonceFromContext(r.Context())
	if nonce == "" {
		// без nonce браузер заблокирует inline-скрипты страницы
		return fmt.Errorf("nonce не найден в контексте запроса")
	}

	var buf bytes.Buffer
	err := tpl.ExecuteTemplate(&buf, "base", PageData{
		Title:     title,
		CSRFField: csrf.TemplateField(r),
		Nonce:     nonce,
		Data:      data,
	})
	if err != nil {
		return fmt.Errorf("рендеринг %s: %w", templateName, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err = buf.WriteTo(w)
	return err
}
