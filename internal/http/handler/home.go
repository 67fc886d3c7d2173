package handler

//home.go
import (
	"net/http"

	"cspApp/internal/core"
	"cspApp/internal/view"
)

// Home — демонстрационная страница: inline-скрипт с nonce и форма с CSRF (OWASP A03: Injection)
func Home(tpl *view.Templates) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render(w, r, tpl, http.StatusOK, "home", "Главная", nil)
	}
}

// HomeSubmit — POST формы; сюда доходят только запросы с верным CSRF-токеном (OWASP A01).
func HomeSubmit(tpl *view.Templates) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render(w, r, tpl, http.StatusOK, "home", "Главная", "CSRF-токен принят")
	}
}

// render общий для страниц: ошибка шаблона превращается в 500 и пишется в лог.
func render(w http.ResponseWriter, r *http.Request, tpl *view.Templates, status int, name, title string, data interface{}) {
	if err := tpl.Render(w, r, status, name, title, data); err != nil {
		core.LogError("Ошибка рендеринга шаблона "+name, map[string]interface{}{
			"error": err.Error(),
			"path":  r.URL.Path,
		})
		core.Fail(w, r, core.Internal("Ошибка отображения страницы", err))
	}
}
