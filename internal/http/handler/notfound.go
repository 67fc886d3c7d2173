package handler

import (
	"net/http"

	"cspApp/internal/view"
)

// NotFound — страница 404 (OWASP A03)
func NotFound(tpl *view.Templates) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render(w, r, tpl, http.StatusNotFound, "notfound", "Страница не найдена", nil)
	}
}
