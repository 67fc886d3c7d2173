package handler

// report.go
import (
	"errors"
	"net/http"

	"cspApp/internal/core"
	"cspApp/internal/report"
	"cspApp/internal/stats"
)

// Report принимает отчёты браузера о нарушениях CSP (OWASP A09: Security Logging and Monitoring Failures).
// Отчёт санитизируется до записи в лог и передачи обработчикам.
// Ответ 204 без тела; некорректный отчёт — 400 с кодом причины.
func Report(d *report.Dispatcher, st *stats.Stats, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep, err := report.ParseReader(r.Body, r.Header.Get("Content-Type"), maxBytes)
		if err != nil {
			core.Fail(w, r, reportError(err))
			return
		}

		st.RecordViolation()
		clean := rep.Sanitized()
		core.LogWarn("CSP violation", clean.Fields())

		if !d.Dispatch(clean) {
			core.LogWarn("Очередь отчётов переполнена, отчёт отброшен", map[string]interface{}{
				"dropped": d.Dropped(),
			})
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// reportError: любая ошибка разбора — 400 с машинным кодом причины.
func reportError(err error) *core.AppError {
	var pe *report.ParseError
	if !errors.As(err, &pe) {
		return core.Internal("ошибка чтения отчёта", err)
	}
	ae := core.BadRequest(string(pe.Kind), "некорректный отчёт CSP", err)
	if pe.Field != "" {
		ae = ae.WithField(pe.Field, "отсутствует или неверного типа")
	}
	return ae
}
