package httpx

// router.go
import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cspApp/internal/core"
	"cspApp/internal/csp"
	"cspApp/internal/http/handler"
	"cspApp/internal/http/middleware"
	"cspApp/internal/nonce"
	"cspApp/internal/report"
	"cspApp/internal/stats"
	"cspApp/internal/view"
)

// DefaultReportPath — куда браузер шлёт отчёты, если report-uri абсолютный или не задан.
const DefaultReportPath = "/csp-report"

// Deps — всё, что нужно роутеру. Violations и DB необязательны (без MySQL).
type Deps struct {
	Config     core.Config
	CSRFKey    []byte // 32 байта
	Policy     *csp.Holder // текущая политика, заменяется на лету
	Cache      *nonce.Cache
	Stats      *stats.Stats
	Dispatcher *report.Dispatcher
	Templates  *view.Templates
	Violations handler.ViolationStore
	DB         handler.Pinger
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	middleware.UseCommon(r, d.Config.RequestTimeout) // request id, real ip, logger, recover, timeout
	r.Use(middleware.Stats(d.Stats))
	r.Use(core.SecureHeaders(d.Config))

	// служебные
	r.Get("/healthz", handler.Health)
	r.Get("/readyz", handler.Ready(d.DB))
	r.Handle("/metrics", metricsHandler(d.Stats))

	// отчёты о нарушениях: без CSRF, браузер шлёт их без токена
	r.Post(reportPath(d.Config.ReportURI), handler.Report(d.Dispatcher, d.Stats, d.Config.ReportMaxBytes))
	r.Get("/csp/stats", handler.Stats(d.Stats))
	if d.Violations != nil {
		r.Get("/csp/violations", handler.Violations(d.Violations))
	}

	// HTML-страницы: nonce, CSP с nonce, CSRF
	pages := chi.Chain(
		middleware.Nonce(d.Cache),
		middleware.CSP(d.Policy),
	)
	r.Group(func(r chi.Router) {
		r.Use(pages...)
		r.Use(csrfProtect(d))
		r.Get("/", handler.Home(d.Templates))
		r.Post("/", handler.HomeSubmit(d.Templates))
	})
	r.NotFound(pages.HandlerFunc(handler.NotFound(d.Templates)).ServeHTTP)
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		core.Fail(w, r, &core.AppError{Code: "method_not_allowed", Status: http.StatusMethodNotAllowed, Message: "метод не поддерживается"})
	})

	return r
}

// reportPath берёт путь из report-uri, если он относительный.
func reportPath(uri string) string {
	if strings.HasPrefix(uri, "/") && !strings.HasPrefix(uri, "//") {
		if i := strings.IndexAny(uri, "?#"); i >= 0 {
			uri = uri[:i]
		}
		return uri
	}
	return DefaultReportPath
}

// csrfProtect — gorilla/csrf; без HTTPS запросы помечаются как plaintext,
// иначе проверка Referer отклонит POST с http-страницы (OWASP A01).
func csrfProtect(d Deps) func(http.Handler) http.Handler {
	protect := csrf.Protect(d.CSRFKey,
		csrf.Secure(d.Config.Secure),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			core.Fail(w, r, core.Forbidden("CSRF-токен отсутствует или неверен"))
		})),
	)
	return func(next http.Handler) http.Handler {
		h := protect(next)
		if d.Config.Secure {
			return h
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
		})
	}
}

// metricsHandler — отдельный реестр: счётчики движка и рантайм Go.
func metricsHandler(st *stats.Stats) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		stats.NewCollector(st),
		collectors.NewGoCollector(),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
