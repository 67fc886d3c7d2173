package middleware

// csp.go
import (
	"net/http"

	"cspApp/internal/core"
	"cspApp/internal/csp"
)

// PolicySource — откуда брать текущую политику (*csp.Holder).
type PolicySource interface {
	Load() *csp.Policy
}

// CSP ставит заголовок Content-Security-Policy (или -Report-Only) с nonce
// текущего запроса. Политика читается один раз на запрос, поэтому имя и
// значение заголовка всегда от одной политики, даже если её заменили.
func CSP(policies PolicySource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n := core.NonceFromContext(r.Context())
			if n == "" {
				core.Fail(w, r, core.Internal("Nonce не найден в контексте", nil))
				return
			}
			p := policies.Load().WithNonce(n)
			w.Header().Set(p.HeaderName(), p.String())
			next.ServeHTTP(w, r)
		})
	}
}
