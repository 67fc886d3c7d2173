package middleware

// nonce.go
import (
	"net/http"

	"github.com/google/uuid"

	"cspApp/internal/core"
	"cspApp/internal/nonce"
)

// Nonce получает nonce запроса из кэша и кладёт его в контекст.
// Ключ кэша — свой UUID на каждый запрос: X-Request-ID приходит от клиента,
// и по нему можно было бы заранее узнать чужой nonce.
func Nonce(cache *nonce.Cache) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if core.NonceFromContext(r.Context()) != "" {
				next.ServeHTTP(w, r)
				return
			}
			n, err := cache.GetOrCreate(uuid.NewString())
			if err != nil {
				core.Fail(w, r, core.Internal("nonce недоступен", err))
				return
			}
			next.ServeHTTP(w, r.WithContext(core.WithNonce(r.Context(), n)))
		})
	}
}
