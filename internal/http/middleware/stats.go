package middleware

// stats.go
import (
	"net/http"
	"time"

	"cspApp/internal/stats"
)

// Stats учитывает каждый запрос и его длительность.
func Stats(s *stats.Stats) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			defer func() { s.RecordRequest(time.Since(start)) }()
			next.ServeHTTP(w, r)
		})
	}
}
