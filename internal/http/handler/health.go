package handler

// health.go
import (
	"context"
	"net/http"
	"time"

	"cspApp/internal/core"
)

// Pinger — то, что умеет проверить свою доступность (например, *sqlx.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

func Health(w http.ResponseWriter, r *http.Request) {
	core.JSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// Ready проверяет БД, если она настроена; без БД сервис готов сразу.
func Ready(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db == nil {
			core.JSON(w, http.StatusOK, map[string]any{"ready": true})
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			core.LogWarn("БД недоступна", map[string]interface{}{"error": err})
			core.JSON(w, http.StatusServiceUnavailable, map[string]any{"ready": false})
			return
		}
		core.JSON(w, http.StatusOK, map[string]any{"ready": true})
	}
}
