package handler

// stats.go
import (
	"context"
	"net/http"
	"strconv"

	"cspApp/internal/core"
	"cspApp/internal/stats"
	"cspApp/internal/storage"
)

// Stats — снимок счётчиков движка в JSON.
func Stats(st *stats.Stats) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		core.JSON(w, http.StatusOK, st.Snapshot())
	}
}

// ViolationStore — чтение сохранённых отчётов (реализует storage.ViolationRepo).
type ViolationStore interface {
	Recent(ctx context.Context, limit int) ([]storage.Violation, error)
	CountByDirective(ctx context.Context) ([]storage.DirectiveCount, error)
}

// Violations — последние отчёты из БД и разбивка по директивам.
// ?limit=N ограничивает выборку; репозиторий сам приводит его к допустимому диапазону.
func Violations(store ViolationStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				core.Fail(w, r, core.BadRequest("invalid_limit", "limit должен быть неотрицательным числом", err).
					WithField("limit", "ожидается целое число"))
				return
			}
			limit = n
		}

		recent, err := store.Recent(r.Context(), limit)
		if err != nil {
			core.Fail(w, r, core.Internal("ошибка чтения отчётов", err))
			return
		}
		counts, err := store.CountByDirective(r.Context())
		if err != nil {
			core.Fail(w, r, core.Internal("ошибка чтения отчётов", err))
			return
		}
		core.JSON(w, http.StatusOK, map[string]any{
			"recent":       recent,
			"by_directive": counts,
		})
	}
}
