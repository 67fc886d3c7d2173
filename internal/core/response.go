package core

// response.go
import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// ProblemDetail — RFC 7807
type ProblemDetail struct {
	Type     string            `json:"type"`
	Title    string            `json:"title"`
	Status   int               `json:"status"`
	Detail   string            `json:"detail"`
	Instance string            `json:"instance"`
	Code     string            `json:"code"`
	Fields   map[string]string `json:"fields,omitempty"`
}

// JSON — просто отправка
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		LogError("Ошибка кодирования JSON", map[string]interface{}{"error": err})
	}
}

// Fail — ошибка с логированием, ответ в формате application/problem+json
func Fail(w http.ResponseWriter, r *http.Request, err error) {
	ae := From(err)

	reqID := middleware.GetReqID(r.Context())
	if reqID == "" {
		reqID = "n/a"
	}

	fields := map[string]interface{}{
		"request_id": reqID,
		"path":       r.URL.Path,
		"code":       ae.Code,
		"status":     ae.Status,
		"message":    ae.Message,
	}
	if len(ae.Fields) > 0 {
		fields["fields"] = ae.Fields
	}
	if ae.Err != nil {
		fields["error"] = ae.Err.Error()
	}
	// клиентские ошибки — warn, чтобы не шуметь в error-логе
	if ae.Status >= http.StatusInternalServerError {
		LogError("Ошибка запроса", fields)
	} else {
		LogWarn("Ошибка запроса", fields)
	}

	problem := ProblemDetail{
		Type:     "/errors/" + ae.Code,
		Title:    http.StatusText(ae.Status),
		Status:   ae.Status,
		Detail:   ae.Message,
		Instance: "/errors/" + ae.Code,
		Code:     ae.Code,
		Fields:   ae.Fields,
	}

	w.Header().Set("Content-Type", "application/problem+json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(ae.Status)
	if err := json.NewEncoder(w).Encode(problem); err != nil {
		LogError("Ошибка кодирования problem+json", map[string]interface{}{"error": err})
	}
}
