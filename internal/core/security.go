package core

// security.go
import (
	"net/http"

	"github.com/unrolled/secure"
)

// SecureHeaders добавляет заголовки безопасности, кроме CSP (OWASP A05: Security Misconfiguration).
// CSP ставит отдельный middleware, потому что в нём nonce конкретного запроса.
func SecureHeaders(cfg Config) func(http.Handler) http.Handler {
	s := secure.New(secure.Options{
		FrameDeny:            true,
		ContentTypeNosniff:   true,
		ReferrerPolicy:       "strict-origin-when-cross-origin",
		PermissionsPolicy:    "camera=(), microphone=(), geolocation=(), payment=()",
		STSSeconds:           31536000,
		STSIncludeSubdomains: true,
		STSPreload:           true,
		// HSTS только по HTTPS в проде (OWASP A02: Cryptographic Failures)
		IsDevelopment: !(cfg.Secure && cfg.Env == "prod"),
	})
	return func(next http.Handler) http.Handler {
		return s.Handler(next)
	}
}
