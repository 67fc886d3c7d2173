package core

//config.go

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config определяет настройки приложения (OWASP A05: Security Misconfiguration, A02: Cryptographic Failures)
type Config struct {
	AppName           string        `validate:"required"`       // Имя приложения
	Addr              string        `validate:"required"`       // Адрес HTTP-сервера (например, ":8080")
	Env               string        `validate:"oneof=dev prod"` // Среда выполнения
	LogLevel          string        // debug, info, warn, error
	CSRFKey           string        `validate:"required"` // Ключ для CSRF-защиты
	Secure            bool          // Включает HTTPS-заголовки (HSTS)
	ShutdownTimeout   time.Duration `validate:"gt=0"`
	ReadHeaderTimeout time.Duration `validate:"gt=0"`
	ReadTimeout       time.Duration `validate:"gt=0"`
	WriteTimeout      time.Duration `validate:"gt=0"`
	IdleTimeout       time.Duration `validate:"gt=0"`
	RequestTimeout    time.Duration `validate:"gt=0"` // Таймаут обработки запроса в middleware

	// Nonce и кэш nonce
	NonceLength   int           `validate:"gte=16,lte=64"` // байт случайности в одном nonce
	CacheCapacity int           `validate:"gte=1"`         // максимум записей в кэше nonce
	CacheTTL      time.Duration `validate:"gt=0"`          // время жизни записи
	SweepInterval time.Duration `validate:"gte=0"`         // 0 — без фоновой очистки

	// Политика и отчёты
	PolicyFile     string // YAML; пусто — политика по умолчанию
	ReportOnly     bool
	ReportURI      string
	ReportTo       string
	ReportMaxBytes int64  `validate:"gt=0"`
	ReportQueue    int    `validate:"gte=0"` // 0 — обработчик вызывается синхронно
	ReportOverflow string `validate:"oneof=drop_newest drop_oldest"`

	MySQLDSN string // пусто — отчёты только в лог
}

// Load загружает конфигурацию из переменных окружения с значениями по умолчанию (OWASP A05)
// и проверяет её. Ошибка означает, что стартовать нельзя.
func Load() (Config, error) {
	cfg := Config{
		AppName:           getEnv("APP_NAME", "cspApp"),
		Addr:              getEnv("HTTP_ADDR", ":8080"),
		Env:               getEnv("APP_ENV", "dev"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		CSRFKey:           getEnv("CSRF_KEY", ""),
		Secure:            getEnvBool("SECURE", false),
		ShutdownTimeout:   getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		ReadHeaderTimeout: getEnvDuration("READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       getEnvDuration("READ_TIMEOUT", 10*time.Second),
		WriteTimeout:      getEnvDuration("WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:       getEnvDuration("IDLE_TIMEOUT", 60*time.Second),
		RequestTimeout:    getEnvDuration("REQUEST_TIMEOUT", 15*time.Second),

		NonceLength:   getEnvInt("NONCE_LENGTH", 16),
		CacheCapacity: getEnvInt("NONCE_CACHE_CAPACITY", 10000),
		CacheTTL:      getEnvDuration("NONCE_CACHE_TTL", 5*time.Minute),
		SweepInterval: getEnvDuration("NONCE_CACHE_SWEEP", time.Minute),

		PolicyFile:     getEnv("CSP_POLICY_FILE", ""),
		ReportOnly:     getEnvBool("CSP_REPORT_ONLY", false),
		ReportURI:      getEnv("CSP_REPORT_URI", "/csp-report"),
		ReportTo:       getEnv("CSP_REPORT_TO", ""),
		ReportMaxBytes: int64(getEnvInt("CSP_REPORT_MAX_BYTES", 16<<10)),
		ReportQueue:    getEnvInt("CSP_REPORT_QUEUE", 0),
		ReportOverflow: getEnv("CSP_REPORT_OVERFLOW", "drop_newest"),

		MySQLDSN: getEnv("MYSQL_DSN", ""),
	}

	if cfg.CSRFKey == "" {
		if cfg.Env == "prod" {
			return cfg, errors.New("config: CSRF_KEY обязателен в продакшене")
		}
		key, err := generateRandomKey()
		if err != nil {
			return cfg, err
		}
		cfg.CSRFKey = key
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate проверяет значения по тегам validate и правилам продакшена.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			parts := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				parts = append(parts, fmt.Sprintf("%s (%s=%s, got %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value()))
			}
			return fmt.Errorf("config: %s", strings.Join(parts, "; "))
		}
		return fmt.Errorf("config: %w", err)
	}
	if c.Env == "prod" && len(c.CSRFKey) < 32 {
		return fmt.Errorf("config: недостаточная длина CSRF_KEY в продакшене (%d)", len(c.CSRFKey))
	}
	return nil
}

// getEnv возвращает значение переменной окружения или значение по умолчанию
func getEnv(key, def string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	return val
}

// getEnvDuration возвращает значение длительности из переменной окружения или значение по умолчанию
func getEnvDuration(key string, def time.Duration) time.Duration {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		LogError("Неверный формат длительности", map[string]interface{}{"key": key, "value": val, "error": err.Error()})
		return def
	}
	return d
}

func getEnvInt(key string, def int) int {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		LogError("Неверный формат числа", map[string]interface{}{"key": key, "value": val, "error": err.Error()})
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		LogError("Неверный формат bool", map[string]interface{}{"key": key, "value": val, "error": err.Error()})
		return def
	}
	return b
}

// generateRandomKey создаёт случайный 32-байтовый ключ для CSRF в формате base64 (только dev)
func generateRandomKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("config: генерация CSRF-ключа: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}
