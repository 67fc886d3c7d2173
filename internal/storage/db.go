package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"cspApp/internal/core"
)

// Настройки пула подключений
const (
	maxOpenConns    = 25
	maxIdleConns    = 25
	connMaxLifetime = 5 * time.Minute
)

// NewDB создаёт пул подключений к MySQL с продакшн-настройками
// Инициализирует connection pool и проверяет подключение
func NewDB(ctx context.Context, dsn string) (*sqlx.DB, error) {
	normalized, err := normalizeDSN(dsn)
	if err != nil {
		return nil, err
	}

	// Подключение к MySQL
	db, err := sqlx.ConnectContext(ctx, "mysql", normalized)
	if err != nil {
		core.LogError("ошибка подключения к MySQL", map[string]interface{}{
			"error": err.Error(),
			"dsn":   sanitizedDSN(normalized),
		})
		return nil, err
	}

	// Настройка connection pool для продакшена
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	core.LogInfo("MySQL подключение успешно", map[string]interface{}{
		"dsn":      sanitizedDSN(normalized),
		"max_open": maxOpenConns,
		"max_idle": maxIdleConns,
	})
	return db, nil
}

// Close корректно закрывает пул подключений
// Вызывается при graceful shutdown приложения
func Close(db *sqlx.DB) error {
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		core.LogError("ошибка закрытия MySQL пула", map[string]interface{}{
			"error": err.Error(),
		})
		return err
	}
	core.LogInfo("MySQL пул закрыт", nil)
	return nil
}

// normalizeDSN дописывает обязательные параметры к DSN из окружения.
func normalizeDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("storage: неверный MYSQL_DSN: %w", err)
	}
	cfg.ParseTime = true        // Парсинг времени
	cfg.InterpolateParams = true
	cfg.MultiStatements = false // Безопасность SQL
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 5 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.Params == nil {
		cfg.Params = map[string]string{}
	}
	if _, ok := cfg.Params["charset"]; !ok {
		cfg.Params["charset"] = "utf8mb4" // Unicode + эмодзи
	}
	return cfg.FormatDSN(), nil
}

// sanitizedDSN удаляет пароль из DSN для логирования
func sanitizedDSN(dsn string) string {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "invalid dsn"
	}
	if cfg.Passwd != "" {
		cfg.Passwd = "***"
	}
	return cfg.FormatDSN()
}
