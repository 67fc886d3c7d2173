package storage

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"

	"github.com/jmoiron/sqlx"

	"cspApp/internal/core"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrations управляет версиями БД
type Migrations struct {
	db    *sqlx.DB
	files fs.FS
}

// NewMigrations создаёт мигратор по встроенным SQL-файлам
func NewMigrations(db *sqlx.DB) *Migrations {
	return &Migrations{db: db, files: migrationFiles}
}

// RunMigrations выполняет все миграции, которых ещё нет в schema_migrations
func (m *Migrations) RunMigrations(ctx context.Context) error {
	// Создаёт таблицу миграций, если не существует
	if err := m.createMigrationsTable(ctx); err != nil {
		return fmt.Errorf("ошибка создания таблицы миграций: %w", err)
	}

	files, err := fs.Glob(m.files, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("ошибка поиска миграций: %w", err)
	}
	// Сортирует по номеру (001, 002...)
	sort.Strings(files)

	for _, file := range files {
		if err := m.runMigration(ctx, file); err != nil {
			return fmt.Errorf("ошибка миграции %s: %w", file, err)
		}
	}

	core.LogInfo("Миграции завершены успешно", map[string]interface{}{
		"files": len(files),
	})
	return nil
}

const createMigrationsTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
	id INT AUTO_INCREMENT PRIMARY KEY,
	name VARCHAR(255) NOT NULL UNIQUE,
	applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`

func (m *Migrations) createMigrationsTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, createMigrationsTable)
	return err
}

// runMigration выполняет одну миграцию в транзакции
func (m *Migrations) runMigration(ctx context.Context, file string) error {
	name := path.Base(file)

	// Проверяет, применена ли уже миграция
	var applied int
	if err := m.db.GetContext(ctx, &applied, "SELECT COUNT(*) FROM schema_migrations WHERE name = ?", name); err != nil {
		return fmt.Errorf("ошибка проверки миграции: %w", err)
	}
	if applied > 0 {
		core.LogDebug("Миграция уже применена", map[string]interface{}{"file": name})
		return nil
	}

	sqlBytes, err := fs.ReadFile(m.files, file)
	if err != nil {
		return fmt.Errorf("ошибка чтения файла: %w", err)
	}

	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, string(sqlBytes)); err != nil {
		return fmt.Errorf("ошибка выполнения SQL: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (name) VALUES (?)", name); err != nil {
		return fmt.Errorf("ошибка записи миграции: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ошибка коммита: %w", err)
	}

	core.LogInfo("Миграция применена", map[string]interface{}{"file": name})
	return nil
}
