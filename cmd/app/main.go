package main

//main.go
import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"cspApp/internal/app"
	"cspApp/internal/core"
	"cspApp/internal/storage"
)

func main() {
	// 1) Конфиг и логи
	config, err := core.Load()
	if err != nil {
		core.LogError("Ошибка конфигурации", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	core.SetLogger(core.NewLogger(os.Stderr, config.LogLevel))
	core.LogInfo("Конфигурация загружена", map[string]interface{}{
		"secure": config.Secure,
		"env":    config.Env,
	})

	// 2) Контекст для фоновых задач (очистка кэша nonce)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3) БД необязательна: без MYSQL_DSN отчёты только пишутся в лог
	db := initDB(ctx, config)

	// 4) Сборка приложения: политика, кэш nonce, отчёты, роутер
	application := initApp(config, db)
	application.StartSweeper(ctx)
	startPolicyReload(ctx, application)

	// 5) HTTP-сервер с таймаутами (OWASP A05)
	srv := core.Server(config, application.Handler)

	// 6) Перехват сигналов
	sigs, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 7) Запуск сервера
	runServer(srv, config)

	// 8) Ожидаем сигнал завершения
	waitShutdown(sigs, srv, config)

	// 9) Закрытие ресурсов: сначала очередь отчётов, потом БД
	cancel()
	closeCtx, closeCancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer closeCancel()
	if cerr := application.Close(closeCtx); cerr != nil {
		core.LogError("Очередь отчётов не разобрана до конца", map[string]interface{}{"error": cerr.Error()})
	}
	if db != nil {
		if cerr := storage.Close(db); cerr != nil {
			core.LogError("Ошибка закрытия MySQL", map[string]interface{}{"error": cerr.Error()})
		}
	}
}

// initDB — подключение и миграции.
func initDB(ctx context.Context, cfg core.Config) *sqlx.DB {
	if cfg.MySQLDSN == "" {
		core.LogInfo("MYSQL_DSN не задан, отчёты не сохраняются", nil)
		return nil
	}
	db, err := storage.NewDB(ctx, cfg.MySQLDSN)
	if err != nil {
		core.LogError("Ошибка инициализации MySQL", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	if err := storage.NewMigrations(db).RunMigrations(ctx); err != nil {
		core.LogError("Ошибка выполнения миграций", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	return db
}

// startPolicyReload — SIGHUP перечитывает CSP_POLICY_FILE без перезапуска
func startPolicyReload(ctx context.Context, a *app.App) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		defer signal.Stop(hup)
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				if err := a.ReloadPolicy(); err != nil {
					core.LogError("Политика не обновлена, действует прежняя", map[string]interface{}{"error": err.Error()})
				}
			}
		}
	}()
}

// initApp — сборка приложения
func initApp(cfg core.Config, db *sqlx.DB) *app.App {
	a, err := app.New(cfg, db)
	if err != nil {
		core.LogError("Ошибка инициализации приложения", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	return a
}

// gracefulShutdown — корректное завершение
func gracefulShutdown(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

// runServer — запуск (ListenAndServe) в горутине
func runServer(srv *http.Server, cfg core.Config) {
	go func() {
		core.LogInfo("http: сервер запущен", map[string]interface{}{
			"addr": cfg.Addr,
			"env":  cfg.Env,
			"app":  cfg.AppName,
		})
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			core.LogError("Ошибка работы сервера", map[string]interface{}{"error": err.Error()})
			os.Exit(1)
		}
	}()
}

// waitShutdown — ожидание сигналов и shutdown
func waitShutdown(sigs context.Context, srv *http.Server, cfg core.Config) {
	<-sigs.Done()
	core.LogInfo("http: начат процесс завершения", nil)
	if err := gracefulShutdown(srv, cfg.ShutdownTimeout); err != nil {
		core.LogError("Ошибка завершения сервера", map[string]interface{}{"error": err.Error()})
	} else {
		core.LogInfo("http: завершение выполнено", nil)
	}
}
