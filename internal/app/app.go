package app

// internal/app/app.go
import (
	"context"
	"crypto/sha256"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	"cspApp/internal/core"
	"cspApp/internal/csp"
	httpx "cspApp/internal/http"
	"cspApp/internal/nonce"
	"cspApp/internal/report"
	"cspApp/internal/stats"
	"cspApp/internal/storage"
	"cspApp/internal/view"
)

// reportWriteTimeout — сколько даём одной записи отчёта в БД.
const reportWriteTimeout = 3 * time.Second

// App — собранное приложение: роутер и всё, что нужно остановить при выходе.
type App struct {
	Handler    http.Handler
	Policy     *csp.Holder
	Stats      *stats.Stats
	Cache      *nonce.Cache
	Dispatcher *report.Dispatcher

	cfg           core.Config
	sweepInterval time.Duration
}

// New — главный конструктор. db может быть nil: тогда отчёты только пишутся в лог.
func New(cfg core.Config, db *sqlx.DB) (*App, error) {
	policy, err := loadPolicy(cfg)
	if err != nil {
		return nil, err
	}
	holder, err := csp.NewHolder(policy)
	if err != nil {
		return nil, err
	}

	st := stats.New()
	holder.AddListener(func(_, cur *csp.Policy) {
		st.RecordPolicyUpdate()
		core.LogInfo("CSP политика заменена", map[string]interface{}{
			"header": cur.HeaderName(),
			"policy": cur.String(),
		})
	})

	gen, err := nonce.NewGenerator(cfg.NonceLength)
	if err != nil {
		return nil, err
	}
	cache, err := nonce.NewCache(gen, cfg.CacheCapacity, cfg.CacheTTL, st)
	if err != nil {
		return nil, err
	}

	tpl, err := view.New()
	if err != nil {
		return nil, err
	}

	deps := httpx.Deps{
		Config:    cfg,
		CSRFKey:   derive32(cfg.CSRFKey),
		Policy:    holder,
		Cache:     cache,
		Stats:     st,
		Templates: tpl,
	}

	handlers := []report.Handler{logReport}
	if db != nil {
		repo := storage.NewViolationRepo(db)
		handlers = append(handlers, repo.Handler(reportWriteTimeout))
		deps.Violations = repo
		deps.DB = db
	}
	deps.Dispatcher = newDispatcher(cfg, report.Chain(handlers...))

	return &App{
		Handler:       httpx.NewRouter(deps),
		Policy:        holder,
		Stats:         st,
		Cache:         cache,
		Dispatcher:    deps.Dispatcher,
		cfg:           cfg,
		sweepInterval: cfg.SweepInterval,
	}, nil
}

// loadPolicy читает CSP_POLICY_FILE (или политику по умолчанию) и накладывает конфиг.
func loadPolicy(cfg core.Config) (*csp.Policy, error) {
	doc, err := core.LoadPolicyDocument(cfg.PolicyFile)
	if err != nil {
		return nil, err
	}
	policy, err := doc.ApplyConfig(cfg).BuildPolicy()
	if err != nil {
		return nil, err
	}
	core.LogInfo("CSP политика загружена", map[string]interface{}{
		"header": policy.HeaderName(),
		"policy": policy.String(),
		"file":   cfg.PolicyFile,
	})
	return policy, nil
}

// ReloadPolicy перечитывает файл политики и подменяет текущую политику.
// При ошибке продолжает действовать прежняя.
func (a *App) ReloadPolicy() error {
	policy, err := loadPolicy(a.cfg)
	if err != nil {
		return err
	}
	return a.Policy.Replace(policy)
}

// newDispatcher: очередь только если она задана в конфиге.
func newDispatcher(cfg core.Config, h report.Handler) *report.Dispatcher {
	if cfg.ReportQueue <= 0 {
		return report.NewDispatcher(h)
	}
	policy := report.DropNewest
	if cfg.ReportOverflow == "drop_oldest" {
		policy = report.DropOldest
	}
	return report.NewAsyncDispatcher(h, cfg.ReportQueue, policy)
}

// logReport — обработчик по умолчанию; отчёт уже очищен.
func logReport(v *report.ViolationReport) {
	core.LogDebug("CSP violation обработан", map[string]interface{}{
		"document_uri": v.DocumentURI,
		"directive":    v.ViolatedDirective,
	})
}

// StartSweeper — фоновая очистка просроченных nonce по тикеру.
// Для корректности не нужна: просроченные записи и так не отдаются.
func (a *App) StartSweeper(ctx context.Context) {
	if a.sweepInterval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(a.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := a.Cache.Sweep(); n > 0 {
					core.LogDebug("nonce cache sweep", map[string]interface{}{"removed": n, "left": a.Cache.Len()})
				}
			}
		}
	}()
}

// Close дожидается обработки очереди отчётов.
func (a *App) Close(ctx context.Context) error {
	return a.Dispatcher.Close(ctx)
}

// derive32 — 32-байтовый ключ CSRF из секрета (OWASP A02)
func derive32(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}
