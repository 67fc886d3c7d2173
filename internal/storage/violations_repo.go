package storage

// violations_repo.go
import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"cspApp/internal/core"
	"cspApp/internal/report"
)

// Violation — строка таблицы csp_violations.
type Violation struct {
	ID                 int64     `db:"id" json:"id"`
	DocumentURI        string    `db:"document_uri" json:"document_uri"`
	Referrer           *string   `db:"referrer" json:"referrer,omitempty"`
	ViolatedDirective  string    `db:"violated_directive" json:"violated_directive"`
	EffectiveDirective *string   `db:"effective_directive" json:"effective_directive,omitempty"`
	OriginalPolicy     string    `db:"original_policy" json:"original_policy"`
	BlockedURI         *string   `db:"blocked_uri" json:"blocked_uri,omitempty"`
	StatusCode         *int      `db:"status_code" json:"status_code,omitempty"`
	ScriptSample       *string   `db:"script_sample" json:"script_sample,omitempty"`
	Disposition        *string   `db:"disposition" json:"disposition,omitempty"`
	SourceFile         *string   `db:"source_file" json:"source_file,omitempty"`
	LineNumber         *int      `db:"line_number" json:"line_number,omitempty"`
	ColumnNumber       *int      `db:"column_number" json:"column_number,omitempty"`
	ReceivedAt         time.Time `db:"received_at" json:"received_at"`
}

// DirectiveCount — агрегат по нарушенной директиве.
type DirectiveCount struct {
	Directive string `db:"violated_directive" json:"directive"`
	Count     int64  `db:"cnt" json:"count"`
}

// ViolationRepo хранит отчёты о нарушениях CSP.
type ViolationRepo struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewViolationRepo(db *sqlx.DB) *ViolationRepo {
	return &ViolationRepo{db: db, now: time.Now}
}

const insertViolation = `INSERT INTO csp_violations
	(document_uri, referrer, violated_directive, effective_directive, original_policy,
	 blocked_uri, status_code, script_sample, disposition, source_file, line_number, column_number, received_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// Insert сохраняет отчёт. Ожидается уже очищенный отчёт (report.Sanitized).
func (r *ViolationRepo) Insert(ctx context.Context, v *report.ViolationReport) (int64, error) {
	res, err := r.db.ExecContext(ctx, insertViolation,
		v.DocumentURI, v.Referrer, v.ViolatedDirective, v.EffectiveDirective, v.OriginalPolicy,
		v.BlockedURI, v.StatusCode, truncate(v.ScriptSample, 255), v.Disposition, v.SourceFile,
		v.LineNumber, v.ColumnNumber, r.now().UTC(),
	)
	if err != nil {
		core.LogError("insert csp violation", map[string]interface{}{
			"directive": v.ViolatedDirective,
			"error":     err.Error(),
		})
		return 0, err
	}
	return res.LastInsertId()
}

// Recent — последние limit отчётов, новые первыми.
// db.SelectContext - Возвращает много строк (срез структур)
func (r *ViolationRepo) Recent(ctx context.Context, limit int) ([]Violation, error) {
	const q = `
		SELECT id, document_uri, referrer, violated_directive, effective_directive, original_policy,
		       blocked_uri, status_code, script_sample, disposition, source_file, line_number, column_number, received_at
		FROM csp_violations
		ORDER BY received_at DESC, id DESC
		LIMIT ?`

	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var items []Violation
	if err := r.db.SelectContext(ctx, &items, q, limit); err != nil {
		core.LogError("list recent csp violations", map[string]interface{}{
			"limit": limit,
			"error": err.Error(),
		})
		return nil, err
	}
	return items, nil
}

// CountByDirective — сколько нарушений каждой директивы, по убыванию.
func (r *ViolationRepo) CountByDirective(ctx context.Context) ([]DirectiveCount, error) {
	const q = `
		SELECT violated_directive, COUNT(*) AS cnt
		FROM csp_violations
		GROUP BY violated_directive
		ORDER BY cnt DESC, violated_directive ASC`

	var out []DirectiveCount
	if err := r.db.SelectContext(ctx, &out, q); err != nil {
		core.LogError("count csp violations", map[string]interface{}{"error": err.Error()})
		return nil, err
	}
	return out, nil
}

// Handler — обработчик для report.Dispatcher. Ошибки записи только логируются:
// отчёт о нарушении не должен влиять на ответ браузеру.
func (r *ViolationRepo) Handler(timeout time.Duration) report.Handler {
	return func(v *report.ViolationReport) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		_, _ = r.Insert(ctx, v)
	}
}

func truncate(s *string, n int) *string {
	if s == nil || len(*s) <= n {
		return s
	}
	runes := []rune(*s)
	if len(runes) <= n {
		return s
	}
	v := string(runes[:n])
	return &v
}
