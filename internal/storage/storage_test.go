package storage

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cspApp/internal/report"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "mysql"), mock
}

func TestViolationRepoInsert(t *testing.T) {
	db, mock := newMock(t)
	repo := NewViolationRepo(db)
	fixed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	blocked := "https://evil.test/x.js"
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO csp_violations")).
		WithArgs("https://a/", sqlmock.AnyArg(), "script-src", sqlmock.AnyArg(), "default-src 'self'",
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), fixed).
		WillReturnResult(sqlmock.NewResult(42, 1))

	id, err := repo.Insert(context.Background(), &report.ViolationReport{
		DocumentURI:       "https://a/",
		ViolatedDirective: "script-src",
		OriginalPolicy:    "default-src 'self'",
		BlockedURI:        &blocked,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestViolationRepoInsertError(t *testing.T) {
	db, mock := newMock(t)
	repo := NewViolationRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO csp_violations")).
		WillReturnError(errors.New("connection refused"))

	repo.Handler(time.Second)(&report.ViolationReport{DocumentURI: "a", ViolatedDirective: "b", OriginalPolicy: "c"})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestViolationRepoRecent(t *testing.T) {
	db, mock := newMock(t)
	repo := NewViolationRepo(db)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{
		"id", "document_uri", "referrer", "violated_directive", "effective_directive", "original_policy",
		"blocked_uri", "status_code", "script_sample", "disposition", "source_file", "line_number", "column_number", "received_at",
	}).
		AddRow(2, "https://a/", nil, "img-src", "img-src", "default-src 'self'", "https://x.test/a.png", 200, nil, "enforce", nil, nil, nil, now).
		AddRow(1, "https://a/", nil, "script-src", nil, "default-src 'self'", nil, nil, nil, nil, nil, nil, nil, now)

	mock.ExpectQuery(regexp.QuoteMeta("FROM csp_violations")).
		WithArgs(50).
		WillReturnRows(rows)

	items, err := repo.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(2), items[0].ID)
	require.NotNil(t, items[0].StatusCode)
	assert.Equal(t, 200, *items[0].StatusCode)
	assert.Nil(t, items[1].BlockedURI)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestViolationRepoCountByDirective(t *testing.T) {
	db, mock := newMock(t)
	repo := NewViolationRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT violated_directive, COUNT(*) AS cnt")).
		WillReturnRows(sqlmock.NewRows([]string{"violated_directive", "cnt"}).
			AddRow("script-src", 7).
			AddRow("img-src", 3))

	counts, err := repo.CountByDirective(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []DirectiveCount{{"script-src", 7}, {"img-src", 3}}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_migrations")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM schema_migrations WHERE name = ?")).
		WithArgs("001_csp_violations.sql").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS csp_violations")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schema_migrations (name) VALUES (?)")).
		WithArgs("001_csp_violations.sql").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, NewMigrations(db).RunMigrations(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrationsSkipsApplied(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_migrations")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM schema_migrations")).
		WithArgs("001_csp_violations.sql").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	require.NoError(t, NewMigrations(db).RunMigrations(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDSNHelpers(t *testing.T) {
	dsn, err := normalizeDSN("csp:secret@tcp(db:3306)/csp")
	require.NoError(t, err)
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "charset=utf8mb4")

	safe := sanitizedDSN(dsn)
	assert.NotContains(t, safe, "secret")
	assert.True(t, strings.HasPrefix(safe, "csp:***@tcp(db:3306)/csp"))

	_, err = normalizeDSN("csp:secret@tcp(db:3306/csp")
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("я", 300)
	got := truncate(&long, 255)
	assert.Equal(t, 255, len([]rune(*got)))
	assert.Nil(t, truncate(nil, 10))
}
