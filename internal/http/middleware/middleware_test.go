package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cspApp/internal/core"
	"cspApp/internal/csp"
	"cspApp/internal/nonce"
	"cspApp/internal/stats"
)

type brokenSource struct{}

func (brokenSource) Generate() (string, error) { return "", nonce.ErrRandomness }

func testPolicy(t *testing.T) *csp.Holder {
	t.Helper()
	p, err := csp.NewBuilder().
		DefaultSrc(csp.Self).
		ScriptSrc(csp.Self).
		StyleSrc(csp.Self).
		ObjectSrc(csp.None).
		Build()
	require.NoError(t, err)
	h, err := csp.NewHolder(p)
	require.NoError(t, err)
	return h
}

func TestNonceAndCSPHeaderMatchBody(t *testing.T) {
	g, err := nonce.NewGenerator(nonce.DefaultLength)
	require.NoError(t, err)
	cache, err := nonce.NewCache(g, 16, time.Minute, nil)
	require.NoError(t, err)

	var seen string
	h := Nonce(cache)(CSP(testPolicy(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = core.NonceFromContext(r.Context())
		_, _ = w.Write([]byte(seen))
	})))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotEmpty(t, seen)
	header := w.Header().Get(csp.HeaderEnforce)
	assert.Contains(t, header, "script-src 'self' 'nonce-"+seen+"'")
	assert.Contains(t, header, "style-src 'self' 'nonce-"+seen+"'")
	assert.Contains(t, header, "object-src 'none'")
	assert.Equal(t, seen, w.Body.String())

	w2 := httptest.NewRecorder()
	h.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEqual(t, seen, w2.Body.String(), "each request gets its own nonce")
}

func TestNonceIgnoresClientRequestID(t *testing.T) {
	g, _ := nonce.NewGenerator(nonce.DefaultLength)
	cache, _ := nonce.NewCache(g, 16, time.Minute, nil)

	var got []string
	h := Nonce(cache)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, core.NonceFromContext(r.Context()))
	}))
	for i := 0; i < 2; i++ {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Request-ID", "fixed")
		h.ServeHTTP(httptest.NewRecorder(), r)
	}
	require.Len(t, got, 2)
	assert.NotEqual(t, got[0], got[1])
}

func TestNonceFailureIs500(t *testing.T) {
	cache, err := nonce.NewCache(brokenSource{}, 4, time.Minute, nil)
	require.NoError(t, err)

	called := false
	h := Nonce(cache)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.False(t, called)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "application/problem+json"))
}

func TestCSPWithoutNonce(t *testing.T) {
	h := CSP(testPolicy(t))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("must not be called")
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, w.Header().Get(csp.HeaderEnforce))
}

func TestCSPReportOnlyHeader(t *testing.T) {
	p, err := csp.NewBuilder().DefaultSrc(csp.Self).ReportOnly(true).ReportURI("/csp-report").Build()
	require.NoError(t, err)
	h, err := csp.NewHolder(p)
	require.NoError(t, err)
	mw := CSP(h)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(core.WithNonce(r.Context(), "abc"))
	w := httptest.NewRecorder()
	mw.ServeHTTP(w, r)

	assert.Empty(t, w.Header().Get(csp.HeaderEnforce))
	assert.Equal(t,
		"default-src 'self'; script-src 'self' 'nonce-abc'; style-src 'self' 'nonce-abc'; report-uri /csp-report",
		w.Header().Get(csp.HeaderReportOnly))
}

func TestCSPFollowsPolicyReplacement(t *testing.T) {
	oldP, err := csp.NewBuilder().DefaultSrc(csp.Self).ScriptSrc(csp.Self).Build()
	require.NoError(t, err)
	newP, err := csp.NewBuilder().DefaultSrc(csp.None).ScriptSrc(csp.Self, csp.Host("cdn.example.com")).
		ReportOnly(true).Build()
	require.NoError(t, err)
	h, err := csp.NewHolder(oldP)
	require.NoError(t, err)

	mw := CSP(h)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	serve := func() http.Header {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r = r.WithContext(core.WithNonce(r.Context(), "n1"))
		w := httptest.NewRecorder()
		mw.ServeHTTP(w, r)
		return w.Header()
	}

	wantOld := oldP.WithNonce("n1").String()
	wantNew := newP.WithNonce("n1").String()

	var wg sync.WaitGroup
	done := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(done)
		for i := 0; i < 200; i++ {
			next := newP
			if i%2 == 1 {
				next = oldP
			}
			assert.NoError(t, h.Replace(next))
		}
	}()
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				hdr := serve()
				enforce, reportOnly := hdr.Get(csp.HeaderEnforce), hdr.Get(csp.HeaderReportOnly)
				if enforce != "" {
					assert.Empty(t, reportOnly)
					assert.Equal(t, wantOld, enforce)
				} else {
					assert.Equal(t, wantNew, reportOnly)
				}
			}
		}()
	}
	wg.Wait()

	require.NoError(t, h.Replace(newP))
	assert.Equal(t, wantNew, serve().Get(csp.HeaderReportOnly))
}

func TestStatsMiddleware(t *testing.T) {
	s := stats.New()
	h := Stats(s)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	for i := 0; i < 3; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}
	assert.Equal(t, uint64(3), s.Snapshot().TotalRequests)
}
