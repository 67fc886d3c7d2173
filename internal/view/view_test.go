package view

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cspApp/internal/core"
)

func TestRenderEmbedsNonce(t *testing.T) {
	tpl, err := New()
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(core.WithNonce(r.Context(), "abc123"))
	w := httptest.NewRecorder()

	require.NoError(t, tpl.Render(w, r, http.StatusOK, "home", "Главная", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Contains(t, body, `<script nonce="abc123">`)
	assert.Contains(t, body, `<style nonce="abc123">`)
}

func TestRenderWithoutNonceFails(t *testing.T) {
	tpl, err := New()
	require.NoError(t, err)

	w := httptest.NewRecorder()
	err = tpl.Render(w, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusOK, "home", "Главная", nil)
	assert.Error(t, err)
	assert.Empty(t, w.Body.String())
}

func TestRenderUnknownTemplate(t *testing.T) {
	tpl, err := New()
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(core.WithNonce(r.Context(), "n"))
	assert.Error(t, tpl.Render(httptest.NewRecorder(), r, http.StatusOK, "missing", "x", nil))
}
