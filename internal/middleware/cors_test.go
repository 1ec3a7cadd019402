package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// CORSヘッダーが付与されることを検証
func TestCORSMiddleware_SetsHeaders(t *testing.T) {
	mw := NewCORSMiddleware("http://localhost:3000")

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/lab/reports", nil))

	headers := rec.Header()
	if got := headers.Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q, want configured origin", got)
	}
	// Cookie認証と共存するためcredentialsを許可する
	if got := headers.Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Allow-Credentials = %q, want true", got)
	}
	if got := headers.Get("Access-Control-Allow-Headers"); got != "Content-Type, Authorization, X-CSRF-Token" {
		t.Errorf("Allow-Headers = %q", got)
	}
}

// OPTIONSプリフライトが204で短絡されることを検証
func TestCORSMiddleware_Preflight(t *testing.T) {
	mw := NewCORSMiddleware("http://localhost:3000")

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called for preflight")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/lab/reports", nil))

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
}
