package middleware

import "net/http"

// corsAllowedMethods はAPIが受け付けるメソッド一覧。
const corsAllowedMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"

// corsAllowedHeaders はフロントエンドが送信するヘッダー一覧。
// Bearerトークン(Authorization)とCSRFトークン(X-CSRF-Token)を許可する。
const corsAllowedHeaders = "Content-Type, Authorization, X-CSRF-Token"

// NewCORSMiddleware は単一の許可オリジンに対するCORSミドルウェアを返す。
// セッションCookieのcredentials送信と共存するため、ワイルドカード(*)は使用しない。
// OPTIONSプリフライトリクエストには204で応答しチェーンを打ち切る。
func NewCORSMiddleware(allowedOrigin string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", allowedOrigin)
			h.Set("Access-Control-Allow-Methods", corsAllowedMethods)
			h.Set("Access-Control-Allow-Headers", corsAllowedHeaders)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Max-Age", "86400")
			h.Add("Vary", "Origin")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
