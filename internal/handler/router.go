package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/labnote/internal/metrics"
	"github.com/hitoshi/labnote/internal/middleware"
)

// HealthChecker はヘルスチェックに必要なインターフェース。
// *sql.DBがそのまま満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenVerifier     middleware.TokenVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig

	// 認証
	AuthService AuthServiceInterface
	SSOService  SSOServiceInterface
	AuthConfig  AuthHandlerConfig

	// コネクタ
	ConnectorService ConnectorServiceInterface
	ConnectorConfig  ConnectorHandlerConfig

	// 検査レポート
	LabReportService LabReportServiceInterface
	UploadMaxSize    int64

	// ノート
	NoteService NoteServiceInterface

	// 運用系
	HealthChecker   HealthChecker
	MetricsGatherer prometheus.Gatherer
	SignInMetrics   SignInRecorder
	HTTPMetrics     middleware.HTTPStatusRecorder
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging →
//	  [認証ルート群] / [Session → RateLimit(General) → 認証必須ルート群]
//
// 認証ルート（/api/auth/*）とヘルスチェックはセッションミドルウェアの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(slog.Default(), deps.HTTPMetrics))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig, deps.SignInMetrics)
	ssoHandler := NewSSOHandler(deps.SSOService, deps.AuthConfig, deps.SignInMetrics)
	connectorHandler := NewConnectorHandler(deps.ConnectorService, deps.ConnectorConfig)
	labHandler := NewLabHandler(deps.LabReportService, deps.UploadMaxSize)
	noteHandler := NewNoteHandler(deps.NoteService)

	// --- 認証不要のルート ---

	r.Get("/health", newHealthHandler(deps.HealthChecker))

	if deps.MetricsGatherer != nil {
		r.Get("/metrics", metrics.Handler(deps.MetricsGatherer).ServeHTTP)
	}

	r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.SignUp)
		r.Post("/signin", authHandler.SignIn)
		r.Post("/logout", authHandler.SignOut)
		r.Get("/me", authHandler.Me)

		// エンタープライズSSOフロー
		r.Post("/sso/authorize", ssoHandler.Authorize)
		r.Get("/sso/callback", ssoHandler.Callback)
	})

	// コネクタ認可URL生成
	r.Post("/api/connector/authorize", connectorHandler.Authorize)

	// その場解析は保存を伴わないため認証不要
	r.Post("/api/lab/analyze", labHandler.Analyze)

	// レポート一覧は未認証でも空一覧を返すため、オプショナル認証を使う
	r.With(middleware.NewOptionalSessionMiddleware(deps.TokenVerifier)).
		Get("/api/lab/reports", labHandler.ListReports)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.TokenVerifier))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 検査レポート管理
		r.Route("/api/lab", func(r chi.Router) {
			// POST /api/lab/upload - アップロード（専用レート制限を追加）
			r.With(deps.RateLimiter.UploadMiddleware()).Post("/upload", labHandler.Upload)

			r.Post("/chat", labHandler.Chat)

			// DELETE はパスパラメータ形式とクエリパラメータ形式の両方をサポート
			r.Delete("/reports", labHandler.DeleteReport)
			r.Delete("/reports/{id}", labHandler.DeleteReport)
		})

		// ノート管理（ブラウザUIからCookie認証で呼ばれるためCSRF保護を追加）
		r.Route("/api/notes", func(r chi.Router) {
			r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

			r.Get("/", noteHandler.ListNotes)
			r.Post("/", noteHandler.CreateNote)

			r.Route("/{id}", func(r chi.Router) {
				r.Put("/", noteHandler.UpdateNote)
				r.Delete("/", noteHandler.DeleteNote)
			})
		})
	})

	return r
}

// newHealthHandler はDB接続性を確認するヘルスチェックハンドラーを返す。
func newHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if checker != nil {
			if err := checker.PingContext(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{
					"status": "unhealthy",
				})
				return
			}
		}

		json.NewEncoder(w).Encode(map[string]string{
			"status": "ok",
		})
	}
}
