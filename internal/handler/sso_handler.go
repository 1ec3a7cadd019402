package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/hitoshi/labnote/internal/model"
)

// SSOServiceInterface はSSOハンドラーが必要とするサービスインターフェース。
type SSOServiceInterface interface {
	// BeginSSOAuthorization はIdPの認可URLを生成する。
	// organizationIDとemailのどちらか一方は必須。
	BeginSSOAuthorization(organizationID, email string) (string, error)
	// HandleSSOCallback は認可コードをユーザー情報に交換し、
	// ユーザーのプロビジョニングとセッショントークンの発行を行う。
	HandleSSOCallback(ctx context.Context, code string) (*model.User, string, error)
}

// SSOHandler はエンタープライズSSO認証のHTTPハンドラー。
type SSOHandler struct {
	service SSOServiceInterface
	config  AuthHandlerConfig
	metrics SignInRecorder
}

// NewSSOHandler はSSOHandlerを生成する。metricsはnil可。
func NewSSOHandler(service SSOServiceInterface, config AuthHandlerConfig, metrics SignInRecorder) *SSOHandler {
	return &SSOHandler{
		service: service,
		config:  config,
		metrics: metrics,
	}
}

// ssoAuthorizeRequest はSSO認可開始リクエストのボディ。
type ssoAuthorizeRequest struct {
	OrganizationID string `json:"organizationId"`
	Email          string `json:"email"`
}

// Authorize はSSO認可フローを開始し、IdPへの認可URLを返す。
// POST /api/auth/sso/authorize
func (h *SSOHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	var req ssoAuthorizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディの解析に失敗しました"))
		return
	}

	authURL, err := h.service.BeginSSOAuthorization(req.OrganizationID, req.Email)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":          true,
		"authorizationUrl": authURL,
	})
}

// Callback はIdPからのリダイレクトを処理する。
// 成功時はセッションCookieを設定してアプリのトップへリダイレクトする。
// 失敗時は常にサインイン画面へエラーメッセージ付きでリダイレクトする
// （ブラウザのアドレスバーから遷移してくるため、JSONエラーは返さない）。
// GET /api/auth/sso/callback?code=xxx&error=yyy&error_description=zzz
func (h *SSOHandler) Callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	// IdP側でユーザーが拒否した場合など
	if errParam := query.Get("error"); errParam != "" {
		description := query.Get("error_description")
		if description == "" {
			description = errParam
		}
		slog.Warn("SSO callback returned error",
			slog.String("error", errParam),
			slog.String("description", description),
		)
		h.redirectWithError(w, r, description)
		return
	}

	code := query.Get("code")
	if code == "" {
		h.redirectWithError(w, r, "No authorization code received")
		return
	}

	_, token, err := h.service.HandleSSOCallback(r.Context(), code)
	if err != nil {
		slog.Error("SSO callback failed", slog.String("error", err.Error()))
		h.redirectWithError(w, r, callbackErrorMessage(err))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	if h.metrics != nil {
		h.metrics.RecordSignIn("sso")
	}

	http.Redirect(w, r, h.config.BaseURL+"/", http.StatusFound)
}

// redirectWithError はサインイン画面へエラーメッセージ付きでリダイレクトする。
func (h *SSOHandler) redirectWithError(w http.ResponseWriter, r *http.Request, message string) {
	target := h.config.BaseURL + "/auth?error=" + url.QueryEscape(message)
	http.Redirect(w, r, target, http.StatusFound)
}

// callbackErrorMessage はコールバック失敗時にリダイレクトURLへ載せるメッセージを決める。
// APIErrorの場合はそのメッセージを、それ以外は一般的なメッセージを使う。
func callbackErrorMessage(err error) string {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return "Authentication failed"
}
