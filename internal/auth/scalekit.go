package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	authorizePath = "/oauth/authorize"
	tokenPath     = "/oauth/token"
)

// ScalekitConfig はScalekit互換の外部IdPの設定。
type ScalekitConfig struct {
	EnvironmentURL string
	ClientID       string
	ClientSecret   string
	RedirectURL    string
}

// ScalekitProvider は外部IdPに対する認可URL生成と認可コード交換を提供する。
// エンタープライズSSO（組織単位のSAML/OIDC接続）とコネクタ
// （Gmail等の外部サービスOAuth）の両方を同一のIdPが仲介する。
type ScalekitProvider struct {
	config ScalekitConfig
	client *http.Client
}

// NewScalekitProvider はScalekitProviderを生成する。
func NewScalekitProvider(config ScalekitConfig) *ScalekitProvider {
	return &ScalekitProvider{
		config: config,
		client: http.DefaultClient,
	}
}

// Configured はクライアント認証情報が設定されているかを返す。
func (p *ScalekitProvider) Configured() bool {
	return p.config.ClientID != "" && p.config.ClientSecret != ""
}

// AuthorizationHint はSSO認可URL生成時の接続先特定ヒント。
// 組織IDまたはメールアドレス（ドメインから組織を解決）の少なくとも一方が必要。
type AuthorizationHint struct {
	OrganizationID string
	Email          string
}

// GetAuthorizationURL はSSO認可URLを生成する。
func (p *ScalekitProvider) GetAuthorizationURL(hint AuthorizationHint, state string) string {
	params := url.Values{
		"client_id":     {p.config.ClientID},
		"redirect_uri":  {p.config.RedirectURL},
		"response_type": {"code"},
		"scope":         {"openid email profile"},
	}
	if hint.OrganizationID != "" {
		params.Set("organization_id", hint.OrganizationID)
	}
	if hint.Email != "" {
		params.Set("login_hint", hint.Email)
	}
	if state != "" {
		params.Set("state", state)
	}
	return p.config.EnvironmentURL + authorizePath + "?" + params.Encode()
}

// GetConnectorAuthorizationURL はコネクタ（Gmail等）の認可URLを生成する。
// redirectURIにはIdPダッシュボードで設定済みの接続コールバックURLを指定する。
func (p *ScalekitProvider) GetConnectorAuthorizationURL(connectionID, redirectURI, state string) string {
	params := url.Values{
		"client_id":     {p.config.ClientID},
		"redirect_uri":  {redirectURI},
		"response_type": {"code"},
		"connection_id": {connectionID},
	}
	if state != "" {
		params.Set("state", state)
	}
	return p.config.EnvironmentURL + authorizePath + "?" + params.Encode()
}

// SSOIdentity はIdPで検証済みのユーザー識別情報を表す。
type SSOIdentity struct {
	Email          string
	Name           string
	OrganizationID string
}

// tokenResponse はIdPのトークンエンドポイントのレスポンス。
// アクセストークンと併せて検証済みユーザー情報が返る。
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token"`
	User        struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"user"`
	OrganizationID string `json:"organization_id"`
}

// ExchangeCode は認可コードを検証済みユーザー情報に交換する。
func (p *ScalekitProvider) ExchangeCode(ctx context.Context, code string) (*SSOIdentity, error) {
	data := url.Values{
		"code":          {code},
		"client_id":     {p.config.ClientID},
		"client_secret": {p.config.ClientSecret},
		"redirect_uri":  {p.config.RedirectURL},
		"grant_type":    {"authorization_code"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.config.EnvironmentURL+tokenPath, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("code exchange failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp tokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}

	if tokenResp.User.Email == "" {
		return nil, fmt.Errorf("empty email in token response")
	}

	return &SSOIdentity{
		Email:          tokenResp.User.Email,
		Name:           tokenResp.User.Name,
		OrganizationID: tokenResp.OrganizationID,
	}, nil
}

// compile-time interface check
var _ SSOProvider = (*ScalekitProvider)(nil)
