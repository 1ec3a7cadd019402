// Package auth はパスワード認証、SSO認可コード交換、セッショントークン管理を提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/labnote/internal/model"
	"github.com/hitoshi/labnote/internal/repository"
)

// ssoProviderName はSSO経由で作成されたユーザーに付与するプロバイダー名。
const ssoProviderName = "scalekit"

// SSOProvider は外部IdPのインターフェース。
// テストではモック実装に差し替える。
type SSOProvider interface {
	// Configured はクライアント認証情報が設定されているかを返す。
	Configured() bool
	// GetAuthorizationURL はSSO認可URLを生成する。
	GetAuthorizationURL(hint AuthorizationHint, state string) string
	// GetConnectorAuthorizationURL はコネクタの認可URLを生成する。
	GetConnectorAuthorizationURL(connectionID, redirectURI, state string) string
	// ExchangeCode は認可コードを検証済みユーザー情報に交換する。
	ExchangeCode(ctx context.Context, code string) (*SSOIdentity, error)
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
	tokens   *TokenManager
	sso      SSOProvider
}

// NewService はServiceを生成する。
func NewService(userRepo repository.UserRepository, tokens *TokenManager, sso SSOProvider) *Service {
	return &Service{
		userRepo: userRepo,
		tokens:   tokens,
		sso:      sso,
	}
}

// SignUp はメールアドレスとパスワードで新規ユーザーを作成し、セッショントークンを発行する。
// 登録済みメールアドレスの場合はEMAIL_TAKENエラーを返す。
func (s *Service) SignUp(ctx context.Context, email, password, name string) (*model.User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, "", model.NewValidationError("メールアドレスが不正です")
	}
	if len(password) < minPasswordLength {
		return nil, "", model.NewValidationError(fmt.Sprintf("パスワードは%d文字以上で指定してください", minPasswordLength))
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if err == repository.ErrDuplicateEmail {
			return nil, "", model.NewEmailTakenError()
		}
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue session token: %w", err)
	}

	slog.Info("new user signed up",
		slog.String("user_id", user.ID),
	)
	return user, token, nil
}

// SignIn はメールアドレスとパスワードを照合し、セッショントークンを発行する。
// メールアドレス未登録とパスワード不一致は同一のエラーとして扱う。
func (s *Service) SignIn(ctx context.Context, email, password string) (*model.User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil || user.PasswordHash == "" || !VerifyPassword(user.PasswordHash, password) {
		return nil, "", model.NewInvalidCredentialsError()
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue session token: %w", err)
	}

	slog.Info("user signed in", slog.String("user_id", user.ID))
	return user, token, nil
}

// CurrentUser はセッショントークンから現在のユーザーを取得する。
func (s *Service) CurrentUser(ctx context.Context, token string) (*model.User, error) {
	userID, err := s.tokens.Verify(token)
	if err != nil {
		return nil, model.NewUnauthorizedError()
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUnauthorizedError()
	}

	return user, nil
}

// BeginSSOAuthorization はSSO認可URLを生成する。
// 組織IDとメールアドレスの両方が空の場合はバリデーションエラー、
// IdPの認証情報が未設定の場合は設定エラーを返す。
func (s *Service) BeginSSOAuthorization(hint AuthorizationHint) (string, error) {
	if hint.OrganizationID == "" && hint.Email == "" {
		return "", model.NewValidationError("organizationIdまたはemailのいずれかが必要です")
	}
	if !s.sso.Configured() {
		return "", model.NewConfigurationError("SSOプロバイダーの認証情報")
	}
	return s.sso.GetAuthorizationURL(hint, ""), nil
}

// GetConnectorAuthorizationURL はコネクタ（Gmail等）の認可URLを生成する。
func (s *Service) GetConnectorAuthorizationURL(connectionID, redirectURI, state string) (string, error) {
	if !s.sso.Configured() {
		return "", model.NewConfigurationError("SSOプロバイダーの認証情報")
	}
	return s.sso.GetConnectorAuthorizationURL(connectionID, redirectURI, state), nil
}

// HandleSSOCallback は認可コードを交換し、ユーザーをプロビジョニングして
// セッショントークンを発行する。
func (s *Service) HandleSSOCallback(ctx context.Context, code string) (*model.User, string, error) {
	if !s.sso.Configured() {
		return nil, "", model.NewConfigurationError("SSOプロバイダーの認証情報")
	}

	identity, err := s.sso.ExchangeCode(ctx, code)
	if err != nil {
		return nil, "", model.NewSSOExchangeFailedError(err.Error())
	}

	user, err := s.provisionOrFindUser(ctx, identity)
	if err != nil {
		return nil, "", err
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue session token: %w", err)
	}

	return user, token, nil
}

// provisionOrFindUser はメールアドレスで既存ユーザーを検索し、
// 存在しない場合は外部検証済みユーザーとして新規作成する。
// 同一メールの同時コールバックで作成が競合した場合は、
// メール一意制約違反を検出して既存行にフォールバックする。
func (s *Service) provisionOrFindUser(ctx context.Context, identity *SSOIdentity) (*model.User, error) {
	email := strings.TrimSpace(strings.ToLower(identity.Email))

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if existing != nil {
		slog.Info("existing user logged in via sso",
			slog.String("user_id", existing.ID),
		)
		return existing, nil
	}

	now := time.Now()
	user := &model.User{
		ID:             uuid.New().String(),
		Email:          email,
		Name:           identity.Name,
		OrganizationID: identity.OrganizationID,
		SSOProvider:    ssoProviderName,
		EmailVerified:  true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = s.userRepo.Create(ctx, user)
	if err == repository.ErrDuplicateEmail {
		// 同時コールバックとの競合。先に作成された行を採用する
		existing, findErr := s.userRepo.FindByEmail(ctx, email)
		if findErr != nil {
			return nil, fmt.Errorf("failed to find user after conflict: %w", findErr)
		}
		if existing == nil {
			return nil, fmt.Errorf("user disappeared after unique conflict: %s", email)
		}
		return existing, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("new user provisioned via sso",
		slog.String("user_id", user.ID),
		slog.String("organization_id", user.OrganizationID),
	)
	return user, nil
}
