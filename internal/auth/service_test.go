package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/labnote/internal/model"
	"github.com/hitoshi/labnote/internal/repository"
)

// --- モック ---

type mockUserRepo struct {
	findByIDFn    func(ctx context.Context, id string) (*model.User, error)
	findByEmailFn func(ctx context.Context, email string) (*model.User, error)
	createFn      func(ctx context.Context, user *model.User) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}
func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

type mockSSOProvider struct {
	configured     bool
	exchangeCodeFn func(ctx context.Context, code string) (*SSOIdentity, error)
}

func (m *mockSSOProvider) Configured() bool { return m.configured }
func (m *mockSSOProvider) GetAuthorizationURL(hint AuthorizationHint, state string) string {
	return "https://idp.example.test/oauth/authorize?org=" + hint.OrganizationID
}
func (m *mockSSOProvider) GetConnectorAuthorizationURL(connectionID, redirectURI, state string) string {
	return "https://idp.example.test/oauth/authorize?connection_id=" + connectionID
}
func (m *mockSSOProvider) ExchangeCode(ctx context.Context, code string) (*SSOIdentity, error) {
	return m.exchangeCodeFn(ctx, code)
}

func newTestService(userRepo *mockUserRepo, sso *mockSSOProvider) *Service {
	if sso == nil {
		sso = &mockSSOProvider{}
	}
	return NewService(userRepo, NewTokenManager("test-secret", 3600), sso)
}

// --- テスト ---

// サインアップが成功し、発行されたトークンが検証可能であることを検証
func TestService_SignUp(t *testing.T) {
	var created *model.User
	userRepo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			created = user
			return nil
		},
	}
	svc := newTestService(userRepo, nil)

	user, token, err := svc.SignUp(context.Background(), "Taro@Example.com", "password123", "Taro")
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}

	if user.Email != "taro@example.com" {
		t.Errorf("expected lowercased email, got %s", user.Email)
	}
	if created == nil || created.PasswordHash == "" {
		t.Error("expected user persisted with password hash")
	}
	if created != nil && created.PasswordHash == "password123" {
		t.Error("expected password to be hashed before persistence")
	}

	userID, err := NewTokenManager("test-secret", 3600).Verify(token)
	if err != nil {
		t.Fatalf("issued token did not verify: %v", err)
	}
	if userID != user.ID {
		t.Errorf("expected token subject %s, got %s", user.ID, userID)
	}
}

// 登録済みメールアドレスでのサインアップがEMAIL_TAKENになることを検証
func TestService_SignUp_DuplicateEmail(t *testing.T) {
	userRepo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			return repository.ErrDuplicateEmail
		},
	}
	svc := newTestService(userRepo, nil)

	_, _, err := svc.SignUp(context.Background(), "taro@example.com", "password123", "Taro")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeEmailTaken {
		t.Errorf("expected EMAIL_TAKEN error, got %v", err)
	}
}

// 不正な入力がバリデーションエラーになることを検証
func TestService_SignUp_Validation(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, nil)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"メールアドレスが空", "", "password123"},
		{"アットマークなし", "not-an-email", "password123"},
		{"パスワードが短い", "taro@example.com", "short"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.SignUp(context.Background(), tt.email, tt.password, "Taro")

			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidation {
				t.Errorf("expected VALIDATION_ERROR, got %v", err)
			}
		})
	}
}

// 正しい資格情報でのサインインが成功することを検証
func TestService_SignIn(t *testing.T) {
	hash, err := HashPassword("password123")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	userRepo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: "user-1", Email: email, PasswordHash: hash}, nil
		},
	}
	svc := newTestService(userRepo, nil)

	user, token, err := svc.SignIn(context.Background(), "taro@example.com", "password123")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if user.ID != "user-1" || token == "" {
		t.Errorf("expected user-1 with token, got %+v token=%q", user, token)
	}
}

// 未登録メールとパスワード不一致が同一のエラーになることを検証
func TestService_SignIn_InvalidCredentials(t *testing.T) {
	hash, err := HashPassword("password123")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	tests := []struct {
		name string
		repo *mockUserRepo
	}{
		{
			name: "未登録のメールアドレス",
			repo: &mockUserRepo{},
		},
		{
			name: "パスワード不一致",
			repo: &mockUserRepo{
				findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
					return &model.User{ID: "user-1", Email: email, PasswordHash: hash}, nil
				},
			},
		},
		{
			name: "SSO専用ユーザー（パスワードハッシュなし）",
			repo: &mockUserRepo{
				findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
					return &model.User{ID: "user-1", Email: email, SSOProvider: "scalekit"}, nil
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := newTestService(tt.repo, nil).SignIn(context.Background(), "taro@example.com", "wrong-password")

			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidCredentials {
				t.Errorf("expected INVALID_CREDENTIALS, got %v", err)
			}
		})
	}
}

// トークンから現在のユーザーを取得できることを検証
func TestService_CurrentUser(t *testing.T) {
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Email: "taro@example.com"}, nil
		},
	}
	svc := newTestService(userRepo, nil)

	token, err := NewTokenManager("test-secret", 3600).Issue("user-1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	user, err := svc.CurrentUser(context.Background(), token)
	if err != nil {
		t.Fatalf("CurrentUser failed: %v", err)
	}
	if user.ID != "user-1" {
		t.Errorf("expected user-1, got %s", user.ID)
	}
}

// 無効なトークンおよびユーザー不在がUNAUTHORIZEDになることを検証
func TestService_CurrentUser_Unauthorized(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, nil)

	// 無効なトークン
	if _, err := svc.CurrentUser(context.Background(), "garbage"); err == nil {
		t.Error("expected error for invalid token")
	}

	// 有効なトークンだがユーザーが存在しない
	token, err := NewTokenManager("test-secret", 3600).Issue("deleted-user")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	_, err = svc.CurrentUser(context.Background(), token)

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUnauthorized {
		t.Errorf("expected UNAUTHORIZED, got %v", err)
	}
}

// SSO認可URLの生成条件を検証
func TestService_BeginSSOAuthorization(t *testing.T) {
	// ヒントが両方空 → バリデーションエラー
	svc := newTestService(&mockUserRepo{}, &mockSSOProvider{configured: true})
	_, err := svc.BeginSSOAuthorization(AuthorizationHint{})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidation {
		t.Errorf("expected VALIDATION_ERROR, got %v", err)
	}

	// 未設定 → 設定エラー
	svc = newTestService(&mockUserRepo{}, &mockSSOProvider{configured: false})
	_, err = svc.BeginSSOAuthorization(AuthorizationHint{OrganizationID: "org-1"})
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeConfiguration {
		t.Errorf("expected CONFIGURATION_ERROR, got %v", err)
	}

	// 正常系
	svc = newTestService(&mockUserRepo{}, &mockSSOProvider{configured: true})
	urlStr, err := svc.BeginSSOAuthorization(AuthorizationHint{OrganizationID: "org-1"})
	if err != nil {
		t.Fatalf("BeginSSOAuthorization failed: %v", err)
	}
	if urlStr == "" {
		t.Error("expected non-empty authorization URL")
	}
}

// SSOコールバックで新規ユーザーがプロビジョニングされることを検証
func TestService_HandleSSOCallback_ProvisionsNewUser(t *testing.T) {
	var created *model.User
	userRepo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			created = user
			return nil
		},
	}
	sso := &mockSSOProvider{
		configured: true,
		exchangeCodeFn: func(ctx context.Context, code string) (*SSOIdentity, error) {
			return &SSOIdentity{Email: "Hanako@Corp.example", Name: "Hanako", OrganizationID: "org-1"}, nil
		},
	}
	svc := newTestService(userRepo, sso)

	user, token, err := svc.HandleSSOCallback(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("HandleSSOCallback failed: %v", err)
	}

	if token == "" {
		t.Error("expected session token issued")
	}
	if user.Email != "hanako@corp.example" {
		t.Errorf("expected lowercased email, got %s", user.Email)
	}
	if created == nil {
		t.Fatal("expected user to be created")
	}
	if !created.EmailVerified || created.SSOProvider != "scalekit" || created.OrganizationID != "org-1" {
		t.Errorf("expected verified sso user, got %+v", created)
	}
}

// 既存ユーザーはプロビジョニングされず既存行が返ることを検証
func TestService_HandleSSOCallback_ExistingUser(t *testing.T) {
	createCalled := false
	userRepo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: "user-1", Email: email}, nil
		},
		createFn: func(ctx context.Context, user *model.User) error {
			createCalled = true
			return nil
		},
	}
	sso := &mockSSOProvider{
		configured: true,
		exchangeCodeFn: func(ctx context.Context, code string) (*SSOIdentity, error) {
			return &SSOIdentity{Email: "hanako@corp.example", Name: "Hanako"}, nil
		},
	}
	svc := newTestService(userRepo, sso)

	user, _, err := svc.HandleSSOCallback(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("HandleSSOCallback failed: %v", err)
	}
	if user.ID != "user-1" {
		t.Errorf("expected existing user-1, got %s", user.ID)
	}
	if createCalled {
		t.Error("expected no user creation for existing email")
	}
}

// 同時コールバックでの作成競合時に既存行へフォールバックすることを検証
func TestService_HandleSSOCallback_DuplicateRaceFallsBack(t *testing.T) {
	findCalls := 0
	userRepo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			findCalls++
			// 1回目は不在、ユニーク制約違反後の2回目で競合相手の行が見える
			if findCalls == 1 {
				return nil, nil
			}
			return &model.User{ID: "winner", Email: email}, nil
		},
		createFn: func(ctx context.Context, user *model.User) error {
			return repository.ErrDuplicateEmail
		},
	}
	sso := &mockSSOProvider{
		configured: true,
		exchangeCodeFn: func(ctx context.Context, code string) (*SSOIdentity, error) {
			return &SSOIdentity{Email: "hanako@corp.example"}, nil
		},
	}
	svc := newTestService(userRepo, sso)

	user, _, err := svc.HandleSSOCallback(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("HandleSSOCallback failed: %v", err)
	}
	if user.ID != "winner" {
		t.Errorf("expected fallback to existing row, got %s", user.ID)
	}
}

// 交換失敗がSSO_EXCHANGE_FAILEDになることを検証
func TestService_HandleSSOCallback_ExchangeFails(t *testing.T) {
	sso := &mockSSOProvider{
		configured: true,
		exchangeCodeFn: func(ctx context.Context, code string) (*SSOIdentity, error) {
			return nil, errors.New("code exchange failed with status 400")
		},
	}
	svc := newTestService(&mockUserRepo{}, sso)

	_, _, err := svc.HandleSSOCallback(context.Background(), "bad-code")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeSSOExchangeFailed {
		t.Errorf("expected SSO_EXCHANGE_FAILED, got %v", err)
	}
}
