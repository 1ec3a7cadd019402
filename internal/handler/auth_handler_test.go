package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/labnote/internal/model"
)

type mockAuthService struct {
	signUpFn      func(ctx context.Context, email, password, name string) (*model.User, string, error)
	signInFn      func(ctx context.Context, email, password string) (*model.User, string, error)
	currentUserFn func(ctx context.Context, token string) (*model.User, error)
}

func (m *mockAuthService) SignUp(ctx context.Context, email, password, name string) (*model.User, string, error) {
	return m.signUpFn(ctx, email, password, name)
}
func (m *mockAuthService) SignIn(ctx context.Context, email, password string) (*model.User, string, error) {
	return m.signInFn(ctx, email, password)
}
func (m *mockAuthService) CurrentUser(ctx context.Context, token string) (*model.User, error) {
	return m.currentUserFn(ctx, token)
}

type mockSignInRecorder struct {
	methods []string
}

func (m *mockSignInRecorder) RecordSignIn(method string) {
	m.methods = append(m.methods, method)
}

func testAuthHandlerConfig() AuthHandlerConfig {
	return AuthHandlerConfig{
		BaseURL:       "http://localhost:8080",
		CookieSecure:  false,
		SessionMaxAge: 604800,
	}
}

func sessionCookieFrom(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	return nil
}

func decodeErrorResponse(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return body
}

// サインアップ成功で201とセッションCookieが返ることを検証
func TestAuthHandler_SignUp(t *testing.T) {
	service := &mockAuthService{
		signUpFn: func(ctx context.Context, email, password, name string) (*model.User, string, error) {
			return &model.User{ID: "user-1", Email: email, Name: name}, "issued-token", nil
		},
	}
	metrics := &mockSignInRecorder{}
	h := NewAuthHandler(service, testAuthHandlerConfig(), metrics)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup",
		strings.NewReader(`{"email":"taro@example.com","password":"password123","name":"Taro"}`))
	rec := httptest.NewRecorder()
	h.SignUp(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	cookie := sessionCookieFrom(t, rec)
	if cookie == nil {
		t.Fatal("expected session cookie set")
	}
	if cookie.Value != "issued-token" || !cookie.HttpOnly || cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("unexpected cookie attributes: %+v", cookie)
	}

	var body struct {
		Success bool         `json:"success"`
		User    userResponse `json:"user"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !body.Success || body.User.ID != "user-1" || body.User.Email != "taro@example.com" {
		t.Errorf("unexpected body: %+v", body)
	}

	if len(metrics.methods) != 1 || metrics.methods[0] != "password" {
		t.Errorf("expected password sign-in recorded, got %v", metrics.methods)
	}
}

// 登録済みメールのサインアップが409を返すことを検証
func TestAuthHandler_SignUp_EmailTaken(t *testing.T) {
	service := &mockAuthService{
		signUpFn: func(ctx context.Context, email, password, name string) (*model.User, string, error) {
			return nil, "", model.NewEmailTakenError()
		},
	}
	h := NewAuthHandler(service, testAuthHandlerConfig(), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup",
		strings.NewReader(`{"email":"taro@example.com","password":"password123"}`))
	rec := httptest.NewRecorder()
	h.SignUp(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
	body := decodeErrorResponse(t, rec)
	if body["code"] != model.ErrCodeEmailTaken {
		t.Errorf("expected EMAIL_TAKEN code, got %v", body["code"])
	}
}

// 不正なJSONボディが400を返すことを検証
func TestAuthHandler_SignUp_MalformedBody(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, testAuthHandlerConfig(), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.SignUp(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

// サインイン失敗が401と統一エラーコードを返すことを検証
func TestAuthHandler_SignIn_InvalidCredentials(t *testing.T) {
	service := &mockAuthService{
		signInFn: func(ctx context.Context, email, password string) (*model.User, string, error) {
			return nil, "", model.NewInvalidCredentialsError()
		},
	}
	h := NewAuthHandler(service, testAuthHandlerConfig(), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signin",
		strings.NewReader(`{"email":"taro@example.com","password":"wrong"}`))
	rec := httptest.NewRecorder()
	h.SignIn(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	body := decodeErrorResponse(t, rec)
	if body["code"] != model.ErrCodeInvalidCredentials {
		t.Errorf("expected INVALID_CREDENTIALS code, got %v", body["code"])
	}
	if sessionCookieFrom(t, rec) != nil {
		t.Error("expected no session cookie on failure")
	}
}

// サインイン成功で200とCookieが返ることを検証
func TestAuthHandler_SignIn(t *testing.T) {
	service := &mockAuthService{
		signInFn: func(ctx context.Context, email, password string) (*model.User, string, error) {
			return &model.User{ID: "user-1", Email: email}, "issued-token", nil
		},
	}
	h := NewAuthHandler(service, testAuthHandlerConfig(), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signin",
		strings.NewReader(`{"email":"taro@example.com","password":"password123"}`))
	rec := httptest.NewRecorder()
	h.SignIn(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if cookie := sessionCookieFrom(t, rec); cookie == nil || cookie.Value != "issued-token" {
		t.Errorf("expected session cookie, got %+v", cookie)
	}
}

// サインアウトがCookieを失効させることを検証
func TestAuthHandler_SignOut(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, testAuthHandlerConfig(), nil)

	rec := httptest.NewRecorder()
	h.SignOut(rec, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	cookie := sessionCookieFrom(t, rec)
	if cookie == nil || cookie.MaxAge >= 0 || cookie.Value != "" {
		t.Errorf("expected expired empty cookie, got %+v", cookie)
	}
}

// Meがトークンなしで401を返すことを検証
func TestAuthHandler_Me_NoToken(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, testAuthHandlerConfig(), nil)

	rec := httptest.NewRecorder()
	h.Me(rec, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

// MeがCookieのトークンでユーザー情報を返すことを検証
func TestAuthHandler_Me(t *testing.T) {
	service := &mockAuthService{
		currentUserFn: func(ctx context.Context, token string) (*model.User, error) {
			if token != "valid-token" {
				return nil, model.NewUnauthorizedError()
			}
			return &model.User{ID: "user-1", Email: "taro@example.com", SSOProvider: "scalekit", EmailVerified: true}, nil
		},
	}
	h := NewAuthHandler(service, testAuthHandlerConfig(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "valid-token"})
	rec := httptest.NewRecorder()
	h.Me(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		User userResponse `json:"user"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.User.ID != "user-1" || body.User.SSOProvider != "scalekit" || !body.User.EmailVerified {
		t.Errorf("unexpected user: %+v", body.User)
	}
}
