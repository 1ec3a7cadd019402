package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/labnote/internal/model"
)

type mockConnectorService struct {
	getAuthorizationURLFn func(connectionID, redirectURI, state string) (string, error)
}

func (m *mockConnectorService) GetConnectorAuthorizationURL(connectionID, redirectURI, state string) (string, error) {
	return m.getAuthorizationURLFn(connectionID, redirectURI, state)
}

func testConnectorConfig() ConnectorHandlerConfig {
	return ConnectorHandlerConfig{
		GmailConnectionID:    "conn_gmail",
		ConnectorRedirectURI: "http://localhost:8080/api/connector/callback",
	}
}

// 認可URL生成アクションが設定済みのコネクションIDと固定stateで呼ばれることを検証
func TestConnectorHandler_Authorize(t *testing.T) {
	service := &mockConnectorService{
		getAuthorizationURLFn: func(connectionID, redirectURI, state string) (string, error) {
			if connectionID != "conn_gmail" || state != "gmail-connection" {
				t.Errorf("unexpected args: conn=%q state=%q", connectionID, state)
			}
			return "https://idp.example.test/oauth/authorize?connection_id=conn_gmail", nil
		},
	}
	h := NewConnectorHandler(service, testConnectorConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/connector/authorize",
		strings.NewReader(`{"action":"get_authorization_url"}`))
	rec := httptest.NewRecorder()
	h.Authorize(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Link string `json:"link"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Success || !strings.Contains(resp.Data.Link, "connection_id=conn_gmail") {
		t.Errorf("unexpected body: %+v", resp)
	}
}

// 未サポートのactionが400を返すことを検証
func TestConnectorHandler_Authorize_UnsupportedAction(t *testing.T) {
	h := NewConnectorHandler(&mockConnectorService{}, testConnectorConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/connector/authorize",
		strings.NewReader(`{"action":"revoke"}`))
	rec := httptest.NewRecorder()
	h.Authorize(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

// IdP未設定時に設定エラーが500で返ることを検証
func TestConnectorHandler_Authorize_NotConfigured(t *testing.T) {
	service := &mockConnectorService{
		getAuthorizationURLFn: func(connectionID, redirectURI, state string) (string, error) {
			return "", model.NewConfigurationError("SSOプロバイダーの認証情報")
		},
	}
	h := NewConnectorHandler(service, testConnectorConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/connector/authorize",
		strings.NewReader(`{"action":"get_authorization_url"}`))
	rec := httptest.NewRecorder()
	h.Authorize(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	body := decodeErrorResponse(t, rec)
	if body["code"] != model.ErrCodeConfiguration {
		t.Errorf("expected CONFIGURATION_ERROR code, got %v", body["code"])
	}
}
