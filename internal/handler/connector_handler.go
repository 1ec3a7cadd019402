package handler

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/labnote/internal/model"
)

// ConnectorServiceInterface はコネクタハンドラーが必要とするサービスインターフェース。
type ConnectorServiceInterface interface {
	// GetConnectorAuthorizationURL はコネクション（Gmail等）の認可URLを生成する。
	GetConnectorAuthorizationURL(connectionID, redirectURI, state string) (string, error)
}

// ConnectorHandlerConfig はコネクタハンドラーの設定。
type ConnectorHandlerConfig struct {
	GmailConnectionID    string
	ConnectorRedirectURI string
}

// ConnectorHandler はIdPコネクション連携のHTTPハンドラー。
// 現状はGmailコネクションの認可URL生成のみをサポートする。
type ConnectorHandler struct {
	service ConnectorServiceInterface
	config  ConnectorHandlerConfig
}

// NewConnectorHandler はConnectorHandlerを生成する。
func NewConnectorHandler(service ConnectorServiceInterface, config ConnectorHandlerConfig) *ConnectorHandler {
	return &ConnectorHandler{
		service: service,
		config:  config,
	}
}

// connectorRequest はコネクタ認可リクエストのボディ。
type connectorRequest struct {
	Action string `json:"action"`
}

// Authorize はコネクションの認可URLを生成して返す。
// actionフィールドはget_authorization_urlのみサポートする。
// POST /api/connector/authorize
func (h *ConnectorHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	var req connectorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディの解析に失敗しました"))
		return
	}

	if req.Action != "get_authorization_url" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("サポートされていないactionです"))
		return
	}

	link, err := h.service.GetConnectorAuthorizationURL(
		h.config.GmailConnectionID,
		h.config.ConnectorRedirectURI,
		"gmail-connection",
	)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"data": map[string]string{
			"link": link,
		},
	})
}
