package handler

import (
	"context"

	"github.com/hitoshi/labnote/internal/auth"
	"github.com/hitoshi/labnote/internal/model"
)

// SSOServiceAdapter は auth.Service を SSOServiceInterface に適合させるアダプタ。
type SSOServiceAdapter struct {
	svc *auth.Service
}

// NewSSOServiceAdapter はSSOServiceAdapterを生成する。
func NewSSOServiceAdapter(svc *auth.Service) *SSOServiceAdapter {
	return &SSOServiceAdapter{svc: svc}
}

// BeginSSOAuthorization はIdPの認可URLを生成する。
func (a *SSOServiceAdapter) BeginSSOAuthorization(organizationID, email string) (string, error) {
	return a.svc.BeginSSOAuthorization(auth.AuthorizationHint{
		OrganizationID: organizationID,
		Email:          email,
	})
}

// HandleSSOCallback は認可コードを交換し、ユーザーとセッショントークンを返す。
func (a *SSOServiceAdapter) HandleSSOCallback(ctx context.Context, code string) (*model.User, string, error) {
	return a.svc.HandleSSOCallback(ctx, code)
}

// --- compile-time interface checks ---

var _ SSOServiceInterface = (*SSOServiceAdapter)(nil)
