// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// パスワード認証のユーザーはPasswordHashを持ち、
// SSO経由で作成されたユーザーはSSOProviderと組織IDを持つ。
type User struct {
	ID             string
	Email          string
	Name           string
	PasswordHash   string // SSOユーザーの場合は空
	OrganizationID string // SSOユーザーのみ
	SSOProvider    string // 例: "scalekit"
	EmailVerified  bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
