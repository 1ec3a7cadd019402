package repository

import (
	"testing"
	"time"

	"github.com/hitoshi/labnote/internal/model"
)

// PostgresUserRepoはUserRepositoryインターフェースを満たすことを検証
func TestPostgresUserRepo_ImplementsInterface(t *testing.T) {
	var _ UserRepository = (*PostgresUserRepo)(nil)
}

// NewPostgresUserRepoが正しく初期化されることを検証
func TestNewPostgresUserRepo_Initializes(t *testing.T) {
	repo := NewPostgresUserRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// Userモデルのフィールドが正しく構築されることを検証
func TestPostgresUserRepo_UserModel_Fields(t *testing.T) {
	now := time.Now()
	user := &model.User{
		ID:            "user-id-1",
		Email:         "test@example.com",
		Name:          "テストユーザー",
		PasswordHash:  "$2a$10$hash",
		EmailVerified: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if user.ID != "user-id-1" {
		t.Errorf("user.ID = %q, want %q", user.ID, "user-id-1")
	}
	if user.Email != "test@example.com" {
		t.Errorf("user.Email = %q, want %q", user.Email, "test@example.com")
	}
	if !user.EmailVerified {
		t.Error("user.EmailVerified should be true")
	}
}

// SSO経由のユーザーはパスワードハッシュが空であることを検証
func TestPostgresUserRepo_UserModel_SSOUser(t *testing.T) {
	user := &model.User{
		ID:             "user-id-2",
		Email:          "sso@example.com",
		SSOProvider:    "scalekit",
		OrganizationID: "org_123",
	}

	if user.PasswordHash != "" {
		t.Error("password_hash should be empty for SSO-provisioned users")
	}
	if user.SSOProvider != "scalekit" {
		t.Errorf("user.SSOProvider = %q, want %q", user.SSOProvider, "scalekit")
	}
}

// 一意制約違反のSQLSTATEコードが正しいことを検証
func TestUniqueViolationCode(t *testing.T) {
	if uniqueViolation != "23505" {
		t.Errorf("uniqueViolation = %q, want %q", uniqueViolation, "23505")
	}
}
