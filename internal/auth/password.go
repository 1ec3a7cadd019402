package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// minPasswordLength はサインアップ時に要求する最小パスワード長。
const minPasswordLength = 8

// HashPassword はbcryptでパスワードをハッシュ化する。
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword は平文パスワードとハッシュを照合する。
// 一致しない場合はfalseを返す。
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
