package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenManager はセッショントークン（JWT）の発行と検証を行う。
// セッションはステートレスで、サーバー側には何も保存しない。
// トークンのsubjectクレームがユーザーIDを表す。
type TokenManager struct {
	secret []byte
	maxAge time.Duration
}

// NewTokenManager はTokenManagerを生成する。
// maxAgeSecondsはトークンの有効期間（秒）。
func NewTokenManager(secret string, maxAgeSeconds int) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		maxAge: time.Duration(maxAgeSeconds) * time.Second,
	}
}

// Issue は指定ユーザーIDをsubjectとする署名付きトークンを発行する。
func (m *TokenManager) Issue(userID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.maxAge)),
	})

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Verify はトークンを検証し、subjectのユーザーIDを返す。
// 署名不正・期限切れ・subject欠落はすべてエラーになる。
func (m *TokenManager) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid session token: %w", err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", fmt.Errorf("invalid session token")
	}

	return claims.Subject, nil
}
