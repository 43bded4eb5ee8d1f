package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionCookieName はセッショントークンを保持するCookie名。
const SessionCookieName = "session_token"

const tokenIssuer = "portfolioweb"

// ErrInvalidToken はトークンの署名・期限・形式のいずれかが不正な場合のエラー。
var ErrInvalidToken = errors.New("invalid session token")

// SessionClaims はセッショントークンのクレーム。
// SubjectにプロフィールID、SessionIDにsessionsテーブルの主キーを持つ。
type SessionClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

// TokenManager はセッショントークン（HS256 JWT）の発行と検証を行う。
// 検証は署名と有効期限のみで、DBは参照しない。
type TokenManager struct {
	secret []byte
	now    func() time.Time
}

// NewTokenManager はTokenManagerを生成する。
func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{secret: []byte(secret), now: time.Now}
}

// Issue はセッションに対応するトークンを発行する。
// 有効期限はセッションの期限と同じにする。
func (m *TokenManager) Issue(profileID, sessionID string, expiresAt time.Time) (string, error) {
	now := m.now().UTC()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   profileID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		SessionID: sessionID,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Parse はトークンを検証してクレームを返す。
func (m *TokenManager) Parse(token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) {
			return m.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// TokenFromRequest はリクエストのCookieからセッショントークンを取り出す。
func (m *TokenManager) TokenFromRequest(r *http.Request) (string, bool) {
	c, err := r.Cookie(SessionCookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// ValidToken はトークンが有効かどうかを返す。
func (m *TokenManager) ValidToken(token string) bool {
	_, err := m.Parse(token)
	return err == nil
}
