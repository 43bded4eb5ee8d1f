package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenManager_IssueAndParse(t *testing.T) {
	m := NewTokenManager("secret")

	token, err := m.Issue("profile-1", "session-1", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}

	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if claims.Subject != "profile-1" || claims.SessionID != "session-1" {
		t.Errorf("claims = %+v", claims)
	}
	if !m.ValidToken(token) {
		t.Error("ValidToken() = false, want true")
	}
}

func TestTokenManager_RejectsInvalidTokens(t *testing.T) {
	m := NewTokenManager("secret")

	expired, err := m.Issue("p", "s", time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	otherKey, err := NewTokenManager("other").Issue("p", "s", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   "p",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		SessionID: "s",
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("failed to sign none token: %v", err)
	}
	missingSID, err := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   "p",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	tokens := map[string]string{
		"expired":     expired,
		"other key":   otherKey,
		"alg none":    noneAlg,
		"missing sid": missingSID,
		"garbage":     "not-a-jwt",
		"empty":       "",
	}
	for name, token := range tokens {
		t.Run(name, func(t *testing.T) {
			if m.ValidToken(token) {
				t.Errorf("ValidToken(%s) = true, want false", name)
			}
		})
	}
}

func TestTokenManager_TokenFromRequest(t *testing.T) {
	m := NewTokenManager("secret")

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	if _, ok := m.TokenFromRequest(req); ok {
		t.Error("expected no token without cookie")
	}

	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "abc"})
	got, ok := m.TokenFromRequest(req)
	if !ok || got != "abc" {
		t.Errorf("TokenFromRequest() = (%q, %v), want (abc, true)", got, ok)
	}
}
