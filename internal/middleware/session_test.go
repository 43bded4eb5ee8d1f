package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/portfolioweb/internal/auth"
	"github.com/hitoshi/portfolioweb/internal/model"
)

// --- モック定義 ---

type mockAuthenticator struct {
	authenticateFn func(ctx context.Context, token string) (*model.Session, error)
}

func (m *mockAuthenticator) Authenticate(ctx context.Context, token string) (*model.Session, error) {
	if m.authenticateFn != nil {
		return m.authenticateFn(ctx, token)
	}
	return nil, auth.ErrInvalidToken
}

func validAuthenticator(profileID string) *mockAuthenticator {
	return &mockAuthenticator{
		authenticateFn: func(ctx context.Context, token string) (*model.Session, error) {
			if token != "valid-token" {
				return nil, auth.ErrInvalidToken
			}
			return &model.Session{
				ID:        "session-1",
				ProfileID: profileID,
				ExpiresAt: time.Now().Add(time.Hour),
			}, nil
		},
	}
}

// --- テスト ---

func TestSessionMiddleware_ValidToken_InjectsIDs(t *testing.T) {
	mw := NewSessionMiddleware(validAuthenticator("profile-123"))

	var gotProfileID, gotSessionID string
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error
		if gotProfileID, err = ProfileIDFromContext(r.Context()); err != nil {
			t.Errorf("ProfileIDFromContext() error: %v", err)
		}
		if gotSessionID, err = SessionIDFromContext(r.Context()); err != nil {
			t.Errorf("SessionIDFromContext() error: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "valid-token"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotProfileID != "profile-123" {
		t.Errorf("profileID = %q, want %q", gotProfileID, "profile-123")
	}
	if gotSessionID != "session-1" {
		t.Errorf("sessionID = %q, want %q", gotSessionID, "session-1")
	}
}

func TestSessionMiddleware_Rejects(t *testing.T) {
	tests := []struct {
		name          string
		cookie        string
		authenticator *mockAuthenticator
	}{
		{"no cookie", "", validAuthenticator("p")},
		{"invalid token", "forged", validAuthenticator("p")},
		{"store error", "valid-token", &mockAuthenticator{
			authenticateFn: func(ctx context.Context, token string) (*model.Session, error) {
				return nil, errors.New("db down")
			},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewSessionMiddleware(tt.authenticator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler should not be called")
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: tt.cookie})
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
			var body ErrorResponseBody
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode: %v", err)
			}
			if body.Code != model.ErrCodeUnauthorized {
				t.Errorf("code = %q, want %q", body.Code, model.ErrCodeUnauthorized)
			}
		})
	}
}

func TestProfileIDFromContext_Missing(t *testing.T) {
	if _, err := ProfileIDFromContext(context.Background()); err == nil {
		t.Error("expected error for empty context")
	}
	if _, err := SessionIDFromContext(context.Background()); err == nil {
		t.Error("expected error for empty context")
	}

	ctx := ContextWithSession(context.Background(), "p1", "s1")
	if id, _ := ProfileIDFromContext(ctx); id != "p1" {
		t.Errorf("profileID = %q, want p1", id)
	}
}
