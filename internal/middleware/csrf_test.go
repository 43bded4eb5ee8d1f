package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newCSRFHandler(t *testing.T, called *bool) http.Handler {
	t.Helper()
	mw := NewCSRFMiddleware(CSRFConfig{})
	return mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	}))
}

func TestCSRFMiddleware_SafeMethodsPassWithoutToken(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodOptions} {
		t.Run(method, func(t *testing.T) {
			called := false
			handler := newCSRFHandler(t, &called)

			req := httptest.NewRequest(method, "/api/profile", nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if !called {
				t.Fatalf("handler should have been called for %s", method)
			}
		})
	}
}

func TestCSRFMiddleware_StateChangingRequestsValidated(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		cookie     string
		header     string
		wantStatus int
	}{
		{"POST no cookie", http.MethodPost, "", "token-abc", http.StatusForbidden},
		{"POST no header", http.MethodPost, "token-abc", "", http.StatusForbidden},
		{"POST mismatch", http.MethodPost, "token-abc", "wrong-token", http.StatusForbidden},
		{"POST valid", http.MethodPost, "token-abc", "token-abc", http.StatusOK},
		{"PUT no token", http.MethodPut, "", "", http.StatusForbidden},
		{"PATCH no token", http.MethodPatch, "", "", http.StatusForbidden},
		{"DELETE valid", http.MethodDelete, "token-abc", "token-abc", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := newCSRFHandler(t, &called)

			req := httptest.NewRequest(tt.method, "/api/profile", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: tt.cookie})
			}
			if tt.header != "" {
				req.Header.Set(csrfHeaderName, tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if called != (tt.wantStatus == http.StatusOK) {
				t.Errorf("handler called = %v", called)
			}
			if tt.wantStatus == http.StatusForbidden {
				var body ErrorResponseBody
				if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
					t.Fatalf("failed to decode: %v", err)
				}
				if body.Code != "CSRF_TOKEN_INVALID" {
					t.Errorf("code = %q, want CSRF_TOKEN_INVALID", body.Code)
				}
			}
		})
	}
}

func TestCSRFMiddleware_GETRequest_SetsCSRFCookie(t *testing.T) {
	called := false
	handler := newCSRFHandler(t, &called)

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	var csrfCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == csrfCookieName {
			csrfCookie = c
		}
	}
	if csrfCookie == nil {
		t.Fatal("expected csrf_token cookie to be set")
	}
	if len(csrfCookie.Value) != 64 {
		t.Errorf("token length = %d, want 64", len(csrfCookie.Value))
	}
	if csrfCookie.HttpOnly {
		t.Error("csrf cookie must be readable from JavaScript")
	}
}

func TestCSRFMiddleware_GETRequest_ExistingCookie_DoesNotReplace(t *testing.T) {
	called := false
	handler := newCSRFHandler(t, &called)

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "existing"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	for _, c := range w.Result().Cookies() {
		if c.Name == csrfCookieName {
			t.Errorf("existing csrf cookie was replaced with %q", c.Value)
		}
	}
}

func TestCSRFTokenHandler(t *testing.T) {
	handler := NewCSRFTokenHandler(CSRFConfig{CookieSecure: true, CookieDomain: "monportfolioweb.com"})

	t.Run("issues new token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode: %v", err)
		}
		cookies := w.Result().Cookies()
		if len(cookies) != 1 {
			t.Fatalf("cookies = %d, want 1", len(cookies))
		}
		if cookies[0].Value != body["token"] {
			t.Errorf("cookie %q does not match body token %q", cookies[0].Value, body["token"])
		}
		if !cookies[0].Secure || cookies[0].Domain != "monportfolioweb.com" {
			t.Errorf("cookie attributes = %+v", cookies[0])
		}
	})

	t.Run("returns existing token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
		req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "existing"})
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode: %v", err)
		}
		if body["token"] != "existing" {
			t.Errorf("token = %q, want %q", body["token"], "existing")
		}
		if len(w.Result().Cookies()) != 0 {
			t.Error("no new cookie expected")
		}
	})
}

func TestCSRFMiddleware_TrustedOrigins(t *testing.T) {
	mw := NewCSRFMiddleware(CSRFConfig{
		TrustedOrigins: []string{"https://monportfolioweb.com/", "http://localhost:3000"},
	})
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		origin string
		want   int
	}{
		{"no origin header", "", http.StatusNoContent},
		{"trusted origin", "https://monportfolioweb.com", http.StatusNoContent},
		{"trusted dev origin", "http://localhost:3000", http.StatusNoContent},
		{"tenant subdomain", "https://madjid.monportfolioweb.com", http.StatusForbidden},
		{"foreign origin", "https://evil.example", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/profile", nil)
			req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "token"})
			req.Header.Set(csrfHeaderName, "token")
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}
