package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/hitoshi/portfolioweb/internal/model"
)

const (
	// csrfCookieName はフロントエンドが読み取ってヘッダーに写すため、HttpOnlyにしない。
	csrfCookieName   = "csrf_token"
	csrfHeaderName   = "X-CSRF-Token"
	csrfCookieMaxAge = 86400
	csrfTokenBytes   = 32
)

// CSRFConfig はCSRFミドルウェアの設定。
// TrustedOriginsが空でなければ、Originヘッダー付きの更新系リクエストは
// 列挙したオリジンからのものだけを受け付ける。
type CSRFConfig struct {
	CookieSecure   bool
	CookieDomain   string
	TrustedOrigins []string
}

type csrfGuard struct {
	config CSRFConfig
}

// NewCSRFMiddleware はダブルサブミットCookie方式のCSRF検証ミドルウェアを返す。
// GET, HEAD, OPTIONSは検証せず、Cookieがなければトークンを発行する。
func NewCSRFMiddleware(config CSRFConfig) func(next http.Handler) http.Handler {
	g := &csrfGuard{config: config}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				if _, err := r.Cookie(csrfCookieName); err != nil {
					if _, err := g.issue(w); err != nil {
						slog.Error("failed to issue CSRF token", slog.String("error", err.Error()))
					}
				}
				next.ServeHTTP(w, r)
				return
			}

			if reason := g.check(r); reason != "" {
				slog.Warn("CSRF check rejected request",
					slog.String("reason", reason),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("request_id", RequestIDFromContext(r.Context())),
				)
				WriteErrorResponse(w, http.StatusForbidden, &model.APIError{
					Code:     "CSRF_TOKEN_INVALID",
					Message:  "CSRFトークンの検証に失敗しました。",
					Category: "auth",
					Action:   "ページを再読み込みしてから再度お試しください。",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NewCSRFTokenHandler はGET /api/csrf-tokenのハンドラーを返す。
// Cookieに既存のトークンがあればそれを返す。
func NewCSRFTokenHandler(config CSRFConfig) http.Handler {
	g := &csrfGuard{config: config}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ""
		if c, err := r.Cookie(csrfCookieName); err == nil {
			token = c.Value
		}
		if token == "" {
			var err error
			if token, err = g.issue(w); err != nil {
				slog.Error("failed to issue CSRF token", slog.String("error", err.Error()))
				WriteInternalServerError(w)
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		json.NewEncoder(w).Encode(struct {
			Token string `json:"token"`
		}{token})
	})
}

// check は拒否理由を返す。受け付ける場合は空文字列。
func (g *csrfGuard) check(r *http.Request) string {
	if origin := r.Header.Get("Origin"); origin != "" && len(g.config.TrustedOrigins) > 0 {
		if !slices.ContainsFunc(g.config.TrustedOrigins, func(o string) bool {
			return strings.EqualFold(strings.TrimSuffix(o, "/"), origin)
		}) {
			return "untrusted origin"
		}
	}

	c, err := r.Cookie(csrfCookieName)
	switch {
	case err != nil || c.Value == "":
		return "missing cookie token"
	case r.Header.Get(csrfHeaderName) == "":
		return "missing header token"
	case subtle.ConstantTimeCompare([]byte(c.Value), []byte(r.Header.Get(csrfHeaderName))) != 1:
		return "token mismatch"
	}
	return ""
}

func (g *csrfGuard) issue(w http.ResponseWriter) (string, error) {
	b := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := hex.EncodeToString(b)

	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		Domain:   g.config.CookieDomain,
		MaxAge:   csrfCookieMaxAge,
		Secure:   g.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return token, nil
}
