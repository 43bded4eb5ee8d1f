// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/portfolioweb/internal/auth"
	"github.com/hitoshi/portfolioweb/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	profileIDContextKey     = contextKey("profile_id")
	sessionIDContextKey     = contextKey("session_id")
	profileHolderContextKey = contextKey("profile_holder")
)

// profileHolder はロギングミドルウェアへ認証済みプロフィールIDを渡す入れ物。
type profileHolder struct {
	profileID string
}

func withProfileHolder(ctx context.Context, h *profileHolder) context.Context {
	return context.WithValue(ctx, profileHolderContextKey, h)
}

// SessionAuthenticator はセッショントークンを検証し、有効なセッションを返す。
// auth.Serviceが実装する。
type SessionAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*model.Session, error)
}

// NewSessionMiddleware はCookieのセッショントークンを検証するミドルウェアを返す。
// 署名と有効期限に加えてサーバー側のセッションが残っていることを確認し、
// プロフィールIDとセッションIDをリクエストコンテキストに注入する。
// 未認証リクエストには401を返す。
func NewSessionMiddleware(authenticator SessionAuthenticator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(auth.SessionCookieName)
			if err != nil || cookie.Value == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			session, err := authenticator.Authenticate(r.Context(), cookie.Value)
			if err != nil {
				if !errors.Is(err, auth.ErrInvalidToken) {
					slog.Error("failed to authenticate session",
						slog.String("error", err.Error()),
					)
				}
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			if h, ok := r.Context().Value(profileHolderContextKey).(*profileHolder); ok {
				h.profileID = session.ProfileID
			}
			ctx := ContextWithSession(r.Context(), session.ProfileID, session.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ProfileIDFromContext はリクエストコンテキストからプロフィールIDを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func ProfileIDFromContext(ctx context.Context) (string, error) {
	profileID, ok := ctx.Value(profileIDContextKey).(string)
	if !ok || profileID == "" {
		return "", fmt.Errorf("profile ID not found in context")
	}
	return profileID, nil
}

// SessionIDFromContext はリクエストコンテキストからセッションIDを取得する。
func SessionIDFromContext(ctx context.Context) (string, error) {
	sessionID, ok := ctx.Value(sessionIDContextKey).(string)
	if !ok || sessionID == "" {
		return "", fmt.Errorf("session ID not found in context")
	}
	return sessionID, nil
}

// ContextWithSession はコンテキストにプロフィールIDとセッションIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithSession(ctx context.Context, profileID, sessionID string) context.Context {
	ctx = context.WithValue(ctx, profileIDContextKey, profileID)
	return context.WithValue(ctx, sessionIDContextKey, sessionID)
}
