package middleware

import "net/http"

const (
	// contentSecurityPolicy は公開ページとAPIに共通のCSP。
	// ポートフォリオページは外部画像を表示するため、img-srcはhttpsを許可する。
	contentSecurityPolicy = "default-src 'self'; img-src 'self' https: data:; " +
		"style-src 'self' 'unsafe-inline'; frame-ancestors 'none'; base-uri 'self'; form-action 'self'"

	hstsValue = "max-age=31536000; includeSubDomains"
)

// NewSecurityHeadersMiddleware はセキュリティ関連のHTTPレスポンスヘッダーを付与するミドルウェアを返す。
// HTTPS経由のリクエスト（TLS終端がプロキシの場合はX-Forwarded-Proto）にはHSTSも付与する。
// サブドメインのポートフォリオも対象にするためincludeSubDomainsを付ける。
func NewSecurityHeadersMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			h.Set("Content-Security-Policy", contentSecurityPolicy)
			if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
				h.Set("Strict-Transport-Security", hstsValue)
			}
			next.ServeHTTP(w, r)
		})
	}
}
