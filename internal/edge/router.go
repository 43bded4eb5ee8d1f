package edge

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// excludedPrefixes はRouterの評価対象外となるパス接頭辞。
// 認証コールバック、静的アセット、監視用エンドポイントは常にそのまま通す。
var excludedPrefixes = []string{
	"/api/auth/",
	"/static/",
	"/assets/",
	"/favicon.ico",
	"/health",
	"/metrics",
}

// OutcomeKind はRouterの判定種別。
type OutcomeKind int

const (
	Passthrough OutcomeKind = iota
	Rewrite
	Redirect
)

// String はメトリクスのラベルやログに使う名前を返す。
func (k OutcomeKind) String() string {
	switch k {
	case Rewrite:
		return "rewrite"
	case Redirect:
		return "redirect"
	default:
		return "passthrough"
	}
}

// Outcome はRouterの判定結果。
// Rewriteでは書き換え後のパス、Redirectではリダイレクト先URLがTargetに入る。
type Outcome struct {
	Kind   OutcomeKind
	Target string
}

// SessionTokens はセッショントークンの取得と検証を行うインターフェース。
// Routerはトークンの中身を参照せず、有効かどうかのみを使う。
type SessionTokens interface {
	TokenFromRequest(r *http.Request) (string, bool)
	ValidToken(token string) bool
}

// Observer はRouterの判定結果を記録する。
type Observer interface {
	ObserveEdgeDecision(outcome string)
}

// Router はResolverとGateを組み合わせ、リクエストごとに
// 書き換え・リダイレクト・通過のいずれかを決定する。
type Router struct {
	resolver *Resolver
	gate     *Gate
	tokens   SessionTokens
	observer Observer
}

// NewRouter は新しいRouterを生成する。observerはnilでもよい。
func NewRouter(resolver *Resolver, gate *Gate, tokens SessionTokens, observer Observer) *Router {
	return &Router{
		resolver: resolver,
		gate:     gate,
		tokens:   tokens,
		observer: observer,
	}
}

// Route はリクエストに対する判定を返す。リクエスト自体は変更しない。
// パス形式の /portfolio/{username} は通常のルーティングに任せるため、
// 書き換えはホスト名から解決できた場合のみ行う。
func (rt *Router) Route(r *http.Request) Outcome {
	path := r.URL.Path
	if isExcluded(path) {
		return Outcome{Kind: Passthrough}
	}

	if tenant, ok := rt.resolver.ResolveHost(r.Host); ok {
		return Outcome{Kind: Rewrite, Target: portfolioPathPrefix + tenant + path}
	}

	hasToken := false
	if rt.gate.IsProtected(path) {
		hasToken = rt.hasValidToken(r)
	}
	decision := rt.gate.Authorize(path, hasToken)
	if !decision.Allow {
		return Outcome{Kind: Redirect, Target: decision.Target}
	}
	return Outcome{Kind: Passthrough}
}

// Middleware はRouteの判定をリクエストに適用するミドルウェアを返す。
// Rewriteではクエリ文字列を保持したままパスのみを差し替える。
// Redirectは307 Temporary Redirectで応答する。
func (rt *Router) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		outcome := rt.Route(r)
		if rt.observer != nil {
			rt.observer.ObserveEdgeDecision(outcome.Kind.String())
		}

		switch outcome.Kind {
		case Rewrite:
			slog.Debug("edge rewrite",
				slog.String("host", r.Host),
				slog.String("path", r.URL.Path),
				slog.String("target", outcome.Target),
			)
			rewritten := new(url.URL)
			*rewritten = *r.URL
			rewritten.Path = outcome.Target
			rewritten.RawPath = ""

			r2 := r.WithContext(r.Context())
			r2.URL = rewritten
			next.ServeHTTP(w, r2)
		case Redirect:
			http.Redirect(w, r, outcome.Target, http.StatusTemporaryRedirect)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

func (rt *Router) hasValidToken(r *http.Request) bool {
	if rt.tokens == nil {
		return false
	}
	token, ok := rt.tokens.TokenFromRequest(r)
	if !ok {
		return false
	}
	return rt.tokens.ValidToken(token)
}

func isExcluded(path string) bool {
	for _, prefix := range excludedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
