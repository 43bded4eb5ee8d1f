package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/portfolioweb/internal/middleware"
)

// RouterMetrics はルーター全体で記録するメトリクス。metrics.Collectorが実装する。
type RouterMetrics interface {
	Metrics
	middleware.StatusObserver
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger

	// ミドルウェア依存
	Edge              func(next http.Handler) http.Handler
	Authenticator     middleware.SessionAuthenticator
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig
	RateLimiter       *middleware.RateLimiter

	// 監視
	Metrics        RouterMetrics
	MetricsHandler http.Handler
	HealthChecker  HealthChecker

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// プロフィールと公開ページ
	ProfileService ProfileServiceInterface
	Renderer       PageRenderer
	Exporter       CVExporter
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Logging → Recovery → SecurityHeaders → Edge → CORS
//
// 認証済みAPIにはさらに Session → RateLimit(General) → CSRF を適用する。
// 認証ルート（/api/auth/*）と公開ページはセッションを要求しない。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var m Metrics
	var statusObserver middleware.StatusObserver
	if deps.Metrics != nil {
		m = deps.Metrics
		statusObserver = deps.Metrics
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger, statusObserver))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	if deps.Edge != nil {
		r.Use(deps.Edge)
	}
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	profileHandler := NewProfileHandler(deps.ProfileService, m)
	portfolioHandler := NewPortfolioHandler(deps.ProfileService, deps.Renderer, m)
	cvHandler := NewCVHandler(deps.ProfileService, deps.Exporter, m)

	// --- 認証不要のルート ---

	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/sign-in", authHandler.SignIn)

		// OAuthフロー
		r.Get("/google/login", authHandler.Login)
		r.Get("/google/callback", authHandler.Callback)

		// セッション管理
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// 公開ポートフォリオ（サブドメインからの書き換え先を含む）
	r.Get("/portfolio/{username}", portfolioHandler.Show)
	r.Get("/portfolio/{username}/*", portfolioHandler.Show)

	r.With(deps.RateLimiter.ExportMiddleware()).
		Get("/api/portfolio/download/{username}", cvHandler.DownloadPublic)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General) → CSRF
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.Authenticator))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		r.Get("/api/profile", profileHandler.Get)
		r.Post("/api/profile", profileHandler.Save)

		r.With(deps.RateLimiter.ExportMiddleware()).
			Post("/api/cv/download", cvHandler.DownloadOwn)
	})

	return r
}
