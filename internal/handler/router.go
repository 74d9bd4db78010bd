package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/soullog/internal/metrics"
	"github.com/hitoshi/soullog/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger      *slog.Logger
	Development bool

	// セッション
	Sessions middleware.SessionResolver
	Cookies  SessionCookieStore

	// ミドルウェア設定
	CORSAllowedOrigins []string
	CSRF               middleware.CSRFConfig
	RateLimiter        *middleware.RateLimiter

	// サービス
	AuthService    AuthServiceInterface
	JournalService JournalServiceInterface

	// メトリクス。Gathererがnilの場合は/metricsを公開しない。
	Recorder metrics.Recorder
	Gatherer prometheus.Gatherer
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアの実行順序:
//
//	RequestID → RealIP → Logging → Recovery → SecurityHeaders → CORS → Session
//
// /api 配下は RateLimit(General) を通り、保護ルートはさらに RequireAuth → CSRF を通る。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewLoggingMiddleware(logger, deps.Recorder))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware(!deps.Development))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigins))
	r.Use(middleware.NewSessionMiddleware(deps.Sessions, deps.Cookies, deps.Recorder))

	authHandler := NewAuthHandler(deps.AuthService, deps.Cookies,
		AuthHandlerConfig{CookieSecure: deps.CSRF.CookieSecure}, deps.Recorder, deps.Development)
	entryHandler := NewEntryHandler(deps.JournalService, deps.Recorder, deps.Development)

	r.Get("/health", Health)
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	// 認証ルート（匿名でもアクセス可能）
	r.Route("/auth", func(r chi.Router) {
		r.Get("/status", authHandler.Status)
		r.Post("/logout", authHandler.Logout)
		r.Get("/{provider}", authHandler.Login)
		r.Get("/{provider}/callback", authHandler.Callback)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Method(http.MethodGet, "/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRF))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Use(middleware.NewCSRFMiddleware(deps.CSRF))

			r.Route("/entries", func(r chi.Router) {
				r.Get("/", entryHandler.ListEntries)
				r.With(deps.RateLimiter.EntryCreateMiddleware()).Post("/", entryHandler.CreateEntry)
				r.Delete("/", entryHandler.ClearEntries)
				r.Get("/export", entryHandler.ExportEntries)
			})
			r.Get("/stats", entryHandler.GetStats)
		})
	})

	return r
}
