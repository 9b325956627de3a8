package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/manabu/internal/guard"
	"github.com/hitoshi/manabu/internal/metrics"
	"github.com/hitoshi/manabu/internal/middleware"
	"github.com/hitoshi/manabu/internal/nav"
	"github.com/hitoshi/manabu/internal/store"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Facade            AuthFacadeInterface
	Store             *store.Store
	Logger            *slog.Logger
	Metrics           metrics.MetricsCollector
	RateLimiter       *middleware.RateLimiter
	Activity          middleware.ActivityRecorder
	CORSAllowedOrigin string

	// Prometheusスクレイプ用。nilの場合は/metricsを公開しない。
	Gatherer prometheus.Gatherer
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → RequestID → SecurityHeaders → CORS → Logging → RateLimit(General)
//
// ページと認証APIにはアクティビティ記録を追加し、ログイン・登録などの
// 変更系認証操作には専用のレート制限を重ねる。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware(deps.Logger))
	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.Metrics))

	authHandler := NewAuthHandler(deps.Facade, deps.Store, deps.Logger)
	pageHandler := NewPageHandler(deps.Store)

	// 運用エンドポイント（アクティビティ記録・ガードの対象外）
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	// --- 認証API ---
	r.Route("/api/auth", func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewActivityMiddleware(deps.Activity))

		// 変更系の認証操作には専用レート制限を追加
		r.With(deps.RateLimiter.AuthMiddleware()).Post("/login", authHandler.Login)
		r.With(deps.RateLimiter.AuthMiddleware()).Post("/register", authHandler.Register)
		r.With(deps.RateLimiter.AuthMiddleware()).Post("/confirm", authHandler.ConfirmEmail)
		r.With(deps.RateLimiter.AuthMiddleware()).Post("/resend", authHandler.ResendConfirmationCode)
		r.With(deps.RateLimiter.AuthMiddleware()).Post("/forgot", authHandler.ForgotPassword)
		r.With(deps.RateLimiter.AuthMiddleware()).Post("/reset", authHandler.ResetPassword)

		r.Post("/logout", authHandler.Logout)
		r.Post("/refresh", authHandler.Refresh)
		r.Get("/me", authHandler.Me)
		r.Get("/state", authHandler.State)
	})

	// --- ゲスト専用ページ ---
	// 認証済みユーザーはホームへリダイレクトされる
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewActivityMiddleware(deps.Activity))
		r.Use(guard.Middleware(deps.Store, guard.GuestOnly{}))

		r.Get(nav.PathLogin, pageHandler.Login)
		r.Get(nav.PathRegister, pageHandler.Register)
		r.Get(nav.PathConfirmEmail, pageHandler.ConfirmEmail)
		r.Get(nav.PathForgotPassword, pageHandler.ForgotPassword)
		r.Get(nav.PathResetPassword, pageHandler.ResetPassword)
	})

	// --- 認証必須ページ ---
	// 未認証ユーザーはログインへリダイレクトされる
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewActivityMiddleware(deps.Activity))
		r.Use(guard.Middleware(deps.Store, guard.RequireAuthenticated{}))

		r.Get(nav.PathHome, pageHandler.Home)
		r.Get("/dashboard", pageHandler.Dashboard)
		r.Get("/materials", pageHandler.Materials)
		r.Get("/exercises", pageHandler.Exercises)
		r.Get("/profile", pageHandler.Profile)
	})

	// ルートはホームへ（ガードが未認証をログインへ逃がす）
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, nav.PathHome, http.StatusSeeOther)
	})

	return r
}
