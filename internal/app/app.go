package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/manabu/internal/config"
	"github.com/hitoshi/manabu/internal/database"
	"github.com/hitoshi/manabu/internal/facade"
	"github.com/hitoshi/manabu/internal/handler"
	"github.com/hitoshi/manabu/internal/idle"
	"github.com/hitoshi/manabu/internal/idp"
	"github.com/hitoshi/manabu/internal/logger"
	"github.com/hitoshi/manabu/internal/metrics"
	"github.com/hitoshi/manabu/internal/middleware"
	"github.com/hitoshi/manabu/internal/nav"
	"github.com/hitoshi/manabu/internal/profile"
	"github.com/hitoshi/manabu/internal/repository"
	"github.com/hitoshi/manabu/internal/session"
	"github.com/hitoshi/manabu/internal/store"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.Bool("cognito_configured", cfg.CognitoConfigured()),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// 状態DBを開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx := context.Background()

	// 1. 状態DB接続
	db, err := database.Open(cfg.StateDBPath)
	if err != nil {
		return fmt.Errorf("failed to open state database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to state database: %w", err)
	}

	slog.Info("state database opened", slog.String("path", cfg.StateDBPath))

	// 2. リポジトリの初期化
	stateRepo := repository.NewSQLiteStateRepo(db)
	tokenRepo := repository.NewSQLiteTokenRepo(db)

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. 認証状態ストアの初期化と前回状態の復元
	authStore := store.New(stateRepo, slog.Default())

	user, authenticated, err := stateRepo.Load(ctx)
	if err != nil {
		slog.Warn("failed to restore persisted auth state",
			slog.String("error", err.Error()),
		)
	} else {
		authStore.Seed(user, authenticated)
	}

	// 5. IdPプロバイダの初期化
	// 未設定時はプロバイダなしで起動し、認証操作ごとに設定エラーを返す。
	var provider idp.Provider
	if cfg.CognitoConfigured() {
		cognito, err := idp.NewCognitoProvider(ctx, idp.CognitoConfig{
			Region:   cfg.CognitoRegion,
			ClientID: cfg.CognitoClientID,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize identity provider: %w", err)
		}
		provider = cognito
	} else {
		slog.Warn("cognito is not configured; auth operations will fail with CONFIG_ERROR")
	}

	// 6. セッションゲートウェイの初期化
	profiles := profile.NewClient(cfg.APIBaseURL, cfg.APITimeout)

	gateway := session.NewGateway(session.Options{
		Provider:   provider,
		Profiles:   profiles,
		TokenRepo:  tokenRepo,
		Configured: cfg.CognitoConfigured(),
		CacheTTL:   cfg.AuthCacheTTL,
		Logger:     slog.Default(),
		Metrics:    collector,
	})

	if err := gateway.Bootstrap(ctx); err != nil {
		slog.Warn("failed to restore persisted session tokens",
			slog.String("error", err.Error()),
		)
	}

	// 7. ファサードとアイドル監視の初期化
	tracker := nav.NewTracker(nav.NewRoute(nav.PathLogin))
	authFacade := facade.New(gateway, authStore, tracker, slog.Default(), collector)

	watcher := idle.NewWatcher(cfg.IdleTimeout, func() {
		authFacade.ExpireSession(context.Background())
	}, slog.Default())
	unbind := watcher.Bind(authStore)
	defer unbind()

	// 8. レート制限の初期化（configはreq/min単位、rate.Limitはreq/sec単位）
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	rateLimiterCfg.AuthRate = rate.Limit(float64(cfg.RateLimitAuth) / 60.0)
	rateLimiterCfg.AuthBurst = cfg.RateLimitAuth

	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	// 9. ルーターの構築
	router := handler.NewRouter(&handler.RouterDeps{
		Facade:            authFacade,
		Store:             authStore,
		Logger:            slog.Default(),
		Metrics:           collector,
		RateLimiter:       rateLimiter,
		Activity:          watcher,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		Gatherer:          registry,
	})

	// 10. 起動時の認証状態チェック（IdPとの同期はバックグラウンドで行う）
	go authFacade.CheckAuthState(context.Background())

	// 11. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate は状態DBのマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running state database migrations",
		slog.String("path", cfg.StateDBPath),
	)

	if err := database.RunMigrations(cfg.StateDBPath); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("state database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
