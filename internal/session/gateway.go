// Package session はIdPとの接点を一本化するゲートウェイと、
// セッション確認結果の短期キャッシュを提供する。
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/manabu/internal/idp"
	"github.com/hitoshi/manabu/internal/metrics"
	"github.com/hitoshi/manabu/internal/model"
	"github.com/hitoshi/manabu/internal/profile"
	"github.com/hitoshi/manabu/internal/repository"
)

// ProfileFetcher はバックエンドのプロフィール取得を抽象化する。
type ProfileFetcher interface {
	FetchMe(ctx context.Context, idToken string) (*profile.Profile, error)
}

// Gateway はIdP呼び出しの単一の窓口。
// プロバイダ固有のエラーはすべてここでmodel.AuthErrorに正規化済みの
// ものを受け取り、セッション確認はTTL付きキャッシュで吸収する。
type Gateway struct {
	provider   idp.Provider
	profiles   ProfileFetcher
	tokenRepo  repository.TokenRepository
	configured bool
	cacheTTL   time.Duration
	clock      func() time.Time
	logger     *slog.Logger
	metrics    metrics.MetricsCollector

	mu     sync.Mutex
	tokens *model.Tokens
	cache  *cacheEntry
}

// Options はGatewayの生成パラメータ。
type Options struct {
	Provider   idp.Provider
	Profiles   ProfileFetcher
	TokenRepo  repository.TokenRepository
	Configured bool
	CacheTTL   time.Duration
	Logger     *slog.Logger
	Metrics    metrics.MetricsCollector
}

// NewGateway はGatewayを生成する。
func NewGateway(opts Options) *Gateway {
	return &Gateway{
		provider:   opts.Provider,
		profiles:   opts.Profiles,
		tokenRepo:  opts.TokenRepo,
		configured: opts.Configured,
		cacheTTL:   opts.CacheTTL,
		clock:      time.Now,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
	}
}

// Bootstrap は永続化されたトークンを読み込み、前回のセッションを復元する。
// 起動時に1回だけ呼ぶこと。
func (g *Gateway) Bootstrap(ctx context.Context) error {
	if g.tokenRepo == nil {
		return nil
	}

	tokens, err := g.tokenRepo.Load(ctx)
	if err != nil {
		return err
	}

	g.mu.Lock()
	g.tokens = tokens
	g.mu.Unlock()
	return nil
}

// Login はメールアドレスとパスワードで認証し、セッションを確立する。
// 成功時はキャッシュを無効化する。
func (g *Gateway) Login(ctx context.Context, email, password string) error {
	if !g.configured {
		return model.NewConfigError()
	}

	start := g.clock()
	tokens, err := g.provider.SignIn(ctx, email, password)
	g.record("login", start, err)
	if err != nil {
		return err
	}

	g.mu.Lock()
	g.tokens = tokens
	g.cache = nil
	g.mu.Unlock()

	g.persistTokens(ctx, tokens)
	return nil
}

// Register は新規アカウントを登録する。
func (g *Gateway) Register(ctx context.Context, email, password, username string) error {
	if !g.configured {
		return model.NewConfigError()
	}

	start := g.clock()
	err := g.provider.SignUp(ctx, email, password, username)
	g.record("register", start, err)
	return err
}

// ConfirmEmail は確認コードでアカウントを有効化する。
func (g *Gateway) ConfirmEmail(ctx context.Context, email, code string) error {
	if !g.configured {
		return model.NewConfigError()
	}

	start := g.clock()
	err := g.provider.ConfirmSignUp(ctx, email, code)
	g.record("confirm_email", start, err)
	return err
}

// ResendConfirmationCode は確認コードを再送信する。
func (g *Gateway) ResendConfirmationCode(ctx context.Context, email string) error {
	if !g.configured {
		return model.NewConfigError()
	}

	start := g.clock()
	err := g.provider.ResendConfirmationCode(ctx, email)
	g.record("resend_code", start, err)
	return err
}

// ForgotPassword はパスワードリセットフローを開始する。
func (g *Gateway) ForgotPassword(ctx context.Context, email string) error {
	if !g.configured {
		return model.NewConfigError()
	}

	start := g.clock()
	err := g.provider.ForgotPassword(ctx, email)
	g.record("forgot_password", start, err)
	return err
}

// ResetPassword は確認コードで新しいパスワードを設定する。
func (g *Gateway) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if !g.configured {
		return model.NewConfigError()
	}

	start := g.clock()
	err := g.provider.ConfirmForgotPassword(ctx, email, code, newPassword)
	g.record("reset_password", start, err)
	return err
}

// Logout はセッションを終了する。IdP呼び出しの成否にかかわらず、
// ローカルのトークンとキャッシュは必ず破棄する。
func (g *Gateway) Logout(ctx context.Context) error {
	g.mu.Lock()
	tokens := g.tokens
	g.tokens = nil
	g.cache = nil
	g.mu.Unlock()

	if g.tokenRepo != nil {
		if err := g.tokenRepo.Clear(ctx); err != nil {
			g.logger.Warn("failed to clear persisted tokens", slog.String("error", err.Error()))
		}
	}

	if !g.configured || !tokens.Valid() {
		g.record("logout", g.clock(), nil)
		return nil
	}

	start := g.clock()
	err := g.provider.SignOut(ctx, tokens.AccessToken)
	g.record("logout", start, err)
	return err
}

// GetCurrentUser は現在のユーザーを返す。未認証の場合はnil。
// キャッシュが新しい間はIdPへの問い合わせを行わない。キャッシュミス時は
// セッションを取得し、IDトークンのクレームにバックエンドのプロフィールを
// マージした結果をキャッシュする。プロフィール取得の失敗はクレームのみへの
// フォールバックであり、エラーとして扱わない。
func (g *Gateway) GetCurrentUser(ctx context.Context) (*model.User, error) {
	now := g.clock()

	g.mu.Lock()
	if g.cache.fresh(now, g.cacheTTL) {
		// 認証済みでもユーザー未構築のエントリ（CheckAuthStateの軽量パス）
		// は完全取得にフォールスルーする
		if !g.cache.authenticated || g.cache.user != nil {
			user := g.cache.user
			g.mu.Unlock()
			g.metrics.RecordCacheHit()
			return user, nil
		}
	}
	g.mu.Unlock()
	g.metrics.RecordCacheMiss()

	tokens, err := g.currentSession(ctx)
	if err != nil {
		return nil, err
	}
	if !tokens.Valid() {
		g.setCache(&cacheEntry{authenticated: false, timestamp: g.clock()})
		return nil, nil
	}

	claims, err := idp.ParseIDToken(tokens.IDToken)
	if err != nil {
		g.logger.Warn("failed to decode id token claims", slog.String("error", err.Error()))
		g.setCache(&cacheEntry{authenticated: false, timestamp: g.clock()})
		return nil, nil
	}

	user := g.buildUser(ctx, tokens.IDToken, claims)
	g.setCache(&cacheEntry{authenticated: true, user: user, timestamp: g.clock()})
	return user, nil
}

// CheckAuthState は認証済みかどうかを返す。GetCurrentUserと同じ
// キャッシュ規律に従うが、クレームのデコードとプロフィール取得を
// 行わない軽量パス。
func (g *Gateway) CheckAuthState(ctx context.Context) (bool, error) {
	now := g.clock()

	g.mu.Lock()
	if g.cache.fresh(now, g.cacheTTL) {
		authenticated := g.cache.authenticated
		g.mu.Unlock()
		g.metrics.RecordCacheHit()
		return authenticated, nil
	}
	g.mu.Unlock()
	g.metrics.RecordCacheMiss()

	tokens, err := g.currentSession(ctx)
	if err != nil {
		return false, err
	}

	authenticated := tokens.Valid()
	g.setCache(&cacheEntry{authenticated: authenticated, timestamp: g.clock()})
	return authenticated, nil
}

// GetAccessToken は現在のアクセストークンを返す。未認証の場合は空文字。
func (g *Gateway) GetAccessToken(ctx context.Context) (string, error) {
	tokens, err := g.currentSession(ctx)
	if err != nil {
		return "", err
	}
	if !tokens.Valid() {
		return "", nil
	}
	return tokens.AccessToken, nil
}

// GetIDToken は現在のIDトークンを返す。未認証の場合は空文字。
func (g *Gateway) GetIDToken(ctx context.Context) (string, error) {
	tokens, err := g.currentSession(ctx)
	if err != nil {
		return "", err
	}
	if !tokens.Valid() {
		return "", nil
	}
	return tokens.IDToken, nil
}

// InvalidateCache はセッションキャッシュを明示的に破棄する。
func (g *Gateway) InvalidateCache() {
	g.mu.Lock()
	g.cache = nil
	g.mu.Unlock()
}

// currentSession は有効なトークン一式を返す。アクセストークンが期限切れで
// リフレッシュトークンを保持している場合は透過的にリフレッシュする。
// セッションが存在しない場合は(nil, nil)。
func (g *Gateway) currentSession(ctx context.Context) (*model.Tokens, error) {
	if !g.configured {
		return nil, nil
	}

	g.mu.Lock()
	tokens := g.tokens
	g.mu.Unlock()

	if !tokens.Valid() {
		return nil, nil
	}
	if !tokens.Expired(g.clock()) {
		return tokens, nil
	}
	if tokens.RefreshToken == "" {
		// リフレッシュ不能な期限切れセッションは破棄する
		g.dropSession(ctx)
		return nil, nil
	}

	refreshed, err := g.provider.Refresh(ctx, tokens.RefreshToken)
	if err != nil {
		g.logger.Warn("failed to refresh session", slog.String("error", err.Error()))
		g.dropSession(ctx)
		return nil, nil
	}

	// Cognitoはリフレッシュ時に新しいリフレッシュトークンを返さない
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = tokens.RefreshToken
	}

	g.mu.Lock()
	g.tokens = refreshed
	g.mu.Unlock()

	g.persistTokens(ctx, refreshed)
	return refreshed, nil
}

// buildUser はIDトークンのクレームとバックエンドのプロフィールから
// ユーザーを構築する。プロフィール側の値（username/email）が優先。
func (g *Gateway) buildUser(ctx context.Context, idToken string, claims *idp.IDTokenClaims) *model.User {
	user := &model.User{
		ID:                claims.Sub,
		Email:             claims.Email,
		PreferredUsername: claims.PreferredUsername,
		EmailVerified:     claims.EmailVerified,
		CreatedAt:         claims.IssuedAt,
		UpdatedAt:         claims.IssuedAt,
	}
	if user.PreferredUsername == "" {
		user.PreferredUsername = claims.Name
	}

	if g.profiles == nil {
		return user
	}

	p, err := g.profiles.FetchMe(ctx, idToken)
	if err != nil {
		g.logger.Debug("profile enrichment failed, using token claims",
			slog.String("error", err.Error()))
		g.metrics.RecordProfileFallback()
		return user
	}

	if p.UserID != "" {
		user.ID = p.UserID
	}
	if p.Email != "" {
		user.Email = p.Email
	}
	if p.Username != "" {
		user.PreferredUsername = p.Username
	}
	if t, err := time.Parse(time.RFC3339, p.CreatedAt); err == nil {
		user.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, p.UpdatedAt); err == nil {
		user.UpdatedAt = t
	}
	return user
}

func (g *Gateway) setCache(entry *cacheEntry) {
	g.mu.Lock()
	g.cache = entry
	g.mu.Unlock()
}

// dropSession はローカルと永続化層のトークンを破棄する。
func (g *Gateway) dropSession(ctx context.Context) {
	g.mu.Lock()
	g.tokens = nil
	g.mu.Unlock()

	if g.tokenRepo != nil {
		if err := g.tokenRepo.Clear(ctx); err != nil {
			g.logger.Warn("failed to clear persisted tokens", slog.String("error", err.Error()))
		}
	}
}

func (g *Gateway) persistTokens(ctx context.Context, tokens *model.Tokens) {
	if g.tokenRepo == nil {
		return
	}
	if err := g.tokenRepo.Save(ctx, tokens); err != nil {
		g.logger.Warn("failed to persist tokens", slog.String("error", err.Error()))
	}
}

// record は操作の結果とレイテンシをメトリクスに記録する。
func (g *Gateway) record(operation string, start time.Time, err error) {
	result := "success"
	if err != nil {
		result = "unknown"
		if authErr, ok := model.AsAuthError(err); ok {
			result = string(authErr.Kind)
		}
	}
	g.metrics.RecordAuthOperation(operation, result)
	g.metrics.RecordAuthLatency(operation, g.clock().Sub(start))
}
