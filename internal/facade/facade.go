// Package facade は認証ユースケースのオーケストレーションを提供する。
// ゲートウェイとストアを束ね、操作の成否に応じた画面遷移を行う
// 唯一のコンポーネント。
package facade

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/hitoshi/manabu/internal/metrics"
	"github.com/hitoshi/manabu/internal/model"
	"github.com/hitoshi/manabu/internal/nav"
	"github.com/hitoshi/manabu/internal/store"
)

// AuthGateway はファサードが利用するゲートウェイ操作のインターフェース。
type AuthGateway interface {
	Login(ctx context.Context, email, password string) error
	Register(ctx context.Context, email, password, username string) error
	ConfirmEmail(ctx context.Context, email, code string) error
	ResendConfirmationCode(ctx context.Context, email string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
	Logout(ctx context.Context) error
	GetCurrentUser(ctx context.Context) (*model.User, error)
	CheckAuthState(ctx context.Context) (bool, error)
}

// Facade は認証操作の窓口。各操作は
// Pending（ローディング開始・エラークリア）→ 成功（ストア更新・遷移）
// または失敗（エラー設定・再スロー）の形をとり、ローディングフラグは
// どの経路でも必ず解除される。
type Facade struct {
	gateway   AuthGateway
	store     *store.Store
	navigator nav.Navigator
	logger    *slog.Logger
	metrics   metrics.MetricsCollector

	// 非同期操作の世代トークン。新しい操作が始まった後に解決した
	// 古い結果はストアに反映しない。
	opSeq atomic.Uint64
}

// New はFacadeを生成する。
func New(gateway AuthGateway, st *store.Store, navigator nav.Navigator, logger *slog.Logger, collector metrics.MetricsCollector) *Facade {
	return &Facade{
		gateway:   gateway,
		store:     st,
		navigator: navigator,
		logger:    logger,
		metrics:   collector,
	}
}

// begin は新しい操作トークンを発行し、Pending状態へ遷移させる。
func (f *Facade) begin() uint64 {
	op := f.opSeq.Add(1)
	f.store.ClearError()
	f.store.SetLoading(true)
	return op
}

// stale は操作トークンopより新しい操作が開始済みかを返す。
func (f *Facade) stale(op uint64) bool {
	return f.opSeq.Load() != op
}

// fail は失敗をストアに反映する。古い操作の結果は破棄する。
func (f *Facade) fail(op uint64, err error) {
	if f.stale(op) {
		return
	}
	f.store.SetError(userMessage(err))
}

// finish はローディングフラグを解除する。古い操作の結果は破棄する。
func (f *Facade) finish(op uint64) {
	if f.stale(op) {
		return
	}
	f.store.SetLoading(false)
}

// Login は認証してユーザーをストアに反映し、ホームへ遷移する。
// 失敗時はエラーメッセージをストアに設定したうえでエラーを返す
// （フォーム側が追加のハンドリングを行えるように）。
func (f *Facade) Login(ctx context.Context, email, password string) error {
	op := f.begin()

	if err := f.gateway.Login(ctx, email, password); err != nil {
		f.fail(op, err)
		return err
	}

	user, err := f.gateway.GetCurrentUser(ctx)
	if err != nil {
		f.fail(op, err)
		return err
	}

	if f.stale(op) {
		return nil
	}
	f.store.SetUser(ctx, user)
	f.navigator.Navigate(nav.NewRoute(nav.PathHome))
	return nil
}

// Register は新規登録を行い、確認コード入力画面へ遷移する。
func (f *Facade) Register(ctx context.Context, email, password, username string) error {
	op := f.begin()

	if err := f.gateway.Register(ctx, email, password, username); err != nil {
		f.fail(op, err)
		return err
	}

	f.finish(op)
	if !f.stale(op) {
		f.navigator.Navigate(nav.NewRoute(nav.PathConfirmEmail).WithParam("email", email))
	}
	return nil
}

// ConfirmEmail はアカウントを有効化し、登録完了バナー付きで
// ログイン画面へ遷移する。
func (f *Facade) ConfirmEmail(ctx context.Context, email, code string) error {
	op := f.begin()

	if err := f.gateway.ConfirmEmail(ctx, email, code); err != nil {
		f.fail(op, err)
		return err
	}

	f.finish(op)
	if !f.stale(op) {
		f.navigator.Navigate(nav.NewRoute(nav.PathLogin).WithParam("registered", "true"))
	}
	return nil
}

// ResendConfirmationCode は確認コードを再送信する。遷移は行わない。
func (f *Facade) ResendConfirmationCode(ctx context.Context, email string) error {
	op := f.begin()

	if err := f.gateway.ResendConfirmationCode(ctx, email); err != nil {
		f.fail(op, err)
		return err
	}

	f.finish(op)
	return nil
}

// ForgotPassword はリセットフローを開始し、コード入力画面へ遷移する。
func (f *Facade) ForgotPassword(ctx context.Context, email string) error {
	op := f.begin()

	if err := f.gateway.ForgotPassword(ctx, email); err != nil {
		f.fail(op, err)
		return err
	}

	f.finish(op)
	if !f.stale(op) {
		f.navigator.Navigate(nav.NewRoute(nav.PathResetPassword).WithParam("email", email))
	}
	return nil
}

// ResetPassword は新しいパスワードを設定し、リセット完了バナー付きで
// ログイン画面へ遷移する。
func (f *Facade) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	op := f.begin()

	if err := f.gateway.ResetPassword(ctx, email, code, newPassword); err != nil {
		f.fail(op, err)
		return err
	}

	f.finish(op)
	if !f.stale(op) {
		f.navigator.Navigate(nav.NewRoute(nav.PathLogin).WithParam("reset", "true"))
	}
	return nil
}

// Logout はセッションを終了してログイン画面へ遷移する。
// IdP側の失敗はローカル状態の破棄を妨げない。
func (f *Facade) Logout(ctx context.Context) error {
	op := f.begin()

	err := f.gateway.Logout(ctx)
	if err != nil {
		f.logger.Warn("remote logout failed, clearing local session anyway",
			slog.String("error", err.Error()))
	}

	if f.stale(op) {
		return err
	}
	f.store.Logout(ctx)
	f.navigator.Navigate(nav.NewRoute(nav.PathLogin))
	return err
}

// CheckAuthState はゲートウェイの状態からストアを再構築する。
// 起動時とガード判定の前に呼ばれる。遷移は行わない。
func (f *Facade) CheckAuthState(ctx context.Context) {
	op := f.begin()

	user, err := f.gateway.GetCurrentUser(ctx)
	if err != nil {
		f.logger.Warn("auth state check failed", slog.String("error", err.Error()))
		user = nil
	}

	if f.stale(op) {
		return
	}
	f.store.SetUser(ctx, user)
}

// ExpireSession はアイドルタイムアウトによる強制ログアウトを実行する。
// タイムアウトインジケータ付きでログイン画面へ遷移する。
func (f *Facade) ExpireSession(ctx context.Context) {
	op := f.begin()

	if err := f.gateway.Logout(ctx); err != nil {
		f.logger.Warn("remote logout failed during idle expiry",
			slog.String("error", err.Error()))
	}

	f.metrics.RecordIdleLogout()

	if f.stale(op) {
		return
	}
	f.store.Logout(ctx)
	f.navigator.Navigate(nav.NewRoute(nav.PathLogin).WithParam("timeout", "true"))
}

// userMessage はエラーからUI表示用のメッセージを取り出す。
func userMessage(err error) string {
	if authErr, ok := model.AsAuthError(err); ok {
		return authErr.Message
	}
	return model.NewUnknownError("").Message
}
