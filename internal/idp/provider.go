// Package idp はIdP（Cognito）との通信とエラー正規化を提供する。
package idp

import (
	"context"

	"github.com/hitoshi/manabu/internal/model"
)

// Provider はIdPクライアントのインターフェース。
// ゲートウェイはこの抽象を通してのみIdPと通信するため、
// 準拠するクライアントであれば実装を差し替えられる。
type Provider interface {
	// SignIn はメールアドレスとパスワードで認証し、トークン一式を返す。
	SignIn(ctx context.Context, email, password string) (*model.Tokens, error)
	// Refresh はリフレッシュトークンで新しいトークン一式を取得する。
	// 返り値のRefreshTokenが空の場合、呼び出し側は既存値を引き継ぐこと。
	Refresh(ctx context.Context, refreshToken string) (*model.Tokens, error)
	// SignUp は新規アカウントを登録する。確認コードがメールで送信される。
	SignUp(ctx context.Context, email, password, preferredUsername string) error
	// ConfirmSignUp は確認コードでアカウントを有効化する。
	ConfirmSignUp(ctx context.Context, email, code string) error
	// ResendConfirmationCode は確認コードを再送信する。
	ResendConfirmationCode(ctx context.Context, email string) error
	// ForgotPassword はパスワードリセットフローを開始する。
	ForgotPassword(ctx context.Context, email string) error
	// ConfirmForgotPassword は確認コードで新しいパスワードを設定する。
	ConfirmForgotPassword(ctx context.Context, email, code, newPassword string) error
	// SignOut はIdP側のセッションを無効化する。
	SignOut(ctx context.Context, accessToken string) error
}
