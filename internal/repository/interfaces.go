// Package repository はクライアント状態DBへの永続化を提供する。
package repository

import (
	"context"

	"github.com/hitoshi/manabu/internal/model"
)

// AuthStateRepository は認証状態の永続化サブセット
// （{user, isAuthenticated}のみ）を管理するインターフェース。
// isLoadingとerrorは永続化の境界を越えない。
type AuthStateRepository interface {
	// Load は保存された部分状態を返す。未保存の場合は(nil, false, nil)。
	Load(ctx context.Context) (*model.User, bool, error)
	// Save は部分状態を保存する。既存の状態は上書きされる。
	Save(ctx context.Context, user *model.User, authenticated bool) error
	// Clear は保存された状態を削除する。
	Clear(ctx context.Context) error
}

// TokenRepository はIdPセッショントークンの永続化を管理するインターフェース。
type TokenRepository interface {
	// Load は保存されたトークン一式を返す。未保存の場合は(nil, nil)。
	Load(ctx context.Context) (*model.Tokens, error)
	// Save はトークン一式を保存する。既存のトークンは上書きされる。
	Save(ctx context.Context, tokens *model.Tokens) error
	// Clear は保存されたトークンを削除する。
	Clear(ctx context.Context) error
}
