package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/manabu/internal/model"
)

// SQLiteTokenRepo はSQLiteを使用したIdPトークンリポジトリ。
// トークンは単一行（id=1）として保持する。
type SQLiteTokenRepo struct {
	db *sql.DB
}

// NewSQLiteTokenRepo はSQLiteTokenRepoを生成する。
func NewSQLiteTokenRepo(db *sql.DB) *SQLiteTokenRepo {
	return &SQLiteTokenRepo{db: db}
}

// Load は保存されたトークンを返す。未保存の場合はnilを返す。
func (r *SQLiteTokenRepo) Load(ctx context.Context) (*model.Tokens, error) {
	var tokens model.Tokens
	var expiresAt string

	err := r.db.QueryRowContext(ctx,
		`SELECT access_token, id_token, refresh_token, expires_at FROM provider_tokens WHERE id = 1`,
	).Scan(&tokens.AccessToken, &tokens.IDToken, &tokens.RefreshToken, &expiresAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load tokens: %w", err)
	}

	if expiresAt != "" {
		t, err := time.Parse(time.RFC3339, expiresAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse token expiry: %w", err)
		}
		tokens.ExpiresAt = t
	}

	if !tokens.Valid() {
		return nil, nil
	}
	return &tokens, nil
}

// Save はトークンを保存する。
func (r *SQLiteTokenRepo) Save(ctx context.Context, tokens *model.Tokens) error {
	if tokens == nil {
		return r.Clear(ctx)
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO provider_tokens (id, access_token, id_token, refresh_token, expires_at, updated_at)
		 VALUES (1, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   access_token = excluded.access_token,
		   id_token = excluded.id_token,
		   refresh_token = excluded.refresh_token,
		   expires_at = excluded.expires_at,
		   updated_at = excluded.updated_at`,
		tokens.AccessToken, tokens.IDToken, tokens.RefreshToken,
		tokens.ExpiresAt.UTC().Format(time.RFC3339),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save tokens: %w", err)
	}
	return nil
}

// Clear は保存されたトークンを削除する。
func (r *SQLiteTokenRepo) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM provider_tokens WHERE id = 1`); err != nil {
		return fmt.Errorf("failed to clear tokens: %w", err)
	}
	return nil
}

// compile-time interface check
var _ TokenRepository = (*SQLiteTokenRepo)(nil)
