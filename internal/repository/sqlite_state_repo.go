package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hitoshi/manabu/internal/model"
)

// SQLiteStateRepo はSQLiteを使用した認証状態リポジトリ。
// 状態は単一行（id=1）として保持する。
type SQLiteStateRepo struct {
	db *sql.DB
}

// NewSQLiteStateRepo はSQLiteStateRepoを生成する。
func NewSQLiteStateRepo(db *sql.DB) *SQLiteStateRepo {
	return &SQLiteStateRepo{db: db}
}

// persistedUser は永続化されるユーザーのJSON形式。
type persistedUser struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	PreferredUsername string    `json:"preferred_username,omitempty"`
	EmailVerified     bool      `json:"email_verified"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Load は保存された部分状態{user, isAuthenticated}を返す。
func (r *SQLiteStateRepo) Load(ctx context.Context) (*model.User, bool, error) {
	var userJSON sql.NullString
	var authenticated bool

	err := r.db.QueryRowContext(ctx,
		`SELECT user_json, is_authenticated FROM auth_state WHERE id = 1`,
	).Scan(&userJSON, &authenticated)

	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load auth state: %w", err)
	}

	if !userJSON.Valid || userJSON.String == "" {
		return nil, authenticated, nil
	}

	var pu persistedUser
	if err := json.Unmarshal([]byte(userJSON.String), &pu); err != nil {
		// 壊れた状態は未認証として扱う（次のcheckAuthStateで再構築される）
		return nil, false, nil
	}

	return &model.User{
		ID:                pu.ID,
		Email:             pu.Email,
		PreferredUsername: pu.PreferredUsername,
		EmailVerified:     pu.EmailVerified,
		CreatedAt:         pu.CreatedAt,
		UpdatedAt:         pu.UpdatedAt,
	}, authenticated, nil
}

// Save は部分状態を保存する。userがnilの場合はNULLを保存する。
func (r *SQLiteStateRepo) Save(ctx context.Context, user *model.User, authenticated bool) error {
	var userJSON any
	if user != nil {
		data, err := json.Marshal(persistedUser{
			ID:                user.ID,
			Email:             user.Email,
			PreferredUsername: user.PreferredUsername,
			EmailVerified:     user.EmailVerified,
			CreatedAt:         user.CreatedAt,
			UpdatedAt:         user.UpdatedAt,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal user: %w", err)
		}
		userJSON = string(data)
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO auth_state (id, user_json, is_authenticated, updated_at)
		 VALUES (1, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   user_json = excluded.user_json,
		   is_authenticated = excluded.is_authenticated,
		   updated_at = excluded.updated_at`,
		userJSON, authenticated, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save auth state: %w", err)
	}
	return nil
}

// Clear は保存された状態を削除する。
func (r *SQLiteStateRepo) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM auth_state WHERE id = 1`); err != nil {
		return fmt.Errorf("failed to clear auth state: %w", err)
	}
	return nil
}

// compile-time interface check
var _ AuthStateRepository = (*SQLiteStateRepo)(nil)
