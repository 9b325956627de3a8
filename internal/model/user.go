// Package model はドメインモデルを定義する。
package model

import "time"

// User はIdP発行のユーザー情報を表す。
// IDトークンのクレームとバックエンドAPIのプロフィールをマージして構築する。
// 再取得以外では変更しない（アクティブセッションは常に1つ）。
type User struct {
	ID                string
	Email             string
	PreferredUsername string
	EmailVerified     bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Tokens はIdPセッションのトークン一式を表す。
// ExpiresAtはアクセストークンの有効期限。IdPによってはリフレッシュ時に
// 新しいリフレッシュトークンを返さないため、空の場合は既存値を引き継ぐこと。
type Tokens struct {
	AccessToken  string
	IDToken      string
	RefreshToken string
	ExpiresAt    time.Time
}

// Valid はアクセストークンが保持されているかを返す。
func (t *Tokens) Valid() bool {
	return t != nil && t.AccessToken != ""
}

// Expired は基準時刻nowにおいてアクセストークンが期限切れかを返す。
func (t *Tokens) Expired(now time.Time) bool {
	if t == nil {
		return true
	}
	return !t.ExpiresAt.IsZero() && now.After(t.ExpiresAt)
}
