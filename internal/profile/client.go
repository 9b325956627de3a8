// Package profile はバックエンドAPIからのユーザープロフィール取得を提供する。
package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Profile はバックエンドAPIが返すユーザープロフィール。
// 時刻フィールドはAPIのレスポンス形式のままRFC 3339文字列で保持する。
type Profile struct {
	UserID    string
	Email     string
	Username  string
	Role      string
	CreatedAt string
	UpdatedAt string
}

// Client はバックエンドのプロフィールAPIクライアント。
// ここでの取得失敗は呼び出し側でトークンクレームへのフォールバックとして
// 処理されるため、致命的エラーとして扱われない。
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient はClientを生成する。
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// profileResponse はプロフィールエンドポイントのレスポンス。
// エンドポイントによってid/userIdの揺れがあるため両方を受ける。
type profileResponse struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// FetchMe は現在のユーザーのプロフィールを取得する。
// GET /api/v1/users/me
func (c *Client) FetchMe(ctx context.Context, idToken string) (*Profile, error) {
	return c.fetch(ctx, idToken, "/api/v1/users/me")
}

// FetchByOperationID は操作ID指定のプロフィールエンドポイントを呼ぶ。
// GET /api/v1/users/profile/<op-id>
func (c *Client) FetchByOperationID(ctx context.Context, idToken, opID string) (*Profile, error) {
	return c.fetch(ctx, idToken, "/api/v1/users/profile/"+url.PathEscape(opID))
}

// fetch は認証付きでプロフィールエンドポイントを呼び出す。
// 非200レスポンスはエラーとして返す（呼び出し側でフォールバック）。
func (c *Client) fetch(ctx context.Context, idToken, path string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+idToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("profile request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profile fetch failed with status %d: %s", resp.StatusCode, string(body))
	}

	var pr profileResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return nil, fmt.Errorf("failed to parse profile response: %w", err)
	}

	userID := pr.UserID
	if userID == "" {
		userID = pr.ID
	}

	return &Profile{
		UserID:    userID,
		Email:     pr.Email,
		Username:  pr.Username,
		Role:      pr.Role,
		CreatedAt: pr.CreatedAt,
		UpdatedAt: pr.UpdatedAt,
	}, nil
}
