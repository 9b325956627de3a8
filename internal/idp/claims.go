package idp

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// IDTokenClaims はIDトークンから取り出すクレームのサブセット。
type IDTokenClaims struct {
	Sub               string
	Email             string
	PreferredUsername string
	Name              string
	EmailVerified     bool
	IssuedAt          time.Time
}

// ParseIDToken はIDトークンのペイロードをデコードしてクレームを返す。
// 署名検証は行わない。トークンはIdPとのTLSセッションで直接受領した
// ものであり、ここでの用途は表示用フィールドの抽出に限られる。
// 検証済みアクセス制御はバックエンドAPI側が担う。
func ParseIDToken(raw string) (*IDTokenClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("failed to parse id token: %w", err)
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("id token has no subject claim")
	}

	out := &IDTokenClaims{
		Sub:               sub,
		Email:             stringClaim(claims, "email"),
		PreferredUsername: stringClaim(claims, "preferred_username"),
		Name:              stringClaim(claims, "name"),
		EmailVerified:     boolClaim(claims, "email_verified"),
	}

	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		out.IssuedAt = iat.Time
	}

	return out, nil
}

// stringClaim は文字列クレームを取り出す。欠落時は空文字。
func stringClaim(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}

// boolClaim は真偽値クレームを取り出す。
// IdPによっては"true"/"false"の文字列で返るため両方を受け付ける。
func boolClaim(claims jwt.MapClaims, key string) bool {
	switch v := claims[key].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	default:
		return false
	}
}
