package model

import (
	"errors"
	"fmt"
)

// ErrorKind は認証エラーの閉じた分類を表す。
// IdP固有の例外名は必ずいずれか1つのKindにマップされる。
type ErrorKind string

const (
	KindConfig             ErrorKind = "config"
	KindInvalidCredentials ErrorKind = "invalid_credentials"
	KindUnconfirmedAccount ErrorKind = "unconfirmed_account"
	KindUnknownAccount     ErrorKind = "unknown_account"
	KindDuplicateAccount   ErrorKind = "duplicate_account"
	KindInvalidInput       ErrorKind = "invalid_input"
	KindCodeMismatch       ErrorKind = "code_mismatch"
	KindCodeExpired        ErrorKind = "code_expired"
	KindRateLimited        ErrorKind = "rate_limited"
	KindNetwork            ErrorKind = "network"
	KindUnknown            ErrorKind = "unknown"
)

// 定義済みエラーコード
const (
	ErrCodeConfig       = "CONFIG_ERROR"
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeNetworkError = "NETWORK_ERROR"
	ErrCodeUnknown      = "UNKNOWN_ERROR"
)

// AuthError は認証操作の統一エラーフォーマットを表す。
// CodeにはIdP由来の例外名（NotAuthorizedException等）または定義済みコードが入る。
// MessageとActionはそのままUIに表示できる文言とする。
type AuthError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Action  string
}

// Error はerrorインターフェースを実装する。
func (e *AuthError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// AsAuthError はエラーチェーンからAuthErrorを取り出す。
func AsAuthError(err error) (*AuthError, bool) {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr, true
	}
	return nil, false
}

// NewConfigError はIdP未設定エラーを生成する。
// 設定不備は操作ごとに致命的であり、フォールバックしない。
func NewConfigError() *AuthError {
	return &AuthError{
		Kind:    KindConfig,
		Code:    ErrCodeConfig,
		Message: "Cognitoの接続設定が構成されていません。",
		Action:  "管理者にお問い合わせください。",
	}
}

// NewInvalidInputError は入力検証エラーを生成する。
func NewInvalidInputError(reason string) *AuthError {
	return &AuthError{
		Kind:    KindInvalidInput,
		Code:    ErrCodeInvalidInput,
		Message: fmt.Sprintf("入力内容が正しくありません: %s", reason),
		Action:  "入力内容を確認して再度お試しください。",
	}
}

// NewNetworkError はIdPへの到達失敗エラーを生成する。
func NewNetworkError() *AuthError {
	return &AuthError{
		Kind:    KindNetwork,
		Code:    ErrCodeNetworkError,
		Message: "ネットワークエラーが発生しました。",
		Action:  "接続を確認してから再度お試しください。",
	}
}

// NewUnknownError は未分類のエラーを生成する。
// codeが空の場合は定義済みの未知エラーコードを使用する。
func NewUnknownError(code string) *AuthError {
	if code == "" {
		code = ErrCodeUnknown
	}
	return &AuthError{
		Kind:    KindUnknown,
		Code:    code,
		Message: "予期しないエラーが発生しました。",
		Action:  "しばらく待ってから再度お試しください。",
	}
}
