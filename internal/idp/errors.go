package idp

import (
	"errors"

	"github.com/aws/smithy-go"

	"github.com/hitoshi/manabu/internal/model"
)

// mappedError はIdP例外名1つに対する分類と文言の定義。
type mappedError struct {
	kind    model.ErrorKind
	message string
	action  string
}

// errorTable はIdP固有の例外名から閉じたエラー分類へのマッピング。
// 未登録の例外名はすべてKindUnknownに落ちる。
var errorTable = map[string]mappedError{
	// ログイン関連
	"NotAuthorizedException": {
		kind:    model.KindInvalidCredentials,
		message: "メールアドレスまたはパスワードが正しくありません。",
		action:  "入力内容を確認して再度お試しください。",
	},
	"PasswordResetRequiredException": {
		kind:    model.KindInvalidCredentials,
		message: "パスワードの再設定が必要です。",
		action:  "パスワードリセットを実行してください。",
	},
	"UserNotConfirmedException": {
		kind:    model.KindUnconfirmedAccount,
		message: "メールアドレスの確認が完了していません。",
		action:  "受信した確認コードを入力してアカウントを有効化してください。",
	},
	"UserNotFoundException": {
		kind:    model.KindUnknownAccount,
		message: "ユーザーが見つかりません。",
		action:  "メールアドレスを確認するか、新規登録してください。",
	},

	// 新規登録関連
	"UsernameExistsException": {
		kind:    model.KindDuplicateAccount,
		message: "このメールアドレスは既に使用されています。",
		action:  "別のメールアドレスを使用するか、ログインしてください。",
	},
	"InvalidPasswordException": {
		kind:    model.KindInvalidInput,
		message: "パスワードが要件を満たしていません。",
		action:  "8文字以上で大文字・小文字・数字を含むパスワードを設定してください。",
	},
	"InvalidParameterException": {
		kind:    model.KindInvalidInput,
		message: "入力パラメータが無効です。",
		action:  "入力内容を確認して再度お試しください。",
	},

	// 確認コード関連
	"CodeMismatchException": {
		kind:    model.KindCodeMismatch,
		message: "確認コードが正しくありません。",
		action:  "受信した確認コードを確認して再度入力してください。",
	},
	"ExpiredCodeException": {
		kind:    model.KindCodeExpired,
		message: "確認コードの有効期限が切れています。",
		action:  "確認コードを再送信してください。",
	},

	// レート制限関連
	"LimitExceededException": {
		kind:    model.KindRateLimited,
		message: "試行回数の上限に達しました。",
		action:  "しばらく時間をおいてから再試行してください。",
	},
	"TooManyRequestsException": {
		kind:    model.KindRateLimited,
		message: "リクエストが多すぎます。",
		action:  "しばらく時間をおいてから再試行してください。",
	},
	"TooManyFailedAttemptsException": {
		kind:    model.KindRateLimited,
		message: "失敗回数の上限に達しました。",
		action:  "しばらく時間をおいてから再試行してください。",
	},
}

// MapError はIdP呼び出しのエラーを閉じた分類のAuthErrorへ正規化する。
// IdP固有の例外は例外名ごとに1つのKindへマップし、未登録の例外名は
// KindUnknownとする。APIエラー以外（到達不能・タイムアウト等）は
// KindNetworkとして扱う。すでにAuthErrorの場合はそのまま返す。
func MapError(err error) *model.AuthError {
	if err == nil {
		return nil
	}

	if authErr, ok := model.AsAuthError(err); ok {
		return authErr
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		if m, ok := errorTable[code]; ok {
			return &model.AuthError{
				Kind:    m.kind,
				Code:    code,
				Message: m.message,
				Action:  m.action,
			}
		}
		return model.NewUnknownError(code)
	}

	// APIエラー以外はすべて到達失敗（DNS・TLS・タイムアウト・キャンセル）
	return model.NewNetworkError()
}
