package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/manabu/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// エラー種別と対処方法を含む。
type ErrorResponseBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Kind    string `json:"kind"`
	Action  string `json:"action"`
}

// StatusForKind はエラー種別に対応するHTTPステータスコードを返す。
func StatusForKind(kind model.ErrorKind) int {
	switch kind {
	case model.KindInvalidCredentials, model.KindUnknownAccount:
		return http.StatusUnauthorized
	case model.KindUnconfirmedAccount:
		return http.StatusForbidden
	case model.KindDuplicateAccount:
		return http.StatusConflict
	case model.KindInvalidInput, model.KindCodeMismatch, model.KindCodeExpired:
		return http.StatusBadRequest
	case model.KindRateLimited:
		return http.StatusTooManyRequests
	case model.KindNetwork:
		return http.StatusBadGateway
	case model.KindConfig:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// すべてのAPIエンドポイントで一貫したエラーレスポンスを提供する。
func WriteErrorResponse(w http.ResponseWriter, authErr *model.AuthError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(StatusForKind(authErr.Kind))
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:    authErr.Code,
		Message: authErr.Message,
		Kind:    string(authErr.Kind),
		Action:  authErr.Action,
	})
}

// WriteError はエラーを統一フォーマットで書き込む。
// AuthError以外のエラーは未分類エラーとして扱う。
func WriteError(w http.ResponseWriter, err error) {
	if authErr, ok := model.AsAuthError(err); ok {
		WriteErrorResponse(w, authErr)
		return
	}
	WriteErrorResponse(w, model.NewUnknownError(""))
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, model.NewUnknownError("INTERNAL_ERROR"))
}
