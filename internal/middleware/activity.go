package middleware

import "net/http"

// ActivityRecorder はユーザーアクティビティの通知先を表す。
// idle.Watcherのサブセット。
type ActivityRecorder interface {
	Touch()
}

// NewActivityMiddleware はリクエストをユーザーアクティビティとして記録し、
// アイドルデッドラインを再設定するミドルウェアを返す。
// メトリクスやヘルスチェックなど対象外のパスには適用しないこと。
func NewActivityMiddleware(recorder ActivityRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			recorder.Touch()
			next.ServeHTTP(w, r)
		})
	}
}
