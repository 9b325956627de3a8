package handler

import (
	"fmt"
	"html/template"
	"net/http"
)

// pageTemplate は全ページ共通の最小レイアウト。
// ページ本体はバックエンドの責務ではないため、タイトルとバナーのみの
// プレースホルダとして提供する。
var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="ja">
<head>
<meta charset="utf-8">
<title>{{.Title}} | manabu</title>
</head>
<body>
{{if .Banner}}<div class="banner">{{.Banner}}</div>{{end}}
<h1>{{.Title}}</h1>
{{if .User}}<p>ログイン中: {{.User}}</p>{{end}}
</body>
</html>
`))

type pageData struct {
	Title  string
	Banner string
	User   string
}

// PageHandler はプレースホルダページのHTTPハンドラー。
type PageHandler struct {
	states StateReader
}

// NewPageHandler はPageHandlerを生成する。
func NewPageHandler(states StateReader) *PageHandler {
	return &PageHandler{states: states}
}

func (h *PageHandler) render(w http.ResponseWriter, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, data); err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// Login はログインページを返す。クエリパラメータに応じてバナーを表示する。
// GET /login
func (h *PageHandler) Login(w http.ResponseWriter, r *http.Request) {
	data := pageData{Title: "ログイン"}

	query := r.URL.Query()
	switch {
	case query.Get("timeout") == "true":
		data.Banner = "セッションの有効期限が切れました。再度ログインしてください。"
	case query.Get("registered") == "true":
		data.Banner = "登録が完了しました。ログインしてください。"
	case query.Get("reset") == "true":
		data.Banner = "パスワードを再設定しました。ログインしてください。"
	}

	h.render(w, data)
}

// Register は新規登録ページを返す。
// GET /register
func (h *PageHandler) Register(w http.ResponseWriter, r *http.Request) {
	h.render(w, pageData{Title: "新規登録"})
}

// ConfirmEmail はメール確認ページを返す。
// GET /confirm-email?email=...
func (h *PageHandler) ConfirmEmail(w http.ResponseWriter, r *http.Request) {
	data := pageData{Title: "メールアドレスの確認"}
	if email := r.URL.Query().Get("email"); email != "" {
		data.Banner = fmt.Sprintf("%s に確認コードを送信しました。", email)
	}
	h.render(w, data)
}

// ForgotPassword はパスワードリセット開始ページを返す。
// GET /forgot-password
func (h *PageHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	h.render(w, pageData{Title: "パスワードをお忘れの方"})
}

// ResetPassword はパスワード再設定ページを返す。
// GET /reset-password?email=...
func (h *PageHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	data := pageData{Title: "パスワードの再設定"}
	if email := r.URL.Query().Get("email"); email != "" {
		data.Banner = fmt.Sprintf("%s に確認コードを送信しました。", email)
	}
	h.render(w, data)
}

// contentPage は認証必須のプレースホルダページを返すハンドラーを生成する。
func (h *PageHandler) contentPage(title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := pageData{Title: title}
		if state := h.states.Snapshot(); state.User != nil {
			name := state.User.PreferredUsername
			if name == "" {
				name = state.User.Email
			}
			data.User = name
		}
		h.render(w, data)
	}
}

// Home はホームページを返す。
// GET /home
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	h.contentPage("ホーム")(w, r)
}

// Dashboard はダッシュボードページを返す。
// GET /dashboard
func (h *PageHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	h.contentPage("ダッシュボード")(w, r)
}

// Materials は教材一覧ページを返す。
// GET /materials
func (h *PageHandler) Materials(w http.ResponseWriter, r *http.Request) {
	h.contentPage("教材")(w, r)
}

// Exercises は演習一覧ページを返す。
// GET /exercises
func (h *PageHandler) Exercises(w http.ResponseWriter, r *http.Request) {
	h.contentPage("演習")(w, r)
}

// Profile はプロフィールページを返す。
// GET /profile
func (h *PageHandler) Profile(w http.ResponseWriter, r *http.Request) {
	h.contentPage("プロフィール")(w, r)
}
