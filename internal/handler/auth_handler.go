// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/mail"
	"time"

	"github.com/hitoshi/manabu/internal/middleware"
	"github.com/hitoshi/manabu/internal/model"
	"github.com/hitoshi/manabu/internal/store"
)

const minPasswordLength = 8

// AuthFacadeInterface は認証ハンドラーが必要とするファサードインターフェース。
type AuthFacadeInterface interface {
	Login(ctx context.Context, email, password string) error
	Register(ctx context.Context, email, password, username string) error
	ConfirmEmail(ctx context.Context, email, code string) error
	ResendConfirmationCode(ctx context.Context, email string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
	Logout(ctx context.Context) error
	CheckAuthState(ctx context.Context)
}

// StateReader は現在の認証状態の読み取りインターフェース。
type StateReader interface {
	Snapshot() store.State
}

// AuthHandler は認証関連のHTTPハンドラー。
// 入力検証とJSONの出し入れのみを担い、ユースケースの実行は
// ファサードに委譲する。
type AuthHandler struct {
	facade AuthFacadeInterface
	states StateReader
	logger *slog.Logger
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(facade AuthFacadeInterface, states StateReader, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		facade: facade,
		states: states,
		logger: logger,
	}
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// registerRequest は新規登録リクエストのボディ。
type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

// confirmRequest はメール確認リクエストのボディ。
type confirmRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// emailRequest はメールアドレスのみのリクエストボディ。
type emailRequest struct {
	Email string `json:"email"`
}

// resetRequest はパスワード再設定リクエストのボディ。
type resetRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

// userResponse はユーザー情報のAPIレスポンス。
type userResponse struct {
	ID                string `json:"id"`
	Email             string `json:"email"`
	PreferredUsername string `json:"preferred_username,omitempty"`
	EmailVerified     bool   `json:"email_verified"`
	CreatedAt         string `json:"created_at,omitempty"`
	UpdatedAt         string `json:"updated_at,omitempty"`
}

// stateResponse は認証状態のAPIレスポンス。
type stateResponse struct {
	User            *userResponse `json:"user"`
	IsAuthenticated bool          `json:"is_authenticated"`
	IsLoading       bool          `json:"is_loading"`
	Error           string        `json:"error,omitempty"`
}

func toUserResponse(user *model.User) *userResponse {
	if user == nil {
		return nil
	}
	resp := &userResponse{
		ID:                user.ID,
		Email:             user.Email,
		PreferredUsername: user.PreferredUsername,
		EmailVerified:     user.EmailVerified,
	}
	if !user.CreatedAt.IsZero() {
		resp.CreatedAt = user.CreatedAt.UTC().Format(time.RFC3339)
	}
	if !user.UpdatedAt.IsZero() {
		resp.UpdatedAt = user.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

// Login はログインを実行する。
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, model.NewInvalidInputError("リクエストボディが不正です"))
		return
	}

	if err := validateEmail(req.Email); err != nil {
		middleware.WriteError(w, err)
		return
	}
	if err := validatePassword(req.Password); err != nil {
		middleware.WriteError(w, err)
		return
	}

	if err := h.facade.Login(r.Context(), req.Email, req.Password); err != nil {
		h.logger.Warn("login failed",
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())))
		middleware.WriteError(w, err)
		return
	}

	h.writeState(w, http.StatusOK)
}

// Register は新規登録を実行する。
// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, model.NewInvalidInputError("リクエストボディが不正です"))
		return
	}

	if err := validateEmail(req.Email); err != nil {
		middleware.WriteError(w, err)
		return
	}
	if err := validatePassword(req.Password); err != nil {
		middleware.WriteError(w, err)
		return
	}
	if req.Username == "" {
		middleware.WriteError(w, model.NewInvalidInputError("ユーザー名を入力してください"))
		return
	}

	if err := h.facade.Register(r.Context(), req.Email, req.Password, req.Username); err != nil {
		middleware.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

// ConfirmEmail はメールアドレスを確認してアカウントを有効化する。
// POST /api/auth/confirm
func (h *AuthHandler) ConfirmEmail(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, model.NewInvalidInputError("リクエストボディが不正です"))
		return
	}

	if err := validateEmail(req.Email); err != nil {
		middleware.WriteError(w, err)
		return
	}
	if req.Code == "" {
		middleware.WriteError(w, model.NewInvalidInputError("確認コードを入力してください"))
		return
	}

	if err := h.facade.ConfirmEmail(r.Context(), req.Email, req.Code); err != nil {
		middleware.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// ResendConfirmationCode は確認コードを再送信する。
// POST /api/auth/resend
func (h *AuthHandler) ResendConfirmationCode(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, model.NewInvalidInputError("リクエストボディが不正です"))
		return
	}

	if err := validateEmail(req.Email); err != nil {
		middleware.WriteError(w, err)
		return
	}

	if err := h.facade.ResendConfirmationCode(r.Context(), req.Email); err != nil {
		middleware.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// ForgotPassword はパスワードリセットフローを開始する。
// POST /api/auth/forgot
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, model.NewInvalidInputError("リクエストボディが不正です"))
		return
	}

	if err := validateEmail(req.Email); err != nil {
		middleware.WriteError(w, err)
		return
	}

	if err := h.facade.ForgotPassword(r.Context(), req.Email); err != nil {
		middleware.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// ResetPassword は確認コードで新しいパスワードを設定する。
// POST /api/auth/reset
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, model.NewInvalidInputError("リクエストボディが不正です"))
		return
	}

	if err := validateEmail(req.Email); err != nil {
		middleware.WriteError(w, err)
		return
	}
	if req.Code == "" {
		middleware.WriteError(w, model.NewInvalidInputError("確認コードを入力してください"))
		return
	}
	if err := validatePassword(req.NewPassword); err != nil {
		middleware.WriteError(w, err)
		return
	}

	if err := h.facade.ResetPassword(r.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		middleware.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// Logout はログアウトを実行する。
// POST /api/auth/logout
// IdP側の失敗でもローカルセッションは破棄済みのため200を返す。
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.facade.Logout(r.Context()); err != nil {
		h.logger.Warn("remote logout failed",
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
			slog.String("error", err.Error()))
	}

	h.writeState(w, http.StatusOK)
}

// Me は現在のユーザー情報を返す。未認証の場合は401。
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	state := h.states.Snapshot()
	if !state.IsAuthenticated {
		middleware.WriteErrorResponse(w, &model.AuthError{
			Kind:    model.KindUnknownAccount,
			Code:    "UNAUTHENTICATED",
			Message: "ログインしていません。",
			Action:  "ログインしてから再度お試しください。",
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponse(state.User))
}

// State は現在の認証状態を返す。ガード判定やUIの再描画に使う。
// GET /api/auth/state
func (h *AuthHandler) State(w http.ResponseWriter, r *http.Request) {
	h.writeState(w, http.StatusOK)
}

// Refresh はゲートウェイの状態からストアを再構築する。
// POST /api/auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.facade.CheckAuthState(r.Context())
	h.writeState(w, http.StatusOK)
}

func (h *AuthHandler) writeState(w http.ResponseWriter, statusCode int) {
	state := h.states.Snapshot()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(stateResponse{
		User:            toUserResponse(state.User),
		IsAuthenticated: state.IsAuthenticated,
		IsLoading:       state.IsLoading,
		Error:           state.Err,
	})
}

// validateEmail はメールアドレスの形式を検証する。
func validateEmail(email string) error {
	if email == "" {
		return model.NewInvalidInputError("メールアドレスを入力してください")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return model.NewInvalidInputError("メールアドレスの形式が正しくありません")
	}
	return nil
}

// validatePassword はパスワードの最小要件を検証する。
func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return model.NewInvalidInputError("パスワードは8文字以上で入力してください")
	}
	return nil
}
