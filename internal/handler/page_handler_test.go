package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPageHandler_LoginBanners(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		wantBanner string
	}{
		{
			name:       "バナーなし",
			path:       "/login",
			wantBanner: "",
		},
		{
			name:       "タイムアウト",
			path:       "/login?timeout=true",
			wantBanner: "セッションの有効期限が切れました",
		},
		{
			name:       "登録完了",
			path:       "/login?registered=true",
			wantBanner: "登録が完了しました",
		},
		{
			name:       "パスワード再設定完了",
			path:       "/login?reset=true",
			wantBanner: "パスワードを再設定しました",
		},
	}

	h := NewPageHandler(testStore())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			w := httptest.NewRecorder()
			h.Login(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
			}
			body := w.Body.String()
			if tt.wantBanner == "" {
				if strings.Contains(body, "banner") {
					t.Errorf("expected no banner, got %s", body)
				}
			} else if !strings.Contains(body, tt.wantBanner) {
				t.Errorf("expected banner containing %q, got %s", tt.wantBanner, body)
			}
		})
	}
}

func TestPageHandler_ConfirmEmailShowsAddress(t *testing.T) {
	h := NewPageHandler(testStore())

	req := httptest.NewRequest(http.MethodGet, "/confirm-email?email=taro%40example.com", nil)
	w := httptest.NewRecorder()
	h.ConfirmEmail(w, req)

	if !strings.Contains(w.Body.String(), "taro@example.com") {
		t.Errorf("expected email in page, got %s", w.Body.String())
	}
}

func TestPageHandler_HomeShowsUsername(t *testing.T) {
	st := testStore()
	st.SetUser(context.Background(), testUser())
	h := NewPageHandler(st)

	req := httptest.NewRequest(http.MethodGet, "/home", nil)
	w := httptest.NewRecorder()
	h.Home(w, req)

	if !strings.Contains(w.Body.String(), "taro@example.com") {
		t.Errorf("expected user identity in page, got %s", w.Body.String())
	}
}
