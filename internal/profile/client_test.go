package profile

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetchMe_Success(t *testing.T) {
	var capturedAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/users/me" {
			t.Errorf("path = %q, want %q", r.URL.Path, "/api/v1/users/me")
		}
		capturedAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "user-1",
			"email": "taro@example.com",
			"username": "taro",
			"role": "student",
			"created_at": "2026-01-15T09:00:00Z",
			"updated_at": "2026-08-01T09:00:00Z"
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)

	p, err := client.FetchMe(context.Background(), "id-token-abc")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if capturedAuth != "Bearer id-token-abc" {
		t.Errorf("Authorization = %q, want %q", capturedAuth, "Bearer id-token-abc")
	}
	if p.UserID != "user-1" {
		t.Errorf("UserID = %q, want %q", p.UserID, "user-1")
	}
	if p.Email != "taro@example.com" {
		t.Errorf("Email = %q, want %q", p.Email, "taro@example.com")
	}
	if p.Username != "taro" {
		t.Errorf("Username = %q, want %q", p.Username, "taro")
	}
	if p.CreatedAt != "2026-01-15T09:00:00Z" {
		t.Errorf("CreatedAt = %q, want %q", p.CreatedAt, "2026-01-15T09:00:00Z")
	}
}

func TestFetchMe_UserIDFieldVariant(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"userId": "user-2", "email": "jiro@example.com"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)

	p, err := client.FetchMe(context.Background(), "token")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if p.UserID != "user-2" {
		t.Errorf("UserID = %q, want %q", p.UserID, "user-2")
	}
}

func TestFetchMe_Non200_ReturnsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)

	if _, err := client.FetchMe(context.Background(), "expired-token"); err == nil {
		t.Error("expected error for non-200 response")
	}
}

func TestFetchMe_InvalidJSON_ReturnsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)

	if _, err := client.FetchMe(context.Background(), "token"); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestFetchByOperationID_EscapesPath(t *testing.T) {
	var capturedPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.EscapedPath()
		w.Write([]byte(`{"id": "user-3"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)

	if _, err := client.FetchByOperationID(context.Background(), "token", "PR0101001"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if capturedPath != "/api/v1/users/profile/PR0101001" {
		t.Errorf("path = %q, want %q", capturedPath, "/api/v1/users/profile/PR0101001")
	}
}

func TestFetchMe_ServerUnreachable_ReturnsError(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", 500*time.Millisecond)

	if _, err := client.FetchMe(context.Background(), "token"); err == nil {
		t.Error("expected error for unreachable server")
	}
}
