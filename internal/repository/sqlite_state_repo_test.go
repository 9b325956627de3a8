package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/hitoshi/manabu/internal/database"
	"github.com/hitoshi/manabu/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "state.db")
	if err := database.RunMigrations(path); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	db, err := database.Open(path)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func testUser() *model.User {
	return &model.User{
		ID:                "user-1",
		Email:             "taro@example.com",
		PreferredUsername: "taro",
		EmailVerified:     true,
		CreatedAt:         time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:         time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC),
	}
}

func TestSQLiteStateRepo_LoadEmpty(t *testing.T) {
	repo := NewSQLiteStateRepo(setupTestDB(t))

	user, authenticated, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if user != nil {
		t.Errorf("expected nil user, got %+v", user)
	}
	if authenticated {
		t.Error("expected authenticated to be false")
	}
}

func TestSQLiteStateRepo_SaveAndLoad(t *testing.T) {
	repo := NewSQLiteStateRepo(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Save(ctx, testUser(), true); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	user, authenticated, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}
	if !authenticated {
		t.Error("expected authenticated to be true")
	}
	if user == nil {
		t.Fatal("expected user, got nil")
	}
	if user.ID != "user-1" {
		t.Errorf("expected ID user-1, got %s", user.ID)
	}
	if user.Email != "taro@example.com" {
		t.Errorf("expected email taro@example.com, got %s", user.Email)
	}
	if user.PreferredUsername != "taro" {
		t.Errorf("expected preferred username taro, got %s", user.PreferredUsername)
	}
	if !user.EmailVerified {
		t.Error("expected email verified to be true")
	}
}

func TestSQLiteStateRepo_SaveOverwrites(t *testing.T) {
	repo := NewSQLiteStateRepo(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Save(ctx, testUser(), true); err != nil {
		t.Fatalf("failed to save: %v", err)
	}
	if err := repo.Save(ctx, nil, false); err != nil {
		t.Fatalf("failed to save again: %v", err)
	}

	user, authenticated, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}
	if user != nil {
		t.Errorf("expected nil user after overwrite, got %+v", user)
	}
	if authenticated {
		t.Error("expected authenticated to be false after overwrite")
	}
}

func TestSQLiteStateRepo_Clear(t *testing.T) {
	repo := NewSQLiteStateRepo(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Save(ctx, testUser(), true); err != nil {
		t.Fatalf("failed to save: %v", err)
	}
	if err := repo.Clear(ctx); err != nil {
		t.Fatalf("failed to clear: %v", err)
	}

	user, authenticated, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}
	if user != nil || authenticated {
		t.Errorf("expected empty state after clear, got user=%+v authenticated=%v", user, authenticated)
	}
}

func TestSQLiteStateRepo_LoadCorruptedUserJSON(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteStateRepo(db)
	ctx := context.Background()

	_, err := db.ExecContext(ctx,
		`INSERT INTO auth_state (id, user_json, is_authenticated, updated_at) VALUES (1, '{broken', 1, '')`)
	if err != nil {
		t.Fatalf("failed to insert corrupted row: %v", err)
	}

	user, authenticated, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("expected no error for corrupted state, got %v", err)
	}
	if user != nil || authenticated {
		t.Errorf("expected corrupted state to be treated as unauthenticated, got user=%+v authenticated=%v", user, authenticated)
	}
}
