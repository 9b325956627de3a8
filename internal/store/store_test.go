package store

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/hitoshi/manabu/internal/model"
)

// mockPersister はテスト用のPersister実装。
type mockPersister struct {
	saveFn  func(ctx context.Context, user *model.User, authenticated bool) error
	clearFn func(ctx context.Context) error
}

func (m *mockPersister) Save(ctx context.Context, user *model.User, authenticated bool) error {
	if m.saveFn != nil {
		return m.saveFn(ctx, user, authenticated)
	}
	return nil
}

func (m *mockPersister) Clear(ctx context.Context) error {
	if m.clearFn != nil {
		return m.clearFn(ctx)
	}
	return nil
}

var _ Persister = (*mockPersister)(nil)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testUser() *model.User {
	return &model.User{ID: "user-1", Email: "taro@example.com"}
}

func TestStore_InitialState(t *testing.T) {
	s := New(nil, testLogger())

	state := s.Snapshot()
	if state.User != nil || state.IsAuthenticated || state.Err != "" {
		t.Errorf("expected anonymous state, got %+v", state)
	}
	if !state.IsLoading {
		t.Error("expected IsLoading = true before the first auth check")
	}
}

func TestStore_SetUser(t *testing.T) {
	var savedUser *model.User
	var savedAuth bool
	persister := &mockPersister{
		saveFn: func(ctx context.Context, user *model.User, authenticated bool) error {
			savedUser = user
			savedAuth = authenticated
			return nil
		},
	}
	s := New(persister, testLogger())
	s.SetLoading(true)
	s.SetError("前回のエラー")

	s.SetUser(context.Background(), testUser())

	state := s.Snapshot()
	if !state.IsAuthenticated {
		t.Error("expected authenticated after SetUser")
	}
	if state.User == nil || state.User.ID != "user-1" {
		t.Errorf("expected user-1, got %+v", state.User)
	}
	if state.IsLoading {
		t.Error("expected loading cleared by SetUser")
	}
	if state.Err != "" {
		t.Errorf("expected error cleared by SetUser, got %q", state.Err)
	}
	if savedUser == nil || savedUser.ID != "user-1" || !savedAuth {
		t.Errorf("expected persisted state, got user=%+v authenticated=%v", savedUser, savedAuth)
	}
}

func TestStore_SetUserNil(t *testing.T) {
	s := New(nil, testLogger())
	s.SetUser(context.Background(), testUser())

	s.SetUser(context.Background(), nil)

	state := s.Snapshot()
	if state.IsAuthenticated {
		t.Error("expected unauthenticated after SetUser(nil)")
	}
	if state.User != nil {
		t.Errorf("expected nil user, got %+v", state.User)
	}
}

func TestStore_AuthenticatedMatchesUserPresence(t *testing.T) {
	s := New(nil, testLogger())

	check := func() {
		state := s.Snapshot()
		if state.IsAuthenticated != (state.User != nil) {
			t.Errorf("IsAuthenticated=%v does not match user presence %v", state.IsAuthenticated, state.User != nil)
		}
	}

	check()
	s.SetUser(context.Background(), testUser())
	check()
	s.SetError("認証エラー")
	check()
	s.Logout(context.Background())
	check()
}

func TestStore_TransientFieldsNotPersisted(t *testing.T) {
	saves := 0
	persister := &mockPersister{
		saveFn: func(ctx context.Context, user *model.User, authenticated bool) error {
			saves++
			return nil
		},
	}
	s := New(persister, testLogger())

	s.SetLoading(true)
	s.SetError("エラー")
	s.ClearError()

	if saves != 0 {
		t.Errorf("expected no persistence for transient mutations, got %d saves", saves)
	}
}

func TestStore_Logout(t *testing.T) {
	cleared := false
	persister := &mockPersister{
		clearFn: func(ctx context.Context) error {
			cleared = true
			return nil
		},
	}
	s := New(persister, testLogger())
	s.SetUser(context.Background(), testUser())
	s.SetError("残留エラー")

	s.Logout(context.Background())

	state := s.Snapshot()
	if state.User != nil || state.IsAuthenticated || state.IsLoading || state.Err != "" {
		t.Errorf("expected clean state after logout, got %+v", state)
	}
	if !cleared {
		t.Error("expected persisted state to be cleared")
	}
}

func TestStore_Reset(t *testing.T) {
	saves := 0
	persister := &mockPersister{
		saveFn: func(ctx context.Context, user *model.User, authenticated bool) error {
			saves++
			return nil
		},
	}
	s := New(persister, testLogger())
	s.SetUser(context.Background(), testUser())
	s.SetError("残留エラー")
	saves = 0

	s.Reset()

	state := s.Snapshot()
	if state.User != nil || state.IsAuthenticated || state.Err != "" {
		t.Errorf("expected anonymous state after reset, got %+v", state)
	}
	if !state.IsLoading {
		t.Error("expected IsLoading = true after reset")
	}
	if saves != 0 {
		t.Errorf("expected reset not to persist, got %d saves", saves)
	}
}

func TestStore_Seed(t *testing.T) {
	saves := 0
	persister := &mockPersister{
		saveFn: func(ctx context.Context, user *model.User, authenticated bool) error {
			saves++
			return nil
		},
	}
	s := New(persister, testLogger())

	s.Seed(testUser(), true)

	state := s.Snapshot()
	if !state.IsAuthenticated || state.User == nil {
		t.Errorf("expected seeded authenticated state, got %+v", state)
	}
	if saves != 0 {
		t.Errorf("expected seed not to re-persist, got %d saves", saves)
	}
}

func TestStore_SeedInconsistent(t *testing.T) {
	s := New(nil, testLogger())

	// 保存データが壊れていてuserなしauthenticated=trueの場合
	s.Seed(nil, true)

	state := s.Snapshot()
	if state.IsAuthenticated {
		t.Error("expected nil user seed to be unauthenticated")
	}
}

func TestStore_Subscribe(t *testing.T) {
	s := New(nil, testLogger())

	var notifications []State
	cancel := s.Subscribe(func(state State) {
		notifications = append(notifications, state)
	})

	if len(notifications) != 1 {
		t.Fatalf("expected immediate notification on subscribe, got %d", len(notifications))
	}

	s.SetUser(context.Background(), testUser())
	if len(notifications) != 2 {
		t.Fatalf("expected notification after SetUser, got %d", len(notifications))
	}
	if !notifications[1].IsAuthenticated {
		t.Error("expected notified state to be authenticated")
	}

	cancel()
	s.Logout(context.Background())
	if len(notifications) != 2 {
		t.Errorf("expected no notification after cancel, got %d", len(notifications))
	}
}

func TestStore_PersistFailureDoesNotBlockUpdate(t *testing.T) {
	persister := &mockPersister{
		saveFn: func(ctx context.Context, user *model.User, authenticated bool) error {
			return context.DeadlineExceeded
		},
	}
	s := New(persister, testLogger())

	s.SetUser(context.Background(), testUser())

	if !s.Snapshot().IsAuthenticated {
		t.Error("expected in-memory state updated despite persistence failure")
	}
}
