// Package store は認証状態の単一の保持者を提供する。
// 状態の変更はすべてStoreのメソッドを経由し、購読者には変更後の
// スナップショットが通知される。
package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hitoshi/manabu/internal/model"
)

// State は認証状態のスナップショット。
// IsAuthenticatedは常に「Userがnilでないこと」と一致する。
// IsLoadingとErrは遷移中の一時情報であり、永続化されない。
type State struct {
	User            *model.User
	IsAuthenticated bool
	IsLoading       bool
	Err             string
}

// Persister は部分状態{User, IsAuthenticated}の永続化先を表す。
type Persister interface {
	Save(ctx context.Context, user *model.User, authenticated bool) error
	Clear(ctx context.Context) error
}

// Subscriber は状態変更の通知を受け取るコールバック。
type Subscriber func(State)

// Store は認証状態を保持し、変更を購読者へ通知する。
type Store struct {
	mu          sync.Mutex
	state       State
	persister   Persister
	logger      *slog.Logger
	subscribers map[uint64]Subscriber
	nextSubID   uint64
}

// New はStoreを生成する。persisterはnil可（永続化なし）。
// 初期状態は読み込み中（最初の認証チェックが完了するまで）。
func New(persister Persister, logger *slog.Logger) *Store {
	return &Store{
		state:       State{IsLoading: true},
		persister:   persister,
		logger:      logger,
		subscribers: make(map[uint64]Subscriber),
	}
}

// Seed は永続化された部分状態から初期状態を復元する。
// 起動時に1回だけ呼ぶこと。購読者への通知と再永続化は行わない。
// 最初の認証チェックが未完了のため、読み込み中フラグは維持される。
func (s *Store) Seed(user *model.User, authenticated bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// 不整合な保存状態は認証側に倒さない
	if user == nil {
		authenticated = false
	}
	s.state = State{User: user, IsAuthenticated: authenticated, IsLoading: true}
}

// Snapshot は現在の状態のコピーを返す。
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe は購読者を登録し、解除用の関数を返す。
// 登録時点の状態が直ちに1回通知される。
func (s *Store) Subscribe(fn Subscriber) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	current := s.state
	s.mu.Unlock()

	fn(current)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// SetUser はユーザーを設定する。userがnilの場合は未認証となる。
// 読み込み中フラグとエラーはクリアされる。
func (s *Store) SetUser(ctx context.Context, user *model.User) {
	s.update(ctx, func(st *State) {
		st.User = user
		st.IsAuthenticated = user != nil
		st.IsLoading = false
		st.Err = ""
	}, true)
}

// SetLoading は読み込み中フラグを設定する。永続化は行わない。
func (s *Store) SetLoading(loading bool) {
	s.update(context.Background(), func(st *State) {
		st.IsLoading = loading
	}, false)
}

// SetError はエラーメッセージを設定し、読み込み中フラグを下ろす。
// 永続化は行わない。
func (s *Store) SetError(message string) {
	s.update(context.Background(), func(st *State) {
		st.Err = message
		st.IsLoading = false
	}, false)
}

// ClearError はエラーメッセージをクリアする。
func (s *Store) ClearError() {
	s.update(context.Background(), func(st *State) {
		st.Err = ""
	}, false)
}

// Logout は未認証のクリーンな状態に戻し、永続化された状態を削除する。
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	s.state = State{}
	current := s.state
	subs := s.snapshotSubscribers()
	s.mu.Unlock()

	if s.persister != nil {
		if err := s.persister.Clear(ctx); err != nil {
			s.logger.Warn("failed to clear persisted auth state", slog.String("error", err.Error()))
		}
	}

	for _, fn := range subs {
		fn(current)
	}
}

// Reset は初期状態（未認証・読み込み中）に完全再初期化する。
// 再チェックを前提とするため、永続化は変更しない。
func (s *Store) Reset() {
	s.update(context.Background(), func(st *State) {
		*st = State{IsLoading: true}
	}, false)
}

// update は状態を変更し、購読者に通知する。
// persistがtrueの場合は部分状態{User, IsAuthenticated}を永続化する。
// 永続化の失敗は状態変更を妨げず、ログに記録するのみ。
func (s *Store) update(ctx context.Context, mutate func(*State), persist bool) {
	s.mu.Lock()
	mutate(&s.state)
	current := s.state
	subs := s.snapshotSubscribers()
	s.mu.Unlock()

	if persist && s.persister != nil {
		if err := s.persister.Save(ctx, current.User, current.IsAuthenticated); err != nil {
			s.logger.Warn("failed to persist auth state", slog.String("error", err.Error()))
		}
	}

	// 通知はロック外で行う（購読者がStoreを再入的に読めるように）
	for _, fn := range subs {
		fn(current)
	}
}

func (s *Store) snapshotSubscribers() []Subscriber {
	subs := make([]Subscriber, 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	return subs
}
