// Package idle は無操作時間の上限を強制するアイドルタイマーを提供する。
// 単一の再アーム可能なデッドラインとして実装し、未処理のデッドラインが
// 常に最大1つであることを保証する。
package idle

import (
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/manabu/internal/store"
)

// Watcher はアイドルデッドラインを管理する。
// 認証中のみ有効で、アクティビティのたびにデッドラインを
// 「今 + しきい値」へ再設定する。
type Watcher struct {
	threshold time.Duration
	onExpire  func()
	logger    *slog.Logger

	mu     sync.Mutex
	active bool
	gen    uint64
	timer  *time.Timer
}

// NewWatcher はWatcherを生成する。onExpireはデッドライン到達時に
// 1回だけ呼ばれる（強制ログアウトの実行責務は呼び出し側が持つ）。
func NewWatcher(threshold time.Duration, onExpire func(), logger *slog.Logger) *Watcher {
	return &Watcher{
		threshold: threshold,
		onExpire:  onExpire,
		logger:    logger,
	}
}

// Activate はタイマーを有効化し、最初のデッドラインを設定する。
// すでに有効な場合は何もしない。
func (w *Watcher) Activate() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.active {
		return
	}
	w.active = true
	w.arm()
}

// Deactivate はタイマーを無効化し、保留中のデッドラインを破棄する。
func (w *Watcher) Deactivate() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.active = false
	w.disarm()
}

// Touch はアクティビティを記録し、デッドラインを再設定する。
// 無効化中は何もしない。
func (w *Watcher) Touch() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.active {
		return
	}
	w.arm()
}

// Active はタイマーが有効かを返す。
func (w *Watcher) Active() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active
}

// Bind はストアの認証フラグに連動してタイマーを有効化・無効化する。
// 返り値の関数で購読を解除し、タイマーを停止する。
func (w *Watcher) Bind(st *store.Store) func() {
	cancel := st.Subscribe(func(state store.State) {
		if state.IsAuthenticated {
			w.Activate()
		} else {
			w.Deactivate()
		}
	})
	return func() {
		cancel()
		w.Deactivate()
	}
}

// arm は前のデッドラインを破棄して新しいデッドラインを設定する。
// 呼び出し側がロックを保持していること。
func (w *Watcher) arm() {
	w.disarm()
	w.gen++
	gen := w.gen
	w.timer = time.AfterFunc(w.threshold, func() {
		w.expired(gen)
	})
}

// disarm は保留中のデッドラインを破棄する。呼び出し側がロックを保持していること。
func (w *Watcher) disarm() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// expired はデッドライン到達時に呼ばれる。世代が一致しない場合
// （発火とTouchの競合で再アーム済み）は何もしない。
func (w *Watcher) expired(gen uint64) {
	w.mu.Lock()
	if !w.active || gen != w.gen {
		w.mu.Unlock()
		return
	}
	w.active = false
	w.timer = nil
	w.mu.Unlock()

	w.logger.Info("idle deadline reached, forcing logout",
		slog.Duration("threshold", w.threshold))
	w.onExpire()
}
