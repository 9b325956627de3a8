// Package guard は認証状態に基づくルートガードを提供する。
// 初回チェックが解決するまで判定を保留し、解決前のリダイレクト
// （フリッカー）を起こさない。
package guard

import (
	"context"
	"net/http"

	"github.com/hitoshi/manabu/internal/nav"
	"github.com/hitoshi/manabu/internal/store"
)

// StateWatcher は認証状態の読み取りと購読を抽象化する。
type StateWatcher interface {
	Snapshot() store.State
	Subscribe(fn store.Subscriber) func()
}

// Decision はガードの判定結果。Allowがfalseの場合はRedirectへ遷移する。
type Decision struct {
	Allow    bool
	Redirect nav.Route
}

// Policy は解決済みの認証状態から可視性を判定する。
type Policy interface {
	Decide(authenticated bool) Decision
}

// RequireAuthenticated は未認証ユーザーをログイン画面へ逃がすポリシー。
type RequireAuthenticated struct{}

// Decide はPolicyを実装する。
func (RequireAuthenticated) Decide(authenticated bool) Decision {
	if authenticated {
		return Decision{Allow: true}
	}
	return Decision{Redirect: nav.NewRoute(nav.PathLogin)}
}

// GuestOnly は認証済みユーザーをホームへ逃がすポリシー。
type GuestOnly struct{}

// Decide はPolicyを実装する。
func (GuestOnly) Decide(authenticated bool) Decision {
	if authenticated {
		return Decision{Redirect: nav.NewRoute(nav.PathHome)}
	}
	return Decision{Allow: true}
}

// Resolve は認証状態の解決を待ってからポリシーを適用する。
// IsLoadingがtrueの間は判定を保留し、falseに変わった時点の
// 認証フラグで判定する。ctxのキャンセルで保留は打ち切られる。
func Resolve(ctx context.Context, watcher StateWatcher, policy Policy) (Decision, error) {
	// 購読はバッファ1のチャネルで受け、取りこぼしは最新スナップショットの
	// 再読で補う
	updates := make(chan store.State, 1)
	cancel := watcher.Subscribe(func(state store.State) {
		select {
		case updates <- state:
		default:
		}
	})
	defer cancel()

	for {
		state := watcher.Snapshot()
		if !state.IsLoading {
			return policy.Decide(state.IsAuthenticated), nil
		}

		select {
		case <-ctx.Done():
			return Decision{}, ctx.Err()
		case <-updates:
		}
	}
}

// Middleware はポリシーをchiミドルウェアとして適用する。
// 判定がリダイレクトの場合は303 See Otherを返す。
func Middleware(watcher StateWatcher, policy Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision, err := Resolve(r.Context(), watcher, policy)
			if err != nil {
				// クライアント切断。レスポンスは届かない
				return
			}
			if !decision.Allow {
				http.Redirect(w, r, decision.Redirect.String(), http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
