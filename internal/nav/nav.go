// Package nav はクライアント内の画面遷移を抽象化する。
package nav

import (
	"net/url"
	"sync"
)

// アプリケーション内のルートパス。
const (
	PathHome           = "/home"
	PathLogin          = "/login"
	PathRegister       = "/register"
	PathConfirmEmail   = "/confirm-email"
	PathForgotPassword = "/forgot-password"
	PathResetPassword  = "/reset-password"
)

// Route は遷移先のパスとクエリパラメータを表す。
type Route struct {
	Path   string
	Params url.Values
}

// NewRoute はパラメータなしのRouteを生成する。
func NewRoute(path string) Route {
	return Route{Path: path, Params: url.Values{}}
}

// WithParam はパラメータを1つ追加した新しいRouteを返す。
func (r Route) WithParam(key, value string) Route {
	params := url.Values{}
	for k, vs := range r.Params {
		for _, v := range vs {
			params.Add(k, v)
		}
	}
	params.Set(key, value)
	return Route{Path: r.Path, Params: params}
}

// String はクエリ文字列を含む完全なパスを返す。
func (r Route) String() string {
	if len(r.Params) == 0 {
		return r.Path
	}
	return r.Path + "?" + r.Params.Encode()
}

// Navigator は画面遷移の実行先を表す。
type Navigator interface {
	Navigate(route Route)
}

// Tracker は現在位置を記録するNavigator実装。
// 遷移の実体（ブラウザのリダイレクトなど）はハンドラ層が担い、
// Trackerはファサードが最後に要求した遷移先を保持する。
type Tracker struct {
	mu      sync.Mutex
	current Route
}

// NewTracker は初期位置initialのTrackerを生成する。
func NewTracker(initial Route) *Tracker {
	return &Tracker{current: initial}
}

// Navigate は現在位置を更新する。
func (t *Tracker) Navigate(route Route) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = route
}

// Current は最後に遷移したRouteを返す。
func (t *Tracker) Current() Route {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// compile-time interface check
var _ Navigator = (*Tracker)(nil)
