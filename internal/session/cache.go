package session

import (
	"time"

	"github.com/hitoshi/manabu/internal/model"
)

// cacheEntry はセッション確認結果の短期キャッシュ。
// timestampからTTL以内の間だけ有効で、ログイン・ログアウトで
// 明示的に無効化される。
type cacheEntry struct {
	authenticated bool
	user          *model.User
	timestamp     time.Time
}

// fresh は基準時刻nowにおいてエントリが有効かを返す。
func (e *cacheEntry) fresh(now time.Time, ttl time.Duration) bool {
	return e != nil && now.Sub(e.timestamp) < ttl
}
