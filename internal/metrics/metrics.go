// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// セッションゲートウェイやファサードから利用する。
type MetricsCollector interface {
	RecordAuthOperation(operation string, result string)
	RecordAuthLatency(operation string, duration time.Duration)
	RecordCacheHit()
	RecordCacheMiss()
	RecordProfileFallback()
	RecordIdleLogout()
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	authOperations  *prometheus.CounterVec
	authLatency     *prometheus.HistogramVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	profileFallback prometheus.Counter
	idleLogouts     prometheus.Counter
	httpStatus      *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "manabu_auth_operations_total",
			Help: "認証操作の結果別の合計数",
		}, []string{"operation", "result"}),
		authLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "manabu_auth_latency_seconds",
			Help:    "認証操作のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "manabu_session_cache_hits_total",
			Help: "セッションキャッシュヒットの合計数",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "manabu_session_cache_misses_total",
			Help: "セッションキャッシュミスの合計数",
		}),
		profileFallback: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "manabu_profile_fallback_total",
			Help: "プロフィール取得失敗によるトークンクレームへのフォールバック数",
		}),
		idleLogouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "manabu_idle_logouts_total",
			Help: "アイドルタイムアウトによる強制ログアウトの合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "manabu_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.authOperations,
		c.authLatency,
		c.cacheHits,
		c.cacheMisses,
		c.profileFallback,
		c.idleLogouts,
		c.httpStatus,
	)

	return c
}

// RecordAuthOperation は認証操作の結果を記録する。
// resultには"success"またはエラー種別を指定する。
func (c *Collector) RecordAuthOperation(operation string, result string) {
	c.authOperations.WithLabelValues(operation, result).Inc()
}

// RecordAuthLatency は認証操作のレイテンシを記録する。
func (c *Collector) RecordAuthLatency(operation string, duration time.Duration) {
	c.authLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCacheHit はセッションキャッシュヒットを記録する。
func (c *Collector) RecordCacheHit() {
	c.cacheHits.Inc()
}

// RecordCacheMiss はセッションキャッシュミスを記録する。
func (c *Collector) RecordCacheMiss() {
	c.cacheMisses.Inc()
}

// RecordProfileFallback はプロフィール取得失敗によるフォールバックを記録する。
func (c *Collector) RecordProfileFallback() {
	c.profileFallback.Inc()
}

// RecordIdleLogout はアイドルタイムアウトによる強制ログアウトを記録する。
func (c *Collector) RecordIdleLogout() {
	c.idleLogouts.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
