package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	total := 0.0
	found := false
	for _, mf := range metrics {
		if mf.GetName() == name {
			found = true
			for _, m := range mf.GetMetric() {
				total += m.GetCounter().GetValue()
			}
		}
	}
	if !found {
		t.Fatalf("%s metric not found", name)
	}
	return total
}

// TestRecordAuthOperation_IncrementsCounter は認証操作カウンタがラベル付きで増加することを検証する。
func TestRecordAuthOperation_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAuthOperation("login", "success")
	c.RecordAuthOperation("login", "success")
	c.RecordAuthOperation("login", "invalid_credentials")

	if got := counterValue(t, reg, "manabu_auth_operations_total"); got != 3 {
		t.Errorf("auth_operations_total = %v, want 3", got)
	}
}

// TestRecordCacheHitMiss_IncrementsCounters はキャッシュカウンタが増加することを検証する。
func TestRecordCacheHitMiss_IncrementsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordCacheHit()
	c.RecordCacheHit()
	c.RecordCacheMiss()

	if got := counterValue(t, reg, "manabu_session_cache_hits_total"); got != 2 {
		t.Errorf("cache_hits_total = %v, want 2", got)
	}
	if got := counterValue(t, reg, "manabu_session_cache_misses_total"); got != 1 {
		t.Errorf("cache_misses_total = %v, want 1", got)
	}
}

// TestRecordProfileFallback_IncrementsCounter はフォールバックカウンタが増加することを検証する。
func TestRecordProfileFallback_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordProfileFallback()

	if got := counterValue(t, reg, "manabu_profile_fallback_total"); got != 1 {
		t.Errorf("profile_fallback_total = %v, want 1", got)
	}
}

// TestRecordIdleLogout_IncrementsCounter はアイドルログアウトカウンタが増加することを検証する。
func TestRecordIdleLogout_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordIdleLogout()
	c.RecordIdleLogout()

	if got := counterValue(t, reg, "manabu_idle_logouts_total"); got != 2 {
		t.Errorf("idle_logouts_total = %v, want 2", got)
	}
}

// TestRecordHTTPStatus_IncrementsCounterWithLabel はHTTPステータスカウンタがラベル付きで増加することを検証する。
func TestRecordHTTPStatus_IncrementsCounterWithLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(401)

	if got := counterValue(t, reg, "manabu_http_status_total"); got != 3 {
		t.Errorf("http_status_total = %v, want 3", got)
	}
}

// TestRecordAuthLatency_Observes はレイテンシが記録できることを検証する。
func TestRecordAuthLatency_Observes(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAuthLatency("login", 120*time.Millisecond)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "manabu_auth_latency_seconds" {
			found = true
			if count := mf.GetMetric()[0].GetHistogram().GetSampleCount(); count != 1 {
				t.Errorf("latency sample count = %d, want 1", count)
			}
		}
	}
	if !found {
		t.Error("manabu_auth_latency_seconds metric not found")
	}
}
