package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findMetricFamily は指定名のメトリクスファミリーを返す。見つからない場合はテストを失敗させる。
func findMetricFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("%s metric not found", name)
	return nil
}

// counterWithLabel は指定ラベル値を持つカウンタの値を返す。
func counterWithLabel(mf *dto.MetricFamily, label, value string) float64 {
	for _, m := range mf.GetMetric() {
		for _, lp := range m.GetLabel() {
			if lp.GetName() == label && lp.GetValue() == value {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordHTTPStatus_IncrementsCounterWithLabel はHTTPステータスカウンタがラベル付きで増加することを検証する。
func TestRecordHTTPStatus_IncrementsCounterWithLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(404)

	mf := findMetricFamily(t, reg, "litter_http_requests_total")
	if got := counterWithLabel(mf, "status_code", "200"); got != 2 {
		t.Errorf("status_code=200 count = %v, want 2", got)
	}
	if got := counterWithLabel(mf, "status_code", "404"); got != 1 {
		t.Errorf("status_code=404 count = %v, want 1", got)
	}
}

// TestRecordLogin_IncrementsCounterWithResult はログイン結果別にカウンタが増加することを検証する。
func TestRecordLogin_IncrementsCounterWithResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLogin(LoginResultSuccess)
	c.RecordLogin(LoginResultBadCredentials)
	c.RecordLogin(LoginResultBadCredentials)

	mf := findMetricFamily(t, reg, "litter_logins_total")
	if got := counterWithLabel(mf, "result", LoginResultSuccess); got != 1 {
		t.Errorf("result=success count = %v, want 1", got)
	}
	if got := counterWithLabel(mf, "result", LoginResultBadCredentials); got != 2 {
		t.Errorf("result=bad_credentials count = %v, want 2", got)
	}
}

// TestRecordRegistrationAndMessages はユーザー登録数とメッセージ投稿数が増加することを検証する。
func TestRecordRegistrationAndMessages(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRegistration()
	c.RecordMessagePublished()
	c.RecordMessagePublished()

	if got := findMetricFamily(t, reg, "litter_registrations_total").GetMetric()[0].GetCounter().GetValue(); got != 1 {
		t.Errorf("registrations_total = %v, want 1", got)
	}
	if got := findMetricFamily(t, reg, "litter_messages_published_total").GetMetric()[0].GetCounter().GetValue(); got != 2 {
		t.Errorf("messages_published_total = %v, want 2", got)
	}
}

// TestRecordSubscription_IncrementsCounterWithAction は購読操作別にカウンタが増加することを検証する。
func TestRecordSubscription_IncrementsCounterWithAction(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSubscription(SubscriptionActionSubscribe)
	c.RecordSubscription(SubscriptionActionSubscribe)
	c.RecordSubscription(SubscriptionActionUnsubscribe)

	mf := findMetricFamily(t, reg, "litter_subscriptions_total")
	if got := counterWithLabel(mf, "action", SubscriptionActionSubscribe); got != 2 {
		t.Errorf("action=subscribe count = %v, want 2", got)
	}
	if got := counterWithLabel(mf, "action", SubscriptionActionUnsubscribe); got != 1 {
		t.Errorf("action=unsubscribe count = %v, want 1", got)
	}
}

// TestRecordFeedResolveLatency_ObservesHistogram はフィード解決レイテンシがヒストグラムに記録されることを検証する。
func TestRecordFeedResolveLatency_ObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordFeedResolveLatency(150 * time.Millisecond)
	c.RecordFeedResolveLatency(50 * time.Millisecond)

	h := findMetricFamily(t, reg, "litter_feed_resolve_seconds").GetMetric()[0].GetHistogram()
	if h.GetSampleCount() != 2 {
		t.Errorf("sample count = %d, want 2", h.GetSampleCount())
	}
	if sum := h.GetSampleSum(); sum < 0.19 || sum > 0.21 {
		t.Errorf("sample sum = %v, want ~0.2", sum)
	}
}

// TestNewCollector_DuplicateRegistration_Panics は同一レジストリへの二重登録でpanicすることを検証する。
func TestNewCollector_DuplicateRegistration_Panics(t *testing.T) {
	reg := prometheus.NewRegistry()
	_ = NewCollector(reg)

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	_ = NewCollector(reg)
}

func TestOrNop(t *testing.T) {
	if _, ok := OrNop(nil).(NopCollector); !ok {
		t.Error("OrNop(nil) should return NopCollector")
	}

	c := NewCollector(prometheus.NewRegistry())
	if OrNop(c) != MetricsCollector(c) {
		t.Error("OrNop should return the given collector unchanged")
	}
}

// TestHandler_ServesMetrics はHandlerがPrometheus形式でメトリクスを返すことを検証する。
func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordRegistration()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	Handler(reg).ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "litter_registrations_total 1") {
		t.Errorf("response should contain litter_registrations_total 1, got:\n%s", body)
	}
}
