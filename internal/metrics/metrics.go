// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ログイン結果のラベル値。
const (
	LoginResultSuccess        = "success"
	LoginResultBadCredentials = "bad_credentials"
	LoginResultInvalidShape   = "invalid_shape"
)

// 購読操作のラベル値。
const (
	SubscriptionActionSubscribe   = "subscribe"
	SubscriptionActionUnsubscribe = "unsubscribe"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ミドルウェアやサービス層から利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordLogin(result string)
	RecordRegistration()
	RecordMessagePublished()
	RecordSubscription(action string)
	RecordFeedResolveLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpRequests      *prometheus.CounterVec
	logins            *prometheus.CounterVec
	registrations     prometheus.Counter
	messagesPublished prometheus.Counter
	subscriptions     *prometheus.CounterVec
	feedResolve       prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "litter_http_requests_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "litter_logins_total",
			Help: "結果別のログイン試行数",
		}, []string{"result"}),
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "litter_registrations_total",
			Help: "ユーザー登録の合計数",
		}),
		messagesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "litter_messages_published_total",
			Help: "投稿されたメッセージの合計数",
		}),
		subscriptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "litter_subscriptions_total",
			Help: "操作別の購読変更数",
		}, []string{"action"}),
		feedResolve: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "litter_feed_resolve_seconds",
			Help:    "購読フィード解決のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.logins,
		c.registrations,
		c.messagesPublished,
		c.subscriptions,
		c.feedResolve,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpRequests.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordLogin はログイン試行の結果を記録する。
func (c *Collector) RecordLogin(result string) {
	c.logins.WithLabelValues(result).Inc()
}

// RecordRegistration はユーザー登録を記録する。
func (c *Collector) RecordRegistration() {
	c.registrations.Inc()
}

// RecordMessagePublished はメッセージ投稿を記録する。
func (c *Collector) RecordMessagePublished() {
	c.messagesPublished.Inc()
}

// RecordSubscription は購読・購読解除を記録する。
func (c *Collector) RecordSubscription(action string) {
	c.subscriptions.WithLabelValues(action).Inc()
}

// RecordFeedResolveLatency はフィード解決のレイテンシを記録する。
func (c *Collector) RecordFeedResolveLatency(duration time.Duration) {
	c.feedResolve.Observe(duration.Seconds())
}

// NopCollector は何も記録しないMetricsCollector。
// テストやメトリクス無効時に使用する。
type NopCollector struct{}

func (NopCollector) RecordHTTPStatus(int)                   {}
func (NopCollector) RecordLogin(string)                     {}
func (NopCollector) RecordRegistration()                    {}
func (NopCollector) RecordMessagePublished()                {}
func (NopCollector) RecordSubscription(string)              {}
func (NopCollector) RecordFeedResolveLatency(time.Duration) {}

// OrNop はcがnilの場合にNopCollectorを返す。
func OrNop(c MetricsCollector) MetricsCollector {
	if c == nil {
		return NopCollector{}
	}
	return c
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = NopCollector{}
)
