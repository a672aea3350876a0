package middleware

import (
	"net/http"

	"github.com/hitoshi/litter/internal/metrics"
)

// NewMetricsMiddleware はレスポンスのステータスコードをメトリクスに記録するミドルウェアを返す。
// panicは500として記録した上で外側のRecoveryミドルウェアへ再送出する。
func NewMetricsMiddleware(collector metrics.MetricsCollector) func(next http.Handler) http.Handler {
	collector = metrics.OrNop(collector)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}
			defer func() {
				if p := recover(); p != nil {
					collector.RecordHTTPStatus(http.StatusInternalServerError)
					panic(p)
				}
			}()
			next.ServeHTTP(rec, r)
			collector.RecordHTTPStatus(rec.statusCode)
		})
	}
}
