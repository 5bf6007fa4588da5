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
// 同期ワーカーや外部APIクライアントから利用する。
type MetricsCollector interface {
	RecordUpstreamStatus(service string, statusCode int)
	RecordUpstreamLatency(service string, duration time.Duration)
	RecordUpstreamFailure(service string, reason string)
	RecordSyncSuccess(marketID string)
	RecordSyncFailure(marketID string, reason string)
	RecordSessionsPurged(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	upstreamStatus  *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
	upstreamFail    *prometheus.CounterVec
	syncSuccess     prometheus.Counter
	syncFail        prometheus.Counter
	sessionsPurged  prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		upstreamStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ichiba_upstream_status_total",
			Help: "外部APIのサービス・ステータスコード別レスポンス数",
		}, []string{"service", "status_code"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ichiba_upstream_latency_seconds",
			Help:    "外部API呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"service"}),
		upstreamFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ichiba_upstream_fail_total",
			Help: "外部API呼び出し失敗の合計数",
		}, []string{"service"}),
		syncSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ichiba_sync_success_total",
			Help: "外部カタログ同期成功の合計数",
		}),
		syncFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ichiba_sync_fail_total",
			Help: "外部カタログ同期失敗の合計数",
		}),
		sessionsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ichiba_sessions_purged_total",
			Help: "削除された期限切れセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.upstreamStatus,
		c.upstreamLatency,
		c.upstreamFail,
		c.syncSuccess,
		c.syncFail,
		c.sessionsPurged,
	)

	return c
}

// RecordUpstreamStatus は外部APIのHTTPステータスコードを記録する。
func (c *Collector) RecordUpstreamStatus(service string, statusCode int) {
	c.upstreamStatus.WithLabelValues(service, strconv.Itoa(statusCode)).Inc()
}

// RecordUpstreamLatency は外部API呼び出しのレイテンシを記録する。
func (c *Collector) RecordUpstreamLatency(service string, duration time.Duration) {
	c.upstreamLatency.WithLabelValues(service).Observe(duration.Seconds())
}

// RecordUpstreamFailure は外部API呼び出し失敗を記録する。
func (c *Collector) RecordUpstreamFailure(service string, reason string) {
	c.upstreamFail.WithLabelValues(service).Inc()
}

// RecordSyncSuccess は外部カタログ同期の成功を記録する。
func (c *Collector) RecordSyncSuccess(marketID string) {
	c.syncSuccess.Inc()
}

// RecordSyncFailure は外部カタログ同期の失敗を記録する。
func (c *Collector) RecordSyncFailure(marketID string, reason string) {
	c.syncFail.Inc()
}

// RecordSessionsPurged は削除された期限切れセッション数を記録する。
func (c *Collector) RecordSessionsPurged(count int64) {
	c.sessionsPurged.Add(float64(count))
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
