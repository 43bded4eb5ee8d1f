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
// ミドルウェアやハンドラー、定期ジョブから利用する。
type MetricsCollector interface {
	ObserveEdgeDecision(outcome string)
	RecordHTTPStatus(statusCode int)
	RecordPageRender(themeID string)
	RecordExport(success bool, duration time.Duration)
	RecordProfileUpsert()
	RecordSessionsDeleted(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
// nilレシーバーでも呼び出せるため、メトリクスを無効にする場合はnilを渡せばよい。
type Collector struct {
	edgeDecisions   *prometheus.CounterVec
	httpStatus      *prometheus.CounterVec
	pageRenders     *prometheus.CounterVec
	exports         *prometheus.CounterVec
	exportLatency   prometheus.Histogram
	profileUpserts  prometheus.Counter
	sessionsDeleted prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		edgeDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portfolioweb_edge_decisions_total",
			Help: "エッジルーターの判定結果別のリクエスト数",
		}, []string{"outcome"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portfolioweb_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		pageRenders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portfolioweb_page_renders_total",
			Help: "テーマ別のポートフォリオページ描画数",
		}, []string{"theme"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portfolioweb_cv_exports_total",
			Help: "結果別のCV生成数",
		}, []string{"result"}),
		exportLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "portfolioweb_cv_export_duration_seconds",
			Help:    "CV生成にかかった時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		profileUpserts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portfolioweb_profile_upserts_total",
			Help: "プロフィール保存の合計数",
		}),
		sessionsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portfolioweb_sessions_deleted_total",
			Help: "期限切れで削除されたセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.edgeDecisions,
		c.httpStatus,
		c.pageRenders,
		c.exports,
		c.exportLatency,
		c.profileUpserts,
		c.sessionsDeleted,
	)

	return c
}

// ObserveEdgeDecision はエッジルーターの判定結果を記録する。
func (c *Collector) ObserveEdgeDecision(outcome string) {
	if c == nil {
		return
	}
	c.edgeDecisions.WithLabelValues(outcome).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	if c == nil {
		return
	}
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordPageRender はポートフォリオページの描画を記録する。
func (c *Collector) RecordPageRender(themeID string) {
	if c == nil {
		return
	}
	c.pageRenders.WithLabelValues(themeID).Inc()
}

// RecordExport はCV生成の結果と所要時間を記録する。
func (c *Collector) RecordExport(success bool, duration time.Duration) {
	if c == nil {
		return
	}
	result := "success"
	if !success {
		result = "failure"
	}
	c.exports.WithLabelValues(result).Inc()
	c.exportLatency.Observe(duration.Seconds())
}

// RecordProfileUpsert はプロフィール保存を記録する。
func (c *Collector) RecordProfileUpsert() {
	if c == nil {
		return
	}
	c.profileUpserts.Inc()
}

// RecordSessionsDeleted は削除したセッション数を記録する。
func (c *Collector) RecordSessionsDeleted(count int64) {
	if c == nil {
		return
	}
	c.sessionsDeleted.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
