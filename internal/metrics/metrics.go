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
// サービス層およびAIクライアントから利用する。
type MetricsCollector interface {
	RecordAISuccess(operation string)
	RecordAIFailure(operation string)
	RecordAILatency(duration time.Duration)
	RecordUpload(withAnalysis bool)
	RecordHTTPStatus(statusCode int)
	RecordSignIn(method string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	aiSuccess  *prometheus.CounterVec
	aiFail     *prometheus.CounterVec
	aiLatency  prometheus.Histogram
	uploads    *prometheus.CounterVec
	httpStatus *prometheus.CounterVec
	signIns    *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		aiSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "labnote_ai_success_total",
			Help: "AI呼び出し成功の合計数（操作種別ごと）",
		}, []string{"operation"}),
		aiFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "labnote_ai_fail_total",
			Help: "AI呼び出し失敗の合計数（操作種別ごと）",
		}, []string{"operation"}),
		aiLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "labnote_ai_latency_seconds",
			Help:    "AI呼び出しのレイテンシ（秒）",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "labnote_report_uploads_total",
			Help: "検査レポートアップロードの合計数（AI解析の有無ごと）",
		}, []string{"with_analysis"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "labnote_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		signIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "labnote_sign_ins_total",
			Help: "サインイン成功の合計数（認証方式ごと）",
		}, []string{"method"}),
	}

	reg.MustRegister(
		c.aiSuccess,
		c.aiFail,
		c.aiLatency,
		c.uploads,
		c.httpStatus,
		c.signIns,
	)

	return c
}

// RecordAISuccess はAI呼び出し成功を記録する。
func (c *Collector) RecordAISuccess(operation string) {
	c.aiSuccess.WithLabelValues(operation).Inc()
}

// RecordAIFailure はAI呼び出し失敗を記録する。
func (c *Collector) RecordAIFailure(operation string) {
	c.aiFail.WithLabelValues(operation).Inc()
}

// RecordAILatency はAI呼び出しのレイテンシを記録する。
func (c *Collector) RecordAILatency(duration time.Duration) {
	c.aiLatency.Observe(duration.Seconds())
}

// RecordUpload は検査レポートのアップロードを記録する。
func (c *Collector) RecordUpload(withAnalysis bool) {
	c.uploads.WithLabelValues(strconv.FormatBool(withAnalysis)).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordSignIn はサインイン成功を認証方式（password / sso）ごとに記録する。
func (c *Collector) RecordSignIn(method string) {
	c.signIns.WithLabelValues(method).Inc()
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
