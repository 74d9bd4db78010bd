// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ログイン結果
const (
	LoginSuccess         = "success"
	LoginProviderFailure = "provider_failure"
	LoginDependencyError = "dependency_error"
)

// セッション解決結果
const (
	SessionAuthenticated   = "authenticated"
	SessionAnonymous       = "anonymous"
	SessionDependencyError = "dependency_error"
)

// 依存先
const (
	DependencyIdentityStore = "identity_store"
	DependencySessionStore  = "session_store"
	DependencyEntryStore    = "entry_store"
)

// Recorder はメトリクス収集のインターフェース。
// ハンドラーやミドルウェアから利用する。
type Recorder interface {
	RecordLogin(outcome string)
	RecordSessionResolution(outcome string)
	RecordDependencyFailure(dependency string)
	RecordEntryCreated(entryType string)
	RecordHTTPRequest(method, route string, statusCode int, duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	logins             *prometheus.CounterVec
	sessionResolutions *prometheus.CounterVec
	dependencyFailures *prometheus.CounterVec
	entriesCreated     *prometheus.CounterVec
	httpRequests       *prometheus.CounterVec
	httpLatency        *prometheus.HistogramVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "soullog_logins_total",
			Help: "OAuthコールバックの結果別件数",
		}, []string{"outcome"}),
		sessionResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "soullog_session_resolutions_total",
			Help: "リクエストごとのセッション解決結果",
		}, []string{"outcome"}),
		dependencyFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "soullog_dependency_failures_total",
			Help: "依存先（ストア）への到達失敗数",
		}, []string{"dependency"}),
		entriesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "soullog_entries_created_total",
			Help: "作成された日記エントリ数",
		}, []string{"type"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "soullog_http_requests_total",
			Help: "ルート・ステータスコード別のレスポンス数",
		}, []string{"method", "route", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "soullog_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		c.logins,
		c.sessionResolutions,
		c.dependencyFailures,
		c.entriesCreated,
		c.httpRequests,
		c.httpLatency,
	)

	return c
}

// RecordLogin はログイン結果を記録する。
func (c *Collector) RecordLogin(outcome string) {
	c.logins.WithLabelValues(outcome).Inc()
}

// RecordSessionResolution はセッション解決結果を記録する。
func (c *Collector) RecordSessionResolution(outcome string) {
	c.sessionResolutions.WithLabelValues(outcome).Inc()
}

// RecordDependencyFailure は依存先の障害を記録する。
func (c *Collector) RecordDependencyFailure(dependency string) {
	c.dependencyFailures.WithLabelValues(dependency).Inc()
}

// RecordEntryCreated はエントリ作成を記録する。
func (c *Collector) RecordEntryCreated(entryType string) {
	c.entriesCreated.WithLabelValues(entryType).Inc()
}

// RecordHTTPRequest はHTTPリクエストのステータスと処理時間を記録する。
// routeにはchiのルートパターンを渡し、ラベルの数を抑える。
func (c *Collector) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ Recorder = (*Collector)(nil)
