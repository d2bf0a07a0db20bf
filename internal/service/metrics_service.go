package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService owns the Prometheus registry and every collector the API exports.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration      *prometheus.HistogramVec
	requestTotal         *prometheus.CounterVec
	cacheLatency         prometheus.Observer
	cacheWrite           prometheus.Observer
	cacheHitRatio        prometheus.Gauge
	cacheHits            prometheus.Counter
	cacheMisses          prometheus.Counter
	dbQueryDuration      *prometheus.HistogramVec
	accessDecisions      *prometheus.CounterVec
	notificationFailures *prometheus.CounterVec
	fanoutGiveUps        prometheus.Counter
	realtimeSubscribers  prometheus.Gauge
	realtimeDropped      prometheus.Counter
	monitoringReports    *prometheus.CounterVec
	clientPerformance    *prometheus.HistogramVec

	cacheHitCount  uint64
	cacheMissCount uint64
}

func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	m := &MetricsService{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		cacheLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_latency_seconds",
			Help:    "Latency for cache lookups",
			Buckets: prometheus.DefBuckets,
		}),
		cacheWrite: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_write_seconds",
			Help:    "Latency for cache writes",
			Buckets: prometheus.DefBuckets,
		}),
		cacheHitRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cache_hit_ratio",
			Help: "Ratio of cache hits to total cache lookups",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total cache hits",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total cache misses",
		}),
		dbQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Duration of database queries",
			Buckets: prometheus.DefBuckets,
		}, []string{"query"}),
		accessDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "access_decisions_total",
			Help: "Route gate decisions by route class and outcome",
		}, []string{"class", "outcome"}),
		notificationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_insert_failures_total",
			Help: "Best-effort notification inserts that failed and were swallowed",
		}, []string{"type"}),
		fanoutGiveUps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notification_fanout_giveups_total",
			Help: "Admin fan-out jobs abandoned after exhausting retries",
		}),
		realtimeSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "realtime_subscribers",
			Help: "Currently open change-feed subscriptions",
		}),
		realtimeDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "realtime_events_dropped_total",
			Help: "Change events dropped because a subscriber buffer was full",
		}),
		monitoringReports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "monitoring_reports_total",
			Help: "Client monitoring reports received",
		}, []string{"kind", "severity"}),
		clientPerformance: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "client_performance_duration_ms",
			Help:    "Client reported durations in milliseconds",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"type"}),
	}

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		m.requestDuration, m.requestTotal,
		m.cacheLatency.(prometheus.Collector), m.cacheWrite.(prometheus.Collector), m.cacheHitRatio, m.cacheHits, m.cacheMisses,
		m.dbQueryDuration, m.accessDecisions, m.notificationFailures, m.fanoutGiveUps,
		m.realtimeSubscribers, m.realtimeDropped, m.monitoringReports, m.clientPerformance,
		goroutines,
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
}

// Handler exposes the Prometheus scrape endpoint.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry is exposed for tests that gather collector values.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
}

func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a lookup and refreshes the hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}

func (m *MetricsService) RecordAccessDecision(class, outcome string) {
	if m == nil {
		return
	}
	m.accessDecisions.WithLabelValues(class, outcome).Inc()
}

func (m *MetricsService) RecordNotificationFailure(notificationType string) {
	if m == nil {
		return
	}
	m.notificationFailures.WithLabelValues(notificationType).Inc()
}

func (m *MetricsService) RecordFanoutGiveUp() {
	if m == nil {
		return
	}
	m.fanoutGiveUps.Inc()
}

// SubscriberDelta moves the open-subscription gauge by delta.
func (m *MetricsService) SubscriberDelta(delta int) {
	if m == nil {
		return
	}
	m.realtimeSubscribers.Add(float64(delta))
}

func (m *MetricsService) RecordRealtimeDrop() {
	if m == nil {
		return
	}
	m.realtimeDropped.Inc()
}

func (m *MetricsService) RecordMonitoringReport(kind, severity string) {
	if m == nil {
		return
	}
	m.monitoringReports.WithLabelValues(kind, severity).Inc()
}

func (m *MetricsService) ObserveClientPerformance(kind string, durationMs float64) {
	if m == nil {
		return
	}
	m.clientPerformance.WithLabelValues(kind).Observe(durationMs)
}
