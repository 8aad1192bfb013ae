package observability

import (
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yungbote/neurobridge-coach/internal/platform/logger"
)

// Metrics holds the coach prometheus collectors. All methods are nil-safe so callers
// can use Current() without checking whether metrics are enabled.
type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	llmRequests *prometheus.CounterVec
	llmLatency  *prometheus.HistogramVec
	llmTokens   *prometheus.CounterVec

	backgroundTasks   *prometheus.CounterVec
	backgroundLatency *prometheus.HistogramVec

	guidanceInjected *prometheus.CounterVec
	retrievalMode    *prometheus.CounterVec
	analysisOutcome  *prometheus.CounterVec
	realtimeEvents   *prometheus.CounterVec
	activeConns      prometheus.Gauge

	vectorOps       *prometheus.CounterVec
	vectorLatency   *prometheus.HistogramVec
	vectorBootstrap *prometheus.CounterVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	v := strings.TrimSpace(os.Getenv("METRICS_ENABLED"))
	if v == "" {
		return false
	}
	return strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
}

func Current() *Metrics {
	return instance
}

// Init registers the collectors once when METRICS_ENABLED is set and returns nil otherwise.
func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = NewMetrics(prometheus.NewRegistry())
		if log != nil {
			log.Info("prometheus metrics enabled")
		}
	})
	return instance
}

// NewMetrics builds and registers every collector on reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: reg,
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coach_api_requests_total",
			Help: "Total API requests by method/route/status.",
		}, []string{"method", "route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "coach_api_request_duration_seconds",
			Help:    "API request latency in seconds by method/route/status.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"method", "route", "status"}),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "coach_api_inflight_requests",
			Help: "In-flight API requests.",
		}),
		llmRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coach_llm_requests_total",
			Help: "Language model requests by model/endpoint/status.",
		}, []string{"model", "endpoint", "status"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "coach_llm_request_duration_seconds",
			Help:    "Language model request latency in seconds.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"model", "endpoint", "status"}),
		llmTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coach_llm_tokens_total",
			Help: "Language model tokens by model/direction.",
		}, []string{"model", "direction"}),
		backgroundTasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coach_background_tasks_total",
			Help: "Background task outcomes by kind (ok, error, panic, rejected).",
		}, []string{"kind", "outcome"}),
		backgroundLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "coach_background_task_duration_seconds",
			Help:    "Background task duration in seconds by kind.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		guidanceInjected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coach_guidance_injections_total",
			Help: "Guidance bundles injected into live sessions by primary concept.",
		}, []string{"concept"}),
		retrievalMode: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coach_memory_retrieval_total",
			Help: "Memory searches by retrieval mode (vector, lexical).",
		}, []string{"mode"}),
		analysisOutcome: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coach_session_analysis_total",
			Help: "Post-session analysis outcomes.",
		}, []string{"outcome"}),
		realtimeEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coach_realtime_events_total",
			Help: "Control-channel events handled by type.",
		}, []string{"type"}),
		activeConns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "coach_realtime_connections",
			Help: "Open realtime control-channel connections.",
		}),
		vectorOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coach_vector_store_operations_total",
			Help: "Vector index operations by operation/status.",
		}, []string{"operation", "status"}),
		vectorLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "coach_vector_store_operation_duration_seconds",
			Help:    "Vector index operation latency in seconds.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"operation"}),
		vectorBootstrap: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coach_vector_store_bootstrap_total",
			Help: "Vector index bootstrap attempts by outcome/code.",
		}, []string{"outcome", "code"}),
	}
	reg.MustRegister(
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.llmRequests, m.llmLatency, m.llmTokens,
		m.backgroundTasks, m.backgroundLatency,
		m.guidanceInjected, m.retrievalMode, m.analysisOutcome,
		m.realtimeEvents, m.activeConns,
		m.vectorOps, m.vectorLatency, m.vectorBootstrap,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route, status).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveLLMRequest(model, endpoint, status string, dur time.Duration, inputTokens, outputTokens int) {
	if m == nil {
		return
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = "unknown"
	}
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		endpoint = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.llmRequests.WithLabelValues(model, endpoint, status).Inc()
	if dur > 0 {
		m.llmLatency.WithLabelValues(model, endpoint, status).Observe(dur.Seconds())
	}
	if inputTokens > 0 {
		m.llmTokens.WithLabelValues(model, "input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		m.llmTokens.WithLabelValues(model, "output").Add(float64(outputTokens))
	}
}

func (m *Metrics) ObserveBackgroundTask(kind, outcome string, dur time.Duration) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "unknown"
	}
	m.backgroundTasks.WithLabelValues(kind, outcome).Inc()
	if dur > 0 {
		m.backgroundLatency.WithLabelValues(kind).Observe(dur.Seconds())
	}
}

func (m *Metrics) IncGuidanceInjected(concept string) {
	if m == nil {
		return
	}
	if concept == "" {
		concept = "unknown"
	}
	m.guidanceInjected.WithLabelValues(concept).Inc()
}

func (m *Metrics) IncRetrieval(mode string) {
	if m == nil {
		return
	}
	m.retrievalMode.WithLabelValues(mode).Inc()
}

func (m *Metrics) IncAnalysis(outcome string) {
	if m == nil {
		return
	}
	m.analysisOutcome.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncRealtimeEvent(eventType string) {
	if m == nil {
		return
	}
	if eventType == "" {
		eventType = "unknown"
	}
	m.realtimeEvents.WithLabelValues(eventType).Inc()
}

func (m *Metrics) RealtimeConnOpened() {
	if m == nil {
		return
	}
	m.activeConns.Inc()
}

func (m *Metrics) RealtimeConnClosed() {
	if m == nil {
		return
	}
	m.activeConns.Dec()
}

func (m *Metrics) ObserveVectorStoreOperation(operation, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.vectorOps.WithLabelValues(operation, status).Inc()
	m.vectorLatency.WithLabelValues(operation).Observe(dur.Seconds())
}

func (m *Metrics) ObserveVectorStoreBootstrap(outcome, code string) {
	if m == nil {
		return
	}
	if code == "" {
		code = "none"
	}
	m.vectorBootstrap.WithLabelValues(outcome, code).Inc()
}
