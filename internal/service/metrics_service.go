package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Placement outcomes recorded by RecordPlacement.
const (
	PlacementCommitted  = "committed"
	PlacementConflict   = "conflict"
	PlacementOverridden = "overridden"
)

// MetricsSnapshot is a lightweight JSON view of the collected counters.
type MetricsSnapshot struct {
	RequestsTotal            uint64            `json:"requests_total"`
	AverageRequestDurationMs float64           `json:"average_request_duration_ms"`
	Placements               map[string]uint64 `json:"placements"`
	Generations              map[string]uint64 `json:"generations"`
	AverageGenerationMs      float64           `json:"average_generation_ms"`
	Goroutines               int               `json:"goroutines"`
	GeneratedAt              time.Time         `json:"generated_at"`
}

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry           *prometheus.Registry
	handler            http.Handler
	requestDuration    *prometheus.HistogramVec
	requestTotal       *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	generationTotal    *prometheus.CounterVec
	placementTotal     *prometheus.CounterVec
	tasksInFlight      prometheus.Gauge

	requestCount         uint64
	requestDurationTotal uint64
	generationCount      uint64
	generationNanos      uint64
	placements           [3]uint64
	generations          map[string]*uint64
}

var generationOutcomes = []string{GenerationSucceeded, GenerationInfeasible, GenerationFailed, GenerationCancelled}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	generationDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "timetable_generation_duration_seconds",
		Help:    "Wall time of timetable generation runs",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"outcome"})

	generationTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_generations_total",
		Help: "Timetable generation runs by outcome",
	}, []string{"outcome"})

	placementTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_placements_total",
		Help: "Manual session placements by outcome",
	}, []string{"outcome"})

	tasksInFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "timetable_generation_tasks_in_flight",
		Help: "Generation tasks queued or running",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, generationDuration, generationTotal, placementTotal, tasksInFlight, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	generations := make(map[string]*uint64, len(generationOutcomes))
	for _, outcome := range generationOutcomes {
		generations[outcome] = new(uint64)
	}

	return &MetricsService{
		registry:           registry,
		handler:            handler,
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		generationDuration: generationDuration,
		generationTotal:    generationTotal,
		placementTotal:     placementTotal,
		tasksInFlight:      tasksInFlight,
		generations:        generations,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordPlacement counts a manual placement attempt.
func (m *MetricsService) RecordPlacement(outcome string) {
	if m == nil {
		return
	}
	m.placementTotal.WithLabelValues(outcome).Inc()
	switch outcome {
	case PlacementCommitted:
		atomic.AddUint64(&m.placements[0], 1)
	case PlacementConflict:
		atomic.AddUint64(&m.placements[1], 1)
	case PlacementOverridden:
		atomic.AddUint64(&m.placements[2], 1)
	}
}

// ObserveGeneration records the outcome and duration of a generator run.
func (m *MetricsService) ObserveGeneration(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.generationDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	m.generationTotal.WithLabelValues(outcome).Inc()
	if counter, ok := m.generations[outcome]; ok {
		atomic.AddUint64(counter, 1)
	}
	atomic.AddUint64(&m.generationCount, 1)
	atomic.AddUint64(&m.generationNanos, uint64(duration.Nanoseconds()))
}

// TaskStarted and TaskFinished track queued generation tasks.
func (m *MetricsService) TaskStarted() {
	if m == nil {
		return
	}
	m.tasksInFlight.Inc()
}

func (m *MetricsService) TaskFinished() {
	if m == nil {
		return
	}
	m.tasksInFlight.Dec()
}

// Snapshot returns aggregated metrics suitable for JSON endpoints.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)
	genCount := atomic.LoadUint64(&m.generationCount)
	genNanos := atomic.LoadUint64(&m.generationNanos)

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}
	var avgGenerationMs float64
	if genCount > 0 {
		avgGenerationMs = float64(genNanos) / float64(genCount) / float64(time.Millisecond)
	}

	generations := make(map[string]uint64, len(m.generations))
	for outcome, counter := range m.generations {
		generations[outcome] = atomic.LoadUint64(counter)
	}

	return MetricsSnapshot{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		Placements: map[string]uint64{
			PlacementCommitted:  atomic.LoadUint64(&m.placements[0]),
			PlacementConflict:   atomic.LoadUint64(&m.placements[1]),
			PlacementOverridden: atomic.LoadUint64(&m.placements[2]),
		},
		Generations:         generations,
		AverageGenerationMs: avgGenerationMs,
		Goroutines:          runtime.NumGoroutine(),
		GeneratedAt:         time.Now().UTC(),
	}
}
