package metrics

import (
    "sync"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/collectors"
)

var (
    // Registry is the dedicated Prometheus registry for the API
    Registry = prometheus.NewRegistry()
    // HTTPRequests counts requests by method, path, and status
    HTTPRequests = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
        []string{"method", "path", "status"},
    )
    // HTTPDuration records request durations in seconds
    HTTPDuration = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
        []string{"method", "path", "status"},
    )

    // Optimizations counts optimize calls by objective and terminal status
    Optimizations = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "optimizations_total", Help: "Optimization runs by objective and terminal status."},
        []string{"objective", "status"},
    )
    // SolveDuration tracks solver wall-clock time in seconds
    SolveDuration = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{Name: "solver_duration_seconds", Help: "Solver wall-clock duration in seconds.", Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60}},
        []string{"objective"},
    )
    // MatrixCacheHits counts matrix cache hits
    MatrixCacheHits = prometheus.NewCounter(
        prometheus.CounterOpts{Name: "matrix_cache_hits_total", Help: "Matrix cache hits."},
    )
    // MatrixCacheMisses counts matrix cache misses
    MatrixCacheMisses = prometheus.NewCounter(
        prometheus.CounterOpts{Name: "matrix_cache_misses_total", Help: "Matrix cache misses."},
    )
    // MatrixProviderLatency tracks external matrix provider call latency
    MatrixProviderLatency = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{Name: "matrix_provider_latency_seconds", Help: "Matrix provider call latency in seconds.", Buckets: prometheus.DefBuckets},
        []string{"outcome"},
    )
)

// RegisterDefault registers collectors to the default registry.
func RegisterDefault() {
    regOnce.Do(func() {
        Registry.MustRegister(HTTPRequests)
        Registry.MustRegister(HTTPDuration)
        Registry.MustRegister(Optimizations)
        Registry.MustRegister(SolveDuration)
        Registry.MustRegister(MatrixCacheHits)
        Registry.MustRegister(MatrixCacheMisses)
        Registry.MustRegister(MatrixProviderLatency)
        // Go/process collectors on our registry
        Registry.MustRegister(collectors.NewGoCollector())
        Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
    })
}

var regOnce sync.Once
