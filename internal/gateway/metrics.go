package gateway

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"distill/internal/counters"
)

// Metrics exposes the engine counters and request latencies in the
// Prometheus text format.
type Metrics struct {
	registry *prometheus.Registry
	duration *prometheus.HistogramVec
}

// NewMetrics creates a registry holding set and the process collectors.
func NewMetrics(set *counters.Set) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "distill_http_request_duration_seconds",
			Help:    "Gateway request latency by route.",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 15, 60, 300},
		}, []string{"method", "route", "status"}),
	}
	m.registry.MustRegister(
		m.duration,
		&counterCollector{set: set},
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records the latency of matched routes. Use it with
// mux.Router.Use so the route template is known.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		m.duration.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).
			Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

var counterDesc = prometheus.NewDesc(
	"distill_counter_total",
	"Engine event counters, such as asks per provider identity and their cache hits and misses.",
	[]string{"name"}, nil,
)

// counterCollector reads the counter set at scrape time.
type counterCollector struct {
	set *counters.Set
}

func (c *counterCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- counterDesc
}

func (c *counterCollector) Collect(ch chan<- prometheus.Metric) {
	for name, n := range c.set.Snapshot() {
		ch <- prometheus.MustNewConstMetric(counterDesc, prometheus.CounterValue, float64(n), name)
	}
}
