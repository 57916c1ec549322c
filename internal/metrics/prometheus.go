// Package metrics exposes Prometheus gauges for the stored document and
// request metrics for the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/simaogato/networth-backend/internal/domain"
	"github.com/simaogato/networth-backend/internal/usecase/aggregation"
)

type Collector struct {
	registry        *prometheus.Registry
	total           prometheus.Gauge
	accounts        prometheus.Gauge
	historyEntries  prometheus.Gauge
	accountBalance  *prometheus.GaugeVec
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	mu              sync.Mutex
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		total: factory.NewGauge(prometheus.GaugeOpts{
			Name: "networth_total",
			Help: "Sum of the current account balances",
		}),
		accounts: factory.NewGauge(prometheus.GaugeOpts{
			Name: "networth_accounts",
			Help: "Number of accounts",
		}),
		historyEntries: factory.NewGauge(prometheus.GaugeOpts{
			Name: "networth_history_entries",
			Help: "Number of recorded snapshots",
		}),
		accountBalance: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "networth_account_balance",
			Help: "Current balance per account",
		}, []string{"account_id", "type"}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Time taken to serve an HTTP request",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// ObserveDocument refreshes the document gauges. Accounts that no longer
// exist are dropped from networth_account_balance.
func (c *Collector) ObserveDocument(doc *domain.Document) {
	if doc == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.total.Set(aggregation.CurrentTotal(doc.Accounts).InexactFloat64())
	c.accounts.Set(float64(len(doc.Accounts)))
	c.historyEntries.Set(float64(len(doc.History)))

	c.accountBalance.Reset()
	for _, a := range doc.Accounts {
		c.accountBalance.WithLabelValues(a.ID, a.Type).Set(a.Balance.InexactFloat64())
	}
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Middleware records request count and latency. The route label is the
// ServeMux pattern that matched, so path parameters do not explode cardinality.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		c.requests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		c.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
