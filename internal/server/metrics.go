package server

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	gigs     *prometheus.CounterVec
}

func newMetrics() *metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gigledger_http_requests_total",
		Help: "HTTP requests by method and status.",
	}, []string{"method", "status"})
	gigs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gigledger_operations_total",
		Help: "Ledger operations by type.",
	}, []string{"op"})
	registry.MustRegister(requests, gigs)
	return &metrics{registry: registry, requests: requests, gigs: gigs}
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *metrics) recordOp(op string) {
	if m == nil {
		return
	}
	m.gigs.WithLabelValues(op).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (m *metrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, req)
		m.requests.WithLabelValues(req.Method, strconv.Itoa(rec.status)).Inc()
	})
}
