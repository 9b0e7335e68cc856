package mw

import (
	"net/http"
	"strconv"
	"time"

	"github.com/hyperapi/gateway/internal/httpx"
	"github.com/hyperapi/gateway/internal/reqctx"
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Requests *prometheus.CounterVec
	Latency  *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "apigw_http_requests_total",
			Help: "Total HTTP requests processed by the gateway",
		}, []string{"service", "method", "code"}),
		Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "apigw_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"service", "method"}),
	}
	reg.MustRegister(m.Requests, m.Latency)
	return m
}

// Instrument wraps the whole dispatcher, so the service label is only known
// once next.ServeHTTP has matched a service and populated the request
// context — read it after, not before.
func Instrument(m *Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &httpx.StatusWriter{ResponseWriter: w}
		start := time.Now()
		next.ServeHTTP(sw, r)
		service := reqctx.ServiceID(r.Context())
		code := sw.Status
		if code == 0 {
			code = http.StatusOK
		}
		m.Requests.WithLabelValues(service, r.Method, strconv.Itoa(code)).Inc()
		m.Latency.WithLabelValues(service, r.Method).Observe(time.Since(start).Seconds())
	})
}
