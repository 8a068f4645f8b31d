package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Module provides prometheus metrics for the HTTP surface and the ledger core.
var Module = fx.Module("observability.metrics",
	fx.Provide(New),
)

type Metrics struct {
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	duesGenerated       prometheus.Counter
	collectionsRecorded prometheus.Counter
	adjustmentsApplied  *prometheus.CounterVec
	resultCorrections   prometheus.Counter
}

func New() (*Metrics, error) {
	m := &Metrics{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campusbooks_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "campusbooks_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		duesGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "campusbooks_student_dues_generated_total",
			Help: "Monthly due buckets created by the generation service.",
		}),
		collectionsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "campusbooks_collections_recorded_total",
			Help: "Committed fee collection batches.",
		}),
		adjustmentsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campusbooks_due_adjustments_total",
			Help: "Due adjustments applied, by kind.",
		}, []string{"kind"}),
		resultCorrections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "campusbooks_result_corrections_total",
			Help: "Component result mutations with existing marks.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.httpRequests,
		m.httpDuration,
		m.duesGenerated,
		m.collectionsRecorded,
		m.adjustmentsApplied,
		m.resultCorrections,
	} {
		if err := prometheus.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) RecordDueGeneration(buckets int) {
	if m == nil || buckets <= 0 {
		return
	}
	m.duesGenerated.Add(float64(buckets))
}

func (m *Metrics) RecordCollection() {
	if m == nil {
		return
	}
	m.collectionsRecorded.Inc()
}

func (m *Metrics) RecordAdjustment(kind string) {
	if m == nil {
		return
	}
	m.adjustmentsApplied.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordResultCorrection() {
	if m == nil {
		return
	}
	m.resultCorrections.Inc()
}

// GinMiddleware records request counts and latency per route.
func GinMiddleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
