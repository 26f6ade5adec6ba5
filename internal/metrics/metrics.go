package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tabletop"

// Metrics holds every collector the service exports. Build one per process
// with New and pass it down; nothing registers globally.
type Metrics struct {
	registry *prometheus.Registry

	// RED metrics
	reqs *prometheus.CounterVec
	errs *prometheus.CounterVec
	durs *prometheus.HistogramVec

	ordersOpened prometheus.Counter
	ordersPaid   *prometheus.CounterVec
	subscribers  prometheus.Gauge
	jobRuns      *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: reg,
		reqs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Number of HTTP requests handled",
		}, []string{"method", "route"}),
		errs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "errors_total",
			Help:      "Number of HTTP requests answered with a 4xx or 5xx status",
		}, []string{"method", "route", "code"}),
		durs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		ordersOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "opened_total",
			Help:      "Number of orders opened",
		}),
		ordersPaid: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "paid_total",
			Help:      "Number of orders paid, by payment method",
		}, []string{"method"}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "subscribers",
			Help:      "Number of open dashboard subscriptions",
		}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "runs_total",
			Help:      "Number of background job runs, by result",
		}, []string{"job", "result"}),
	}
	reg.MustRegister(m.reqs, m.errs, m.durs, m.ordersOpened, m.ordersPaid, m.subscribers, m.jobRuns)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Middleware records request count, errors and latency per matched route.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			labels := prometheus.Labels{"method": method, "route": route}

			m.reqs.With(labels).Inc()
			if status := c.Response().Status; status >= 400 {
				m.errs.With(prometheus.Labels{"method": method, "route": route, "code": strconv.Itoa(status)}).Inc()
			}
			m.durs.With(labels).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

func (m *Metrics) OrderOpened() { m.ordersOpened.Inc() }

func (m *Metrics) OrderPaid(method string) {
	m.ordersPaid.With(prometheus.Labels{"method": method}).Inc()
}

func (m *Metrics) SubscriberAdded() { m.subscribers.Inc() }

func (m *Metrics) SubscriberRemoved() { m.subscribers.Dec() }

func (m *Metrics) JobRun(job string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.jobRuns.With(prometheus.Labels{"job": job, "result": result}).Inc()
}
