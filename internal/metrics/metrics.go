package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics набор прикладных метрик сервиса
type Metrics struct {
	Registry          *prometheus.Registry
	SwipesTotal       *prometheus.CounterVec
	MatchesTotal      prometheus.Counter
	MessagesTotal     *prometheus.CounterVec
	SalesClosedTotal  prometheus.Counter
	WSConnections     prometheus.Gauge
	BroadcastDropped  prometheus.Counter
	APIErrorsTotal    *prometheus.CounterVec
	APIRequestLatency *prometheus.HistogramVec
}

// New создаёт и регистрирует метрики в отдельном реестре
func New(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		Registry: registry,
		SwipesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swipes_total",
			Help:      "Total number of recorded swipes by direction.",
		}, []string{"direction"}),
		MatchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_total",
			Help:      "Total number of chats created by right swipes.",
		}),
		MessagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Total number of persisted chat messages by transport.",
		}, []string{"transport"}),
		SalesClosedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sales_closed_total",
			Help:      "Total number of sales closed from chats.",
		}),
		WSConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_connections",
			Help:      "Number of live realtime connections.",
		}),
		BroadcastDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_broadcast_dropped_total",
			Help:      "Connections dropped because their send buffer was full.",
		}),
		APIErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_errors_total",
			Help:      "Total number of API errors by route and error code.",
		}, []string{"route", "code"}),
		APIRequestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_latency_seconds",
			Help:      "Latency of API requests by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	registry.MustRegister(
		m.SwipesTotal,
		m.MatchesTotal,
		m.MessagesTotal,
		m.SalesClosedTotal,
		m.WSConnections,
		m.BroadcastDropped,
		m.APIErrorsTotal,
		m.APIRequestLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler отдаёт метрики в формате Prometheus
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
