package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all prometheus collectors of the service on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	BookingsCreated   prometheus.Counter
	BookingsCancelled prometheus.Counter
	PersistFailures   *prometheus.CounterVec
	SearchResults     prometheus.Histogram
	RequestDuration   *prometheus.HistogramVec
}

func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		BookingsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_created_total",
			Help:      "The total number of bookings created",
		}),
		BookingsCancelled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_cancelled_total",
			Help:      "The total number of bookings cancelled",
		}),
		PersistFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_persist_failures_total",
			Help:      "The total number of failed writes of the booking collection",
		}, []string{"operation"}),
		SearchResults: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "hotel_search_results",
			Help:      "Number of hotels returned per search",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50},
		}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Time taken to serve HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "code"}),
	}
}

func (m *Metrics) BookingCreated() {
	m.BookingsCreated.Inc()
}

func (m *Metrics) BookingCancelled() {
	m.BookingsCancelled.Inc()
}

func (m *Metrics) PersistFailed(operation string) {
	m.PersistFailures.WithLabelValues(operation).Inc()
}

func (m *Metrics) SearchServed(results int) {
	m.SearchResults.Observe(float64(results))
}

func (m *Metrics) RequestServed(method, route string, code int, took time.Duration) {
	m.RequestDuration.WithLabelValues(method, route, strconv.Itoa(code)).Observe(took.Seconds())
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
