// Package metrics bundles Prometheus collectors for the harvest pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Phase labels for request counters.
const (
	PhaseDiscovery  = "discovery"
	PhaseExtraction = "extraction"
)

// Metrics bundles the pipeline collectors on a dedicated registry so multiple
// runs can carry independent instances.
type Metrics struct {
	Registry             *prometheus.Registry
	RequestsTotal        *prometheus.CounterVec
	RequestDuration      prometheus.Histogram
	CategoriesTotal      prometheus.Counter
	ReferencesDiscovered prometheus.Counter
	RecordsExtracted     prometheus.Counter
	ErrorsTotal          *prometheus.CounterVec
}

// New constructs and registers all metrics on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvest_requests_total",
			Help: "Total HTTP requests issued, by pipeline phase.",
		},
		[]string{"phase"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "harvest_request_duration_seconds",
			Help:    "HTTP request latency for harvest requests.",
			Buckets: prometheus.DefBuckets,
		},
	)
	categories := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "harvest_categories_total",
			Help: "Total categories discovered on the entry page.",
		},
	)
	references := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "harvest_references_discovered_total",
			Help: "Total unique product references handed to extraction.",
		},
	)
	records := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "harvest_records_extracted_total",
			Help: "Total product records extracted successfully.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvest_errors_total",
			Help: "Total harvest errors by kind.",
		},
		[]string{"kind"},
	)

	registry.MustRegister(requests, requestDuration, categories, references, records, errorsTotal)

	return &Metrics{
		Registry:             registry,
		RequestsTotal:        requests,
		RequestDuration:      requestDuration,
		CategoriesTotal:      categories,
		ReferencesDiscovered: references,
		RecordsExtracted:     records,
		ErrorsTotal:          errorsTotal,
	}
}

// IncRequest increments the request counter for a phase.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncCategories increments the discovered categories counter.
func (m *Metrics) IncCategories() {
	if m == nil {
		return
	}
	m.CategoriesTotal.Inc()
}

// AddReferences adds to the discovered references counter.
func (m *Metrics) AddReferences(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ReferencesDiscovered.Add(float64(n))
}

// IncRecords increments the extracted records counter.
func (m *Metrics) IncRecords() {
	if m == nil {
		return
	}
	m.RecordsExtracted.Inc()
}

// IncError increments the errors counter for a kind label.
func (m *Metrics) IncError(kind string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(kind).Inc()
}
