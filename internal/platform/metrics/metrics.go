package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the image sequence player.
type Metrics struct {
	registry            *prometheus.Registry
	requestsTotal       *prometheus.CounterVec
	errorsTotal         prometheus.Counter
	loadsTotal          prometheus.Counter
	framesFetchedTotal  prometheus.Counter
	fetchErrorsTotal    *prometheus.CounterVec
	staleResultsTotal   prometheus.Counter
	loadFailuresTotal   *prometheus.CounterVec
	sequencesReadyTotal prometheus.Counter
	loopsTotal          prometheus.Counter
	fetchesInFlight     prometheus.Gauge
}

// New creates and registers Prometheus metrics for the player.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "imgseq_requests_total",
		Help: "Total number of HTTP requests received by method and status class",
	}, []string{"method", "code"})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "imgseq_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	loadsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "imgseq_loads_total",
		Help: "Total number of sequence load requests started",
	})
	framesFetchedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "imgseq_frames_fetched_total",
		Help: "Total number of frames fetched and decoded for a current generation",
	})
	fetchErrorsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "imgseq_fetch_errors_total",
		Help: "Total number of frame fetch failures by kind",
	}, []string{"kind"})
	staleResultsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "imgseq_stale_results_total",
		Help: "Total number of frame results discarded because their generation was not current",
	})
	loadFailuresTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "imgseq_load_failures_total",
		Help: "Total number of failed sequence loads by reason",
	}, []string{"reason"})
	sequencesReadyTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "imgseq_sequences_ready_total",
		Help: "Total number of sequences that became ready for playback",
	})
	loopsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "imgseq_loops_total",
		Help: "Total number of completed playback loops",
	})
	fetchesInFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "imgseq_fetches_in_flight",
		Help: "Number of frame fetches admitted to the pool and not yet finished",
	})

	registry.MustRegister(
		requestsTotal,
		errorsTotal,
		loadsTotal,
		framesFetchedTotal,
		fetchErrorsTotal,
		staleResultsTotal,
		loadFailuresTotal,
		sequencesReadyTotal,
		loopsTotal,
		fetchesInFlight,
	)

	return &Metrics{
		registry:            registry,
		requestsTotal:       requestsTotal,
		errorsTotal:         errorsTotal,
		loadsTotal:          loadsTotal,
		framesFetchedTotal:  framesFetchedTotal,
		fetchErrorsTotal:    fetchErrorsTotal,
		staleResultsTotal:   staleResultsTotal,
		loadFailuresTotal:   loadFailuresTotal,
		sequencesReadyTotal: sequencesReadyTotal,
		loopsTotal:          loopsTotal,
		fetchesInFlight:     fetchesInFlight,
	}
}

// IncRequests increments the request counter for method and status class
// (e.g. "2xx").
func (m *Metrics) IncRequests(method, code string) {
	m.requestsTotal.WithLabelValues(method, code).Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// IncLoads increments the load request counter.
func (m *Metrics) IncLoads() {
	m.loadsTotal.Inc()
}

// IncFramesFetched increments the fetched frames counter.
func (m *Metrics) IncFramesFetched() {
	m.framesFetchedTotal.Inc()
}

// IncFetchErrors increments the fetch error counter for kind.
func (m *Metrics) IncFetchErrors(kind string) {
	m.fetchErrorsTotal.WithLabelValues(kind).Inc()
}

// IncStaleResults increments the discarded result counter.
func (m *Metrics) IncStaleResults() {
	m.staleResultsTotal.Inc()
}

// IncLoadFailures increments the failed load counter for reason.
func (m *Metrics) IncLoadFailures(reason string) {
	m.loadFailuresTotal.WithLabelValues(reason).Inc()
}

// IncSequencesReady increments the ready sequence counter.
func (m *Metrics) IncSequencesReady() {
	m.sequencesReadyTotal.Inc()
}

// IncLoops increments the completed loop counter.
func (m *Metrics) IncLoops() {
	m.loopsTotal.Inc()
}

// SetFetchesInFlight sets the in-flight fetch gauge.
func (m *Metrics) SetFetchesInFlight(n int64) {
	m.fetchesInFlight.Set(float64(n))
}

// Handler returns an http.Handler that serves Prometheus metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
