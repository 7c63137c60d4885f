// Package metrics exposes poll outcomes as Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Poll results used as label values.
const (
	ResultCommitted = "committed"
	ResultNoNewData = "no_new_data"
	ResultFailed    = "failed"
)

// Recorder implements wintail.Recorder on a Prometheus registry.
type Recorder struct {
	gatherer prometheus.Gatherer

	PollsTotal    *prometheus.CounterVec
	BytesTotal    *prometheus.CounterVec
	RecordsTotal  *prometheus.CounterVec
	WinsTotal     *prometheus.CounterVec
	FailuresTotal *prometheus.CounterVec
	Offset        *prometheus.GaugeVec

	RequestDuration *prometheus.HistogramVec
}

// New registers the wintail collectors on a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry registers the collectors on reg and serves them from g.
func NewWithRegistry(reg prometheus.Registerer, g prometheus.Gatherer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		gatherer: g,

		PollsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wintail_polls_total",
				Help: "Total number of polls by result",
			},
			[]string{"source", "result"},
		),

		BytesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wintail_fetched_bytes_total",
				Help: "Total logfile bytes consumed",
			},
			[]string{"source"},
		),

		RecordsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wintail_records_total",
				Help: "Total number of parsed log records",
			},
			[]string{"source"},
		),

		WinsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wintail_wins_total",
				Help: "Total number of wins extracted",
			},
			[]string{"source"},
		),

		FailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wintail_poll_failures_total",
				Help: "Total number of failed polls by failing step",
			},
			[]string{"source", "op"},
		),

		Offset: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "wintail_offset_bytes",
				Help: "Last committed byte offset",
			},
			[]string{"source"},
		),

		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wintail_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path", "code"},
		),
	}
}

// PollCompleted records a committed poll of bytes [from, to).
func (r *Recorder) PollCompleted(sourceID string, from, to int64, records, wins int) {
	r.PollsTotal.WithLabelValues(sourceID, ResultCommitted).Inc()
	r.BytesTotal.WithLabelValues(sourceID).Add(float64(to - from))
	r.RecordsTotal.WithLabelValues(sourceID).Add(float64(records))
	r.WinsTotal.WithLabelValues(sourceID).Add(float64(wins))
	r.Offset.WithLabelValues(sourceID).Set(float64(to))
}

// PollSkipped records a poll that found no new data.
func (r *Recorder) PollSkipped(sourceID string) {
	r.PollsTotal.WithLabelValues(sourceID, ResultNoNewData).Inc()
}

// PollFailed records a poll that failed at op.
func (r *Recorder) PollFailed(sourceID, op string) {
	r.PollsTotal.WithLabelValues(sourceID, ResultFailed).Inc()
	r.FailuresTotal.WithLabelValues(sourceID, op).Inc()
}

// ObserveRequest records one served HTTP request.
func (r *Recorder) ObserveRequest(path string, code int, elapsed time.Duration) {
	r.RequestDuration.WithLabelValues(path, strconv.Itoa(code)).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}
