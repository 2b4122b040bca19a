// Package metrics counts poll cycles and responses on a private Prometheus
// registry and optionally exposes them over HTTP.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "handoff"

// Cycle outcomes.
const (
	OutcomeIdle      = "idle"
	OutcomeProcessed = "processed"
	OutcomeMalformed = "malformed"
	OutcomeFailed    = "failed"
)

// Recorder is safe to use as a nil pointer; every method is then a no-op.
type Recorder struct {
	reg *prometheus.Registry

	cycles        *prometheus.CounterVec
	responses     *prometheus.CounterVec
	lastProcessed prometheus.Gauge
}

func NewRecorder() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Poll cycles by outcome",
		}, []string{"outcome"}),
		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "responses_total",
			Help:      "Responses produced by action and status",
		}, []string{"action", "status"}),
		lastProcessed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_processed_timestamp_seconds",
			Help:      "Unix time of the last archived message",
		}),
	}
	r.reg.MustRegister(r.cycles, r.responses, r.lastProcessed)
	return r
}

func (r *Recorder) ObserveCycle(outcome string) {
	if r == nil {
		return
	}
	r.cycles.WithLabelValues(outcome).Inc()
}

// ObserveResponse counts one response. action should come from a bounded set.
func (r *Recorder) ObserveResponse(action string, status string) {
	if r == nil {
		return
	}
	r.responses.WithLabelValues(action, status).Inc()
}

func (r *Recorder) MarkProcessed(at time.Time) {
	if r == nil {
		return
	}
	r.lastProcessed.Set(float64(at.Unix()))
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
