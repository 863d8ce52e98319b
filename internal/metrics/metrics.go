// Package metrics exposes Prometheus collectors for probes, loads and disposal.
package metrics

import (
	"net/http"
	"time"

	"github.com/Carmen-Shannon/oxy-view/engine/node"
	"github.com/Carmen-Shannon/oxy-view/engine/orchestrator"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	probeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "oxyview",
			Name:      "probe_total",
			Help:      "Asset probes by result",
		},
		[]string{"result"},
	)

	loadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "oxyview",
			Name:      "load_total",
			Help:      "Settled load attempts by backend and outcome",
		},
		[]string{"backend", "outcome"},
	)

	loadRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "oxyview",
			Name:      "load_retries_total",
			Help:      "Loads retried with a fallback extension",
		},
	)

	loadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "oxyview",
			Name:      "load_duration_seconds",
			Help:      "Time from request to settled load",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 12, 30},
		},
		[]string{"backend"},
	)

	disposedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "oxyview",
			Name:      "disposed_resources_total",
			Help:      "GPU-side resources released by kind",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(probeTotal, loadTotal, loadRetries, loadDuration, disposedTotal)
}

// Recorder feeds lifecycle events into the package collectors.
// The zero value is ready to use.
type Recorder struct{}

var _ orchestrator.Observer = Recorder{}

func (Recorder) ObserveProbe(reachable bool) {
	result := "unreachable"
	if reachable {
		result = "reachable"
	}
	probeTotal.WithLabelValues(result).Inc()
}

func (Recorder) ObserveLoad(backend, outcome string, elapsed time.Duration) {
	loadTotal.WithLabelValues(backend, outcome).Inc()
	loadDuration.WithLabelValues(backend).Observe(elapsed.Seconds())
}

func (Recorder) ObserveRetry() {
	loadRetries.Inc()
}

// ObserveDisposed counts the resources freed by one dispose call. It matches
// session.WithDisposeListener.
func (Recorder) ObserveDisposed(r node.Released) {
	if r.Geometries > 0 {
		disposedTotal.WithLabelValues("geometry").Add(float64(r.Geometries))
	}
	if r.Textures > 0 {
		disposedTotal.WithLabelValues("texture").Add(float64(r.Textures))
	}
	if r.Materials > 0 {
		disposedTotal.WithLabelValues("material").Add(float64(r.Materials))
	}
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
