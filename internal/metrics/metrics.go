// SPDX-License-Identifier: MPL-2.0

// Package metrics exposes module graph build statistics as Prometheus
// collectors on a private registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/showrefs/showrefs/pkg/refgraph"
)

const namespace = "showrefs"

// Recorder implements refgraph.Observer.
type Recorder struct {
	registry *prometheus.Registry

	resolutions   *prometheus.CounterVec
	modules       prometheus.Gauge
	edges         prometheus.Gauge
	cycleEdges    prometheus.Gauge
	buildDuration prometheus.Histogram
	loads         *prometheus.CounterVec
}

var _ refgraph.Observer = (*Recorder)(nil)

// New creates a Recorder with its collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Module references resolved, labelled by outcome.",
		}, []string{"outcome"}),
		modules: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_modules",
			Help:      "Distinct modules in the last built graph.",
		}),
		edges: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_edges",
			Help:      "Dependency edges in the last built graph.",
		}),
		cycleEdges: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_cycle_edges",
			Help:      "Edges that close a reference cycle in the last built graph.",
		}),
		buildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Time taken to build a module graph.",
			Buckets:   prometheus.DefBuckets,
		}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loads_total",
			Help:      "Root module loads, labelled by result.",
		}, []string{"result"}),
	}

	r.registry.MustRegister(r.resolutions, r.modules, r.edges, r.cycleEdges, r.buildDuration, r.loads)

	// Pre-create the label values so they export as zero.
	for _, o := range []refgraph.Outcome{refgraph.OutcomeLocal, refgraph.OutcomeShared, refgraph.OutcomeUnavailable} {
		r.resolutions.WithLabelValues(o.String())
	}
	r.loads.WithLabelValues("success")
	r.loads.WithLabelValues("failure")

	return r
}

// ObserveResolution counts one resolved reference.
func (r *Recorder) ObserveResolution(outcome refgraph.Outcome) {
	r.resolutions.WithLabelValues(outcome.String()).Inc()
}

// ObserveBuild records the size of a finished graph.
func (r *Recorder) ObserveBuild(g *refgraph.Graph, elapsed time.Duration) {
	r.modules.Set(float64(g.Len()))
	r.edges.Set(float64(g.EdgeCount()))

	cycles := 0
	for _, node := range g.Nodes {
		cycles += len(node.Cycle)
	}
	r.cycleEdges.Set(float64(cycles))
	r.buildDuration.Observe(elapsed.Seconds())
}

// ObserveLoad counts a load attempt.
func (r *Recorder) ObserveLoad(err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	r.loads.WithLabelValues(result).Inc()
}

// Registry returns the private registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Mux returns a ServeMux with the handler mounted at GET /metrics.
func (r *Recorder) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", r.Handler())
	return mux
}
