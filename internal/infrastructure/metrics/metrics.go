package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "newsaggregator"

// Metrics groups the collectors shared by the pipeline, storage and AI adapters.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	fetchRuns     prometheus.Counter
	feedErrors    *prometheus.CounterVec
	candidates    prometheus.Counter
	duplicates    prometheus.Counter
	articlesAdded prometheus.Counter
	aiCalls       *prometheus.CounterVec
	storeWrites   *prometheus.CounterVec
}

// New registers all collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		fetchRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_runs_total",
			Help:      "Completed fetch cycles.",
		}),
		feedErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_errors_total",
			Help:      "Feed retrieval or parse failures by source.",
		}, []string{"source"}),
		candidates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_considered_total",
			Help:      "Candidates that survived the per-run cap.",
		}),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_duplicate_total",
			Help:      "Candidates already present in the article store.",
		}),
		articlesAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_added_total",
			Help:      "Articles added by fetch cycles.",
		}),
		aiCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_calls_total",
			Help:      "Generative model calls by kind and outcome.",
		}, []string{"kind", "outcome"}),
		storeWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_writes_total",
			Help:      "Atomic file writes by store and outcome.",
		}, []string{"store", "outcome"}),
	}

	reg.MustRegister(m.fetchRuns, m.feedErrors, m.candidates, m.duplicates, m.articlesAdded, m.aiCalls, m.storeWrites)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) FetchRun() {
	if m != nil {
		m.fetchRuns.Inc()
	}
}

func (m *Metrics) FeedError(source string) {
	if m != nil {
		m.feedErrors.WithLabelValues(source).Inc()
	}
}

func (m *Metrics) Candidates(n int) {
	if m != nil {
		m.candidates.Add(float64(n))
	}
}

func (m *Metrics) Duplicate() {
	if m != nil {
		m.duplicates.Inc()
	}
}

func (m *Metrics) ArticlesAdded(n int) {
	if m != nil {
		m.articlesAdded.Add(float64(n))
	}
}

// AICall records one model call; outcome is "ok", "fallback" or "error".
func (m *Metrics) AICall(kind, outcome string) {
	if m != nil {
		m.aiCalls.WithLabelValues(kind, outcome).Inc()
	}
}

func (m *Metrics) StoreWrite(store string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.storeWrites.WithLabelValues(store, outcome).Inc()
}
