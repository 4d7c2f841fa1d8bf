// Package metrics exposes Prometheus collectors for clean runs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/postclean/internal/core"
)

// Registry holds the postclean collectors on a private Prometheus registry.
type Registry struct {
	reg *prometheus.Registry

	Runs            *prometheus.CounterVec
	Rows            prometheus.Counter
	BytesRead       prometheus.Counter
	ReplacedBytes   prometheus.Counter
	EntityFallbacks *prometheus.CounterVec
	RunDuration     *prometheus.HistogramVec
}

// New creates a Registry with every collector registered, plus the Go
// runtime and process collectors.
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "postclean_runs_total",
				Help: "Clean runs by outcome; failures are labeled with their error code",
			},
			[]string{"result"},
		),

		Rows: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "postclean_rows_total",
				Help: "Rows written by successful cleans",
			},
		),

		BytesRead: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "postclean_input_bytes_total",
				Help: "Input bytes read across all cleans",
			},
		),

		ReplacedBytes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "postclean_replaced_bytes_total",
				Help: "Invalid UTF-8 input bytes replaced with '?'",
			},
		),

		EntityFallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "postclean_entity_fallbacks_total",
				Help: "Rows whose entities fell back to an empty list, by entity kind",
			},
			[]string{"kind"},
		),

		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "postclean_run_duration_seconds",
				Help:    "Wall time of a clean run",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"result"},
		),
	}

	r.reg.MustRegister(
		r.Runs,
		r.Rows,
		r.BytesRead,
		r.ReplacedBytes,
		r.EntityFallbacks,
		r.RunDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// TrackLimiter exports the limiter's slot usage as gauges.
func (r *Registry) TrackLimiter(l *core.Limiter) {
	r.reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "postclean_active_cleans",
			Help: "Cleans currently holding a limiter slot",
		}, func() float64 { return float64(l.Status().Active) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "postclean_max_concurrent_cleans",
			Help: "Limiter capacity",
		}, func() float64 { return float64(l.Status().MaxConcurrent) }),
	)
}

// ObserveRun implements core.Observer.
func (r *Registry) ObserveRun(run *core.RunResult, err error) {
	result := "ok"
	if err != nil {
		result = core.MapError(err).Code
	}
	r.Runs.WithLabelValues(result).Inc()

	if run == nil {
		return
	}
	r.RunDuration.WithLabelValues(result).Observe(run.Duration.Seconds())
	r.BytesRead.Add(float64(run.BytesRead))
	r.ReplacedBytes.Add(float64(run.ReplacedBytes))
	if err != nil {
		return
	}
	r.Rows.Add(float64(run.Rows))
	r.EntityFallbacks.WithLabelValues(core.ColHashtags).Add(float64(run.Stats.HashtagFallbacks))
	r.EntityFallbacks.WithLabelValues(core.ColMentions).Add(float64(run.Stats.MentionFallbacks))
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Gatherer exposes the underlying registry, mainly for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}
