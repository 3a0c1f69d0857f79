package viewsearch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hugr-lab/viewsearch/snapshot"
)

const metricsNamespace = "viewsearch"

// unknownView labels searches against views that could not be resolved.
const unknownView = "_unknown"

type metrics struct {
	queries   *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	fallbacks *prometheus.CounterVec
	commits   *prometheus.CounterVec
	released  prometheus.Counter
}

// newMetrics creates the engine collectors. A nil registerer keeps them
// unregistered.
func newMetrics(reg prometheus.Registerer, manager *snapshot.Manager) *metrics {
	factory := promauto.With(reg)
	m := &metrics{
		queries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "queries_total",
				Help:      "Total number of searches by view and outcome",
			},
			[]string{"view", "outcome"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "query_duration_seconds",
				Help:      "Search latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"view"},
		),
		fallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "expression_fallbacks_total",
				Help:      "Total number of compiled filters containing an expression fallback",
			},
			[]string{"view"},
		),
		commits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "index_commits_total",
				Help:      "Total number of index commits by view",
			},
			[]string{"view"},
		),
		released: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "snapshots_released_total",
			Help:      "Total number of snapshots released by ended transactions",
		}),
	}

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "active_transactions",
		Help:      "Number of active transactions",
	}, func() float64 { return float64(manager.Active()) })
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "bound_snapshots",
		Help:      "Number of snapshots bound to active transactions",
	}, func() float64 { return float64(manager.Snapshots()) })

	manager.OnRelease(func(n int) { m.released.Add(float64(n)) })
	return m
}

func (m *metrics) observe(view string, started time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = code(err).String()
	}
	m.queries.WithLabelValues(view, outcome).Inc()
	m.duration.WithLabelValues(view).Observe(time.Since(started).Seconds())
}
