package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the search progress metrics of one process
type Collector struct {
	Registry *prometheus.Registry

	EvaluationsTotal *prometheus.CounterVec
	GenerationsTotal *prometheus.CounterVec
	BestCost         *prometheus.GaugeVec
	GenerationMs     *prometheus.HistogramVec
}

// New creates the collectors and registers them on a fresh registry
func New() *Collector {
	c := &Collector{
		Registry: prometheus.NewRegistry(),
		EvaluationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "redistrict_evaluations_total",
			Help: "Total number of fitness evaluations",
		}, []string{"stage"}),
		GenerationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "redistrict_generations_total",
			Help: "Total number of completed generations",
		}, []string{"stage"}),
		BestCost: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "redistrict_best_cost",
			Help: "Lowest mean group distance found so far",
		}, []string{"stage"}),
		GenerationMs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "redistrict_generation_duration_ms",
			Help:    "Generation duration in milliseconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000},
		}, []string{"stage"}),
	}

	c.Registry.MustRegister(c.EvaluationsTotal, c.GenerationsTotal, c.BestCost, c.GenerationMs)
	return c
}

// Handler serves the registry in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.Registry, promhttp.HandlerOpts{})
}
