package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dukerupert/foodlottery/internal/model"
)

type Recorder interface {
	ObserveDraw(foods []model.FoodItem)
	IncRequests(path string, status int)
	IncCacheHits()
	IncCacheMisses()
	Handler() http.Handler
}

type Metrics struct {
	registry      *prometheus.Registry
	drawsTotal    prometheus.Counter
	foodsDrawn    *prometheus.CounterVec
	requestsTotal *prometheus.CounterVec
	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter
}

// New registers the collectors on a private registry. catalogSize is polled
// on every scrape.
func New(catalogSize func() float64) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		drawsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "foodlottery_draws_total",
			Help: "Total number of completed draws",
		}),
		foodsDrawn: f.NewCounterVec(prometheus.CounterOpts{
			Name: "foodlottery_foods_drawn_total",
			Help: "Foods selected by draws, by category",
		}, []string{"category"}),
		requestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "foodlottery_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"path", "status"}),
		cacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "foodlottery_stats_cache_hits_total",
			Help: "Stats cache hits",
		}),
		cacheMisses: f.NewCounter(prometheus.CounterOpts{
			Name: "foodlottery_stats_cache_misses_total",
			Help: "Stats cache misses",
		}),
	}

	if catalogSize != nil {
		f.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "foodlottery_catalog_size",
			Help: "Number of foods in the catalog",
		}, catalogSize)
	}

	return m
}

func (m *Metrics) ObserveDraw(foods []model.FoodItem) {
	m.drawsTotal.Inc()
	for _, f := range foods {
		m.foodsDrawn.WithLabelValues(f.Category).Inc()
	}
}

func (m *Metrics) IncRequests(path string, status int) {
	m.requestsTotal.WithLabelValues(path, statusBucket(status)).Inc()
}

func (m *Metrics) IncCacheHits()   { m.cacheHits.Inc() }
func (m *Metrics) IncCacheMisses() { m.cacheMisses.Inc() }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

// Noop discards everything; used when metrics are disabled.
type Noop struct{}

func (Noop) ObserveDraw([]model.FoodItem) {}
func (Noop) IncRequests(string, int)      {}
func (Noop) IncCacheHits()                {}
func (Noop) IncCacheMisses()              {}
func (Noop) Handler() http.Handler        { return http.NotFoundHandler() }
