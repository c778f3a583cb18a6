package handler

import (
	"log/slog"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/dukerupert/foodlottery/internal/lottery"
	"github.com/dukerupert/foodlottery/internal/metrics"
	"github.com/dukerupert/foodlottery/internal/model"
	"github.com/dukerupert/foodlottery/internal/statcache"
	"github.com/dukerupert/foodlottery/internal/store"
)

const (
	cacheKeyStats = "stats"
	cacheKeyChart = "chart"
)

type StatsHandler struct {
	foods   *store.FoodStore
	draws   *store.DrawStore
	cache   *statcache.Cache
	metrics metrics.Recorder
	logger  *slog.Logger
}

func NewStatsHandler(fs *store.FoodStore, ds *store.DrawStore, cache *statcache.Cache, rec metrics.Recorder, logger *slog.Logger) *StatsHandler {
	if rec == nil {
		rec = metrics.Noop{}
	}
	return &StatsHandler{foods: fs, draws: ds, cache: cache, metrics: rec, logger: logger}
}

func (h *StatsHandler) compute() (model.Stats, error) {
	catalog, err := h.foods.List()
	if err != nil {
		return model.Stats{}, err
	}
	history, err := h.draws.List()
	if err != nil {
		return model.Stats{}, err
	}
	return lottery.ComputeStats(catalog, history), nil
}

// cached returns the encoded response for key, building it on a miss.
func (h *StatsHandler) cached(key string, build func(model.Stats) any) ([]byte, error) {
	var version uint64
	if h.cache != nil {
		version = h.cache.Version()
		if body, ok := h.cache.Get(key); ok {
			h.metrics.IncCacheHits()
			return body, nil
		}
	}
	h.metrics.IncCacheMisses()

	stats, err := h.compute()
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(build(stats))
	if err != nil {
		return nil, err
	}
	if h.cache != nil {
		if err := h.cache.SetAt(key, version, body); err != nil {
			h.logger.Warn("store stats response", "key", key, "bytes", len(body), "error", err)
		}
	}
	return body, nil
}

func (h *StatsHandler) serve(w http.ResponseWriter, key string, build func(model.Stats) any) {
	body, err := h.cached(key, build)
	if err != nil {
		h.logger.Error("compute stats", "key", key, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func (h *StatsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	h.serve(w, cacheKeyStats, func(s model.Stats) any { return s })
}

func (h *StatsHandler) Chart(w http.ResponseWriter, r *http.Request) {
	h.serve(w, cacheKeyChart, func(s model.Stats) any { return lottery.ComputeChartData(s) })
}
