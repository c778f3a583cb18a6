package handler

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"

	"github.com/dukerupert/foodlottery/internal/lottery"
	"github.com/dukerupert/foodlottery/internal/metrics"
	"github.com/dukerupert/foodlottery/internal/model"
	"github.com/dukerupert/foodlottery/internal/statcache"
	"github.com/dukerupert/foodlottery/internal/store"
	ws "github.com/dukerupert/foodlottery/internal/websocket"
)

var (
	errDrawInFlight = errors.New("a draw is already in progress")
	errEmptyCatalog = errors.New("the catalog is empty, add foods first")
)

type DrawHandler struct {
	foods   *store.FoodStore
	draws   *store.DrawStore
	metrics metrics.Recorder
	changes changes
	logger  *slog.Logger

	// delay is the spinner time between picking and recording a draw.
	delay time.Duration

	// rng is only touched while busy is held.
	rng  *rand.Rand
	busy atomic.Bool
	now  func() time.Time
}

func NewDrawHandler(fs *store.FoodStore, ds *store.DrawStore, rng *rand.Rand, delay time.Duration, rec metrics.Recorder, cache *statcache.Cache, hub ws.Broadcaster, logger *slog.Logger) *DrawHandler {
	if rec == nil {
		rec = metrics.Noop{}
	}
	return &DrawHandler{
		foods:   fs,
		draws:   ds,
		metrics: rec,
		changes: changes{cache: cache, hub: hub},
		logger:  logger,
		delay:   delay,
		rng:     rng,
		now:     time.Now,
	}
}

type drawRequest struct {
	Count int `json:"count"`
}

// DrawResult carries the stored record plus the drawn items with icons for
// the result cards.
type DrawResult struct {
	Draw  *model.DrawRecord `json:"draw"`
	Foods []model.FoodItem  `json:"foods"`
}

// perform runs one draw end to end. Only one draw runs at a time.
func (h *DrawHandler) perform(ctx context.Context, count int) (*DrawResult, error) {
	if count < 1 || count > lottery.MaxDrawCount {
		return nil, lottery.ErrInvalidCount
	}
	if !h.busy.CompareAndSwap(false, true) {
		return nil, errDrawInFlight
	}
	defer h.busy.Store(false)

	catalog, err := h.foods.List()
	if err != nil {
		return nil, err
	}
	if len(catalog) == 0 {
		return nil, errEmptyCatalog
	}

	picked, err := lottery.Draw(h.rng, catalog, count)
	if err != nil {
		return nil, err
	}

	if h.delay > 0 {
		timer := time.NewTimer(h.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	record, err := h.draws.Add(picked, h.now())
	if err != nil {
		return nil, err
	}

	h.metrics.ObserveDraw(picked)
	h.changes.publish(ws.NewMessage(ws.EntityDraw, "created", record.ID, map[string]any{
		"count": len(picked),
	}))
	h.logger.Info("draw recorded", "draw_id", record.ID, "count", len(picked))

	return &DrawResult{Draw: record, Foods: picked}, nil
}

// drawStatus maps a perform error to an HTTP status and a client message.
func drawStatus(err error) (int, string) {
	switch {
	case errors.Is(err, lottery.ErrInvalidCount):
		return http.StatusBadRequest, "count must be between 1 and 10"
	case errors.Is(err, errEmptyCatalog), errors.Is(err, errDrawInFlight):
		return http.StatusConflict, err.Error()
	default:
		return http.StatusInternalServerError, "failed to draw"
	}
}

func (h *DrawHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req drawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	result, err := h.perform(r.Context(), req.Count)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		h.logger.Debug("draw abandoned by client")
		return
	}
	if err != nil {
		status, msg := drawStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("draw", "error", err)
		}
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}
