package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/dukerupert/foodlottery/internal/database"
	"github.com/dukerupert/foodlottery/internal/lottery"
	"github.com/dukerupert/foodlottery/internal/metrics"
	"github.com/dukerupert/foodlottery/internal/model"
	"github.com/dukerupert/foodlottery/internal/statcache"
	"github.com/dukerupert/foodlottery/internal/store"
	ws "github.com/dukerupert/foodlottery/internal/websocket"
)

type recordingHub struct {
	mu   sync.Mutex
	msgs []ws.Message
}

func (h *recordingHub) Broadcast(msg ws.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = append(h.msgs, msg)
}

func (h *recordingHub) types() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, m := range h.msgs {
		out = append(out, m.Type)
	}
	return out
}

type countingRecorder struct {
	metrics.Noop
	mu     sync.Mutex
	hits   int
	misses int
	draws  int
}

func (c *countingRecorder) ObserveDraw([]model.FoodItem) {
	c.mu.Lock()
	c.draws++
	c.mu.Unlock()
}

func (c *countingRecorder) IncCacheHits() {
	c.mu.Lock()
	c.hits++
	c.mu.Unlock()
}

func (c *countingRecorder) IncCacheMisses() {
	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
}

type fixture struct {
	foods    *store.FoodStore
	draws    *store.DrawStore
	hub      *recordingHub
	cache    *statcache.Cache
	rec      *countingRecorder
	foodH    *FoodHandler
	drawH    *DrawHandler
	historyH *HistoryHandler
	statsH   *StatsHandler
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{
		foods: store.NewFoodStore(db),
		draws: store.NewDrawStore(db),
		hub:   &recordingHub{},
		cache: statcache.New(1, time.Minute),
		rec:   &countingRecorder{},
	}
	f.foodH = NewFoodHandler(f.foods, f.cache, f.hub, logger)
	f.drawH = NewDrawHandler(f.foods, f.draws, lottery.NewSeededRand(7), 0, f.rec, f.cache, f.hub, logger)
	f.historyH = NewHistoryHandler(f.draws, f.cache, f.hub, logger)
	f.statsH = NewStatsHandler(f.foods, f.draws, f.cache, f.rec, logger)
	return f
}

func doJSON(t *testing.T, h http.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}
