package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/dukerupert/foodlottery/internal/lottery"
)

func TestDrawCreate(t *testing.T) {
	f := setupFixture(t)

	rec := doJSON(t, f.drawH.Create, "POST", "/api/draws", `{"count":3}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	result := decode[DrawResult](t, rec)
	if len(result.Foods) != 3 || len(result.Draw.Foods) != 3 {
		t.Fatalf("got %d foods, %d snapshots, want 3", len(result.Foods), len(result.Draw.Foods))
	}
	seen := map[int64]bool{}
	for i, food := range result.Foods {
		if seen[food.ID] {
			t.Errorf("duplicate food %d", food.ID)
		}
		seen[food.ID] = true
		if food.Icon == "" {
			t.Errorf("food %d has no icon", food.ID)
		}
		if result.Draw.Foods[i].ID != food.ID {
			t.Errorf("snapshot %d = %d, want %d", i, result.Draw.Foods[i].ID, food.ID)
		}
	}

	history, _ := f.draws.List()
	if len(history) != 1 || history[0].ID != result.Draw.ID {
		t.Errorf("history = %+v", history)
	}
	if f.rec.draws != 1 {
		t.Errorf("observed draws = %d, want 1", f.rec.draws)
	}
	if got := f.hub.types(); len(got) != 1 || got[0] != "draw_created" {
		t.Errorf("broadcasts = %v", got)
	}
}

func TestDrawCountBounds(t *testing.T) {
	f := setupFixture(t)

	for _, body := range []string{`{"count":0}`, `{"count":-2}`, `{"count":11}`, `{}`, `nope`} {
		rec := doJSON(t, f.drawH.Create, "POST", "/api/draws", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", body, rec.Code)
		}
	}

	rec := doJSON(t, f.drawH.Create, "POST", "/api/draws", `{"count":10}`)
	if rec.Code != http.StatusCreated {
		t.Errorf("count 10: status = %d, want 201", rec.Code)
	}
}

func TestDrawLargerThanCatalog(t *testing.T) {
	f := setupFixture(t)
	for id := int64(4); id <= 12; id++ {
		f.foods.Delete(id)
	}

	rec := doJSON(t, f.drawH.Create, "POST", "/api/draws", `{"count":5}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	result := decode[DrawResult](t, rec)
	if len(result.Foods) != 3 {
		t.Fatalf("got %d foods, want whole catalog of 3", len(result.Foods))
	}
	for i, food := range result.Foods {
		if food.ID != int64(i+1) {
			t.Errorf("foods[%d] = %d, want catalog order", i, food.ID)
		}
	}
}

func TestDrawEmptyCatalog(t *testing.T) {
	f := setupFixture(t)
	for id := int64(1); id <= 12; id++ {
		f.foods.Delete(id)
	}

	rec := doJSON(t, f.drawH.Create, "POST", "/api/draws", `{"count":1}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
	if history, _ := f.draws.List(); len(history) != 0 {
		t.Errorf("history has %d records, want 0", len(history))
	}
}

func TestDrawRejectsConcurrent(t *testing.T) {
	f := setupFixture(t)
	f.drawH.busy.Store(true)

	rec := doJSON(t, f.drawH.Create, "POST", "/api/draws", `{"count":1}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}

	f.drawH.busy.Store(false)
	rec = doJSON(t, f.drawH.Create, "POST", "/api/draws", `{"count":1}`)
	if rec.Code != http.StatusCreated {
		t.Errorf("status after release = %d, want 201", rec.Code)
	}
}

func TestDrawCancelledDuringDelay(t *testing.T) {
	f := setupFixture(t)
	f.drawH.delay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.drawH.perform(ctx, 2)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if history, _ := f.draws.List(); len(history) != 0 {
		t.Errorf("cancelled draw wrote %d records", len(history))
	}
	if f.drawH.busy.Load() {
		t.Error("busy flag not released")
	}
	if len(f.hub.types()) != 0 {
		t.Error("cancelled draw should not broadcast")
	}
}

func TestDrawStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{lottery.ErrInvalidCount, http.StatusBadRequest},
		{errEmptyCatalog, http.StatusConflict},
		{errDrawInFlight, http.StatusConflict},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got, _ := drawStatus(tt.err); got != tt.want {
			t.Errorf("drawStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
