package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/dukerupert/foodlottery/internal/model"
)

func TestObserveDraw(t *testing.T) {
	m := New(func() float64 { return 12 })

	m.ObserveDraw([]model.FoodItem{
		{ID: 1, Category: model.CategoryStaple},
		{ID: 2, Category: model.CategoryDrink},
		{ID: 3, Category: model.CategoryDrink},
	})

	if got := testutil.ToFloat64(m.drawsTotal); got != 1 {
		t.Errorf("draws_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.foodsDrawn.WithLabelValues(model.CategoryDrink)); got != 2 {
		t.Errorf("foods_drawn{drink} = %v, want 2", got)
	}
}

func TestStatusBucket(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{101, "1xx"},
		{200, "2xx"},
		{204, "2xx"},
		{302, "3xx"},
		{404, "4xx"},
		{409, "4xx"},
		{500, "5xx"},
	}
	for _, tt := range tests {
		if got := statusBucket(tt.code); got != tt.want {
			t.Errorf("statusBucket(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New(func() float64 { return 7 })
	m.IncRequests("/api/draws", 201)
	m.IncCacheHits()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		"foodlottery_catalog_size 7",
		`foodlottery_http_requests_total{path="/api/draws",status="2xx"} 1`,
		"foodlottery_stats_cache_hits_total 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
