// Package handler serves the lottery's JSON API and HTML pages.
package handler

import (
	"net/http"
	"strconv"

	json "github.com/goccy/go-json"

	"github.com/dukerupert/foodlottery/internal/statcache"
	ws "github.com/dukerupert/foodlottery/internal/websocket"
)

// changes is shared by every handler that mutates the catalog or history.
// Each mutation drops cached stats and tells open pages to refresh.
type changes struct {
	cache *statcache.Cache
	hub   ws.Broadcaster
}

func (c changes) publish(msg ws.Message) {
	if c.cache != nil {
		c.cache.Invalidate()
	}
	if c.hub != nil {
		c.hub.Broadcast(msg)
	}
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
