package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/foodlottery/internal/model"
	"github.com/dukerupert/foodlottery/internal/statcache"
	"github.com/dukerupert/foodlottery/internal/store"
	ws "github.com/dukerupert/foodlottery/internal/websocket"
)

type HistoryHandler struct {
	draws   *store.DrawStore
	changes changes
	logger  *slog.Logger
}

func NewHistoryHandler(ds *store.DrawStore, cache *statcache.Cache, hub ws.Broadcaster, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{draws: ds, changes: changes{cache: cache, hub: hub}, logger: logger}
}

func (h *HistoryHandler) list(category string) ([]model.DrawRecord, error) {
	if category != "" && category != model.CategoryAll && !model.IsValidCategory(category) {
		return nil, &validationError{msg: "unknown category"}
	}
	return h.draws.ListByCategory(category)
}

func (h *HistoryHandler) clear() error {
	if err := h.draws.Clear(); err != nil {
		return err
	}
	h.changes.publish(ws.NewMessage(ws.EntityHistory, "cleared", 0, nil))
	return nil
}

func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	history, err := h.list(r.URL.Query().Get("category"))
	var verr *validationError
	if errors.As(err, &verr) {
		writeError(w, http.StatusBadRequest, verr.msg)
		return
	}
	if err != nil {
		h.logger.Error("list history", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list history")
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (h *HistoryHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.clear(); err != nil {
		h.logger.Error("clear history", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to clear history")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
