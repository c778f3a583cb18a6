package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/gookit/validate"

	"github.com/dukerupert/foodlottery/internal/model"
	"github.com/dukerupert/foodlottery/internal/statcache"
	"github.com/dukerupert/foodlottery/internal/store"
	ws "github.com/dukerupert/foodlottery/internal/websocket"
)

type FoodHandler struct {
	foods   *store.FoodStore
	changes changes
	logger  *slog.Logger
}

func NewFoodHandler(fs *store.FoodStore, cache *statcache.Cache, hub ws.Broadcaster, logger *slog.Logger) *FoodHandler {
	return &FoodHandler{foods: fs, changes: changes{cache: cache, hub: hub}, logger: logger}
}

type foodRequest struct {
	Name     string `json:"name" validate:"required|maxLen:64"`
	Category string `json:"category" validate:"required|in:staple,snack,fruit,drink"`
	Icon     string `json:"icon" validate:"in:fa-cutlery,fa-birthday-cake,fa-lemon-o,fa-glass,fa-coffee"`
}

// validationError is returned for input the client can fix.
type validationError struct{ msg string }

func (e *validationError) Error() string { return e.msg }

func (req *foodRequest) normalize() error {
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	if req.Icon == "" {
		req.Icon = model.DefaultIcon
	}

	v := validate.Struct(req)
	if !v.Validate() {
		return &validationError{msg: v.Errors.One()}
	}
	return nil
}

// listFoods treats an empty category like "all".
func listFoods(fs *store.FoodStore, category string) ([]model.FoodItem, error) {
	if category == "" {
		category = model.CategoryAll
	}
	if !model.IsValidCategory(category) && category != model.CategoryAll {
		return nil, &validationError{msg: "unknown category"}
	}
	items, err := fs.ListByCategory(category)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.FoodItem{}
	}
	return items, nil
}

func (h *FoodHandler) create(req foodRequest) (*model.FoodItem, error) {
	if err := req.normalize(); err != nil {
		return nil, err
	}
	item, err := h.foods.Create(req.Name, req.Category, req.Icon)
	if err != nil {
		return nil, err
	}
	h.changes.publish(ws.NewMessage(ws.EntityFood, "created", item.ID, nil))
	return item, nil
}

// remove reports false when no food has the id.
func (h *FoodHandler) remove(id int64) (bool, error) {
	existing, err := h.foods.GetByID(id)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, nil
	}
	if err := h.foods.Delete(id); err != nil {
		return false, err
	}
	h.changes.publish(ws.NewMessage(ws.EntityFood, "deleted", id, nil))
	return true, nil
}

func (h *FoodHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := listFoods(h.foods, r.URL.Query().Get("category"))
	var verr *validationError
	if errors.As(err, &verr) {
		writeError(w, http.StatusBadRequest, verr.msg)
		return
	}
	if err != nil {
		h.logger.Error("list foods", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list foods")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *FoodHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req foodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	item, err := h.create(req)
	var verr *validationError
	if errors.As(err, &verr) {
		writeError(w, http.StatusBadRequest, verr.msg)
		return
	}
	if err != nil {
		h.logger.Error("create food", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create food")
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *FoodHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	found, err := h.remove(id)
	if err != nil {
		h.logger.Error("delete food", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete food")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "food not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
