package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dukerupert/foodlottery/internal/lottery"
	"github.com/dukerupert/foodlottery/internal/model"
	"github.com/dukerupert/foodlottery/internal/web"
)

const historyTimeLayout = "2006-01-02 15:04"

var categoryLabels = map[string]string{
	model.CategoryStaple: "Staple",
	model.CategorySnack:  "Snack",
	model.CategoryFruit:  "Fruit",
	model.CategoryDrink:  "Drink",
}

func categoryLabel(c string) string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return c
}

// ParseTemplates loads the embedded page templates.
func ParseTemplates(loc *time.Location) (*template.Template, error) {
	funcs := template.FuncMap{
		"categoryLabel": categoryLabel,
		"formatTime": func(t time.Time) string {
			return t.In(loc).Format(historyTimeLayout)
		},
	}
	return template.New("").Funcs(funcs).ParseFS(web.FS, "templates/*.html")
}

// pageData is shared by all pages; each page reads the fields it needs.
type pageData struct {
	Title      string
	Page       string
	Error      string
	Categories []string
	Icons      []string

	CatalogSize int
	Count       int
	MaxCount    int
	Result      *DrawResult

	Foods []model.FoodItem
	Form  foodRequest

	History  []model.DrawRecord
	Category string

	Stats model.Stats
	Chart model.ChartData
}

type TemplateHandler struct {
	foodH    *FoodHandler
	drawH    *DrawHandler
	historyH *HistoryHandler
	statsH   *StatsHandler

	templates *template.Template
	logger    *slog.Logger
}

func NewTemplateHandler(tmpl *template.Template, fh *FoodHandler, dh *DrawHandler, hh *HistoryHandler, sh *StatsHandler, logger *slog.Logger) *TemplateHandler {
	return &TemplateHandler{
		foodH:     fh,
		drawH:     dh,
		historyH:  hh,
		statsH:    sh,
		templates: tmpl,
		logger:    logger,
	}
}

func newPage(title, page string) pageData {
	return pageData{
		Title:      title,
		Page:       page,
		Categories: model.Categories,
		Icons:      model.Icons,
	}
}

// DrawPage shows the draw form. After a successful form post it is loaded
// as /?draw=<id>&count=<n> and also shows that draw's result.
func (h *TemplateHandler) DrawPage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	data, err := h.drawPage(clampCount(q.Get("count")))
	if err != nil {
		h.serverError(w, "load draw page", err)
		return
	}
	if id, err := strconv.ParseInt(q.Get("draw"), 10, 64); err == nil {
		result, err := h.drawResult(id)
		if err != nil {
			h.serverError(w, "load draw result", err)
			return
		}
		data.Result = result
	}
	h.render(w, http.StatusOK, "draw.html", data)
}

// clampCount parses the slider value, falling back to 1.
func clampCount(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > lottery.MaxDrawCount {
		return 1
	}
	return n
}

func (h *TemplateHandler) drawPage(count int) (pageData, error) {
	data := newPage("Draw", "draw")
	n, err := h.drawH.foods.Count()
	if err != nil {
		return data, err
	}
	data.CatalogSize = n
	data.Count = count
	data.MaxCount = lottery.MaxDrawCount
	return data, nil
}

// drawResult rebuilds the result cards for a stored draw. Foods deleted
// since the draw keep their snapshot name with the default icon. Unknown
// ids give a nil result.
func (h *TemplateHandler) drawResult(id int64) (*DrawResult, error) {
	record, err := h.drawH.draws.GetByID(id)
	if err != nil || record == nil {
		return nil, err
	}
	foods := make([]model.FoodItem, 0, len(record.Foods))
	for _, snap := range record.Foods {
		item := model.FoodItem{ID: snap.ID, Name: snap.Name, Category: snap.Category, Icon: model.DefaultIcon}
		current, err := h.drawH.foods.GetByID(snap.ID)
		if err != nil {
			return nil, err
		}
		if current != nil {
			item.Icon = current.Icon
		}
		foods = append(foods, item)
	}
	return &DrawResult{Draw: record, Foods: foods}, nil
}

// Draw handles the form post. Success redirects to the draw page so a
// browser refresh does not draw again; errors render in place.
func (h *TemplateHandler) Draw(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}
	count, err := strconv.Atoi(r.FormValue("count"))
	if err != nil {
		count = 0
	}

	result, drawErr := h.drawH.perform(r.Context(), count)
	if errors.Is(drawErr, context.Canceled) || errors.Is(drawErr, context.DeadlineExceeded) {
		return
	}
	if drawErr == nil {
		http.Redirect(w, r, fmt.Sprintf("/?draw=%d&count=%d", result.Draw.ID, count), http.StatusSeeOther)
		return
	}

	data, err := h.drawPage(clampCount(r.FormValue("count")))
	if err != nil {
		h.serverError(w, "load draw page", err)
		return
	}
	status, msg := drawStatus(drawErr)
	if status == http.StatusInternalServerError {
		h.logger.Error("draw", "error", drawErr)
	}
	data.Error = msg
	h.render(w, status, "draw.html", data)
}

func (h *TemplateHandler) ManagePage(w http.ResponseWriter, r *http.Request) {
	data, err := h.managePage(foodRequest{Category: model.CategoryStaple, Icon: model.DefaultIcon})
	if err != nil {
		h.serverError(w, "load manage page", err)
		return
	}
	h.render(w, http.StatusOK, "manage.html", data)
}

func (h *TemplateHandler) managePage(form foodRequest) (pageData, error) {
	data := newPage("Manage", "manage")
	foods, err := listFoods(h.foodH.foods, model.CategoryAll)
	if err != nil {
		return data, err
	}
	data.Foods = foods
	data.Form = form
	return data, nil
}

func (h *TemplateHandler) FoodCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}
	req := foodRequest{
		Name:     r.FormValue("name"),
		Category: r.FormValue("category"),
		Icon:     r.FormValue("icon"),
	}

	_, err := h.foodH.create(req)
	var verr *validationError
	if errors.As(err, &verr) {
		data, lerr := h.managePage(req)
		if lerr != nil {
			h.serverError(w, "load manage page", lerr)
			return
		}
		data.Error = verr.msg
		h.render(w, http.StatusBadRequest, "manage.html", data)
		return
	}
	if err != nil {
		h.serverError(w, "create food", err)
		return
	}
	http.Redirect(w, r, "/manage", http.StatusSeeOther)
}

func (h *TemplateHandler) FoodDelete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	found, err := h.foodH.remove(id)
	if err != nil {
		h.serverError(w, "delete food", err)
		return
	}
	if !found {
		http.Error(w, "food not found", http.StatusNotFound)
		return
	}
	http.Redirect(w, r, "/manage", http.StatusSeeOther)
}

func (h *TemplateHandler) HistoryPage(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if category == "" {
		category = model.CategoryAll
	}

	history, err := h.historyH.list(category)
	var verr *validationError
	if errors.As(err, &verr) {
		http.Error(w, verr.msg, http.StatusBadRequest)
		return
	}
	if err != nil {
		h.serverError(w, "load history", err)
		return
	}

	data := newPage("History", "history")
	data.History = history
	data.Category = category
	h.render(w, http.StatusOK, "history.html", data)
}

func (h *TemplateHandler) HistoryClear(w http.ResponseWriter, r *http.Request) {
	if err := h.historyH.clear(); err != nil {
		h.serverError(w, "clear history", err)
		return
	}
	http.Redirect(w, r, "/history", http.StatusSeeOther)
}

func (h *TemplateHandler) StatsPage(w http.ResponseWriter, r *http.Request) {
	stats, err := h.statsH.compute()
	if err != nil {
		h.serverError(w, "compute stats", err)
		return
	}
	data := newPage("Stats", "stats")
	data.Stats = stats
	data.Chart = lottery.ComputeChartData(stats)
	h.render(w, http.StatusOK, "stats.html", data)
}

func (h *TemplateHandler) serverError(w http.ResponseWriter, what string, err error) {
	h.logger.Error(what, "error", err)
	http.Error(w, "server error", http.StatusInternalServerError)
}

// render buffers the page so a template error can still produce a 500.
func (h *TemplateHandler) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := h.templates.ExecuteTemplate(&buf, name, data); err != nil {
		h.logger.Error("template error", "template", name, "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
