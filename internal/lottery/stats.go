package lottery

import (
	"math"
	"sort"

	"github.com/dukerupert/foodlottery/internal/model"
)

// ChartLimit is the maximum number of foods shown on the stats chart.
const ChartLimit = 10

// ChartPalette is cycled over chart bars by position.
var ChartPalette = []string{"#90725C", "#D6C0A8", "#7D8C5B", "#B0A295", "#C9B8A5"}

// ComputeStats counts how often each catalog item appears in history.
// Snapshots of foods no longer in the catalog are ignored entirely: they
// add to neither a count nor the total. Entries are sorted by descending
// count; ties keep catalog order.
func ComputeStats(catalog []model.FoodItem, history []model.DrawRecord) model.Stats {
	entries := make([]model.StatEntry, len(catalog))
	pos := make(map[int64]int, len(catalog))
	for i, f := range catalog {
		entries[i] = model.StatEntry{
			ID:       f.ID,
			Name:     f.Name,
			Category: f.Category,
			Icon:     f.Icon,
		}
		pos[f.ID] = i
	}

	total := 0
	for _, rec := range history {
		for _, snap := range rec.Foods {
			i, ok := pos[snap.ID]
			if !ok {
				continue
			}
			entries[i].Count++
			total++
		}
	}

	if total > 0 {
		for i := range entries {
			entries[i].Probability = roundTenth(float64(entries[i].Count) / float64(total) * 100)
		}
	}

	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].Count > entries[b].Count
	})

	return model.Stats{Entries: entries, TotalDraws: total}
}

// ComputeChartData takes the first ChartLimit sorted entries and keeps those
// that were drawn at least once.
func ComputeChartData(stats model.Stats) model.ChartData {
	top := stats.Entries
	if len(top) > ChartLimit {
		top = top[:ChartLimit]
	}

	data := model.ChartData{
		Labels: []string{},
		Values: []int{},
		Colors: []string{},
	}
	for _, e := range top {
		if e.Count == 0 {
			continue
		}
		data.Colors = append(data.Colors, ChartPalette[len(data.Labels)%len(ChartPalette)])
		data.Labels = append(data.Labels, e.Name)
		data.Values = append(data.Values, e.Count)
	}
	return data
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
