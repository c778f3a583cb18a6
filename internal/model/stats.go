package model

type StatEntry struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Icon        string  `json:"icon"`
	Count       int     `json:"count"`
	Probability float64 `json:"probability"`
}

type Stats struct {
	Entries    []StatEntry `json:"stats"`
	TotalDraws int         `json:"total_draws"`
}

type ChartData struct {
	Labels []string `json:"labels"`
	Values []int    `json:"values"`
	Colors []string `json:"colors"`
}
