package cache

import "time"

// ChartPoint is one day of commit activity.
type ChartPoint struct {
	Date      string `json:"date"`
	Count     int    `json:"count"`
	Summaries string `json:"summaries"`
}

// ChartConfig is a Chart.js line chart description plus the raw points it
// was built from.
type ChartConfig struct {
	Type    string         `json:"type"`
	Data    ChartData      `json:"data"`
	Options map[string]any `json:"options,omitempty"`
	Points  []ChartPoint   `json:"points"`
}

type ChartData struct {
	Labels   []string       `json:"labels"`
	Datasets []ChartDataset `json:"datasets"`
}

type ChartDataset struct {
	Label       string   `json:"label"`
	Data        []int    `json:"data"`
	Summaries   []string `json:"summaries"`
	Fill        bool     `json:"fill"`
	BorderColor string   `json:"borderColor,omitempty"`
	Tension     float64  `json:"tension"`
}

// DayLabel formats t as the UTC calendar day used for chart buckets.
func DayLabel(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
