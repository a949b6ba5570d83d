package indexer

import (
	"sort"
	"strings"
	"time"

	"github.com/ishaan812/gitinsight/internal/cache"
	"github.com/ishaan812/gitinsight/internal/logger"
)

const (
	chartDatasetLabel = "Commits per Day"
	chartTitle        = "Project Evolution Timeline"
)

// Aggregate buckets commits by UTC calendar day, ascending. Each point's
// Summaries joins the day's summaries (or messages) with blank lines, oldest
// commit first.
func Aggregate(commits []cache.Commit) []cache.ChartPoint {
	sorted := make([]cache.Commit, len(commits))
	copy(sorted, commits)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	var points []cache.ChartPoint
	var texts []string
	flush := func() {
		if len(points) > 0 {
			points[len(points)-1].Summaries = strings.Join(texts, "\n\n")
		}
		texts = nil
	}
	for _, c := range sorted {
		label := cache.DayLabel(c.Date)
		if len(points) == 0 || points[len(points)-1].Date != label {
			flush()
			points = append(points, cache.ChartPoint{Date: label})
		}
		points[len(points)-1].Count++
		if text := strings.TrimSpace(c.DisplaySummary()); text != "" {
			texts = append(texts, text)
		}
	}
	flush()
	return points
}

// BuildChartConfig turns points into a Chart.js line chart.
func BuildChartConfig(points []cache.ChartPoint) cache.ChartConfig {
	labels := make([]string, len(points))
	counts := make([]int, len(points))
	summaries := make([]string, len(points))
	for i, p := range points {
		labels[i] = p.Date
		counts[i] = p.Count
		summaries[i] = p.Summaries
	}

	return cache.ChartConfig{
		Type: "line",
		Data: cache.ChartData{
			Labels: labels,
			Datasets: []cache.ChartDataset{{
				Label:       chartDatasetLabel,
				Data:        counts,
				Summaries:   summaries,
				Fill:        false,
				BorderColor: "rgb(75, 192, 192)",
				Tension:     0.1,
			}},
		},
		Options: map[string]any{
			"responsive": true,
			"plugins": map[string]any{
				"title": map[string]any{"display": true, "text": chartTitle},
			},
			"scales": map[string]any{
				"y": map[string]any{"beginAtZero": true, "ticks": map[string]any{"precision": 0}},
			},
		},
		Points: points,
	}
}

// ChartAggregator rebuilds and persists the commits-per-day chart.
type ChartAggregator struct {
	store *cache.Store
	log   *logger.Logger
	now   func() time.Time
}

func NewChartAggregator(store *cache.Store, log *logger.Logger) *ChartAggregator {
	return &ChartAggregator{store: store, log: logger.OrNop(log), now: time.Now}
}

// Run aggregates the newest limit commits and stores the chart singleton.
func (a *ChartAggregator) Run(limit int) (cache.ChartConfig, error) {
	points := Aggregate(a.store.List(limit))
	cfg := BuildChartConfig(points)

	a.store.PutChart(cache.ChartSnapshot{Config: cfg, Date: a.now().UTC()})
	if err := a.store.Save(); err != nil {
		return cfg, err
	}
	a.log.Debug("chart updated", "days", len(points))
	return cfg, nil
}
