package report

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bissquit/pulsemon/internal/domain"
)

// RenderChart draws a rank-over-time step chart for one service and returns
// the PNG bytes. It needs at least one observation; callers render a
// placeholder section instead for empty windows.
func RenderChart(summary ServiceSummary, priorities domain.PriorityMap) ([]byte, error) {
	if len(summary.Records) == 0 {
		return nil, fmt.Errorf("chart %s: no records in window", summary.Service)
	}

	xs, ys := stepPoints(summary.Records, priorities)

	graph := chart.Chart{
		Title:  summary.Service,
		Width:  900,
		Height: 360,
		Background: chart.Style{
			Padding: chart.Box{Top: 24, Left: 16, Right: 16, Bottom: 16},
		},
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatterWithFormat("01-02 15:04"),
		},
		YAxis: chart.YAxis{
			Ticks: rankTicks(priorities),
			Range: &chart.ContinuousRange{Min: 0, Max: maxRank(priorities) + 1},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    summary.Service,
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeWidth: 1.5,
					StrokeColor: drawing.ColorFromHex("4682b4"),
					DotWidth:    2,
					DotColor:    drawing.ColorFromHex("4682b4"),
				},
			},
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart %s: %w", summary.Service, err)
	}
	return buf.Bytes(), nil
}

// stepPoints converts observations into a steps-post polyline: each status
// holds its rank until the next observation.
func stepPoints(records []domain.StatusRecord, priorities domain.PriorityMap) ([]time.Time, []float64) {
	var xs []time.Time
	var ys []float64
	for i, r := range records {
		rank := float64(priorities.Rank(r.Status))
		if i > 0 {
			// Hold the previous rank up to this timestamp.
			xs = append(xs, r.ObservedAt)
			ys = append(ys, ys[len(ys)-1])
		}
		xs = append(xs, r.ObservedAt)
		ys = append(ys, rank)
	}
	if len(records) == 1 {
		// A single point cannot span an axis; extend it by a minute.
		xs = append(xs, records[0].ObservedAt.Add(time.Minute))
		ys = append(ys, ys[0])
	}
	return xs, ys
}

// rankTicks labels the Y axis with the distinct ranks of the priority map.
func rankTicks(priorities domain.PriorityMap) []chart.Tick {
	distinct := map[int]struct{}{0: {}}
	for _, status := range priorities.Statuses() {
		distinct[priorities.Rank(status)] = struct{}{}
	}
	ranks := make([]int, 0, len(distinct))
	for rank := range distinct {
		ranks = append(ranks, rank)
	}
	sort.Ints(ranks)

	ticks := make([]chart.Tick, 0, len(ranks)+1)
	for _, rank := range ranks {
		ticks = append(ticks, chart.Tick{Value: float64(rank), Label: strconv.Itoa(rank)})
	}
	top := maxRank(priorities) + 1
	ticks = append(ticks, chart.Tick{Value: top, Label: ""})
	return ticks
}

func maxRank(priorities domain.PriorityMap) float64 {
	max := 0
	for _, status := range priorities.Statuses() {
		if r := priorities.Rank(status); r > max {
			max = r
		}
	}
	return float64(max)
}
