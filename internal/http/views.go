package http

import (
	"fmt"
	"html/template"
	"math"
	"strings"
	"time"

	"xpdash/internal/core"
)

var templateFuncs = template.FuncMap{
	"xp":    core.FormatXP,
	"ratio": core.FormatRatio,
	"date":  func(t time.Time) string { return t.UTC().Format("2006-01-02") },
}

// Chart geometry, in SVG user units.
const (
	lineWidth   = 600
	lineHeight  = 200
	linePadding = 10
)

type barView struct {
	Name  string
	Path  string
	Value int64
	Width int
}

type lineView struct {
	Points string
	Width  int
	Height int
	First  time.Time
	Last   time.Time
	Max    int64
	Empty  bool
}

// donutView expresses arcs as percentages of a circle whose circumference
// is 100, so they feed stroke-dasharray directly.
type donutView struct {
	Pass    int
	Fail    int
	PassArc float64
	FailArc float64
	PassPct int
	Empty   bool
}

type dashboardView struct {
	Profile *core.Profile
	Bars    []barView
	Line    lineView
	Donut   donutView
}

func newDashboardView(p *core.Profile) dashboardView {
	return dashboardView{
		Profile: p,
		Bars:    newBars(p.Aggregate.PerProject),
		Line:    newLine(p.Aggregate.Cumulative),
		Donut:   newDonut(p.Aggregate.PassFail),
	}
}

func newBars(bars []core.ProjectBar) []barView {
	var maxValue int64
	for _, b := range bars {
		maxValue = max(maxValue, b.Value)
	}
	out := make([]barView, 0, len(bars))
	for _, b := range bars {
		width := 0
		if maxValue > 0 && b.Value > 0 {
			width = int((b.Value*100 + maxValue/2) / maxValue) // rounded percent
			width = min(max(width, 2), 100)                    // keep tiny bars visible
		}
		out = append(out, barView{Name: b.Name, Path: b.Path, Value: b.Value, Width: width})
	}
	return out
}

func newLine(series []core.SeriesPoint) lineView {
	v := lineView{Width: lineWidth, Height: lineHeight, Empty: len(series) == 0}
	if v.Empty {
		return v
	}
	v.First, v.Last = series[0].Day, series[len(series)-1].Day
	for _, pt := range series {
		v.Max = max(v.Max, pt.Value)
	}

	span := v.Last.Sub(v.First).Seconds()
	plotW := float64(lineWidth - 2*linePadding)
	plotH := float64(lineHeight - 2*linePadding)
	points := make([]string, 0, len(series))
	for _, pt := range series {
		x := float64(lineWidth) / 2
		if span > 0 {
			x = linePadding + pt.Day.Sub(v.First).Seconds()/span*plotW
		}
		y := float64(lineHeight - linePadding)
		if v.Max > 0 {
			y -= float64(pt.Value) / float64(v.Max) * plotH
		}
		points = append(points, fmt.Sprintf("%.1f,%.1f", x, y))
	}
	v.Points = strings.Join(points, " ")
	return v
}

func newDonut(pf core.PassFail) donutView {
	v := donutView{Pass: pf.Pass, Fail: pf.Fail}
	total := pf.Pass + pf.Fail
	if total == 0 {
		v.Empty = true
		return v
	}
	v.PassArc = math.Round(float64(pf.Pass)/float64(total)*1000) / 10
	v.FailArc = math.Round((100-v.PassArc)*10) / 10
	v.PassPct = int(math.Round(float64(pf.Pass) / float64(total) * 100))
	return v
}
