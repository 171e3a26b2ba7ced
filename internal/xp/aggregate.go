package xp

import (
	"sort"
	"strings"
	"time"

	"xpdash/internal/core"
)

// Input is everything Aggregate needs from classification and resolution.
type Input struct {
	Projects   []core.Transaction
	Checkpoint *core.Transaction
	Small      []core.Transaction
	Latest     map[string]core.Progress
}

// SixMonthsBefore subtracts six calendar months. Day overflow normalizes
// forward, so Aug 31 becomes Mar 3 (or Mar 2 in a leap year).
func SixMonthsBefore(now time.Time) time.Time {
	return now.AddDate(0, -6, 0)
}

// Aggregate builds totals and series. It is a pure function of its input and now.
func Aggregate(in Input, now time.Time) core.AggregateResult {
	cutoff := SixMonthsBefore(now)
	res := core.AggregateResult{
		PassFail:    CountPassFail(in.Latest),
		WindowStart: cutoff,
		PerProject:  perProject(in.Projects),
		Cumulative:  []core.SeriesPoint{},
	}

	var recent []core.Transaction
	for _, tx := range in.Projects {
		res.Breakdown.Projects += tx.Amount
		if !tx.CreatedAt.Before(cutoff) {
			res.Breakdown6Month.Projects += tx.Amount
			recent = append(recent, tx)
		}
	}
	if cp := in.Checkpoint; cp != nil {
		res.Checkpoint = cp
		res.Breakdown.Checkpoint = cp.Amount
		if !cp.CreatedAt.Before(cutoff) {
			res.Breakdown6Month.Checkpoint = cp.Amount
			recent = append(recent, *cp)
		}
	}
	for _, tx := range in.Small {
		res.Breakdown.Small += tx.Amount
		if !tx.CreatedAt.Before(cutoff) {
			res.Breakdown6Month.Small += tx.Amount
			recent = append(recent, tx)
		}
	}

	res.TotalAllTime = res.Breakdown.Total()
	res.Total6Month = res.Breakdown6Month.Total()
	res.Cumulative = CumulativeByDay(recent)
	return res
}

// CumulativeByDay sums amounts per UTC calendar day and returns the running
// total for each day that has at least one transaction.
func CumulativeByDay(txs []core.Transaction) []core.SeriesPoint {
	perDay := make(map[time.Time]int64)
	for _, tx := range txs {
		perDay[utcDay(tx.CreatedAt)] += tx.Amount
	}
	days := make([]time.Time, 0, len(perDay))
	for d := range perDay {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	out := make([]core.SeriesPoint, 0, len(days))
	var running int64
	for _, d := range days {
		running += perDay[d]
		out = append(out, core.SeriesPoint{Day: d, Value: running})
	}
	return out
}

func utcDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func perProject(txs []core.Transaction) []core.ProjectBar {
	sums := make(map[string]int64)
	for _, tx := range txs {
		sums[core.NormalizePath(tx.Path)] += tx.Amount
	}
	bars := make([]core.ProjectBar, 0, len(sums))
	for path, v := range sums {
		bars = append(bars, core.ProjectBar{Name: ProjectName(path), Path: path, Value: v})
	}
	sort.Slice(bars, func(i, j int) bool {
		if bars[i].Value != bars[j].Value {
			return bars[i].Value > bars[j].Value
		}
		if bars[i].Name != bars[j].Name {
			return bars[i].Name < bars[j].Name
		}
		return bars[i].Path < bars[j].Path
	})
	if len(bars) > core.MaxProjectBars {
		bars = bars[:core.MaxProjectBars]
	}
	return bars
}

// ProjectName turns "/div-01/make-your-game" into "make your game".
func ProjectName(path string) string {
	path = core.NormalizePath(path)
	slug := path[strings.LastIndex(path, "/")+1:]
	if slug == "" {
		return "unknown"
	}
	return strings.ReplaceAll(slug, "-", " ")
}
