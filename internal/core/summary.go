package core

import "time"

// MaxProjectBars caps the per-project series handed to the bar view.
const MaxProjectBars = 12

type (
	// Breakdown splits a total across the three trusted XP categories.
	Breakdown struct {
		Projects   int64 `json:"projects"`
		Checkpoint int64 `json:"checkpoint"`
		Small      int64 `json:"small"`
	}

	ProjectBar struct {
		Name  string `json:"name"`
		Path  string `json:"path"`
		Value int64  `json:"value"`
	}

	// SeriesPoint is one day of the cumulative XP line. Day is midnight UTC.
	SeriesPoint struct {
		Day   time.Time `json:"day"`
		Value int64     `json:"value"`
	}

	PassFail struct {
		Pass int `json:"pass"`
		Fail int `json:"fail"`
	}

	AggregateResult struct {
		TotalAllTime    int64
		Total6Month     int64
		Breakdown       Breakdown
		Breakdown6Month Breakdown
		PerProject      []ProjectBar
		Cumulative      []SeriesPoint
		PassFail        PassFail
		Checkpoint      *Transaction
		WindowStart     time.Time
	}

	AuditSummary struct {
		Up       int64
		Down     int64
		Ratio    float64
		HasRatio bool
	}

	Profile struct {
		User      User
		Audit     AuditSummary
		Aggregate AggregateResult
		LoadedAt  time.Time
	}
)

// NewAuditSummary derives the ratio; it is undefined when nothing was received.
func NewAuditSummary(up, down int64) AuditSummary {
	a := AuditSummary{Up: up, Down: down}
	if down != 0 {
		a.Ratio = float64(up) / float64(down)
		a.HasRatio = true
	}
	return a
}

func (b Breakdown) Total() int64 {
	return b.Projects + b.Checkpoint + b.Small
}
