package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"xpdash/internal/core"
)

const dateLayout = "2006-01-02"

// summaryJSON is the JSON output structure for the summary command.
type summaryJSON struct {
	Login           string          `json:"login"`
	UserID          int64           `json:"user_id"`
	TotalAllTime    int64           `json:"total_all_time"`
	Total6Month     int64           `json:"total_6_month"`
	Breakdown       core.Breakdown  `json:"breakdown"`
	Breakdown6Month core.Breakdown  `json:"breakdown_6_month"`
	AuditUp         int64           `json:"audit_up"`
	AuditDown       int64           `json:"audit_down"`
	AuditRatio      *float64        `json:"audit_ratio"`
	PassFail        core.PassFail   `json:"pass_fail"`
	Checkpoint      *checkpointJSON `json:"checkpoint,omitempty"`
	WindowStart     string          `json:"window_start"`
	LoadedAt        string          `json:"loaded_at"`
}

type checkpointJSON struct {
	Path      string `json:"path"`
	Amount    int64  `json:"amount"`
	CreatedAt string `json:"created_at"`
}

// Execute implements the go-flags Commander interface for SummaryCommand.
func (c *SummaryCommand) Execute(args []string) error {
	profile, err := c.env.loadProfile()
	if err != nil {
		return err
	}
	if c.env.globals.JSON {
		return c.env.writeJSON(newSummaryJSON(profile))
	}
	return c.printHuman(profile)
}

func newSummaryJSON(p *core.Profile) summaryJSON {
	agg := p.Aggregate
	out := summaryJSON{
		Login:           p.User.Login,
		UserID:          p.User.ID,
		TotalAllTime:    agg.TotalAllTime,
		Total6Month:     agg.Total6Month,
		Breakdown:       agg.Breakdown,
		Breakdown6Month: agg.Breakdown6Month,
		AuditUp:         p.Audit.Up,
		AuditDown:       p.Audit.Down,
		PassFail:        agg.PassFail,
		WindowStart:     agg.WindowStart.UTC().Format(time.RFC3339),
		LoadedAt:        p.LoadedAt.UTC().Format(time.RFC3339),
	}
	if p.Audit.HasRatio {
		ratio := p.Audit.Ratio
		out.AuditRatio = &ratio
	}
	if cp := agg.Checkpoint; cp != nil {
		out.Checkpoint = &checkpointJSON{
			Path:      cp.Path,
			Amount:    cp.Amount,
			CreatedAt: cp.CreatedAt.UTC().Format(time.RFC3339),
		}
	}
	return out
}

func (c *SummaryCommand) printHuman(p *core.Profile) error {
	agg := p.Aggregate
	w := tabwriter.NewWriter(c.env.out, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "User:\t%s (#%d)\n", p.User.Login, p.User.ID)
	fmt.Fprintf(w, "Total XP:\t%s\n", core.FormatXP(agg.TotalAllTime))
	fmt.Fprintf(w, "  projects\t%s\n", core.FormatXP(agg.Breakdown.Projects))
	fmt.Fprintf(w, "  checkpoint\t%s\n", core.FormatXP(agg.Breakdown.Checkpoint))
	fmt.Fprintf(w, "  small\t%s\n", core.FormatXP(agg.Breakdown.Small))
	fmt.Fprintf(w, "Since %s:\t%s\n", agg.WindowStart.UTC().Format(dateLayout), core.FormatXP(agg.Total6Month))
	fmt.Fprintf(w, "  projects\t%s\n", core.FormatXP(agg.Breakdown6Month.Projects))
	fmt.Fprintf(w, "  checkpoint\t%s\n", core.FormatXP(agg.Breakdown6Month.Checkpoint))
	fmt.Fprintf(w, "  small\t%s\n", core.FormatXP(agg.Breakdown6Month.Small))
	fmt.Fprintf(w, "Audit ratio:\t%s (done %s, received %s)\n",
		core.FormatRatio(p.Audit), core.FormatXP(p.Audit.Up), core.FormatXP(p.Audit.Down))
	fmt.Fprintf(w, "Projects:\t%d passed, %d failed\n", agg.PassFail.Pass, agg.PassFail.Fail)
	if cp := agg.Checkpoint; cp != nil {
		fmt.Fprintf(w, "Checkpoint:\t%s (%s, %s)\n", cp.Path, core.FormatXP(cp.Amount), cp.CreatedAt.UTC().Format(dateLayout))
	} else {
		fmt.Fprintf(w, "Checkpoint:\tnone\n")
	}
	return w.Flush()
}

// Execute implements the go-flags Commander interface for ProjectsCommand.
func (c *ProjectsCommand) Execute(args []string) error {
	if c.Limit < 0 {
		return fmt.Errorf("invalid --limit %d: must not be negative", c.Limit)
	}
	profile, err := c.env.loadProfile()
	if err != nil {
		return err
	}

	bars := profile.Aggregate.PerProject
	if c.Limit > 0 && len(bars) > c.Limit {
		bars = bars[:c.Limit]
	}
	if c.env.globals.JSON {
		if bars == nil {
			bars = []core.ProjectBar{}
		}
		return c.env.writeJSON(bars)
	}

	if len(bars) == 0 {
		fmt.Fprintln(c.env.out, "No project XP yet.")
		return nil
	}
	w := tabwriter.NewWriter(c.env.out, 0, 0, 2, ' ', tabwriter.AlignRight)
	for _, b := range bars {
		fmt.Fprintf(w, "%s\t%s\t\n", b.Name, core.FormatXP(b.Value))
	}
	return w.Flush()
}

type timelinePointJSON struct {
	Day   string `json:"day"`
	Value int64  `json:"value"`
}

// Execute implements the go-flags Commander interface for TimelineCommand.
func (c *TimelineCommand) Execute(args []string) error {
	profile, err := c.env.loadProfile()
	if err != nil {
		return err
	}

	series := profile.Aggregate.Cumulative
	if c.env.globals.JSON {
		out := make([]timelinePointJSON, 0, len(series))
		for _, pt := range series {
			out = append(out, timelinePointJSON{Day: pt.Day.Format(dateLayout), Value: pt.Value})
		}
		return c.env.writeJSON(out)
	}

	if len(series) == 0 {
		fmt.Fprintln(c.env.out, "No XP in the last six months.")
		return nil
	}
	w := tabwriter.NewWriter(c.env.out, 0, 0, 2, ' ', 0)
	for _, pt := range series {
		fmt.Fprintf(w, "%s\t%s\n", pt.Day.Format(dateLayout), core.FormatXP(pt.Value))
	}
	return w.Flush()
}

func (e *runEnv) writeJSON(v any) error {
	enc := json.NewEncoder(e.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
