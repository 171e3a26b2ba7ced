package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"xpdash/internal/core"
	"xpdash/internal/log"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	profile, err := s.loadProfile(w, r)
	if errors.Is(err, context.Canceled) {
		return
	}
	if err != nil {
		redirectToLogin(w, r, loadErrorCode(err))
		return
	}
	s.render(w, r, http.StatusOK, "dashboard.html", newDashboardView(profile))
}

type userJSON struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
}

type auditJSON struct {
	Up    int64    `json:"up"`
	Down  int64    `json:"down"`
	Ratio *float64 `json:"ratio"`
}

type checkpointJSON struct {
	ID        int64     `json:"id"`
	Path      string    `json:"path"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"createdAt"`
}

type profileResponse struct {
	User            userJSON           `json:"user"`
	TotalAllTime    int64              `json:"totalAllTime"`
	Total6Month     int64              `json:"total6Month"`
	Breakdown       core.Breakdown     `json:"breakdown"`
	Breakdown6Month core.Breakdown     `json:"breakdown6Month"`
	Audit           auditJSON          `json:"audit"`
	PassFail        core.PassFail      `json:"passFail"`
	Projects        []core.ProjectBar  `json:"projects"`
	Cumulative      []core.SeriesPoint `json:"cumulative"`
	Checkpoint      *checkpointJSON    `json:"checkpoint"`
	WindowStart     time.Time          `json:"windowStart"`
	LoadedAt        time.Time          `json:"loadedAt"`
}

func newProfileResponse(p *core.Profile) profileResponse {
	agg := p.Aggregate
	resp := profileResponse{
		User:            userJSON{ID: p.User.ID, Login: p.User.Login},
		TotalAllTime:    agg.TotalAllTime,
		Total6Month:     agg.Total6Month,
		Breakdown:       agg.Breakdown,
		Breakdown6Month: agg.Breakdown6Month,
		Audit:           auditJSON{Up: p.Audit.Up, Down: p.Audit.Down},
		PassFail:        agg.PassFail,
		Projects:        append([]core.ProjectBar{}, agg.PerProject...),
		Cumulative:      append([]core.SeriesPoint{}, agg.Cumulative...),
		WindowStart:     agg.WindowStart,
		LoadedAt:        p.LoadedAt,
	}
	if p.Audit.HasRatio {
		ratio := p.Audit.Ratio
		resp.Audit.Ratio = &ratio
	}
	if cp := agg.Checkpoint; cp != nil {
		resp.Checkpoint = &checkpointJSON{ID: cp.ID, Path: cp.Path, Amount: cp.Amount, CreatedAt: cp.CreatedAt}
	}
	return resp
}

func (s *Server) handleAPIProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.loadProfile(w, r)
	if errors.Is(err, context.Canceled) {
		return
	}
	if err != nil {
		msg, ok := loginErrorMessages[loadErrorCode(err)]
		if !ok {
			msg = "not signed in"
		}
		writeJSONError(w, r, http.StatusUnauthorized, msg)
		return
	}
	log.FromContext(r.Context()).DebugContext(r.Context(), "Profile served",
		log.FieldUserID, profile.User.ID, log.FieldTotalXP, profile.Aggregate.TotalAllTime)
	writeJSON(w, r, http.StatusOK, newProfileResponse(profile))
}
