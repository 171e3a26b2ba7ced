package xp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xpdash/internal/core"
)

func TestPickCheckpoint(t *testing.T) {
	h := DefaultHeuristics()
	start := base
	end := base.AddDate(0, 2, 0)

	tests := []struct {
		name       string
		candidates []core.Transaction
		wantID     int64
		wantOK     bool
	}{
		{
			name: "in-window candidate beats a larger out-of-window one",
			candidates: []core.Transaction{
				xpTx(1, "/div-01/piscine-js", 90_000, start.AddDate(0, -3, 0)),
				xpTx(2, "/div-01/piscine-js", 50_000, start.AddDate(0, 0, 10)),
			},
			wantID: 2, wantOK: true,
		},
		{
			name: "fallback pool when nothing is in the window",
			candidates: []core.Transaction{
				xpTx(1, "/div-01/piscine-js", 40_000, start.AddDate(0, -3, 0)),
				xpTx(2, "/div-01/piscine-js", 60_000, end.AddDate(0, 1, 0)),
			},
			wantID: 2, wantOK: true,
		},
		{
			name: "quests are excluded",
			candidates: []core.Transaction{
				xpTx(1, "/div-01/piscine-js/quest-09", 150_000, start.AddDate(0, 0, 1)),
				xpTx(2, "/div-01/piscine-js", 20_000, start.AddDate(0, 0, 2)),
			},
			wantID: 2, wantOK: true,
		},
		{
			name: "quest label excludes a JS path",
			candidates: []core.Transaction{
				{ID: 1, Type: core.TxXP, Path: "/div-01/piscine-js", ObjectName: "Quest 10", Amount: 80_000, CreatedAt: start},
			},
			wantOK: false,
		},
		{
			name: "non-JS piscine candidates are ignored",
			candidates: []core.Transaction{
				xpTx(1, "/div-01/piscine-go", 120_000, start.AddDate(0, 0, 1)),
			},
			wantOK: false,
		},
		{
			name: "JS tag can come from the label",
			candidates: []core.Transaction{
				{ID: 3, Type: core.TxXP, Path: "/div-01/piscine", ObjectName: "Piscine JS", Amount: 70_000, CreatedAt: start},
			},
			wantID: 3, wantOK: true,
		},
		{
			name: "equal magnitude picks the most recent",
			candidates: []core.Transaction{
				xpTx(1, "/div-01/piscine-js", 50_000, start.AddDate(0, 0, 1)),
				xpTx(2, "/div-01/piscine-js", 50_000, start.AddDate(0, 0, 5)),
				xpTx(3, "/div-01/piscine-js", 50_000, start.AddDate(0, 0, 3)),
			},
			wantID: 2, wantOK: true,
		},
		{
			name: "window bounds are inclusive",
			candidates: []core.Transaction{
				xpTx(1, "/div-01/piscine-js", 10_000, end),
				xpTx(2, "/div-01/piscine-js", 99_000, end.Add(time.Second)),
			},
			wantID: 1, wantOK: true,
		},
		{
			name:   "no candidates",
			wantOK: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := PickCheckpoint(tc.candidates, start, end, h)
			require.Equal(t, tc.wantOK, ok)
			if ok {
				assert.Equal(t, tc.wantID, got.ID)
			}
		})
	}
}

func TestPickCheckpoint_ZeroWindowUsesFallback(t *testing.T) {
	got, ok := PickCheckpoint([]core.Transaction{
		xpTx(1, "/div-01/piscine-js", 30_000, base),
		xpTx(2, "/div-01/piscine-js", 45_000, base.AddDate(-1, 0, 0)),
	}, time.Time{}, time.Time{}, DefaultHeuristics())

	require.True(t, ok)
	assert.Equal(t, int64(2), got.ID)
}

func TestPickCheckpoint_Deterministic(t *testing.T) {
	h := DefaultHeuristics()
	candidates := []core.Transaction{
		xpTx(5, "/div-01/piscine-js", 50_000, base),
		xpTx(9, "/div-01/piscine-js", 50_000, base),
		xpTx(2, "/div-01/piscine-js", 50_000, base),
	}
	reversed := []core.Transaction{candidates[2], candidates[1], candidates[0]}

	first, _ := PickCheckpoint(candidates, base, base, h)
	for i := 0; i < 10; i++ {
		again, _ := PickCheckpoint(candidates, base, base, h)
		assert.Equal(t, first, again)
	}
	fromReversed, _ := PickCheckpoint(reversed, base, base, h)
	assert.Equal(t, first, fromReversed)
	assert.Equal(t, int64(9), first.ID)
	assert.Equal(t, int64(5), candidates[0].ID, "input order is left untouched")
}

func TestProjectWindow(t *testing.T) {
	_, _, ok := ProjectWindow(nil)
	assert.False(t, ok)

	start, end, ok := ProjectWindow([]core.Transaction{
		xpTx(1, "/a", 1, base.AddDate(0, 1, 0)),
		xpTx(2, "/a", 1, base),
		xpTx(3, "/a", 1, base.AddDate(0, 3, 0)),
	})
	require.True(t, ok)
	assert.Equal(t, base, start)
	assert.Equal(t, base.AddDate(0, 3, 0), end)
}
