package xp

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xpdash/internal/core"
)

var now = time.Date(2025, 9, 15, 18, 30, 0, 0, time.UTC)

func TestAggregate_Empty(t *testing.T) {
	res := Aggregate(Input{Latest: LatestByObject(nil)}, now)

	assert.Zero(t, res.TotalAllTime)
	assert.Zero(t, res.Total6Month)
	assert.Empty(t, res.PerProject)
	assert.Empty(t, res.Cumulative)
	assert.Equal(t, core.PassFail{}, res.PassFail)
	assert.Nil(t, res.Checkpoint)
}

func TestAggregate_Totals(t *testing.T) {
	old := now.AddDate(-1, 0, 0)
	recent := now.AddDate(0, -1, 0)
	cp := xpTx(99, "/div-01/piscine-js", 70_000, old)

	res := Aggregate(Input{
		Projects: []core.Transaction{
			xpTx(1, "/div-01/forum", 30_000, old),
			xpTx(2, "/div-01/graphql", 40_000, recent),
		},
		Checkpoint: &cp,
		Small: []core.Transaction{
			xpTx(3, "/div-01/checkpoint/a", 500, old),
			xpTx(4, "/div-01/checkpoint/b", 700, recent),
		},
	}, now)

	assert.Equal(t, core.Breakdown{Projects: 70_000, Checkpoint: 70_000, Small: 1200}, res.Breakdown)
	assert.Equal(t, core.Breakdown{Projects: 40_000, Small: 700}, res.Breakdown6Month)
	assert.Equal(t, int64(141_200), res.TotalAllTime)
	assert.Equal(t, int64(40_700), res.Total6Month)
	require.NotNil(t, res.Checkpoint)
	assert.Equal(t, int64(99), res.Checkpoint.ID)
}

func TestAggregate_CheckpointInWindowCountsTowardsRecent(t *testing.T) {
	cp := xpTx(1, "/div-01/piscine-js", 70_000, now.AddDate(0, -2, 0))
	res := Aggregate(Input{Checkpoint: &cp}, now)

	assert.Equal(t, int64(70_000), res.Total6Month)
	require.Len(t, res.Cumulative, 1)
	assert.Equal(t, int64(70_000), res.Cumulative[0].Value)
}

func TestAggregate_TrailingSlashSharesBucket(t *testing.T) {
	set := NewProjectPathSet([]core.Progress{{ObjectType: "project", Path: "a/b"}})
	c := Partition([]core.Transaction{
		xpTx(1, "a/b", 100, now),
		xpTx(2, "a/b/", 50, now),
	}, set, DefaultHeuristics())

	res := Aggregate(Input{Projects: c.Projects}, now)

	require.Len(t, res.PerProject, 1)
	assert.Equal(t, core.ProjectBar{Name: "b", Path: "a/b", Value: 150}, res.PerProject[0])
}

func TestAggregate_PerProjectTopTwelve(t *testing.T) {
	var txs []core.Transaction
	for i := 1; i <= 15; i++ {
		txs = append(txs, xpTx(int64(i), fmt.Sprintf("/div-01/project-%02d", i), int64(i*1000), now))
	}
	txs = append(txs, xpTx(100, "/div-01/tie-b", 15_000, now), xpTx(101, "/div-01/tie-a", 15_000, now))

	res := Aggregate(Input{Projects: txs}, now)

	require.Len(t, res.PerProject, core.MaxProjectBars)
	assert.Equal(t, "project 15", res.PerProject[0].Name)
	assert.Equal(t, "tie a", res.PerProject[1].Name)
	assert.Equal(t, "tie b", res.PerProject[2].Name)
	for i := 1; i < len(res.PerProject); i++ {
		assert.GreaterOrEqual(t, res.PerProject[i-1].Value, res.PerProject[i].Value)
	}
}

func TestCumulativeByDay(t *testing.T) {
	day1 := time.Date(2025, 5, 1, 23, 59, 0, 0, time.UTC)
	// 01:00 on May 2nd in UTC+2 is still May 1st UTC.
	tz := time.FixedZone("CEST", 2*60*60)
	sameDay := time.Date(2025, 5, 2, 1, 0, 0, 0, tz)
	day3 := time.Date(2025, 5, 3, 8, 0, 0, 0, time.UTC)

	series := CumulativeByDay([]core.Transaction{
		xpTx(3, "/x", 5, day3),
		xpTx(1, "/x", 10, day1),
		xpTx(2, "/x", 20, sameDay),
	})

	assert.Equal(t, []core.SeriesPoint{
		{Day: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), Value: 30},
		{Day: time.Date(2025, 5, 3, 0, 0, 0, 0, time.UTC), Value: 35},
	}, series)
}

func TestCumulativeByDay_Monotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 25; round++ {
		var txs []core.Transaction
		for i := 0; i < 100; i++ {
			at := now.Add(-time.Duration(rng.Intn(180*24)) * time.Hour)
			txs = append(txs, xpTx(int64(i), "/x", rng.Int63n(5000), at))
		}
		series := CumulativeByDay(txs)
		for i := 1; i < len(series); i++ {
			require.True(t, series[i].Day.After(series[i-1].Day))
			require.GreaterOrEqual(t, series[i].Value, series[i-1].Value)
		}
	}
}

func TestSixMonthsBefore(t *testing.T) {
	cases := []struct {
		now, want time.Time
	}{
		{time.Date(2025, 9, 15, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)},
		{time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), time.Date(2024, 9, 10, 0, 0, 0, 0, time.UTC)},
		// Feb 31 does not exist and rolls over into March.
		{time.Date(2025, 8, 31, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)},
		{time.Date(2024, 8, 31, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, SixMonthsBefore(tc.now), tc.now.String())
	}
}

func TestProjectName(t *testing.T) {
	assert.Equal(t, "make your game", ProjectName("/div-01/make-your-game"))
	assert.Equal(t, "make your game", ProjectName("/div-01/make-your-game/"))
	assert.Equal(t, "unknown", ProjectName(""))
	assert.Equal(t, "solo", ProjectName("solo"))
}

func TestLoadHeuristics(t *testing.T) {
	h, err := LoadHeuristics("")
	require.NoError(t, err)
	assert.Equal(t, DefaultHeuristics(), h)

	dir := t.TempDir()
	path := filepath.Join(dir, "heuristics.yaml")
	require.NoError(t, os.WriteFile(path, []byte("checkpoint_max: 120000\njs_keywords: [\"js-piscine\"]\n"), 0o600))

	h, err = LoadHeuristics(path)
	require.NoError(t, err)
	assert.Equal(t, int64(120_000), h.CheckpointMax)
	assert.Equal(t, []string{"js-piscine"}, h.JSKeywords)
	assert.Equal(t, int64(10_000), h.CheckpointMin, "unset keys keep defaults")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("checkpoint_min: 500\ncheckpoint_max: 100\n"), 0o600))
	_, err = LoadHeuristics(bad)
	assert.ErrorContains(t, err, "invalid checkpoint range")

	_, err = LoadHeuristics(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
