package xp

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xpdash/internal/core"
)

var base = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func grade(v float64) *float64 { return &v }

func xpTx(id int64, path string, amount int64, at time.Time) core.Transaction {
	return core.Transaction{ID: id, Type: core.TxXP, Path: path, Amount: amount, CreatedAt: at}
}

func TestLatestByObject(t *testing.T) {
	records := []core.Progress{
		{ID: 1, ObjectID: 10, Path: "/p/a", Grade: grade(1), UpdatedAt: base.Add(2 * time.Hour)},
		{ID: 2, ObjectID: 10, Path: "/p/a", Grade: grade(0), UpdatedAt: base.Add(1 * time.Hour)},
		{ID: 3, ObjectID: 20, Path: "/p/b", Grade: grade(0), UpdatedAt: base},
		{ID: 4, ObjectID: 20, Path: "/p/b", Grade: grade(1), UpdatedAt: base.Add(3 * time.Hour)},
		{ID: 5, Path: "/p/c", Grade: grade(1), UpdatedAt: base},
		{ID: 6, Path: "/p/c", Grade: grade(0), UpdatedAt: base},
	}

	latest := LatestByObject(records)

	require.Len(t, latest, 3)
	assert.Equal(t, int64(1), latest["obj:10"].ID)
	assert.Equal(t, int64(4), latest["obj:20"].ID, "newer record replaces the older one")
	assert.Equal(t, int64(5), latest["path:/p/c"].ID, "ties keep the first record seen")
}

func TestCountPassFail(t *testing.T) {
	latest := map[string]core.Progress{
		"a": {Grade: grade(1)},
		"b": {Grade: grade(1.4)},
		"c": {Grade: grade(0)},
		"d": {Grade: nil},
		"e": {Grade: grade(0.5)},
	}
	assert.Equal(t, core.PassFail{Pass: 2, Fail: 1}, CountPassFail(latest))
}

func TestProjectPathSet(t *testing.T) {
	set := NewProjectPathSet([]core.Progress{
		{ObjectType: "project", Path: "/div-01/graphql/"},
		{ObjectType: "project", Path: "/div-01/forum"},
		{ObjectType: "exercise", Path: "/div-01/piscine-js/hello"},
		{ObjectType: "project", Path: ""},
	})

	require.Equal(t, 2, set.Len())
	for _, p := range []string{"/div-01/graphql", "/div-01/graphql/", "/div-01/forum", "/div-01/forum/"} {
		assert.True(t, set.Contains(p), p)
	}
	assert.False(t, set.Contains("/div-01/piscine-js/hello"))
	assert.Equal(t, []string{"/div-01/forum", "/div-01/forum/", "/div-01/graphql", "/div-01/graphql/"}, set.Variants())
}

func TestPartition(t *testing.T) {
	h := DefaultHeuristics()
	set := NewProjectPathSet([]core.Progress{{ObjectType: "project", Path: "/div-01/forum"}})

	txs := []core.Transaction{
		xpTx(1, "/div-01/forum/", 30_000, base),
		xpTx(2, "/div-01/piscine-js", 70_000, base),
		xpTx(3, "/div-01/checkpoint/go-reloaded", 800, base),
		xpTx(4, "/div-01/piscine-js/quest-03/foo", 500, base),
		xpTx(5, "/div-01/unknown-big", 300_000, base),
		xpTx(6, "/div-01/piscine-go", 500_000, base),
		{ID: 7, Type: core.TxUp, Path: "/div-01/forum", Amount: 9000, CreatedAt: base},
		{ID: 8, Type: core.TxXP, Path: "/div-01/exam", ObjectName: "Piscine Exam", Amount: 200, CreatedAt: base},
	}

	c := Partition(txs, set, h)

	assert.Equal(t, []int64{1}, ids(c.Projects))
	assert.Equal(t, []int64{2}, ids(c.Candidates))
	assert.Equal(t, []int64{3}, ids(c.Small))
	assert.Equal(t, []int64{4, 5, 6, 8}, ids(c.Unclassified))
	assert.Equal(t, 7, c.Count(), "non-xp rows are not counted")
}

func TestPartition_ProjectPathVariants(t *testing.T) {
	h := DefaultHeuristics()
	for _, projectPath := range []string{"a/b", "a/b/"} {
		set := NewProjectPathSet([]core.Progress{{ObjectType: "project", Path: projectPath}})
		c := Partition([]core.Transaction{
			xpTx(1, "a/b", 100, base),
			xpTx(2, "a/b/", 50, base),
		}, set, h)
		assert.Len(t, c.Projects, 2, "project path %q", projectPath)
	}
}

func TestPartition_IsExhaustiveAndExclusive(t *testing.T) {
	h := DefaultHeuristics()
	rng := rand.New(rand.NewSource(1))
	paths := []string{
		"/div-01/forum", "/div-01/forum/", "/div-01/piscine-js", "/div-01/piscine-js/quest-01",
		"/div-01/piscine-go/day-1", "/div-01/exam-01", "/div-01/checkpoint", "",
	}
	set := NewProjectPathSet([]core.Progress{{ObjectType: "project", Path: "/div-01/forum"}})
	types := []core.TxType{core.TxXP, core.TxXP, core.TxXP, core.TxUp, core.TxDown}

	for round := 0; round < 50; round++ {
		var txs []core.Transaction
		xpCount := 0
		for i := 0; i < 200; i++ {
			tx := core.Transaction{
				ID:        int64(i + 1),
				Type:      types[rng.Intn(len(types))],
				Path:      paths[rng.Intn(len(paths))],
				Amount:    rng.Int63n(400_000) - 20_000,
				CreatedAt: base.Add(time.Duration(i) * time.Hour),
			}
			if tx.Type == core.TxXP {
				xpCount++
			}
			txs = append(txs, tx)
		}

		c := Partition(txs, set, h)

		require.Equal(t, xpCount, c.Count(), "round %d", round)
		seen := map[int64]string{}
		for name, bucket := range map[string][]core.Transaction{
			"projects": c.Projects, "candidates": c.Candidates, "small": c.Small, "unclassified": c.Unclassified,
		} {
			for _, tx := range bucket {
				prev, dup := seen[tx.ID]
				require.False(t, dup, fmt.Sprintf("tx %d in %s and %s", tx.ID, prev, name))
				seen[tx.ID] = name
			}
		}
	}
}

func ids(txs []core.Transaction) []int64 {
	out := make([]int64, 0, len(txs))
	for _, tx := range txs {
		out = append(out, tx.ID)
	}
	return out
}
