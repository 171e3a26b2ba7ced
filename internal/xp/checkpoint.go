package xp

import (
	"sort"
	"time"

	"xpdash/internal/core"
)

// PickCheckpoint selects the transaction most likely to be the piscine
// completion bonus. Quest rewards are dropped and only JS-track candidates
// are considered. Candidates inside [windowStart, windowEnd] are preferred.
// When none fall inside, the window is ignored. The winner has the largest
// magnitude, then the latest timestamp, then the highest id.
func PickCheckpoint(candidates []core.Transaction, windowStart, windowEnd time.Time, h Heuristics) (core.Transaction, bool) {
	var primary, fallback []core.Transaction
	for _, tx := range candidates {
		if h.isQuest(tx.Path) || h.isQuest(tx.ObjectName) {
			continue
		}
		if !h.isJS(tx.Path) && !h.isJS(tx.ObjectName) {
			continue
		}
		fallback = append(fallback, tx)
		if inWindow(tx.CreatedAt, windowStart, windowEnd) {
			primary = append(primary, tx)
		}
	}

	pool := primary
	if len(pool) == 0 {
		pool = fallback
	}
	if len(pool) == 0 {
		return core.Transaction{}, false
	}

	sort.SliceStable(pool, func(i, j int) bool {
		a, b := pool[i], pool[j]
		if a.Abs() != b.Abs() {
			return a.Abs() > b.Abs()
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	return pool[0], true
}

// inWindow is inclusive on both ends. A zero window contains nothing.
func inWindow(t, start, end time.Time) bool {
	if start.IsZero() || end.IsZero() {
		return false
	}
	return !t.Before(start) && !t.After(end)
}

// ProjectWindow returns the span covered by the given transactions.
func ProjectWindow(txs []core.Transaction) (start, end time.Time, ok bool) {
	for i, tx := range txs {
		if i == 0 || tx.CreatedAt.Before(start) {
			start = tx.CreatedAt
		}
		if i == 0 || tx.CreatedAt.After(end) {
			end = tx.CreatedAt
		}
	}
	return start, end, len(txs) > 0
}
