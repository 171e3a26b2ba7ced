package xp

import (
	"sort"

	"xpdash/internal/core"
)

// ProjectPathSet holds normalized project paths.
type ProjectPathSet map[string]struct{}

// NewProjectPathSet collects the paths of project progress records.
func NewProjectPathSet(records []core.Progress) ProjectPathSet {
	set := make(ProjectPathSet)
	for _, r := range records {
		if !r.IsProject() {
			continue
		}
		if p := core.NormalizePath(r.Path); p != "" {
			set[p] = struct{}{}
		}
	}
	return set
}

// Contains matches both the slash-terminated and the bare form of a path.
func (s ProjectPathSet) Contains(path string) bool {
	_, ok := s[core.NormalizePath(path)]
	return ok
}

func (s ProjectPathSet) Len() int { return len(s) }

// Variants returns every path in both textual forms, sorted, for query filters.
func (s ProjectPathSet) Variants() []string {
	out := make([]string, 0, len(s)*2)
	for p := range s {
		out = append(out, p, p+"/")
	}
	sort.Strings(out)
	return out
}

// LatestByObject keeps one record per object: the most recently updated one.
// Records with equal timestamps keep the first one seen.
func LatestByObject(records []core.Progress) map[string]core.Progress {
	latest := make(map[string]core.Progress, len(records))
	for _, r := range records {
		key := r.ObjectKey()
		kept, ok := latest[key]
		if !ok || r.UpdatedAt.After(kept.UpdatedAt) {
			latest[key] = r
		}
	}
	return latest
}

// CountPassFail counts grade >= 1 as pass and grade == 0 as fail. Ungraded
// records and any other value are left out of both counts.
func CountPassFail(latest map[string]core.Progress) core.PassFail {
	var pf core.PassFail
	for _, r := range latest {
		if r.Grade == nil {
			continue
		}
		switch g := *r.Grade; {
		case g >= 1:
			pf.Pass++
		case g == 0:
			pf.Fail++
		}
	}
	return pf
}

// Classification is the outcome of partitioning xp transactions.
type Classification struct {
	Projects     []core.Transaction
	Candidates   []core.Transaction
	Small        []core.Transaction
	Unclassified []core.Transaction
}

// Count returns the number of xp rows seen by Partition.
func (c Classification) Count() int {
	return len(c.Projects) + len(c.Candidates) + len(c.Small) + len(c.Unclassified)
}

// Partition assigns every xp transaction to exactly one bucket. Project
// membership wins over the piscine rules. Rows of other types are skipped.
func Partition(txs []core.Transaction, projects ProjectPathSet, h Heuristics) Classification {
	var c Classification
	for _, tx := range txs {
		if tx.Type != core.TxXP {
			continue
		}
		switch {
		case projects.Contains(tx.Path):
			c.Projects = append(c.Projects, tx)
		case h.isCandidate(tx):
			c.Candidates = append(c.Candidates, tx)
		case h.isSmall(tx):
			c.Small = append(c.Small, tx)
		default:
			c.Unclassified = append(c.Unclassified, tx)
		}
	}
	return c
}

func (h Heuristics) isCandidate(tx core.Transaction) bool {
	return h.isPiscine(tx.Path) && h.inCheckpointRange(tx.Amount)
}

func (h Heuristics) isSmall(tx core.Transaction) bool {
	if h.isPiscine(tx.Path) || h.isPiscine(tx.ObjectName) {
		return false
	}
	return tx.Abs() < h.SmallCeiling
}
