// Package xp classifies platform transactions and aggregates them into XP totals.
//
// The platform exposes no category field, so attribution relies on path and
// label heuristics. Every tunable lives in Heuristics.
package xp

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Heuristics holds the keyword lists and amount thresholds used to classify
// transactions. The numeric boundaries were derived from observed data.
type Heuristics struct {
	PiscineKeywords []string `yaml:"piscine_keywords"`
	QuestKeywords   []string `yaml:"quest_keywords"`
	JSKeywords      []string `yaml:"js_keywords"`

	// Inclusive range for a checkpoint bonus candidate.
	CheckpointMin int64 `yaml:"checkpoint_min"`
	CheckpointMax int64 `yaml:"checkpoint_max"`

	// Small transactions have |amount| strictly below this.
	SmallCeiling int64 `yaml:"small_ceiling"`
}

func DefaultHeuristics() Heuristics {
	return Heuristics{
		PiscineKeywords: []string{"piscine"},
		QuestKeywords:   []string{"quest"},
		JSKeywords:      []string{"piscine-js", "piscinejs", "piscine_js", "piscine js"},
		CheckpointMin:   10_000,
		CheckpointMax:   200_000,
		SmallCeiling:    10_000,
	}
}

// LoadHeuristics reads a YAML file over the defaults. Keys absent from the
// file keep their default value. An empty path returns the defaults.
func LoadHeuristics(path string) (Heuristics, error) {
	h := DefaultHeuristics()
	if path == "" {
		return h, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return h, fmt.Errorf("read heuristics %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &h); err != nil {
		return h, fmt.Errorf("parse heuristics %s: %w", path, err)
	}
	if err := h.Validate(); err != nil {
		return h, fmt.Errorf("heuristics %s: %w", path, err)
	}
	return h, nil
}

func (h Heuristics) Validate() error {
	var errs []error
	if len(h.PiscineKeywords) == 0 {
		errs = append(errs, errors.New("piscine_keywords must not be empty"))
	}
	if len(h.JSKeywords) == 0 {
		errs = append(errs, errors.New("js_keywords must not be empty"))
	}
	if h.CheckpointMin < 0 || h.CheckpointMax < h.CheckpointMin {
		errs = append(errs, fmt.Errorf("invalid checkpoint range [%d, %d]", h.CheckpointMin, h.CheckpointMax))
	}
	if h.SmallCeiling <= 0 {
		errs = append(errs, fmt.Errorf("small_ceiling must be positive, got %d", h.SmallCeiling))
	}
	return errors.Join(errs...)
}

func (h Heuristics) isPiscine(s string) bool { return containsAny(s, h.PiscineKeywords) }
func (h Heuristics) isQuest(s string) bool   { return containsAny(s, h.QuestKeywords) }
func (h Heuristics) isJS(s string) bool      { return containsAny(s, h.JSKeywords) }

func (h Heuristics) inCheckpointRange(amount int64) bool {
	return amount >= h.CheckpointMin && amount <= h.CheckpointMax
}

// containsAny is a case-insensitive substring match.
func containsAny(s string, keywords []string) bool {
	if s == "" {
		return false
	}
	s = strings.ToLower(s)
	for _, k := range keywords {
		if k != "" && strings.Contains(s, strings.ToLower(k)) {
			return true
		}
	}
	return false
}
