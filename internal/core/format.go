// Package core holds the domain types shared by the pipeline and its adapters.
//
// This file contains the display helpers used by the dashboard and the CLI.
package core

import (
	"fmt"
	"math"
	"strconv"
)

// FormatXP renders an amount with decimal byte units, the way the platform shows XP.
//
// Examples:
//
//	FormatXP(512)     -> "512 B"
//	FormatXP(12_400)  -> "12 kB"
//	FormatXP(1_250_000) -> "1.25 MB"
//
// Kilobyte values round half up on the signed amount, so -1500 renders as
// "-1 kB" while 1500 renders as "2 kB".
func FormatXP(amount int64) string {
	v := float64(amount)
	switch {
	case math.Abs(v) >= 1e6:
		return fmt.Sprintf("%.2f MB", v/1e6)
	case math.Abs(v) >= 1e3:
		return strconv.FormatInt(int64(math.Floor(v/1e3+0.5)), 10) + " kB"
	default:
		return strconv.FormatInt(amount, 10) + " B"
	}
}

// FormatRatio renders an audit ratio with two decimals, or "—" when undefined.
func FormatRatio(a AuditSummary) string {
	if !a.HasRatio {
		return "—"
	}
	return strconv.FormatFloat(a.Ratio, 'f', 2, 64)
}
