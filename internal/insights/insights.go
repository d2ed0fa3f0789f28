// Package insights turns a frame-data result into ordered coaching advice.
package insights

import (
	"fmt"

	"github.com/pable/fgframes/internal/model"
)

// Messages emitted by Generate. Exported so callers can match on them.
const (
	MsgNoExchanges      = "No valid exchanges detected for frame-data analysis."
	MsgUnsafeAttacks    = "Frequent use of unsafe attacks: more exchanges end minus on block than plus."
	MsgNegativePressure = "Average pressure after blocked attacks is strongly negative."
	MsgDriveImpacts     = "Drive impacts were landed in this match; drill defensive reactions (counter drive impact or back-dash)."
	MsgFasterNormals    = "More attacks end minus than plus; favour faster normals to keep turn order."
	MsgNoWeakness       = "No obvious weakness detected in frame advantage."
)

// Thresholds used by the rules.
const (
	unsafeMinusCount    = 3
	negativePressureAvg = -3.0
)

// Generate evaluates every rule in fixed priority order and returns the
// messages that fired. A nil result or one without windows yields only
// MsgNoExchanges.
func Generate(res *model.Result) []string {
	if res == nil || len(res.Windows) == 0 {
		return []string{MsgNoExchanges}
	}
	s := &res.Summary
	out := make([]string, 0, 4)

	if s.MinusOnBlock > s.PlusOnBlock && s.MinusOnBlock > unsafeMinusCount {
		out = append(out, MsgUnsafeAttacks)
	}
	if s.AvgOnBlock < negativePressureAvg {
		out = append(out, MsgNegativePressure)
	}
	if n := s.PunishableWhiffs(); n > 0 {
		out = append(out, fmt.Sprintf("%d punishable whiffs detected; drill whiff punishes.", n))
	}
	if len(s.DriveImpacts) > 0 {
		out = append(out, MsgDriveImpacts)
	}
	if s.PlusOnBlock < s.MinusOnBlock {
		out = append(out, MsgFasterNormals)
	}

	if len(out) == 0 {
		out = append(out, MsgNoWeakness)
	}
	return out
}
