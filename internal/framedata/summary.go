package framedata

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/pable/fgframes/internal/model"
)

// summarize rolls windows, jumps and events up into a Summary. Whiff
// windows never contribute to the advantage statistics.
func summarize(windows []model.AttackWindow, jumps []model.PunishableJump, evs []model.Event) model.Summary {
	s := model.Summary{
		PunishableJumps: jumps,
		DriveImpacts:    make([]model.Event, 0),
		WhiffPunishes:   make([]model.AttackWindow, 0),
	}
	if s.PunishableJumps == nil {
		s.PunishableJumps = make([]model.PunishableJump, 0)
	}

	var advs []float64
	for _, w := range windows {
		if w.IsWhiff() {
			s.WhiffPunishes = append(s.WhiffPunishes, w)
			continue
		}
		switch {
		case w.OnBlockAdv > 0:
			s.PlusOnBlock++
		case w.OnBlockAdv < 0:
			s.MinusOnBlock++
		}
		advs = append(advs, float64(w.OnBlockAdv))
	}

	if len(advs) > 0 {
		s.AvgOnBlock = stat.Mean(advs, nil)
		sorted := append([]float64(nil), advs...)
		sort.Float64s(sorted)
		s.MedianOnBlock = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	}

	for _, ev := range evs {
		if ev.Type == model.EventDriveImpact {
			s.DriveImpacts = append(s.DriveImpacts, ev)
		}
	}
	return s
}
