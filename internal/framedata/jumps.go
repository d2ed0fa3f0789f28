package framedata

import (
	"sort"

	"github.com/pable/fgframes/internal/model"
)

// PunishableJumps finds every maximal run of jump frames per side. The land
// frame is the first frame after the run; the jump is punishable when the
// opponent can act on the land frame or within the following
// JumpPunishWindow-1 frames. Runs still airborne at the end of the timeline
// have no landing and are not reported.
func (e *Engine) PunishableJumps(timeline []model.FrameSnapshot) []model.PunishableJump {
	out := make([]model.PunishableJump, 0)
	for _, side := range model.Sides {
		start := -1
		for i := range timeline {
			airborne := timeline[i].Player(side).State == model.StateJump
			switch {
			case airborne && start < 0:
				start = i
			case !airborne && start >= 0:
				out = append(out, model.PunishableJump{
					Player:     side,
					Start:      timeline[start].FrameID,
					Land:       timeline[i].FrameID,
					Punishable: opponentCanActWithin(timeline, side.Opponent(), i, e.cfg.JumpPunishWindow),
				})
				start = -1
			}
		}
	}

	// Frame order; P1 before P2 on equal starts.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start < out[j].Start
	})
	return out
}
