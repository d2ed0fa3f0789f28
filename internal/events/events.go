// Package events diffs consecutive frame snapshots into discrete gameplay
// events. Every function here is pure.
package events

import "github.com/pable/fgframes/internal/model"

// Detect compares cur against prev and returns the events of that
// transition. A nil prev (first frame) yields no events.
//
// The checks are independent and run in a fixed order: attack starts,
// blocks, hits, then the hit-scoped jump and drive checks. Jump transitions
// are only reported when the same transition also produced a hit.
func Detect(cur model.FrameSnapshot, prev *model.FrameSnapshot) []model.Event {
	if prev == nil {
		return nil
	}

	var out []model.Event
	for _, side := range model.Sides {
		if attackStarted(cur, *prev, side) {
			out = append(out, model.Event{Type: model.EventAttackStart, FrameID: cur.FrameID, Attacker: side})
		}
	}

	// Blocks are level-triggered: one event per frame the defender holds block.
	for _, defender := range []model.Side{model.SideP2, model.SideP1} {
		if cur.Player(defender).State == model.StateBlock {
			out = append(out, model.Event{
				Type: model.EventBlock, FrameID: cur.FrameID,
				Attacker: defender.Opponent(), Defender: defender,
			})
		}
	}

	hit := false
	for _, defender := range []model.Side{model.SideP2, model.SideP1} {
		if lostLife(cur, *prev, defender) {
			hit = true
			out = append(out, model.Event{
				Type: model.EventHit, FrameID: cur.FrameID,
				Attacker: defender.Opponent(), Defender: defender,
			})
		}
	}
	if !hit {
		return out
	}

	for _, side := range model.Sides {
		switch {
		case jumpStarted(cur, *prev, side):
			out = append(out, model.Event{Type: model.EventJumpStart, FrameID: cur.FrameID, Attacker: side})
		case jumpLanded(cur, *prev, side):
			out = append(out, model.Event{Type: model.EventJumpLand, FrameID: cur.FrameID, Attacker: side})
		}
	}

	for _, defender := range []model.Side{model.SideP2, model.SideP1} {
		if driveImpact(cur, *prev, defender) {
			out = append(out, model.Event{
				Type: model.EventDriveImpact, FrameID: cur.FrameID,
				Attacker: defender.Opponent(), Defender: defender,
			})
		}
	}
	return out
}

// DetectAll runs Detect over every consecutive pair of the timeline and
// concatenates the results in frame order.
func DetectAll(timeline []model.FrameSnapshot) []model.Event {
	var out []model.Event
	for i := 1; i < len(timeline); i++ {
		out = append(out, Detect(timeline[i], &timeline[i-1])...)
	}
	return out
}

func attackStarted(cur, prev model.FrameSnapshot, side model.Side) bool {
	return prev.Player(side).State != model.StateAttackActive &&
		cur.Player(side).State == model.StateAttackActive
}

func lostLife(cur, prev model.FrameSnapshot, side model.Side) bool {
	return cur.Player(side).Life < prev.Player(side).Life
}

func jumpStarted(cur, prev model.FrameSnapshot, side model.Side) bool {
	return prev.Player(side).State != model.StateJump && cur.Player(side).State == model.StateJump
}

func jumpLanded(cur, prev model.FrameSnapshot, side model.Side) bool {
	return prev.Player(side).State == model.StateJump && cur.Player(side).State != model.StateJump
}

// driveImpact attributes a life loss of defender to an opponent who was in
// drive on the previous frame.
func driveImpact(cur, prev model.FrameSnapshot, defender model.Side) bool {
	return lostLife(cur, prev, defender) && prev.Player(defender.Opponent()).State == model.StateDrive
}
