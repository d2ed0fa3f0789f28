package framedata

import (
	"github.com/pable/fgframes/internal/model"
)

type windowKey struct {
	attacker model.Side
	start    int
}

// windowSet is the append-only result set. The key set enforces that no
// two windows share (attacker, start).
type windowSet struct {
	keys    map[windowKey]struct{}
	windows []model.AttackWindow
}

func newWindowSet() *windowSet {
	return &windowSet{
		keys:    make(map[windowKey]struct{}),
		windows: make([]model.AttackWindow, 0),
	}
}

func (s *windowSet) has(attacker model.Side, start int) bool {
	_, ok := s.keys[windowKey{attacker, start}]
	return ok
}

// add appends w unless its key is already present. It reports whether w was added.
func (s *windowSet) add(w model.AttackWindow) bool {
	k := windowKey{w.Attacker, w.Start}
	if _, ok := s.keys[k]; ok {
		return false
	}
	s.keys[k] = struct{}{}
	s.windows = append(s.windows, w)
	return true
}

// openWindow tracks one in-flight attack during the state scan.
// A free frame of -1 means not captured yet.
type openWindow struct {
	start        int
	attackerFree int
	defenderFree int
}

func (w *openWindow) resolved() bool {
	return w.attackerFree >= 0 && w.defenderFree >= 0
}

// scanStates walks the timeline keeping one open-window slot per side.
// A slot opens when its side is attack_active; each frame captures the first
// frame each player can act; the window closes when both are known or, past
// WhiffTimeout, as a whiff. Windows still open when the timeline ends are
// dropped.
func (e *Engine) scanStates(timeline []model.FrameSnapshot) []model.AttackWindow {
	var (
		out   []model.AttackWindow
		slots [2]*openWindow
	)

	for i := range timeline {
		f := &timeline[i]
		for si, side := range model.Sides {
			opp := side.Opponent()

			if slots[si] == nil {
				if f.Player(side).State != model.StateAttackActive {
					continue
				}
				slots[si] = &openWindow{start: f.FrameID, attackerFree: -1, defenderFree: -1}
			}
			w := slots[si]

			// First write wins.
			if w.attackerFree < 0 && f.Player(side).CanAct {
				w.attackerFree = f.FrameID
			}
			if w.defenderFree < 0 && f.Player(opp).CanAct {
				w.defenderFree = f.FrameID
			}

			if w.resolved() {
				out = append(out, model.AttackWindow{
					Attacker:   side,
					Start:      w.start,
					End:        intPtr(f.FrameID),
					OnBlockAdv: w.attackerFree - w.defenderFree,
					Source:     model.SourceState,
				})
				slots[si] = nil
				continue
			}

			if f.FrameID-w.start > e.cfg.WhiffTimeout {
				out = append(out, model.AttackWindow{
					Attacker:   side,
					Start:      w.start,
					End:        intPtr(f.FrameID),
					OnBlockAdv: model.WhiffSentinel,
					Whiff:      true,
					Punishable: opponentCanActWithin(timeline, opp, i, e.cfg.WhiffPunishWindow),
					Source:     model.SourceState,
				})
				slots[si] = nil
			}
		}
	}
	return out
}

// qualifies reports whether an event type opens an event-derived window.
func qualifies(t model.EventType) bool {
	switch t {
	case model.EventHit, model.EventBlock, model.EventAttackStart, model.EventDriveImpact:
		return true
	default:
		return false
	}
}

// scanEvents adds one window per qualifying event key to set. The window is
// resolved by looking ahead EventLookahead frames for both players' first
// actionable frame; when that fails, a heuristic advantage is used instead
// of dropping the event.
func (e *Engine) scanEvents(timeline []model.FrameSnapshot, evs []model.Event, set *windowSet) {
	for _, ev := range evs {
		if !qualifies(ev.Type) || !ev.Attacker.Valid() {
			continue
		}
		if set.has(ev.Attacker, ev.FrameID) {
			continue
		}
		w, ok := e.resolveEvent(timeline, ev)
		if !ok {
			w = model.AttackWindow{
				Attacker:   ev.Attacker,
				Start:      ev.FrameID,
				OnBlockAdv: e.cfg.heuristicAdvantage(ev.Type),
				Source:     model.SourceHeuristic,
			}
		}
		set.add(w)
	}
}

func (e *Engine) resolveEvent(timeline []model.FrameSnapshot, ev model.Event) (model.AttackWindow, bool) {
	if ev.FrameID < 0 || ev.FrameID >= len(timeline) {
		return model.AttackWindow{}, false
	}
	attacker, defender := ev.Attacker, ev.Attacker.Opponent()
	w := openWindow{start: ev.FrameID, attackerFree: -1, defenderFree: -1}

	for i := ev.FrameID; i < len(timeline) && i < ev.FrameID+e.cfg.EventLookahead; i++ {
		f := &timeline[i]
		if w.attackerFree < 0 && f.Player(attacker).CanAct {
			w.attackerFree = f.FrameID
		}
		if w.defenderFree < 0 && f.Player(defender).CanAct {
			w.defenderFree = f.FrameID
		}
		if w.resolved() {
			return model.AttackWindow{
				Attacker:   attacker,
				Start:      ev.FrameID,
				End:        intPtr(f.FrameID),
				OnBlockAdv: w.attackerFree - w.defenderFree,
				Source:     model.SourceEvent,
			}, true
		}
	}
	return model.AttackWindow{}, false
}
