package framedata

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/pable/fgframes/internal/events"
	"github.com/pable/fgframes/internal/model"
)

const fullLife = 1000

// makeTimeline returns n frames with both players neutral and able to act.
func makeTimeline(n int) []model.FrameSnapshot {
	tl := make([]model.FrameSnapshot, n)
	for i := range tl {
		tl[i] = model.FrameSnapshot{
			FrameID:   i,
			Timestamp: float64(i) / 60.0,
			P1:        model.PlayerFrame{State: model.StateNeutral, CanAct: true, Life: fullLife},
			P2:        model.PlayerFrame{State: model.StateNeutral, CanAct: true, Life: fullLife},
		}
	}
	return tl
}

// setSide overwrites one side's state and can_act over frames [from, to].
func setSide(tl []model.FrameSnapshot, side model.Side, from, to int, state model.State, canAct bool) {
	for i := from; i <= to && i < len(tl); i++ {
		pf := &tl[i].P1
		if side == model.SideP2 {
			pf = &tl[i].P2
		}
		pf.State = state
		pf.CanAct = canAct
	}
}

func setLife(tl []model.FrameSnapshot, side model.Side, from, life int) {
	for i := from; i < len(tl); i++ {
		if side == model.SideP2 {
			tl[i].P2.Life = life
		} else {
			tl[i].P1.Life = life
		}
	}
}

func findWindow(ws []model.AttackWindow, attacker model.Side, start int) *model.AttackWindow {
	for i := range ws {
		if ws[i].Attacker == attacker && ws[i].Start == start {
			return &ws[i]
		}
	}
	return nil
}

func assertUniqueKeys(t *testing.T, ws []model.AttackWindow) {
	t.Helper()
	seen := make(map[windowKey]bool)
	for _, w := range ws {
		k := windowKey{w.Attacker, w.Start}
		if seen[k] {
			t.Errorf("duplicate window key (%s, %d)", w.Attacker, w.Start)
		}
		seen[k] = true
	}
}

// blockedStringTimeline: P1 attacks at 10, P2 blocks 11-14 and loses 10 life
// at 11. P1 recovers at 13, P2 at 15.
func blockedStringTimeline() []model.FrameSnapshot {
	tl := makeTimeline(30)
	setSide(tl, model.SideP1, 10, 12, model.StateAttackActive, false)
	setSide(tl, model.SideP2, 10, 10, model.StateNeutral, false)
	setSide(tl, model.SideP2, 11, 14, model.StateBlock, false)
	setLife(tl, model.SideP2, 11, fullLife-10)
	return tl
}

func TestAnalyze_BlockedAttackAdvantage(t *testing.T) {
	tl := blockedStringTimeline()
	evs := events.DetectAll(tl)

	var sawStart, sawHit, sawBlock bool
	for _, e := range evs {
		switch {
		case e.Type == model.EventAttackStart && e.FrameID == 10 && e.Attacker == model.SideP1:
			sawStart = true
		case e.Type == model.EventHit && e.FrameID == 11 && e.Attacker == model.SideP1:
			sawHit = true
		case e.Type == model.EventBlock && e.FrameID == 11 && e.Attacker == model.SideP1:
			sawBlock = true
		}
	}
	if !sawStart || !sawHit || !sawBlock {
		t.Fatalf("missing events: attack_start=%v hit=%v block=%v (%v)", sawStart, sawHit, sawBlock, evs)
	}

	res := NewEngine(DefaultConfig()).Analyze(tl, evs)
	w := findWindow(res.Windows, model.SideP1, 10)
	if w == nil {
		t.Fatalf("expected window for P1@10, got %+v", res.Windows)
	}
	if w.OnBlockAdv != -2 {
		t.Errorf("P1@10 on_block_adv: want -2, got %d", w.OnBlockAdv)
	}
	if w.Source != model.SourceState {
		t.Errorf("P1@10 source: want state, got %s", w.Source)
	}
	if w.End == nil || *w.End != 15 {
		t.Errorf("P1@10 end: want 15, got %v", w.End)
	}
	assertUniqueKeys(t, res.Windows)

	// Block at 14: P1 already free at 14, P2 at 15.
	if w14 := findWindow(res.Windows, model.SideP1, 14); w14 == nil || w14.OnBlockAdv != -1 {
		t.Errorf("P1@14: want event window with -1, got %+v", w14)
	}
}

func TestAnalyze_WhiffPunishable(t *testing.T) {
	tl := makeTimeline(50)
	setSide(tl, model.SideP1, 5, 36, model.StateAttackActive, false)
	setSide(tl, model.SideP1, 37, 49, "recovery", false)
	setSide(tl, model.SideP2, 0, 37, "hitstun", false)
	// P2 can act at 38, inside [36, 39].

	res := NewEngine(DefaultConfig()).Analyze(tl, nil)
	w := findWindow(res.Windows, model.SideP1, 5)
	if w == nil {
		t.Fatalf("expected whiff window, got %+v", res.Windows)
	}
	if !w.Whiff || w.OnBlockAdv != model.WhiffSentinel {
		t.Errorf("want whiff with sentinel, got %+v", w)
	}
	if w.End == nil || *w.End != 36 {
		t.Errorf("whiff end: want 36 (31 frames open), got %v", w.End)
	}
	if !w.Punishable {
		t.Error("expected whiff to be punishable (opponent acts at 38)")
	}
	if len(res.Summary.WhiffPunishes) != 1 || res.Summary.PunishableWhiffs() != 1 {
		t.Errorf("summary whiffs: got %+v", res.Summary.WhiffPunishes)
	}
	if res.Summary.AvgOnBlock != 0 || res.Summary.MinusOnBlock != 0 {
		t.Errorf("whiff leaked into aggregates: %+v", res.Summary)
	}
}

func TestAnalyze_WhiffNotPunishable(t *testing.T) {
	tl := makeTimeline(50)
	setSide(tl, model.SideP1, 5, 36, model.StateAttackActive, false)
	setSide(tl, model.SideP1, 37, 49, "recovery", false)
	setSide(tl, model.SideP2, 0, 39, "hitstun", false)
	// P2 first acts at 40, one frame past [36, 39].

	res := NewEngine(DefaultConfig()).Analyze(tl, nil)
	w := findWindow(res.Windows, model.SideP1, 5)
	if w == nil || !w.Whiff {
		t.Fatalf("expected whiff window, got %+v", res.Windows)
	}
	if w.Punishable {
		t.Error("expected whiff not punishable (opponent acts at 40)")
	}
}

func TestAnalyze_ThirtyFramesOpenIsNotWhiff(t *testing.T) {
	tl := makeTimeline(50)
	setSide(tl, model.SideP1, 5, 34, model.StateAttackActive, false)
	setSide(tl, model.SideP2, 0, 34, "hitstun", false)
	// Both free at 35: exactly 30 frames after start.

	res := NewEngine(DefaultConfig()).Analyze(tl, nil)
	w := findWindow(res.Windows, model.SideP1, 5)
	if w == nil {
		t.Fatal("expected a window")
	}
	if w.Whiff || w.OnBlockAdv != 0 {
		t.Errorf("want resolved window with 0, got %+v", w)
	}
}

func TestAnalyze_CustomWhiffTimeout(t *testing.T) {
	tl := makeTimeline(50)
	setSide(tl, model.SideP1, 5, 34, model.StateAttackActive, false)
	setSide(tl, model.SideP2, 0, 34, "hitstun", false)

	cfg := DefaultConfig()
	cfg.WhiffTimeout = 10
	res := NewEngine(cfg).Analyze(tl, nil)
	w := findWindow(res.Windows, model.SideP1, 5)
	if w == nil || !w.Whiff || *w.End != 16 {
		t.Errorf("want whiff closing at 16 with timeout 10, got %+v", w)
	}
}

func TestAnalyze_OpenWindowAtEndIsDropped(t *testing.T) {
	tl := makeTimeline(20)
	setSide(tl, model.SideP1, 5, 19, model.StateAttackActive, false)
	setSide(tl, model.SideP2, 0, 19, "hitstun", false)

	res := NewEngine(DefaultConfig()).Analyze(tl, nil)
	if len(res.Windows) != 0 {
		t.Errorf("expected unresolved window to be dropped, got %+v", res.Windows)
	}
}

func TestAnalyze_HeuristicFallbacks(t *testing.T) {
	tl := makeTimeline(100)
	setSide(tl, model.SideP1, 0, 99, "hitstun", false)
	setSide(tl, model.SideP2, 0, 99, "hitstun", false)

	evs := []model.Event{
		{Type: model.EventHit, FrameID: 3, Attacker: model.SideP1, Defender: model.SideP2},
		{Type: model.EventBlock, FrameID: 4, Attacker: model.SideP2, Defender: model.SideP1},
		{Type: model.EventDriveImpact, FrameID: 5, Attacker: model.SideP1, Defender: model.SideP2},
		{Type: model.EventAttackStart, FrameID: 6, Attacker: model.SideP2},
		{Type: model.EventJumpStart, FrameID: 7, Attacker: model.SideP1},
		{Type: model.EventHit, FrameID: 500, Attacker: model.SideP2, Defender: model.SideP1},
	}
	res := NewEngine(DefaultConfig()).Analyze(tl, evs)

	cases := []struct {
		attacker model.Side
		start    int
		want     int
	}{
		{model.SideP1, 3, 10},
		{model.SideP2, 4, 2},
		{model.SideP1, 5, 0},
		{model.SideP2, 6, 0},
		{model.SideP2, 500, 10},
	}
	if len(res.Windows) != len(cases) {
		t.Fatalf("expected %d windows (jump_start does not qualify), got %+v", len(cases), res.Windows)
	}
	for _, c := range cases {
		w := findWindow(res.Windows, c.attacker, c.start)
		if w == nil {
			t.Errorf("missing window %s@%d", c.attacker, c.start)
			continue
		}
		if w.OnBlockAdv != c.want || w.Source != model.SourceHeuristic || w.End != nil {
			t.Errorf("%s@%d: want heuristic %d without end, got %+v", c.attacker, c.start, c.want, w)
		}
	}
}

func TestAnalyze_EventLookaheadBoundary(t *testing.T) {
	hit := []model.Event{{Type: model.EventHit, FrameID: 0, Attacker: model.SideP1, Defender: model.SideP2}}

	within := makeTimeline(100)
	setSide(within, model.SideP1, 0, 58, "recovery", false)
	res := NewEngine(DefaultConfig()).Analyze(within, hit)
	if w := findWindow(res.Windows, model.SideP1, 0); w == nil || w.Source != model.SourceEvent || w.OnBlockAdv != 59 {
		t.Errorf("attacker free at 59: want resolved +59, got %+v", w)
	}

	beyond := makeTimeline(100)
	setSide(beyond, model.SideP1, 0, 59, "recovery", false)
	res = NewEngine(DefaultConfig()).Analyze(beyond, hit)
	if w := findWindow(res.Windows, model.SideP1, 0); w == nil || w.Source != model.SourceHeuristic || w.OnBlockAdv != 10 {
		t.Errorf("attacker free at 60: want heuristic +10, got %+v", w)
	}
}

func TestAnalyze_DedupesEventsSharingKey(t *testing.T) {
	tl := makeTimeline(20)
	evs := []model.Event{
		{Type: model.EventBlock, FrameID: 4, Attacker: model.SideP1, Defender: model.SideP2},
		{Type: model.EventHit, FrameID: 4, Attacker: model.SideP1, Defender: model.SideP2},
		{Type: model.EventHit, FrameID: 4, Attacker: model.SideP2, Defender: model.SideP1},
	}
	res := NewEngine(DefaultConfig()).Analyze(tl, evs)
	if len(res.Windows) != 2 {
		t.Fatalf("expected one window per (attacker, start), got %+v", res.Windows)
	}
	assertUniqueKeys(t, res.Windows)
}

func TestAnalyze_BothSidesTrackedIndependently(t *testing.T) {
	tl := makeTimeline(40)
	setSide(tl, model.SideP1, 2, 6, model.StateAttackActive, false)
	setSide(tl, model.SideP2, 2, 3, "hitstun", false)
	setSide(tl, model.SideP2, 4, 9, model.StateAttackActive, false)
	setSide(tl, model.SideP1, 7, 11, "hitstun", false)

	res := NewEngine(DefaultConfig()).Analyze(tl, nil)
	p1 := findWindow(res.Windows, model.SideP1, 2)
	p2 := findWindow(res.Windows, model.SideP2, 4)
	if p1 == nil || p2 == nil {
		t.Fatalf("expected a window per side, got %+v", res.Windows)
	}
	// P1 free at 12, P2 free at 10 inside P1's window (first capture wins).
	if p1.OnBlockAdv != 2 {
		t.Errorf("P1@2: want +2, got %d", p1.OnBlockAdv)
	}
	// P2 free at 10, P1 free at 12.
	if p2.OnBlockAdv != -2 {
		t.Errorf("P2@4: want -2, got %d", p2.OnBlockAdv)
	}
}

func TestAnalyze_EmptyInput(t *testing.T) {
	res := NewEngine(DefaultConfig()).Analyze(nil, nil)
	if len(res.Windows) != 0 {
		t.Errorf("expected no windows, got %+v", res.Windows)
	}
	s := res.Summary
	if s.PlusOnBlock != 0 || s.MinusOnBlock != 0 || s.AvgOnBlock != 0 {
		t.Errorf("expected zero summary, got %+v", s)
	}
	if s.PunishableJumps == nil || s.DriveImpacts == nil || s.WhiffPunishes == nil {
		t.Error("summary lists should be empty, not nil")
	}
}

func TestAnalyze_Idempotent(t *testing.T) {
	tl := blockedStringTimeline()
	setSide(tl, model.SideP2, 20, 23, model.StateJump, false)
	evs := events.DetectAll(tl)
	eng := NewEngine(DefaultConfig())

	a, err := json.Marshal(eng.Analyze(tl, evs))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	b, _ := json.Marshal(eng.Analyze(tl, evs))
	if string(a) != string(b) {
		t.Errorf("re-running the engine changed output:\n%s\n%s", a, b)
	}
}

func TestSummarize_ExcludesWhiffSentinel(t *testing.T) {
	windows := []model.AttackWindow{
		{Attacker: model.SideP1, Start: 1, OnBlockAdv: 5},
		{Attacker: model.SideP1, Start: 2, OnBlockAdv: -3},
		{Attacker: model.SideP2, Start: 3, OnBlockAdv: 2},
		{Attacker: model.SideP2, Start: 4, OnBlockAdv: model.WhiffSentinel, Whiff: true},
	}
	s := summarize(windows, nil, nil)
	if math.Abs(s.AvgOnBlock-4.0/3.0) > 1e-9 {
		t.Errorf("avg_on_block: want 4/3, got %f", s.AvgOnBlock)
	}
	if s.PlusOnBlock != 2 || s.MinusOnBlock != 1 {
		t.Errorf("plus/minus: want 2/1, got %d/%d", s.PlusOnBlock, s.MinusOnBlock)
	}
	if s.MedianOnBlock != 2 {
		t.Errorf("median_on_block: want 2, got %f", s.MedianOnBlock)
	}
	if len(s.WhiffPunishes) != 1 {
		t.Errorf("expected 1 whiff, got %d", len(s.WhiffPunishes))
	}
}

func TestSummarize_ZeroAdvantageIsNeitherPlusNorMinus(t *testing.T) {
	s := summarize([]model.AttackWindow{{OnBlockAdv: 0}, {OnBlockAdv: 0}}, nil, nil)
	if s.PlusOnBlock != 0 || s.MinusOnBlock != 0 || s.AvgOnBlock != 0 {
		t.Errorf("got %+v", s)
	}
}

func TestSummarize_CollectsDriveImpacts(t *testing.T) {
	evs := []model.Event{
		{Type: model.EventHit, FrameID: 2, Attacker: model.SideP1},
		{Type: model.EventDriveImpact, FrameID: 2, Attacker: model.SideP1, Defender: model.SideP2},
	}
	s := summarize(nil, nil, evs)
	if len(s.DriveImpacts) != 1 || s.DriveImpacts[0].FrameID != 2 {
		t.Errorf("drive impacts: got %+v", s.DriveImpacts)
	}
}

func TestNewEngine_FillsDefaults(t *testing.T) {
	cfg := NewEngine(Config{HitAdvantage: 7}).Config()
	if cfg.WhiffTimeout != 30 || cfg.EventLookahead != 60 || cfg.WhiffPunishWindow != 4 || cfg.JumpPunishWindow != 3 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.HitAdvantage != 7 {
		t.Errorf("explicit hit advantage overwritten: %d", cfg.HitAdvantage)
	}
}
