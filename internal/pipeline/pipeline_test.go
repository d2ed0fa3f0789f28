package pipeline

import (
	"reflect"
	"testing"

	"github.com/pable/fgframes/internal/framedata"
	"github.com/pable/fgframes/internal/insights"
	"github.com/pable/fgframes/internal/model"
	"github.com/pable/fgframes/internal/timeline"
)

func TestRun_BlockedString(t *testing.T) {
	id := func(v int) *int { return &v }
	f := func(v bool) *bool { return &v }

	var recs []timeline.Record
	for i := 0; i < 20; i++ {
		r := timeline.Record{FrameID: id(i), P1State: "neutral", P2State: "neutral", LifeP1: 100, LifeP2: 100}
		if i >= 10 && i <= 12 {
			r.P1State = "attack_active"
		}
		switch {
		case i == 10:
			r.P2CanAct = f(false)
		case i >= 11 && i <= 14:
			r.P2State = "block"
		}
		if i >= 11 {
			r.LifeP2 = 90
		}
		recs = append(recs, r)
	}
	tl, err := timeline.FromRecords(recs, 60)
	if err != nil {
		t.Fatalf("build timeline: %v", err)
	}

	a := Run(framedata.NewEngine(framedata.DefaultConfig()), tl)
	if a.Hash != tl.Hash || len(a.Frames) != 20 {
		t.Errorf("analysis lost its input: hash=%s frames=%d", a.Hash, len(a.Frames))
	}
	var found bool
	for _, w := range a.Result.Windows {
		if w.Attacker == model.SideP1 && w.Start == 10 {
			found = true
			if w.OnBlockAdv != -2 {
				t.Errorf("P1@10: want -2, got %d", w.OnBlockAdv)
			}
		}
	}
	if !found {
		t.Fatalf("no P1@10 window in %+v", a.Result.Windows)
	}
	if len(a.Insights) == 0 {
		t.Error("expected insights")
	}

	again := Run(framedata.NewEngine(framedata.DefaultConfig()), tl)
	if !reflect.DeepEqual(a, again) {
		t.Error("second run differs")
	}
}

func TestRun_NoExchanges(t *testing.T) {
	tl, err := timeline.Parse([]byte(`[{"frame_id":0,"p1_state":"neutral","p2_state":"neutral","life_p1":1,"life_p2":1}]`), 60)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	a := Run(framedata.NewEngine(framedata.DefaultConfig()), tl)
	if len(a.Events) != 0 || len(a.Result.Windows) != 0 {
		t.Errorf("expected empty analysis, got %+v", a)
	}
	if !reflect.DeepEqual(a.Insights, []string{insights.MsgNoExchanges}) {
		t.Errorf("insights: %v", a.Insights)
	}
}

func TestAnalysis_Record(t *testing.T) {
	a := &Analysis{
		Hash:   "abc",
		Frames: make([]model.FrameSnapshot, 5),
		Result: model.Result{
			Windows: []model.AttackWindow{{OnBlockAdv: 3}, {OnBlockAdv: model.WhiffSentinel, Whiff: true, Punishable: true}},
			Summary: model.Summary{
				PlusOnBlock:     1,
				AvgOnBlock:      3,
				MedianOnBlock:   3,
				WhiffPunishes:   []model.AttackWindow{{OnBlockAdv: model.WhiffSentinel, Whiff: true, Punishable: true}},
				PunishableJumps: []model.PunishableJump{{Punishable: true}, {}},
				DriveImpacts:    []model.Event{},
			},
		},
	}
	rec := a.Record(Meta{Label: "set 1", P1Name: "ryu main", Source: "file", FPS: 60}, "2026-01-02T03:04:05Z")
	if rec.FrameCount != 5 || rec.WindowCount != 2 {
		t.Errorf("counts: %+v", rec)
	}
	if rec.Whiffs != 1 || rec.WhiffPunishable != 1 || rec.Jumps != 2 || rec.JumpPunishable != 1 {
		t.Errorf("opportunities: %+v", rec)
	}
	if rec.PlayerName(model.SideP2) != "P2" || rec.PlayerName(model.SideP1) != "ryu main" {
		t.Errorf("names: %+v", rec)
	}
}
