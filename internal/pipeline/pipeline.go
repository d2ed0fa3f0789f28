// Package pipeline chains event detection, the frame-data engine and the
// insight generator over one timeline.
package pipeline

import (
	"github.com/pable/fgframes/internal/events"
	"github.com/pable/fgframes/internal/framedata"
	"github.com/pable/fgframes/internal/insights"
	"github.com/pable/fgframes/internal/model"
	"github.com/pable/fgframes/internal/timeline"
)

// Analysis bundles everything derived from one timeline.
type Analysis struct {
	Hash     string
	Frames   []model.FrameSnapshot
	Events   []model.Event
	Result   model.Result
	Insights []string
}

// Run analyzes tl with eng. It never fails; empty timelines produce empty
// results and the no-exchanges insight.
func Run(eng *framedata.Engine, tl *timeline.Timeline) *Analysis {
	evs := events.DetectAll(tl.Frames)
	res := eng.Analyze(tl.Frames, evs)
	return &Analysis{
		Hash:     tl.Hash,
		Frames:   tl.Frames,
		Events:   evs,
		Result:   res,
		Insights: insights.Generate(&res),
	}
}

// Meta describes where a timeline came from and who played it.
type Meta struct {
	Label  string
	P1Name string
	P2Name string
	Source string
	FPS    float64
}

// Record flattens the analysis into the stored summary row. analyzedAt is
// an RFC3339 timestamp.
func (a *Analysis) Record(meta Meta, analyzedAt string) model.AnalysisRecord {
	s := &a.Result.Summary
	return model.AnalysisRecord{
		Hash:            a.Hash,
		Label:           meta.Label,
		P1Name:          meta.P1Name,
		P2Name:          meta.P2Name,
		Source:          meta.Source,
		FrameCount:      len(a.Frames),
		FPS:             meta.FPS,
		AnalyzedAt:      analyzedAt,
		WindowCount:     len(a.Result.Windows),
		PlusOnBlock:     s.PlusOnBlock,
		MinusOnBlock:    s.MinusOnBlock,
		AvgOnBlock:      s.AvgOnBlock,
		MedianOnBlock:   s.MedianOnBlock,
		Whiffs:          len(s.WhiffPunishes),
		WhiffPunishable: s.PunishableWhiffs(),
		Jumps:           len(s.PunishableJumps),
		JumpPunishable:  s.PunishableJumpCount(),
		DriveImpacts:    len(s.DriveImpacts),
	}
}
