package report

import "github.com/pable/fgframes/internal/model"

// DefaultDebugFrames is how many leading frames the results document echoes.
const DefaultDebugFrames = 200

// DebugFrame is the per-frame excerpt included for quick inspection.
type DebugFrame struct {
	FrameID  int         `json:"frame_id"`
	P1State  model.State `json:"p1_state"`
	P2State  model.State `json:"p2_state"`
	P1CanAct bool        `json:"p1_can_act"`
	P2CanAct bool        `json:"p2_can_act"`
}

// ResultDocument is the full exported analysis of one match.
type ResultDocument struct {
	FrameData     model.Result  `json:"frame_data"`
	Insights      []string      `json:"insights"`
	Events        []model.Event `json:"events"`
	DebugTimeline []DebugFrame  `json:"debug_timeline"`
}

// NewResultDocument assembles the export document. Only the first
// debugFrames frames are echoed; debugFrames <= 0 uses DefaultDebugFrames.
func NewResultDocument(res model.Result, msgs []string, evs []model.Event, frames []model.FrameSnapshot, debugFrames int) ResultDocument {
	if debugFrames <= 0 {
		debugFrames = DefaultDebugFrames
	}
	if len(frames) < debugFrames {
		debugFrames = len(frames)
	}
	doc := ResultDocument{
		FrameData:     res,
		Insights:      msgs,
		Events:        evs,
		DebugTimeline: make([]DebugFrame, 0, debugFrames),
	}
	if doc.Insights == nil {
		doc.Insights = []string{}
	}
	if doc.Events == nil {
		doc.Events = []model.Event{}
	}
	if doc.FrameData.Windows == nil {
		doc.FrameData.Windows = []model.AttackWindow{}
	}
	for _, f := range frames[:debugFrames] {
		doc.DebugTimeline = append(doc.DebugTimeline, DebugFrame{
			FrameID:  f.FrameID,
			P1State:  f.P1.State,
			P2State:  f.P2.State,
			P1CanAct: f.P1.CanAct,
			P2CanAct: f.P2.CanAct,
		})
	}
	return doc
}
