// Package framedata builds attack windows from a frame timeline and its
// events, computes on-block advantage, whiffs and punishable jumps, and
// aggregates them into a summary.
package framedata

import (
	"github.com/pable/fgframes/internal/model"
)

// Config holds the engine's frame-count thresholds and fallback advantages.
type Config struct {
	// WhiffTimeout is how many frames a state-scanned window may stay open
	// before it is closed as a whiff.
	WhiffTimeout int `json:"whiff_timeout" yaml:"whiff_timeout"`
	// EventLookahead bounds the forward scan used to resolve event windows.
	EventLookahead int `json:"event_lookahead" yaml:"event_lookahead"`
	// WhiffPunishWindow is the number of frames, starting at the whiff close
	// frame, in which an actionable opponent makes the whiff punishable.
	WhiffPunishWindow int `json:"whiff_punish_window" yaml:"whiff_punish_window"`
	// JumpPunishWindow is the same for jump landings, starting at the land frame.
	JumpPunishWindow int `json:"jump_punish_window" yaml:"jump_punish_window"`

	// Advantages assumed for event windows that never resolve.
	HitAdvantage         int `json:"hit_advantage" yaml:"hit_advantage"`
	BlockAdvantage       int `json:"block_advantage" yaml:"block_advantage"`
	DriveImpactAdvantage int `json:"drive_impact_advantage" yaml:"drive_impact_advantage"`
	OtherAdvantage       int `json:"other_advantage" yaml:"other_advantage"`
}

// DefaultConfig returns the thresholds the analyzer was calibrated with.
func DefaultConfig() Config {
	return Config{
		WhiffTimeout:         30,
		EventLookahead:       60,
		WhiffPunishWindow:    4,
		JumpPunishWindow:     3,
		HitAdvantage:         10,
		BlockAdvantage:       2,
		DriveImpactAdvantage: 0,
		OtherAdvantage:       0,
	}
}

// heuristicAdvantage returns the fallback advantage for an unresolved event.
func (c Config) heuristicAdvantage(t model.EventType) int {
	switch t {
	case model.EventHit:
		return c.HitAdvantage
	case model.EventBlock:
		return c.BlockAdvantage
	case model.EventDriveImpact:
		return c.DriveImpactAdvantage
	default:
		return c.OtherAdvantage
	}
}

// Engine runs the window/advantage analysis. It holds no per-run state and
// is safe to share between goroutines once constructed.
type Engine struct {
	cfg Config
}

// NewEngine returns an engine using cfg. Non-positive frame counts fall
// back to their defaults.
func NewEngine(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.WhiffTimeout <= 0 {
		cfg.WhiffTimeout = def.WhiffTimeout
	}
	if cfg.EventLookahead <= 0 {
		cfg.EventLookahead = def.EventLookahead
	}
	if cfg.WhiffPunishWindow <= 0 {
		cfg.WhiffPunishWindow = def.WhiffPunishWindow
	}
	if cfg.JumpPunishWindow <= 0 {
		cfg.JumpPunishWindow = def.JumpPunishWindow
	}
	return &Engine{cfg: cfg}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Analyze computes attack windows and the summary for a timeline and the
// events detected on it. The timeline must be indexed by frame id.
//
// Windows are written in two stages into one append-only set: first the
// state scan, then the event-derived pass. A window whose (attacker, start)
// is already present is skipped.
func (e *Engine) Analyze(timeline []model.FrameSnapshot, evs []model.Event) model.Result {
	set := newWindowSet()

	// ---- Stage 1: state scan. ----
	for _, w := range e.scanStates(timeline) {
		set.add(w)
	}

	// ---- Stage 2: event-derived windows. ----
	e.scanEvents(timeline, evs, set)

	jumps := e.PunishableJumps(timeline)
	return model.Result{
		Windows: set.windows,
		Summary: summarize(set.windows, jumps, evs),
	}
}

// opponentCanActWithin reports whether side can act on any of the n frames
// starting at from. Frames past the end of the timeline are ignored.
func opponentCanActWithin(timeline []model.FrameSnapshot, side model.Side, from, n int) bool {
	if from < 0 {
		return false
	}
	for i := from; i < from+n && i < len(timeline); i++ {
		if timeline[i].Player(side).CanAct {
			return true
		}
	}
	return false
}

func intPtr(v int) *int {
	return &v
}
