package model

// Side identifies one of the two players.
type Side string

const (
	SideP1 Side = "P1"
	SideP2 Side = "P2"
)

// Sides lists both players in evaluation order.
var Sides = [2]Side{SideP1, SideP2}

// Opponent returns the other side. An unknown side maps to itself.
func (s Side) Opponent() Side {
	switch s {
	case SideP1:
		return SideP2
	case SideP2:
		return SideP1
	default:
		return s
	}
}

func (s Side) Valid() bool {
	return s == SideP1 || s == SideP2
}

// State is the per-frame classification of a character. The set is open:
// labels outside the constants below are carried verbatim and treated as
// neutral-like by the analysis.
type State string

const (
	StateNeutral      State = "neutral"
	StateAttackActive State = "attack_active"
	StateBlock        State = "block"
	StateJump         State = "jump"
	StateDrive        State = "drive"
)

// DefaultCanAct derives the action-capability flag from a state label when
// the upstream classifier did not provide one.
func DefaultCanAct(s State) bool {
	return s == StateNeutral
}

// ---- Timeline ----

// PlayerFrame is one side's symbolic state in a single frame.
type PlayerFrame struct {
	State  State  `json:"state"`
	CanAct bool   `json:"can_act"`
	Life   int    `json:"life"`
	Action string `json:"action,omitempty"`
}

// FrameSnapshot is the immutable record of one frame. FrameID doubles as
// the index into the timeline slice.
type FrameSnapshot struct {
	FrameID   int         `json:"frame_id"`
	Timestamp float64     `json:"timestamp"`
	P1        PlayerFrame `json:"p1"`
	P2        PlayerFrame `json:"p2"`
}

// Player returns the frame data for the given side.
func (f *FrameSnapshot) Player(side Side) PlayerFrame {
	if side == SideP2 {
		return f.P2
	}
	return f.P1
}

// ---- Events ----

// EventType enumerates discrete gameplay events.
type EventType string

const (
	EventAttackStart EventType = "attack_start"
	EventBlock       EventType = "block"
	EventHit         EventType = "hit"
	EventJumpStart   EventType = "jump_start"
	EventJumpLand    EventType = "jump_land"
	EventDriveImpact EventType = "drive_impact"
)

// Event is a discrete occurrence detected between two consecutive frames.
// Attacker and Defender are empty when not applicable.
type Event struct {
	Type     EventType `json:"type"`
	FrameID  int       `json:"frame_id"`
	Attacker Side      `json:"attacker,omitempty"`
	Defender Side      `json:"defender,omitempty"`
}

// ---- Frame data ----

// WhiffSentinel marks an attack window that never resolved. It is not a
// real advantage value and must never be averaged.
const WhiffSentinel = -999

// WindowSource records which analysis stage produced a window.
type WindowSource string

const (
	SourceState     WindowSource = "state"
	SourceEvent     WindowSource = "event"
	SourceHeuristic WindowSource = "heuristic"
)

// AttackWindow is the span between an attack starting and both players
// regaining control. OnBlockAdv > 0 favours the attacker.
type AttackWindow struct {
	Attacker   Side         `json:"attacker"`
	Start      int          `json:"start"`
	End        *int         `json:"end,omitempty"`
	OnBlockAdv int          `json:"on_block_adv"`
	Whiff      bool         `json:"whiff,omitempty"`
	Punishable bool         `json:"punishable,omitempty"`
	Source     WindowSource `json:"source,omitempty"`
}

// IsWhiff reports whether the window carries the whiff sentinel.
func (w *AttackWindow) IsWhiff() bool {
	return w.Whiff || w.OnBlockAdv == WhiffSentinel
}

// PunishableJump is one jump-then-land sequence of a player.
type PunishableJump struct {
	Player     Side `json:"player"`
	Start      int  `json:"start"`
	Land       int  `json:"land"`
	Punishable bool `json:"punishable"`
}

// Summary aggregates the non-whiff windows plus the opportunity lists.
type Summary struct {
	PlusOnBlock     int              `json:"plus_on_block"`
	MinusOnBlock    int              `json:"minus_on_block"`
	AvgOnBlock      float64          `json:"avg_on_block"`
	MedianOnBlock   float64          `json:"median_on_block"`
	PunishableJumps []PunishableJump `json:"punishable_jumps"`
	DriveImpacts    []Event          `json:"drive_impacts"`
	WhiffPunishes   []AttackWindow   `json:"whiff_punishes"`
}

// PunishableWhiffs counts whiff windows the opponent could have punished.
func (s *Summary) PunishableWhiffs() int {
	n := 0
	for _, w := range s.WhiffPunishes {
		if w.Punishable {
			n++
		}
	}
	return n
}

// PunishableJumpCount counts jumps that landed into an actionable opponent.
func (s *Summary) PunishableJumpCount() int {
	n := 0
	for _, j := range s.PunishableJumps {
		if j.Punishable {
			n++
		}
	}
	return n
}

// Result is the output of the window/advantage engine.
type Result struct {
	Windows []AttackWindow `json:"windows"`
	Summary Summary        `json:"summary"`
}

// ---- Stored records ----

// AnalysisRecord is a lightweight record for list/show commands.
type AnalysisRecord struct {
	Hash        string  `json:"hash"`
	Label       string  `json:"label"`
	P1Name      string  `json:"p1_name"`
	P2Name      string  `json:"p2_name"`
	Source      string  `json:"source"` // "file", "kafka", "http"
	FrameCount  int     `json:"frame_count"`
	FPS         float64 `json:"fps"`
	AnalyzedAt  string  `json:"analyzed_at"` // RFC3339
	WindowCount int     `json:"window_count"`

	PlusOnBlock     int     `json:"plus_on_block"`
	MinusOnBlock    int     `json:"minus_on_block"`
	AvgOnBlock      float64 `json:"avg_on_block"`
	MedianOnBlock   float64 `json:"median_on_block"`
	Whiffs          int     `json:"whiffs"`
	WhiffPunishable int     `json:"whiff_punishable"`
	Jumps           int     `json:"jumps"`
	JumpPunishable  int     `json:"jump_punishable"`
	DriveImpacts    int     `json:"drive_impacts"`
}

// ShortHash returns the first 12 characters of the hash.
func (r *AnalysisRecord) ShortHash() string {
	if len(r.Hash) <= 12 {
		return r.Hash
	}
	return r.Hash[:12]
}

// PlayerName returns the display name for a side, falling back to the side id.
func (r *AnalysisRecord) PlayerName(side Side) string {
	name := r.P1Name
	if side == SideP2 {
		name = r.P2Name
	}
	if name == "" {
		return string(side)
	}
	return name
}

// DBOverview holds high-level counts across all stored analyses.
type DBOverview struct {
	TotalAnalyses int
	TotalFrames   int
	TotalWindows  int
	TotalWhiffs   int
	TotalJumps    int
	Earliest      string
	Latest        string
}

// PlayerAggregate holds stats for a named player aggregated across all
// stored analyses, regardless of which side they played.
type PlayerAggregate struct {
	Name     string
	Analyses int

	Windows      int // non-whiff windows as attacker
	PlusOnBlock  int
	MinusOnBlock int
	AdvSum       int

	Whiffs          int
	WhiffPunishable int
	Jumps           int
	JumpPunishable  int
	DriveImpacts    int // drive impacts landed as attacker
}

// AvgOnBlock returns the mean advantage over the player's non-whiff windows.
func (a *PlayerAggregate) AvgOnBlock() float64 {
	if a.Windows == 0 {
		return 0
	}
	return float64(a.AdvSum) / float64(a.Windows)
}

// WhiffPunishPct returns the share of whiffs that were punishable.
func (a *PlayerAggregate) WhiffPunishPct() float64 {
	if a.Whiffs == 0 {
		return 0
	}
	return float64(a.WhiffPunishable) / float64(a.Whiffs) * 100
}

// JumpPunishPct returns the share of jumps that landed punishable.
func (a *PlayerAggregate) JumpPunishPct() float64 {
	if a.Jumps == 0 {
		return 0
	}
	return float64(a.JumpPunishable) / float64(a.Jumps) * 100
}
