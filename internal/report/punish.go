package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/pable/fgframes/internal/model"
)

// Opportunity row types.
const (
	RowWhiffPunish    = "whiff_punish"
	RowPunishableJump = "punishable_jump"
)

// DefaultSegmentSeconds is the segment length used when none is given.
const DefaultSegmentSeconds = 60

// PunishRow is one whiff or jump the opponent may have been able to punish.
// Times are nil when the frame rate is unknown.
type PunishRow struct {
	Type       string   `json:"type"`
	Player     string   `json:"player"`
	StartFrame int      `json:"start_frame"`
	EndFrame   *int     `json:"end_frame"`
	Punishable bool     `json:"punishable"`
	StartTime  *float64 `json:"start_time"`
	EndTime    *float64 `json:"end_time"`
}

// PunishCounts counts whiffs and the jumps that were actually punishable.
type PunishCounts struct {
	Whiffs          int `json:"whiffs"`
	PunishableJumps int `json:"punishable_jumps"`
}

// PunishReport lists every punish opportunity of a match.
type PunishReport struct {
	Counts PunishCounts `json:"counts"`
	Rows   []PunishRow  `json:"rows"`
}

// BuildPunishReport turns the summary's whiffs and jumps into report rows:
// whiffs first, then jumps, each in summary order.
func BuildPunishReport(s model.Summary, fps float64) PunishReport {
	rep := PunishReport{Rows: make([]PunishRow, 0, len(s.WhiffPunishes)+len(s.PunishableJumps))}
	for _, w := range s.WhiffPunishes {
		row := PunishRow{
			Type:       RowWhiffPunish,
			Player:     string(w.Attacker),
			StartFrame: w.Start,
			Punishable: w.Punishable,
			StartTime:  seconds(w.Start, fps),
		}
		if w.End != nil {
			end := *w.End
			row.EndFrame = &end
			row.EndTime = seconds(end, fps)
		}
		rep.Rows = append(rep.Rows, row)
	}
	for _, j := range s.PunishableJumps {
		land := j.Land
		rep.Rows = append(rep.Rows, PunishRow{
			Type:       RowPunishableJump,
			Player:     string(j.Player),
			StartFrame: j.Start,
			EndFrame:   &land,
			Punishable: j.Punishable,
			StartTime:  seconds(j.Start, fps),
			EndTime:    seconds(land, fps),
		})
	}
	rep.Counts = PunishCounts{Whiffs: len(s.WhiffPunishes), PunishableJumps: s.PunishableJumpCount()}
	return rep
}

func seconds(frame int, fps float64) *float64 {
	if fps <= 0 {
		return nil
	}
	v := float64(frame) / fps
	return &v
}

// Segment aggregates punish opportunities over a fixed slice of match time.
type Segment struct {
	Index              int     `json:"segment_index"`
	StartTime          float64 `json:"start_time"`
	EndTime            float64 `json:"end_time"`
	TotalOpportunities int     `json:"total_opportunities"`
	Whiffs             int     `json:"whiffs"`
	WhiffPunishable    int     `json:"whiff_punishable"`
	PunishableJumps    int     `json:"punishable_jumps"`
}

// SegmentSummary is the set of segments covering a report.
type SegmentSummary struct {
	SegmentSeconds int       `json:"segment_seconds"`
	Segments       []Segment `json:"segments"`
}

// BuildSegments buckets rows by start time into segmentSeconds-long
// segments, from 0 up to the segment holding the latest row. Rows without
// a start time are ignored; no timed rows means no segments.
func BuildSegments(rows []PunishRow, segmentSeconds int) SegmentSummary {
	if segmentSeconds <= 0 {
		segmentSeconds = DefaultSegmentSeconds
	}
	out := SegmentSummary{SegmentSeconds: segmentSeconds, Segments: make([]Segment, 0)}

	maxTime := -1.0
	for _, r := range rows {
		if r.StartTime != nil && *r.StartTime > maxTime {
			maxTime = *r.StartTime
		}
	}
	if maxTime < 0 {
		return out
	}

	size := float64(segmentSeconds)
	n := int(math.Floor(maxTime/size)) + 1
	for i := 0; i < n; i++ {
		out.Segments = append(out.Segments, Segment{
			Index:     i,
			StartTime: float64(i) * size,
			EndTime:   float64(i+1) * size,
		})
	}
	for _, r := range rows {
		if r.StartTime == nil || *r.StartTime < 0 {
			continue
		}
		seg := &out.Segments[int(math.Floor(*r.StartTime/size))]
		seg.TotalOpportunities++
		switch r.Type {
		case RowWhiffPunish:
			seg.Whiffs++
			if r.Punishable {
				seg.WhiffPunishable++
			}
		case RowPunishableJump:
			if r.Punishable {
				seg.PunishableJumps++
			}
		}
	}
	return out
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// WritePunishCSV writes the report rows with a header line. Missing values
// are written as empty cells.
func WritePunishCSV(w io.Writer, rep PunishReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"type", "player", "start_frame", "end_frame", "punishable", "start_time", "end_time"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range rep.Rows {
		rec := []string{
			r.Type,
			r.Player,
			strconv.Itoa(r.StartFrame),
			optInt(r.EndFrame),
			strconv.FormatBool(r.Punishable),
			optFloat(r.StartTime),
			optFloat(r.EndTime),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSegmentsCSV writes one line per segment with a header line.
func WriteSegmentsCSV(w io.Writer, s SegmentSummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"segment_index", "start_time", "end_time", "total_opportunities", "whiffs", "whiff_punishable", "punishable_jumps"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, seg := range s.Segments {
		rec := []string{
			strconv.Itoa(seg.Index),
			strconv.FormatFloat(seg.StartTime, 'f', -1, 64),
			strconv.FormatFloat(seg.EndTime, 'f', -1, 64),
			strconv.Itoa(seg.TotalOpportunities),
			strconv.Itoa(seg.Whiffs),
			strconv.Itoa(seg.WhiffPunishable),
			strconv.Itoa(seg.PunishableJumps),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func optInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func optFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
