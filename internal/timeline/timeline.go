// Package timeline loads and validates the per-frame symbolic timeline fed
// to the analysis engine.
//
// A timeline file is a JSON array of frame records, an object wrapping that
// array under "frames", or JSON Lines with one record per line. Any of these
// may be zstd-compressed when the file name ends in ".zst".
package timeline

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/pable/fgframes/internal/model"
)

// DefaultFPS is used to derive timestamps when the caller passes fps <= 0.
const DefaultFPS = 60.0

// ErrEmpty is returned when an input holds no frame records.
var ErrEmpty = errors.New("timeline has no frames")

// Record is the wire shape of one frame. Optional fields are pointers so
// that missing values can be derived.
type Record struct {
	FrameID   *int     `json:"frame_id"`
	Timestamp *float64 `json:"timestamp,omitempty"`
	P1State   string   `json:"p1_state"`
	P2State   string   `json:"p2_state"`
	P1CanAct  *bool    `json:"p1_can_act,omitempty"`
	P2CanAct  *bool    `json:"p2_can_act,omitempty"`
	LifeP1    int      `json:"life_p1"`
	LifeP2    int      `json:"life_p2"`
	P1Action  *string  `json:"p1_action,omitempty"`
	P2Action  *string  `json:"p2_action,omitempty"`
}

// Timeline is a validated frame sequence plus its content hash.
type Timeline struct {
	Frames []model.FrameSnapshot
	Hash   string
}

// Load reads, decodes and validates a timeline file. The hash is the sha256
// of the file bytes as stored on disk.
func Load(path string, fps float64) (*Timeline, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read timeline: %w", err)
	}
	sum := sha256.Sum256(raw)

	data := raw
	if strings.HasSuffix(path, ".zst") {
		data, err = decompress(raw)
		if err != nil {
			return nil, err
		}
	}

	recs, err := DecodeRecords(data)
	if err != nil {
		return nil, err
	}
	frames, err := Build(recs, fps)
	if err != nil {
		return nil, err
	}
	return &Timeline{Frames: frames, Hash: hex.EncodeToString(sum[:])}, nil
}

// Parse decodes an in-memory timeline. The hash is computed over the
// canonical encoding of the resulting frames, so equivalent inputs in
// different containers hash the same.
func Parse(data []byte, fps float64) (*Timeline, error) {
	recs, err := DecodeRecords(data)
	if err != nil {
		return nil, err
	}
	return FromRecords(recs, fps)
}

// FromRecords builds a timeline from already decoded records.
func FromRecords(recs []Record, fps float64) (*Timeline, error) {
	frames, err := Build(recs, fps)
	if err != nil {
		return nil, err
	}
	hash, err := HashFrames(frames)
	if err != nil {
		return nil, err
	}
	return &Timeline{Frames: frames, Hash: hash}, nil
}

func decompress(raw []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	defer dec.Close()
	out, err := dec.DecodeAll(raw, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress timeline: %w", err)
	}
	return out, nil
}

// DecodeRecords detects the container format and decodes every record.
func DecodeRecords(data []byte) ([]Record, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrEmpty
	}

	var recs []Record
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &recs); err != nil {
			return nil, fmt.Errorf("decode timeline array: %w", err)
		}
	case '{':
		var wrapped struct {
			Frames json.RawMessage `json:"frames"`
		}
		// JSONL holds several top-level values and never unmarshals as one.
		if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Frames != nil {
			if err := json.Unmarshal(wrapped.Frames, &recs); err != nil {
				return nil, fmt.Errorf("decode timeline frames: %w", err)
			}
			break
		}
		lines, err := decodeLines(data)
		if err != nil {
			return nil, err
		}
		recs = lines
	default:
		return nil, fmt.Errorf("decode timeline: unexpected leading byte %q", data[0])
	}

	if len(recs) == 0 {
		return nil, ErrEmpty
	}
	return recs, nil
}

func decodeLines(data []byte) ([]Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	var recs []Record
	for {
		var r Record
		err := dec.Decode(&r)
		if errors.Is(err, io.EOF) {
			return recs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decode timeline record %d: %w", len(recs), err)
		}
		recs = append(recs, r)
	}
}

// DecodeRecord decodes a single JSON frame record.
func DecodeRecord(b []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(b, &r); err != nil {
		return Record{}, fmt.Errorf("decode timeline record: %w", err)
	}
	return r, nil
}

// Build converts records into frame snapshots. Records without a frame_id
// take their position; the result is sorted and must be gap-free from 0.
// Missing can_act flags are derived from state and missing timestamps from
// fps.
func Build(recs []Record, fps float64) ([]model.FrameSnapshot, error) {
	if len(recs) == 0 {
		return nil, ErrEmpty
	}
	if fps <= 0 {
		fps = DefaultFPS
	}

	frames := make([]model.FrameSnapshot, len(recs))
	for i, r := range recs {
		id := i
		if r.FrameID != nil {
			id = *r.FrameID
		}
		if r.LifeP1 < 0 || r.LifeP2 < 0 {
			return nil, fmt.Errorf("validate frame %d: negative life", id)
		}
		ts := float64(id) / fps
		if r.Timestamp != nil {
			ts = *r.Timestamp
		}
		frames[i] = model.FrameSnapshot{
			FrameID:   id,
			Timestamp: ts,
			P1:        player(r.P1State, r.P1CanAct, r.LifeP1, r.P1Action),
			P2:        player(r.P2State, r.P2CanAct, r.LifeP2, r.P2Action),
		}
	}

	sort.SliceStable(frames, func(i, j int) bool { return frames[i].FrameID < frames[j].FrameID })
	for i := range frames {
		switch id := frames[i].FrameID; {
		case id < i:
			return nil, fmt.Errorf("validate frame %d: duplicate frame id", id)
		case id > i:
			return nil, fmt.Errorf("validate frame %d: gap in timeline, expected frame %d", id, i)
		}
	}
	return frames, nil
}

func player(state string, canAct *bool, life int, action *string) model.PlayerFrame {
	st := model.State(state)
	if st == "" {
		st = model.StateNeutral
	}
	pf := model.PlayerFrame{State: st, Life: life, CanAct: model.DefaultCanAct(st)}
	if canAct != nil {
		pf.CanAct = *canAct
	}
	if action != nil {
		pf.Action = *action
	}
	return pf
}

// ToRecords converts frames back to their wire shape with every field set.
func ToRecords(frames []model.FrameSnapshot) []Record {
	out := make([]Record, len(frames))
	for i := range frames {
		f := frames[i]
		out[i] = Record{
			FrameID:   &f.FrameID,
			Timestamp: &f.Timestamp,
			P1State:   string(f.P1.State),
			P2State:   string(f.P2.State),
			P1CanAct:  &f.P1.CanAct,
			P2CanAct:  &f.P2.CanAct,
			LifeP1:    f.P1.Life,
			LifeP2:    f.P2.Life,
		}
		if f.P1.Action != "" {
			out[i].P1Action = &f.P1.Action
		}
		if f.P2.Action != "" {
			out[i].P2Action = &f.P2.Action
		}
	}
	return out
}

// HashFrames returns the sha256 hex digest of the canonical JSON encoding of
// frames.
func HashFrames(frames []model.FrameSnapshot) (string, error) {
	b, err := json.Marshal(ToRecords(frames))
	if err != nil {
		return "", fmt.Errorf("encode timeline: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
