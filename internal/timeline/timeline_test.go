package timeline

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"

	"github.com/pable/fgframes/internal/model"
)

const arrayDoc = `[
 {"frame_id": 0, "p1_state": "neutral", "p2_state": "neutral", "life_p1": 100, "life_p2": 100},
 {"frame_id": 1, "p1_state": "attack_active", "p2_state": "neutral", "life_p1": 100, "life_p2": 100, "p1_action": "attack"},
 {"frame_id": 2, "p1_state": "attack_active", "p2_state": "block", "p2_can_act": false, "life_p1": 100, "life_p2": 90, "timestamp": 0.5}
]`

const linesDoc = `{"frame_id": 0, "p1_state": "neutral", "p2_state": "neutral", "life_p1": 100, "life_p2": 100}
{"frame_id": 1, "p1_state": "attack_active", "p2_state": "neutral", "life_p1": 100, "life_p2": 100, "p1_action": "attack"}
{"frame_id": 2, "p1_state": "attack_active", "p2_state": "block", "p2_can_act": false, "life_p1": 100, "life_p2": 90, "timestamp": 0.5}
`

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func checkFrames(t *testing.T, frames []model.FrameSnapshot) {
	t.Helper()
	if len(frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(frames))
	}
	f0, f1, f2 := frames[0], frames[1], frames[2]
	if !f0.P1.CanAct || !f0.P2.CanAct {
		t.Error("neutral frame should derive can_act=true")
	}
	if f1.P1.CanAct {
		t.Error("attack_active frame should derive can_act=false")
	}
	if f1.P1.Action != "attack" {
		t.Errorf("p1 action: got %q", f1.P1.Action)
	}
	if f1.Timestamp != 1.0/60.0 {
		t.Errorf("derived timestamp: got %f", f1.Timestamp)
	}
	if f2.Timestamp != 0.5 {
		t.Errorf("explicit timestamp: got %f", f2.Timestamp)
	}
	if f2.P2.State != model.StateBlock || f2.P2.Life != 90 {
		t.Errorf("frame 2 p2: %+v", f2.P2)
	}
}

func TestParse_Containers(t *testing.T) {
	wrapped := `{"frames": ` + arrayDoc + `}`
	var hashes []string
	for name, doc := range map[string]string{"array": arrayDoc, "wrapped": wrapped, "jsonl": linesDoc} {
		tl, err := Parse([]byte(doc), 60)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		checkFrames(t, tl.Frames)
		hashes = append(hashes, tl.Hash)
	}
	if hashes[0] != hashes[1] || hashes[1] != hashes[2] {
		t.Errorf("equivalent containers hashed differently: %v", hashes)
	}
}

func TestParse_SingleLineJSONL(t *testing.T) {
	tl, err := Parse([]byte(`{"frame_id": 0, "p1_state": "jump", "p2_state": "drive", "life_p1": 5, "life_p2": 5}`), 60)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(tl.Frames) != 1 || tl.Frames[0].P1.State != model.StateJump {
		t.Errorf("got %+v", tl.Frames)
	}
}

func TestLoad_Zstd(t *testing.T) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("zstd writer: %v", err)
	}
	compressed := enc.EncodeAll([]byte(linesDoc), nil)
	enc.Close()

	plain, err := Load(writeFile(t, "match.jsonl", []byte(linesDoc)), 60)
	if err != nil {
		t.Fatalf("load plain: %v", err)
	}
	packed, err := Load(writeFile(t, "match.jsonl.zst", compressed), 60)
	if err != nil {
		t.Fatalf("load zstd: %v", err)
	}
	checkFrames(t, packed.Frames)
	if plain.Hash == packed.Hash {
		t.Error("file hash should cover the stored bytes")
	}
	if len(packed.Hash) != 64 {
		t.Errorf("hash length: %d", len(packed.Hash))
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json"), 60); err == nil {
		t.Fatal("expected error")
	}
}

func TestBuild_SortsAndValidates(t *testing.T) {
	id := func(v int) *int { return &v }

	frames, err := Build([]Record{
		{FrameID: id(1), P1State: "neutral", P2State: "neutral"},
		{FrameID: id(0), P1State: "jump", P2State: "neutral"},
	}, 30)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if frames[0].P1.State != model.StateJump || frames[1].Timestamp != 1.0/30.0 {
		t.Errorf("unsorted or wrong timestamps: %+v", frames)
	}

	cases := map[string][]Record{
		"duplicate":     {{FrameID: id(0)}, {FrameID: id(0)}},
		"gap":           {{FrameID: id(0)}, {FrameID: id(2)}},
		"not from zero": {{FrameID: id(1)}},
		"negative life": {{FrameID: id(0), LifeP1: -1}},
	}
	for name, recs := range cases {
		if _, err := Build(recs, 60); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestBuild_PositionalIDsAndUnknownState(t *testing.T) {
	frames, err := Build([]Record{{P1State: "hitstun"}, {}}, 60)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if frames[1].FrameID != 1 {
		t.Errorf("positional id: got %d", frames[1].FrameID)
	}
	if frames[0].P1.State != "hitstun" || frames[0].P1.CanAct {
		t.Errorf("unknown state should be kept verbatim and not actionable: %+v", frames[0].P1)
	}
	if frames[1].P1.State != model.StateNeutral {
		t.Errorf("empty state should default to neutral: %+v", frames[1].P1)
	}
}

func TestDecodeRecords_Errors(t *testing.T) {
	for name, doc := range map[string]string{
		"blank":     "  \n",
		"empty":     "[]",
		"garbage":   "frames",
		"bad jsonl": "{\"frame_id\": 0}\n{oops}\n",
	} {
		_, err := DecodeRecords([]byte(doc))
		if err == nil {
			t.Errorf("%s: expected error", name)
		}
		if (name == "blank" || name == "empty") && !errors.Is(err, ErrEmpty) {
			t.Errorf("%s: want ErrEmpty, got %v", name, err)
		}
	}
}

func TestToRecords_RoundTripsThroughBuild(t *testing.T) {
	tl, err := Parse([]byte(arrayDoc), 60)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	again, err := FromRecords(ToRecords(tl.Frames), 60)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if again.Hash != tl.Hash {
		t.Error("hash changed after re-encoding")
	}
	if !strings.EqualFold(string(again.Frames[1].P1.State), "attack_active") {
		t.Errorf("state lost: %+v", again.Frames[1])
	}
}
