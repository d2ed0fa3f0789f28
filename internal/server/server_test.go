package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/pable/fgframes/internal/config"
	"github.com/pable/fgframes/internal/framedata"
	"github.com/pable/fgframes/internal/model"
	"github.com/pable/fgframes/internal/storage"
	"github.com/pable/fgframes/internal/timeline"
)

func newTestServer(t *testing.T, withDB bool) *Server {
	t.Helper()
	var db *storage.DB
	if withDB {
		var err error
		db, err = storage.Open(":memory:")
		if err != nil {
			t.Fatalf("open in-memory db: %v", err)
		}
		t.Cleanup(func() { db.Close() })
	}
	cfg := config.DefaultConfig()
	return New(db, framedata.NewEngine(cfg.Engine), cfg, zerolog.Nop())
}

// blockedStringBody is a 20-frame timeline where P1's attack at frame 10 is
// blocked and leaves P1 at -2.
func blockedStringBody(t *testing.T) []byte {
	t.Helper()
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
	b, err := json.Marshal(recs)
	if err != nil {
		t.Fatalf("marshal timeline: %v", err)
	}
	return b
}

func do(t *testing.T, s *Server, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, false)
	rec := do(t, s, http.MethodGet, "/api/v1/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var body map[string]any
	decode(t, rec, &body)
	if body["status"] != "healthy" || body["storage"] != false {
		t.Errorf("body: %v", body)
	}
}

func TestCreateAnalysis_StoresAndServes(t *testing.T) {
	s := newTestServer(t, true)
	rec := do(t, s, http.MethodPost, "/api/v1/analyses?label=pools&p1=alice&p2=bob", blockedStringBody(t))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var created analysisResponse
	decode(t, rec, &created)
	if !created.Stored || created.Analysis.P1Name != "alice" || created.Analysis.Source != "http" {
		t.Errorf("record: %+v", created.Analysis)
	}
	var found bool
	for _, w := range created.Document.FrameData.Windows {
		if w.Attacker == model.SideP1 && w.Start == 10 && w.OnBlockAdv == -2 {
			found = true
		}
	}
	if !found {
		t.Errorf("missing P1@10 -2 window: %+v", created.Document.FrameData.Windows)
	}
	if len(created.Document.DebugTimeline) != 20 {
		t.Errorf("debug timeline: %d frames", len(created.Document.DebugTimeline))
	}

	prefix := created.Analysis.Hash[:8]
	rec = do(t, s, http.MethodGet, "/api/v1/analyses/"+prefix, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status %d: %s", rec.Code, rec.Body.String())
	}
	var got analysisResponse
	decode(t, rec, &got)
	if got.Analysis.Hash != created.Analysis.Hash {
		t.Errorf("hash: got %s want %s", got.Analysis.Hash, created.Analysis.Hash)
	}
	if len(got.Document.FrameData.Windows) != len(created.Document.FrameData.Windows) {
		t.Errorf("stored windows differ: %d vs %d", len(got.Document.FrameData.Windows), len(created.Document.FrameData.Windows))
	}

	rec = do(t, s, http.MethodGet, "/api/v1/analyses", nil)
	var list []model.AnalysisRecord
	decode(t, rec, &list)
	if len(list) != 1 || list[0].Label != "pools" {
		t.Errorf("list: %+v", list)
	}
}

func TestCreateAnalysis_NoStore(t *testing.T) {
	s := newTestServer(t, true)
	rec := do(t, s, http.MethodPost, "/api/v1/analyses?store=false", blockedStringBody(t))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d", rec.Code)
	}
	var created analysisResponse
	decode(t, rec, &created)
	if created.Stored {
		t.Error("store=false should not persist")
	}
	rec = do(t, s, http.MethodGet, "/api/v1/analyses/"+created.Analysis.Hash, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestCreateAnalysis_BadInput(t *testing.T) {
	s := newTestServer(t, true)
	cases := map[string]struct {
		target string
		body   []byte
	}{
		"not json":  {"/api/v1/analyses", []byte("{{{")},
		"empty":     {"/api/v1/analyses", []byte("[]")},
		"bad fps":   {"/api/v1/analyses?fps=-1", blockedStringBody(t)},
		"bad store": {"/api/v1/analyses?store=maybe", blockedStringBody(t)},
	}
	for name, c := range cases {
		rec := do(t, s, http.MethodPost, c.target, c.body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: want 400, got %d", name, rec.Code)
			continue
		}
		var body map[string]string
		decode(t, rec, &body)
		if body["error"] == "" {
			t.Errorf("%s: missing error message", name)
		}
	}
}

func TestPunishReport(t *testing.T) {
	s := newTestServer(t, true)
	rec := do(t, s, http.MethodPost, "/api/v1/analyses", blockedStringBody(t))
	var created analysisResponse
	decode(t, rec, &created)

	rec = do(t, s, http.MethodGet, "/api/v1/analyses/"+created.Analysis.Hash+"/punish-report?segment_seconds=30", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var got punishResponse
	decode(t, rec, &got)
	if got.Hash != created.Analysis.Hash || got.Segments.SegmentSeconds != 30 {
		t.Errorf("report: %+v", got)
	}

	rec = do(t, s, http.MethodGet, "/api/v1/analyses/ffff/punish-report", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown hash: want 404, got %d", rec.Code)
	}
	rec = do(t, s, http.MethodGet, "/api/v1/analyses/"+created.Analysis.Hash+"/punish-report?segment_seconds=0", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad segment: want 400, got %d", rec.Code)
	}
}

func TestDeleteAnalysis(t *testing.T) {
	s := newTestServer(t, true)
	rec := do(t, s, http.MethodPost, "/api/v1/analyses", blockedStringBody(t))
	var created analysisResponse
	decode(t, rec, &created)

	if rec := do(t, s, http.MethodDelete, "/api/v1/analyses/"+created.Analysis.Hash, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", rec.Code)
	}
	if rec := do(t, s, http.MethodDelete, "/api/v1/analyses/"+created.Analysis.Hash, nil); rec.Code != http.StatusNotFound {
		t.Errorf("second delete: want 404, got %d", rec.Code)
	}
}

func TestWithoutStorage(t *testing.T) {
	s := newTestServer(t, false)
	rec := do(t, s, http.MethodPost, "/api/v1/analyses", blockedStringBody(t))
	if rec.Code != http.StatusCreated {
		t.Fatalf("analyze without storage: %d", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/api/v1/analyses", nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("list without storage: want 503, got %d", rec.Code)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	s := newTestServer(t, false)
	h := s.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("want 500, got %d", rec.Code)
	}
}
