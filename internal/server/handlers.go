package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/pable/fgframes/internal/model"
	"github.com/pable/fgframes/internal/pipeline"
	"github.com/pable/fgframes/internal/report"
	"github.com/pable/fgframes/internal/timeline"
)

type analysisResponse struct {
	Analysis model.AnalysisRecord  `json:"analysis"`
	Stored   bool                  `json:"stored"`
	Document report.ResultDocument `json:"document"`
}

type punishResponse struct {
	Hash     string                `json:"hash"`
	Report   report.PunishReport   `json:"report"`
	Segments report.SegmentSummary `json:"segments"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"storage":   s.db != nil,
	}
	if s.db != nil {
		body["driver"] = s.db.Driver()
	}
	writeJSON(w, http.StatusOK, body)
}

// createAnalysis analyzes the timeline in the request body. Query params:
// label, p1, p2, fps, store (default true).
func (s *Server) createAnalysis(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	fps := s.cfg.Report.FPS
	if v := q.Get("fps"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			writeError(w, http.StatusBadRequest, "fps must be a positive number")
			return
		}
		fps = f
	}
	store := s.db != nil
	if v := q.Get("store"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "store must be true or false")
			return
		}
		store = store && b
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}
	tl, err := timeline.Parse(body, fps)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	a := pipeline.Run(s.eng, tl)
	rec := a.Record(pipeline.Meta{
		Label:  q.Get("label"),
		P1Name: q.Get("p1"),
		P2Name: q.Get("p2"),
		Source: "http",
		FPS:    fps,
	}, time.Now().UTC().Format(time.RFC3339))

	if store {
		if err := s.db.InsertAnalysis(rec, a); err != nil {
			s.log.Error().Err(err).Str("hash", rec.Hash).Msg("store analysis failed")
			writeError(w, http.StatusInternalServerError, "store analysis failed")
			return
		}
		s.log.Debug().Str("hash", rec.Hash).Int("windows", rec.WindowCount).Msg("analysis stored")
	}

	writeJSON(w, http.StatusCreated, analysisResponse{
		Analysis: rec,
		Stored:   store,
		Document: s.document(a),
	})
}

func (s *Server) listAnalyses(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	recs, err := s.db.ListAnalyses()
	if err != nil {
		s.log.Error().Err(err).Msg("list analyses failed")
		writeError(w, http.StatusInternalServerError, "list analyses failed")
		return
	}
	if recs == nil {
		recs = []model.AnalysisRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) getAnalysis(w http.ResponseWriter, r *http.Request) {
	rec, a, ok := s.loadAnalysis(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, analysisResponse{Analysis: *rec, Stored: true, Document: s.document(a)})
}

func (s *Server) deleteAnalysis(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	rec, err := s.db.GetAnalysisByPrefix(mux.Vars(r)["hash"])
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup analysis failed")
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "analysis not found")
		return
	}
	if _, err := s.db.DeleteAnalysis(rec.Hash); err != nil {
		s.log.Error().Err(err).Str("hash", rec.Hash).Msg("delete analysis failed")
		writeError(w, http.StatusInternalServerError, "delete analysis failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// punishReport returns the punish opportunities of a stored analysis.
// Query param segment_seconds overrides the configured segment length.
func (s *Server) punishReport(w http.ResponseWriter, r *http.Request) {
	segSeconds := s.cfg.Report.SegmentSeconds
	if v := r.URL.Query().Get("segment_seconds"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "segment_seconds must be a positive integer")
			return
		}
		segSeconds = n
	}
	rec, a, ok := s.loadAnalysis(w, r)
	if !ok {
		return
	}
	rep := report.BuildPunishReport(a.Result.Summary, rec.FPS)
	writeJSON(w, http.StatusOK, punishResponse{
		Hash:     rec.Hash,
		Report:   rep,
		Segments: report.BuildSegments(rep.Rows, segSeconds),
	})
}

func (s *Server) loadAnalysis(w http.ResponseWriter, r *http.Request) (*model.AnalysisRecord, *pipeline.Analysis, bool) {
	if !s.requireDB(w) {
		return nil, nil, false
	}
	hash := mux.Vars(r)["hash"]
	rec, a, err := s.db.LoadAnalysis(hash)
	if err != nil {
		s.log.Error().Err(err).Str("hash", hash).Msg("load analysis failed")
		writeError(w, http.StatusInternalServerError, "load analysis failed")
		return nil, nil, false
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "analysis not found")
		return nil, nil, false
	}
	return rec, a, true
}

func (s *Server) requireDB(w http.ResponseWriter) bool {
	if s.db == nil {
		writeError(w, http.StatusServiceUnavailable, "storage disabled")
		return false
	}
	return true
}

func (s *Server) document(a *pipeline.Analysis) report.ResultDocument {
	return report.NewResultDocument(a.Result, a.Insights, a.Events, a.Frames, s.cfg.Report.DebugFrames)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
