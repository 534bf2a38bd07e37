package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/nishad/epibac/internal/database"
	"github.com/nishad/epibac/internal/export"
	"github.com/nishad/epibac/internal/validator"
	"go.uber.org/zap"
)

// ValidateRequest is the body of POST /api/v1/validate.
type ValidateRequest struct {
	Samples  string `json:"samples"`
	Mode     string `json:"mode,omitempty"`
	OutDir   string `json:"outdir,omitempty"`
	Findings bool   `json:"findings,omitempty"` // also write the JSON findings file
}

// ValidateResponse is the validation result plus what was recorded and
// written.
type ValidateResponse struct {
	*validator.Result
	Delimiter string        `json:"delimiter,omitempty"`
	RunID     string        `json:"run_id,omitempty"`
	Outputs   *export.Stats `json:"outputs,omitempty"`
}

// Validation handlers

// handleValidate validates a manifest on the server's filesystem. The
// response is 200 whatever the validation status; only a bad request or
// a failure to write the outputs is an HTTP error.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Samples = strings.TrimSpace(req.Samples)
	if req.Samples == "" {
		s.writeError(w, http.StatusBadRequest, "samples path required")
		return
	}

	result := s.validator.Validate(req.Samples, req.Mode)
	resp := ValidateResponse{
		Result:    result,
		Delimiter: result.DelimiterName(),
	}

	if req.OutDir != "" {
		stats, err := export.NewExporter(export.InDir(req.OutDir, req.Findings), s.logger).Export(result)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.Outputs = stats
	}

	if s.db != nil {
		run, err := s.db.RecordResult(req.Samples, "api", result)
		if err != nil {
			s.logger.Warn("failed to record validation run", zap.String("samples", req.Samples), zap.Error(err))
		} else {
			resp.RunID = run.ID
		}
	}

	s.writeJSON(w, http.StatusOK, resp)
}

// History handlers

func (s *Server) requireHistory(w http.ResponseWriter) bool {
	if s.db == nil {
		s.writeError(w, http.StatusServiceUnavailable, "validation history is disabled")
		return false
	}
	return true
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if !s.requireHistory(w) {
		return
	}

	q := r.URL.Query()
	filter := database.RunFilter{
		Mode:      q.Get("mode"),
		RunName:   q.Get("run_name"),
		Manifest:  q.Get("manifest"),
		OrderBy:   q.Get("order_by"),
		Ascending: q.Get("order") == "asc",
	}
	if v := q.Get("min_status"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.MinStatus = n
		}
	}
	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "since must be an RFC 3339 timestamp")
			return
		}
		filter.Since = since
	}
	if limit := q.Get("limit"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil {
			filter.Limit = l
		}
	}
	if filter.Limit > 1000 {
		filter.Limit = 1000
	}
	if offset := q.Get("offset"); offset != "" {
		if o, err := strconv.Atoi(offset); err == nil {
			filter.Offset = o
		}
	}

	runs, err := s.db.ListRuns(filter)
	if err != nil {
		if errors.Is(err, database.ErrInvalidColumnName) {
			s.writeError(w, http.StatusBadRequest, "invalid order_by column")
		} else {
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	// Reports can be long; they are served by /runs/{id}/report.
	for i := range runs {
		runs[i].Report = ""
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if !s.requireHistory(w) {
		return
	}
	id := mux.Vars(r)["id"]

	run, err := s.db.GetRun(id)
	if err != nil {
		s.writeRunError(w, err)
		return
	}
	findings, err := s.db.FindingsForRun(id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"run":      run,
		"findings": findings,
	})
}

func (s *Server) handleRunReport(w http.ResponseWriter, r *http.Request) {
	if !s.requireHistory(w) {
		return
	}

	run, err := s.db.GetRun(mux.Vars(r)["id"])
	if err != nil {
		s.writeRunError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(run.Report)); err != nil {
		s.logger.Warn("error writing report", zap.Error(err))
	}
}

func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	if !s.requireHistory(w) {
		return
	}
	id := mux.Vars(r)["id"]

	if err := s.db.DeleteRun(id); err != nil {
		s.writeRunError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"deleted": id,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if !s.requireHistory(w) {
		return
	}

	stats, err := s.db.GetStats()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) writeRunError(w http.ResponseWriter, err error) {
	if errors.Is(err, database.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "Run not found")
		return
	}
	s.writeError(w, http.StatusInternalServerError, err.Error())
}
