package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/lucasnoah/gateagent/internal/history"
)

// ---- view models ----

type DashboardData struct {
	Runs     []history.Run
	Stats    []history.GateStat
	PassRate string
	Now      time.Time
}

type RunDetailData struct {
	Run     *history.Run
	Results []history.GateResult
	Now     time.Time
}

const defaultRunLimit = 50

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.Recent(r.Context(), defaultRunLimit)
	if err != nil {
		s.logger.Error("list runs", "error", err)
		http.Error(w, "could not load runs", http.StatusInternalServerError)
		return
	}
	stats, err := s.store.GateStats(r.Context(), time.Time{})
	if err != nil {
		s.logger.Error("gate stats", "error", err)
		http.Error(w, "could not load gate stats", http.StatusInternalServerError)
		return
	}
	s.render(w, s.dashboardTmpl, DashboardData{
		Runs:     runs,
		Stats:    stats,
		PassRate: passRate(runs),
		Now:      s.now(),
	})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	run, results, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	s.render(w, s.runTmpl, RunDetailData{Run: run, Results: results, Now: s.now()})
}

// ---- JSON API ----

type apiRun struct {
	ID           string    `json:"id"`
	ProjectRoot  string    `json:"projectRoot"`
	ConfigDigest string    `json:"configDigest,omitempty"`
	Success      bool      `json:"success"`
	Total        int       `json:"total"`
	Passed       int       `json:"passed"`
	Failed       int       `json:"failed"`
	Skipped      int       `json:"skipped"`
	Errors       int       `json:"errors"`
	DurationMs   int64     `json:"durationMs"`
	CreatedAt    time.Time `json:"createdAt"`
}

type apiResult struct {
	Name         string          `json:"name"`
	Status       string          `json:"status"`
	Message      string          `json:"message,omitempty"`
	DurationMs   int64           `json:"durationMs"`
	ErrorCount   int             `json:"errorCount"`
	WarningCount int             `json:"warningCount"`
	Details      json.RawMessage `json:"details,omitempty"`
}

func toAPIRun(r history.Run) apiRun {
	return apiRun{
		ID:           r.ID,
		ProjectRoot:  r.ProjectRoot,
		ConfigDigest: r.ConfigDigest,
		Success:      r.Success,
		Total:        r.Total,
		Passed:       r.Passed,
		Failed:       r.Failed,
		Skipped:      r.Skipped,
		Errors:       r.Errors,
		DurationMs:   r.Duration.Milliseconds(),
		CreatedAt:    r.CreatedAt,
	}
}

func (s *Server) handleAPIRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	runs, err := s.store.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("list runs", "error", err)
		http.Error(w, "could not load runs", http.StatusInternalServerError)
		return
	}
	out := make([]apiRun, 0, len(runs))
	for _, run := range runs {
		out = append(out, toAPIRun(run))
	}
	writeJSON(w, out)
}

func (s *Server) handleAPIRun(w http.ResponseWriter, r *http.Request) {
	run, results, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	out := struct {
		apiRun
		Results []apiResult `json:"results"`
	}{apiRun: toAPIRun(*run), Results: make([]apiResult, 0, len(results))}
	for _, res := range results {
		a := apiResult{
			Name:         res.Name,
			Status:       string(res.Status),
			Message:      res.Message,
			DurationMs:   res.Duration.Milliseconds(),
			ErrorCount:   res.ErrorCount,
			WarningCount: res.WarningCount,
		}
		if res.Details != "" {
			a.Details = json.RawMessage(res.Details)
		}
		out.Results = append(out.Results, a)
	}
	writeJSON(w, out)
}

func (s *Server) loadRun(w http.ResponseWriter, r *http.Request) (*history.Run, []history.GateResult, bool) {
	id := r.PathValue("id")
	run, err := s.store.Get(r.Context(), id)
	if errors.Is(err, history.ErrRunNotFound) {
		http.NotFound(w, r)
		return nil, nil, false
	}
	if err != nil {
		s.logger.Error("get run", "run", id, "error", err)
		http.Error(w, "could not load run", http.StatusInternalServerError)
		return nil, nil, false
	}
	results, err := s.store.Results(r.Context(), id)
	if err != nil {
		s.logger.Error("get results", "run", id, "error", err)
		http.Error(w, "could not load results", http.StatusInternalServerError)
		return nil, nil, false
	}
	return run, results, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func passRate(runs []history.Run) string {
	if len(runs) == 0 {
		return "-"
	}
	passed := 0
	for _, r := range runs {
		if r.Success {
			passed++
		}
	}
	return strconv.Itoa(passed*100/len(runs)) + "%"
}
