package http

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"insaat/internal/core"
	"insaat/internal/services"
)

// parseToday reads the optional "today" query parameter, defaulting to the
// current date. Check windows and stats are computed relative to it.
func parseToday(r *http.Request) (core.Date, error) {
	v := strings.TrimSpace(r.URL.Query().Get("today"))
	if v == "" {
		return core.Today(), nil
	}
	return core.ParseDate(v)
}

type nextCheckResponse struct {
	Found bool                      `json:"found"`
	Check *services.ClassifiedCheck `json:"check,omitempty"`
}

func (s *Server) handleNextCheck(w http.ResponseWriter, r *http.Request) {
	today, err := parseToday(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	next, ok, err := s.checks.Next(r.Context(), today)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := nextCheckResponse{Found: ok}
	if ok {
		resp.Check = &next
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpcomingChecks(w http.ResponseWriter, r *http.Request) {
	today, err := parseToday(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	days := 7
	if v := strings.TrimSpace(r.URL.Query().Get("days")); v != "" {
		days, err = strconv.Atoi(v)
		if err != nil || days < 0 {
			badRequest(w, "invalid days parameter")
			return
		}
	}
	checks, err := s.checks.Upcoming(r.Context(), today, days)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, checks)
}

func (s *Server) handleOverdueChecks(w http.ResponseWriter, r *http.Request) {
	today, err := parseToday(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	checks, err := s.checks.Overdue(r.Context(), today)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, checks)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	today, err := parseToday(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	stats, err := s.reports.Stats(r.Context(), today)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	criteria := services.ReportCriteria{
		ProjectID:   core.WeakRef(strings.TrimSpace(q.Get("project"))),
		RecipientID: core.WeakRef(strings.TrimSpace(q.Get("recipient"))),
		CategoryID:  core.WeakRef(strings.TrimSpace(q.Get("category"))),
	}
	if v := strings.TrimSpace(q.Get("start")); v != "" {
		from, err := core.ParseDate(v)
		if err != nil {
			writeError(w, r, err)
			return
		}
		criteria.From = from
	}
	if v := strings.TrimSpace(q.Get("end")); v != "" {
		to, err := core.ParseDate(v)
		if err != nil {
			writeError(w, r, err)
			return
		}
		criteria.To = to
	}

	report, err := s.reports.Generate(r.Context(), criteria)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleExportExcel(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	payments, err := s.ledger.Payments(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.reports.Resolver(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	data, err := s.excel.Generate(payments, res)
	if err != nil {
		writeError(w, r, err)
		return
	}

	filename := fmt.Sprintf("payments-%s.xlsx", core.Today().String())
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleExportBackup(w http.ResponseWriter, r *http.Request) {
	data, err := s.backup.Export(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	filename := fmt.Sprintf("insaat-backup-%s.json", core.Today().String())
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleImportBackup(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if err := s.backup.Import(r.Context(), data); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
