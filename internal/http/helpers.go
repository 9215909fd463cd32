package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"insaat/internal/core"
	applog "insaat/internal/log"
	"insaat/internal/services"
	"insaat/internal/storage"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// validationErrs are rejected input, reported to the client as 400.
var validationErrs = []error{
	core.ErrInvalidAmount,
	core.ErrInvalidDate,
	core.ErrInvalidMethod,
	core.ErrInvalidStatus,
	core.ErrInvalidType,
	core.ErrEmptyName,
	core.ErrMissingProject,
	core.ErrMissingRecipient,
	core.ErrMissingDueDate,
	core.ErrMissingLines,
	core.ErrInvalidQuantity,
	services.ErrMissingRange,
	services.ErrBadBackup,
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
		return
	}
	for _, sentinel := range validationErrs {
		if errors.Is(err, sentinel) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
	}
	applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed", "error", err, "method", r.Method, "url", r.URL.Path)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}
	return nil
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

// parseFilter builds payment query criteria from query parameters.
func parseFilter(r *http.Request) (core.PaymentFilter, error) {
	q := r.URL.Query()
	f := core.PaymentFilter{
		ProjectID:   core.WeakRef(strings.TrimSpace(q.Get("project"))),
		RecipientID: core.WeakRef(strings.TrimSpace(q.Get("recipient"))),
		CategoryID:  core.WeakRef(strings.TrimSpace(q.Get("category"))),
		Search:      strings.TrimSpace(q.Get("search")),
	}

	if v := strings.TrimSpace(q.Get("status")); v != "" {
		status := core.PaymentStatus(v)
		if !status.Valid() {
			return core.PaymentFilter{}, core.ErrInvalidStatus
		}
		f.Status = status
	}
	if v := strings.TrimSpace(q.Get("method")); v != "" {
		method := core.PaymentMethod(v)
		if !method.Valid() {
			return core.PaymentFilter{}, core.ErrInvalidMethod
		}
		f.Method = method
	}
	if v := strings.TrimSpace(q.Get("from")); v != "" {
		from, err := core.ParseDate(v)
		if err != nil {
			return core.PaymentFilter{}, err
		}
		f.From = from
	}
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		to, err := core.ParseDate(v)
		if err != nil {
			return core.PaymentFilter{}, err
		}
		f.To = to
	}
	return f, nil
}
