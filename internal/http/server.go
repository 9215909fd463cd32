package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"insaat/internal/export"
	applog "insaat/internal/log"
	"insaat/internal/middleware/ratelimit"
	"insaat/internal/middleware/trace"
	"insaat/internal/services"
)

// Server exposes the ledger over a JSON API. All state lives in the
// services; the server owns only the HTTP plumbing.
type Server struct {
	http.Server
	ledger  *services.LedgerService
	reports *services.ReportService
	checks  *services.CheckService
	backup  *services.BackupService
	excel   *export.Generator

	limiter      *ratelimit.Limiter
	tracer       *trace.Middleware
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, ledger *services.LedgerService, reports *services.ReportService, checks *services.CheckService, backup *services.BackupService, rateLimitPerMinute int) *Server {
	mux := http.NewServeMux()

	limiterCfg := ratelimit.DefaultConfig()
	limiterCfg.RequestsPerMinute = rateLimitPerMinute
	limiter := ratelimit.NewLimiter(limiterCfg)
	tracer := trace.NewMiddleware(extractClientIP)
	logger := applog.New(slog.LevelInfo, applog.ComponentHTTP)

	// Requests carry a component-scoped logger in their context so handlers
	// and helpers log under the same component field.
	handler := tracer.Middleware(limiter.Middleware(extractClientIP, nil)(applog.Middleware(logger)(mux)))

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: handler,
		},
		ledger:  ledger,
		reports: reports,
		checks:  checks,
		backup:  backup,
		excel:   export.NewGenerator(),
		limiter: limiter,
		tracer:  tracer,
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/payments", s.handleListPayments)
	mux.HandleFunc("POST /api/payments", s.handleCreatePayment)
	mux.HandleFunc("GET /api/payments/{id}", s.handleGetPayment)
	mux.HandleFunc("PUT /api/payments/{id}", s.handleUpdatePayment)
	mux.HandleFunc("DELETE /api/payments/{id}", s.handleDeletePayment)

	mux.HandleFunc("GET /api/projects", s.handleListProjects)
	mux.HandleFunc("POST /api/projects", s.handleCreateProject)
	mux.HandleFunc("GET /api/projects/{id}", s.handleGetProject)
	mux.HandleFunc("PUT /api/projects/{id}", s.handleUpdateProject)
	mux.HandleFunc("DELETE /api/projects/{id}", s.handleDeleteProject)

	mux.HandleFunc("GET /api/recipients", s.handleListRecipients)
	mux.HandleFunc("POST /api/recipients", s.handleCreateRecipient)
	mux.HandleFunc("GET /api/recipients/{id}", s.handleGetRecipient)
	mux.HandleFunc("PUT /api/recipients/{id}", s.handleUpdateRecipient)
	mux.HandleFunc("DELETE /api/recipients/{id}", s.handleDeleteRecipient)

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/categories", s.handleCreateCategory)
	mux.HandleFunc("PUT /api/categories/{id}", s.handleUpdateCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", s.handleDeleteCategory)

	mux.HandleFunc("GET /api/material-categories", s.handleListMaterialCategories)
	mux.HandleFunc("POST /api/material-categories", s.handleCreateMaterialCategory)
	mux.HandleFunc("PUT /api/material-categories/{id}", s.handleUpdateMaterialCategory)
	mux.HandleFunc("DELETE /api/material-categories/{id}", s.handleDeleteMaterialCategory)

	mux.HandleFunc("GET /api/materials", s.handleListMaterials)
	mux.HandleFunc("POST /api/materials", s.handleCreateMaterial)
	mux.HandleFunc("GET /api/materials/{id}", s.handleGetMaterial)
	mux.HandleFunc("PUT /api/materials/{id}", s.handleUpdateMaterial)
	mux.HandleFunc("DELETE /api/materials/{id}", s.handleDeleteMaterial)

	mux.HandleFunc("GET /api/contracts", s.handleListContracts)
	mux.HandleFunc("POST /api/contracts", s.handleCreateContract)
	mux.HandleFunc("GET /api/contracts/{id}", s.handleGetContract)
	mux.HandleFunc("PUT /api/contracts/{id}", s.handleUpdateContract)
	mux.HandleFunc("DELETE /api/contracts/{id}", s.handleDeleteContract)

	mux.HandleFunc("GET /api/checks/next", s.handleNextCheck)
	mux.HandleFunc("GET /api/checks/upcoming", s.handleUpcomingChecks)
	mux.HandleFunc("GET /api/checks/overdue", s.handleOverdueChecks)

	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/reports", s.handleReport)
	mux.HandleFunc("GET /api/export/excel", s.handleExportExcel)

	mux.HandleFunc("GET /api/backup", s.handleExportBackup)
	mux.HandleFunc("POST /api/backup", s.handleImportBackup)

	return s
}

// Shutdown stops the server and its background cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// extractClientIP resolves the originating address, considering proxies.
func extractClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	// The store is local, so readiness only checks that it answers.
	if _, err := s.ledger.Projects(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
