package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"insaat/internal/core"
	"insaat/internal/services"
	"insaat/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "insaat.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	repo := storage.NewRepository(store)
	reports := services.NewReportService(repo)
	ledger := services.NewLedgerService(repo, nil, reports)
	checks := services.NewCheckService(repo)
	backup := services.NewBackupService(repo)

	s := NewServer(":0", ledger, reports, checks, backup, 10000)
	t.Cleanup(func() { s.limiter.Stop() })
	return s
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, rec.Body.String())
	}
	return v
}

func createProject(t *testing.T, s *Server, name string) core.Project {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, "/api/projects", core.Project{
		Name:      name,
		StartDate: core.NewDate(2024, 1, 1),
		Active:    true,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create project: status %d, body %s", rec.Code, rec.Body.String())
	}
	return decodeBody[core.Project](t, rec)
}

func createPayment(t *testing.T, s *Server, p core.Payment) core.Payment {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, "/api/payments", p)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create payment: status %d, body %s", rec.Code, rec.Body.String())
	}
	return decodeBody[core.Payment](t, rec)
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Errorf("healthz body = %q, want ok", rec.Body.String())
	}
}

func TestPaymentCRUD(t *testing.T) {
	s := newTestServer(t)
	project := createProject(t, s, "Tower A")

	created := createPayment(t, s, core.Payment{
		Amount:      core.Money{Cents: 150000},
		Method:      core.MethodCash,
		PaymentDate: core.NewDate(2024, 3, 5),
		ProjectID:   core.Ref(project.ID),
		Description: "Concrete delivery",
	})
	if created.ID == "" {
		t.Fatal("created payment has no ID")
	}
	if created.Status != core.StatusPaid {
		t.Errorf("cash payment status = %s, want paid", created.Status)
	}

	rec := doJSON(t, s, http.MethodGet, "/api/payments/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get payment: status %d", rec.Code)
	}
	got := decodeBody[core.Payment](t, rec)
	if got.Description != "Concrete delivery" {
		t.Errorf("Description = %q, want Concrete delivery", got.Description)
	}

	created.Amount = core.Money{Cents: 175000}
	rec = doJSON(t, s, http.MethodPut, "/api/payments/"+created.ID, created)
	if rec.Code != http.StatusOK {
		t.Fatalf("update payment: status %d, body %s", rec.Code, rec.Body.String())
	}
	updated := decodeBody[core.Payment](t, rec)
	if updated.Amount.Cents != 175000 {
		t.Errorf("updated amount = %d, want 175000", updated.Amount.Cents)
	}

	rec = doJSON(t, s, http.MethodDelete, "/api/payments/"+created.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete payment: status %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/payments/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get deleted payment: status %d, want 404", rec.Code)
	}
}

func TestCreatePaymentValidation(t *testing.T) {
	s := newTestServer(t)
	project := createProject(t, s, "Tower A")

	tests := []struct {
		name    string
		payment core.Payment
	}{
		{
			name: "missing project",
			payment: core.Payment{
				Amount:      core.Money{Cents: 1000},
				Method:      core.MethodCash,
				PaymentDate: core.NewDate(2024, 3, 5),
			},
		},
		{
			name: "check without due date",
			payment: core.Payment{
				Amount:      core.Money{Cents: 1000},
				Method:      core.MethodCheck,
				PaymentDate: core.NewDate(2024, 3, 5),
				ProjectID:   core.Ref(project.ID),
			},
		},
		{
			name: "invalid method",
			payment: core.Payment{
				Amount:      core.Money{Cents: 1000},
				Method:      "barter",
				PaymentDate: core.NewDate(2024, 3, 5),
				ProjectID:   core.Ref(project.ID),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, s, http.MethodPost, "/api/payments", tt.payment)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (body: %s)", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestListPaymentsFiltered(t *testing.T) {
	s := newTestServer(t)
	towerA := createProject(t, s, "Tower A")
	towerB := createProject(t, s, "Tower B")

	createPayment(t, s, core.Payment{
		Amount:      core.Money{Cents: 100000},
		Method:      core.MethodCash,
		PaymentDate: core.NewDate(2024, 3, 5),
		ProjectID:   core.Ref(towerA.ID),
	})
	createPayment(t, s, core.Payment{
		Amount:      core.Money{Cents: 200000},
		Method:      core.MethodTransfer,
		PaymentDate: core.NewDate(2024, 4, 10),
		ProjectID:   core.Ref(towerB.ID),
	})

	rec := doJSON(t, s, http.MethodGet, "/api/payments?project="+towerA.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list payments: status %d", rec.Code)
	}
	payments := decodeBody[[]core.Payment](t, rec)
	if len(payments) != 1 {
		t.Fatalf("filtered by project: got %d payments, want 1", len(payments))
	}
	if payments[0].Amount.Cents != 100000 {
		t.Errorf("amount = %d, want 100000", payments[0].Amount.Cents)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/payments?from=2024-04-01&to=2024-04-30", nil)
	payments = decodeBody[[]core.Payment](t, rec)
	if len(payments) != 1 || payments[0].Amount.Cents != 200000 {
		t.Errorf("filtered by range: got %d payments", len(payments))
	}

	rec = doJSON(t, s, http.MethodGet, "/api/payments?from=not-a-date", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid date filter: status %d, want 400", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/payments?status=bogus", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid status filter: status %d, want 400", rec.Code)
	}
}

func TestProjectDeleteCascadesToPayments(t *testing.T) {
	s := newTestServer(t)
	project := createProject(t, s, "Tower A")
	createPayment(t, s, core.Payment{
		Amount:      core.Money{Cents: 100000},
		Method:      core.MethodCash,
		PaymentDate: core.NewDate(2024, 3, 5),
		ProjectID:   core.Ref(project.ID),
	})

	rec := doJSON(t, s, http.MethodDelete, "/api/projects/"+project.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete project: status %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/payments", nil)
	payments := decodeBody[[]core.Payment](t, rec)
	if len(payments) != 0 {
		t.Errorf("payments after project delete = %d, want 0", len(payments))
	}
}

func TestReportEndpoint(t *testing.T) {
	s := newTestServer(t)
	project := createProject(t, s, "Tower A")
	createPayment(t, s, core.Payment{
		Amount:      core.Money{Cents: 150000},
		Method:      core.MethodCash,
		PaymentDate: core.NewDate(2024, 3, 5),
		ProjectID:   core.Ref(project.ID),
	})

	rec := doJSON(t, s, http.MethodGet, "/api/reports?start=2024-03-01&end=2024-03-31", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("report: status %d, body %s", rec.Code, rec.Body.String())
	}
	report := decodeBody[core.Report](t, rec)
	if report.Summary.Total.Cents != 150000 {
		t.Errorf("report total = %d, want 150000", report.Summary.Total.Cents)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/reports?start=2024-03-01", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("report without end date: status %d, want 400", rec.Code)
	}
}

func TestCheckEndpoints(t *testing.T) {
	s := newTestServer(t)
	project := createProject(t, s, "Tower A")
	createPayment(t, s, core.Payment{
		Amount:      core.Money{Cents: 80000},
		Method:      core.MethodCheck,
		PaymentDate: core.NewDate(2024, 3, 1),
		DueDate:     core.NewDate(2024, 3, 20),
		ProjectID:   core.Ref(project.ID),
	})

	rec := doJSON(t, s, http.MethodGet, "/api/checks/next?today=2024-03-15", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("next check: status %d", rec.Code)
	}
	next := decodeBody[nextCheckResponse](t, rec)
	if !next.Found {
		t.Fatal("expected a pending check")
	}
	if next.Check.Payment.Amount.Cents != 80000 {
		t.Errorf("next check amount = %d, want 80000", next.Check.Payment.Amount.Cents)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/checks/upcoming?today=2024-03-15", nil)
	upcoming := decodeBody[[]services.ClassifiedCheck](t, rec)
	if len(upcoming) != 1 {
		t.Errorf("upcoming checks = %d, want 1", len(upcoming))
	}

	rec = doJSON(t, s, http.MethodGet, "/api/checks/overdue?today=2024-03-25", nil)
	overdue := decodeBody[[]services.ClassifiedCheck](t, rec)
	if len(overdue) != 1 {
		t.Errorf("overdue checks = %d, want 1", len(overdue))
	}

	// days=0 narrows the window to checks due today.
	rec = doJSON(t, s, http.MethodGet, "/api/checks/upcoming?today=2024-03-15&days=0", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("days=0: status %d, want 200", rec.Code)
	}
	dueToday := decodeBody[[]services.ClassifiedCheck](t, rec)
	if len(dueToday) != 0 {
		t.Errorf("checks due today = %d, want 0", len(dueToday))
	}
	rec = doJSON(t, s, http.MethodGet, "/api/checks/upcoming?today=2024-03-20&days=0", nil)
	dueToday = decodeBody[[]services.ClassifiedCheck](t, rec)
	if len(dueToday) != 1 {
		t.Errorf("checks due on the due date = %d, want 1", len(dueToday))
	}

	rec = doJSON(t, s, http.MethodGet, "/api/checks/upcoming?today=2024-03-15&days=-1", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("days=-1: status %d, want 400", rec.Code)
	}
}

func TestStatsEndpoint(t *testing.T) {
	s := newTestServer(t)
	project := createProject(t, s, "Tower A")
	createPayment(t, s, core.Payment{
		Amount:      core.Money{Cents: 150000},
		Method:      core.MethodCash,
		PaymentDate: core.NewDate(2024, 3, 5),
		ProjectID:   core.Ref(project.ID),
	})

	rec := doJSON(t, s, http.MethodGet, "/api/stats?today=2024-03-15", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats: status %d, body %s", rec.Code, rec.Body.String())
	}
	stats := decodeBody[services.Stats](t, rec)
	if stats.ActiveProjects != 1 {
		t.Errorf("ActiveProjects = %d, want 1", stats.ActiveProjects)
	}
	if stats.MonthTotal.Cents != 150000 {
		t.Errorf("MonthTotal = %d, want 150000", stats.MonthTotal.Cents)
	}
}

func TestExportExcelEndpoint(t *testing.T) {
	s := newTestServer(t)
	project := createProject(t, s, "Tower A")
	createPayment(t, s, core.Payment{
		Amount:      core.Money{Cents: 150000},
		Method:      core.MethodCash,
		PaymentDate: core.NewDate(2024, 3, 5),
		ProjectID:   core.Ref(project.ID),
	})

	rec := doJSON(t, s, http.MethodGet, "/api/export/excel", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export: status %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("Content-Type = %q", got)
	}
	if rec.Body.Len() == 0 {
		t.Error("export body is empty")
	}
}

func TestBackupRoundtripOverHTTP(t *testing.T) {
	s := newTestServer(t)
	project := createProject(t, s, "Tower A")
	createPayment(t, s, core.Payment{
		Amount:      core.Money{Cents: 150000},
		Method:      core.MethodCash,
		PaymentDate: core.NewDate(2024, 3, 5),
		ProjectID:   core.Ref(project.ID),
	})

	rec := doJSON(t, s, http.MethodGet, "/api/backup", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("backup export: status %d", rec.Code)
	}
	dump := rec.Body.Bytes()

	fresh := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/backup", bytes.NewReader(dump))
	restoreRec := httptest.NewRecorder()
	fresh.Server.Handler.ServeHTTP(restoreRec, req)
	if restoreRec.Code != http.StatusNoContent {
		t.Fatalf("backup import: status %d, body %s", restoreRec.Code, restoreRec.Body.String())
	}

	rec = doJSON(t, fresh, http.MethodGet, "/api/payments", nil)
	payments := decodeBody[[]core.Payment](t, rec)
	if len(payments) != 1 {
		t.Fatalf("restored payments = %d, want 1", len(payments))
	}
}

func TestBackupImportRejectsGarbage(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/backup", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("garbage import: status %d, want 400", rec.Code)
	}
}

func TestRateLimitReturns429(t *testing.T) {
	store, err := storage.Open(filepath.Join(t.TempDir(), "insaat.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	repo := storage.NewRepository(store)
	reports := services.NewReportService(repo)
	ledger := services.NewLedgerService(repo, nil, reports)
	s := NewServer(":0", ledger, reports, services.NewCheckService(repo), services.NewBackupService(repo), 2)
	t.Cleanup(func() { s.limiter.Stop() })

	var last int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		s.Server.Handler.ServeHTTP(rec, req)
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("third request status = %d, want 429", last)
	}
}

func TestContractsByRecipient(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/recipients", core.Recipient{
		Name:   "Usta Mehmet",
		Type:   core.RecipientContractor,
		Active: true,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create recipient: status %d", rec.Code)
	}
	recipient := decodeBody[core.Recipient](t, rec)

	for i := 0; i < 2; i++ {
		rec = doJSON(t, s, http.MethodPost, "/api/contracts", core.Contract{
			Name:        fmt.Sprintf("Plastering phase %d", i+1),
			RecipientID: core.WeakRef(recipient.ID),
			Amount:      core.Money{Cents: 500000},
			StartDate:   core.NewDate(2024, 2, 1),
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("create contract: status %d, body %s", rec.Code, rec.Body.String())
		}
	}

	rec = doJSON(t, s, http.MethodGet, "/api/contracts?recipient="+recipient.ID, nil)
	contracts := decodeBody[[]core.Contract](t, rec)
	if len(contracts) != 2 {
		t.Errorf("contracts for recipient = %d, want 2", len(contracts))
	}
}
