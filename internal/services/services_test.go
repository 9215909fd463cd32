package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"insaat/internal/core"
	"insaat/internal/storage"
)

func testRepo(t *testing.T) *storage.Repository {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "insaat.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return storage.NewRepository(store)
}

func testServices(t *testing.T) (*LedgerService, *ReportService, *storage.Repository) {
	t.Helper()
	repo := testRepo(t)
	reports := NewReportService(repo)
	ledger := NewLedgerService(repo, nil, reports)
	return ledger, reports, repo
}

func seedProject(t *testing.T, ledger *LedgerService) core.Project {
	t.Helper()
	p, err := ledger.CreateProject(context.Background(), core.Project{
		Name:      "Tower A",
		StartDate: core.NewDate(2024, 1, 1),
		Active:    true,
	})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestCreatePaymentNormalizesCheckStatus(t *testing.T) {
	ledger, _, _ := testServices(t)
	ctx := context.Background()
	project := seedProject(t, ledger)

	p, err := ledger.CreatePayment(ctx, core.Payment{
		Amount:      core.Money{Cents: 50000},
		Method:      core.MethodCheck,
		PaymentDate: core.NewDate(2024, 3, 1),
		DueDate:     core.NewDate(2024, 4, 1),
		ProjectID:   core.Ref(project.ID),
	})
	if err != nil {
		t.Fatal(err)
	}
	if p.Status != core.StatusPending {
		t.Errorf("check without explicit status must default pending, got %s", p.Status)
	}

	cash, err := ledger.CreatePayment(ctx, core.Payment{
		Amount:      core.Money{Cents: 1000},
		Method:      core.MethodCash,
		PaymentDate: core.NewDate(2024, 3, 2),
		ProjectID:   core.Ref(project.ID),
	})
	if err != nil {
		t.Fatal(err)
	}
	if cash.Status != core.StatusPaid {
		t.Errorf("cash without explicit status must default paid, got %s", cash.Status)
	}
}

func TestCreatePaymentRejectsCheckWithoutDueDate(t *testing.T) {
	ledger, _, _ := testServices(t)
	project := seedProject(t, ledger)

	_, err := ledger.CreatePayment(context.Background(), core.Payment{
		Amount:      core.Money{Cents: 50000},
		Method:      core.MethodCheck,
		PaymentDate: core.NewDate(2024, 3, 1),
		ProjectID:   core.Ref(project.ID),
	})
	if !errors.Is(err, core.ErrMissingDueDate) {
		t.Errorf("expected ErrMissingDueDate, got %v", err)
	}
}

func TestGenerateRequiresRange(t *testing.T) {
	_, reports, _ := testServices(t)

	_, err := reports.Generate(context.Background(), ReportCriteria{
		From: core.NewDate(2024, 1, 1),
	})
	if !errors.Is(err, ErrMissingRange) {
		t.Errorf("expected ErrMissingRange, got %v", err)
	}
}

func TestGenerateReportAndCacheInvalidation(t *testing.T) {
	ledger, reports, _ := testServices(t)
	ctx := context.Background()
	project := seedProject(t, ledger)

	pay := func(cents int64, day int) {
		t.Helper()
		_, err := ledger.CreatePayment(ctx, core.Payment{
			Amount:      core.Money{Cents: cents},
			Method:      core.MethodCash,
			PaymentDate: core.NewDate(2024, 3, day),
			ProjectID:   core.Ref(project.ID),
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	pay(100000, 5)
	pay(50000, 10)

	criteria := ReportCriteria{From: core.NewDate(2024, 3, 1), To: core.NewDate(2024, 3, 31)}
	report, err := reports.Generate(ctx, criteria)
	if err != nil {
		t.Fatal(err)
	}
	if report.Summary.Total.Cents != 150000 {
		t.Errorf("total = %d, want 150000", report.Summary.Total.Cents)
	}
	if report.PaymentCount != 2 {
		t.Errorf("payment count = %d, want 2", report.PaymentCount)
	}
	if len(report.ByProject) != 1 || report.ByProject[0].Name != "Tower A" {
		t.Errorf("project breakdown = %+v", report.ByProject)
	}
	if reports.Cache().Size() != 1 {
		t.Errorf("expected cached report, size = %d", reports.Cache().Size())
	}

	// A new payment must purge the cache and show up in the next report.
	pay(25000, 15)
	if reports.Cache().Size() != 0 {
		t.Errorf("mutation must purge cache, size = %d", reports.Cache().Size())
	}
	report, err = reports.Generate(ctx, criteria)
	if err != nil {
		t.Fatal(err)
	}
	if report.Summary.Total.Cents != 175000 {
		t.Errorf("total after mutation = %d, want 175000", report.Summary.Total.Cents)
	}
}

func TestReportRendersDeletedCategoryAsUnknown(t *testing.T) {
	ledger, reports, _ := testServices(t)
	ctx := context.Background()
	project := seedProject(t, ledger)

	cat, err := ledger.CreateCategory(ctx, core.Category{Name: "Labor"})
	if err != nil {
		t.Fatal(err)
	}
	_, err = ledger.CreatePayment(ctx, core.Payment{
		Amount:      core.Money{Cents: 10000},
		Method:      core.MethodCash,
		PaymentDate: core.NewDate(2024, 3, 5),
		ProjectID:   core.Ref(project.ID),
		CategoryID:  core.WeakRef(cat.ID),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := ledger.DeleteCategory(ctx, cat.ID); err != nil {
		t.Fatal(err)
	}

	report, err := reports.Generate(ctx, ReportCriteria{
		From: core.NewDate(2024, 3, 1), To: core.NewDate(2024, 3, 31),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(report.ByCategory) != 1 || report.ByCategory[0].Name != core.UnknownLabel {
		t.Errorf("deleted category must render as unknown: %+v", report.ByCategory)
	}
}

func TestStats(t *testing.T) {
	ledger, reports, _ := testServices(t)
	ctx := context.Background()
	project := seedProject(t, ledger)
	today := core.NewDate(2024, 3, 15)

	rec, err := ledger.CreateRecipient(ctx, core.Recipient{
		Name: "Usta", Type: core.RecipientContractor, Active: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	add := func(cents int64, date core.Date, method core.PaymentMethod, due core.Date) {
		t.Helper()
		_, err := ledger.CreatePayment(ctx, core.Payment{
			Amount:      core.Money{Cents: cents},
			Method:      method,
			PaymentDate: date,
			DueDate:     due,
			ProjectID:   core.Ref(project.ID),
			RecipientID: core.Ref(rec.ID),
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	add(100000, core.NewDate(2024, 3, 5), core.MethodCash, core.Date{})
	add(50000, core.NewDate(2024, 3, 10), core.MethodCheck, core.NewDate(2024, 4, 1))
	add(50000, core.NewDate(2024, 2, 20), core.MethodCash, core.Date{})

	stats, err := reports.Stats(ctx, today)
	if err != nil {
		t.Fatal(err)
	}
	if stats.ActiveProjects != 1 {
		t.Errorf("active projects = %d, want 1", stats.ActiveProjects)
	}
	if stats.PendingPayments != 1 {
		t.Errorf("pending payments = %d, want 1", stats.PendingPayments)
	}
	if stats.MonthTotal.Cents != 150000 {
		t.Errorf("month total = %d, want 150000", stats.MonthTotal.Cents)
	}
	// 150000 vs 50000 previous month: +200%.
	if stats.MonthChangePct != 200 {
		t.Errorf("month change = %v, want 200", stats.MonthChangePct)
	}
	if stats.PaymentCount != 3 {
		t.Errorf("payment count = %d, want 3", stats.PaymentCount)
	}
	if stats.TopRecipient.Label != "Usta" || stats.TopRecipient.Amount.Cents != 150000 {
		t.Errorf("top recipient = %+v, want Usta with 150000", stats.TopRecipient)
	}
}

func TestCheckServiceWindows(t *testing.T) {
	ledger, _, repo := testServices(t)
	checks := NewCheckService(repo)
	ctx := context.Background()
	project := seedProject(t, ledger)
	today := core.NewDate(2024, 3, 15)

	check := func(cents int64, due core.Date) {
		t.Helper()
		_, err := ledger.CreatePayment(ctx, core.Payment{
			Amount:      core.Money{Cents: cents},
			Method:      core.MethodCheck,
			PaymentDate: core.NewDate(2024, 3, 1),
			DueDate:     due,
			ProjectID:   core.Ref(project.ID),
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	check(10000, core.NewDate(2024, 3, 10)) // overdue
	check(20000, core.NewDate(2024, 3, 18)) // due soon
	check(30000, core.NewDate(2024, 5, 1))  // upcoming

	next, ok, err := checks.Next(ctx, today)
	if err != nil || !ok {
		t.Fatalf("Next: ok=%v err=%v", ok, err)
	}
	if !next.Payment.DueDate.Equal(core.NewDate(2024, 3, 10)) {
		t.Errorf("next due = %s", next.Payment.DueDate)
	}
	if next.Due.Tier != core.DueOverdue {
		t.Errorf("next tier = %s, want overdue", next.Due.Tier)
	}

	upcoming, err := checks.Upcoming(ctx, today, 7)
	if err != nil {
		t.Fatal(err)
	}
	if len(upcoming) != 1 || upcoming[0].Due.Tier != core.DueSoon {
		t.Errorf("upcoming = %+v", upcoming)
	}

	overdue, err := checks.Overdue(ctx, today)
	if err != nil {
		t.Fatal(err)
	}
	if len(overdue) != 1 || overdue[0].Payment.Amount.Cents != 10000 {
		t.Errorf("overdue = %+v", overdue)
	}
}

func TestBackupRoundtrip(t *testing.T) {
	ledger, _, repo := testServices(t)
	backup := NewBackupService(repo)
	ctx := context.Background()
	project := seedProject(t, ledger)

	_, err := ledger.CreatePayment(ctx, core.Payment{
		Amount:      core.Money{Cents: 75000},
		Method:      core.MethodTransfer,
		PaymentDate: core.NewDate(2024, 3, 5),
		ProjectID:   core.Ref(project.ID),
	})
	if err != nil {
		t.Fatal(err)
	}

	data, err := backup.Export(ctx)
	if err != nil {
		t.Fatal(err)
	}

	// Restore into a fresh store.
	repo2 := testRepo(t)
	if err := NewBackupService(repo2).Import(ctx, data); err != nil {
		t.Fatal(err)
	}
	payments, err := repo2.Payments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(payments) != 1 || payments[0].Amount.Cents != 75000 {
		t.Errorf("restored payments = %+v", payments)
	}
	projects, err := repo2.Projects(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(projects) != 1 || projects[0].Name != "Tower A" {
		t.Errorf("restored projects = %+v", projects)
	}
}

func TestImportKeepsCollectionsAbsentFromDocument(t *testing.T) {
	ledger, _, repo := testServices(t)
	backup := NewBackupService(repo)
	ctx := context.Background()
	project := seedProject(t, ledger)

	doc := fmt.Sprintf(`{"payments": [{
		"id": "pay-1",
		"amount": 1250,
		"paymentMethod": "cash",
		"paymentDate": "2024-03-05",
		"status": "paid",
		"projectId": %q
	}]}`, project.ID)
	if err := backup.Import(ctx, []byte(doc)); err != nil {
		t.Fatal(err)
	}

	payments, err := repo.Payments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(payments) != 1 || payments[0].Amount.Cents != 125000 {
		t.Errorf("restored payments = %+v", payments)
	}
	projects, err := repo.Projects(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(projects) != 1 || projects[0].ID != project.ID {
		t.Errorf("projects after partial restore = %+v, want the seeded one kept", projects)
	}
}

func TestImportEmptyArrayClearsCollection(t *testing.T) {
	ledger, _, repo := testServices(t)
	backup := NewBackupService(repo)
	ctx := context.Background()
	project := seedProject(t, ledger)

	if err := backup.Import(ctx, []byte(`{"projects": []}`)); err != nil {
		t.Fatal(err)
	}
	projects, err := repo.Projects(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(projects) != 0 {
		t.Errorf("projects after clearing restore = %+v, want none (seeded %s)", projects, project.ID)
	}
}

func TestImportRejectsBadDocument(t *testing.T) {
	_, _, repo := testServices(t)
	backup := NewBackupService(repo)
	ctx := context.Background()

	if err := backup.Import(ctx, []byte("not json")); !errors.Is(err, ErrBadBackup) {
		t.Errorf("expected ErrBadBackup for garbage, got %v", err)
	}

	// A payment without a project reference must poison the whole import.
	bad := []byte(`{"payments":[{"id":"x","amount":10,"paymentMethod":"cash","paymentDate":"2024-03-01","status":"paid"}]}`)
	if err := backup.Import(ctx, bad); !errors.Is(err, ErrBadBackup) {
		t.Errorf("expected ErrBadBackup for invalid record, got %v", err)
	}
	payments, err := repo.Payments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(payments) != 0 {
		t.Errorf("failed import must not write, got %d payments", len(payments))
	}
}

func TestContractTotalDerivedFromLines(t *testing.T) {
	ledger, _, _ := testServices(t)
	ctx := context.Background()

	rec, err := ledger.CreateRecipient(ctx, core.Recipient{
		Name: "Usta", Type: core.RecipientContractor, Active: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	c, err := ledger.CreateContract(ctx, core.Contract{
		Name:        "Plastering",
		RecipientID: core.WeakRef(rec.ID),
		StartDate:   core.NewDate(2024, 1, 1),
		UnitPrice:   true,
		Lines: []core.ContractLine{
			{Name: "Wall", Quantity: 10, Unit: "m2", UnitPrice: core.Money{Cents: 5000}},
			{Name: "Ceiling", Quantity: 2, Unit: "m2", UnitPrice: core.Money{Cents: 20000}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if c.Amount.Cents != 90000 {
		t.Errorf("contract amount = %d, want 90000", c.Amount.Cents)
	}
	if c.Lines[0].LineTotal.Cents != 50000 {
		t.Errorf("line total = %d, want 50000", c.Lines[0].LineTotal.Cents)
	}
}
