package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"insaat/internal/core"
)

func testRepo(t *testing.T) *Repository {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "insaat.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewRepository(store)
}

func TestProjectCRUD(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	p, err := repo.AddProject(ctx, core.Project{
		Name:      "Tower A",
		StartDate: core.NewDate(2024, 1, 1),
		Status:    core.ProjectActive,
		Active:    true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if p.ID == "" || p.CreatedAt.IsZero() {
		t.Fatalf("add must stamp id and created_at: %+v", p)
	}

	got, err := repo.Project(ctx, p.ID)
	if err != nil || got.Name != "Tower A" {
		t.Fatalf("get = %+v, %v", got, err)
	}

	got.Status = core.ProjectPaused
	updated, err := repo.UpdateProject(ctx, got)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != core.ProjectPaused || !updated.CreatedAt.Equal(p.CreatedAt) {
		t.Fatalf("update = %+v", updated)
	}

	if err := repo.DeleteProject(ctx, p.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Project(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteProjectCascadesPayments(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	proj, _ := repo.AddProject(ctx, core.Project{Name: "Site", StartDate: core.NewDate(2024, 1, 1), Status: core.ProjectActive})
	other, _ := repo.AddProject(ctx, core.Project{Name: "Other", StartDate: core.NewDate(2024, 1, 1), Status: core.ProjectActive})

	mk := func(projectID string) core.Payment {
		return core.Payment{
			Amount:      core.Money{Cents: 1000},
			Method:      core.MethodCash,
			PaymentDate: core.NewDate(2024, 2, 1),
			Status:      core.StatusPaid,
			ProjectID:   core.Ref(projectID),
		}
	}
	repo.AddPayment(ctx, mk(proj.ID))
	repo.AddPayment(ctx, mk(proj.ID))
	survivor, _ := repo.AddPayment(ctx, mk(other.ID))

	if err := repo.DeleteProject(ctx, proj.ID); err != nil {
		t.Fatal(err)
	}

	payments, err := repo.Payments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(payments) != 1 || payments[0].ID != survivor.ID {
		t.Fatalf("cascade left %d payments", len(payments))
	}
}

func TestDeleteRecipientCascadesPayments(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	rec, _ := repo.AddRecipient(ctx, core.Recipient{Name: "Acme", Type: core.RecipientContractor})
	proj, _ := repo.AddProject(ctx, core.Project{Name: "Site", StartDate: core.NewDate(2024, 1, 1), Status: core.ProjectActive})
	repo.AddPayment(ctx, core.Payment{
		Amount:      core.Money{Cents: 1000},
		Method:      core.MethodCash,
		PaymentDate: core.NewDate(2024, 2, 1),
		Status:      core.StatusPaid,
		ProjectID:   core.Ref(proj.ID),
		RecipientID: core.Ref(rec.ID),
	})

	if err := repo.DeleteRecipient(ctx, rec.ID); err != nil {
		t.Fatal(err)
	}
	payments, _ := repo.Payments(ctx)
	if len(payments) != 0 {
		t.Fatalf("cascade left %d payments", len(payments))
	}
}

func TestDeleteCategoryLeavesPayments(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	cat, _ := repo.AddCategory(ctx, core.Category{Name: "Concrete", Color: "#fff", Icon: "build"})
	proj, _ := repo.AddProject(ctx, core.Project{Name: "Site", StartDate: core.NewDate(2024, 1, 1), Status: core.ProjectActive})
	p, _ := repo.AddPayment(ctx, core.Payment{
		Amount:      core.Money{Cents: 1000},
		Method:      core.MethodCash,
		PaymentDate: core.NewDate(2024, 2, 1),
		Status:      core.StatusPaid,
		ProjectID:   core.Ref(proj.ID),
		CategoryID:  core.WeakRef(cat.ID),
	})

	if err := repo.DeleteCategory(ctx, cat.ID); err != nil {
		t.Fatal(err)
	}

	got, err := repo.Payment(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if string(got.CategoryID) != cat.ID {
		t.Fatalf("payment must keep its dangling category reference, got %q", got.CategoryID)
	}
	if _, err := repo.Category(ctx, cat.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("category lookup = %v, want ErrNotFound", err)
	}
}

func TestEnsureDefaults(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	if err := repo.EnsureDefaults(ctx); err != nil {
		t.Fatal(err)
	}
	categories, _ := repo.Categories(ctx)
	if len(categories) != len(defaultCategories) {
		t.Fatalf("seeded %d categories", len(categories))
	}
	materialCategories, _ := repo.MaterialCategories(ctx)
	if len(materialCategories) != len(defaultMaterialCategories) {
		t.Fatalf("seeded %d material categories", len(materialCategories))
	}

	// Second run is a no-op.
	if err := repo.EnsureDefaults(ctx); err != nil {
		t.Fatal(err)
	}
	again, _ := repo.Categories(ctx)
	if len(again) != len(categories) {
		t.Fatal("defaults must not be re-seeded")
	}

	// User-managed collections are never reset.
	repo.DeleteCategory(ctx, categories[0].ID)
	repo.AddCategory(ctx, core.Category{Name: "Custom"})
}

func TestContractPersistsLines(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	c := core.Contract{
		Name:        "foundation",
		RecipientID: "rec-1",
		StartDate:   core.NewDate(2024, 1, 1),
		Status:      core.ContractActive,
		UnitPrice:   true,
		Lines: []core.ContractLine{
			{Name: "excavation", Quantity: 10, Unit: "m3", UnitPrice: core.Money{Cents: 5000}},
		},
	}
	c.RecalcTotal()
	saved, err := repo.AddContract(ctx, c)
	if err != nil {
		t.Fatal(err)
	}

	got, err := repo.Contract(ctx, saved.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Lines) != 1 || got.Lines[0].LineTotal.Cents != 50000 || got.Amount.Cents != 50000 {
		t.Fatalf("roundtrip = %+v", got)
	}
}

func TestReplaceCollectionsWritesAllKeys(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	payloads := map[string][]byte{
		KeyProjects:   []byte(`[{"id": "p1", "name": "Tower A", "startDate": "2024-01-01", "status": "active", "active": true}]`),
		KeyCategories: []byte(`[{"id": "c1", "name": "Concrete", "color": "#8a8a8a", "icon": "box"}]`),
	}
	if err := repo.ReplaceCollections(ctx, payloads); err != nil {
		t.Fatal(err)
	}

	projects, err := repo.Projects(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(projects) != 1 || projects[0].ID != "p1" {
		t.Errorf("projects = %+v", projects)
	}
	categories, err := repo.Categories(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(categories) != 1 || categories[0].Name != "Concrete" {
		t.Errorf("categories = %+v", categories)
	}
}
