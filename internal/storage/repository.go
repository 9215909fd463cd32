package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"insaat/internal/core"
)

// Collection keys inside the key-value store.
const (
	KeyProjects           = "projects"
	KeyRecipients         = "recipients"
	KeyCategories         = "categories"
	KeyMaterialCategories = "material_categories"
	KeyPayments           = "payments"
	KeyMaterials          = "materials"
	KeyContracts          = "contracts"
	KeySettings           = "settings"
)

var ErrNotFound = errors.New("record not found")

// Repository is the typed record store over the key-value boundary.
// Projects and recipients own their payments: deleting either cascades to
// the payment collection. Category references are weak and never cascade.
type Repository struct {
	store *Store
}

func NewRepository(store *Store) *Repository {
	return &Repository{store: store}
}

func loadCollection[T any](ctx context.Context, s *Store, key string) ([]T, error) {
	payload, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, nil
	}
	var items []T
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, fmt.Errorf("decode collection %s: %w", key, err)
	}
	return items, nil
}

func saveCollection[T any](ctx context.Context, s *Store, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode collection %s: %w", key, err)
	}
	return s.Set(ctx, key, payload)
}

func newID() string {
	return uuid.NewString()
}

// ---- projects ----

func (r *Repository) Projects(ctx context.Context) ([]core.Project, error) {
	return loadCollection[core.Project](ctx, r.store, KeyProjects)
}

func (r *Repository) Project(ctx context.Context, id string) (core.Project, error) {
	projects, err := r.Projects(ctx)
	if err != nil {
		return core.Project{}, err
	}
	for _, p := range projects {
		if p.ID == id {
			return p, nil
		}
	}
	return core.Project{}, ErrNotFound
}

func (r *Repository) AddProject(ctx context.Context, p core.Project) (core.Project, error) {
	projects, err := r.Projects(ctx)
	if err != nil {
		return core.Project{}, err
	}
	p.ID = newID()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	projects = append(projects, p)
	if err := saveCollection(ctx, r.store, KeyProjects, projects); err != nil {
		return core.Project{}, err
	}
	slog.InfoContext(ctx, "Project saved", "id", p.ID, "name", p.Name)
	return p, nil
}

func (r *Repository) UpdateProject(ctx context.Context, p core.Project) (core.Project, error) {
	projects, err := r.Projects(ctx)
	if err != nil {
		return core.Project{}, err
	}
	for i := range projects {
		if projects[i].ID == p.ID {
			p.CreatedAt = projects[i].CreatedAt
			p.UpdatedAt = time.Now()
			projects[i] = p
			return p, saveCollection(ctx, r.store, KeyProjects, projects)
		}
	}
	return core.Project{}, ErrNotFound
}

// DeleteProject removes the project and cascades to every payment that
// references it.
func (r *Repository) DeleteProject(ctx context.Context, id string) error {
	projects, err := r.Projects(ctx)
	if err != nil {
		return err
	}
	kept := projects[:0:0]
	found := false
	for _, p := range projects {
		if p.ID == id {
			found = true
			continue
		}
		kept = append(kept, p)
	}
	if !found {
		return ErrNotFound
	}
	if err := saveCollection(ctx, r.store, KeyProjects, kept); err != nil {
		return err
	}
	removed, err := r.deletePaymentsWhere(ctx, func(p core.Payment) bool {
		return string(p.ProjectID) == id
	})
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Project deleted", "id", id, "cascaded_payments", removed)
	return nil
}

// ---- recipients ----

func (r *Repository) Recipients(ctx context.Context) ([]core.Recipient, error) {
	return loadCollection[core.Recipient](ctx, r.store, KeyRecipients)
}

func (r *Repository) Recipient(ctx context.Context, id string) (core.Recipient, error) {
	recipients, err := r.Recipients(ctx)
	if err != nil {
		return core.Recipient{}, err
	}
	for _, rec := range recipients {
		if rec.ID == id {
			return rec, nil
		}
	}
	return core.Recipient{}, ErrNotFound
}

func (r *Repository) AddRecipient(ctx context.Context, rec core.Recipient) (core.Recipient, error) {
	recipients, err := r.Recipients(ctx)
	if err != nil {
		return core.Recipient{}, err
	}
	rec.ID = newID()
	rec.CreatedAt = time.Now()
	rec.UpdatedAt = rec.CreatedAt
	recipients = append(recipients, rec)
	if err := saveCollection(ctx, r.store, KeyRecipients, recipients); err != nil {
		return core.Recipient{}, err
	}
	slog.InfoContext(ctx, "Recipient saved", "id", rec.ID, "name", rec.Name, "type", rec.Type)
	return rec, nil
}

func (r *Repository) UpdateRecipient(ctx context.Context, rec core.Recipient) (core.Recipient, error) {
	recipients, err := r.Recipients(ctx)
	if err != nil {
		return core.Recipient{}, err
	}
	for i := range recipients {
		if recipients[i].ID == rec.ID {
			rec.CreatedAt = recipients[i].CreatedAt
			rec.UpdatedAt = time.Now()
			recipients[i] = rec
			return rec, saveCollection(ctx, r.store, KeyRecipients, recipients)
		}
	}
	return core.Recipient{}, ErrNotFound
}

// DeleteRecipient removes the recipient and cascades to its payments.
// Contracts and materials keep their reference; lookups resolve it as
// absent from then on.
func (r *Repository) DeleteRecipient(ctx context.Context, id string) error {
	recipients, err := r.Recipients(ctx)
	if err != nil {
		return err
	}
	kept := recipients[:0:0]
	found := false
	for _, rec := range recipients {
		if rec.ID == id {
			found = true
			continue
		}
		kept = append(kept, rec)
	}
	if !found {
		return ErrNotFound
	}
	if err := saveCollection(ctx, r.store, KeyRecipients, kept); err != nil {
		return err
	}
	removed, err := r.deletePaymentsWhere(ctx, func(p core.Payment) bool {
		return string(p.RecipientID) == id
	})
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Recipient deleted", "id", id, "cascaded_payments", removed)
	return nil
}

// ---- categories ----

func (r *Repository) Categories(ctx context.Context) ([]core.Category, error) {
	return loadCollection[core.Category](ctx, r.store, KeyCategories)
}

func (r *Repository) Category(ctx context.Context, id string) (core.Category, error) {
	categories, err := r.Categories(ctx)
	if err != nil {
		return core.Category{}, err
	}
	for _, c := range categories {
		if c.ID == id {
			return c, nil
		}
	}
	return core.Category{}, ErrNotFound
}

func (r *Repository) AddCategory(ctx context.Context, c core.Category) (core.Category, error) {
	categories, err := r.Categories(ctx)
	if err != nil {
		return core.Category{}, err
	}
	c.ID = newID()
	categories = append(categories, c)
	return c, saveCollection(ctx, r.store, KeyCategories, categories)
}

func (r *Repository) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	categories, err := r.Categories(ctx)
	if err != nil {
		return core.Category{}, err
	}
	for i := range categories {
		if categories[i].ID == c.ID {
			categories[i] = c
			return c, saveCollection(ctx, r.store, KeyCategories, categories)
		}
	}
	return core.Category{}, ErrNotFound
}

// DeleteCategory removes only the category. Payments keep their now
// dangling reference; reports render it as unknown.
func (r *Repository) DeleteCategory(ctx context.Context, id string) error {
	categories, err := r.Categories(ctx)
	if err != nil {
		return err
	}
	kept := categories[:0:0]
	found := false
	for _, c := range categories {
		if c.ID == id {
			found = true
			continue
		}
		kept = append(kept, c)
	}
	if !found {
		return ErrNotFound
	}
	return saveCollection(ctx, r.store, KeyCategories, kept)
}

// ---- material categories ----

func (r *Repository) MaterialCategories(ctx context.Context) ([]core.MaterialCategory, error) {
	return loadCollection[core.MaterialCategory](ctx, r.store, KeyMaterialCategories)
}

func (r *Repository) MaterialCategory(ctx context.Context, id string) (core.MaterialCategory, error) {
	categories, err := r.MaterialCategories(ctx)
	if err != nil {
		return core.MaterialCategory{}, err
	}
	for _, c := range categories {
		if c.ID == id {
			return c, nil
		}
	}
	return core.MaterialCategory{}, ErrNotFound
}

func (r *Repository) AddMaterialCategory(ctx context.Context, c core.MaterialCategory) (core.MaterialCategory, error) {
	categories, err := r.MaterialCategories(ctx)
	if err != nil {
		return core.MaterialCategory{}, err
	}
	c.ID = newID()
	categories = append(categories, c)
	return c, saveCollection(ctx, r.store, KeyMaterialCategories, categories)
}

func (r *Repository) UpdateMaterialCategory(ctx context.Context, c core.MaterialCategory) (core.MaterialCategory, error) {
	categories, err := r.MaterialCategories(ctx)
	if err != nil {
		return core.MaterialCategory{}, err
	}
	for i := range categories {
		if categories[i].ID == c.ID {
			categories[i] = c
			return c, saveCollection(ctx, r.store, KeyMaterialCategories, categories)
		}
	}
	return core.MaterialCategory{}, ErrNotFound
}

func (r *Repository) DeleteMaterialCategory(ctx context.Context, id string) error {
	categories, err := r.MaterialCategories(ctx)
	if err != nil {
		return err
	}
	kept := categories[:0:0]
	found := false
	for _, c := range categories {
		if c.ID == id {
			found = true
			continue
		}
		kept = append(kept, c)
	}
	if !found {
		return ErrNotFound
	}
	return saveCollection(ctx, r.store, KeyMaterialCategories, kept)
}

// ---- payments ----

func (r *Repository) Payments(ctx context.Context) ([]core.Payment, error) {
	return loadCollection[core.Payment](ctx, r.store, KeyPayments)
}

func (r *Repository) Payment(ctx context.Context, id string) (core.Payment, error) {
	payments, err := r.Payments(ctx)
	if err != nil {
		return core.Payment{}, err
	}
	for _, p := range payments {
		if p.ID == id {
			return p, nil
		}
	}
	return core.Payment{}, ErrNotFound
}

func (r *Repository) AddPayment(ctx context.Context, p core.Payment) (core.Payment, error) {
	payments, err := r.Payments(ctx)
	if err != nil {
		return core.Payment{}, err
	}
	p.ID = newID()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	payments = append(payments, p)
	if err := saveCollection(ctx, r.store, KeyPayments, payments); err != nil {
		return core.Payment{}, err
	}
	slog.InfoContext(ctx, "Payment saved",
		"id", p.ID,
		"amount_cents", p.Amount.Cents,
		"method", p.Method,
		"project_id", p.ProjectID)
	return p, nil
}

func (r *Repository) UpdatePayment(ctx context.Context, p core.Payment) (core.Payment, error) {
	payments, err := r.Payments(ctx)
	if err != nil {
		return core.Payment{}, err
	}
	for i := range payments {
		if payments[i].ID == p.ID {
			p.CreatedAt = payments[i].CreatedAt
			p.UpdatedAt = time.Now()
			payments[i] = p
			return p, saveCollection(ctx, r.store, KeyPayments, payments)
		}
	}
	return core.Payment{}, ErrNotFound
}

func (r *Repository) DeletePayment(ctx context.Context, id string) error {
	payments, err := r.Payments(ctx)
	if err != nil {
		return err
	}
	kept := payments[:0:0]
	found := false
	for _, p := range payments {
		if p.ID == id {
			found = true
			continue
		}
		kept = append(kept, p)
	}
	if !found {
		return ErrNotFound
	}
	return saveCollection(ctx, r.store, KeyPayments, kept)
}

func (r *Repository) deletePaymentsWhere(ctx context.Context, match func(core.Payment) bool) (int, error) {
	payments, err := r.Payments(ctx)
	if err != nil {
		return 0, err
	}
	kept := payments[:0:0]
	removed := 0
	for _, p := range payments {
		if match(p) {
			removed++
			continue
		}
		kept = append(kept, p)
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, saveCollection(ctx, r.store, KeyPayments, kept)
}

// ---- materials ----

func (r *Repository) Materials(ctx context.Context) ([]core.Material, error) {
	return loadCollection[core.Material](ctx, r.store, KeyMaterials)
}

func (r *Repository) Material(ctx context.Context, id string) (core.Material, error) {
	materials, err := r.Materials(ctx)
	if err != nil {
		return core.Material{}, err
	}
	for _, m := range materials {
		if m.ID == id {
			return m, nil
		}
	}
	return core.Material{}, ErrNotFound
}

func (r *Repository) AddMaterial(ctx context.Context, m core.Material) (core.Material, error) {
	materials, err := r.Materials(ctx)
	if err != nil {
		return core.Material{}, err
	}
	m.ID = newID()
	m.CreatedAt = time.Now()
	m.UpdatedAt = m.CreatedAt
	materials = append(materials, m)
	if err := saveCollection(ctx, r.store, KeyMaterials, materials); err != nil {
		return core.Material{}, err
	}
	return m, nil
}

func (r *Repository) UpdateMaterial(ctx context.Context, m core.Material) (core.Material, error) {
	materials, err := r.Materials(ctx)
	if err != nil {
		return core.Material{}, err
	}
	for i := range materials {
		if materials[i].ID == m.ID {
			m.CreatedAt = materials[i].CreatedAt
			m.UpdatedAt = time.Now()
			materials[i] = m
			return m, saveCollection(ctx, r.store, KeyMaterials, materials)
		}
	}
	return core.Material{}, ErrNotFound
}

func (r *Repository) DeleteMaterial(ctx context.Context, id string) error {
	materials, err := r.Materials(ctx)
	if err != nil {
		return err
	}
	kept := materials[:0:0]
	found := false
	for _, m := range materials {
		if m.ID == id {
			found = true
			continue
		}
		kept = append(kept, m)
	}
	if !found {
		return ErrNotFound
	}
	return saveCollection(ctx, r.store, KeyMaterials, kept)
}

// ---- contracts ----

func (r *Repository) Contracts(ctx context.Context) ([]core.Contract, error) {
	return loadCollection[core.Contract](ctx, r.store, KeyContracts)
}

func (r *Repository) Contract(ctx context.Context, id string) (core.Contract, error) {
	contracts, err := r.Contracts(ctx)
	if err != nil {
		return core.Contract{}, err
	}
	for _, c := range contracts {
		if c.ID == id {
			return c, nil
		}
	}
	return core.Contract{}, ErrNotFound
}

func (r *Repository) AddContract(ctx context.Context, c core.Contract) (core.Contract, error) {
	contracts, err := r.Contracts(ctx)
	if err != nil {
		return core.Contract{}, err
	}
	c.ID = newID()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	contracts = append(contracts, c)
	if err := saveCollection(ctx, r.store, KeyContracts, contracts); err != nil {
		return core.Contract{}, err
	}
	return c, nil
}

func (r *Repository) UpdateContract(ctx context.Context, c core.Contract) (core.Contract, error) {
	contracts, err := r.Contracts(ctx)
	if err != nil {
		return core.Contract{}, err
	}
	for i := range contracts {
		if contracts[i].ID == c.ID {
			c.CreatedAt = contracts[i].CreatedAt
			c.UpdatedAt = time.Now()
			contracts[i] = c
			return c, saveCollection(ctx, r.store, KeyContracts, contracts)
		}
	}
	return core.Contract{}, ErrNotFound
}

func (r *Repository) DeleteContract(ctx context.Context, id string) error {
	contracts, err := r.Contracts(ctx)
	if err != nil {
		return err
	}
	kept := contracts[:0:0]
	found := false
	for _, c := range contracts {
		if c.ID == id {
			found = true
			continue
		}
		kept = append(kept, c)
	}
	if !found {
		return ErrNotFound
	}
	return saveCollection(ctx, r.store, KeyContracts, kept)
}

func (r *Repository) ContractsByRecipient(ctx context.Context, recipientID string) ([]core.Contract, error) {
	contracts, err := r.Contracts(ctx)
	if err != nil {
		return nil, err
	}
	var out []core.Contract
	for _, c := range contracts {
		if string(c.RecipientID) == recipientID {
			out = append(out, c)
		}
	}
	return out, nil
}

// ---- settings ----

func (r *Repository) Settings(ctx context.Context) (map[string]string, error) {
	settings, err := loadCollection[map[string]string](ctx, r.store, KeySettings)
	if err != nil {
		return nil, err
	}
	if len(settings) == 0 {
		return map[string]string{}, nil
	}
	return settings[0], nil
}

func (r *Repository) SetSettings(ctx context.Context, settings map[string]string) error {
	return saveCollection(ctx, r.store, KeySettings, []map[string]string{settings})
}

// ---- bulk access (backup / restore) ----

// ReplaceCollections overwrites the given collections with pre-encoded
// records in one transaction. Used by restore, which validates the whole
// document before any write. Keys absent from the map keep their stored
// contents.
func (r *Repository) ReplaceCollections(ctx context.Context, payloads map[string][]byte) error {
	return r.store.SetAll(ctx, payloads)
}