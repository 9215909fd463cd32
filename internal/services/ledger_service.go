package services

import (
	"context"
	"fmt"
	"log/slog"

	"insaat/internal/amqp"
	"insaat/internal/core"
	"insaat/internal/storage"
)

// LedgerService orchestrates record mutations: validation, persistence,
// report cache invalidation and change publication.
type LedgerService struct {
	repo       *storage.Repository
	amqpClient *amqp.Client
	reports    *ReportService
}

func NewLedgerService(repo *storage.Repository, amqpClient *amqp.Client, reports *ReportService) *LedgerService {
	return &LedgerService{
		repo:       repo,
		amqpClient: amqpClient,
		reports:    reports,
	}
}

// ---- payments ----

// CreatePayment validates, applies entry defaults, saves locally and
// publishes a change message.
func (s *LedgerService) CreatePayment(ctx context.Context, p core.Payment) (core.Payment, error) {
	p.Normalize()
	if err := p.Validate(); err != nil {
		return core.Payment{}, err
	}

	// Save locally first (fast, reliable)
	saved, err := s.repo.AddPayment(ctx, p)
	if err != nil {
		return core.Payment{}, fmt.Errorf("save payment: %w", err)
	}
	s.invalidateReports()

	// Publish async change message (non-blocking)
	s.publishChange(ctx, storage.KeyPayments, saved.ID, amqp.OpCreate)

	return saved, nil
}

func (s *LedgerService) UpdatePayment(ctx context.Context, p core.Payment) (core.Payment, error) {
	p.Normalize()
	if err := p.Validate(); err != nil {
		return core.Payment{}, err
	}

	saved, err := s.repo.UpdatePayment(ctx, p)
	if err != nil {
		return core.Payment{}, err
	}
	s.invalidateReports()

	s.publishChange(ctx, storage.KeyPayments, saved.ID, amqp.OpUpdate)

	return saved, nil
}

func (s *LedgerService) DeletePayment(ctx context.Context, id string) error {
	if err := s.repo.DeletePayment(ctx, id); err != nil {
		return err
	}
	s.invalidateReports()

	s.publishChange(ctx, storage.KeyPayments, id, amqp.OpDelete)

	return nil
}

func (s *LedgerService) Payment(ctx context.Context, id string) (core.Payment, error) {
	return s.repo.Payment(ctx, id)
}

// Payments returns the payment set satisfying the filter criteria.
func (s *LedgerService) Payments(ctx context.Context, f core.PaymentFilter) ([]core.Payment, error) {
	payments, err := s.repo.Payments(ctx)
	if err != nil {
		return nil, err
	}
	return core.FilterPayments(payments, f), nil
}

// ---- projects ----

func (s *LedgerService) Projects(ctx context.Context) ([]core.Project, error) {
	return s.repo.Projects(ctx)
}

func (s *LedgerService) Project(ctx context.Context, id string) (core.Project, error) {
	return s.repo.Project(ctx, id)
}

func (s *LedgerService) CreateProject(ctx context.Context, p core.Project) (core.Project, error) {
	if p.Status == "" {
		p.Status = core.ProjectActive
	}
	if err := p.Validate(); err != nil {
		return core.Project{}, err
	}
	saved, err := s.repo.AddProject(ctx, p)
	if err != nil {
		return core.Project{}, err
	}
	s.invalidateReports()
	return saved, nil
}

func (s *LedgerService) UpdateProject(ctx context.Context, p core.Project) (core.Project, error) {
	if err := p.Validate(); err != nil {
		return core.Project{}, err
	}
	saved, err := s.repo.UpdateProject(ctx, p)
	if err != nil {
		return core.Project{}, err
	}
	s.invalidateReports()
	return saved, nil
}

// DeleteProject removes the project together with its payments.
func (s *LedgerService) DeleteProject(ctx context.Context, id string) error {
	if err := s.repo.DeleteProject(ctx, id); err != nil {
		return err
	}
	s.invalidateReports()
	return nil
}

// ---- recipients ----

func (s *LedgerService) Recipients(ctx context.Context) ([]core.Recipient, error) {
	return s.repo.Recipients(ctx)
}

func (s *LedgerService) Recipient(ctx context.Context, id string) (core.Recipient, error) {
	return s.repo.Recipient(ctx, id)
}

func (s *LedgerService) CreateRecipient(ctx context.Context, r core.Recipient) (core.Recipient, error) {
	if err := r.Validate(); err != nil {
		return core.Recipient{}, err
	}
	saved, err := s.repo.AddRecipient(ctx, r)
	if err != nil {
		return core.Recipient{}, err
	}
	s.invalidateReports()
	return saved, nil
}

func (s *LedgerService) UpdateRecipient(ctx context.Context, r core.Recipient) (core.Recipient, error) {
	if err := r.Validate(); err != nil {
		return core.Recipient{}, err
	}
	saved, err := s.repo.UpdateRecipient(ctx, r)
	if err != nil {
		return core.Recipient{}, err
	}
	s.invalidateReports()
	return saved, nil
}

// DeleteRecipient removes the recipient together with its payments.
func (s *LedgerService) DeleteRecipient(ctx context.Context, id string) error {
	if err := s.repo.DeleteRecipient(ctx, id); err != nil {
		return err
	}
	s.invalidateReports()
	return nil
}

// ---- categories ----

func (s *LedgerService) Categories(ctx context.Context) ([]core.Category, error) {
	return s.repo.Categories(ctx)
}

func (s *LedgerService) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	saved, err := s.repo.AddCategory(ctx, c)
	if err != nil {
		return core.Category{}, err
	}
	s.invalidateReports()
	return saved, nil
}

func (s *LedgerService) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	saved, err := s.repo.UpdateCategory(ctx, c)
	if err != nil {
		return core.Category{}, err
	}
	s.invalidateReports()
	return saved, nil
}

// DeleteCategory removes the category only. Payments keep the reference
// and report as unknown from then on.
func (s *LedgerService) DeleteCategory(ctx context.Context, id string) error {
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.invalidateReports()
	return nil
}

// ---- material categories ----

func (s *LedgerService) MaterialCategories(ctx context.Context) ([]core.MaterialCategory, error) {
	return s.repo.MaterialCategories(ctx)
}

func (s *LedgerService) CreateMaterialCategory(ctx context.Context, c core.MaterialCategory) (core.MaterialCategory, error) {
	if err := c.Validate(); err != nil {
		return core.MaterialCategory{}, err
	}
	return s.repo.AddMaterialCategory(ctx, c)
}

func (s *LedgerService) UpdateMaterialCategory(ctx context.Context, c core.MaterialCategory) (core.MaterialCategory, error) {
	if err := c.Validate(); err != nil {
		return core.MaterialCategory{}, err
	}
	return s.repo.UpdateMaterialCategory(ctx, c)
}

func (s *LedgerService) DeleteMaterialCategory(ctx context.Context, id string) error {
	return s.repo.DeleteMaterialCategory(ctx, id)
}

// ---- materials ----

func (s *LedgerService) Materials(ctx context.Context, search string) ([]core.Material, error) {
	materials, err := s.repo.Materials(ctx)
	if err != nil {
		return nil, err
	}
	return core.Search(materials, search), nil
}

func (s *LedgerService) Material(ctx context.Context, id string) (core.Material, error) {
	return s.repo.Material(ctx, id)
}

func (s *LedgerService) CreateMaterial(ctx context.Context, m core.Material) (core.Material, error) {
	if err := m.Validate(); err != nil {
		return core.Material{}, err
	}
	return s.repo.AddMaterial(ctx, m)
}

func (s *LedgerService) UpdateMaterial(ctx context.Context, m core.Material) (core.Material, error) {
	if err := m.Validate(); err != nil {
		return core.Material{}, err
	}
	return s.repo.UpdateMaterial(ctx, m)
}

func (s *LedgerService) DeleteMaterial(ctx context.Context, id string) error {
	return s.repo.DeleteMaterial(ctx, id)
}

// ---- contracts ----

func (s *LedgerService) Contracts(ctx context.Context) ([]core.Contract, error) {
	return s.repo.Contracts(ctx)
}

func (s *LedgerService) Contract(ctx context.Context, id string) (core.Contract, error) {
	return s.repo.Contract(ctx, id)
}

func (s *LedgerService) ContractsByRecipient(ctx context.Context, recipientID string) ([]core.Contract, error) {
	return s.repo.ContractsByRecipient(ctx, recipientID)
}

// CreateContract re-derives line totals before validation so the stored
// amount always matches the lines.
func (s *LedgerService) CreateContract(ctx context.Context, c core.Contract) (core.Contract, error) {
	c.RecalcTotal()
	if c.Status == "" {
		c.Status = core.ContractActive
	}
	if err := c.Validate(); err != nil {
		return core.Contract{}, err
	}
	return s.repo.AddContract(ctx, c)
}

func (s *LedgerService) UpdateContract(ctx context.Context, c core.Contract) (core.Contract, error) {
	c.RecalcTotal()
	if err := c.Validate(); err != nil {
		return core.Contract{}, err
	}
	return s.repo.UpdateContract(ctx, c)
}

func (s *LedgerService) DeleteContract(ctx context.Context, id string) error {
	return s.repo.DeleteContract(ctx, id)
}

// ---- internals ----

func (s *LedgerService) invalidateReports() {
	if s.reports != nil {
		s.reports.Invalidate()
	}
}

func (s *LedgerService) publishChange(ctx context.Context, collection, id, op string) {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping change message")
		return
	}
	if err := s.amqpClient.PublishRecordChange(ctx, collection, id, op); err != nil {
		// Don't fail the request - the record is saved locally
		slog.ErrorContext(ctx, "Failed to publish change message",
			"collection", collection, "id", id, "op", op, "error", err)
	}
}
