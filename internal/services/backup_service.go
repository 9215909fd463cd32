package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"insaat/internal/core"
	"insaat/internal/storage"
)

// ErrBadBackup is returned when a backup document fails validation. No
// collection is touched in that case.
var ErrBadBackup = errors.New("invalid backup document")

// BackupDocument is the portable JSON form of the whole ledger.
type BackupDocument struct {
	ExportedAt         time.Time               `json:"exportedAt"`
	Projects           []core.Project          `json:"projects"`
	Recipients         []core.Recipient        `json:"recipients"`
	Categories         []core.Category         `json:"categories"`
	MaterialCategories []core.MaterialCategory `json:"materialCategories"`
	Payments           []core.Payment          `json:"payments"`
	Materials          []core.Material         `json:"materials"`
	Contracts          []core.Contract         `json:"contracts"`
	Settings           map[string]string       `json:"settings"`
}

// BackupService exports and restores the full ledger as one JSON document.
type BackupService struct {
	repo *storage.Repository
}

func NewBackupService(repo *storage.Repository) *BackupService {
	return &BackupService{repo: repo}
}

// Export serializes every collection into a single document stamped with
// the export time.
func (s *BackupService) Export(ctx context.Context) ([]byte, error) {
	doc := BackupDocument{ExportedAt: time.Now()}

	var err error
	if doc.Projects, err = s.repo.Projects(ctx); err != nil {
		return nil, fmt.Errorf("export projects: %w", err)
	}
	if doc.Recipients, err = s.repo.Recipients(ctx); err != nil {
		return nil, fmt.Errorf("export recipients: %w", err)
	}
	if doc.Categories, err = s.repo.Categories(ctx); err != nil {
		return nil, fmt.Errorf("export categories: %w", err)
	}
	if doc.MaterialCategories, err = s.repo.MaterialCategories(ctx); err != nil {
		return nil, fmt.Errorf("export material categories: %w", err)
	}
	if doc.Payments, err = s.repo.Payments(ctx); err != nil {
		return nil, fmt.Errorf("export payments: %w", err)
	}
	if doc.Materials, err = s.repo.Materials(ctx); err != nil {
		return nil, fmt.Errorf("export materials: %w", err)
	}
	if doc.Contracts, err = s.repo.Contracts(ctx); err != nil {
		return nil, fmt.Errorf("export contracts: %w", err)
	}
	if doc.Settings, err = s.repo.Settings(ctx); err != nil {
		return nil, fmt.Errorf("export settings: %w", err)
	}

	return json.MarshalIndent(doc, "", "  ")
}

// Import replaces the ledger with the document's contents. The whole
// document is parsed and validated before the first write, so a bad
// document leaves the store untouched.
func (s *BackupService) Import(ctx context.Context, data []byte) error {
	var doc BackupDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrBadBackup, err)
	}

	if err := validateBackup(doc); err != nil {
		return err
	}

	// Only collections present in the document are replaced. A missing
	// field stays nil through unmarshal; an explicit empty array does not,
	// so partial documents leave the other collections untouched while an
	// empty array still clears its collection.
	writes := []struct {
		key     string
		present bool
		items   any
	}{
		{storage.KeyProjects, doc.Projects != nil, doc.Projects},
		{storage.KeyRecipients, doc.Recipients != nil, doc.Recipients},
		{storage.KeyCategories, doc.Categories != nil, doc.Categories},
		{storage.KeyMaterialCategories, doc.MaterialCategories != nil, doc.MaterialCategories},
		{storage.KeyPayments, doc.Payments != nil, doc.Payments},
		{storage.KeyMaterials, doc.Materials != nil, doc.Materials},
		{storage.KeyContracts, doc.Contracts != nil, doc.Contracts},
		{storage.KeySettings, doc.Settings != nil, []map[string]string{doc.Settings}},
	}
	payloads := make(map[string][]byte, len(writes))
	for _, w := range writes {
		if !w.present {
			continue
		}
		payload, err := json.Marshal(w.items)
		if err != nil {
			return fmt.Errorf("encode %s: %w", w.key, err)
		}
		payloads[w.key] = payload
	}
	if err := s.repo.ReplaceCollections(ctx, payloads); err != nil {
		return fmt.Errorf("restore collections: %w", err)
	}

	slog.InfoContext(ctx, "Backup restored",
		"payments", len(doc.Payments),
		"projects", len(doc.Projects),
		"exported_at", doc.ExportedAt)
	return nil
}

func validateBackup(doc BackupDocument) error {
	for _, p := range doc.Projects {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%w: project %q: %v", ErrBadBackup, p.ID, err)
		}
	}
	for _, r := range doc.Recipients {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("%w: recipient %q: %v", ErrBadBackup, r.ID, err)
		}
	}
	for _, c := range doc.Categories {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("%w: category %q: %v", ErrBadBackup, c.ID, err)
		}
	}
	for _, c := range doc.MaterialCategories {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("%w: material category %q: %v", ErrBadBackup, c.ID, err)
		}
	}
	for _, p := range doc.Payments {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%w: payment %q: %v", ErrBadBackup, p.ID, err)
		}
	}
	for _, m := range doc.Materials {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("%w: material %q: %v", ErrBadBackup, m.ID, err)
		}
	}
	for _, c := range doc.Contracts {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("%w: contract %q: %v", ErrBadBackup, c.ID, err)
		}
	}
	return nil
}
