package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"insaat/internal/cache"
	"insaat/internal/core"
	"insaat/internal/storage"
)

// ErrMissingRange is returned when a report is requested without both
// date bounds. Reports never fall back to an implicit range.
var ErrMissingRange = errors.New("report requires both start and end dates")

const (
	reportCacheSize = 64
	reportCacheTTL  = 5 * time.Minute
)

// ReportCriteria narrows the payment set a report runs over. From and To
// are mandatory; the reference filters are optional.
type ReportCriteria struct {
	From        core.Date
	To          core.Date
	ProjectID   core.WeakRef
	RecipientID core.WeakRef
	CategoryID  core.WeakRef
}

func (c ReportCriteria) cacheKey() string {
	return strings.Join([]string{
		c.From.String(), c.To.String(),
		string(c.ProjectID), string(c.RecipientID), string(c.CategoryID),
	}, "|")
}

// Stats is the dashboard summary computed over the whole ledger.
type Stats struct {
	ActiveProjects  int                 `json:"activeProjects"`
	PendingPayments int                 `json:"pendingPayments"`
	MonthTotal      core.Money          `json:"monthTotal"`
	MonthChangePct  float64             `json:"monthChangePct"`
	TopCategory     core.TopGroupResult `json:"topCategory"`
	TopRecipient    core.TopGroupResult `json:"topRecipient"`
	PaymentCount    int                 `json:"paymentCount"`
	MaterialCount   int                 `json:"materialCount"`
	ContractCount   int                 `json:"contractCount"`
	RecipientCount  int                 `json:"recipientCount"`
}

// ReportService generates period reports and dashboard stats. Results are
// cached per criteria; any ledger mutation purges the cache.
type ReportService struct {
	repo    *storage.Repository
	reports *cache.LRUCache[core.Report]
}

func NewReportService(repo *storage.Repository) *ReportService {
	return &ReportService{
		repo:    repo,
		reports: cache.NewLRUCache[core.Report](reportCacheSize, reportCacheTTL),
	}
}

// Cache exposes the report cache for lifecycle registration.
func (s *ReportService) Cache() *cache.LRUCache[core.Report] {
	return s.reports
}

// Invalidate drops every cached report.
func (s *ReportService) Invalidate() {
	s.reports.Purge()
}

// Generate builds the full report for the given criteria: period summary
// plus category, project and recipient breakdowns, all computed from one
// filtered payment set.
func (s *ReportService) Generate(ctx context.Context, criteria ReportCriteria) (core.Report, error) {
	if criteria.From.IsZero() || criteria.To.IsZero() {
		return core.Report{}, ErrMissingRange
	}

	key := criteria.cacheKey()
	if report, ok := s.reports.Get(key); ok {
		return report, nil
	}

	payments, err := s.repo.Payments(ctx)
	if err != nil {
		return core.Report{}, fmt.Errorf("load payments: %w", err)
	}
	filtered := core.FilterPayments(payments, core.PaymentFilter{
		From:        criteria.From,
		To:          criteria.To,
		ProjectID:   criteria.ProjectID,
		RecipientID: criteria.RecipientID,
		CategoryID:  criteria.CategoryID,
	})

	res, err := s.Resolver(ctx)
	if err != nil {
		return core.Report{}, err
	}

	report := core.BuildReport(filtered, criteria.From, criteria.To, res)
	s.reports.Set(key, report)
	return report, nil
}

// Stats computes the dashboard summary for today's month.
func (s *ReportService) Stats(ctx context.Context, today core.Date) (Stats, error) {
	payments, err := s.repo.Payments(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("load payments: %w", err)
	}
	projects, err := s.repo.Projects(ctx)
	if err != nil {
		return Stats{}, err
	}
	materials, err := s.repo.Materials(ctx)
	if err != nil {
		return Stats{}, err
	}
	contracts, err := s.repo.Contracts(ctx)
	if err != nil {
		return Stats{}, err
	}
	recipients, err := s.repo.Recipients(ctx)
	if err != nil {
		return Stats{}, err
	}
	res, err := s.Resolver(ctx)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{
		PaymentCount:   len(payments),
		MaterialCount:  len(materials),
		ContractCount:  len(contracts),
		RecipientCount: len(recipients),
	}
	for _, p := range projects {
		if p.Status == core.ProjectActive {
			stats.ActiveProjects++
		}
	}
	for _, p := range payments {
		if p.Status == core.StatusPending {
			stats.PendingPayments++
		}
	}

	month := core.FilterPayments(payments, core.PaymentFilter{
		From: today.FirstOfMonth(),
		To:   today.LastOfMonth(),
	})
	prevDay := today.FirstOfMonth().AddDays(-1)
	prevMonth := core.FilterPayments(payments, core.PaymentFilter{
		From: prevDay.FirstOfMonth(),
		To:   prevDay.LastOfMonth(),
	})

	stats.MonthTotal = core.SumAmounts(month)
	prevTotal := core.SumAmounts(prevMonth)
	diff := core.Money{Cents: stats.MonthTotal.Cents - prevTotal.Cents}
	stats.MonthChangePct = core.PercentageOf(diff, prevTotal)

	stats.TopCategory = core.TopGroup(month, core.GroupByCategory, func(key string) (string, bool) {
		return res.CategoryName(key)
	})
	stats.TopRecipient = core.TopGroup(month, core.GroupByRecipient, func(key string) (string, bool) {
		name, _, ok := res.RecipientInfo(key)
		return name, ok
	})
	return stats, nil
}

// Resolver snapshots the reference collections into a lookup table. The
// Excel export reuses it to render names for the filtered payment set.
func (s *ReportService) Resolver(ctx context.Context) (core.Resolver, error) {
	projects, err := s.repo.Projects(ctx)
	if err != nil {
		return nil, fmt.Errorf("load projects: %w", err)
	}
	recipients, err := s.repo.Recipients(ctx)
	if err != nil {
		return nil, fmt.Errorf("load recipients: %w", err)
	}
	categories, err := s.repo.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}

	res := &snapshotResolver{
		projects:   make(map[string]string, len(projects)),
		recipients: make(map[string]core.Recipient, len(recipients)),
		categories: make(map[string]string, len(categories)),
	}
	for _, p := range projects {
		res.projects[p.ID] = p.Name
	}
	for _, r := range recipients {
		res.recipients[r.ID] = r
	}
	for _, c := range categories {
		res.categories[c.ID] = c.Name
	}
	return res, nil
}

type snapshotResolver struct {
	projects   map[string]string
	recipients map[string]core.Recipient
	categories map[string]string
}

func (r *snapshotResolver) ProjectName(id string) (string, bool) {
	name, ok := r.projects[id]
	return name, ok
}

func (r *snapshotResolver) RecipientInfo(id string) (string, core.RecipientType, bool) {
	rec, ok := r.recipients[id]
	return rec.Name, rec.Type, ok
}

func (r *snapshotResolver) CategoryName(id string) (string, bool) {
	name, ok := r.categories[id]
	return name, ok
}
