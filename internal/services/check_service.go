package services

import (
	"context"
	"fmt"
	"sort"

	"insaat/internal/core"
	"insaat/internal/storage"
)

// ClassifiedCheck pairs a pending check payment with its due classification.
type ClassifiedCheck struct {
	Payment core.Payment   `json:"payment"`
	Due     core.DueStatus `json:"due"`
}

// CheckService answers due-date questions over pending check payments.
type CheckService struct {
	repo *storage.Repository
}

func NewCheckService(repo *storage.Repository) *CheckService {
	return &CheckService{repo: repo}
}

// Next returns the pending check with the earliest due date. ok is false
// when no pending check exists.
func (s *CheckService) Next(ctx context.Context, today core.Date) (ClassifiedCheck, bool, error) {
	payments, err := s.repo.Payments(ctx)
	if err != nil {
		return ClassifiedCheck{}, false, fmt.Errorf("load payments: %w", err)
	}
	p, ok := core.NextDue(payments)
	if !ok {
		return ClassifiedCheck{}, false, nil
	}
	return ClassifiedCheck{Payment: p, Due: core.ClassifyDue(p.DueDate, today)}, true, nil
}

// Upcoming returns pending checks due within the window, earliest first.
func (s *CheckService) Upcoming(ctx context.Context, today core.Date, days int) ([]ClassifiedCheck, error) {
	payments, err := s.repo.Payments(ctx)
	if err != nil {
		return nil, fmt.Errorf("load payments: %w", err)
	}
	return classify(core.DueWithin(payments, today, days), today), nil
}

// Overdue returns pending checks whose due date has already passed,
// earliest first.
func (s *CheckService) Overdue(ctx context.Context, today core.Date) ([]ClassifiedCheck, error) {
	payments, err := s.repo.Payments(ctx)
	if err != nil {
		return nil, fmt.Errorf("load payments: %w", err)
	}
	return classify(core.Overdue(payments, today), today), nil
}

func classify(checks []core.Payment, today core.Date) []ClassifiedCheck {
	sort.SliceStable(checks, func(i, j int) bool {
		return checks[i].DueDate.Before(checks[j].DueDate)
	})
	out := make([]ClassifiedCheck, 0, len(checks))
	for _, p := range checks {
		out = append(out, ClassifiedCheck{Payment: p, Due: core.ClassifyDue(p.DueDate, today)})
	}
	return out
}
