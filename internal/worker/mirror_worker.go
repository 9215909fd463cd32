package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"insaat/internal/amqp"
	"insaat/internal/core"
	"insaat/internal/mirror"
	"insaat/internal/storage"
)

// MirrorWorker copies payment changes into the offsite ledger mirror.
type MirrorWorker struct {
	repo     *storage.Repository
	appender mirror.RowAppender
}

func NewMirrorWorker(repo *storage.Repository, appender mirror.RowAppender) *MirrorWorker {
	return &MirrorWorker{
		repo:     repo,
		appender: appender,
	}
}

// HandleChange processes a single record change message. Only payment
// changes reach the mirror; the mirror is append-only, so deletes are
// acknowledged without a row.
func (w *MirrorWorker) HandleChange(ctx context.Context, msg *amqp.RecordChangeMessage) error {
	if msg.Collection != storage.KeyPayments {
		slog.InfoContext(ctx, "Skipping non-payment change",
			"collection", msg.Collection, "id", msg.ID)
		return nil
	}
	if msg.Op == amqp.OpDelete {
		slog.InfoContext(ctx, "Skipping delete, mirror is append-only", "id", msg.ID)
		return nil
	}

	payment, err := w.repo.Payment(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("load payment %s: %w", msg.ID, err)
	}

	row, err := w.buildRow(ctx, payment)
	if err != nil {
		return err
	}

	ref, err := w.appender.Append(ctx, row)
	if err != nil {
		return fmt.Errorf("append to mirror: %w", err)
	}

	slog.InfoContext(ctx, "Payment mirrored",
		"id", payment.ID,
		"op", msg.Op,
		"mirror_ref", ref,
		"amount_cents", payment.Amount.Cents)
	return nil
}

func (w *MirrorWorker) buildRow(ctx context.Context, p core.Payment) (mirror.Row, error) {
	row := mirror.Row{
		PaymentID:   p.ID,
		Date:        p.PaymentDate.String(),
		Project:     "-",
		Recipient:   "-",
		Category:    "-",
		Description: p.Description,
		Method:      string(p.Method),
		Amount:      p.Amount.Float(),
		Status:      string(p.Status),
	}

	if project, err := w.repo.Project(ctx, string(p.ProjectID)); err == nil {
		row.Project = project.Name
	} else if !errors.Is(err, storage.ErrNotFound) {
		return mirror.Row{}, fmt.Errorf("resolve project: %w", err)
	}
	if !p.RecipientID.IsZero() {
		if rec, err := w.repo.Recipient(ctx, string(p.RecipientID)); err == nil {
			row.Recipient = rec.Name
			row.RecipientType = string(rec.Type)
		} else if !errors.Is(err, storage.ErrNotFound) {
			return mirror.Row{}, fmt.Errorf("resolve recipient: %w", err)
		}
	}
	if !p.CategoryID.IsZero() {
		if cat, err := w.repo.Category(ctx, string(p.CategoryID)); err == nil {
			row.Category = cat.Name
		} else if !errors.Is(err, storage.ErrNotFound) {
			return mirror.Row{}, fmt.Errorf("resolve category: %w", err)
		}
	}
	return row, nil
}
