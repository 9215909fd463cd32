package mirror

import "context"

// Row is one flattened payment destined for the offsite ledger mirror.
// References are resolved to display names before the row leaves the
// process; the mirror never sees internal ids except the payment's own.
type Row struct {
	PaymentID     string
	Date          string
	Project       string
	Recipient     string
	RecipientType string
	Category      string
	Description   string
	Method        string
	Amount        float64
	Status        string
}

// Ports for outbound adapters.
type (
	RowAppender interface {
		Append(ctx context.Context, row Row) (rowRef string, err error)
	}
)
