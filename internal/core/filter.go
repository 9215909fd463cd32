package core

import "strings"

// PaymentFilter is an immutable criteria value passed into query functions.
// Every field is optional; unset fields are no-ops and set fields combine
// with logical AND. The UI layer owns the current selection and hands it
// down on each query rather than the query layer reading ambient state.
type PaymentFilter struct {
	ProjectID   WeakRef
	RecipientID WeakRef
	CategoryID  WeakRef
	Status      PaymentStatus
	Method      PaymentMethod
	From        Date
	To          Date
	Search      string
}

// IsZero reports whether no criteria are set.
func (f PaymentFilter) IsZero() bool {
	return f == PaymentFilter{}
}

// HasRange reports whether both date bounds are present.
func (f PaymentFilter) HasRange() bool {
	return !f.From.IsZero() && !f.To.IsZero()
}

// FilterPayments returns the payments satisfying every set criterion.
// The date range is inclusive at both ends and compares calendar dates
// only. With no criteria the input slice is returned as-is; callers that
// intend to sort or mutate the result should copy it first.
func FilterPayments(payments []Payment, f PaymentFilter) []Payment {
	if f.IsZero() {
		return payments
	}
	out := make([]Payment, 0, len(payments))
	for _, p := range payments {
		if !f.matches(p) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (f PaymentFilter) matches(p Payment) bool {
	if !f.ProjectID.IsZero() && WeakRef(p.ProjectID) != f.ProjectID {
		return false
	}
	if !f.RecipientID.IsZero() && WeakRef(p.RecipientID) != f.RecipientID {
		return false
	}
	if !f.CategoryID.IsZero() && p.CategoryID != f.CategoryID {
		return false
	}
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if f.Method != "" && p.Method != f.Method {
		return false
	}
	if !f.From.IsZero() && p.PaymentDate.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && p.PaymentDate.After(f.To) {
		return false
	}
	if f.Search != "" && !matchesSearch(p, f.Search) {
		return false
	}
	return true
}

// Searcher exposes the string fields a free-text search runs over.
type Searcher interface {
	SearchText() []string
}

// Search returns the items whose configured text fields contain term,
// case-insensitively. An empty term returns the input unchanged.
func Search[T Searcher](items []T, term string) []T {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return items
	}
	out := make([]T, 0, len(items))
	for _, it := range items {
		if matchesTerm(it, term) {
			out = append(out, it)
		}
	}
	return out
}

func matchesSearch(s Searcher, term string) bool {
	return matchesTerm(s, strings.ToLower(strings.TrimSpace(term)))
}

func matchesTerm(s Searcher, term string) bool {
	for _, field := range s.SearchText() {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

// SearchText implements Searcher over description and the raw references so
// an id pasted into the search box still finds its record.
func (p Payment) SearchText() []string {
	return []string{p.Description, string(p.ProjectID), string(p.RecipientID)}
}

func (m Material) SearchText() []string {
	return []string{m.Name, m.Notes, m.Unit}
}

func (r Recipient) SearchText() []string {
	return []string{r.Name, r.Phone, r.Email, r.Address}
}

func (p Project) SearchText() []string {
	return []string{p.Name, p.Location}
}

func (c Contract) SearchText() []string {
	return []string{c.Name}
}
