package core

// Resolver looks up display information for weak references. Lookups of
// deleted entities report ok=false; callers render a fallback instead of
// failing.
type Resolver interface {
	ProjectName(id string) (string, bool)
	RecipientInfo(id string) (name string, rtype RecipientType, ok bool)
	CategoryName(id string) (string, bool)
}

// UnknownLabel is rendered wherever a weak reference no longer resolves.
const UnknownLabel = "unknown"

const recipientReportLimit = 10

type (
	MethodTotal struct {
		Method PaymentMethod `json:"method"`
		Amount Money         `json:"amount"`
	}

	// PeriodSummary totals one filtered payment set.
	PeriodSummary struct {
		Total        Money         `json:"total"`
		PaidCount    int           `json:"paidCount"`
		PaidTotal    Money         `json:"paidTotal"`
		PendingCount int           `json:"pendingCount"`
		PendingTotal Money         `json:"pendingTotal"`
		ByMethod     []MethodTotal `json:"byMethod"`
	}

	CategoryShare struct {
		CategoryID string  `json:"categoryId"`
		Name       string  `json:"name"`
		Amount     Money   `json:"amount"`
		Count      int     `json:"count"`
		Percentage float64 `json:"percentage"`
	}

	ProjectShare struct {
		ProjectID string `json:"projectId"`
		Name      string `json:"name"`
		Amount    Money  `json:"amount"`
		Count     int    `json:"count"`
	}

	RecipientShare struct {
		RecipientID string        `json:"recipientId"`
		Name        string        `json:"name"`
		Type        RecipientType `json:"type,omitempty"`
		Amount      Money         `json:"amount"`
		Count       int           `json:"count"`
	}

	// Report packages the four summary views computed from one filtered
	// payment set. All views are consistent with each other: no view sees
	// a different set than its siblings.
	Report struct {
		From         Date             `json:"from"`
		To           Date             `json:"to"`
		Summary      PeriodSummary    `json:"summary"`
		ByCategory   []CategoryShare  `json:"byCategory"`
		ByProject    []ProjectShare   `json:"byProject"`
		ByRecipient  []RecipientShare `json:"byRecipient"`
		PaymentCount int              `json:"paymentCount"`
	}
)

// BuildReport computes all four summary views from the given payment set.
// The set must already be filtered; BuildReport never re-queries.
func BuildReport(payments []Payment, from, to Date, res Resolver) Report {
	return Report{
		From:         from,
		To:           to,
		Summary:      buildSummary(payments),
		ByCategory:   buildCategoryShares(payments, res),
		ByProject:    buildProjectShares(payments, res),
		ByRecipient:  buildRecipientShares(payments, res),
		PaymentCount: len(payments),
	}
}

func buildSummary(payments []Payment) PeriodSummary {
	s := PeriodSummary{Total: SumAmounts(payments)}
	for _, p := range payments {
		switch p.Status {
		case StatusPaid:
			s.PaidCount++
			s.PaidTotal = s.PaidTotal.Add(p.Amount)
		case StatusPending:
			s.PendingCount++
			s.PendingTotal = s.PendingTotal.Add(p.Amount)
		}
	}
	for _, g := range SortedTotals(payments, GroupByMethod) {
		s.ByMethod = append(s.ByMethod, MethodTotal{
			Method: PaymentMethod(g.Key),
			Amount: g.Amount,
		})
	}
	return s
}

func buildCategoryShares(payments []Payment, res Resolver) []CategoryShare {
	total := SumAmounts(payments)
	totals := SortedTotals(payments, GroupByCategory)
	shares := make([]CategoryShare, 0, len(totals))
	for _, g := range totals {
		name, ok := res.CategoryName(g.Key)
		if !ok {
			name = UnknownLabel
		}
		shares = append(shares, CategoryShare{
			CategoryID: g.Key,
			Name:       name,
			Amount:     g.Amount,
			Count:      g.Count,
			Percentage: PercentageOf(g.Amount, total),
		})
	}
	return shares
}

func buildProjectShares(payments []Payment, res Resolver) []ProjectShare {
	totals := SortedTotals(payments, GroupByProject)
	shares := make([]ProjectShare, 0, len(totals))
	for _, g := range totals {
		name, ok := res.ProjectName(g.Key)
		if !ok {
			name = UnknownLabel
		}
		shares = append(shares, ProjectShare{
			ProjectID: g.Key,
			Name:      name,
			Amount:    g.Amount,
			Count:     g.Count,
		})
	}
	return shares
}

func buildRecipientShares(payments []Payment, res Resolver) []RecipientShare {
	totals := TopN(payments, GroupByRecipient, recipientReportLimit)
	shares := make([]RecipientShare, 0, len(totals))
	for _, g := range totals {
		name, rtype, ok := res.RecipientInfo(g.Key)
		if !ok {
			name = UnknownLabel
		}
		shares = append(shares, RecipientShare{
			RecipientID: g.Key,
			Name:        name,
			Type:        rtype,
			Amount:      g.Amount,
			Count:       g.Count,
		})
	}
	return shares
}
