package core

import "sort"

// DueTier classifies how close a check payment is to its due date.
type DueTier string

const (
	DueOverdue  DueTier = "overdue"
	DueToday    DueTier = "today"
	DueSoon     DueTier = "soon"     // within the 7-day warning horizon
	DueUpcoming DueTier = "upcoming" // more than 7 days out
)

// dueSoonHorizonDays is the warning horizon used by dashboard and list
// views alike.
const dueSoonHorizonDays = 7

// DueStatus is the display classification for one check payment.
type DueStatus struct {
	Tier      DueTier `json:"tier"`
	DaysUntil int     `json:"daysUntil"` // negative when overdue
}

// checkEligible reports whether a payment participates in due-date
// tracking: check method, still pending, due date present. Paid checks
// drop out regardless of their due date.
func checkEligible(p Payment) bool {
	return p.Method == MethodCheck && p.Status == StatusPending && !p.DueDate.IsZero()
}

// NextDue returns the eligible check payment with the earliest due date.
// ok is false when no eligible payment exists.
func NextDue(payments []Payment) (Payment, bool) {
	checks := eligibleChecks(payments)
	if len(checks) == 0 {
		return Payment{}, false
	}
	sort.SliceStable(checks, func(i, j int) bool {
		return checks[i].DueDate.Before(checks[j].DueDate)
	})
	return checks[0], true
}

// DueWithin returns eligible check payments due in [today, today+days],
// both bounds inclusive.
func DueWithin(payments []Payment, today Date, days int) []Payment {
	limit := today.AddDays(days)
	var out []Payment
	for _, p := range payments {
		if !checkEligible(p) {
			continue
		}
		if p.DueDate.Within(today, limit) {
			out = append(out, p)
		}
	}
	return out
}

// Overdue returns eligible check payments due strictly before today.
func Overdue(payments []Payment, today Date) []Payment {
	var out []Payment
	for _, p := range payments {
		if checkEligible(p) && p.DueDate.Before(today) {
			out = append(out, p)
		}
	}
	return out
}

// ClassifyDue buckets a due date relative to today: overdue, due today,
// due soon (1..7 days) or plain upcoming.
func ClassifyDue(due, today Date) DueStatus {
	days := today.DaysUntil(due)
	switch {
	case days < 0:
		return DueStatus{Tier: DueOverdue, DaysUntil: days}
	case days == 0:
		return DueStatus{Tier: DueToday, DaysUntil: 0}
	case days <= dueSoonHorizonDays:
		return DueStatus{Tier: DueSoon, DaysUntil: days}
	default:
		return DueStatus{Tier: DueUpcoming, DaysUntil: days}
	}
}

func eligibleChecks(payments []Payment) []Payment {
	var out []Payment
	for _, p := range payments {
		if checkEligible(p) {
			out = append(out, p)
		}
	}
	return out
}
