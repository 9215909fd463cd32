package core

import "sort"

// GroupKey selects the payment field a grouping runs over. Keys map to
// typed accessors; there is no field lookup by name.
type GroupKey int

const (
	GroupByProject GroupKey = iota
	GroupByRecipient
	GroupByCategory
	GroupByMethod
)

func (k GroupKey) valueOf(p Payment) string {
	switch k {
	case GroupByProject:
		return string(p.ProjectID)
	case GroupByRecipient:
		return string(p.RecipientID)
	case GroupByCategory:
		return string(p.CategoryID)
	case GroupByMethod:
		return string(p.Method)
	}
	return ""
}

// GroupTotal is one aggregated group: the raw key, the summed amount and
// the record count.
type GroupTotal struct {
	Key    string
	Amount Money
	Count  int
}

// TopGroupResult names the single largest group. Label is "-" for empty
// input and "unknown" when the key cannot be resolved to a display name.
type TopGroupResult struct {
	Key    string
	Label  string
	Amount Money
}

// NameResolver maps a group key to a display name. ok is false when the
// referenced entity no longer exists.
type NameResolver func(key string) (name string, ok bool)

// GroupAndSum sums payment amounts per distinct value of key. Records with
// an empty key still form a group under "" rather than being dropped, so
// the per-group sums always partition the total.
func GroupAndSum(payments []Payment, key GroupKey) map[string]Money {
	sums := make(map[string]Money)
	for _, p := range payments {
		k := key.valueOf(p)
		sums[k] = sums[k].Add(p.Amount)
	}
	return sums
}

// SortedTotals returns per-group sums in descending amount order. The sort
// is stable: groups with equal sums keep first-encounter order.
func SortedTotals(payments []Payment, key GroupKey) []GroupTotal {
	index := make(map[string]int)
	var totals []GroupTotal
	for _, p := range payments {
		k := key.valueOf(p)
		i, seen := index[k]
		if !seen {
			i = len(totals)
			index[k] = i
			totals = append(totals, GroupTotal{Key: k})
		}
		totals[i].Amount = totals[i].Amount.Add(p.Amount)
		totals[i].Count++
	}
	sort.SliceStable(totals, func(i, j int) bool {
		return totals[i].Amount.Cents > totals[j].Amount.Cents
	})
	return totals
}

// TopN truncates SortedTotals to the n largest groups.
func TopN(payments []Payment, key GroupKey, n int) []GroupTotal {
	totals := SortedTotals(payments, key)
	if n >= 0 && len(totals) > n {
		totals = totals[:n]
	}
	return totals
}

// TopGroup selects the group with the largest sum and resolves its display
// name. Ties go to the first-encountered group; iteration order over ties
// is an accepted indeterminacy, not a correctness requirement.
func TopGroup(payments []Payment, key GroupKey, resolve NameResolver) TopGroupResult {
	totals := SortedTotals(payments, key)
	if len(totals) == 0 {
		return TopGroupResult{Label: "-"}
	}
	top := totals[0]
	label := "unknown"
	if resolve != nil {
		if name, ok := resolve(top.Key); ok {
			label = name
		}
	}
	return TopGroupResult{Key: top.Key, Label: label, Amount: top.Amount}
}

// PercentageOf returns value as a percentage of total, rounded to one
// decimal place. A zero total yields 0 rather than dividing by zero.
func PercentageOf(value, total Money) float64 {
	if total.Cents == 0 {
		return 0
	}
	pct := float64(value.Cents) / float64(total.Cents) * 100
	return float64(roundCents(pct*10)) / 10
}

// SumAmounts totals a payment slice.
func SumAmounts(payments []Payment) Money {
	var sum Money
	for _, p := range payments {
		sum = sum.Add(p.Amount)
	}
	return sum
}
