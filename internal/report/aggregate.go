package report

import (
	"strings"

	"bilancio/internal/core"
)

// UncategorizedLabel groups expenses whose category carries no name.
const UncategorizedLabel = "Uncategorized"

// Totals are the summed magnitudes per transaction type.
type Totals struct {
	Income  core.Money
	Expense core.Money
}

// Balance is income minus expenses, in cents.
func (t Totals) Balance() int64 {
	return t.Income.Cents - t.Expense.Cents
}

// Summary merges both aggregation modes over one filtered set.
type Summary struct {
	ByCategory []core.CategoryAmount
	Totals     Totals
}

// Aggregate sums expense amounts per category name. Categories appear in the
// order they are first seen in filtered; categories without expenses are
// omitted rather than reported as zero.
func Aggregate(filtered []core.Transaction) []core.CategoryAmount {
	return Summarize(filtered).ByCategory
}

// TotalsOf sums income and expense amounts separately.
func TotalsOf(filtered []core.Transaction) Totals {
	return Summarize(filtered).Totals
}

// Summarize computes the category breakdown and the per-type totals in a
// single pass. Sums saturate at math.MaxInt64 cents.
func Summarize(filtered []core.Transaction) Summary {
	var s Summary
	s.ByCategory = []core.CategoryAmount{}
	index := make(map[string]int)

	for _, tx := range filtered {
		switch tx.Type {
		case core.Income:
			s.Totals.Income = s.Totals.Income.Add(tx.Amount)
		case core.Expense:
			s.Totals.Expense = s.Totals.Expense.Add(tx.Amount)

			name := categoryLabel(tx)
			i, ok := index[name]
			if !ok {
				i = len(s.ByCategory)
				index[name] = i
				s.ByCategory = append(s.ByCategory, core.CategoryAmount{Name: name})
			}
			s.ByCategory[i].Amount = s.ByCategory[i].Amount.Add(tx.Amount)
		}
	}
	return s
}

func categoryLabel(tx core.Transaction) string {
	if name := strings.TrimSpace(tx.CategoryName); name != "" {
		return name
	}
	return UncategorizedLabel
}
