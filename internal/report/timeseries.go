package report

import "bilancio/internal/core"

// DefaultLabelLayout renders chart labels as day/month/year.
const DefaultLabelLayout = "02/01/2006"

// Point is one (date label, amount) pair of a series.
type Point struct {
	Label  string
	Amount core.Money
}

// TimeSeries holds one sequence per transaction type. Both sequences are
// always non-nil, possibly empty.
type TimeSeries struct {
	Income  []Point
	Expense []Point
}

// For returns the sequence of the given type.
func (ts TimeSeries) For(t core.TransactionType) []Point {
	if t == core.Income {
		return ts.Income
	}
	return ts.Expense
}

// Project turns filtered records into per-type series, keeping the order of
// filtered. Labels are formatted with layout (DefaultLabelLayout when empty).
func Project(filtered []core.Transaction, layout string) TimeSeries {
	if layout == "" {
		layout = DefaultLabelLayout
	}
	ts := TimeSeries{Income: []Point{}, Expense: []Point{}}
	for _, tx := range filtered {
		p := Point{Label: tx.Date.Format(layout), Amount: tx.Amount}
		switch tx.Type {
		case core.Income:
			ts.Income = append(ts.Income, p)
		case core.Expense:
			ts.Expense = append(ts.Expense, p)
		}
	}
	return ts
}
