package report

import (
	"cmp"
	"slices"
	"strings"

	"bilancio/internal/core"
)

// DefaultPageSize is used when a non-positive page size is supplied.
const DefaultPageSize = 10

// Select returns the records matching p.Filter ordered by p.Sort and p.Order.
// The result is a new slice; records is left untouched. Records that compare
// equal keep their input order in both directions.
func Select(records []core.Transaction, p core.Params) []core.Transaction {
	out := make([]core.Transaction, 0, len(records))
	for _, tx := range records {
		if matches(tx, p.Filter) {
			out = append(out, tx)
		}
	}
	compare := comparator(p.Sort)
	if p.Order == core.OrderDesc {
		asc := compare
		compare = func(a, b core.Transaction) int { return asc(b, a) }
	}
	slices.SortStableFunc(out, compare)
	return out
}

// Paginate selects and orders records, then cuts the page requested by p.
// A page past the end is clamped to the last page and a page below 1 to the
// first. An empty selection yields Page 1 of 0 with no transactions.
func Paginate(records []core.Transaction, p core.Params, pageSize int) core.TransactionPage {
	return PageOf(Select(records, p), p.Page, pageSize)
}

// PageOf cuts page number page out of an already selected slice.
func PageOf(selected []core.Transaction, page, pageSize int) core.TransactionPage {
	b := Bounds(len(selected), page, pageSize)

	items := []core.Transaction{}
	if b.Count > 0 {
		items = append(items, selected[b.Offset:b.Offset+b.Limit]...)
	}
	return core.TransactionPage{Transactions: items, Pagination: b.Pagination}
}

// PageBounds locates one page inside a result set of known size.
type PageBounds struct {
	core.Pagination
	Offset int
	Limit  int
}

// Bounds applies the clamping rules to a requested page: past the end goes
// to the last page, below 1 goes to the first. An empty set yields Page 1 of
// 0 with a zero limit. Stores that page natively use it to build their
// OFFSET/LIMIT.
func Bounds(count, page, pageSize int) PageBounds {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	totalPages := (count + pageSize - 1) / pageSize

	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}

	offset := (page - 1) * pageSize
	limit := 0
	if count > 0 {
		limit = min(pageSize, count-offset)
	}
	return PageBounds{
		Pagination: core.Pagination{Page: page, TotalPages: totalPages, Count: count},
		Offset:     offset,
		Limit:      limit,
	}
}

func matches(tx core.Transaction, f core.Filter) bool {
	switch f {
	case core.FilterAll, "":
		return true
	case core.FilterIncome:
		return tx.Type == core.Income
	case core.FilterExpense:
		return tx.Type == core.Expense
	}
	if ref, ok := f.Category(); ok {
		return tx.MatchesCategory(ref)
	}
	return false
}

// comparator returns the ascending comparison for a sort field.
func comparator(field core.SortField) func(a, b core.Transaction) int {
	switch field {
	case core.SortByAmount:
		return func(a, b core.Transaction) int {
			return cmp.Compare(a.Amount.Cents, b.Amount.Cents)
		}
	case core.SortByCategory:
		return func(a, b core.Transaction) int {
			return strings.Compare(strings.ToLower(a.CategoryName), strings.ToLower(b.CategoryName))
		}
	default:
		return func(a, b core.Transaction) int {
			return a.Date.Compare(b.Date.Time)
		}
	}
}
