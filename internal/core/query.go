package core

import (
	"errors"
	"strconv"
	"strings"
)

// Filter selects a subset of transactions. Besides the fixed values below,
// "category:<name-or-id>" selects a single category.
type Filter string

const (
	FilterAll     Filter = "all"
	FilterIncome  Filter = "income"
	FilterExpense Filter = "expense"

	categoryFilterPrefix = "category:"
)

// SortField represents a field that can be sorted on.
type SortField string

const (
	SortByDate     SortField = "date"
	SortByAmount   SortField = "amount"
	SortByCategory SortField = "category"
)

// SortOrder represents sort direction.
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// TransactionsKeyPrefix prefixes every canonical Params key, so a single
// prefix invalidation drops all cached transaction views.
const TransactionsKeyPrefix = "transactions:"

var (
	ErrInvalidFilter = errors.New("invalid filter")
	ErrInvalidSort   = errors.New("invalid sort field")
	ErrInvalidOrder  = errors.New("invalid sort order")
	ErrInvalidPage   = errors.New("invalid page")
)

// Params are the query parameters of a transaction view.
// Page is 1-based; changing any other field through the With* helpers resets it.
type Params struct {
	Filter Filter
	Sort   SortField
	Order  SortOrder
	Page   int
}

// DefaultParams returns the default view: everything, newest first.
func DefaultParams() Params {
	return Params{
		Filter: FilterAll,
		Sort:   SortByDate,
		Order:  OrderDesc,
		Page:   1,
	}
}

// CategoryFilter builds the filter selecting a single category.
func CategoryFilter(ref string) Filter {
	return Filter(categoryFilterPrefix + strings.TrimSpace(ref))
}

// Category returns the category reference of a category filter.
func (f Filter) Category() (string, bool) {
	s := string(f)
	if !strings.HasPrefix(s, categoryFilterPrefix) {
		return "", false
	}
	ref := strings.TrimSpace(strings.TrimPrefix(s, categoryFilterPrefix))
	return ref, ref != ""
}

func (f Filter) IsValid() bool {
	switch f {
	case FilterAll, FilterIncome, FilterExpense:
		return true
	}
	_, ok := f.Category()
	return ok
}

func (s SortField) IsValid() bool {
	switch s {
	case SortByDate, SortByAmount, SortByCategory:
		return true
	default:
		return false
	}
}

func (o SortOrder) IsValid() bool {
	return o == OrderAsc || o == OrderDesc
}

// WithFilter returns a copy with the filter changed and the page reset.
func (p Params) WithFilter(f Filter) Params {
	if p.Filter != f {
		p.Filter = f
		p.Page = 1
	}
	return p
}

// WithSort returns a copy with the sort field changed and the page reset.
func (p Params) WithSort(s SortField) Params {
	if p.Sort != s {
		p.Sort = s
		p.Page = 1
	}
	return p
}

// WithOrder returns a copy with the order changed and the page reset.
func (p Params) WithOrder(o SortOrder) Params {
	if p.Order != o {
		p.Order = o
		p.Page = 1
	}
	return p
}

// WithPage returns a copy pointing at page n (at least 1).
func (p Params) WithPage(n int) Params {
	if n < 1 {
		n = 1
	}
	p.Page = n
	return p
}

// SameView reports whether p and o differ at most by page.
func (p Params) SameView(o Params) bool {
	return p.Filter == o.Filter && p.Sort == o.Sort && p.Order == o.Order
}

// Validate checks every field against its closed enumeration.
func (p Params) Validate() error {
	if !p.Filter.IsValid() {
		return ErrInvalidFilter
	}
	if !p.Sort.IsValid() {
		return ErrInvalidSort
	}
	if !p.Order.IsValid() {
		return ErrInvalidOrder
	}
	if p.Page < 1 {
		return ErrInvalidPage
	}
	return nil
}

// Key is the canonical cache key for p. Equal params always produce equal keys.
func (p Params) Key() string {
	var b strings.Builder
	b.WriteString(TransactionsKeyPrefix)
	b.WriteString("filter=")
	b.WriteString(string(p.Filter))
	b.WriteString(";sort=")
	b.WriteString(string(p.Sort))
	b.WriteString(";order=")
	b.WriteString(string(p.Order))
	b.WriteString(";page=")
	b.WriteString(strconv.Itoa(p.Page))
	return b.String()
}

// ParseParams builds Params from raw query values, falling back to defaults
// for empty values. Non-empty values outside the enumerations are rejected.
func ParseParams(filter, sort, order, page string) (Params, error) {
	p := DefaultParams()
	if v := strings.TrimSpace(filter); v != "" {
		p.Filter = Filter(v)
		if ref, ok := p.Filter.Category(); ok {
			p.Filter = CategoryFilter(ref)
		} else {
			p.Filter = Filter(strings.ToLower(v))
		}
	}
	if v := strings.TrimSpace(sort); v != "" {
		p.Sort = SortField(strings.ToLower(v))
	}
	if v := strings.TrimSpace(order); v != "" {
		p.Order = SortOrder(strings.ToLower(v))
	}
	if v := strings.TrimSpace(page); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Params{}, ErrInvalidPage
		}
		p.Page = n
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}
