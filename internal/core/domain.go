package core

import (
	"errors"
	"math"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// DateLayout is the ISO calendar date format used at every boundary.
const DateLayout = "2006-01-02"

type (
	TransactionType string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Category struct {
		ID   string
		Name string
	}

	// Transaction is a recorded income or expense event. CategoryName is the
	// display name captured when the record was read, not a live join.
	Transaction struct {
		ID           string
		Type         TransactionType
		CategoryID   string
		CategoryName string
		Amount       Money
		Date         Date
		Description  string
	}

	// TransactionInput is the payload accepted by create operations.
	// Category holds either a category ID or a display name.
	TransactionInput struct {
		Type        TransactionType
		Category    string
		Amount      Money
		Date        Date
		Description string
	}
)

var (
	ErrInvalidDay      = errors.New("invalid day")
	ErrInvalidMonth    = errors.New("invalid month")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidType     = errors.New("invalid transaction type")
	ErrEmptyCategory   = errors.New("empty category")
	ErrUnknownCategory = errors.New("unknown category")
	ErrDescriptionLong = errors.New("description too long (max 200 characters)")
	ErrNotFound        = errors.New("not found")
)

func (t TransactionType) String() string {
	return string(t)
}

// IsValid reports whether t is one of the closed set of transaction types.
func (t TransactionType) IsValid() bool {
	switch t {
	case Income, Expense:
		return true
	default:
		return false
	}
}

// TransactionTypes returns the types in their canonical display order.
func TransactionTypes() []TransactionType {
	return []TransactionType{Income, Expense}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO calendar date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// String returns the ISO representation of the date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Validate rejects zero and negative amounts.
func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Add returns the sum of two amounts. Amounts are non-negative, so a sum
// past math.MaxInt64 cents saturates there instead of wrapping.
func (m Money) Add(o Money) Money {
	if o.Cents > 0 && m.Cents > math.MaxInt64-o.Cents {
		return Money{Cents: math.MaxInt64}
	}
	return Money{Cents: m.Cents + o.Cents}
}

func (in TransactionInput) Validate() error {
	if !in.Type.IsValid() {
		return ErrInvalidType
	}
	if strings.TrimSpace(in.Category) == "" {
		return ErrEmptyCategory
	}
	if err := in.Amount.Validate(); err != nil {
		return err
	}
	if err := in.Date.Validate(); err != nil {
		return err
	}
	if len(in.Description) > 200 {
		return ErrDescriptionLong
	}
	return nil
}

// MatchesCategory reports whether ref names this transaction's category,
// either by ID or by display name (case-insensitive).
func (t Transaction) MatchesCategory(ref string) bool {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return false
	}
	if t.CategoryID != "" && t.CategoryID == ref {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(t.CategoryName), ref)
}

// ResolveCategory finds the category referenced by ref (ID first, then name).
func ResolveCategory(categories []Category, ref string) (Category, bool) {
	ref = strings.TrimSpace(ref)
	for _, c := range categories {
		if c.ID == ref {
			return c, true
		}
	}
	for _, c := range categories {
		if strings.EqualFold(c.Name, ref) {
			return c, true
		}
	}
	return Category{}, false
}
