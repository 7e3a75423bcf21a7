package google

import (
	"fmt"
	"strings"
	"time"

	"bilancio/internal/core"
)

// Column headers of the transactions sheet. A sheet without a header row is
// read positionally in this order.
var transactionHeaders = [...]string{"ID", "Date", "Type", "Category ID", "Category", "Amount", "Description"}

const (
	colID = iota
	colDate
	colType
	colCategoryID
	colCategory
	colAmount
	colDescription
)

// Sheets stores dates as days since 1899-12-30.
var serialEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

type layout [len(transactionHeaders)]int

func defaultLayout() layout {
	var l layout
	for i := range l {
		l[i] = i
	}
	return l
}

// layoutFromHeader maps each known column to its index in headers. It
// returns false when the row is not a header (no ID column).
func layoutFromHeader(headers []string) (layout, bool) {
	var l layout
	for i, name := range transactionHeaders {
		l[i] = indexOf(headers, name)
	}
	if l[colID] == -1 {
		return defaultLayout(), false
	}
	return l, true
}

// parseTransactions converts a values matrix into transactions. Rows that
// cannot be read are skipped and reported through skipped, in sheet order.
func parseTransactions(values [][]interface{}) (out []core.Transaction, skipped []string) {
	if len(values) == 0 {
		return nil, nil
	}
	l, hasHeader := layoutFromHeader(toStrings(values[0]))
	start := 0
	if hasHeader {
		start = 1
	}
	for i := start; i < len(values); i++ {
		row := values[i]
		if isBlank(row) {
			continue
		}
		tx, err := parseRow(row, l)
		if err != nil {
			skipped = append(skipped, fmt.Sprintf("row %d: %v", i+1, err))
			continue
		}
		out = append(out, tx)
	}
	return out, skipped
}

func parseRow(row []interface{}, l layout) (core.Transaction, error) {
	cell := func(col int) interface{} {
		idx := l[col]
		if idx < 0 || idx >= len(row) {
			return nil
		}
		return row[idx]
	}
	text := func(col int) string {
		v := cell(col)
		if v == nil {
			return ""
		}
		return strings.TrimSpace(fmt.Sprint(v))
	}

	id := text(colID)
	if id == "" {
		return core.Transaction{}, fmt.Errorf("missing id")
	}
	typ := core.TransactionType(strings.ToLower(text(colType)))
	if !typ.IsValid() {
		return core.Transaction{}, core.ErrInvalidType
	}
	date, err := parseDateCell(cell(colDate))
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := parseAmountCell(cell(colAmount))
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		ID:           id,
		Type:         typ,
		CategoryID:   text(colCategoryID),
		CategoryName: text(colCategory),
		Amount:       amount,
		Date:         date,
		Description:  text(colDescription),
	}, nil
}

// parseDateCell accepts an ISO date string or a Sheets serial day number.
func parseDateCell(v interface{}) (core.Date, error) {
	switch d := v.(type) {
	case float64:
		if d < 1 {
			return core.Date{}, core.ErrInvalidDate
		}
		return core.Date{Time: serialEpoch.AddDate(0, 0, int(d))}, nil
	case string:
		return core.ParseDate(d)
	default:
		return core.Date{}, core.ErrInvalidDate
	}
}

// parseAmountCell accepts a number or a decimal string with dot or comma.
// Negative numbers are read as their magnitude.
func parseAmountCell(v interface{}) (core.Money, error) {
	switch a := v.(type) {
	case float64:
		if a < 0 {
			a = -a
		}
		return core.MoneyFromFloat(a)
	case string:
		s := strings.TrimSpace(a)
		s = strings.TrimPrefix(s, "-")
		cents, err := core.ParseDecimalToCents(s)
		if err != nil {
			return core.Money{}, err
		}
		return core.Money{Cents: cents}, nil
	default:
		return core.Money{}, core.ErrInvalidAmount
	}
}

// parseCategories reads "ID | Name" rows. A row with a single value uses it
// as both ID and name. Names are deduplicated ignoring case, keeping the
// first occurrence; blank and "#" comment rows are skipped.
func parseCategories(values [][]interface{}) []core.Category {
	seen := map[string]struct{}{}
	out := make([]core.Category, 0, len(values))
	for _, row := range values {
		cols := toStrings(row)
		if len(cols) == 0 || cols[0] == "" && safeGet(cols, 1) == "" {
			continue
		}
		if strings.HasPrefix(cols[0], "#") {
			continue
		}
		id, name := cols[0], safeGet(cols, 1)
		if name == "" {
			name = id
		}
		if id == "" {
			id = name
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, core.Category{ID: id, Name: name})
	}
	return out
}

// transactionRow renders tx in header order. The amount is written as a
// number so the sheet can sum it.
func transactionRow(tx core.Transaction) []interface{} {
	return []interface{}{
		tx.ID,
		tx.Date.String(),
		string(tx.Type),
		tx.CategoryID,
		tx.CategoryName,
		tx.Amount.Float(),
		tx.Description,
	}
}

// findRow returns the 0-based row index holding id in the first column of
// values, or -1.
func findRow(values [][]interface{}, id string) int {
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == id {
			return i
		}
	}
	return -1
}

func isBlank(row []interface{}) bool {
	for _, v := range row {
		if strings.TrimSpace(fmt.Sprint(v)) != "" {
			return false
		}
	}
	return true
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
