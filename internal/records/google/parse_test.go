package google

import (
	"testing"

	"bilancio/internal/core"
)

func TestParseTransactions_WithHeader(t *testing.T) {
	values := [][]interface{}{
		{"Date", "ID", "Type", "Category", "Amount", "Description", "Category ID"},
		{"2024-03-04", "a", "Expense", "Food", 12.34, "lunch", "food"},
		{},
		{"2024-03-05", "b", "income", "Salary", "1500,5", "", "salary"},
		{"2024-03-06", "c", "transfer", "Food", 1.0, "", "food"},
		{45356.0, "d", "expense", "Rent", -800.0},
	}
	txs, skipped := parseTransactions(values)
	if len(txs) != 3 {
		t.Fatalf("expected 3 transactions, got %d (%+v)", len(txs), txs)
	}
	if len(skipped) != 2 {
		t.Fatalf("expected 2 skipped rows, got %v", skipped)
	}

	a := txs[0]
	if a.ID != "a" || a.Type != core.Expense || a.CategoryID != "food" || a.CategoryName != "Food" || a.Amount.Cents != 1234 || a.Description != "lunch" {
		t.Errorf("unexpected first transaction: %+v", a)
	}
	if a.Date.String() != "2024-03-04" {
		t.Errorf("date = %s", a.Date)
	}

	b := txs[1]
	if b.ID != "b" || b.Type != core.Income || b.Amount.Cents != 150050 {
		t.Errorf("unexpected comma-decimal row: %+v", b)
	}

	// 45356 days after 1899-12-30 is 2024-03-05.
	d := txs[2]
	if d.ID != "d" || d.Date.String() != "2024-03-05" || d.Amount.Cents != 80000 {
		t.Errorf("unexpected serial-date row: %+v", d)
	}
}

func TestParseTransactions_Positional(t *testing.T) {
	values := [][]interface{}{
		{"x1", "2024-01-02", "income", "salary", "Salary", 2500.0, "january"},
		{"x2", "2024-01-03", "expense", "", "", "9,99"},
	}
	txs, skipped := parseTransactions(values)
	if len(skipped) != 0 {
		t.Fatalf("unexpected skipped rows: %v", skipped)
	}
	if len(txs) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txs))
	}
	if txs[0].Amount.Cents != 250000 || txs[0].Description != "january" {
		t.Errorf("unexpected first row: %+v", txs[0])
	}
	if txs[1].Amount.Cents != 999 || txs[1].CategoryName != "" {
		t.Errorf("unexpected second row: %+v", txs[1])
	}
}

func TestParseAmountCell(t *testing.T) {
	tests := []struct {
		in      interface{}
		want    int64
		wantErr bool
	}{
		{12.5, 1250, false},
		{0.1, 10, false},
		{"3,20", 320, false},
		{"-4.00", 400, false},
		{0.0, 0, true},
		{"abc", 0, true},
		{nil, 0, true},
		{true, 0, true},
	}
	for _, tt := range tests {
		got, err := parseAmountCell(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseAmountCell(%v) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got.Cents != tt.want {
			t.Errorf("parseAmountCell(%v) = %d, want %d", tt.in, got.Cents, tt.want)
		}
	}
}

func TestParseCategories(t *testing.T) {
	values := [][]interface{}{
		{"food", "Food"},
		{"# comment"},
		{},
		{"", "Travel"},
		{"Rent"},
		{"food-2", "FOOD"},
	}
	got := parseCategories(values)
	want := []core.Category{
		{ID: "food", Name: "Food"},
		{ID: "Travel", Name: "Travel"},
		{ID: "Rent", Name: "Rent"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("category %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestFindRow(t *testing.T) {
	values := [][]interface{}{{"ID"}, {}, {"a"}, {" b "}}
	if got := findRow(values, "b"); got != 3 {
		t.Errorf("findRow(b) = %d, want 3", got)
	}
	if got := findRow(values, "zzz"); got != -1 {
		t.Errorf("findRow(zzz) = %d, want -1", got)
	}
}
