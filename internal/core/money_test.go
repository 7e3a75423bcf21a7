package core

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
		{"1.٣", 0, false}, // Arabic-Indic digit three
		{"١٢", 0, false},
		{"92233720368547758.08", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyFromFloat(t *testing.T) {
	cases := []struct {
		in  float64
		out int64
		ok  bool
	}{
		{100, 10000, true},
		{0.1, 10, true},
		{19.99, 1999, true},
		{1.005, 101, true},
		{0, 0, false},
		{-3, 0, false},
		{1e20, 0, false},
		{92233720368547758.07, 0, false}, // nearest float64 is past the int64 range
	}
	for _, tc := range cases {
		got, err := MoneyFromFloat(tc.in)
		if tc.ok && (err != nil || got.Cents != tc.out) {
			t.Fatalf("%v expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%v expected error", tc.in)
		}
	}
}

func TestMoneyDecimalRoundTrip(t *testing.T) {
	m := Money{Cents: 123456}
	if m.String() != "1234.56" {
		t.Fatalf("String = %q", m.String())
	}
	if !m.Decimal().Equal(decimal.RequireFromString("1234.56")) {
		t.Fatalf("Decimal = %s", m.Decimal())
	}
	back, err := MoneyFromDecimal(m.Decimal())
	if err != nil || back != m {
		t.Fatalf("round trip got %+v err=%v", back, err)
	}
	if (Money{Cents: 5}).Float() != 0.05 {
		t.Fatalf("Float = %v", (Money{Cents: 5}).Float())
	}
}

func TestMoneyAddIsExact(t *testing.T) {
	var sum Money
	for i := 0; i < 1000; i++ {
		sum = sum.Add(Money{Cents: 10}) // 0.10 a thousand times
	}
	if sum.Cents != 10000 || sum.String() != "100.00" {
		t.Fatalf("expected exact 100.00, got %s", sum)
	}
}

func TestMoneyFromDecimalRange(t *testing.T) {
	top := decimal.New(math.MaxInt64, -2)
	got, err := MoneyFromDecimal(top)
	if err != nil || got.Cents != math.MaxInt64 {
		t.Fatalf("largest amount got %d err=%v", got.Cents, err)
	}
	if _, err := MoneyFromDecimal(top.Add(decimal.New(1, -2))); err != ErrInvalidAmount {
		t.Fatalf("one cent past the range err = %v", err)
	}
}

func TestMoneyAddSaturates(t *testing.T) {
	got := Money{Cents: math.MaxInt64 - 1}.Add(Money{Cents: 5})
	if got.Cents != math.MaxInt64 {
		t.Fatalf("Add = %d, want MaxInt64", got.Cents)
	}
	if got := (Money{Cents: 7}).Add(Money{Cents: 0}); got.Cents != 7 {
		t.Fatalf("Add zero = %d", got.Cents)
	}
}
