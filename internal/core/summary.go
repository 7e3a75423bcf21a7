package core

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// Pagination describes where a page sits within the filtered set.
// An empty set reports TotalPages 0 and Page 1.
type Pagination struct {
	Page       int
	TotalPages int
	Count      int
}

// TransactionPage is one page of an ordered, filtered transaction view.
type TransactionPage struct {
	Transactions []Transaction
	Pagination   Pagination
}
