package storage

type Category struct {
	ID   string
	Name string
}

type Transaction struct {
	Seq          int64
	ID           string
	Type         string
	CategoryID   string
	CategoryName string
	AmountCents  int64
	Date         string
	Description  string
}

type CreateTransactionParams struct {
	ID           string
	Type         string
	CategoryID   string
	CategoryName string
	AmountCents  int64
	Date         string
	Description  string
}
