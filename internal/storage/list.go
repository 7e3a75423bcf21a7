package storage

import (
	"context"
	"fmt"
	"strings"

	"bilancio/internal/core"
	"bilancio/internal/report"
)

// orderColumns maps sort fields to their SQL expression. Values come from
// this table only, never from the request.
var orderColumns = map[core.SortField]string{
	core.SortByDate:     "date",
	core.SortByAmount:   "amount_cents",
	core.SortByCategory: "lower(category_name)",
}

// whereClause renders the filter as a WHERE clause and its arguments.
func whereClause(f core.Filter) (string, []any) {
	switch f {
	case core.FilterIncome, core.FilterExpense:
		return " WHERE type = ?", []any{string(f)}
	}
	if ref, ok := f.Category(); ok {
		return " WHERE (category_id = ? OR lower(trim(category_name)) = lower(?))", []any{ref, ref}
	}
	return "", nil
}

// orderClause sorts by the requested field and breaks ties on insertion
// order, ascending in both directions, so equal rows keep their input order.
func orderClause(p core.Params) string {
	col, ok := orderColumns[p.Sort]
	if !ok {
		col = orderColumns[core.SortByDate]
	}
	dir := "ASC"
	if p.Order == core.OrderDesc {
		dir = "DESC"
	}
	return " ORDER BY " + col + " " + dir + ", seq ASC"
}

// ListTransactions answers one page of the view described by p in SQL.
// Out-of-range pages are clamped the same way report.Paginate does.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, p core.Params, pageSize int) (core.TransactionPage, error) {
	where, args := whereClause(p.Filter)

	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions"+where, args...).Scan(&count); err != nil {
		return core.TransactionPage{}, fmt.Errorf("count transactions: %w", err)
	}

	b := report.Bounds(count, p.Page, pageSize)
	page := core.TransactionPage{Transactions: []core.Transaction{}, Pagination: b.Pagination}
	if b.Limit == 0 {
		return page, nil
	}

	var q strings.Builder
	q.WriteString("SELECT ")
	q.WriteString(transactionColumns)
	q.WriteString(" FROM transactions")
	q.WriteString(where)
	q.WriteString(orderClause(p))
	q.WriteString(" LIMIT ? OFFSET ?")
	args = append(args, b.Limit, b.Offset)

	rows, err := r.db.QueryContext(ctx, q.String(), args...)
	if err != nil {
		return core.TransactionPage{}, fmt.Errorf("list transactions page: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		row, err := scanTransaction(rows)
		if err != nil {
			return core.TransactionPage{}, fmt.Errorf("scan transaction: %w", err)
		}
		tx, err := toCore(row)
		if err != nil {
			return core.TransactionPage{}, err
		}
		page.Transactions = append(page.Transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return core.TransactionPage{}, fmt.Errorf("iterate transactions: %w", err)
	}
	return page, nil
}
