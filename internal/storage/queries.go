package storage

import (
	"context"
	"database/sql"
	"errors"
)

const transactionColumns = `seq, id, type, category_id, category_name, amount_cents, date, description`

func scanTransaction(row interface{ Scan(...any) error }) (Transaction, error) {
	var t Transaction
	err := row.Scan(
		&t.Seq,
		&t.ID,
		&t.Type,
		&t.CategoryID,
		&t.CategoryName,
		&t.AmountCents,
		&t.Date,
		&t.Description,
	)
	return t, err
}

const listTransactions = `SELECT ` + transactionColumns + ` FROM transactions ORDER BY seq`

func (q *Queries) ListTransactions(ctx context.Context) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getTransaction = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id string) (Transaction, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, getTransaction, id))
}

const createTransaction = `INSERT INTO transactions (
    id, type, category_id, category_name, amount_cents, date, description
) VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING ` + transactionColumns

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, createTransaction,
		arg.ID,
		arg.Type,
		arg.CategoryID,
		arg.CategoryName,
		arg.AmountCents,
		arg.Date,
		arg.Description,
	)
	return scanTransaction(row)
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ?`

// DeleteTransaction returns the number of removed rows.
func (q *Queries) DeleteTransaction(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listCategories = `SELECT id, name FROM categories ORDER BY name COLLATE NOCASE`

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.QueryContext(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const findCategory = `SELECT id, name FROM categories
WHERE id = ?1 OR name = ?1 COLLATE NOCASE
ORDER BY CASE WHEN id = ?1 THEN 0 ELSE 1 END
LIMIT 1`

// FindCategory looks a category up by id first, then by name ignoring case.
// It returns false when nothing matches.
func (q *Queries) FindCategory(ctx context.Context, ref string) (Category, bool, error) {
	var c Category
	err := q.db.QueryRowContext(ctx, findCategory, ref).Scan(&c.ID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return Category{}, false, nil
	}
	if err != nil {
		return Category{}, false, err
	}
	return c, true, nil
}

const createCategory = `INSERT INTO categories (id, name) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`

// CreateCategory inserts a category unless one with the same name exists.
// It reports whether a row was inserted.
func (q *Queries) CreateCategory(ctx context.Context, id, name string) (bool, error) {
	result, err := q.db.ExecContext(ctx, createCategory, id, name)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	return n > 0, err
}
