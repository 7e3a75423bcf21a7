package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"bilancio/internal/core"
	"bilancio/internal/records"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var _ records.Store = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer keeps SQLITE_BUSY out of concurrent mutations.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("SQLite schema ready", "path", dbPath, "version", version)

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Transactions returns every transaction in insertion order.
func (r *SQLiteRepository) Transactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		tx, err := toCore(row)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]core.Category, len(rows))
	for i, c := range rows {
		out[i] = core.Category{ID: c.ID, Name: c.Name}
	}
	return out, nil
}

// CreateTransaction validates in, resolves its category and stores it with
// the category's current display name.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, in core.TransactionInput) (core.Transaction, error) {
	if err := in.Validate(); err != nil {
		return core.Transaction{}, err
	}

	ref := strings.TrimSpace(in.Category)
	cat, ok, err := r.queries.FindCategory(ctx, ref)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("find category: %w", err)
	}
	if !ok {
		return core.Transaction{}, &records.StoreError{
			Op:     "create transaction",
			Detail: fmt.Sprintf("Unknown category %q", ref),
			Err:    core.ErrUnknownCategory,
		}
	}

	row, err := r.queries.CreateTransaction(ctx, CreateTransactionParams{
		ID:           uuid.NewString(),
		Type:         string(in.Type),
		CategoryID:   cat.ID,
		CategoryName: cat.Name,
		AmountCents:  in.Amount.Cents,
		Date:         in.Date.String(),
		Description:  strings.TrimSpace(in.Description),
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", row.ID,
		"type", row.Type,
		"category", row.CategoryName,
		"amount_cents", row.AmountCents,
		"date", row.Date)

	return toCore(row)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	n, err := r.queries.DeleteTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete transaction %s: %w", id, core.ErrNotFound)
	}
	slog.InfoContext(ctx, "Transaction deleted from SQLite", "id", id)
	return nil
}

// CreateCategory adds a category unless one with the same name (ignoring
// case) exists. It reports whether a row was inserted.
func (r *SQLiteRepository) CreateCategory(ctx context.Context, name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, core.ErrEmptyCategory
	}
	created, err := r.queries.CreateCategory(ctx, uuid.NewString(), name)
	if err != nil {
		return false, fmt.Errorf("create category: %w", err)
	}
	return created, nil
}

// SyncCategories inserts every name not yet present and returns how many
// were added.
func (r *SQLiteRepository) SyncCategories(ctx context.Context, names []string) (int, error) {
	added := 0
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		created, err := r.CreateCategory(ctx, name)
		if err != nil {
			return added, err
		}
		if created {
			added++
		}
	}
	slog.InfoContext(ctx, "Categories synced", "received", len(names), "added", added)
	return added, nil
}

func toCore(row Transaction) (core.Transaction, error) {
	date, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s: bad date %q: %w", row.ID, row.Date, err)
	}
	return core.Transaction{
		ID:           row.ID,
		Type:         core.TransactionType(row.Type),
		CategoryID:   row.CategoryID,
		CategoryName: row.CategoryName,
		Amount:       core.Money{Cents: row.AmountCents},
		Date:         date,
		Description:  row.Description,
	}, nil
}
