// Package records defines the ports to the record store: the raw
// transaction and category snapshot, the create and delete operations and
// the paged listing built on top of them.
package records

import (
	"context"
	"errors"

	"bilancio/internal/core"
	"bilancio/internal/report"
)

// Ports for outbound adapters.
type (
	// Reader supplies the current snapshot. Transactions are returned in
	// insertion order; ordering for display is applied by the caller.
	Reader interface {
		Transactions(ctx context.Context) ([]core.Transaction, error)
		ListCategories(ctx context.Context) ([]core.Category, error)
	}

	Writer interface {
		CreateTransaction(ctx context.Context, in core.TransactionInput) (core.Transaction, error)
		// DeleteTransaction returns an error wrapping core.ErrNotFound when
		// no transaction has the given id.
		DeleteTransaction(ctx context.Context, id string) error
	}

	Source interface {
		Reader
		Writer
	}

	// Store is the full record store adapter: a Source that can also answer
	// one page of a filtered, ordered view.
	Store interface {
		Source
		ListTransactions(ctx context.Context, p core.Params, pageSize int) (core.TransactionPage, error)
	}
)

// StoreError is a store failure carrying a message that is safe to show to
// the user.
type StoreError struct {
	Op     string
	Detail string
	Err    error
}

func (e *StoreError) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Detail
	}
	return e.Op + ": " + e.Detail + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error { return e.Err }

// Detail returns the user-facing message of the first StoreError in err's
// chain, or "" when there is none.
func Detail(err error) string {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Detail
	}
	return ""
}

// Paged returns src as a Store. Sources that page natively are returned
// unchanged; others are paged in memory over their full snapshot.
func Paged(src Source) Store {
	if s, ok := src.(Store); ok {
		return s
	}
	return pagedSource{src}
}

type pagedSource struct {
	Source
}

func (p pagedSource) ListTransactions(ctx context.Context, params core.Params, pageSize int) (core.TransactionPage, error) {
	txs, err := p.Transactions(ctx)
	if err != nil {
		return core.TransactionPage{}, err
	}
	return report.Paginate(txs, params, pageSize), nil
}
