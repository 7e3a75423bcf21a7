// Package worker applies transaction events from the broker to a mirror,
// typically a Google Sheet kept alongside the primary store.
package worker

import (
	"context"
	"errors"
	"fmt"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	applog "bilancio/internal/log"
)

// Mirror is the destination of replicated transactions. Both operations
// must tolerate replays.
type Mirror interface {
	AppendTransaction(ctx context.Context, tx core.Transaction) error
	DeleteTransaction(ctx context.Context, id string) error
}

// MirrorWorker handles one event at a time.
type MirrorWorker struct {
	mirror Mirror
	logger *applog.Logger
}

func NewMirrorWorker(mirror Mirror, logger *applog.Logger) *MirrorWorker {
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	return &MirrorWorker{mirror: mirror, logger: logger.WithComponent(applog.ComponentWorker)}
}

// HandleEvent applies e to the mirror. A returned error asks for redelivery,
// so events that can never succeed are logged and acknowledged instead.
func (w *MirrorWorker) HandleEvent(ctx context.Context, e *amqp.TransactionEvent) error {
	switch e.Kind {
	case amqp.TransactionCreated:
		tx, err := e.Transaction.ToTransaction()
		if err != nil {
			w.logger.ErrorContext(ctx, "Dropping created event with invalid payload",
				applog.FieldTransactionID, e.ID,
				applog.FieldError, err.Error())
			return nil
		}
		if err := w.mirror.AppendTransaction(ctx, tx); err != nil {
			return fmt.Errorf("mirror created transaction %s: %w", e.ID, err)
		}
		w.logger.InfoContext(ctx, "Transaction mirrored", applog.NewFields().
			WithOperation(applog.OpAppend).
			WithTransaction(tx.ID, string(tx.Type), tx.CategoryName, tx.Amount.Cents, tx.Date.String()).
			ToSlice()...)

	case amqp.TransactionDeleted:
		err := w.mirror.DeleteTransaction(ctx, e.ID)
		if errors.Is(err, core.ErrNotFound) {
			w.logger.InfoContext(ctx, "Deleted transaction not in mirror", applog.FieldTransactionID, e.ID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("mirror deleted transaction %s: %w", e.ID, err)
		}
		w.logger.InfoContext(ctx, "Transaction removed from mirror",
			applog.FieldOperation, applog.OpDelete,
			applog.FieldTransactionID, e.ID)

	default:
		w.logger.WarnContext(ctx, "Ignoring unknown event", "kind", e.Kind, applog.FieldTransactionID, e.ID)
	}
	return nil
}
