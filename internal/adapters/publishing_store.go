package adapters

import (
	"context"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	applog "bilancio/internal/log"
	"bilancio/internal/records"
)

// EventPublisher sends transaction events to the broker.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, e *amqp.TransactionEvent) error
}

// PublishingStore wraps a records.Store and publishes an event after every
// successful create or delete. Publish failures are logged and never
// reported to the caller: the mutation has already been stored.
type PublishingStore struct {
	records.Store
	publisher EventPublisher
	logger    *applog.Logger
}

var _ records.Store = (*PublishingStore)(nil)

func NewPublishingStore(store records.Store, publisher EventPublisher, logger *applog.Logger) *PublishingStore {
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	return &PublishingStore{
		Store:     store,
		publisher: publisher,
		logger:    logger.WithComponent(applog.ComponentAMQP),
	}
}

func (s *PublishingStore) CreateTransaction(ctx context.Context, in core.TransactionInput) (core.Transaction, error) {
	tx, err := s.Store.CreateTransaction(ctx, in)
	if err != nil {
		return tx, err
	}
	s.publish(ctx, amqp.NewCreatedEvent(tx))
	return tx, nil
}

func (s *PublishingStore) DeleteTransaction(ctx context.Context, id string) error {
	if err := s.Store.DeleteTransaction(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, amqp.NewDeletedEvent(id))
	return nil
}

func (s *PublishingStore) publish(ctx context.Context, e *amqp.TransactionEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishTransactionEvent(ctx, e); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish transaction event, mirror will miss it",
			applog.FieldOperation, applog.OpSync,
			applog.FieldTransactionID, e.ID,
			"kind", e.Kind,
			applog.FieldError, err.Error())
	}
}
