package adapters

import (
	"context"
	"errors"
	"sync"
	"testing"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/records"
	"bilancio/internal/records/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.TransactionEvent
	err    error
}

func (p *recordingPublisher) PublishTransactionEvent(_ context.Context, e *amqp.TransactionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func newStore(pub EventPublisher) *PublishingStore {
	return NewPublishingStore(records.Paged(memory.New(memory.DefaultCategories)), pub, nil)
}

func validInput() core.TransactionInput {
	return core.TransactionInput{
		Type:     core.Expense,
		Category: "Food",
		Amount:   core.Money{Cents: 500},
		Date:     core.NewDate(2024, 5, 1),
	}
}

func TestPublishingStore_PublishesAfterMutations(t *testing.T) {
	pub := &recordingPublisher{}
	s := newStore(pub)
	ctx := context.Background()

	tx, err := s.CreateTransaction(ctx, validInput())
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}
	if err := s.DeleteTransaction(ctx, tx.ID); err != nil {
		t.Fatalf("DeleteTransaction() error = %v", err)
	}

	if len(pub.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(pub.events))
	}
	if pub.events[0].Kind != amqp.TransactionCreated || pub.events[0].Transaction.AmountCents != 500 {
		t.Errorf("unexpected created event: %+v", pub.events[0])
	}
	if pub.events[1].Kind != amqp.TransactionDeleted || pub.events[1].ID != tx.ID {
		t.Errorf("unexpected deleted event: %+v", pub.events[1])
	}
}

func TestPublishingStore_NoEventOnFailure(t *testing.T) {
	pub := &recordingPublisher{}
	s := newStore(pub)
	ctx := context.Background()

	in := validInput()
	in.Category = "Unknown"
	if _, err := s.CreateTransaction(ctx, in); err == nil {
		t.Fatal("expected create error")
	}
	if err := s.DeleteTransaction(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(pub.events) != 0 {
		t.Errorf("expected no events, got %d", len(pub.events))
	}
}

func TestPublishingStore_PublishErrorIsNotFatal(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("circuit breaker is open")}
	s := newStore(pub)

	if _, err := s.CreateTransaction(context.Background(), validInput()); err != nil {
		t.Fatalf("publish failure must not fail the create, got %v", err)
	}
	txs, _ := s.Transactions(context.Background())
	if len(txs) != 1 {
		t.Errorf("expected the transaction to be stored, got %d", len(txs))
	}
}

func TestPublishingStore_NilPublisher(t *testing.T) {
	s := NewPublishingStore(records.Paged(memory.New(memory.DefaultCategories)), nil, nil)
	if _, err := s.CreateTransaction(context.Background(), validInput()); err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}
}
