package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bilancio/internal/core"
)

// EventKind names what happened to a transaction.
type EventKind string

const (
	TransactionCreated EventKind = "transaction.created"
	TransactionDeleted EventKind = "transaction.deleted"
)

// TransactionPayload is the wire form of a transaction. Amounts travel as
// integer cents and dates as YYYY-MM-DD.
type TransactionPayload struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	CategoryID   string `json:"category_id"`
	CategoryName string `json:"category"`
	AmountCents  int64  `json:"amount_cents"`
	Date         string `json:"date"`
	Description  string `json:"description,omitempty"`
}

// TransactionEvent is published after a mutation has been stored. Deleted
// events carry only the id.
type TransactionEvent struct {
	Kind        EventKind           `json:"kind"`
	ID          string              `json:"id"`
	Transaction *TransactionPayload `json:"transaction,omitempty"`
	Timestamp   time.Time           `json:"timestamp"`
}

func NewCreatedEvent(tx core.Transaction) *TransactionEvent {
	return &TransactionEvent{
		Kind: TransactionCreated,
		ID:   tx.ID,
		Transaction: &TransactionPayload{
			ID:           tx.ID,
			Type:         string(tx.Type),
			CategoryID:   tx.CategoryID,
			CategoryName: tx.CategoryName,
			AmountCents:  tx.Amount.Cents,
			Date:         tx.Date.String(),
			Description:  tx.Description,
		},
		Timestamp: time.Now(),
	}
}

func NewDeletedEvent(id string) *TransactionEvent {
	return &TransactionEvent{
		Kind:      TransactionDeleted,
		ID:        id,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes and checks an event.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var e TransactionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if e.ID == "" {
		return nil, errors.New("event without id")
	}
	switch e.Kind {
	case TransactionCreated:
		if e.Transaction == nil {
			return nil, fmt.Errorf("%s event %s without transaction", e.Kind, e.ID)
		}
	case TransactionDeleted:
	default:
		return nil, fmt.Errorf("unknown event kind %q", e.Kind)
	}
	return &e, nil
}

// ToTransaction converts the payload back to a validated domain value.
func (p *TransactionPayload) ToTransaction() (core.Transaction, error) {
	typ := core.TransactionType(p.Type)
	if !typ.IsValid() {
		return core.Transaction{}, core.ErrInvalidType
	}
	date, err := core.ParseDate(p.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	amount := core.Money{Cents: p.AmountCents}
	if err := amount.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		ID:           p.ID,
		Type:         typ,
		CategoryID:   p.CategoryID,
		CategoryName: p.CategoryName,
		Amount:       amount,
		Date:         date,
		Description:  p.Description,
	}, nil
}
