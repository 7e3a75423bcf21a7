package services

import (
	"errors"

	"bilancio/internal/core"
	"bilancio/internal/records"
)

// ErrorKind classifies a failed operation for the caller.
type ErrorKind int

const (
	// KindValidation means the input was rejected before reaching the store.
	KindValidation ErrorKind = iota + 1
	// KindOperationFailed means the store reported a failure.
	KindOperationFailed
	// KindNotFound means the target record does not exist.
	KindNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindOperationFailed:
		return "operation_failed"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// OperationError is returned by every TransactionService operation. Message
// is safe to show to the user.
type OperationError struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
}

func (e *OperationError) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Message
	}
	return e.Op + ": " + e.Message + ": " + e.Err.Error()
}

func (e *OperationError) Unwrap() error { return e.Err }

// KindOf returns the kind of the first OperationError in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var oe *OperationError
	if errors.As(err, &oe) {
		return oe.Kind
	}
	return 0
}

// Message returns the user-facing message of err.
func Message(err error) string {
	var oe *OperationError
	if errors.As(err, &oe) {
		return oe.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// ValidationError classifies err as rejected input of op, with the
// user-facing message for the core validation error it wraps.
func ValidationError(op string, err error) *OperationError {
	return &OperationError{Kind: KindValidation, Op: op, Message: validationMessage(err), Err: err}
}

// failure wraps a store error, preferring the store's own detail message.
func failure(op, fallback string, err error) *OperationError {
	msg := records.Detail(err)
	if msg == "" {
		msg = fallback
	}
	return &OperationError{Kind: KindOperationFailed, Op: op, Message: msg, Err: err}
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidType):
		return "Type must be income or expense"
	case errors.Is(err, core.ErrEmptyCategory):
		return "Category is required"
	case errors.Is(err, core.ErrInvalidAmount):
		return "Amount must be a positive number"
	case errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidDay),
		errors.Is(err, core.ErrInvalidMonth):
		return "Date must be a valid YYYY-MM-DD date"
	case errors.Is(err, core.ErrDescriptionLong):
		return "Description must be at most 200 characters"
	case errors.Is(err, core.ErrInvalidFilter):
		return "Filter must be all, income, expense or category:<name>"
	case errors.Is(err, core.ErrInvalidSort):
		return "Sort must be date, amount or category"
	case errors.Is(err, core.ErrInvalidOrder):
		return "Order must be asc or desc"
	case errors.Is(err, core.ErrInvalidPage):
		return "Page must be a positive integer"
	default:
		return "Invalid input"
	}
}
