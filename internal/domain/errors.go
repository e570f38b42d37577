package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation signals a malformed search query.
	ErrValidation = errors.New("invalid query")
	// ErrTimeout signals that an external fetch exceeded its budget.
	ErrTimeout = errors.New("search timed out")
	// ErrTransport signals a failure in the underlying document store.
	ErrTransport = errors.New("store unavailable")
	// ErrInternal signals a bug in scoring or caching logic.
	ErrInternal = errors.New("internal error")
	// ErrUnknownSearchType signals an unsupported search type.
	ErrUnknownSearchType = errors.New("unknown search type")
)

// ValidationError wraps ErrValidation with every violated rule, not just the first.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), strings.Join(e.Violations, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidation creates a validation error from the collected violations.
func NewValidation(violations []string) error {
	return &ValidationError{Violations: violations}
}

// TimeoutError wraps ErrTimeout with the budget that was exceeded.
type TimeoutError struct {
	BudgetMs int64
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: exceeded %dms", ErrTimeout.Error(), e.BudgetMs)
}

func (e *TimeoutError) Unwrap() error { return ErrTimeout }

// NewTimeout creates a timeout error for the given budget.
func NewTimeout(budgetMs int64) error {
	return &TimeoutError{BudgetMs: budgetMs}
}

// TransportError wraps ErrTransport with the failing operation name.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrTransport.Error(), e.Op, e.Err.Error())
}

func (e *TransportError) Unwrap() error { return ErrTransport }

// NewTransport wraps a store failure with its operation name.
func NewTransport(op string, err error) error {
	return &TransportError{Op: op, Err: err}
}
