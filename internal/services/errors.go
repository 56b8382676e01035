package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a PaymentError for callers and the HTTP layer.
type ErrorKind string

const (
	KindValidation  ErrorKind = "validation"
	KindNotFound    ErrorKind = "not_found"
	KindConflict    ErrorKind = "conflict"
	KindUnavailable ErrorKind = "unavailable"
)

// ErrorInfo describes a client-facing error.
type ErrorInfo struct {
	Kind    ErrorKind
	Code    string
	Message string
}

var (
	ErrorInvalidInput = ErrorInfo{
		Kind:    KindValidation,
		Code:    "invalid_input",
		Message: "Invalid input",
	}
	ErrorInvalidOrder = ErrorInfo{
		Kind:    KindNotFound,
		Code:    "invalid_order",
		Message: "Invalid Order ID",
	}
	ErrorTransactionNotFound = ErrorInfo{
		Kind:    KindNotFound,
		Code:    "transaction_not_found",
		Message: "Transaction not found",
	}
	ErrorOrderPaid = ErrorInfo{
		Kind:    KindConflict,
		Code:    "order_paid",
		Message: "Order already paid",
	}
	ErrorOrderExpired = ErrorInfo{
		Kind:    KindConflict,
		Code:    "order_expired",
		Message: "Order has expired",
	}
	ErrorStoreUnavailable = ErrorInfo{
		Kind:    KindUnavailable,
		Code:    "store_unavailable",
		Message: "Payment service temporarily unavailable, please retry",
	}
)

// PaymentError is returned by the order and payment services. A decline is
// not a PaymentError; it is a PaymentOutcome.
type PaymentError struct {
	Info ErrorInfo
	// Field names the offending input for validation errors.
	Field string
	// Detail overrides Info.Message when set.
	Detail string
	// TransactionID is the paying transaction for order_paid conflicts.
	TransactionID string
	Err           error
}

func (e *PaymentError) Error() string {
	msg := e.Message()
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *PaymentError) Unwrap() error {
	return e.Err
}

// Message is the client-facing text.
func (e *PaymentError) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Info.Message
}

// Retriable reports whether resubmitting the identical request may succeed.
func (e *PaymentError) Retriable() bool {
	return e.Info.Kind == KindUnavailable
}

// IsKind reports whether err is a PaymentError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var pe *PaymentError
	return errors.As(err, &pe) && pe.Info.Kind == kind
}

func validationError(field, detail string) *PaymentError {
	return &PaymentError{Info: ErrorInvalidInput, Field: field, Detail: detail}
}

// ValidationError builds a validation PaymentError for boundary checks done
// outside this package.
func ValidationError(field, detail string) error {
	return validationError(field, detail)
}

func unavailableError(err error) *PaymentError {
	return &PaymentError{Info: ErrorStoreUnavailable, Err: err}
}
