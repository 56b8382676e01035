package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/sugampay/internal/models"
)

const (
	EventPaymentSucceeded = "payment.succeeded"
	EventPaymentDeclined  = "payment.declined"
)

// PaymentEvent describes a committed payment attempt.
type PaymentEvent struct {
	Type          string                   `json:"type"`
	OrderID       string                   `json:"orderId"`
	TransactionID string                   `json:"transactionId"`
	SourceApp     string                   `json:"sourceApp"`
	Amount        decimal.Decimal          `json:"amount"`
	Currency      string                   `json:"currency"`
	Status        models.TransactionStatus `json:"status"`
	Reason        string                   `json:"reason,omitempty"`
	OccurredAt    time.Time                `json:"occurredAt"`
}

// PaymentNotifier is told about every committed attempt. Delivery failures are
// logged by the caller and never affect the payment outcome.
type PaymentNotifier interface {
	Name() string
	NotifyPayment(ctx context.Context, event PaymentEvent) error
}

func eventFor(txn *models.Transaction) PaymentEvent {
	eventType := EventPaymentSucceeded
	if txn.Status != models.TransactionStatusSuccess {
		eventType = EventPaymentDeclined
	}
	return PaymentEvent{
		Type:          eventType,
		OrderID:       txn.OrderID,
		TransactionID: txn.TransactionID,
		SourceApp:     txn.SourceApp,
		Amount:        txn.Amount,
		Currency:      txn.Currency,
		Status:        txn.Status,
		Reason:        txn.Reason,
		OccurredAt:    txn.CreatedAt,
	}
}
