package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the payment state of an order. It only ever moves created -> paid.
type OrderStatus string

const (
	OrderStatusCreated OrderStatus = "created"
	OrderStatusPaid    OrderStatus = "paid"
)

// Order is a merchant's request for payment of a fixed amount.
type Order struct {
	BaseModel
	OrderID       string          `gorm:"column:order_id;size:64;not null;uniqueIndex" json:"orderId"`
	SourceApp     string          `gorm:"size:128;not null;index" json:"sourceApp"`
	Amount        decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"amount"`
	Currency      string          `gorm:"size:3;not null" json:"currency"`
	Status        OrderStatus     `gorm:"size:16;not null;index" json:"status"`
	TransactionID *string         `gorm:"column:transaction_id;size:64;uniqueIndex" json:"transactionId,omitempty"`
	ExpiresAt     *time.Time      `json:"expiresAt,omitempty"`
}

// IsPaid reports whether the order has been finalized.
func (o *Order) IsPaid() bool {
	return o.Status == OrderStatusPaid
}

// Expired reports whether the order's validity window has passed at now.
func (o *Order) Expired(now time.Time) bool {
	return o.ExpiresAt != nil && !now.Before(*o.ExpiresAt)
}

// PaidWith returns the transaction id that paid the order, or "".
func (o *Order) PaidWith() string {
	if o.TransactionID == nil {
		return ""
	}
	return *o.TransactionID
}
