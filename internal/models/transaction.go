package models

import (
	"github.com/shopspring/decimal"
)

// TransactionStatus is the outcome recorded for one payment attempt.
type TransactionStatus string

const (
	// TransactionStatusPending is reserved for asynchronous processors; the
	// synchronous flow only ever persists terminal states.
	TransactionStatusPending TransactionStatus = "pending"
	TransactionStatusSuccess TransactionStatus = "success"
	TransactionStatusFailed  TransactionStatus = "failed"
)

// SuccessIndexName is the partial unique index allowing at most one
// successful transaction per order.
const SuccessIndexName = "idx_transactions_order_success"

// Transaction is an immutable record of one payment attempt against an order.
// SourceApp, Amount and Currency are copied from the order at attempt time.
type Transaction struct {
	BaseModel
	TransactionID  string            `gorm:"column:transaction_id;size:64;not null;uniqueIndex" json:"transactionId"`
	OrderID        string            `gorm:"column:order_id;size:64;not null;index;uniqueIndex:idx_transactions_order_success,where:status = 'success'" json:"orderId"`
	SourceApp      string            `gorm:"size:128;not null" json:"sourceApp"`
	Amount         decimal.Decimal   `gorm:"type:numeric(20,2);not null" json:"amount"`
	Currency       string            `gorm:"size:3;not null" json:"currency"`
	Status         TransactionStatus `gorm:"size:16;not null;index" json:"status"`
	Reason         string            `gorm:"size:255" json:"reason,omitempty"`
	CardHolderName string            `gorm:"not null" json:"cardHolderName"`
	CardNumber     string            `gorm:"size:16;not null" json:"-"`
	ExpiryDate     string            `gorm:"size:5;not null" json:"expiryDate"`
	CVV            string            `gorm:"column:cvv;size:3;not null" json:"-"`
	CardType       string            `gorm:"size:16" json:"cardType,omitempty"`
}

// MaskedCardNumber returns the card number with all but the last four digits hidden.
func (t *Transaction) MaskedCardNumber() string {
	n := len(t.CardNumber)
	if n <= 4 {
		return t.CardNumber
	}
	masked := make([]byte, n)
	for i := 0; i < n-4; i++ {
		masked[i] = '*'
	}
	copy(masked[n-4:], t.CardNumber[n-4:])
	return string(masked)
}
