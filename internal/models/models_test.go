package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestTransaction_MaskedCardNumber(t *testing.T) {
	txn := Transaction{CardNumber: "4111111111111111"}
	assert.Equal(t, "************1111", txn.MaskedCardNumber())

	short := Transaction{CardNumber: "42"}
	assert.Equal(t, "42", short.MaskedCardNumber())
}

func TestOrder_Expired(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	deadline := now.Add(time.Minute)

	open := Order{}
	assert.False(t, open.Expired(now))

	bounded := Order{ExpiresAt: &deadline}
	assert.False(t, bounded.Expired(now))
	assert.True(t, bounded.Expired(deadline))
	assert.True(t, bounded.Expired(deadline.Add(time.Second)))
}

func TestOrder_PaidWith(t *testing.T) {
	o := Order{Status: OrderStatusCreated}
	assert.False(t, o.IsPaid())
	assert.Empty(t, o.PaidWith())

	txnID := "TXN_1"
	o.Status, o.TransactionID = OrderStatusPaid, &txnID
	assert.True(t, o.IsPaid())
	assert.Equal(t, "TXN_1", o.PaidWith())
}

func TestBaseModel_BeforeCreateKeepsExistingID(t *testing.T) {
	id := uuid.New()
	b := BaseModel{ID: id}
	assert.NoError(t, b.BeforeCreate(nil))
	assert.Equal(t, id, b.ID)

	var fresh BaseModel
	assert.NoError(t, fresh.BeforeCreate(nil))
	assert.NotEqual(t, uuid.Nil, fresh.ID)
}
