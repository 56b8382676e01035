package services

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/sugampay/internal/models"
	"github.com/example/sugampay/internal/store"
)

func TestNewID_Format(t *testing.T) {
	id := NewID(OrderIDPrefix)
	assert.Regexp(t, regexp.MustCompile(`^ORD_[0-9A-F]{32}$`), id)
	assert.NotEqual(t, id, NewID(OrderIDPrefix))
}

func TestCreateOrder(t *testing.T) {
	svc := NewOrderService(store.NewMemoryStore(), OrderConfig{Currency: "INR", TTL: 30 * time.Minute},
		WithClock(func() time.Time { return june2025 }))

	order, err := svc.CreateOrder(context.Background(), decimal.RequireFromString("499.50"), "  ShopX ")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(order.OrderID, OrderIDPrefix))
	assert.Equal(t, "ShopX", order.SourceApp)
	assert.Equal(t, "INR", order.Currency)
	assert.Equal(t, models.OrderStatusCreated, order.Status)
	assert.Nil(t, order.TransactionID)
	require.NotNil(t, order.ExpiresAt)
	assert.Equal(t, june2025.Add(30*time.Minute), *order.ExpiresAt)

	fetched, err := svc.GetOrder(context.Background(), order.OrderID)
	require.NoError(t, err)
	assert.True(t, order.Amount.Equal(fetched.Amount))
}

func TestCreateOrder_NoTTL(t *testing.T) {
	svc := NewOrderService(store.NewMemoryStore(), OrderConfig{Currency: "INR"})

	order, err := svc.CreateOrder(context.Background(), decimal.NewFromInt(1), "ShopX")
	require.NoError(t, err)
	assert.Nil(t, order.ExpiresAt)
}

func TestCreateOrder_Validation(t *testing.T) {
	svc := NewOrderService(store.NewMemoryStore(), OrderConfig{Currency: "INR"})

	tests := []struct {
		name      string
		amount    string
		sourceApp string
		field     string
	}{
		{"zero amount", "0", "ShopX", FieldAmount},
		{"negative amount", "-5", "ShopX", FieldAmount},
		{"three decimals", "1.005", "ShopX", FieldAmount},
		{"too large", "1000000000000000000", "ShopX", FieldAmount},
		{"blank source app", "10", "   ", FieldSourceApp},
		{"long source app", "10", strings.Repeat("a", 129), FieldSourceApp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateOrder(context.Background(), decimal.RequireFromString(tt.amount), tt.sourceApp)
			var pe *PaymentError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, KindValidation, pe.Info.Kind)
			assert.Equal(t, tt.field, pe.Field)
		})
	}
}

func TestCreateOrder_ExtremeExponents(t *testing.T) {
	svc := NewOrderService(store.NewMemoryStore(), OrderConfig{Currency: "INR"})

	tests := []struct {
		raw     string
		message string
	}{
		{"1e20000000", "amount is too large"},
		{"1e2000000000", "amount is too large"},
		{"1e-20000000", "amount supports at most 2 decimal places"},
		{"15e-2000000000", "amount supports at most 2 decimal places"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var amount decimal.Decimal
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &amount))

			done := make(chan error, 1)
			go func() {
				_, err := svc.CreateOrder(context.Background(), amount, "ShopX")
				done <- err
			}()

			select {
			case err := <-done:
				var pe *PaymentError
				require.ErrorAs(t, err, &pe)
				assert.Equal(t, FieldAmount, pe.Field)
				assert.Equal(t, tt.message, pe.Message())
			case <-time.After(5 * time.Second):
				t.Fatal("amount validation did not return promptly")
			}
		})
	}
}

func TestCreateOrder_AcceptsEquivalentScales(t *testing.T) {
	svc := NewOrderService(store.NewMemoryStore(), OrderConfig{Currency: "INR"})

	for _, raw := range []string{"1.500", "12e2", "0.10000", "999999999999999999.99"} {
		var amount decimal.Decimal
		require.NoError(t, json.Unmarshal([]byte(raw), &amount))

		order, err := svc.CreateOrder(context.Background(), amount, "ShopX")
		require.NoError(t, err, raw)
		assert.True(t, amount.Equal(order.Amount), raw)
	}
}

func ordersCreatedSample(t *testing.T) (labels int, value float64) {
	t.Helper()

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "sugampay_orders_created_total" {
			continue
		}
		require.Len(t, mf.GetMetric(), 1)
		m := mf.GetMetric()[0]
		return len(m.GetLabel()), m.GetCounter().GetValue()
	}
	t.Fatal("sugampay_orders_created_total not registered")
	return 0, 0
}

func TestCreateOrder_CounterIgnoresSourceApp(t *testing.T) {
	svc := NewOrderService(store.NewMemoryStore(), OrderConfig{Currency: "INR"})
	_, before := ordersCreatedSample(t)

	for _, app := range []string{"ShopX", "ShopY", strings.Repeat("z", 128)} {
		_, err := svc.CreateOrder(context.Background(), decimal.NewFromInt(10), app)
		require.NoError(t, err)
	}

	labels, after := ordersCreatedSample(t)
	assert.Zero(t, labels)
	assert.Equal(t, before+3, after)
}

func TestCreateOrder_RegeneratesOnCollision(t *testing.T) {
	st := store.NewMemoryStore()
	require.NoError(t, st.CreateOrder(context.Background(), &models.Order{
		OrderID:   "ORD_TAKEN",
		SourceApp: "ShopX",
		Amount:    decimal.NewFromInt(1),
		Currency:  "INR",
		Status:    models.OrderStatusCreated,
	}))

	ids := []string{"ORD_TAKEN", "ORD_TAKEN", "ORD_FREE"}
	calls := 0
	svc := NewOrderService(st, OrderConfig{Currency: "INR"}, WithIDGenerator(func(string) string {
		id := ids[calls]
		calls++
		return id
	}))

	order, err := svc.CreateOrder(context.Background(), decimal.NewFromInt(10), "ShopX")
	require.NoError(t, err)
	assert.Equal(t, "ORD_FREE", order.OrderID)
	assert.Equal(t, 3, calls)
}

func TestCreateOrder_GivesUpAfterRepeatedCollisions(t *testing.T) {
	st := store.NewMemoryStore()
	require.NoError(t, st.CreateOrder(context.Background(), &models.Order{OrderID: "ORD_TAKEN", Status: models.OrderStatusCreated}))

	svc := NewOrderService(st, OrderConfig{Currency: "INR"}, WithIDGenerator(func(string) string { return "ORD_TAKEN" }))

	_, err := svc.CreateOrder(context.Background(), decimal.NewFromInt(10), "ShopX")
	assert.True(t, IsKind(err, KindUnavailable))
}

func TestGetOrder_NotFound(t *testing.T) {
	svc := NewOrderService(store.NewMemoryStore(), OrderConfig{Currency: "INR"})

	_, err := svc.GetOrder(context.Background(), "ORD_MISSING")
	assert.True(t, IsKind(err, KindNotFound))

	_, err = svc.GetOrder(context.Background(), "")
	assert.True(t, IsKind(err, KindValidation))
}
