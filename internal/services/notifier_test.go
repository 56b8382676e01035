package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/sugampay/internal/models"
)

func sampleEvent(eventType string) PaymentEvent {
	return PaymentEvent{
		Type:          eventType,
		OrderID:       "ORD_1",
		TransactionID: "TXN_1",
		SourceApp:     "ShopX",
		Amount:        decimal.RequireFromString("1234567.5"),
		Currency:      "INR",
		Status:        models.TransactionStatusSuccess,
		OccurredAt:    june2025,
	}
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "1,234,567.50 INR", FormatPrice(decimal.RequireFromString("1234567.5"), "INR"))
	assert.Equal(t, "500.00 INR", FormatPrice(decimal.NewFromInt(500), "INR"))
	assert.Equal(t, "-1,000.00 INR", FormatPrice(decimal.NewFromInt(-1000), "INR"))
}

func TestTelegramNotifyPayment(t *testing.T) {
	var got telegramMessage
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tg := NewTelegramService("token", "42", zerolog.Nop()).WithBaseURL(srv.URL)

	require.NoError(t, tg.NotifyPayment(context.Background(), sampleEvent(EventPaymentSucceeded)))
	assert.Equal(t, "/bottoken/sendMessage", path)
	assert.Equal(t, "42", got.ChatID)
	assert.Equal(t, "HTML", got.ParseMode)
	assert.Contains(t, got.Text, "ORD_1")
	assert.Contains(t, got.Text, "1,234,567.50 INR")
}

func TestFormatPaymentMessage_EscapesMerchantText(t *testing.T) {
	event := sampleEvent(EventPaymentSucceeded)
	event.SourceApp = "<Shop&X>"

	msg := formatPaymentMessage(event)
	assert.Contains(t, msg, "<b>🏪 Merchant:</b> &lt;Shop&amp;X&gt;")
	assert.NotContains(t, msg, "<Shop&X>")
}

func TestTelegramSkipsDeclinesAndUnconfigured(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	tg := NewTelegramService("token", "42", zerolog.Nop()).WithBaseURL(srv.URL)
	require.NoError(t, tg.NotifyPayment(context.Background(), sampleEvent(EventPaymentDeclined)))

	off := NewTelegramService("", "", zerolog.Nop()).WithBaseURL(srv.URL)
	assert.False(t, off.Enabled())
	require.NoError(t, off.NotifyPayment(context.Background(), sampleEvent(EventPaymentSucceeded)))

	assert.Zero(t, calls)
}

func TestTelegramNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	tg := NewTelegramService("token", "42", zerolog.Nop()).WithBaseURL(srv.URL)
	assert.Error(t, tg.NotifyPayment(context.Background(), sampleEvent(EventPaymentSucceeded)))
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaPublisher(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w}

	require.NoError(t, p.NotifyPayment(context.Background(), sampleEvent(EventPaymentSucceeded)))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "ORD_1", string(msg.Key))
	assert.Equal(t, june2025, msg.Time.In(time.UTC))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, EventPaymentSucceeded, string(msg.Headers[0].Value))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "TXN_1", decoded["transactionId"])
	assert.Equal(t, "success", decoded["status"])
	assert.Equal(t, "1234567.5", decoded["amount"])
}

func TestKafkaPublisherWriteError(t *testing.T) {
	p := &KafkaPublisher{writer: &fakeWriter{err: errors.New("no brokers")}}
	assert.Error(t, p.NotifyPayment(context.Background(), sampleEvent(EventPaymentDeclined)))
}
