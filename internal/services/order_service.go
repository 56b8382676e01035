package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/sugampay/internal/models"
	"github.com/example/sugampay/internal/store"
)

const (
	FieldAmount    = "amount"
	FieldSourceApp = "sourceApp"
	FieldOrderID   = "orderId"

	maxSourceAppLength = 128

	amountScale          = 2
	maxAmountWholeDigits = 18
)

// maxAmount is the largest value numeric(20,2) can hold.
var maxAmount = decimal.RequireFromString("999999999999999999.99")

// OrderConfig holds order defaults taken from configuration.
type OrderConfig struct {
	Currency string
	// TTL is how long a created order stays payable. Zero disables expiry.
	TTL time.Duration
}

// OrderService creates and reads orders.
type OrderService struct {
	store store.Store
	cfg   OrderConfig
	rt    runtime
}

func NewOrderService(st store.Store, cfg OrderConfig, opts ...Option) *OrderService {
	return &OrderService{store: st, cfg: cfg, rt: newRuntime(opts)}
}

// CreateOrder registers a new payable order for sourceApp.
func (s *OrderService) CreateOrder(ctx context.Context, amount decimal.Decimal, sourceApp string) (*models.Order, error) {
	sourceApp = strings.TrimSpace(sourceApp)

	if err := checkAmount(amount); err != nil {
		return nil, err
	}

	switch {
	case sourceApp == "":
		return nil, validationError(FieldSourceApp, "source app is required")
	case len(sourceApp) > maxSourceAppLength:
		return nil, validationError(FieldSourceApp, fmt.Sprintf("source app must be at most %d characters", maxSourceAppLength))
	}

	now := s.rt.now()
	for attempt := 1; attempt <= maxIDAttempts; attempt++ {
		order := &models.Order{
			OrderID:   s.rt.newID(OrderIDPrefix),
			SourceApp: sourceApp,
			Amount:    amount,
			Currency:  s.cfg.Currency,
			Status:    models.OrderStatusCreated,
		}
		if s.cfg.TTL > 0 {
			expiresAt := now.Add(s.cfg.TTL)
			order.ExpiresAt = &expiresAt
		}

		err := s.insert(ctx, order)
		if err == nil {
			ordersCreatedTotal.Inc()
			s.rt.log.Info().
				Str("order_id", order.OrderID).
				Str("source_app", sourceApp).
				Stringer("amount", amount).
				Msg("order created")
			return order, nil
		}
		if !errors.Is(err, store.ErrDuplicateKey) {
			s.rt.log.Error().Err(err).Str("source_app", sourceApp).Msg("order create failed")
			return nil, unavailableError(err)
		}
		s.rt.log.Warn().
			Str("order_id", order.OrderID).
			Int("attempt", attempt).
			Msg("order id collision, regenerating")
	}

	return nil, unavailableError(fmt.Errorf("no unique order id after %d attempts", maxIDAttempts))
}

// checkAmount validates amount using only the coefficient length and exponent
// until both are known to be small, so rescaling stays bounded by input size.
func checkAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return validationError(FieldAmount, "amount must be greater than zero")
	}

	digits, exp := amount.NumDigits(), int(amount.Exponent())
	switch {
	case digits+exp > maxAmountWholeDigits:
		return validationError(FieldAmount, "amount is too large")
	case exp < -amountScale && -exp-amountScale >= digits:
		// The coefficient cannot hold enough trailing zeros to reach the scale.
		return validationError(FieldAmount, "amount supports at most 2 decimal places")
	case !amount.Equal(amount.Round(amountScale)):
		return validationError(FieldAmount, "amount supports at most 2 decimal places")
	case amount.GreaterThan(maxAmount):
		return validationError(FieldAmount, "amount is too large")
	}
	return nil
}

func (s *OrderService) insert(ctx context.Context, order *models.Order) error {
	ctx, cancel := s.rt.storeCtx(ctx)
	defer cancel()
	return s.store.CreateOrder(ctx, order)
}

// GetOrder returns the order with orderID in any state.
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, validationError(FieldOrderID, "order id is required")
	}

	ctx, cancel := s.rt.storeCtx(ctx)
	defer cancel()

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, lookupError(err, ErrorInvalidOrder)
	}
	return order, nil
}

// GetPayableOrder returns the order only while it can still accept a payment.
// Paid orders yield an order_paid conflict carrying the paying transaction id.
func (s *OrderService) GetPayableOrder(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := checkPayable(order, s.rt.now()); err != nil {
		return nil, err
	}
	return order, nil
}

func checkPayable(order *models.Order, now time.Time) error {
	if order.IsPaid() {
		return &PaymentError{Info: ErrorOrderPaid, TransactionID: order.PaidWith()}
	}
	if order.Expired(now) {
		return &PaymentError{Info: ErrorOrderExpired}
	}
	return nil
}
