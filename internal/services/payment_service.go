package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/sugampay/internal/models"
	"github.com/example/sugampay/internal/store"
)

const notifyTimeout = 10 * time.Second

// PaymentOutcome is the committed result of an attempt. Both accepted and
// declined attempts produce one; a declined order stays payable.
type PaymentOutcome struct {
	Status        models.TransactionStatus
	TransactionID string
	OrderID       string
	Amount        decimal.Decimal
	Currency      string
	Reason        string
}

// Accepted reports whether the attempt paid the order.
func (o *PaymentOutcome) Accepted() bool {
	return o.Status == models.TransactionStatusSuccess
}

// PaymentService runs payment attempts against orders.
type PaymentService struct {
	store     store.Store
	decider   Decider
	notifiers []PaymentNotifier
	rt        runtime

	pending sync.WaitGroup
}

func NewPaymentService(st store.Store, decider Decider, notifiers []PaymentNotifier, opts ...Option) *PaymentService {
	return &PaymentService{
		store:     st,
		decider:   decider,
		notifiers: notifiers,
		rt:        newRuntime(opts),
	}
}

// SubmitPayment validates in, decides the attempt and commits it atomically.
// Checks run in a fixed order: order exists, order is created, order has not
// expired, instrument is valid. Only then is a transaction recorded.
func (s *PaymentService) SubmitPayment(ctx context.Context, orderID string, in Instrument) (*PaymentOutcome, error) {
	outcome, err := s.submit(ctx, strings.TrimSpace(orderID), in)
	if err != nil {
		recordAttemptError(err)
		return nil, err
	}
	recordAttempt(string(outcome.Status))
	return outcome, nil
}

func (s *PaymentService) submit(ctx context.Context, orderID string, in Instrument) (*PaymentOutcome, error) {
	if orderID == "" {
		return nil, validationError(FieldOrderID, "order id is required")
	}

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	now := s.rt.now()
	if err := checkPayable(order, now); err != nil {
		return nil, err
	}

	card, err := in.normalize(now)
	if err != nil {
		s.rt.log.Info().Err(err).Str("order_id", orderID).Msg("payment rejected")
		return nil, err
	}

	decision, err := s.decider.Decide(ctx, card)
	if err != nil {
		s.rt.log.Error().Err(err).Str("order_id", orderID).Msg("payment decision failed")
		return nil, unavailableError(fmt.Errorf("decide: %w", err))
	}

	status := models.TransactionStatusSuccess
	if !decision.Approved {
		status = models.TransactionStatusFailed
	}

	for attempt := 1; attempt <= maxIDAttempts; attempt++ {
		txn := &models.Transaction{
			// Finalize checks order expiry against CreatedAt.
			BaseModel:      models.BaseModel{CreatedAt: s.rt.now()},
			TransactionID:  s.rt.newID(TransactionIDPrefix),
			OrderID:        order.OrderID,
			SourceApp:      order.SourceApp,
			Amount:         order.Amount,
			Currency:       order.Currency,
			Status:         status,
			Reason:         decision.Reason,
			CardHolderName: card.HolderName,
			CardNumber:     card.Number,
			ExpiryDate:     card.Expiry,
			CVV:            card.VerificationCode,
			CardType:       card.Type,
		}

		err := s.finalize(ctx, txn)
		switch {
		case err == nil:
			s.rt.log.Info().
				Str("order_id", txn.OrderID).
				Str("transaction_id", txn.TransactionID).
				Str("status", string(txn.Status)).
				Msg("payment recorded")
			s.notify(eventFor(txn))
			return &PaymentOutcome{
				Status:        txn.Status,
				TransactionID: txn.TransactionID,
				OrderID:       txn.OrderID,
				Amount:        txn.Amount,
				Currency:      txn.Currency,
				Reason:        txn.Reason,
			}, nil
		case errors.Is(err, store.ErrDuplicateKey):
			s.rt.log.Warn().
				Str("transaction_id", txn.TransactionID).
				Int("attempt", attempt).
				Msg("transaction id collision, regenerating")
		case errors.Is(err, store.ErrAlreadyPaid):
			return nil, s.alreadyPaid(ctx, orderID, err)
		case errors.Is(err, store.ErrOrderExpired):
			return nil, &PaymentError{Info: ErrorOrderExpired, Err: err}
		case errors.Is(err, store.ErrNotFound):
			return nil, &PaymentError{Info: ErrorInvalidOrder, Err: err}
		default:
			s.rt.log.Error().Err(err).Str("order_id", orderID).Msg("payment finalize failed")
			return nil, unavailableError(err)
		}
	}

	return nil, unavailableError(fmt.Errorf("no unique transaction id after %d attempts", maxIDAttempts))
}

func (s *PaymentService) loadOrder(ctx context.Context, orderID string) (*models.Order, error) {
	ctx, cancel := s.rt.storeCtx(ctx)
	defer cancel()

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, lookupError(err, ErrorInvalidOrder)
	}
	return order, nil
}

func (s *PaymentService) finalize(ctx context.Context, txn *models.Transaction) error {
	ctx, cancel := s.rt.storeCtx(ctx)
	defer cancel()
	_, err := s.store.Finalize(ctx, txn)
	return err
}

// alreadyPaid builds the order_paid conflict for a lost race. When the store
// could not name the winner, the order is read back to find it.
func (s *PaymentService) alreadyPaid(ctx context.Context, orderID string, cause error) error {
	conflict := &PaymentError{Info: ErrorOrderPaid, Err: cause}

	var finalized *store.FinalizedError
	if errors.As(cause, &finalized) && finalized.TransactionID != "" {
		conflict.TransactionID = finalized.TransactionID
		return conflict
	}

	if order, err := s.loadOrder(ctx, orderID); err == nil {
		conflict.TransactionID = order.PaidWith()
	}
	return conflict
}

// notify delivers event to every notifier in the background. Deliveries are
// detached from the request context and bounded by notifyTimeout.
func (s *PaymentService) notify(event PaymentEvent) {
	if len(s.notifiers) == 0 {
		return
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		for _, n := range s.notifiers {
			if err := n.NotifyPayment(ctx, event); err != nil {
				notificationFailuresTotal.WithLabelValues(n.Name()).Inc()
				s.rt.log.Warn().
					Err(err).
					Str("notifier", n.Name()).
					Str("transaction_id", event.TransactionID).
					Msg("payment notification failed")
			}
		}
	}()
}

// Wait blocks until in-flight notifications have been delivered or given up.
func (s *PaymentService) Wait() {
	s.pending.Wait()
}

// GetTransaction returns a recorded attempt.
func (s *PaymentService) GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return nil, validationError("transactionId", "transaction id is required")
	}

	ctx, cancel := s.rt.storeCtx(ctx)
	defer cancel()

	txn, err := s.store.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, lookupError(err, ErrorTransactionNotFound)
	}
	return txn, nil
}

// ListTransactions returns a page of attempts, newest first, and the total
// number matching filter.
func (s *PaymentService) ListTransactions(ctx context.Context, filter store.TransactionFilter) ([]models.Transaction, int64, error) {
	ctx, cancel := s.rt.storeCtx(ctx)
	defer cancel()

	txns, total, err := s.store.ListTransactions(ctx, filter)
	if err != nil {
		return nil, 0, unavailableError(err)
	}
	return txns, total, nil
}

// ReconcileReport lists records violating the order/transaction pairing.
type ReconcileReport struct {
	OrphanedSuccesses  []models.Transaction
	DanglingPaidOrders []models.Order
}

// Clean reports whether no inconsistencies were found.
func (r ReconcileReport) Clean() bool {
	return len(r.OrphanedSuccesses) == 0 && len(r.DanglingPaidOrders) == 0
}

// Reconcile scans for successful transactions without a paid order and paid
// orders without their successful transaction. It only reports.
func (s *PaymentService) Reconcile(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport

	orphaned, err := s.scan(ctx, s.store.OrphanedSuccesses)
	if err != nil {
		return report, unavailableError(fmt.Errorf("orphaned successes: %w", err))
	}
	report.OrphanedSuccesses = orphaned

	dangling, err := s.scanOrders(ctx, s.store.DanglingPaidOrders)
	if err != nil {
		return report, unavailableError(fmt.Errorf("dangling paid orders: %w", err))
	}
	report.DanglingPaidOrders = dangling

	if !report.Clean() {
		s.rt.log.Warn().
			Int("orphaned_successes", len(orphaned)).
			Int("dangling_paid_orders", len(dangling)).
			Msg("reconcile found inconsistencies")
	}
	return report, nil
}

func (s *PaymentService) scan(ctx context.Context, fn func(context.Context) ([]models.Transaction, error)) ([]models.Transaction, error) {
	ctx, cancel := s.rt.storeCtx(ctx)
	defer cancel()
	return fn(ctx)
}

func (s *PaymentService) scanOrders(ctx context.Context, fn func(context.Context) ([]models.Order, error)) ([]models.Order, error) {
	ctx, cancel := s.rt.storeCtx(ctx)
	defer cancel()
	return fn(ctx)
}
