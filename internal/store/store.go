// Package store persists orders and transactions.
//
// Order status is written in exactly one place: Finalize, which records a
// payment attempt and, for a successful attempt, moves the order from created
// to paid inside the same atomic unit.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/sugampay/internal/models"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("store: record not found")
	// ErrDuplicateKey is returned when an insert collides with an existing identifier.
	ErrDuplicateKey = errors.New("store: duplicate key")
	// ErrAlreadyPaid is matched by FinalizedError and by success-index violations.
	ErrAlreadyPaid = errors.New("store: order already paid")
	// ErrOrderExpired is returned by Finalize when the order expired before the attempt.
	ErrOrderExpired = errors.New("store: order expired")
	// ErrUnavailable wraps storage failures and deadlines. Callers may retry.
	ErrUnavailable = errors.New("store: unavailable")
)

// FinalizedError reports that an order is no longer in the created state.
type FinalizedError struct {
	OrderID       string
	TransactionID string
}

func (e *FinalizedError) Error() string {
	if e.TransactionID == "" {
		return fmt.Sprintf("store: order %s already paid", e.OrderID)
	}
	return fmt.Sprintf("store: order %s already paid by %s", e.OrderID, e.TransactionID)
}

// Is lets errors.Is(err, ErrAlreadyPaid) match.
func (e *FinalizedError) Is(target error) bool {
	return target == ErrAlreadyPaid
}

// TransactionFilter narrows ListTransactions. Zero values mean "any".
type TransactionFilter struct {
	OrderID   string
	SourceApp string
	Status    models.TransactionStatus
	Limit     int
	Offset    int
}

// Store is the durable Order/Transaction handle shared by the services.
type Store interface {
	// CreateOrder inserts a new order. A colliding order id yields ErrDuplicateKey;
	// existing records are never overwritten.
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)

	// Finalize atomically records txn against its order. The order must still be
	// created, otherwise a *FinalizedError is returned and nothing is written.
	// Expiry is checked under the same lock against txn.CreatedAt (the store
	// clock when unset): an order whose expiresAt is not after that instant
	// yields ErrOrderExpired. The only grace is the time spent waiting for the
	// lock, which the caller's context deadline bounds.
	// For a successful txn the order is marked paid with txn's id in the same unit.
	// It returns the order as it stands after the commit.
	Finalize(ctx context.Context, txn *models.Transaction) (*models.Order, error)

	GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]models.Transaction, int64, error)

	// OrphanedSuccesses lists successful transactions not referenced by a paid order.
	OrphanedSuccesses(ctx context.Context) ([]models.Transaction, error)
	// DanglingPaidOrders lists paid orders whose transaction is missing or not successful.
	DanglingPaidOrders(ctx context.Context) ([]models.Order, error)

	Close() error
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}
