package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/sugampay/internal/models"
)

const uniqueViolation = "23505"

// GormStore is the Postgres-backed Store.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open gorm connection.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) CreateOrder(ctx context.Context, order *models.Order) error {
	return translate(s.db.WithContext(ctx).Create(order).Error)
}

func (s *GormStore) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&order).Error; err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

// Finalize locks the order row for the duration of the transaction, so
// concurrent attempts on one order serialize while other orders proceed.
func (s *GormStore) Finalize(ctx context.Context, txn *models.Transaction) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("order_id = ?", txn.OrderID).
			First(&order).Error; err != nil {
			return err
		}

		if order.Status != models.OrderStatusCreated {
			return &FinalizedError{OrderID: order.OrderID, TransactionID: order.PaidWith()}
		}

		if txn.CreatedAt.IsZero() {
			txn.CreatedAt = tx.NowFunc()
		}
		if order.Expired(txn.CreatedAt) {
			return ErrOrderExpired
		}

		if err := tx.Create(txn).Error; err != nil {
			return err
		}

		if txn.Status != models.TransactionStatusSuccess {
			return nil
		}
		return markPaid(tx, &order, txn.TransactionID)
	})
	if err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

// markPaid is a compare-and-set on status; it only succeeds while the order is
// still created.
func markPaid(tx *gorm.DB, order *models.Order, transactionID string) error {
	res := tx.Model(&models.Order{}).
		Where("order_id = ? AND status = ?", order.OrderID, models.OrderStatusCreated).
		Updates(map[string]any{
			"status":         models.OrderStatusPaid,
			"transaction_id": transactionID,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return &FinalizedError{OrderID: order.OrderID}
	}

	order.Status = models.OrderStatusPaid
	order.TransactionID = &transactionID
	return nil
}

func (s *GormStore) GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error) {
	var txn models.Transaction
	if err := s.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		First(&txn).Error; err != nil {
		return nil, translate(err)
	}
	return &txn, nil
}

func (s *GormStore) ListTransactions(ctx context.Context, filter TransactionFilter) ([]models.Transaction, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Transaction{})

	if filter.OrderID != "" {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if filter.SourceApp != "" {
		query = query.Where("source_app = ?", filter.SourceApp)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var txns []models.Transaction
	if err := query.
		Order("created_at desc").
		Order("transaction_id desc").
		Find(&txns).Error; err != nil {
		return nil, 0, translate(err)
	}
	return txns, total, nil
}

func (s *GormStore) OrphanedSuccesses(ctx context.Context) ([]models.Transaction, error) {
	var txns []models.Transaction
	if err := s.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Select("transactions.*").
		Joins("LEFT JOIN orders ON orders.order_id = transactions.order_id").
		Where("transactions.status = ?", models.TransactionStatusSuccess).
		Where("orders.status IS DISTINCT FROM ? OR orders.transaction_id IS DISTINCT FROM transactions.transaction_id",
			models.OrderStatusPaid).
		Find(&txns).Error; err != nil {
		return nil, translate(err)
	}
	return txns, nil
}

func (s *GormStore) DanglingPaidOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := s.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("orders.*").
		Joins("LEFT JOIN transactions ON transactions.transaction_id = orders.transaction_id").
		Where("orders.status = ?", models.OrderStatusPaid).
		Where("transactions.transaction_id IS NULL OR transactions.status <> ?", models.TransactionStatusSuccess).
		Find(&orders).Error; err != nil {
		return nil, translate(err)
	}
	return orders, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// translate maps driver and gorm errors onto the store sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}

	var finalized *FinalizedError
	switch {
	case errors.As(err, &finalized):
		return finalized
	case errors.Is(err, ErrOrderExpired):
		return ErrOrderExpired
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicateKey
	}

	if constraint, ok := uniqueConstraint(err); ok {
		if constraint == models.SuccessIndexName {
			return fmt.Errorf("%w: %s", ErrAlreadyPaid, constraint)
		}
		return fmt.Errorf("%w: %s", ErrDuplicateKey, constraint)
	}

	return unavailable(err)
}

func uniqueConstraint(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return pgErr.ConstraintName, true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return pqErr.Constraint, true
	}
	return "", false
}
