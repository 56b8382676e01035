package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/sugampay/internal/models"
)

// MemoryStore keeps records in process memory. Each order has its own mutex so
// attempts on different orders never contend.
type MemoryStore struct {
	orders       sync.Map // order id -> *orderEntry
	transactions sync.Map // transaction id -> *models.Transaction
	now          func() time.Time
}

type orderEntry struct {
	mu    sync.Mutex
	order models.Order
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

func (s *MemoryStore) CreateOrder(ctx context.Context, order *models.Order) error {
	if err := ctx.Err(); err != nil {
		return unavailable(err)
	}

	now := s.now()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	order.CreatedAt, order.UpdatedAt = now, now

	entry := &orderEntry{order: cloneOrder(order)}
	if _, loaded := s.orders.LoadOrStore(order.OrderID, entry); loaded {
		return ErrDuplicateKey
	}
	return nil
}

func (s *MemoryStore) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}
	entry, ok := s.entry(orderID)
	if !ok {
		return nil, ErrNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	o := cloneOrder(&entry.order)
	return &o, nil
}

func (s *MemoryStore) Finalize(ctx context.Context, txn *models.Transaction) (*models.Order, error) {
	entry, ok := s.entry(txn.OrderID)
	if !ok {
		return nil, ErrNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}
	if entry.order.Status != models.OrderStatusCreated {
		return nil, &FinalizedError{OrderID: entry.order.OrderID, TransactionID: entry.order.PaidWith()}
	}

	now := s.now()
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = now
	}
	if entry.order.Expired(txn.CreatedAt) {
		return nil, ErrOrderExpired
	}

	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	txn.UpdatedAt = now

	stored := *txn
	if _, loaded := s.transactions.LoadOrStore(stored.TransactionID, &stored); loaded {
		return nil, ErrDuplicateKey
	}

	if txn.Status == models.TransactionStatusSuccess {
		entry.markPaid(txn.TransactionID, now)
	}

	o := cloneOrder(&entry.order)
	return &o, nil
}

// markPaid must be called with e.mu held and the order in the created state.
func (e *orderEntry) markPaid(transactionID string, now time.Time) {
	id := transactionID
	e.order.Status = models.OrderStatusPaid
	e.order.TransactionID = &id
	e.order.UpdatedAt = now
}

func (s *MemoryStore) GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}
	v, ok := s.transactions.Load(transactionID)
	if !ok {
		return nil, ErrNotFound
	}
	txn := *v.(*models.Transaction)
	return &txn, nil
}

func (s *MemoryStore) ListTransactions(ctx context.Context, filter TransactionFilter) ([]models.Transaction, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, unavailable(err)
	}

	var matched []models.Transaction
	s.transactions.Range(func(_, v any) bool {
		txn := v.(*models.Transaction)
		if filter.OrderID != "" && txn.OrderID != filter.OrderID {
			return true
		}
		if filter.SourceApp != "" && txn.SourceApp != filter.SourceApp {
			return true
		}
		if filter.Status != "" && txn.Status != filter.Status {
			return true
		}
		matched = append(matched, *txn)
		return true
	})

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].TransactionID > matched[j].TransactionID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := min(max(filter.Offset, 0), len(matched))
	end := len(matched)
	if filter.Limit > 0 {
		end = min(start+filter.Limit, len(matched))
	}
	return matched[start:end], total, nil
}

func (s *MemoryStore) OrphanedSuccesses(ctx context.Context) ([]models.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}

	var out []models.Transaction
	s.transactions.Range(func(_, v any) bool {
		txn := v.(*models.Transaction)
		if txn.Status != models.TransactionStatusSuccess {
			return true
		}
		order, err := s.GetOrder(ctx, txn.OrderID)
		if err != nil || !order.IsPaid() || order.PaidWith() != txn.TransactionID {
			out = append(out, *txn)
		}
		return true
	})
	return out, nil
}

func (s *MemoryStore) DanglingPaidOrders(ctx context.Context) ([]models.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}

	var out []models.Order
	s.orders.Range(func(_, v any) bool {
		entry := v.(*orderEntry)
		entry.mu.Lock()
		order := cloneOrder(&entry.order)
		entry.mu.Unlock()

		if !order.IsPaid() {
			return true
		}
		txn, ok := s.transactions.Load(order.PaidWith())
		if !ok || txn.(*models.Transaction).Status != models.TransactionStatusSuccess {
			out = append(out, order)
		}
		return true
	})
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) entry(orderID string) (*orderEntry, bool) {
	v, ok := s.orders.Load(orderID)
	if !ok {
		return nil, false
	}
	return v.(*orderEntry), true
}

func cloneOrder(o *models.Order) models.Order {
	c := *o
	if o.TransactionID != nil {
		id := *o.TransactionID
		c.TransactionID = &id
	}
	if o.ExpiresAt != nil {
		t := *o.ExpiresAt
		c.ExpiresAt = &t
	}
	return c
}
