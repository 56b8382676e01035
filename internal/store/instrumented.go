package store

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/example/sugampay/internal/models"
)

var storeDurationSummaryVec = promauto.NewSummaryVec(
	prometheus.SummaryOpts{
		Name:       "sugampay_store_duration_seconds",
		Help:       "store call duration and result",
		MaxAge:     time.Minute,
		Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
	},
	[]string{"instance_name", "method", "result"})

// Instrumented decorates a Store with a Prometheus duration summary.
type Instrumented struct {
	base         Store
	instanceName string
}

// NewInstrumented wraps base, labelling samples with instanceName.
func NewInstrumented(base Store, instanceName string) *Instrumented {
	return &Instrumented{base: base, instanceName: instanceName}
}

func (s *Instrumented) observe(method string, since time.Time, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		result = "not_found"
	case errors.Is(err, ErrAlreadyPaid):
		result = "already_paid"
	case errors.Is(err, ErrDuplicateKey):
		result = "duplicate"
	case errors.Is(err, ErrOrderExpired):
		result = "expired"
	default:
		result = "error"
	}
	storeDurationSummaryVec.WithLabelValues(s.instanceName, method, result).Observe(time.Since(since).Seconds())
}

func (s *Instrumented) CreateOrder(ctx context.Context, order *models.Order) (err error) {
	_since := time.Now()
	defer func() { s.observe("CreateOrder", _since, err) }()
	return s.base.CreateOrder(ctx, order)
}

func (s *Instrumented) GetOrder(ctx context.Context, orderID string) (o *models.Order, err error) {
	_since := time.Now()
	defer func() { s.observe("GetOrder", _since, err) }()
	return s.base.GetOrder(ctx, orderID)
}

func (s *Instrumented) Finalize(ctx context.Context, txn *models.Transaction) (o *models.Order, err error) {
	_since := time.Now()
	defer func() { s.observe("Finalize", _since, err) }()
	return s.base.Finalize(ctx, txn)
}

func (s *Instrumented) GetTransaction(ctx context.Context, transactionID string) (t *models.Transaction, err error) {
	_since := time.Now()
	defer func() { s.observe("GetTransaction", _since, err) }()
	return s.base.GetTransaction(ctx, transactionID)
}

func (s *Instrumented) ListTransactions(ctx context.Context, filter TransactionFilter) (t []models.Transaction, n int64, err error) {
	_since := time.Now()
	defer func() { s.observe("ListTransactions", _since, err) }()
	return s.base.ListTransactions(ctx, filter)
}

func (s *Instrumented) OrphanedSuccesses(ctx context.Context) (t []models.Transaction, err error) {
	_since := time.Now()
	defer func() { s.observe("OrphanedSuccesses", _since, err) }()
	return s.base.OrphanedSuccesses(ctx)
}

func (s *Instrumented) DanglingPaidOrders(ctx context.Context) (o []models.Order, err error) {
	_since := time.Now()
	defer func() { s.observe("DanglingPaidOrders", _since, err) }()
	return s.base.DanglingPaidOrders(ctx)
}

func (s *Instrumented) Close() error {
	return s.base.Close()
}
