package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/example/sugampay/internal/store"
)

const (
	OrderIDPrefix       = "ORD_"
	TransactionIDPrefix = "TXN_"

	defaultStoreTimeout = 5 * time.Second
	// maxIDAttempts bounds regeneration after an identifier collision.
	maxIDAttempts = 5
)

// Option configures the order and payment services.
type Option func(*runtime)

type runtime struct {
	now          func() time.Time
	newID        func(prefix string) string
	storeTimeout time.Duration
	log          zerolog.Logger
}

func newRuntime(opts []Option) runtime {
	rt := runtime{
		now:          time.Now,
		newID:        NewID,
		storeTimeout: defaultStoreTimeout,
		log:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&rt)
	}
	return rt
}

// WithClock overrides the processing clock used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(rt *runtime) { rt.now = now }
}

// WithIDGenerator overrides order and transaction id generation.
func WithIDGenerator(gen func(prefix string) string) Option {
	return func(rt *runtime) { rt.newID = gen }
}

// WithStoreTimeout bounds every store call.
func WithStoreTimeout(d time.Duration) Option {
	return func(rt *runtime) {
		if d > 0 {
			rt.storeTimeout = d
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l zerolog.Logger) Option {
	return func(rt *runtime) { rt.log = l }
}

// NewID returns prefix followed by 32 upper-case hex characters.
func NewID(prefix string) string {
	return prefix + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

func (rt runtime) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, rt.storeTimeout)
}

// lookupError maps a store read failure, using notFound for missing records.
func lookupError(err error, notFound ErrorInfo) error {
	if errors.Is(err, store.ErrNotFound) {
		return &PaymentError{Info: notFound, Err: err}
	}
	return unavailableError(err)
}
