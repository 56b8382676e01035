// Package bootstrap assembles the store, services and notifiers from Config
// for the server and the operator CLI.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/example/sugampay/internal/config"
	"github.com/example/sugampay/internal/database"
	"github.com/example/sugampay/internal/services"
	"github.com/example/sugampay/internal/store"
)

// Runtime holds the long-lived components built from Config.
type Runtime struct {
	Store     store.Store
	Orders    *services.OrderService
	Payments  *services.PaymentService
	publisher *services.KafkaPublisher
}

// OpenStore connects the configured store driver and wraps it with metrics.
// With migrate set, the schema is brought up to date first.
func OpenStore(ctx context.Context, cfg *config.Config, log zerolog.Logger, migrate bool) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		log.Warn().Msg("using in-memory store, data is lost on restart")
		return store.NewInstrumented(store.NewMemoryStore(), "memory"), nil
	case config.StoreDriverPostgres:
		conn, err := database.Connect(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return nil, err
		}
		if migrate {
			if err := database.Migrate(conn); err != nil {
				_ = database.Close(conn)
				return nil, fmt.Errorf("database migration failed: %w", err)
			}
		}
		return store.NewInstrumented(store.NewGormStore(conn), "postgres"), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// New builds the services on an open store.
func New(cfg *config.Config, st store.Store, log zerolog.Logger) *Runtime {
	rt := &Runtime{Store: st}

	opts := []services.Option{
		services.WithStoreTimeout(cfg.StoreTimeout),
		services.WithLogger(log),
	}

	var notifiers []services.PaymentNotifier
	if telegram := services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat, log); telegram.Enabled() {
		notifiers = append(notifiers, telegram)
	}
	if len(cfg.KafkaBrokers) > 0 {
		rt.publisher = services.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		notifiers = append(notifiers, rt.publisher)
	}

	rt.Orders = services.NewOrderService(st, services.OrderConfig{
		Currency: cfg.Currency,
		TTL:      cfg.OrderTTL,
	}, opts...)
	rt.Payments = services.NewPaymentService(st, services.NewSentinelDecider(cfg.DeclineSentinel), notifiers, opts...)

	return rt
}

// Close drains pending notifications, then closes the publisher and store.
func (r *Runtime) Close() error {
	r.Payments.Wait()

	var errs []error
	if r.publisher != nil {
		errs = append(errs, r.publisher.Close())
	}
	errs = append(errs, r.Store.Close())
	return errors.Join(errs...)
}
