package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/sugampay/internal/bootstrap"
	"github.com/example/sugampay/internal/config"
	"github.com/example/sugampay/internal/logging"
	"github.com/example/sugampay/internal/services"
	"github.com/example/sugampay/internal/utils"
)

var Version = "dev"

var errInconsistent = errors.New("reconcile found inconsistencies")

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sugamctl",
		Short:         "Operator tooling for the SugamPay gateway",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(migrateCmd())
	root.AddCommand(reconcileCmd())
	root.AddCommand(tokenCmd())

	return root
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logging.New(cfg.Environment, cfg.LogLevel)

			st, err := bootstrap.OpenStore(cmd.Context(), cfg, log, true)
			if err != nil {
				return err
			}
			defer st.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", cfg.StoreDriver)
			return nil
		},
	}
}

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Report orders and transactions that disagree about payment",
		Long: `Scan the store for successful transactions whose order is not paid by them,
and for paid orders whose transaction is missing or not successful.

Nothing is modified. The command exits non-zero when anything is found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logging.New(cfg.Environment, cfg.LogLevel)

			st, err := bootstrap.OpenStore(cmd.Context(), cfg, log, false)
			if err != nil {
				return err
			}
			rt := bootstrap.New(cfg, st, log)
			defer rt.Close()

			report, err := rt.Payments.Reconcile(cmd.Context())
			if err != nil {
				return err
			}
			return printReport(cmd.OutOrStdout(), report)
		},
	}
}

func printReport(w io.Writer, report services.ReconcileReport) error {
	if report.Clean() {
		fmt.Fprintln(w, "no inconsistencies found")
		return nil
	}

	for _, txn := range report.OrphanedSuccesses {
		fmt.Fprintf(w, "orphaned success: transaction %s on order %s (%s %s)\n",
			txn.TransactionID, txn.OrderID, txn.Amount.StringFixed(2), txn.Currency)
	}
	for _, order := range report.DanglingPaidOrders {
		fmt.Fprintf(w, "dangling paid order: order %s references transaction %q\n",
			order.OrderID, order.PaidWith())
	}
	return fmt.Errorf("%w: %d orphaned, %d dangling", errInconsistent,
		len(report.OrphanedSuccesses), len(report.DanglingPaidOrders))
}

func tokenCmd() *cobra.Command {
	var (
		sourceApp string
		ttl       time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a merchant bearer token for create-order",
		Example: `  sugamctl token --app ShopX
  sugamctl token --app ShopX --ttl 24h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.MerchantJWTSecret == "" {
				return errors.New("MERCHANT_JWT_SECRET is not set")
			}
			if ttl <= 0 {
				ttl = cfg.MerchantTokenTTL
			}

			token, err := utils.GenerateMerchantToken(cfg.MerchantJWTSecret, sourceApp, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceApp, "app", "", "merchant source app the token identifies")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default MERCHANT_TOKEN_TTL)")
	_ = cmd.MarkFlagRequired("app")

	return cmd
}
