// Command stockctl runs administrative tasks against the stock alert database.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"stock-alert-service/config"
	"stock-alert-service/internal/service"
	"stock-alert-service/internal/store"
	"stock-alert-service/internal/util"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var databaseURL string

	root := &cobra.Command{
		Use:          "stockctl",
		Short:        "Administer the stock alert service",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&databaseURL, "database-url", "", "Postgres URL (defaults to DATABASE_URL)")

	open := func() (*config.Config, *store.Store, error) {
		cfg := config.Load()
		if err := util.InitLogger(cfg.Server.Env, cfg.Server.LogLevel); err != nil {
			return nil, nil, err
		}
		url := databaseURL
		if url == "" {
			url = cfg.Database.URL
		}
		if url == "" {
			return nil, nil, fmt.Errorf("no database configured: set DATABASE_URL or --database-url")
		}
		db, err := store.NewStore(url, cfg.Alerting.LockTimeout)
		if err != nil {
			return nil, nil, err
		}
		return cfg, db, nil
	}

	root.AddCommand(newMigrateCmd(open), newReconcileCmd(open), newLowStockCmd(open), newAlertsCmd(open))
	return root
}

type opener func() (*config.Config, *store.Store, error)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newMigrateCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := open()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := signalContext()
			defer cancel()
			if err := db.Migrate(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
			return nil
		},
	}
}

func newReconcileCmd(open opener) *cobra.Command {
	var productID string
	var concurrency int

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Repair drift between product stock and active alerts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := open()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := signalContext()
			defer cancel()
			engine := service.NewAlertEngine(db, nil, nil, 0)

			if productID != "" {
				res, err := engine.ReconcileProduct(ctx, productID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", res.Product.SKU, res.AlertAction)
				return nil
			}

			if concurrency <= 0 {
				concurrency = cfg.Alerting.ReconcileConcurrency
			}
			report, err := engine.ReconcileAll(ctx, concurrency)
			if err != nil {
				return err
			}
			return printReport(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringVar(&productID, "product", "", "reconcile a single product id")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "products reconciled in parallel (defaults to RECONCILE_CONCURRENCY)")
	return cmd
}

func printReport(w io.Writer, r *service.ReconcileReport) error {
	fmt.Fprintf(w, "checked=%d opened=%d resolved=%d failed=%d in %s\n",
		r.Checked, r.Opened, r.Resolved, r.Failed, r.Duration)
	for _, f := range r.Failures {
		fmt.Fprintf(w, "  failed: %s\n", f)
	}
	if r.Failed > 0 {
		return fmt.Errorf("%d products could not be reconciled", r.Failed)
	}
	return nil
}

func newLowStockCmd(open opener) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "low-stock",
		Short: "List products at or below their minimum stock level",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := open()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := signalContext()
			defer cancel()
			products, err := service.NewAlertEngine(db, nil, nil, 0).LowStockProducts(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return json.NewEncoder(out).Encode(products)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SKU\tNAME\tQUANTITY\tMIN")
			for _, p := range products {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", p.SKU, p.Name, p.Quantity, p.MinStockLevel)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func newAlertsCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "alerts",
		Short: "List unresolved alerts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := open()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := signalContext()
			defer cancel()
			alerts, err := service.NewAlertEngine(db, nil, nil, 0).UnresolvedAlerts(ctx)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ALERT\tSKU\tQUANTITY\tOPENED")
			for _, a := range alerts {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", a.ID, a.Product.SKU, a.Product.Quantity, a.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			util.GetLogger().Debug("Listed unresolved alerts", zap.Int("count", len(alerts)))
			return tw.Flush()
		},
	}
}
