// Command ogdash serves the ombudsman reporting API and runs the deadline
// notification sweep.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"github.com/ouvidoriag/ogdash2/internal/app"
	"github.com/ouvidoriag/ogdash2/internal/reporting/dates"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "ogdash",
		Short:         "Ombudsman reporting service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				return os.Setenv("CONFIG_FILE", configPath)
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (overrides CONFIG_FILE)")

	cmd.AddCommand(serveCmd(), sweepCmd(), migrateCmd(), cacheCmd())
	return cmd
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func serveCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and run the notification scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			a, err := app.New(ctx, migrate)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Start(ctx); err != nil {
				return err
			}
			return a.Serve(ctx)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "Migrate the schema before serving")
	return cmd
}

func sweepCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run the deadline notification sweep once",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			a, err := app.New(ctx, false)
			if err != nil {
				return err
			}
			defer a.Close()
			if a.Services.Sweeper == nil {
				return fmt.Errorf("no mailer configured; set SENDGRID_API_KEY")
			}

			loc := a.Cfg.Location()
			today := time.Now().In(loc)
			if strings.TrimSpace(date) != "" {
				t, err := time.ParseInLocation(dates.Layout, strings.TrimSpace(date), loc)
				if err != nil {
					return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
				}
				today = t
			}

			rep, err := a.Services.Sweeper.Run(ctx, today)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rep)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Evaluate as of this date (YYYY-MM-DD); defaults to today")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			a, err := app.New(ctx, true)
			if err != nil {
				return err
			}
			defer a.Close()
			a.Log.Info("schema up to date", "driver", a.DB.Driver())
			return nil
		},
	}
}

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Maintain the durable report cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "purge <prefix>",
		Short: "Delete durable cache entries whose key starts with prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			a, err := app.New(ctx, false)
			if err != nil {
				return err
			}
			defer a.Close()
			if !strings.EqualFold(a.Cfg.Cache.Backend, app.CacheBackendDB) {
				return fmt.Errorf("purge only applies to the %q cache backend", app.CacheBackendDB)
			}
			n, err := a.Repos.CacheEntries.DeleteByPrefix(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d cache entries\n", n)
			return nil
		},
	})
	return cmd
}
