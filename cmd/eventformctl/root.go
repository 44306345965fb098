package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/geocoder89/eventform/internal/config"
	"github.com/geocoder89/eventform/internal/db"
	"github.com/geocoder89/eventform/internal/docstore"
	"github.com/geocoder89/eventform/internal/observability"
	"github.com/geocoder89/eventform/internal/repo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// opener returns the store the commands run against.
type opener func(ctx context.Context, cfg config.Config) (docstore.Store, error)

func defaultOpener(ctx context.Context, cfg config.Config) (docstore.Store, error) {
	return db.Open(ctx, cfg)
}

type cli struct {
	open    opener
	cfg     config.Config
	driver  string
	timeout time.Duration
}

func newRootCmd(open opener) *cobra.Command {
	c := &cli{open: open}

	root := &cobra.Command{
		Use:     "eventformctl",
		Short:   "Operate an eventform deployment",
		Long:    `Inspect events and export attendees directly against the configured document store.`,
		Version: version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			c.cfg = config.Load()
			if c.driver != "" {
				c.cfg.StoreDriver = c.driver
			}
			slog.SetDefault(observability.NewLogger(c.cfg.Env))
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&c.driver, "store", "",
		"store driver (memory, postgres, sqlite, surreal); defaults to STORE_DRIVER")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 30*time.Second,
		"deadline for the whole command")

	root.AddCommand(c.eventsCmd(), c.migrateCmd())

	return root
}

// withRepos opens the store, hands the repositories to fn and closes the store.
func (c *cli) withRepos(cmd *cobra.Command, fn func(ctx context.Context, events *repo.EventsRepo, regs *repo.RegistrationsRepo) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), c.timeout)
	defer cancel()

	store, err := c.open(ctx, c.cfg)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	// metrics from a one-shot command are never scraped
	prom := observability.NewProm(prometheus.NewRegistry())

	return fn(ctx, repo.NewEventsRepo(store, prom), repo.NewRegistrationsRepo(store, prom))
}

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Open the store and apply pending schema migrations",
		Long: `Open the configured store once. The postgres driver applies its embedded
migrations on open; the other drivers create what they need lazily.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), c.timeout)
			defer cancel()

			store, err := c.open(ctx, c.cfg)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer store.Close()

			if err := store.Ping(ctx); err != nil {
				return fmt.Errorf("pinging store: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "store %q ready\n", c.cfg.StoreDriver)
			return nil
		},
	}
}
