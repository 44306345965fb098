package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/geocoder89/eventform/internal/domain/event"
	"github.com/geocoder89/eventform/internal/exports"
	"github.com/geocoder89/eventform/internal/message"
	"github.com/geocoder89/eventform/internal/repo"
	"github.com/spf13/cobra"
)

type eventRow struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Date          string `json:"date"`
	Location      string `json:"location,omitempty"`
	IsActive      bool   `json:"isActive"`
	Registrations int    `json:"registrations"`
	Attendees     int    `json:"attendees"`
}

func (c *cli) eventsCmd() *cobra.Command {
	events := &cobra.Command{
		Use:   "events",
		Short: "Inspect events",
	}

	events.AddCommand(c.eventsListCmd(), c.eventsMessageCmd(), c.eventsExportCmd())

	return events
}

func (c *cli) eventsListCmd() *cobra.Command {
	var activeOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List events with their registration counts as JSON",
		Long: `List events with their registration counts as JSON.

Examples:
  eventformctl events list
  eventformctl events list --active | jq '.[].name'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRepos(cmd, func(ctx context.Context, events *repo.EventsRepo, regs *repo.RegistrationsRepo) error {
				var (
					list []event.Event
					err  error
				)
				if activeOnly {
					list, err = events.ListActive(ctx)
				} else {
					list, err = events.List(ctx)
				}
				if err != nil {
					return fmt.Errorf("listing events: %w", err)
				}

				rows := make([]eventRow, 0, len(list))
				for _, e := range list {
					n, people, err := regs.CountByEvent(ctx, e.ID)
					if err != nil {
						return fmt.Errorf("counting registrations of %s: %w", e.ID, err)
					}
					rows = append(rows, eventRow{
						ID:            e.ID,
						Name:          e.Name,
						Date:          e.Date.Format("2006-01-02"),
						Location:      e.Location,
						IsActive:      e.IsActive,
						Registrations: n,
						Attendees:     people,
					})
				}

				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			})
		},
	}

	cmd.Flags().BoolVar(&activeOnly, "active", false, "only events open for registration")

	return cmd
}

func (c *cli) eventsMessageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "message <event-id>",
		Short: "Print the composed invitation message of an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRepos(cmd, func(ctx context.Context, events *repo.EventsRepo, regs *repo.RegistrationsRepo) error {
				e, err := events.GetByID(ctx, args[0])
				if err != nil {
					return fmt.Errorf("loading event: %w", err)
				}
				list, err := regs.ListByEvent(ctx, e.ID)
				if err != nil {
					return fmt.Errorf("loading registrations: %w", err)
				}

				composer := message.Composer{Location: c.cfg.Location()}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), composer.Compose(e, list))
				return err
			})
		},
	}
}

func (c *cli) eventsExportCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export <event-id>",
		Short: "Write the attendee CSV of an event",
		Long: `Write the attendee CSV of an event, synchronously and without the queue.

Examples:
  eventformctl events export 5d1c... > attendees.csv
  eventformctl events export 5d1c... -o attendees.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRepos(cmd, func(ctx context.Context, events *repo.EventsRepo, regs *repo.RegistrationsRepo) error {
				x := exports.NewExporter(events, regs, message.Composer{Location: c.cfg.Location()}, nil)

				res, err := x.Export(ctx, args[0], "")
				if err != nil {
					return fmt.Errorf("exporting: %w", err)
				}

				var w io.Writer = cmd.OutOrStdout()
				if out != "" {
					f, err := os.Create(out)
					if err != nil {
						return fmt.Errorf("creating %s: %w", out, err)
					}
					defer f.Close()
					w = f
				}

				if _, err := io.WriteString(w, res.CSV); err != nil {
					return err
				}

				if out != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d attendee(s) of %q to %s\n", res.Attendees, res.EventName, out)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&out, "output", "o", "", "write to this file instead of stdout")

	return cmd
}
