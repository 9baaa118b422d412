package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"drq/internal/api"
)

func newVenueCommand(ctx *commandContext) *cobra.Command {
	venueCmd := &cobra.Command{
		Use:   "venue",
		Short: "Save venues and sync them to the remote service",
	}

	venueCmd.AddCommand(newVenueAddCommand(ctx))
	venueCmd.AddCommand(newVenueListCommand(ctx))
	venueCmd.AddCommand(newVenueSyncCommand(ctx))
	venueCmd.AddCommand(newVenueRetryCommand(ctx))

	return venueCmd
}

func newVenueAddCommand(ctx *commandContext) *cobra.Command {
	var latitude, longitude float64
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Save a venue and try to push it immediately",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				v, err := client.AddVenue(cmd.Context(), api.AddVenueRequest{
					Name:      args[0],
					Latitude:  latitude,
					Longitude: longitude,
				})
				if err != nil {
					return err
				}
				if ctx.jsonMode() {
					return writeJSON(cmd, v)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Saved venue %s (%s)\n", v.Name, v.ID)
				if v.Synced {
					fmt.Fprintln(out, "Synced to remote")
				} else {
					fmt.Fprintln(out, "Remote unavailable; venue will sync on the next sweep")
				}
				return nil
			})
		},
	}
	cmd.Flags().Float64Var(&latitude, "lat", 0, "Latitude in decimal degrees")
	cmd.Flags().Float64Var(&longitude, "lon", 0, "Longitude in decimal degrees")
	return cmd
}

func newVenueListCommand(ctx *commandContext) *cobra.Command {
	var pendingOnly bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved venues",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				venues, err := client.Venues(cmd.Context(), pendingOnly)
				if err != nil {
					return err
				}
				if ctx.jsonMode() {
					return writeJSON(cmd, venues)
				}
				out := cmd.OutOrStdout()
				if len(venues) == 0 {
					fmt.Fprintln(out, "No venues")
					return nil
				}
				rows := make([][]string, 0, len(venues))
				for _, v := range venues {
					rows = append(rows, []string{
						v.ID,
						v.Name,
						strconv.FormatFloat(v.Latitude, 'f', 5, 64),
						strconv.FormatFloat(v.Longitude, 'f', 5, 64),
						valueOrDash(v.CreatedAt),
						yesNo(v.Synced),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Name", "Lat", "Lon", "Created", "Synced"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&pendingOnly, "pending", false, "Only show venues not yet synced")
	return cmd
}

func newVenueSyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run a batch sync sweep now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				sweep, err := client.SyncVenues(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonMode() {
					return writeJSON(cmd, sweep)
				}
				out := cmd.OutOrStdout()
				if sweep.Skipped {
					fmt.Fprintln(out, "Sweep skipped: another sweep is already running")
					return nil
				}
				fmt.Fprintf(out, "Sweep %s: %d synced, %d remaining\n", sweep.Outcome, sweep.Synced, sweep.Remaining)
				if sweep.Error != "" {
					fmt.Fprintf(out, "Error: %s\n", sweep.Error)
				}
				return nil
			})
		},
	}
}

func newVenueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry",
		Short: "Push pending venues one at a time",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				resp, err := client.RetryVenues(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonMode() {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				if !resp.Online {
					fmt.Fprintf(out, "Remote unreachable; %d venues still pending\n", resp.Total)
					return nil
				}
				fmt.Fprintf(out, "Synced %d of %d venues\n", resp.Synced, resp.Total)
				if resp.Failed > 0 {
					fmt.Fprintf(out, "%d venues failed and remain pending\n", resp.Failed)
				}
				return nil
			})
		},
	}
}
