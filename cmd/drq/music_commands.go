package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"drq/internal/api"
)

func newMusicCommand(ctx *commandContext) *cobra.Command {
	musicCmd := &cobra.Command{
		Use:   "music",
		Short: "Queue songs and manage the playback queue",
	}

	musicCmd.AddCommand(newMusicSongsCommand(ctx))
	musicCmd.AddCommand(newMusicPlayCommand(ctx))
	musicCmd.AddCommand(newMusicListCommand(ctx))
	musicCmd.AddCommand(newMusicFailedCommand(ctx))
	musicCmd.AddCommand(newMusicRetryCommand(ctx))
	musicCmd.AddCommand(newMusicClearFailedCommand(ctx))
	musicCmd.AddCommand(newMusicClearCommand(ctx))

	return musicCmd
}

func newMusicSongsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "songs",
		Short: "List songs in the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				songs, err := client.Songs(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonMode() {
					return writeJSON(cmd, songs)
				}
				rows := make([][]string, 0, len(songs))
				for _, song := range songs {
					note := ""
					if song.Corrupt {
						note = "corrupt"
					}
					rows = append(rows, []string{song.ID, song.Title, valueOrDash(song.Artist), note})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Title", "Artist", "Notes"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}

func newMusicPlayCommand(ctx *commandContext) *cobra.Command {
	var forceFail bool
	cmd := &cobra.Command{
		Use:   "play <song-id>",
		Short: "Queue a song for playback",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				entry, err := client.Play(cmd.Context(), api.PlayRequest{SongID: args[0], ForceFail: forceFail})
				if err != nil {
					return err
				}
				if ctx.jsonMode() {
					return writeJSON(cmd, entry)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued %s (entry %s)\n", entry.Title, entry.ID)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&forceFail, "force-fail", false, "Fail every attempt to exercise the retry path")
	return cmd
}

func newMusicListCommand(ctx *commandContext) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listEntries(cmd, ctx, status)
		},
	}
	cmd.Flags().StringVarP(&status, "status", "s", "", "Filter by status (pending, succeeded, failed)")
	return cmd
}

func newMusicFailedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "failed",
		Short: "List entries that exhausted their retries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listEntries(cmd, ctx, "failed")
		},
	}
}

func listEntries(cmd *cobra.Command, ctx *commandContext, status string) error {
	return ctx.withClient(func(client *api.Client) error {
		entries, err := client.Entries(cmd.Context(), status)
		if err != nil {
			return err
		}
		if ctx.jsonMode() {
			return writeJSON(cmd, entries)
		}
		out := cmd.OutOrStdout()
		if len(entries) == 0 {
			fmt.Fprintln(out, "Queue is empty")
			return nil
		}
		printEntries(out, entries)
		return nil
	})
}

func printEntries(out io.Writer, entries []api.Entry) {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		detail := entry.NextAttemptAt
		if entry.Status == "failed" || detail == "" {
			detail = truncate(entry.LastError, 48)
		}
		rows = append(rows, []string{
			entry.ID,
			entry.Title,
			statusLabel(entry.Status),
			strconv.Itoa(entry.Attempts),
			valueOrDash(detail),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"ID", "Song", "Status", "Attempts", "Next / Error"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	))
}

func newMusicRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <entry-id>",
		Short: "Reset a failed entry for another round of attempts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			return ctx.withClient(func(client *api.Client) error {
				resp, err := client.Retry(cmd.Context(), id)
				if err != nil {
					return err
				}
				if ctx.jsonMode() {
					return writeJSON(cmd, resp)
				}
				if !resp.Retried {
					return fmt.Errorf("entry %s not retried: unknown or not failed", id)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Entry %s reset for retry\n", id)
				return nil
			})
		},
	}
}

func newMusicClearFailedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-failed",
		Short: "Remove failed entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return clearEntries(cmd, ctx, "failed", "failed entries")
		},
	}
}

func newMusicClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every entry, including pending ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			return clearEntries(cmd, ctx, "all", "entries")
		},
	}
}

func clearEntries(cmd *cobra.Command, ctx *commandContext, status, label string) error {
	return ctx.withClient(func(client *api.Client) error {
		removed, err := client.Clear(cmd.Context(), status)
		if err != nil {
			return err
		}
		if ctx.jsonMode() {
			return writeJSON(cmd, api.ClearResponse{Removed: removed})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d %s\n", removed, label)
		return nil
	})
}
