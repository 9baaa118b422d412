package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"drq/internal/api"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, queue, and sync status",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			status, err := api.NewClientFromConfig(cfg).Status(cmd.Context())
			if errors.Is(err, api.ErrDaemonUnavailable) {
				if ctx.jsonMode() {
					return writeJSON(cmd, api.DaemonStatus{})
				}
				fmt.Fprintln(out, renderStatusLine("Daemon", statusError, "not running", colorize))
				return nil
			}
			if err != nil {
				return err
			}
			if ctx.jsonMode() {
				return writeJSON(cmd, status)
			}
			fmt.Fprintln(out, strings.Join(statusLines(status, colorize), "\n"))
			return nil
		},
	}
}
