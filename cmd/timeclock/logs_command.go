package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"timeclock/internal/ipc"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int
	var worker string
	var contains []string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display daemon logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			filters := make([]string, 0, len(contains)+1)
			for _, value := range contains {
				if value = strings.TrimSpace(value); value != "" {
					filters = append(filters, value)
				}
			}
			if worker = strings.TrimSpace(worker); worker != "" {
				filters = append(filters, worker)
			}

			offset := int64(-1)
			limit := lines
			if limit <= 0 {
				offset, limit = 0, 0
			}

			return ctx.withClient(func(client *ipc.Client) error {
				runCtx := cmd.Context()
				printed := false
				for {
					resp, err := client.LogTail(ipc.LogTailRequest{
						Offset:   offset,
						Limit:    limit,
						Contains: filters,
						Follow:   follow,
						WaitMS:   1000,
					})
					if err != nil {
						return fmt.Errorf("tail logs: %w", err)
					}
					if resp == nil {
						return errors.New("log tail response missing")
					}
					for _, line := range resp.Lines {
						fmt.Fprintln(cmd.OutOrStdout(), line)
						printed = true
					}
					offset = resp.Offset
					limit = 0
					if !follow {
						if !printed {
							fmt.Fprintln(cmd.OutOrStdout(), "No log entries available")
						}
						return nil
					}
					select {
					case <-runCtx.Done():
						return nil
					default:
					}
				}
			})
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 10, "Number of lines to show (0 for all)")
	cmd.Flags().StringVarP(&worker, "worker", "w", "", "Only show lines mentioning a worker id")
	cmd.Flags().StringSliceVar(&contains, "contains", nil, "Only show lines containing every value")
	return cmd
}
