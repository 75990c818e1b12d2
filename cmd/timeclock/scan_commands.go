package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"timeclock/internal/engine"
	"timeclock/internal/ipc"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scan CODE",
		Short: "Inject a decoded badge code as if it was scanned",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := strings.TrimSpace(args[0])
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Scan(code)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if !resp.Matched || resp.Result == nil {
					fmt.Fprintf(out, "No worker matches badge %q\n", code)
					return nil
				}
				printScanResult(out, *resp.Result)
				return nil
			})
		},
	}
}

func newSelectCommand(ctx *commandContext) *cobra.Command {
	var confirm bool
	cmd := &cobra.Command{
		Use:   "select WORKER_ID",
		Short: "Select a roster row; a second select within the window toggles the worker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Select(args[0], confirm)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				switch {
				case resp.Result != nil:
					printScanResult(out, *resp.Result)
				case resp.Pending:
					fmt.Fprintf(out, "Selected %s; select again to confirm\n", resp.PendingWorker)
				default:
					fmt.Fprintln(out, "Selection cleared")
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&confirm, "confirm", false, "Send both selections so the toggle is recorded immediately")
	return cmd
}

func printScanResult(out io.Writer, result engine.ScanResult) {
	fmt.Fprintf(out, "%s clocked %s at %s (%s hours this week)\n",
		result.Worker.Name,
		result.Record.Status,
		result.At.Local().Format(time.TimeOnly),
		formatHours(result.WeekHours),
	)
}

func newReloadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Reload the roster and scan history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Reload()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reloaded %d workers and %d records from %s\n", resp.Workers, resp.Records, resp.Source)
				return nil
			})
		},
	}
}

func newSyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Resubmit scans the backend has not acknowledged",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Sync()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				result := resp.Result
				fmt.Fprintf(out, "Submitted %d, failed %d, remaining %d\n", result.Submitted, result.Failed, result.Remaining)
				if resp.Error != "" {
					return fmt.Errorf("sync stopped early: %s", resp.Error)
				}
				return nil
			})
		},
	}
}
