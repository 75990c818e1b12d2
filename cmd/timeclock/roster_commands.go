package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"timeclock/internal/attendance"
	"timeclock/internal/engine"
	"timeclock/internal/ipc"
)

func newRosterCommand(ctx *commandContext) *cobra.Command {
	var onsiteOnly bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "roster",
		Short: "List workers with their current status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Roster(onsiteOnly)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Entries)
				}
				printRoster(cmd.OutOrStdout(), resp.Entries, onsiteOnly)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&onsiteOnly, "onsite", false, "Only list workers currently on site")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit roster entries as JSON")
	return cmd
}

func printRoster(out io.Writer, entries []engine.RosterEntry, onsiteOnly bool) {
	if len(entries) == 0 {
		if onsiteOnly {
			fmt.Fprintln(out, "Nobody is on site")
		} else {
			fmt.Fprintln(out, "Roster is empty")
		}
		return
	}
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, []string{
			entry.Worker.Name,
			entry.Worker.ID,
			presenceLabel(entry.Status),
			formatHours(entry.WeekHours),
		})
	}
	fmt.Fprint(out, renderTable(
		[]string{"Name", "ID", "Status", "Week"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
	))
	fmt.Fprintln(out)
}

func presenceLabel(status attendance.PresenceStatus) string {
	var label string
	switch status.Location {
	case attendance.Onsite:
		label = "In"
	case attendance.Offsite:
		label = "Offsite"
	default:
		label = "Out"
	}
	switch status.Outcount {
	case attendance.OutcountPending:
		label += " (outcount pending)"
	case attendance.OutcountConfirmed:
		label += " (outcount)"
	}
	return label
}

func newHoursCommand(ctx *commandContext) *cobra.Command {
	var workerID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "hours",
		Short: "Show the weekly AM/PM hours grid",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Hours(workerID)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.View)
				}
				printHours(cmd.OutOrStdout(), resp.View)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&workerID, "worker", "w", "", "Only show one worker by id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the hours grid as JSON")
	return cmd
}

func printHours(out io.Writer, view engine.HoursView) {
	if len(view.Workers) == 0 {
		fmt.Fprintln(out, "No workers to report")
		return
	}

	headers := make([]string, 0, len(view.Days)+2)
	aligns := make([]columnAlignment, 0, len(view.Days)+2)
	headers = append(headers, "Name")
	aligns = append(aligns, alignLeft)
	for _, day := range view.Days {
		headers = append(headers, dayHeader(day))
		aligns = append(aligns, alignRight)
	}
	headers = append(headers, "Total")
	aligns = append(aligns, alignRight)

	rows := make([][]string, 0, len(view.Workers))
	dayTotals := make([]float64, len(view.Days))
	var grandTotal float64
	for _, worker := range view.Workers {
		week := view.Table[worker.ID]
		row := make([]string, 0, len(headers))
		row = append(row, worker.Name)
		for i, day := range view.Days {
			hours := week[day]
			dayTotals[i] += hours.Total()
			row = append(row, fmt.Sprintf("%s/%s", formatHours(hours.AM), formatHours(hours.PM)))
		}
		grandTotal += week.Total()
		row = append(row, formatHours(week.Total()))
		rows = append(rows, row)
	}

	spec := tableSpec{Headers: headers, Rows: rows, Aligns: aligns}
	if len(view.Workers) > 1 {
		footer := make([]string, 0, len(headers))
		footer = append(footer, "All")
		for _, total := range dayTotals {
			footer = append(footer, formatHours(total))
		}
		spec.Footer = append(footer, formatHours(grandTotal))
	}
	fmt.Fprint(out, spec.Render())
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Cells show AM/PM hours")
}

func dayHeader(key string) string {
	day, err := time.Parse(time.DateOnly, key)
	if err != nil {
		return key
	}
	return day.Format("Mon 01/02")
}

func formatHours(value float64) string {
	return strconv.FormatFloat(value, 'f', 1, 64)
}
