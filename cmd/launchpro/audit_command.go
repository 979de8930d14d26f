package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newAuditCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "audit <campaign-id>",
		Short: "Show the audit trail for one campaign",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid campaign id %q", args[0])
			}

			rt, err := ctx.buildRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			runCtx := cmd.Context()
			c, err := rt.store.GetByID(runCtx, id)
			if err != nil {
				return err
			}
			if c == nil {
				return fmt.Errorf("campaign %d not found", id)
			}
			entries, err := rt.store.AuditEntries(runCtx, id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Campaign %d: %s (%s)\n\n", c.ID, c.Name, c.Status)
			if len(entries) == 0 {
				fmt.Fprintln(out, "No audit entries")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				transition := "-"
				if entry.FromStatus != "" || entry.ToStatus != "" {
					transition = fmt.Sprintf("%s -> %s", entry.FromStatus, entry.ToStatus)
				}
				flag := ""
				if entry.IsError {
					flag = "error"
				}
				rows = append(rows, []string{
					entry.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					entry.Component,
					entry.EventKind,
					transition,
					entry.Message,
					formatDuration(entry.Duration),
					flag,
				})
			}
			headers := []string{"Time", "Component", "Event", "Transition", "Message", "Duration", ""}

			if isTerminal(out) {
				fmt.Fprintln(out, renderTable(headers, rows, nil))
				return nil
			}
			for _, row := range rows {
				fmt.Fprintln(out, strings.Join(row, "\t"))
			}
			return nil
		},
	}
}
