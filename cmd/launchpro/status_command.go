package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"launchpro/internal/campaign"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show campaigns and their lifecycle state",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.buildRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			var filters []campaign.Status
			for _, raw := range strings.Split(statusFilter, ",") {
				raw = strings.TrimSpace(raw)
				if raw == "" {
					continue
				}
				status, ok := campaign.ParseStatus(raw)
				if !ok {
					return fmt.Errorf("unknown status %q", raw)
				}
				filters = append(filters, status)
			}

			runCtx := cmd.Context()
			campaigns, err := rt.store.List(runCtx, filters...)
			if err != nil {
				return err
			}
			summary, err := rt.store.Health(runCtx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Campaigns: %d total, %d pending, %d in flight, %d generating, %d active, %d failed\n\n",
				summary.Total, summary.Pending, summary.InFlight, summary.Generating, summary.Active, summary.Failed)
			if len(campaigns) == 0 {
				fmt.Fprintln(out, "No campaigns")
				return nil
			}

			rows := make([][]string, 0, len(campaigns))
			for _, c := range campaigns {
				rows = append(rows, []string{
					strconv.FormatInt(c.ID, 10),
					c.Name,
					string(c.Status),
					platformSummary(runCtx, rt, c),
					errorSummary(c),
					c.CreatedAt.Local().Format("2006-01-02 15:04"),
				})
			}
			headers := []string{"ID", "Name", "Status", "Platforms", "Error", "Created"}

			if isTerminal(out) {
				fmt.Fprintln(out, renderTable(headers, rows, []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft}))
				return nil
			}
			for _, row := range rows {
				fmt.Fprintln(out, strings.Join(row, "\t"))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&statusFilter, "status", "", "Comma-separated status filter (e.g. active,failed)")
	return cmd
}

func platformSummary(ctx context.Context, rt *runtime, c *campaign.Campaign) string {
	platforms, err := rt.store.PlatformsFor(ctx, c.ID)
	if err != nil || len(platforms) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(platforms))
	for _, p := range platforms {
		parts = append(parts, fmt.Sprintf("%s:%s", p.Name, p.Status))
	}
	return strings.Join(parts, " ")
}

func errorSummary(c *campaign.Campaign) string {
	if c.ErrorDetail == nil {
		return ""
	}
	message := c.ErrorDetail.Message
	const limit = 40
	if len(message) > limit {
		message = message[:limit] + "..."
	}
	return fmt.Sprintf("[%s] %s", c.ErrorDetail.Step, message)
}

func formatDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
