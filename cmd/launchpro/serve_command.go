package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"launchpro/internal/trigger"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP trigger endpoints",
		Long: "Starts the HTTP server exposing one run endpoint per stage worker " +
			"plus /healthz, for schedulers that trigger over HTTP instead of cron.",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.buildRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			server := trigger.NewServer(rt.cfg, rt.store,
				rt.approvalPoller, rt.trackingPoller, rt.processor, rt.designSyncer,
				rt.logger)

			serveCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.ListenAndServe(serveCtx)
		},
	}
}
