package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"launchpro/internal/logging"
	"launchpro/internal/trigger"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var noLock bool

	cmd := &cobra.Command{
		Use:   "run <stage>",
		Short: "Run one batch of a stage worker",
		Long: "Runs one bounded batch of the named stage worker and exits. " +
			"Intended as the scheduled entry point (cron, systemd timers). " +
			"Stages: " + strings.Join(trigger.StageNames(), ", ") + ".",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stage := strings.ToLower(strings.TrimSpace(args[0]))
			rt, err := ctx.buildRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			runner, budget, err := stageRunner(rt, stage)
			if err != nil {
				return err
			}

			// Advisory only: the store's conditional claim stays the
			// correctness mechanism, this just avoids wasted overlap when the
			// scheduler misfires.
			if !noLock {
				lock := flock.New(filepath.Join(rt.cfg.Store.LockDir, "run-"+stage+".lock"))
				ok, err := lock.TryLock()
				if err != nil {
					rt.logger.Warn("stage lock unavailable, continuing", logging.Error(err))
				} else if !ok {
					fmt.Fprintf(cmd.OutOrStdout(), "Stage %s already running, skipping\n", stage)
					return nil
				} else {
					defer func() { _ = lock.Unlock() }()
				}
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if budget > 0 {
				var cancel context.CancelFunc
				runCtx, cancel = context.WithTimeout(runCtx, budget)
				defer cancel()
			}

			summary, err := runner.RunOnce(runCtx)
			if err != nil {
				return fmt.Errorf("run %s: %w", stage, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"%s: scanned=%d succeeded=%d failed=%d skipped=%d duration=%s\n",
				summary.Worker, summary.Scanned, summary.Succeeded, summary.Failed,
				summary.Skipped, summary.Duration.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().BoolVar(&noLock, "no-lock", false, "Skip the advisory per-stage run lock")
	return cmd
}

func stageRunner(rt *runtime, stage string) (trigger.Runner, time.Duration, error) {
	var (
		runner  trigger.Runner
		minutes int
	)
	switch stage {
	case trigger.StageApproval:
		runner, minutes = rt.approvalPoller, rt.cfg.Workers.ApprovalBudgetMinutes
	case trigger.StageTracking:
		runner, minutes = rt.trackingPoller, rt.cfg.Workers.TrackingBudgetMinutes
	case trigger.StageProcessing:
		runner, minutes = rt.processor, rt.cfg.Workers.ProcessorBudgetMinutes
	case trigger.StageDesignSync:
		runner, minutes = rt.designSyncer, rt.cfg.Workers.DesignSyncBudgetMinutes
	default:
		return nil, 0, fmt.Errorf("unknown stage %q (expected one of: %s)", stage, strings.Join(trigger.StageNames(), ", "))
	}
	return runner, time.Duration(minutes) * time.Minute, nil
}
