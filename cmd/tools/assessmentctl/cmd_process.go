package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"assessment-pipeline/internal/app"
	"assessment-pipeline/internal/common/logger"
	processsubmission "assessment-pipeline/internal/workers/assessment/process-submission"
)

func newProcessCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "process <submission-id>",
		Short: "Run stage 2 for a stored submission in this process",
		Long: `Process loads the configured backends and runs analysis, report rendering,
download token issue and notifications for one submission, then prints
which steps succeeded. It never re-scores the submission.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			zapLog := logger.NewWithOptions(logger.Options{
				Level:  cfg.Logging.Level,
				Format: "console",
				Output: "stderr",
			})
			defer zapLog.Sync()
			log := logger.NewZapAdapter(zapLog)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg, log)
			if err != nil {
				return fmt.Errorf("initialize: %w", err)
			}
			defer a.Close()

			status, err := a.Coordinator.Process(ctx, args[0])
			if err != nil {
				return fmt.Errorf("process %s: %w", args[0], err)
			}
			printStage2Status(cmd, args[0], status)
			return nil
		},
	}
}

func printStage2Status(cmd *cobra.Command, id string, status *processsubmission.Stage2Status) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Submission %s processed in %dms\n", id, status.ElapsedMs)
	rows := [][]string{
		{"analysis", yesNo(status.AnalysisGenerated)},
		{"artifact", yesNo(status.ArtifactGenerated)},
		{"contact notified", yesNo(status.ContactNotified)},
		{"admins notified", yesNo(status.AdminsNotified)},
	}
	if status.ArtifactURL != "" {
		rows = append(rows, []string{"artifact url", status.ArtifactURL})
	}
	fmt.Fprintln(out, renderTable([]string{"Step", "Result"}, rows, nil))
}

func yesNo(ok bool) string {
	if ok {
		return "ok"
	}
	return "failed"
}
