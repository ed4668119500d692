package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"audioprep/domain/history"
)

// DefaultHistoryLimit is how many runs "history" shows without --limit
const DefaultHistoryLimit = 20

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent pipeline runs",
	Long: `Show the most recent "process" runs, newest first, with their outcome,
the stage that failed (if any) and the cleaned file or share link.

Runs are recorded in the database at history.database.

Example:
  audioprep history
  audioprep history --limit 5`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVar(&historyLimit, "limit", DefaultHistoryLimit, "Number of runs to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if !cfg.History.Enabled {
		return fmt.Errorf("run history is disabled; set history.enabled to true")
	}

	recorder, closeRecorder, err := openRecorder(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeRecorder(); err != nil {
			GetLogger().Warn("failed to close history", zap.Error(err))
		}
	}()

	return RunHistoryWithDependencies(cmd.Context(), recorder, historyLimit, time.Now(), os.Stdout)
}

// RunHistoryWithDependencies runs the history command with injected dependencies (for testing)
func RunHistoryWithDependencies(
	ctx context.Context,
	recorder history.Recorder,
	limit int,
	now time.Time,
	output OutputWriter,
) error {
	runs, err := recorder.Recent(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(output, "No runs recorded.")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			humanize.RelTime(r.StartedAt, now, "ago", "from now"),
			string(r.Status),
			r.FailedStage,
			runDuration(r),
			runTitle(r),
			runOutput(r),
		})
	}

	fmt.Fprintln(output, renderTable(
		[]string{"STARTED", "STATUS", "FAILED AT", "TOOK", "TITLE", "OUTPUT"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	))
	return nil
}

func runDuration(r history.Run) string {
	if r.FinishedAt.IsZero() {
		return "-"
	}
	return formatElapsed(r.Duration())
}

func runTitle(r history.Run) string {
	if r.Title != "" {
		return r.Title
	}
	return r.SourceURL
}

func runOutput(r history.Run) string {
	switch {
	case r.ShareURL != "":
		return r.ShareURL
	case r.CleanedPath != "":
		return filepath.Base(r.CleanedPath)
	case r.Error != "":
		return r.Error
	}
	return ""
}

func formatElapsed(d time.Duration) string {
	d = d.Round(time.Second)
	m := d / time.Minute
	s := (d % time.Minute) / time.Second
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
