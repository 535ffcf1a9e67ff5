package cli

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/gateagent/internal/config"
	"github.com/lucasnoah/gateagent/internal/history"
	"github.com/lucasnoah/gateagent/internal/report"
)

var (
	historyLimitFlag int
	historyRunFlag   string
	historyPruneFlag int
	historyResetFlag bool
	historyStatsFlag bool
	historySinceFlag time.Duration
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded gate runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := projectRoot()
		if err != nil {
			return err
		}
		cfg, err := loadConfig(root)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if !historyExists(root, cfg) {
			fmt.Fprintln(out, "No gate runs recorded.")
			return nil
		}
		s, err := openHistory(root, cfg)
		if err != nil {
			return toolError(err)
		}
		defer s.Close()

		ctx := cmd.Context()
		switch {
		case historyResetFlag:
			if err := s.Reset(); err != nil {
				return toolError(err)
			}
			fmt.Fprintln(out, "History cleared.")
			return nil

		case cmd.Flags().Changed("prune"):
			n, err := s.Prune(ctx, historyPruneFlag)
			if err != nil {
				return toolError(err)
			}
			fmt.Fprintf(out, "Pruned %d run(s).\n", n)
			return nil

		case historyStatsFlag:
			var since time.Time
			if historySinceFlag > 0 {
				since = time.Now().Add(-historySinceFlag)
			}
			stats, err := s.GateStats(ctx, since)
			if err != nil {
				return toolError(err)
			}
			if len(stats) == 0 {
				fmt.Fprintln(out, "No gate runs recorded.")
				return nil
			}
			rows := make([][]string, 0, len(stats))
			for _, st := range stats {
				rows = append(rows, []string{
					st.Name,
					strconv.Itoa(st.Runs),
					strconv.Itoa(st.Passed),
					strconv.Itoa(st.Failed),
					strconv.Itoa(st.Skipped),
					strconv.Itoa(st.Errors),
					strconv.FormatFloat(st.FailurePct, 'f', 1, 64) + "%",
					msString(st.AvgMs),
					msString(st.P95Ms),
				})
			}
			return report.Table(out, []string{"GATE", "RUNS", "PASSED", "FAILED", "SKIPPED", "ERRORS", "FAIL%", "AVG", "P95"}, rows)

		case historyRunFlag != "":
			run, err := s.Get(ctx, historyRunFlag)
			if err != nil {
				return toolError(err)
			}
			results, err := s.Results(ctx, run.ID)
			if err != nil {
				return toolError(err)
			}
			fmt.Fprintf(out, "Run:       %s\n", run.ID)
			fmt.Fprintf(out, "Project:   %s\n", run.ProjectRoot)
			fmt.Fprintf(out, "When:      %s\n", run.CreatedAt.Local().Format(time.DateTime))
			fmt.Fprintf(out, "Result:    %s\n", verdict(run.Success))
			fmt.Fprintf(out, "Duration:  %s\n", report.FormatDuration(run.Duration))
			if run.ConfigDigest != "" {
				fmt.Fprintf(out, "Config:    %s\n", run.ConfigDigest[:min(12, len(run.ConfigDigest))])
			}
			fmt.Fprintln(out)

			rows := make([][]string, 0, len(results))
			for _, r := range results {
				rows = append(rows, []string{
					report.Symbol(r.Status) + " " + r.Name,
					string(r.Status),
					strconv.Itoa(r.ErrorCount),
					strconv.Itoa(r.WarningCount),
					report.FormatDuration(r.Duration),
					report.Truncate(r.Message, 60),
				})
			}
			return report.Table(out, []string{"GATE", "STATUS", "ERRORS", "WARNINGS", "DURATION", "MESSAGE"}, rows)

		default:
			runs, err := s.Recent(ctx, historyLimitFlag)
			if err != nil {
				return toolError(err)
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No gate runs recorded.")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, r := range runs {
				rows = append(rows, []string{
					r.ID,
					r.CreatedAt.Local().Format(time.DateTime),
					verdict(r.Success),
					strconv.Itoa(r.Passed),
					strconv.Itoa(r.Failed),
					strconv.Itoa(r.Skipped),
					strconv.Itoa(r.Errors),
					report.FormatDuration(r.Duration),
				})
			}
			return report.Table(out, []string{"RUN", "WHEN", "RESULT", "PASSED", "FAILED", "SKIPPED", "ERRORS", "DURATION"}, rows)
		}
	},
}

func init() {
	historyCmd.Flags().StringVarP(&configFile, "config", "c", "", "path to gate-agent.yml")
	historyCmd.Flags().IntVarP(&historyLimitFlag, "limit", "n", 20, "number of runs to list")
	historyCmd.Flags().StringVar(&historyRunFlag, "run", "", "show the per-gate results of one run")
	historyCmd.Flags().IntVar(&historyPruneFlag, "prune", 0, "delete all but the newest N runs")
	historyCmd.Flags().BoolVar(&historyResetFlag, "reset", false, "delete every recorded run")
	historyCmd.Flags().BoolVar(&historyStatsFlag, "stats", false, "show per-gate failure rates and durations")
	historyCmd.Flags().DurationVar(&historySinceFlag, "since", 0, "with --stats, only runs newer than this (e.g. 168h)")
}

func verdict(success bool) string {
	if success {
		return "PASS"
	}
	return "FAIL"
}

func msString(ms float64) string {
	return report.FormatDuration(time.Duration(ms * float64(time.Millisecond)))
}

// historyExists avoids creating an empty SQLite file just to read it.
func historyExists(root string, cfg *config.Config) bool {
	if history.IsPostgres(cfg.History.DSN) {
		return true
	}
	_, err := os.Stat(historyDSN(root, cfg))
	return err == nil
}
