package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/ludo-technologies/fixeval/domain"
	"github.com/ludo-technologies/fixeval/service"
	"github.com/spf13/cobra"
)

// historyEntry is a run as printed by 'history --json'
type historyEntry struct {
	domain.RunRecord
	Reports []string `json:"reports"`
}

func newHistoryEntries(records []domain.RunRecord) []historyEntry {
	entries := make([]historyEntry, 0, len(records))
	for _, r := range records {
		reports := service.SplitReportPaths(r.ReportPaths)
		if reports == nil {
			reports = []string{}
		}
		entries = append(entries, historyEntry{RunRecord: r, Reports: reports})
	}
	return entries
}

func historyCmd() *cobra.Command {
	var (
		configPath string
		limit      int
		repo       string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded evaluation runs",
		Long: `List evaluation runs recorded in the local history database. Recording is
enabled with 'history.enabled: true' in the configuration.

Examples:
  fixeval history --limit 10
  fixeval history --repo owner/project --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setupRuntime(cmd, configPath, "")
			if err != nil {
				return err
			}
			defer env.close()

			store, err := service.OpenHistoryStore(cmd.Context(), env.cfg.History.Path)
			if err != nil {
				return &ExitError{Code: ExitConfig, Err: domain.NewConfigError("failed to open run history", err)}
			}
			defer store.Close()

			records, err := store.List(cmd.Context(), service.HistoryFilter{Repository: repo, Limit: limit})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				return writeJSON(out, newHistoryEntries(records))
			}
			if len(records) == 0 {
				fmt.Fprintln(out, "No runs recorded.")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FINISHED\tREPOSITORY\tPR\tOUTCOME\tSCORE\tGRADE\tREPORTS")
			for _, r := range records {
				score := "-"
				if r.OverallScore != nil {
					score = service.FormatOverallScore(*r.OverallScore)
				}
				pr := r.PRNumber
				if pr == "" {
					pr = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
					r.FinishedAt.UTC().Format("2006-01-02 15:04:05"), r.Repository, pr, r.Outcome, score, r.Grade,
					len(service.SplitReportPaths(r.ReportPaths)))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list (0 = all)")
	cmd.Flags().StringVar(&repo, "repo", "", "Only list runs for this repository")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print runs as JSON")
	return cmd
}
