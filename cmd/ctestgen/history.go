package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ctestgen/internal/config"
	"ctestgen/internal/history"
	"ctestgen/internal/report"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [file]",
	Short: "Show recent runs, or one file's reports across runs",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "maximum rows to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	store, err := history.NewStore(cfg.History.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	if len(args) == 1 {
		records, err := store.FileHistory(args[0], historyLimit)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Printf("no recorded runs for %s\n", args[0])
			return nil
		}
		fmt.Fprintln(w, "RUN\tQUALITY\tCOMPILES\tATTEMPTS\tSTATE\tISSUES")
		for _, rec := range records {
			fmt.Fprintf(w, "%s\t%s\t%v\t%d\t%s\t%s\n",
				rec.RunID, rec.Quality, rec.Compiles, rec.Attempts, rec.State,
				report.PlainIssueList(rec.Issues))
		}
		return nil
	}

	runs, err := store.RecentRuns(historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no recorded runs yet")
		return nil
	}
	fmt.Fprintln(w, "RUN\tSTARTED\tACCEPTED\tFAILED\tATTEMPTS\tREGENERATIONS")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\n",
			run.ID, run.StartedAt.Format("2006-01-02 15:04:05"),
			run.Stats.FilesAccepted, run.Stats.FilesFailed,
			run.Stats.AttemptsIssued, run.Stats.SuccessfulRegenerations)
	}
	return nil
}
