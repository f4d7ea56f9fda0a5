package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tinytelemetry/sluice/internal/history"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent verification runs from the history database",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.HistoryDB == "" {
			return fmt.Errorf("no history database configured (set --history-db)")
		}
		limit, err := cmd.Flags().GetInt("limit")
		if err != nil {
			return err
		}

		store, err := history.Open(cfg.HistoryDB)
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.Recent(limit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("no recorded runs")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "STARTED\tRESULT\tSTREAM\tOBSERVED\tEXPECTED\tTICKS\tELAPSED")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
				r.StartedAt.Format(time.DateTime), r.Result, r.DataStream,
				r.Observed, r.Expected, r.Ticks, r.Elapsed.Round(time.Second))
		}
		return w.Flush()
	},
}

func init() {
	runsCmd.Flags().Int("limit", 20, "maximum runs to list")
	runsCmd.Flags().String("history-db", "", "DuckDB file recording past runs")
}
