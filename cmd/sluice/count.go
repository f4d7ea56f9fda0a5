package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/tinytelemetry/sluice/internal/inventory"
)

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Count the records the source log files are expected to produce",
	Long: `count scans the source log directory and prints the selected files
with their line counts and the expected total, without touching the
backend. With --backend it instead queries the backend for the current
document count of the target data stream.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		backend, err := cmd.Flags().GetBool("backend")
		if err != nil {
			return err
		}
		return runCount(cfg, backend, cmd.OutOrStdout())
	},
}

func init() {
	countCmd.Flags().Bool("backend", false, "query the backend's current document count instead of the source files")
}

func runCount(cfg appConfig, backend bool, out io.Writer) error {
	rc, stream, _, err := streamName(cfg)
	if err != nil {
		return err
	}

	if backend {
		return printBackendCount(cfg, stream, rc.Window, out)
	}

	inv, err := inventory.Scan(rc.LogDir, rc.Category)
	if err != nil {
		return err
	}
	if len(inv.Files) == 0 {
		fmt.Fprintf(out, "no source files for type %q under %s\n", rc.Category, rc.LogDir)
		return nil
	}
	for _, f := range inv.Files {
		fmt.Fprintf(out, "%s: %d lines\n", f.Path, f.Lines)
	}
	fmt.Fprintf(out, "total expected records: %d\n", inv.Total)
	return nil
}

func printBackendCount(cfg appConfig, stream string, window time.Duration, out io.Writer) error {
	client, err := backendClient(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	res, err := client.Count(ctx, stream, window)
	if err != nil {
		return err
	}
	if !res.Found {
		fmt.Fprintf(out, "%s: data stream does not exist\n", stream)
		return nil
	}
	if window > 0 {
		fmt.Fprintf(out, "%s: %d records in the last %s\n", stream, res.Count, window)
		return nil
	}
	fmt.Fprintf(out, "%s: %d records\n", stream, res.Count)
	return nil
}
