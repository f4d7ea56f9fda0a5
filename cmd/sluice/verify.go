package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avast/retry-go/v4"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tinytelemetry/sluice/internal/history"
	"github.com/tinytelemetry/sluice/internal/inventory"
	"github.com/tinytelemetry/sluice/internal/poller"
	"github.com/tinytelemetry/sluice/internal/report"
	"github.com/tinytelemetry/sluice/internal/statusapi"
	"github.com/tinytelemetry/sluice/internal/watch"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Poll the backend until the expected record count has been ingested",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		passed, err := runVerify(cfg)
		if err != nil {
			return err
		}
		if !passed {
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	f := verifyCmd.Flags()
	f.String("report-dir", defaultReportDir, "directory for the run report")
	f.String("history-db", "", "DuckDB file recording past runs (empty disables history)")
	f.String("status-addr", "", "serve the status API on this address while polling")
	f.Bool("watch", false, "render live progress in the terminal")
}

func runVerify(cfg appConfig) (bool, error) {
	logger := newLogger(cfg.Verbose)

	rc, stream, ns, err := streamName(cfg)
	if err != nil {
		return false, err
	}

	inv, err := inventory.Scan(rc.LogDir, rc.Category)
	if err != nil {
		return false, err
	}
	logger.Info("scanned source logs",
		"dir", rc.LogDir, "log_type", rc.Category,
		"files", len(inv.Files), "expected", inv.Total)

	client, err := backendClient(cfg)
	if err != nil {
		return false, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The backend may still be booting when a compose stack starts the
	// whole pipeline at once; give it a few attempts before the run.
	if err := retry.Do(
		func() error { return client.Ping(ctx) },
		retry.Context(ctx),
		retry.Attempts(defaultPingRetries),
		retry.Delay(2*time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("backend not reachable yet", "attempt", n+1, "error", err)
		}),
	); err != nil {
		return false, fmt.Errorf("backend unreachable at %s: %w", client.Endpoint(), err)
	}

	tracker := statusapi.NewTracker(stream, inv.Total)
	if cfg.StatusAddr != "" {
		api := statusapi.NewServer(cfg.StatusAddr, tracker)
		if err := api.Start(); err != nil {
			return false, fmt.Errorf("starting status API: %w", err)
		}
		defer api.Stop()
		logger.Info("status API listening", "addr", cfg.StatusAddr)
	}

	var program *tea.Program
	if cfg.Watch {
		program = tea.NewProgram(watch.New(stream, inv.Total, rc.Timeout))
	}

	onTick := func(o poller.Observation) {
		tracker.Observe(o)
		if program != nil {
			program.Send(watch.ObservationMsg(o))
		}
		if o.Err != nil {
			logger.Warn("poll tick failed", "tick", o.Tick, "error", o.Err)
			return
		}
		logger.Info("poll tick",
			"tick", o.Tick, "observed", o.Observed, "expected", o.Expected,
			"stream_missing", o.NotFound, "elapsed", o.Elapsed.Round(time.Second))
	}

	pl := poller.New(poller.Config{
		Stream:   stream,
		Expected: inv.Total,
		Interval: rc.Interval,
		Timeout:  rc.Timeout,
		Window:   rc.Window,
		OnTick:   onTick,
	}, client, nil)

	logger.Info("polling for convergence",
		"stream", stream, "expected", inv.Total,
		"interval", rc.Interval, "timeout", rc.Timeout)

	startedAt := time.Now().UTC()
	var res poller.Result

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var runErr error
		res, runErr = pl.Run(gctx)
		tracker.Finish(res)
		if program != nil {
			program.Send(watch.DoneMsg(res))
		}
		return runErr
	})

	if program != nil {
		if _, err := program.Run(); err != nil {
			logger.Warn("progress view failed", "error", err)
		}
	}

	if err := g.Wait(); err != nil {
		return false, fmt.Errorf("verification aborted: %w", err)
	}
	finishedAt := time.Now().UTC()

	diag := report.Diagnostics{
		Endpoint:         client.Endpoint(),
		LastBackendError: res.LastError,
	}
	// The stream listing is triage context; a failure to fetch it must not
	// mask the run result.
	if streams, err := client.DataStreams(context.Background()); err == nil {
		diag.KnownStreams = streams
	}

	rep := report.Assemble(rc, stream, ns, res, inv, diag, startedAt, finishedAt)

	mdPath, err := rep.Write(cfg.ReportDir)
	if err != nil {
		return false, err
	}
	logger.Info("report written", "path", mdPath)

	if cfg.HistoryDB != "" {
		if err := recordRun(cfg.HistoryDB, rep); err != nil {
			logger.Warn("recording run history failed", "error", err)
		}
	}

	printVerdict(rep)
	return rep.Result == report.ResultPassed, nil
}

func recordRun(path string, rep *report.Report) error {
	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Record(rep)
}

func printVerdict(rep *report.Report) {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	verdict := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")).Render("PASSED")
	if rep.Result != report.ResultPassed {
		verdict = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")).Render("FAILED")
	}

	fmt.Println()
	fmt.Printf("  %s  %s\n", verdict, dim.Render(rep.DataStream))
	fmt.Printf("  %s\n", dim.Render(fmt.Sprintf("observed %d of %d expected records in %s (%d ticks)",
		rep.Observed, rep.Expected, rep.Elapsed.Round(time.Second), rep.Ticks)))
	if rep.Diagnostics.LastBackendError != "" {
		fmt.Printf("  %s\n", dim.Render("last backend error: "+rep.Diagnostics.LastBackendError))
	}
	fmt.Println()
}
