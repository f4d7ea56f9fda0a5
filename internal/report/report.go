// Package report assembles and persists the durable run report: a
// human-readable markdown artifact plus a machine-readable YAML sidecar,
// written once per completed run with enough diagnostic context to triage
// a failure without re-running it.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/tinytelemetry/sluice/internal/inventory"
	"github.com/tinytelemetry/sluice/internal/model"
	"github.com/tinytelemetry/sluice/internal/poller"
)

const (
	markdownName = "test_report.md"
	sidecarName  = "test_report.yaml"

	// ResultPassed and ResultFailed are the two run verdicts.
	ResultPassed = "PASSED"
	ResultFailed = "FAILED"
)

// SourceFile is one contributing source file, as recorded in the report.
type SourceFile struct {
	Path  string `yaml:"path"`
	Lines int64  `yaml:"lines"`
}

// Diagnostics is the raw context a human needs to triage a failed run.
type Diagnostics struct {
	Endpoint         string   `yaml:"endpoint"`
	LastBackendError string   `yaml:"last_backend_error,omitempty"`
	KnownStreams     []string `yaml:"known_streams,omitempty"`
	Hostname         string   `yaml:"hostname"`
	GoVersion        string   `yaml:"go_version"`
}

// Report is the immutable record of one verification run.
type Report struct {
	RunID      string    `yaml:"run_id"`
	StartedAt  time.Time `yaml:"started_at"`
	FinishedAt time.Time `yaml:"finished_at"`

	Result  string `yaml:"result"`
	Outcome string `yaml:"outcome"`

	DataStream   string `yaml:"data_stream"`
	Namespace    string `yaml:"namespace"`
	Mode         string `yaml:"mode"`
	Category     string `yaml:"log_type"`
	DropOriginal bool   `yaml:"drop_original"`
	DropMessage  bool   `yaml:"drop_message"`

	Expected      int64         `yaml:"expected"`
	Observed      int64         `yaml:"observed"`
	Ticks         int           `yaml:"ticks"`
	NotFoundTicks int           `yaml:"not_found_ticks"`
	Elapsed       time.Duration `yaml:"elapsed"`

	Files       []SourceFile `yaml:"files"`
	Diagnostics Diagnostics  `yaml:"diagnostics"`
}

// Assemble builds the report for a completed run. It never mutates its
// inputs and the returned report is never mutated afterwards.
func Assemble(cfg model.RunConfig, stream, ns string, res poller.Result, inv *inventory.Inventory, diag Diagnostics, startedAt, finishedAt time.Time) *Report {
	result := ResultFailed
	if res.Outcome == poller.OutcomeConverged {
		result = ResultPassed
	}

	if diag.Hostname == "" {
		diag.Hostname, _ = os.Hostname()
	}
	if diag.GoVersion == "" {
		diag.GoVersion = runtime.Version()
	}

	r := &Report{
		RunID:         uuid.NewString(),
		StartedAt:     startedAt,
		FinishedAt:    finishedAt,
		Result:        result,
		Outcome:       res.Outcome.String(),
		DataStream:    stream,
		Namespace:     ns,
		Mode:          cfg.Mode(),
		Category:      string(cfg.Category),
		DropOriginal:  cfg.DropOriginal,
		DropMessage:   cfg.DropMessage,
		Expected:      res.Expected,
		Observed:      res.Observed,
		Ticks:         res.Ticks,
		NotFoundTicks: res.NotFoundTicks,
		Elapsed:       res.Elapsed,
		Diagnostics:   diag,
	}
	if inv != nil {
		for _, f := range inv.Files {
			r.Files = append(r.Files, SourceFile{Path: f.Path, Lines: f.Lines})
		}
	}
	return r
}

// Markdown renders the human-readable report.
func (r *Report) Markdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Syslog Ingestion Test Report\n\n")
	fmt.Fprintf(&b, "Run %s, conducted on %s\n\n", r.RunID, r.StartedAt.Format("2006-01-02 15:04:05"))

	fmt.Fprintf(&b, "## Summary\n")
	fmt.Fprintf(&b, "- Test result: %s\n", r.Result)
	fmt.Fprintf(&b, "- Outcome: %s\n", r.Outcome)
	fmt.Fprintf(&b, "- Data stream: %s\n", r.DataStream)
	fmt.Fprintf(&b, "- Namespace: %s\n", r.Namespace)
	fmt.Fprintf(&b, "- Storage mode: %s\n", r.Mode)
	fmt.Fprintf(&b, "- Log type: %s\n", r.Category)
	fmt.Fprintf(&b, "- Drop original: %t\n", r.DropOriginal)
	fmt.Fprintf(&b, "- Drop message: %t\n", r.DropMessage)
	fmt.Fprintf(&b, "- Expected records: %d\n", r.Expected)
	fmt.Fprintf(&b, "- Observed records: %d\n", r.Observed)
	fmt.Fprintf(&b, "- Poll ticks: %d (stream absent on %d)\n", r.Ticks, r.NotFoundTicks)
	fmt.Fprintf(&b, "- Elapsed: %s\n\n", r.Elapsed)

	fmt.Fprintf(&b, "## Environment\n")
	fmt.Fprintf(&b, "- Elasticsearch URL: %s\n", r.Diagnostics.Endpoint)
	fmt.Fprintf(&b, "- Host: %s\n", r.Diagnostics.Hostname)
	fmt.Fprintf(&b, "- Go version: %s\n\n", r.Diagnostics.GoVersion)

	fmt.Fprintf(&b, "## Source Files\n")
	if len(r.Files) == 0 {
		fmt.Fprintf(&b, "No source files matched the selection.\n")
	} else {
		for _, f := range r.Files {
			fmt.Fprintf(&b, "- %s (%d lines)\n", f.Path, f.Lines)
		}
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "## Diagnostics\n")
	if r.Diagnostics.LastBackendError != "" {
		fmt.Fprintf(&b, "Last backend error:\n\n```\n%s\n```\n\n", r.Diagnostics.LastBackendError)
	} else {
		fmt.Fprintf(&b, "No backend errors recorded.\n\n")
	}
	if len(r.Diagnostics.KnownStreams) > 0 {
		fmt.Fprintf(&b, "Known data streams:\n\n")
		for _, s := range r.Diagnostics.KnownStreams {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}

	return b.String()
}

// Write persists the markdown artifact and its YAML sidecar into dir,
// overwriting any previous run's artifacts. It returns the markdown path.
func (r *Report) Write(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("report: mkdir %s: %w", dir, err)
	}

	mdPath := filepath.Join(dir, markdownName)
	if err := os.WriteFile(mdPath, []byte(r.Markdown()), 0644); err != nil {
		return "", fmt.Errorf("report: write markdown: %w", err)
	}

	raw, err := yaml.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("report: marshal sidecar: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, sidecarName), raw, 0644); err != nil {
		return "", fmt.Errorf("report: write sidecar: %w", err)
	}

	return mdPath, nil
}
