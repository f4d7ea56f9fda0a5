package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tinytelemetry/sluice/internal/inventory"
	"github.com/tinytelemetry/sluice/internal/model"
	"github.com/tinytelemetry/sluice/internal/poller"
)

func sampleReport() *Report {
	cfg := model.RunConfig{
		Category:   model.CategoryLinux,
		LogsDB:     true,
		StreamType: model.DefaultStreamType,
		Dataset:    model.DefaultDataset,
		Interval:   5 * time.Second,
		Timeout:    time.Minute,
	}
	res := poller.Result{
		Outcome:       poller.OutcomeConverged,
		Expected:      500,
		Observed:      500,
		Ticks:         4,
		NotFoundTicks: 1,
		Elapsed:       30 * time.Second,
	}
	inv := &inventory.Inventory{
		Category: cfg.Category,
		Files:    []inventory.FileCount{{Path: "/logs/Linux.log", Lines: 500}},
		Total:    500,
	}
	started := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return Assemble(cfg, "logs-syslog-logsdb-linux", "logsdb-linux", res, inv, Diagnostics{
		Endpoint: "https://es.example.com:443",
	}, started, started.Add(30*time.Second))
}

func TestAssemble_PassedOnConvergence(t *testing.T) {
	t.Parallel()

	r := sampleReport()
	if r.Result != ResultPassed {
		t.Fatalf("Result = %q, want %q", r.Result, ResultPassed)
	}
	if r.RunID == "" {
		t.Fatal("RunID should be set")
	}
	if r.Diagnostics.Hostname == "" || r.Diagnostics.GoVersion == "" {
		t.Fatal("environment diagnostics should be filled in")
	}
	if len(r.Files) != 1 {
		t.Fatalf("len(Files) = %d, want 1", len(r.Files))
	}
}

func TestAssemble_FailedOnTimeout(t *testing.T) {
	t.Parallel()

	cfg := model.RunConfig{Category: model.CategoryAll, StreamType: "logs", Dataset: "syslog"}
	res := poller.Result{Outcome: poller.OutcomeTimedOut, Expected: 10, Observed: 3, LastError: "connection refused"}
	r := Assemble(cfg, "logs-syslog-default-all", "default-all", res, nil,
		Diagnostics{LastBackendError: res.LastError}, time.Now(), time.Now())

	if r.Result != ResultFailed {
		t.Fatalf("Result = %q, want %q", r.Result, ResultFailed)
	}
	if r.Outcome != "timed-out" {
		t.Fatalf("Outcome = %q, want timed-out", r.Outcome)
	}
}

func TestMarkdown_CarriesTriageContext(t *testing.T) {
	t.Parallel()

	r := sampleReport()
	r.Diagnostics.LastBackendError = "backend returned 503"
	r.Diagnostics.KnownStreams = []string{"logs-syslog-logsdb-linux"}
	md := r.Markdown()

	for _, want := range []string{
		"Test result: PASSED",
		"Data stream: logs-syslog-logsdb-linux",
		"Expected records: 500",
		"Observed records: 500",
		"/logs/Linux.log (500 lines)",
		"backend returned 503",
		"Known data streams:",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestWrite_ProducesMarkdownAndSidecar(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	r := sampleReport()

	mdPath, err := r.Write(dir)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if filepath.Base(mdPath) != "test_report.md" {
		t.Fatalf("markdown path = %q", mdPath)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "test_report.yaml"))
	if err != nil {
		t.Fatalf("read sidecar: %v", err)
	}

	var back Report
	if err := yaml.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal sidecar: %v", err)
	}
	if back.RunID != r.RunID {
		t.Fatalf("sidecar RunID = %q, want %q", back.RunID, r.RunID)
	}
	if back.Expected != 500 || back.Observed != 500 {
		t.Fatalf("sidecar counts = %d/%d, want 500/500", back.Observed, back.Expected)
	}
}

func TestWrite_OverwritesPreviousRun(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	first := sampleReport()
	if _, err := first.Write(dir); err != nil {
		t.Fatalf("first Write: %v", err)
	}

	second := sampleReport()
	if _, err := second.Write(dir); err != nil {
		t.Fatalf("second Write: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "test_report.md"))
	if err != nil {
		t.Fatalf("read markdown: %v", err)
	}
	if !strings.Contains(string(raw), second.RunID) {
		t.Fatal("markdown should hold the latest run")
	}
}
