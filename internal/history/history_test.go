package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/tinytelemetry/sluice/internal/report"
)

func storedReport(id string, started time.Time, result string) *report.Report {
	return &report.Report{
		RunID:      id,
		StartedAt:  started,
		FinishedAt: started.Add(30 * time.Second),
		Result:     result,
		Outcome:    "converged",
		DataStream: "logs-syslog-logsdb-linux",
		Category:   "linux",
		Expected:   500,
		Observed:   500,
		Ticks:      4,
		Elapsed:    30 * time.Second,
	}
}

func TestStore_RecordAndRecent(t *testing.T) {
	t.Parallel()

	s, err := Open("")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-a", "run-b", "run-c"} {
		r := storedReport(id, base.Add(time.Duration(i)*time.Hour), report.ResultPassed)
		if err := s.Record(r); err != nil {
			t.Fatalf("Record %s: %v", id, err)
		}
	}

	runs, err := s.Recent(2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("len(runs) = %d, want 2", len(runs))
	}
	if runs[0].RunID != "run-c" || runs[1].RunID != "run-b" {
		t.Fatalf("order = %s, %s; want newest first", runs[0].RunID, runs[1].RunID)
	}
	if runs[0].Elapsed != 30*time.Second {
		t.Fatalf("Elapsed = %s, want 30s", runs[0].Elapsed)
	}
	if runs[0].Observed != 500 || runs[0].Expected != 500 {
		t.Fatalf("counts = %d/%d, want 500/500", runs[0].Observed, runs[0].Expected)
	}
}

func TestStore_RecentOnEmptyTable(t *testing.T) {
	t.Parallel()

	s, err := Open("")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	runs, err := s.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("len(runs) = %d, want 0", len(runs))
	}
}

func TestOpen_CreatesParentDirectory(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state", "runs.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	r := storedReport("run-x", time.Now().UTC(), report.ResultFailed)
	if err := s.Record(r); err != nil {
		t.Fatalf("Record: %v", err)
	}
	runs, err := s.Recent(1)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 1 || runs[0].Result != report.ResultFailed {
		t.Fatalf("runs = %+v, want one failed run", runs)
	}
}
