package inventory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tinytelemetry/sluice/internal/model"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestScan_CountsAllCategories(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "Linux.log", "a\nb\nc\n")
	writeFile(t, dir, "Windows.log", "x\ny\n")
	writeFile(t, dir, "notes.txt", "ignored\n")

	inv, err := Scan(dir, model.CategoryAll)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if inv.Total != 5 {
		t.Fatalf("Total = %d, want 5", inv.Total)
	}
	if len(inv.Files) != 2 {
		t.Fatalf("len(Files) = %d, want 2", len(inv.Files))
	}
}

func TestScan_CategoryFilterMatchesBasename(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "Linux.log", "a\nb\n")
	writeFile(t, dir, "Mac.log", "m\n")
	writeFile(t, dir, "ssh.log", "s\ns\ns\n")

	inv, err := Scan(dir, model.CategorySSH)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if inv.Total != 3 {
		t.Fatalf("Total = %d, want 3", inv.Total)
	}
	if len(inv.Files) != 1 {
		t.Fatalf("len(Files) = %d, want 1", len(inv.Files))
	}
}

func TestScan_RecursesIntoSubdirectories(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, filepath.Join("extracted", "Apache.log"), "1\n2\n3\n4\n")

	inv, err := Scan(dir, model.CategoryApache)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if inv.Total != 4 {
		t.Fatalf("Total = %d, want 4", inv.Total)
	}
}

func TestScan_DeduplicatesCaseInsensitiveBasenames(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, filepath.Join("a", "Linux.log"), "1\n2\n")
	writeFile(t, dir, filepath.Join("b", "linux.log"), "1\n2\n3\n")

	inv, err := Scan(dir, model.CategoryLinux)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(inv.Files) != 1 {
		t.Fatalf("len(Files) = %d, want 1 after dedup", len(inv.Files))
	}
	// Lexicographically first path wins.
	if inv.Total != 2 {
		t.Fatalf("Total = %d, want 2 (a/Linux.log)", inv.Total)
	}
}

func TestScan_EmptySelectionIsNotAnError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "Linux.log", "a\n")

	inv, err := Scan(dir, model.CategoryWindows)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if inv.Total != 0 {
		t.Fatalf("Total = %d, want 0", inv.Total)
	}
	if len(inv.Files) != 0 {
		t.Fatalf("len(Files) = %d, want 0", len(inv.Files))
	}
}

func TestScan_MissingDirectoryFails(t *testing.T) {
	t.Parallel()

	if _, err := Scan(filepath.Join(t.TempDir(), "absent"), model.CategoryAll); err == nil {
		t.Fatal("Scan of missing directory should fail")
	}
}

func TestScan_FinalLineWithoutNewlineCounts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "linux.log", "a\nb\nno trailing newline")

	inv, err := Scan(dir, model.CategoryLinux)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if inv.Total != 3 {
		t.Fatalf("Total = %d, want 3", inv.Total)
	}
}

func TestScan_InvalidUTF8DoesNotAbort(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	raw := append([]byte("ok line\n"), 0xff, 0xfe, 0xfd, '\n')
	raw = append(raw, []byte("another\n")...)
	path := filepath.Join(dir, "mac.log")
	if err := os.WriteFile(path, raw, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	inv, err := Scan(dir, model.CategoryMac)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if inv.Total != 3 {
		t.Fatalf("Total = %d, want 3 (malformed bytes replaced, not fatal)", inv.Total)
	}
}

func TestScan_EmptyFileCountsZero(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "windows.log", "")

	inv, err := Scan(dir, model.CategoryWindows)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if inv.Total != 0 {
		t.Fatalf("Total = %d, want 0", inv.Total)
	}
	if len(inv.Files) != 1 {
		t.Fatalf("len(Files) = %d, want 1", len(inv.Files))
	}
}
