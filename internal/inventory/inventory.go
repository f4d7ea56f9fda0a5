// Package inventory computes the expected record count for a verification
// run by scanning a directory of source log files. The selection rules
// (suffix convention, category matching, case-insensitive basename dedup)
// mirror the sender's, so the expected count and the transmitted count
// always describe the same file set.
package inventory

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tinytelemetry/sluice/internal/model"
)

const logSuffix = ".log"

// FileCount is one contributing source file and its record count.
type FileCount struct {
	Path  string
	Lines int64
}

// Inventory is the result of one directory scan.
type Inventory struct {
	Category model.Category
	Files    []FileCount
	Total    int64
}

// Scan walks dir for *.log files matching category and counts their
// newline-delimited records. An empty selection is not an error: it yields
// Total 0, meaning the run has nothing to verify.
func Scan(dir string, category model.Category) (*Inventory, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("inventory: stat source dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("inventory: %s is not a directory", dir)
	}

	paths, err := selectFiles(dir, category)
	if err != nil {
		return nil, err
	}

	inv := &Inventory{Category: category}
	for _, path := range paths {
		lines, err := countLines(path)
		if err != nil {
			return nil, fmt.Errorf("inventory: count %s: %w", path, err)
		}
		inv.Files = append(inv.Files, FileCount{Path: path, Lines: lines})
		inv.Total += lines
	}
	return inv, nil
}

// selectFiles returns the log files under dir for category, deduplicated by
// lowercased basename: when the same logical file appears more than once
// (Linux.log next to linux.log), only the lexicographically first path
// contributes.
func selectFiles(dir string, category model.Category) ([]string, error) {
	var candidates []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(d.Name()), logSuffix) {
			return nil
		}
		if category != model.CategoryAll && baseName(d.Name()) != string(category) {
			return nil
		}
		candidates = append(candidates, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("inventory: walk %s: %w", dir, err)
	}

	sort.Strings(candidates)

	seen := make(map[string]bool, len(candidates))
	selected := candidates[:0]
	for _, path := range candidates {
		key := baseName(filepath.Base(path))
		if seen[key] {
			continue
		}
		seen[key] = true
		selected = append(selected, path)
	}
	return selected, nil
}

// baseName lowercases a filename and strips its extension, yielding the
// category key ("Linux.log" -> "linux").
func baseName(name string) string {
	name = strings.ToLower(name)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// countLines counts newline-delimited records in path. A final line without
// a trailing newline still counts. Invalid byte sequences never abort the
// count; the downstream pipeline decodes permissively, so the record count
// must reflect line structure, not decode success.
func countLines(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	var count int64
	var partial bool
	for {
		chunk, err := reader.ReadSlice('\n')
		if len(chunk) > 0 {
			if chunk[len(chunk)-1] == '\n' {
				count++
				partial = false
			} else {
				partial = true
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if errors.Is(err, io.EOF) {
			if partial {
				count++
			}
			return count, nil
		}
		if err != nil {
			return 0, err
		}
	}
}
