package model

import (
	"fmt"
	"strings"
	"time"
)

// Category is the logical log category a run is restricted to.
type Category string

const (
	CategoryWindows Category = "windows"
	CategoryLinux   Category = "linux"
	CategoryMac     Category = "mac"
	CategorySSH     Category = "ssh"
	CategoryApache  Category = "apache"
	CategoryAll     Category = "all"
)

// Categories lists every valid category in display order.
func Categories() []Category {
	return []Category{
		CategoryWindows,
		CategoryLinux,
		CategoryMac,
		CategorySSH,
		CategoryApache,
		CategoryAll,
	}
}

// ParseCategory converts a user-supplied string into a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories() {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("invalid log type %q (valid: windows, linux, mac, ssh, apache, all)", s)
}

// RunConfig is the immutable configuration for one verification run.
// It is built once at startup and passed to every component; nothing
// downstream reads environment or config files on its own.
type RunConfig struct {
	Category     Category
	LogsDB       bool
	DropOriginal bool
	DropMessage  bool

	// NamespaceOverride bypasses namespace derivation when set.
	NamespaceOverride string

	// StreamType and Dataset compose the data stream name with the
	// namespace: <type>-<dataset>-<namespace>.
	StreamType string
	Dataset    string

	Interval time.Duration
	Timeout  time.Duration

	// Window restricts counting to records ingested within the last
	// Window duration. Zero counts everything.
	Window time.Duration

	LogDir string
}

// Validate reports the first configuration error, or nil.
func (c RunConfig) Validate() error {
	if _, err := ParseCategory(string(c.Category)); err != nil {
		return err
	}
	if c.StreamType == "" {
		return fmt.Errorf("stream type must not be empty")
	}
	if c.Dataset == "" {
		return fmt.Errorf("dataset must not be empty")
	}
	if c.Interval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.Interval)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("poll timeout must be positive, got %s", c.Timeout)
	}
	if c.Timeout <= c.Interval {
		return fmt.Errorf("poll timeout (%s) must exceed poll interval (%s)", c.Timeout, c.Interval)
	}
	if c.Window < 0 {
		return fmt.Errorf("time window must not be negative, got %s", c.Window)
	}
	return nil
}

// Mode returns the storage-mode namespace token.
func (c RunConfig) Mode() string {
	if c.LogsDB {
		return "logsdb"
	}
	return "default"
}
