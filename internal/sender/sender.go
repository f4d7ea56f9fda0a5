// Package sender replays source log files to a syslog endpoint over TCP or
// UDP. It consumes the same file selection the inventory produces, so the
// number of lines it reads is exactly the expected count a verification run
// polls for.
package sender

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tinytelemetry/sluice/internal/inventory"
)

// Config holds the transport parameters for one send pass.
type Config struct {
	// Addr is the host:port of the syslog endpoint.
	Addr string
	// Protocol is "tcp" or "udp".
	Protocol string
	// Interval, when positive, is slept between lines to throttle replay.
	Interval time.Duration
	// OnProgress, when set, is called after every sent line.
	OnProgress func(Progress)
}

// Progress is one per-line progress notification.
type Progress struct {
	File  string
	Sent  int64
	Total int64
}

// Stats summarizes one send pass.
type Stats struct {
	Files   int
	Read    int64
	Sent    int64
	Skipped int64
}

// Sender holds one open transport to the syslog endpoint. A TCP sender keeps
// a single connection for the whole pass; a UDP sender emits one datagram
// per line over a connected socket.
type Sender struct {
	cfg  Config
	conn net.Conn
}

// Dial connects to the configured endpoint. Failure to connect is fatal:
// without a transport there is nothing to replay.
func Dial(cfg Config) (*Sender, error) {
	proto := strings.ToLower(cfg.Protocol)
	switch proto {
	case "", "tcp":
		proto = "tcp"
	case "udp":
	default:
		return nil, fmt.Errorf("sender: unsupported protocol %q", cfg.Protocol)
	}

	conn, err := net.Dial(proto, cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("sender: dial %s %s: %w", proto, cfg.Addr, err)
	}
	return &Sender{cfg: cfg, conn: conn}, nil
}

// Close releases the transport.
func (s *Sender) Close() error {
	return s.conn.Close()
}

// Send replays every file in the inventory, in order. Blank lines are
// skipped; everything else is syslog-formatted and written followed by a
// newline. The pass stops early only on ctx cancellation or a write error.
func (s *Sender) Send(ctx context.Context, inv *inventory.Inventory) (Stats, error) {
	var stats Stats
	for _, f := range inv.Files {
		stats.Files++
		if err := s.sendFile(ctx, f, &stats); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func (s *Sender) sendFile(ctx context.Context, fc inventory.FileCount, stats *Stats) error {
	f, err := os.Open(fc.Path)
	if err != nil {
		return fmt.Errorf("sender: open %s: %w", fc.Path, err)
	}
	defer f.Close()

	// The file's own name identifies the machine the log came from.
	host := hostFromFilename(fc.Path)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Read++

		line, ok := FormatLine(scanner.Text(), host, time.Now())
		if !ok {
			stats.Skipped++
			continue
		}

		if _, err := s.conn.Write([]byte(line + "\n")); err != nil {
			return fmt.Errorf("sender: write %s: %w", fc.Path, err)
		}
		stats.Sent++

		if s.cfg.OnProgress != nil {
			s.cfg.OnProgress(Progress{File: fc.Path, Sent: stats.Sent, Total: fc.Lines})
		}
		if s.cfg.Interval > 0 {
			if err := sleep(ctx, s.cfg.Interval); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("sender: read %s: %w", fc.Path, err)
	}
	return nil
}

// FormatLine prepares one raw log line for the wire. Blank lines yield
// ok=false. A line that already opens with a syslog timestamp passes through
// unchanged; anything else gets a fresh timestamp and the source host
// prepended. Invalid byte sequences are replaced, never dropped.
func FormatLine(raw, host string, now time.Time) (string, bool) {
	line := strings.ToValidUTF8(strings.TrimSpace(raw), "�")
	if line == "" {
		return "", false
	}

	if looksSyslogFormatted(line) {
		return line, true
	}

	return fmt.Sprintf("%s %s %s", now.Format("Jan 02 15:04:05"), host, line), true
}

// looksSyslogFormatted reports whether the line opens with something shaped
// like a syslog timestamp: a letter-initial token with a space inside the
// first six characters ("Jan 15 ...").
func looksSyslogFormatted(line string) bool {
	head := line
	if len(head) > 6 {
		head = head[:6]
	}
	return strings.IndexByte(head, ' ') > 0 && isAlpha(line[0])
}

func isAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// hostFromFilename derives the source hostname from a log file's basename
// ("Linux.log" -> "Linux").
func hostFromFilename(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
