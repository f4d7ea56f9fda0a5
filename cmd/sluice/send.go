package main

import (
	"context"
	"fmt"
	"net"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tinytelemetry/sluice/internal/inventory"
	"github.com/tinytelemetry/sluice/internal/sender"
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Replay the source log files to a syslog endpoint",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return runSend(cfg)
	},
}

func init() {
	f := sendCmd.Flags()
	f.String("syslog-host", "localhost", "syslog server host")
	f.Int("syslog-port", defaultSyslogPort, "syslog server port")
	f.String("protocol", "tcp", "transport protocol (tcp or udp)")
	f.Duration("send-interval", 0, "delay between lines (0 for none)")
}

func runSend(cfg appConfig) error {
	logger := newLogger(cfg.Verbose)

	rc, _, _, err := streamName(cfg)
	if err != nil {
		return err
	}

	inv, err := inventory.Scan(rc.LogDir, rc.Category)
	if err != nil {
		return err
	}
	if inv.Total == 0 {
		return fmt.Errorf("no log files for type %q under %s", rc.Category, rc.LogDir)
	}
	for _, f := range inv.Files {
		logger.Info("selected source file", "path", f.Path, "lines", f.Lines)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := net.JoinHostPort(cfg.SyslogHost, strconv.Itoa(cfg.SyslogPort))
	s, err := sender.Dial(sender.Config{
		Addr:     addr,
		Protocol: cfg.SyslogProtocol,
		Interval: cfg.SendInterval,
	})
	if err != nil {
		return err
	}
	defer s.Close()
	logger.Info("connected to syslog endpoint", "addr", addr, "protocol", cfg.SyslogProtocol)

	start := time.Now()
	stats, err := s.Send(ctx, inv)
	if err != nil {
		return fmt.Errorf("sent %d of %d lines: %w", stats.Sent, inv.Total, err)
	}

	logger.Info("replay complete",
		"files", stats.Files, "read", stats.Read, "sent", stats.Sent,
		"skipped", stats.Skipped, "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}
