package main

import (
	"time"

	"github.com/tinytelemetry/sluice/internal/model"
)

const (
	// defaultESPort 0 leaves the port to the endpoint scheme: 443 for
	// https, 9200 for http.
	defaultESPort       = 0
	defaultLogDir       = "/logs"
	defaultReportDir    = "."
	defaultPollInterval = model.DefaultPollInterval
	defaultPollTimeout  = model.DefaultPollTimeout
	defaultSyslogPort   = 5514
	defaultPingRetries  = 5
)

// appConfig is internal runtime configuration.
// It is package-private to keep defaults and shape local to the CLI entrypoint.
type appConfig struct {
	Endpoint     string        `mapstructure:"endpoint"`
	Port         int           `mapstructure:"port"`
	APIKey       string        `mapstructure:"api-key"`
	LogType      string        `mapstructure:"log-type"`
	LogsDB       bool          `mapstructure:"logsdb"`
	DropOriginal bool          `mapstructure:"drop-original"`
	DropMessage  bool          `mapstructure:"drop-message"`
	Namespace    string        `mapstructure:"namespace"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Window       time.Duration `mapstructure:"window"`
	LogDir       string        `mapstructure:"log-dir"`
	ReportDir    string        `mapstructure:"report-dir"`
	HistoryDB    string        `mapstructure:"history-db"`
	StatusAddr   string        `mapstructure:"status-addr"`
	Watch        bool          `mapstructure:"watch"`
	Verbose      bool          `mapstructure:"verbose"`

	// Sender settings.
	SyslogHost     string        `mapstructure:"syslog-host"`
	SyslogPort     int           `mapstructure:"syslog-port"`
	SyslogProtocol string        `mapstructure:"protocol"`
	SendInterval   time.Duration `mapstructure:"send-interval"`

	ConfigPath string `mapstructure:"-"` // not from config file
}

// runConfig converts the flat CLI configuration into the immutable run
// configuration handed to every component.
func (c appConfig) runConfig() (model.RunConfig, error) {
	category, err := model.ParseCategory(c.LogType)
	if err != nil {
		return model.RunConfig{}, err
	}

	cfg := model.RunConfig{
		Category:          category,
		LogsDB:            c.LogsDB,
		DropOriginal:      c.DropOriginal,
		DropMessage:       c.DropMessage,
		NamespaceOverride: c.Namespace,
		StreamType:        model.DefaultStreamType,
		Dataset:           model.DefaultDataset,
		Interval:          c.Interval,
		Timeout:           c.Timeout,
		Window:            c.Window,
		LogDir:            c.LogDir,
	}
	if err := cfg.Validate(); err != nil {
		return model.RunConfig{}, err
	}
	return cfg, nil
}
