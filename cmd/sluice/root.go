package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tinytelemetry/sluice/internal/esbackend"
	"github.com/tinytelemetry/sluice/internal/model"
	"github.com/tinytelemetry/sluice/internal/namespace"
)

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:   "sluice",
		Short: "Verify syslog ingestion into an Elasticsearch data stream",
		Long: `sluice replays source log files to a syslog pipeline and then polls
the Elasticsearch backend until the record count it expects has been
ingested, or a deadline passes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "config file (default is ./sluice.yml)")
	registerRunFlags(pf)

	rootCmd.AddCommand(verifyCmd, countCmd, sendCmd, setupCmd, streamsCmd, runsCmd, versionCmd)
}

// registerRunFlags declares the flags shared by every run-shaped command.
func registerRunFlags(pf *pflag.FlagSet) {
	pf.String("endpoint", "", "Elasticsearch endpoint URL")
	pf.Int("port", defaultESPort, "Elasticsearch port when the endpoint carries none (0 uses the scheme default)")
	pf.String("api-key", "", "Elasticsearch API key")
	pf.String("log-type", string(model.CategoryAll), "log category (windows, linux, mac, ssh, apache, all)")
	pf.Bool("logsdb", false, "target the LogsDB index mode namespace")
	pf.Bool("drop-original", false, "target the namespace whose pipeline drops the original event")
	pf.Bool("drop-message", false, "target the namespace whose pipeline drops the message field")
	pf.String("namespace", "", "explicit data stream namespace (overrides derivation)")
	pf.Duration("interval", defaultPollInterval, "poll interval")
	pf.Duration("timeout", defaultPollTimeout, "poll deadline")
	pf.Duration("window", 0, "only count records ingested within this window (0 = all)")
	pf.String("log-dir", defaultLogDir, "directory holding the source log files")
	pf.Bool("verbose", false, "enable debug logging")
}

// loadConfig merges, in precedence order: built-in defaults, the YAML config
// file, a .env file in the working directory, the environment, and flags.
func loadConfig(cmd *cobra.Command) (appConfig, error) {
	var cfg appConfig

	v := viper.New()

	v.SetDefault("endpoint", "")
	v.SetDefault("port", defaultESPort)
	v.SetDefault("api-key", "")
	v.SetDefault("log-type", string(model.CategoryAll))
	v.SetDefault("logsdb", false)
	v.SetDefault("drop-original", false)
	v.SetDefault("drop-message", false)
	v.SetDefault("namespace", "")
	v.SetDefault("interval", defaultPollInterval)
	v.SetDefault("timeout", defaultPollTimeout)
	v.SetDefault("window", time.Duration(0))
	v.SetDefault("log-dir", defaultLogDir)
	v.SetDefault("report-dir", defaultReportDir)
	v.SetDefault("history-db", "")
	v.SetDefault("status-addr", "")
	v.SetDefault("watch", false)
	v.SetDefault("verbose", false)
	v.SetDefault("syslog-host", "localhost")
	v.SetDefault("syslog-port", defaultSyslogPort)
	v.SetDefault("protocol", "tcp")
	v.SetDefault("send-interval", time.Duration(0))

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile("sluice.yml")
	}
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	// The original deployment keyed everything off a .env file next to the
	// compose stack; honor it when present. Its values override the YAML
	// config but lose to real environment variables and flags.
	dotenv := viper.New()
	dotenv.SetConfigFile(".env")
	dotenv.SetConfigType("env")
	if err := dotenv.ReadInConfig(); err == nil {
		merged := make(map[string]any)
		for key, alias := range envKeys() {
			if dotenv.IsSet(key) {
				merged[alias] = dotenv.Get(key)
			}
		}
		if err := v.MergeConfigMap(merged); err != nil {
			return cfg, err
		}
	}

	for key, alias := range envKeys() {
		if err := v.BindEnv(alias, key); err != nil {
			return cfg, err
		}
	}

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return cfg, err
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	cfg.ConfigPath = v.ConfigFileUsed()

	if cfg.Endpoint != "" {
		// An unset port defers to the endpoint scheme (443 for https,
		// 9200 for http); an explicit ES_PORT/--port wins.
		port := ""
		if cfg.Port > 0 {
			port = strconv.Itoa(cfg.Port)
		}
		normalized, err := esbackend.NormalizeEndpoint(cfg.Endpoint, port)
		if err != nil {
			return cfg, fmt.Errorf("invalid endpoint: %w", err)
		}
		cfg.Endpoint = normalized
	}

	return cfg, nil
}

// envKeys maps the deployment's environment variable names onto config keys.
func envKeys() map[string]string {
	return map[string]string{
		"ES_ENDPOINT":              "endpoint",
		"ES_PORT":                  "port",
		"ELASTIC_ADMIN_API_KEY":    "api-key",
		"LOG_TYPE":                 "log-type",
		"ES_DATA_STREAM_NAMESPACE": "namespace",
	}
}

// requireBackend validates the settings every backend-touching command needs.
func requireBackend(cfg appConfig) error {
	if cfg.Endpoint == "" {
		return fmt.Errorf("no Elasticsearch endpoint configured (set ES_ENDPOINT or --endpoint)")
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("no API key configured (set ELASTIC_ADMIN_API_KEY or --api-key)")
	}
	return nil
}

// newLogger builds the process logger. Verbose enables per-tick debug lines.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    os.Getenv("NO_COLOR") != "" || !isTerminal(os.Stderr),
	}))
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("sluice - Syslog Ingestion Verifier\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Built:      %s\n", buildTime)
		fmt.Printf("  Go version: %s\n", goVersion)
	},
}

// backendClient builds the count client from validated configuration.
func backendClient(cfg appConfig) (*esbackend.Client, error) {
	if err := requireBackend(cfg); err != nil {
		return nil, err
	}
	return esbackend.New(esbackend.Config{
		Endpoint: cfg.Endpoint,
		APIKey:   cfg.APIKey,
	})
}

// streamName resolves the target data stream from configuration.
func streamName(cfg appConfig) (model.RunConfig, string, string, error) {
	rc, err := cfg.runConfig()
	if err != nil {
		return model.RunConfig{}, "", "", err
	}
	return rc, namespace.DataStream(rc), namespace.Resolve(rc), nil
}
