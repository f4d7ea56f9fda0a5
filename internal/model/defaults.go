package model

import "time"

// Shared defaults used by the CLI and the poller.
const (
	DefaultStreamType = "logs"
	DefaultDataset    = "syslog"

	DefaultPollInterval = 5 * time.Second
	DefaultPollTimeout  = 5 * time.Minute
)
