// Package namespace derives the Elasticsearch data stream identity for a
// verification run. The derivation is a pure function of the run
// configuration: two runs with equal configuration always target the same
// data stream.
package namespace

import (
	"strings"

	"github.com/tinytelemetry/sluice/internal/model"
)

// Suffix tokens appended per active field-drop toggle. The order is part of
// the wire contract with the processing pipeline and must never change:
// mode, category, original-drop, message-drop.
const (
	suffixDropOriginal = "no-original"
	suffixDropMessage  = "no-message"
)

// Resolve returns the namespace for cfg, e.g. "logsdb-linux-no-original".
// An explicit NamespaceOverride wins over derivation.
func Resolve(cfg model.RunConfig) string {
	if cfg.NamespaceOverride != "" {
		return cfg.NamespaceOverride
	}

	parts := []string{cfg.Mode(), string(cfg.Category)}
	if cfg.DropOriginal {
		parts = append(parts, suffixDropOriginal)
	}
	if cfg.DropMessage {
		parts = append(parts, suffixDropMessage)
	}
	return strings.Join(parts, "-")
}

// DataStream returns the fully qualified data stream name,
// <type>-<dataset>-<namespace>, e.g. "logs-syslog-default-linux".
func DataStream(cfg model.RunConfig) string {
	return cfg.StreamType + "-" + cfg.Dataset + "-" + Resolve(cfg)
}

// TemplateName returns the index template name shared by every namespace of
// one type/dataset pair, e.g. "logs-syslog-template".
func TemplateName(cfg model.RunConfig) string {
	return cfg.StreamType + "-" + cfg.Dataset + "-template"
}

// IndexPattern returns the wildcard pattern the index template matches,
// e.g. "logs-syslog-*".
func IndexPattern(cfg model.RunConfig) string {
	return cfg.StreamType + "-" + cfg.Dataset + "-*"
}
